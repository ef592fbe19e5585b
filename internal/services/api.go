package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ristora/order-print-agent/internal/model"
)

// Client talks to the restaurant API. Plain requests get a 10s timeout; the
// event-stream request uses a separate client with no timeout because the
// connection is supposed to stay open, and is torn down via context instead.
type Client struct {
	baseURL   string
	token     string
	http      *http.Client
	streaming *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		http:      &http.Client{Timeout: 10 * time.Second},
		streaming: &http.Client{},
	}
}

func (c *Client) newRequest(ctx context.Context, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, path)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// FetchFeed returns the confirmed orders modified since the watermark.
func (c *Client) FetchFeed(ctx context.Context, since time.Time) ([]model.Order, error) {
	path := "/api/orders/printer-feed?modifiedSince=" +
		url.QueryEscape(since.UTC().Format(time.RFC3339))

	var payload model.FeedPayload
	if err := c.getJSON(ctx, path, &payload); err != nil {
		return nil, err
	}
	return payload.Data.Items, nil
}

// FetchOrderDetails backfills a full order by its numeric id. Used only when
// an accepted order arrives with an empty item list.
func (c *Client) FetchOrderDetails(ctx context.Context, numericID int) (*model.Order, error) {
	var order model.Order
	if err := c.getJSON(ctx, fmt.Sprintf("/api/orders/%d", numericID), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// OpenStream issues the long-lived SSE request. The caller owns the body and
// cancels the context to close the connection.
func (c *Client) OpenStream(ctx context.Context, channel string) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, "/api/events/"+url.PathEscape(channel))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streaming.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}
	return resp.Body, nil
}
