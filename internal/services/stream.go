package services

import (
	"bufio"
	"context"
	"log"
	"strings"
	"time"

	"github.com/ristora/order-print-agent/internal/metrics"
	"github.com/ristora/order-print-agent/internal/model"
)

const (
	defaultBackoffFloor      = 5 * time.Second
	defaultBackoffCeil       = 60 * time.Second
	defaultInactivityTimeout = 40 * time.Second
)

// Event names the upstream uses for order lifecycle changes. They all funnel
// into the same parse-and-filter path; the distinction carries no meaning for
// printing.
var orderEventNames = map[string]bool{
	"order-created":        true,
	"order_created":        true,
	"order-updated":        true,
	"order_updated":        true,
	"order":                true,
	"message":              true,
	"order-status-changed": true,
	"order_status_changed": true,
	"order-ready":          true,
	"order_ready":          true,
	"order-completed":      true,
	"order_completed":      true,
}

// StreamListener keeps a long-lived SSE connection open and forwards order
// frames to the coordinator. It is a latency optimization only: the poller
// alone is sufficient for correctness, so stream failures just back off and
// reconnect.
type StreamListener struct {
	client  *Client
	channel string
	events  chan<- RawEvent
	hub     *StatusHub

	backoffFloor time.Duration
	backoffCeil  time.Duration
	inactivity   time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
}

func NewStreamListener(client *Client, channel string, events chan<- RawEvent, hub *StatusHub) *StreamListener {
	return &StreamListener{
		client:       client,
		channel:      channel,
		events:       events,
		hub:          hub,
		backoffFloor: defaultBackoffFloor,
		backoffCeil:  defaultBackoffCeil,
		inactivity:   defaultInactivityTimeout,
		sleep:        sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Run reconnects until the context is cancelled. Backoff doubles from 5s up
// to 60s and resets to the floor after any successful connection.
func (l *StreamListener) Run(ctx context.Context) {
	backoff := l.backoffFloor
	for {
		if ctx.Err() != nil {
			return
		}

		l.setState(model.StreamConnecting)
		connected, err := l.listenOnce(ctx)
		l.setState(model.StreamDisconnected)

		if ctx.Err() != nil {
			return
		}
		if connected {
			backoff = l.backoffFloor
		}
		log.Printf("[stream] connection lost (%v), reconnecting in %s", err, backoff)

		if l.sleep(ctx, backoff) != nil {
			return
		}
		backoff *= 2
		if backoff > l.backoffCeil {
			backoff = l.backoffCeil
		}
	}
}

// listenOnce opens one connection and reads frames until it dies. The
// watchdog cancels the request when nothing (not even a heartbeat) arrives
// within the inactivity timeout.
func (l *StreamListener) listenOnce(ctx context.Context) (connected bool, err error) {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	body, err := l.client.OpenStream(connCtx, l.channel)
	if err != nil {
		return false, err
	}
	defer body.Close()

	log.Printf("[stream] connected to channel %q", l.channel)
	l.setState(model.StreamConnected)

	watchdog := time.AfterFunc(l.inactivity, cancel)
	defer watchdog.Stop()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventName string
	var data []string

	for scanner.Scan() {
		watchdog.Reset(l.inactivity)
		line := scanner.Text()

		switch {
		case line == "":
			// Blank line ends the frame.
			l.dispatchFrame(ctx, eventName, data)
			eventName, data = "", nil
		case strings.HasPrefix(line, ":"):
			// Comment/heartbeat; its arrival already fed the watchdog.
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(line[len("event:"):])
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(line[len("data:"):], " "))
		}
	}
	return true, scanner.Err()
}

func (l *StreamListener) dispatchFrame(ctx context.Context, name string, data []string) {
	switch {
	case name == "connected":
		log.Printf("[stream] handshake acknowledged by server")
	case name == "heartbeat":
		// Carries nothing of interest.
	case orderEventNames[name]:
		if len(data) == 0 {
			return
		}
		payload := strings.Join(data, "\n")
		select {
		case l.events <- RawEvent{Source: "stream", Type: name, Data: []byte(payload)}:
		case <-ctx.Done():
		}
	default:
		log.Printf("[stream] ignoring event %q", name)
	}
}

func (l *StreamListener) setState(state model.StreamState) {
	if state == model.StreamConnected {
		metrics.StreamConnected.Set(1)
	} else {
		metrics.StreamConnected.Set(0)
	}
	l.hub.Update(func(s *model.StatusSnapshot) { s.Stream = state })
}
