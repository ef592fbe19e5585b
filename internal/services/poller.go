package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/ristora/order-print-agent/internal/model"
)

// feedSource is the slice of the API client the poller needs.
type feedSource interface {
	FetchFeed(ctx context.Context, since time.Time) ([]model.Order, error)
}

// Poller fetches the confirmed-order delta feed on a fixed interval. It is
// the reliability floor: every confirmed order must come through here even
// with the stream entirely down. The watermark only advances after a
// successful response, so a failed poll is retried from the same point on the
// next tick: constant interval, no backoff growth.
type Poller struct {
	feed      feedSource
	events    chan<- RawEvent
	interval  time.Duration
	hub       *StatusHub
	watermark time.Time
}

func NewPoller(feed feedSource, events chan<- RawEvent, interval time.Duration, hub *StatusHub) *Poller {
	return &Poller{
		feed:      feed,
		events:    events,
		interval:  interval,
		hub:       hub,
		watermark: time.Now(),
	}
}

// Run polls until the context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	// The next watermark is taken before the request so orders confirmed
	// while it is in flight fall into the following window.
	requestedAt := time.Now()

	orders, err := p.feed.FetchFeed(ctx, p.watermark)
	if err != nil {
		log.Printf("[poll] feed fetch failed, keeping watermark: %v", err)
		return
	}

	p.watermark = requestedAt
	p.hub.Update(func(s *model.StatusSnapshot) { s.LastPoll = requestedAt })

	for i := range orders {
		// Feed items take the same parse-and-filter path as stream frames.
		data, err := json.Marshal(&orders[i])
		if err != nil {
			log.Printf("[poll] failed to re-encode feed item: %v", err)
			continue
		}
		select {
		case p.events <- RawEvent{Source: "poll", Data: data}:
		case <-ctx.Done():
			return
		}
	}
}
