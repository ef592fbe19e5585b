package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ristora/order-print-agent/internal/dedup"
	"github.com/ristora/order-print-agent/internal/metrics"
	"github.com/ristora/order-print-agent/internal/model"
)

// RawEvent is the handoff unit between the event sources and the
// coordinator. Both the stream listener and the poller feed the same channel.
type RawEvent struct {
	Source string // "stream" or "poll"
	Type   string // SSE event name; empty for poll items
	Data   []byte
}

// OrderDetailsFetcher backfills full order details when an accepted order
// arrives without line items.
type OrderDetailsFetcher interface {
	FetchOrderDetails(ctx context.Context, numericID int) (*model.Order, error)
}

// orderDispatcher is what the coordinator forwards accepted orders to.
type orderDispatcher interface {
	Dispatch(ctx context.Context, o *model.Order, manual bool) DispatchResult
}

// Coordinator is the single authority on "has this confirmed order already
// been handled". It merges both event sources into one logical stream,
// filters and dedups, and forwards each accepted order to the dispatcher
// exactly once.
type Coordinator struct {
	store    dedup.Store
	fetcher  OrderDetailsFetcher
	dispatch orderDispatcher
	hub      *StatusHub
	events   chan RawEvent

	// Accepted orders are buffered for the dedup window so manual reprints
	// can re-dispatch without refetching.
	recentMu sync.Mutex
	recent   map[string]recentOrder
}

type recentOrder struct {
	order *model.Order
	at    time.Time
}

func NewCoordinator(store dedup.Store, fetcher OrderDetailsFetcher, dispatch orderDispatcher, hub *StatusHub) *Coordinator {
	return &Coordinator{
		store:    store,
		fetcher:  fetcher,
		dispatch: dispatch,
		hub:      hub,
		events:   make(chan RawEvent, 64),
		recent:   make(map[string]recentOrder),
	}
}

// Events is the channel the event sources feed.
func (c *Coordinator) Events() chan<- RawEvent {
	return c.events
}

// Run consumes raw events until the context is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.events:
			metrics.EventsReceived.WithLabelValues(ev.Source).Inc()
			order, err := c.HandleCandidate(ctx, ev.Data)
			if err != nil {
				log.Printf("[ingest] dropping event from %s: %v", ev.Source, err)
				continue
			}
			if order == nil {
				continue
			}
			log.Printf("[ingest] accepted order %s from %s", order.Number, ev.Source)
			res := c.dispatch.Dispatch(ctx, order, false)
			logDispatch(order, res)
		}
	}
}

// HandleCandidate decides whether a raw payload is a new confirmed order.
// It returns the order to print when the payload parses as one of the two
// known shapes, its status is Confirmed, and its key has not been seen within
// the dedup window. The key is recorded before any printing side effect, so a
// concurrent duplicate from the other source is rejected rather than racing
// to print twice. Safe for concurrent use.
func (c *Coordinator) HandleCandidate(ctx context.Context, raw []byte) (*model.Order, error) {
	order, err := ParseCandidate(raw)
	if err != nil {
		metrics.EventsMalformed.Inc()
		c.hub.Update(func(s *model.StatusSnapshot) { s.Malformed++ })
		return nil, err
	}

	if !order.Status.IsConfirmed() {
		return nil, nil
	}

	added, err := c.store.CheckAndAdd(ctx, order.DedupKey())
	if err != nil {
		// A broken dedup backend must not stop printing; accept and risk a
		// duplicate rather than drop a confirmed order.
		log.Printf("[ingest] dedup store error for %s, accepting anyway: %v", order.Number, err)
		added = true
	}
	if !added {
		metrics.EventsDuplicate.Inc()
		c.hub.Update(func(s *model.StatusSnapshot) { s.Duplicates++ })
		return nil, nil
	}

	metrics.OrdersAccepted.Inc()
	c.hub.Update(func(s *model.StatusSnapshot) {
		s.Accepted++
		s.LastOrderAt = time.Now()
	})

	order = c.backfillItems(ctx, order)
	c.remember(order)
	return order, nil
}

// ParseCandidate decodes the two payload shapes the upstream emits: an event
// envelope wrapping an order, or a bare order. Two-attempt parse with
// explicit fallback.
func ParseCandidate(raw []byte) (*model.Order, error) {
	var env model.EventEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Order != nil {
		return env.Order, nil
	}

	var order model.Order
	if err := json.Unmarshal(raw, &order); err == nil && order.DedupKey() != "" {
		return &order, nil
	}

	return nil, fmt.Errorf("%w: payload matches neither envelope nor bare order", ErrMalformedEvent)
}

// backfillItems makes one best-effort synchronous fetch of full details when
// the accepted order has no items. Failures are logged and printing proceeds
// with whatever is available.
func (c *Coordinator) backfillItems(ctx context.Context, order *model.Order) *model.Order {
	if len(order.Items) > 0 || c.fetcher == nil {
		return order
	}
	id := order.NumericID()
	if id <= 0 {
		return order
	}

	full, err := c.fetcher.FetchOrderDetails(ctx, id)
	if err != nil {
		log.Printf("[ingest] item backfill for order %s failed: %v", order.Number, err)
		return order
	}
	if full == nil || len(full.Items) == 0 {
		return order
	}

	enriched := *order
	enriched.Items = full.Items
	return &enriched
}

func (c *Coordinator) remember(o *model.Order) {
	c.recentMu.Lock()
	defer c.recentMu.Unlock()

	now := time.Now()
	for k, r := range c.recent {
		if now.Sub(r.at) > dedup.Window {
			delete(c.recent, k)
		}
	}
	entry := recentOrder{order: o, at: now}
	c.recent[o.Number] = entry
	if o.ID != "" {
		c.recent[o.ID] = entry
	}
}

func (c *Coordinator) lookupRecent(key string) *model.Order {
	c.recentMu.Lock()
	defer c.recentMu.Unlock()
	if r, ok := c.recent[key]; ok {
		return r.order
	}
	return nil
}

// Reprint re-dispatches an order by number or id on explicit user request.
// Manual dispatch bypasses auto-print and time-restriction suppression.
func (c *Coordinator) Reprint(ctx context.Context, key string) (DispatchResult, error) {
	order := c.lookupRecent(key)
	if order == nil && c.fetcher != nil {
		probe := model.Order{Number: key}
		if id := probe.NumericID(); id > 0 {
			full, err := c.fetcher.FetchOrderDetails(ctx, id)
			if err != nil {
				return DispatchResult{}, fmt.Errorf("%w: %s (refetch failed: %v)", ErrOrderNotFound, key, err)
			}
			order = full
		}
	}
	if order == nil {
		return DispatchResult{}, fmt.Errorf("%w: %s", ErrOrderNotFound, key)
	}

	log.Printf("[ingest] manual reprint requested for order %s", order.Number)
	res := c.dispatch.Dispatch(ctx, order, true)
	logDispatch(order, res)
	return res, nil
}

func logDispatch(o *model.Order, res DispatchResult) {
	log.Printf("[ingest] order %s dispatched: kitchen=%s cashier=%s",
		o.Number, res.Kitchen.State, res.Cashier.State)
}
