package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ristora/order-print-agent/internal/dedup"
	"github.com/ristora/order-print-agent/internal/model"
)

// Poll feed returns one confirmed order; the coordinator accepts it once, the
// dispatcher emits one kitchen and one cashier job, and a duplicate poll
// result for the same order number is rejected.
func TestPollToPrintScenario(t *testing.T) {
	order := model.Order{
		Number:      "100/2024",
		Status:      model.StatusConfirmed,
		Type:        model.OrderTypeDineIn,
		TableNumber: "5",
		OrderDate:   time.Date(2024, 6, 1, 20, 0, 0, 0, time.Local),
		Items: []model.OrderItem{
			{Name: "Margherita", Quantity: 1, LineTotal: decimal.NewFromFloat(6)},
			{Name: "Tiramisu", Quantity: 1, LineTotal: decimal.NewFromFloat(4)},
		},
		Subtotal: decimal.NewFromFloat(10),
		Total:    decimal.NewFromFloat(10),
	}
	feed := &scriptedFeed{orders: []model.Order{order}}

	sink := &fakeSink{}
	hub := NewStatusHub()
	dispatcher := newTestDispatcher(sink, testConfig())
	coordinator := NewCoordinator(dedup.NewMemoryStore(), nil, dispatcher, hub)
	poller := NewPoller(feed, coordinator.Events(), 5*time.Second, hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		coordinator.Run(ctx)
	}()

	// First poll delivers the order; the second delivers the same one again.
	poller.pollOnce(ctx)
	poller.pollOnce(ctx)

	require.Eventually(t, func() bool {
		s := hub.Snapshot()
		return s.Accepted == 1 && s.Duplicates == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done

	assert.Len(t, sink.jobsFor("K"), 1, "one kitchen job")
	assert.Len(t, sink.jobsFor("C"), 1, "one cashier job")
}
