package services

import (
	"sync"
	"time"

	"github.com/ristora/order-print-agent/internal/model"
)

// StatusHub holds the observable service state. The core mutates it through
// Update; the UI layer reads snapshots or subscribes for pushes. Subscribers
// that fall behind miss intermediate snapshots rather than blocking the core.
type StatusHub struct {
	mu   sync.Mutex
	snap model.StatusSnapshot
	subs map[chan model.StatusSnapshot]struct{}
}

func NewStatusHub() *StatusHub {
	return &StatusHub{subs: make(map[chan model.StatusSnapshot]struct{})}
}

func (h *StatusHub) Snapshot() model.StatusSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snap
}

// Update applies a mutation to the snapshot and broadcasts the result.
func (h *StatusHub) Update(mutate func(*model.StatusSnapshot)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	mutate(&h.snap)
	h.snap.UpdatedAt = time.Now()
	for ch := range h.subs {
		select {
		case ch <- h.snap:
		default:
		}
	}
}

// Subscribe registers a push channel; the returned func unsubscribes.
func (h *StatusHub) Subscribe() (<-chan model.StatusSnapshot, func()) {
	ch := make(chan model.StatusSnapshot, 8)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
	return ch, cancel
}
