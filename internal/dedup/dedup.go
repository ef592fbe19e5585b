// Package dedup provides time-windowed duplicate suppression over order
// identifiers. Both event sources feed the same store, so first-acceptor
// wins; entries expire after the retention window and the key is treated as
// new again.
package dedup

import (
	"context"
	"sync"
	"time"
)

// Window is the retention period during which a previously seen key is
// rejected as a duplicate.
const Window = time.Hour

// Store is a check-and-insert set. CheckAndAdd returns true exactly once per
// key per retention window, no matter how many concurrent callers race on it.
type Store interface {
	CheckAndAdd(ctx context.Context, key string) (added bool, err error)
}

// MemoryStore keeps first-seen timestamps in-process. Eviction is a lazy
// sweep on every call rather than a background timer, which keeps memory
// bounded without a scheduled task.
type MemoryStore struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	window time.Duration
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return newMemoryStore(Window, time.Now)
}

func newMemoryStore(window time.Duration, now func() time.Time) *MemoryStore {
	return &MemoryStore{
		seen:   make(map[string]time.Time),
		window: window,
		now:    now,
	}
}

// CheckAndAdd sweeps expired entries, then tests and records the key under
// one lock so a concurrent duplicate from the other source cannot slip in
// between the check and the insert.
func (s *MemoryStore) CheckAndAdd(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, firstSeen := range s.seen {
		if now.Sub(firstSeen) > s.window {
			delete(s.seen, k)
		}
	}

	if _, dup := s.seen[key]; dup {
		return false, nil
	}
	s.seen[key] = now
	return true, nil
}

// Len reports the live entry count (after the next sweep it may shrink).
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
