package services

import (
	"context"
	"log"
	"sync"

	"github.com/ristora/order-print-agent/internal/model"
)

// Service runs the coordinator and both event sources under one cancellation
// signal. Stop cancels all three and waits for them to finish before
// reporting stopped.
type Service struct {
	coord    *Coordinator
	listener *StreamListener
	poller   *Poller
	hub      *StatusHub

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

func NewService(coord *Coordinator, listener *StreamListener, poller *Poller, hub *StatusHub) *Service {
	return &Service{coord: coord, listener: listener, poller: poller, hub: hub}
}

func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true

	for _, run := range []func(context.Context){
		s.coord.Run,
		s.listener.Run,
		s.poller.Run,
	} {
		s.wg.Add(1)
		go func(run func(context.Context)) {
			defer s.wg.Done()
			run(ctx)
		}(run)
	}

	s.hub.Update(func(snap *model.StatusSnapshot) { snap.Running = true })
	log.Printf("[service] started")
}

func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	s.cancel()
	s.wg.Wait()
	s.running = false

	s.hub.Update(func(snap *model.StatusSnapshot) {
		snap.Running = false
		snap.Stream = model.StreamDisconnected
	})
	log.Printf("[service] stopped")
}
