package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ristora/order-print-agent/internal/format"
	"github.com/ristora/order-print-agent/internal/metrics"
	"github.com/ristora/order-print-agent/internal/model"
	"github.com/ristora/order-print-agent/internal/printer"
)

type DestinationState string

const (
	StateSkipped         DestinationState = "skipped"
	StateSucceeded       DestinationState = "succeeded"
	StatePartiallyFailed DestinationState = "partially_failed"
	StateFailed          DestinationState = "failed"
)

// DestinationResult is the structured outcome for one destination. Printer
// failures land here, never as faults.
type DestinationResult struct {
	Destination model.Destination `json:"destination"`
	State       DestinationState  `json:"state"`
	Reason      string            `json:"reason,omitempty"`
	JobIDs      []string          `json:"jobIds,omitempty"`
	Failures    []string          `json:"failures,omitempty"`
}

// OK reports whether the destination needs no attention: it either printed
// fully or was deliberately skipped.
func (r DestinationResult) OK() bool {
	return r.State == StateSucceeded || r.State == StateSkipped
}

type DispatchResult struct {
	Kitchen DestinationResult `json:"kitchen"`
	Cashier DestinationResult `json:"cashier"`
}

// Dispatcher decides which destinations receive which rendering of a
// confirmed order and drives the per-copy submission. Submissions for one
// destination are serialized (a printer cannot interleave jobs); the two
// destinations print concurrently.
type Dispatcher struct {
	sink      printer.Sink
	cfg       model.Config
	hub       *StatusHub
	now       func() time.Time
	copyDelay time.Duration

	kitchenMu sync.Mutex
	cashierMu sync.Mutex
}

func NewDispatcher(sink printer.Sink, cfg model.Config, hub *StatusHub) *Dispatcher {
	return &Dispatcher{
		sink:      sink,
		cfg:       cfg,
		hub:       hub,
		now:       time.Now,
		copyDelay: 200 * time.Millisecond,
	}
}

// Dispatch prints one confirmed order to both destinations and reports the
// per-destination outcomes. manual marks an explicit reprint, which bypasses
// auto-print-disabled and the time-restriction window.
func (d *Dispatcher) Dispatch(ctx context.Context, o *model.Order, manual bool) DispatchResult {
	if !o.TotalsConsistent() {
		log.Printf("[dispatch] order %s totals do not add up, printing as received", o.Number)
	}

	var res DispatchResult
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		res.Kitchen = d.dispatchTo(ctx, model.DestinationKitchen, o, manual)
	}()
	go func() {
		defer wg.Done()
		res.Cashier = d.dispatchTo(ctx, model.DestinationCashier, o, manual)
	}()
	wg.Wait()
	return res
}

func (d *Dispatcher) dispatchTo(ctx context.Context, dest model.Destination, o *model.Order, manual bool) DestinationResult {
	res := DestinationResult{Destination: dest}
	cfg := d.cfg.DestinationConfigFor(dest)

	if !manual {
		if !cfg.AutoPrint {
			res.State = StateSkipped
			res.Reason = "auto-print disabled"
			return res
		}
		if cfg.Restriction.Contains(d.now()) {
			res.State = StateSkipped
			res.Reason = "inside restriction window"
			return res
		}
	}

	if cfg.PrinterName == "" {
		log.Printf("[dispatch] no printer configured for %s, skipping order %s", dest, o.Number)
		res.State = StateSkipped
		res.Reason = "no printer configured"
		return res
	}

	payloads := d.payloadsFor(dest, o, cfg)

	mu := d.destinationLock(dest)
	mu.Lock()
	defer mu.Unlock()

	copies := cfg.CopyCount()
	planned := copies * len(payloads)
	submitted, failed := 0, 0
loop:
	for _, payload := range payloads {
		for i := 0; i < copies; i++ {
			if submitted > 0 {
				// Pause between copies so the printer buffer keeps up.
				select {
				case <-time.After(d.copyDelay):
				case <-ctx.Done():
					// Submitting the rest against a dead context would just
					// burn a dial failure per copy.
					failed += planned - submitted
					res.Failures = append(res.Failures, ctx.Err().Error())
					log.Printf("[dispatch] %s cancelled after %d of %d copies of order %s",
						dest, submitted, planned, o.Number)
					break loop
				}
			}

			jobID := uuid.NewString()
			res.JobIDs = append(res.JobIDs, jobID)
			submitted++

			if err := d.sink.Submit(ctx, cfg.PrinterName, payload); err != nil {
				// One failed copy does not abort the remaining copies.
				failed++
				res.Failures = append(res.Failures, err.Error())
				metrics.PrintJobs.WithLabelValues(string(dest), "failure").Inc()
				d.hub.Update(func(s *model.StatusSnapshot) { s.PrintFailures++ })
				log.Printf("[dispatch] %s copy %d of order %s failed (job %s): %v",
					dest, i+1, o.Number, jobID, err)
			} else {
				metrics.PrintJobs.WithLabelValues(string(dest), "success").Inc()
			}
		}
	}

	switch {
	case failed == 0:
		res.State = StateSucceeded
	case failed >= planned:
		res.State = StateFailed
	default:
		res.State = StatePartiallyFailed
	}
	return res
}

// payloadsFor resolves the renderings a destination receives. Orders with
// front-of-house items produce two sequential cashier jobs: a kitchen-style
// slip (the front station has no printer of its own) followed by the normal
// priced receipt.
func (d *Dispatcher) payloadsFor(dest model.Destination, o *model.Order, cfg model.DestinationConfig) [][]byte {
	if dest == model.DestinationKitchen {
		return [][]byte{format.Kitchen(o, cfg)}
	}

	cashier := format.Cashier(o, cfg, d.cfg.RestaurantName, d.cfg.Currency)
	if o.HasFrontKitchenItems() {
		return [][]byte{format.Kitchen(o, cfg), cashier}
	}
	return [][]byte{cashier}
}

func (d *Dispatcher) destinationLock(dest model.Destination) *sync.Mutex {
	if dest == model.DestinationKitchen {
		return &d.kitchenMu
	}
	return &d.cashierMu
}
