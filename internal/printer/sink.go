// Package printer holds the thin OS/network boundary to physical receipt
// printers: a Sink capability for submitting raw jobs, the TCP 9100
// implementation, and subnet discovery.
package printer

import "context"

// Sink submits one raw job to a named printer. Implementations report
// failure per job; they never retry on their own, since the dispatcher owns the
// copy/retry policy.
type Sink interface {
	Submit(ctx context.Context, printerName string, job []byte) error
}
