package services

import "errors"

// Nothing in this package is process-fatal: malformed events are dropped,
// transport errors are absorbed by reconnect/next-tick retry, and printer
// failures are reported in dispatch results rather than propagated.
var (
	// ErrMalformedEvent classifies payloads that decode as neither of the two
	// known shapes (event envelope or bare order).
	ErrMalformedEvent = errors.New("malformed event")

	// ErrOrderNotFound is returned by manual reprint when the order is no
	// longer buffered and could not be refetched.
	ErrOrderNotFound = errors.New("order not found")
)
