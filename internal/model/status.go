package model

import "time"

// --- Service status (pushed to the UI layer) ---

type StreamState string

const (
	StreamDisconnected StreamState = "disconnected"
	StreamConnecting   StreamState = "connecting"
	StreamConnected    StreamState = "connected"
)

// StatusSnapshot is the observable service state. The UI layer reads it via
// GET /status or subscribes to the websocket push; the core only ever hands
// out copies.
type StatusSnapshot struct {
	Running       bool        `json:"running"`
	Stream        StreamState `json:"stream"`
	LastPoll      time.Time   `json:"lastPoll,omitempty"`
	LastOrderAt   time.Time   `json:"lastOrderAt,omitempty"`
	Accepted      uint64      `json:"accepted"`
	Duplicates    uint64      `json:"duplicates"`
	Malformed     uint64      `json:"malformed"`
	PrintFailures uint64      `json:"printFailures"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}
