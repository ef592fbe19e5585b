package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenOnceParsesEventFrames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/events/orders", r.URL.Path)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")

		io.WriteString(w, "event: connected\ndata: {\"ack\":true}\n\n")
		io.WriteString(w, ": keepalive\n")
		io.WriteString(w, "event: order-updated\ndata: {\"orderNumber\":\"100/2024\",\"status\":\"Confirmed\"}\n\n")
		io.WriteString(w, "event: heartbeat\n\n")
		io.WriteString(w, "event: promo-started\ndata: {\"x\":1}\n\n")
		// Payload fragments on repeated data lines are joined with newlines.
		io.WriteString(w, "event: order_created\ndata: {\"orderNumber\":\ndata: \"101/2024\"}\n\n")
	}))
	defer srv.Close()

	events := make(chan RawEvent, 16)
	listener := NewStreamListener(NewClient(srv.URL, ""), "orders", events, NewStatusHub())

	connected, err := listener.listenOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, connected)
	close(events)

	var got []RawEvent
	for ev := range events {
		got = append(got, ev)
	}
	require.Len(t, got, 2, "only order-lifecycle frames with payloads are forwarded")

	assert.Equal(t, "stream", got[0].Source)
	assert.Equal(t, "order-updated", got[0].Type)
	assert.JSONEq(t, `{"orderNumber":"100/2024","status":"Confirmed"}`, string(got[0].Data))

	assert.Equal(t, "order_created", got[1].Type)
	assert.Equal(t, "{\"orderNumber\":\n\"101/2024\"}", string(got[1].Data))
}

func TestListenOnceConnectFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	events := make(chan RawEvent, 1)
	listener := NewStreamListener(NewClient(srv.URL, ""), "orders", events, NewStatusHub())

	connected, err := listener.listenOnce(context.Background())
	assert.False(t, connected, "a rejected request does not reset the backoff")
	assert.Error(t, err)
}

func TestRunBackoffProgressionAndCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	listener := NewStreamListener(NewClient(srv.URL, ""), "orders", make(chan RawEvent, 1), NewStatusHub())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var waits []time.Duration
	listener.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		if len(waits) == 6 {
			cancel()
			return ctx.Err()
		}
		return nil
	}

	listener.Run(ctx)

	want := []time.Duration{
		5 * time.Second, 10 * time.Second, 20 * time.Second,
		40 * time.Second, 60 * time.Second, 60 * time.Second,
	}
	assert.Equal(t, want, waits, "delay doubles from the floor and caps at the ceiling")
}

func TestRunBackoffResetsAfterConnection(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 3 {
			// One good connection that serves a heartbeat and drops.
			w.Header().Set("Content-Type", "text/event-stream")
			io.WriteString(w, ": hello\n")
			return
		}
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	listener := NewStreamListener(NewClient(srv.URL, ""), "orders", make(chan RawEvent, 1), NewStatusHub())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var waits []time.Duration
	listener.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		if len(waits) == 4 {
			cancel()
			return ctx.Err()
		}
		return nil
	}

	listener.Run(ctx)

	want := []time.Duration{5 * time.Second, 10 * time.Second, 5 * time.Second, 10 * time.Second}
	assert.Equal(t, want, waits, "a successful connection resets the delay to the floor")
}

func TestWatchdogTearsDownStalledStream(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		// Stall: no frames, not even a heartbeat.
		<-r.Context().Done()
	}))
	defer srv.Close()

	listener := NewStreamListener(NewClient(srv.URL, ""), "orders", make(chan RawEvent, 1), NewStatusHub())
	listener.inactivity = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	listener.sleep = func(context.Context, time.Duration) error {
		mu.Lock()
		n := calls
		mu.Unlock()
		if n >= 2 {
			cancel()
			return ctx.Err()
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		listener.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stalled stream was never torn down")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, calls, 2, "listener reconnected after the watchdog fired")
}

func TestDispatchFrameFiltersEventNames(t *testing.T) {
	events := make(chan RawEvent, 8)
	listener := NewStreamListener(NewClient("http://unused.localhost", ""), "orders", events, NewStatusHub())
	ctx := context.Background()

	listener.dispatchFrame(ctx, "connected", []string{`{"ack":true}`})
	listener.dispatchFrame(ctx, "heartbeat", nil)
	listener.dispatchFrame(ctx, "order-ready", nil) // payload-less order frame is dropped
	listener.dispatchFrame(ctx, "order-status-changed", []string{`{}`})

	require.Len(t, events, 1)
	ev := <-events
	assert.Equal(t, "order-status-changed", ev.Type)
}
