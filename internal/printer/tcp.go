package printer

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/ristora/order-print-agent/internal/model"
)

const (
	dialTimeout = 5 * time.Second
	// Thermal printers choke when the connection drops right after the last
	// byte; give the buffer a moment to drain before closing.
	settleDelay = 500 * time.Millisecond
)

// TCPSink writes jobs to raw-socket (port 9100 style) thermal printers.
type TCPSink struct {
	endpoints map[string]string // printer name -> host:port
}

func NewTCPSink(printers []model.PrinterEndpoint) *TCPSink {
	endpoints := make(map[string]string, len(printers))
	for _, p := range printers {
		endpoints[p.Name] = fmt.Sprintf("%s:%d", p.Host, p.Port)
	}
	return &TCPSink{endpoints: endpoints}
}

func (s *TCPSink) Submit(ctx context.Context, printerName string, job []byte) error {
	addr, ok := s.endpoints[printerName]
	if !ok {
		return fmt.Errorf("no endpoint configured for printer %q", printerName)
	}

	var d net.Dialer
	d.Timeout = dialTimeout
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
	}

	log.Printf("[printer] sending %d bytes to %s (%s)", len(job), printerName, addr)
	if _, err := conn.Write(job); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}

	select {
	case <-time.After(settleDelay):
	case <-ctx.Done():
	}
	return nil
}
