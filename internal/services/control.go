package services

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ristora/order-print-agent/internal/printer"
)

// ControlServer is the local management surface: status, manual reprint,
// printer discovery and metrics. It binds to loopback by default and carries
// no auth of its own; the surrounding application fronts it.
type ControlServer struct {
	srv      *http.Server
	hub      *StatusHub
	coord    *Coordinator
	upgrader websocket.Upgrader
}

func NewControlServer(addr string, hub *StatusHub, coord *Coordinator) *ControlServer {
	s := &ControlServer{
		hub:      hub,
		coord:    coord,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.hub.Snapshot())
	})
	r.POST("/orders/reprint", s.handleReprint)
	r.GET("/printers/discover", s.handleDiscover)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws/status", s.handleStatusSocket)

	s.srv = &http.Server{Addr: addr, Handler: r}
	return s
}

func (s *ControlServer) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[control] server failed: %v", err)
		}
	}()
	log.Printf("[control] listening on %s", s.srv.Addr)
}

func (s *ControlServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// handleReprint re-dispatches an order by number or id. The key rides in the
// body because order numbers contain slashes.
func (s *ControlServer) handleReprint(c *gin.Context) {
	var req struct {
		Key string `json:"key"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing order key"})
		return
	}

	res, err := s.coord.Reprint(c.Request.Context(), req.Key)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrOrderNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *ControlServer) handleDiscover(c *gin.Context) {
	found, err := printer.Discover()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"printers": found})
}

// handleStatusSocket pushes every status change to the connected UI. The
// current snapshot goes out first so the client never starts blind.
func (s *ControlServer) handleStatusSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	updates, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(s.hub.Snapshot()); err != nil {
		return
	}
	for {
		select {
		case snap := <-updates:
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
