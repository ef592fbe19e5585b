package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ristora/order-print-agent/internal/dedup"
	"github.com/ristora/order-print-agent/internal/model"
	"github.com/ristora/order-print-agent/internal/printer"
	"github.com/ristora/order-print-agent/internal/services"
)

const configFile = "config/config.json"

func main() {
	path := configFile
	if env := os.Getenv("PRINT_AGENT_CONFIG"); env != "" {
		path = env
	}

	// 1. Load Configuration
	config, err := model.LoadOrSetupConfig(path)
	if err != nil {
		log.Fatal("config error: ", err)
	}
	log.Printf("[main] configuration loaded: api=%s channel=%s printers=%d",
		config.APIBaseURL, config.EventChannel, len(config.Printers))

	// 2. Dedup store: in-process by default, Redis when several agents share
	// one account.
	var store dedup.Store
	if config.RedisAddr != "" {
		redisStore, err := dedup.NewRedisStore(config.RedisAddr)
		if err != nil {
			log.Fatal("redis error: ", err)
		}
		defer redisStore.Close()
		store = redisStore
		log.Printf("[main] using shared dedup store at %s", config.RedisAddr)
	} else {
		store = dedup.NewMemoryStore()
	}

	// 3. Wire the pipeline: sources -> coordinator -> dispatcher -> printers.
	client := services.NewClient(config.APIBaseURL, config.BearerToken)
	sink := printer.NewTCPSink(config.Printers)
	hub := services.NewStatusHub()
	dispatcher := services.NewDispatcher(sink, config, hub)
	coordinator := services.NewCoordinator(store, client, dispatcher, hub)
	listener := services.NewStreamListener(client, config.EventChannel, coordinator.Events(), hub)
	poller := services.NewPoller(client, coordinator.Events(), config.PollInterval(), hub)

	service := services.NewService(coordinator, listener, poller, hub)
	control := services.NewControlServer(config.ControlAddr, hub, coordinator)

	service.Start()
	control.Start()

	// 4. Wait for interrupt to exit cleanly.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	log.Printf("[main] shutting down...")

	service.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := control.Shutdown(ctx); err != nil {
		log.Printf("[main] control server shutdown failed: %v", err)
	}
}
