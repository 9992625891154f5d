package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gsu-cloud/turbine-cloud/internal/app"
	"github.com/gsu-cloud/turbine-cloud/internal/queue"
	"github.com/gsu-cloud/turbine-cloud/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting GSU Cloud...")

	if cfg.Kafka.Enabled() {
		for _, topic := range []string{cfg.Kafka.TopicAlerts, cfg.Kafka.TopicHotspots} {
			if err := queue.CreateTopic(cfg.Kafka.Brokers, topic, 3, 1); err != nil {
				fmt.Printf("Note: Topic %s creation failed (may already exist): %v\n", topic, err)
			}
		}
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize service: %v", err)
	}
	a.Start()
	fmt.Printf("Analysis pool started (%d workers, queue size %d)\n", cfg.Analysis.Workers, cfg.Analysis.QueueSize)
	fmt.Printf("Capture storage: %s\n", a.Captures.Dir())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Print statistics periodically
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			stats := a.Stats()
			fmt.Printf("\n--- Service Statistics ---\n")
			fmt.Printf("Turbines: %d known, %d online\n", stats.Fleet.Turbines, stats.Fleet.Online)
			if inactive := a.Fleet.Inactive(cfg.State.StaleAfter); len(inactive) > 0 {
				fmt.Printf("Silent turbines: %v\n", inactive)
			}
			fmt.Printf("Alerts: %d / %d\n", stats.Alerts, stats.AlertCapacity)
			fmt.Printf("Analyses: %d processed, %d failed\n", stats.Analysis.Processed, stats.Analysis.Failed)
			fmt.Printf("Stream clients: %d\n", stats.StreamClients)
			fmt.Printf("--------------------------\n\n")
		}
	}()

	fmt.Println("\n✓ GSU Cloud is running")
	fmt.Printf("✓ HTTP listening on port %d\n", cfg.HTTP.Port)
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	if err := a.Close(); err != nil {
		log.Printf("Shutdown: %v", err)
	}
}
