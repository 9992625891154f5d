package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gsu-cloud/turbine-cloud/internal/notification"
	"github.com/gsu-cloud/turbine-cloud/internal/protocol"
	"github.com/gsu-cloud/turbine-cloud/internal/queue"
	"github.com/gsu-cloud/turbine-cloud/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if !cfg.Kafka.Enabled() {
		log.Fatalf("KAFKA_BROKERS is not set; the notifier has nothing to consume")
	}

	fmt.Println("Starting Hotspot Notifier...")

	notifier := notification.NewEmailNotifier(&cfg.SMTP)

	// Test SMTP connection (optional, will skip if not configured)
	if err := notifier.TestConnection(context.Background()); err != nil {
		fmt.Printf("Note: %v (notifications will be logged only)\n", err)
	}

	if err := queue.CreateTopic(cfg.Kafka.Brokers, cfg.Kafka.TopicHotspots, 1, 1); err != nil {
		fmt.Printf("Note: Topic creation failed (may already exist): %v\n", err)
	}

	consumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicHotspots, "hotspot-notifier-group")
	defer consumer.Close()
	fmt.Println("Kafka consumer initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Println("\n✓ Hotspot Notifier is running")
	fmt.Println("✓ Press Ctrl+C to stop")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			msg, err := consumer.Consume(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				log.Printf("Failed to consume message: %v\n", err)
				time.Sleep(time.Second)
				continue
			}

			n, err := protocol.DecodeHotspotNotification(msg.Value)
			if err != nil {
				log.Printf("Failed to decode notification: %v\n", err)
				consumer.Commit(ctx, msg)
				continue
			}

			if err := notifier.Notify(ctx, n); err != nil {
				log.Printf("Failed to send notification: %v\n", err)
				// Don't commit on error - retry
				continue
			}

			if err := consumer.Commit(ctx, msg); err != nil {
				log.Printf("Failed to commit offset: %v\n", err)
			}
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
	cancel()
	<-done
	stats := consumer.Stats()
	fmt.Printf("Consumed %d messages\n", stats.Messages)
}
