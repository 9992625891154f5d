package queue

import (
	"context"
	"fmt"
	"log"

	"github.com/gsu-cloud/turbine-cloud/internal/protocol"
)

// AlertPublisher forwards every recorded alert to the alert topic, keyed by
// turbine token so that one turbine's alerts stay ordered.
type AlertPublisher struct {
	producer *Producer
}

func NewAlertPublisher(producer *Producer) *AlertPublisher {
	return &AlertPublisher{producer: producer}
}

// OnAlert publishes the alert. Failures are logged; the alert is already
// recorded locally.
func (a *AlertPublisher) OnAlert(ctx context.Context, rec protocol.AlertRecord) {
	data, err := protocol.EncodeAlertRecord(&rec)
	if err != nil {
		log.Printf("Failed to encode alert %s: %v", rec.ID, err)
		return
	}
	if err := a.producer.Publish(ctx, rec.TurbineToken, data); err != nil {
		log.Printf("Failed to publish alert %s: %v", rec.ID, err)
	}
}

// HotspotPublisher sends hotspot transitions to the hotspot topic.
type HotspotPublisher struct {
	producer *Producer
}

func NewHotspotPublisher(producer *Producer) *HotspotPublisher {
	return &HotspotPublisher{producer: producer}
}

// Notify publishes a hotspot notification.
func (h *HotspotPublisher) Notify(ctx context.Context, n *protocol.HotspotNotification) error {
	data, err := protocol.EncodeHotspotNotification(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	return h.producer.Publish(ctx, n.TurbineToken, data)
}
