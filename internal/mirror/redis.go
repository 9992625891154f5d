// Package mirror copies live status and alerts into Redis for external
// dashboards. The service never reads them back.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gsu-cloud/turbine-cloud/internal/protocol"
)

const (
	liveKeyPrefix = "turbine:live:"
	AlertsKey     = "turbine:alerts"
)

// LiveKey is the key holding the latest status of a turbine.
func LiveKey(token string) string {
	return liveKeyPrefix + token
}

// Mirror writes service state to Redis.
type Mirror struct {
	redis   redis.Cmdable
	ttl     time.Duration
	history int
}

// New creates a mirror. Status keys expire after ttl; the alert list keeps
// the newest history entries.
func New(client redis.Cmdable, ttl time.Duration, history int) *Mirror {
	return &Mirror{redis: client, ttl: ttl, history: history}
}

// Ping checks the connection.
func (m *Mirror) Ping(ctx context.Context) error {
	return m.redis.Ping(ctx).Err()
}

// SaveStatus stores the status under the turbine's live key.
func (m *Mirror) SaveStatus(ctx context.Context, status protocol.LiveStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	if err := m.redis.Set(ctx, LiveKey(status.TurbineToken), data, m.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set status in Redis: %w", err)
	}
	return nil
}

// SaveAlert pushes the alert onto the alert list and trims it in one
// transaction.
func (m *Mirror) SaveAlert(ctx context.Context, rec protocol.AlertRecord) error {
	data, err := protocol.EncodeAlertRecord(&rec)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	_, err = m.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, AlertsKey, data)
		pipe.LTrim(ctx, AlertsKey, 0, int64(m.history-1))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to push alert to Redis: %w", err)
	}
	return nil
}

func (m *Mirror) OnHeartbeat(ctx context.Context, status protocol.LiveStatus) {
	if err := m.SaveStatus(ctx, status); err != nil {
		log.Printf("Mirror: %v", err)
	}
}

func (m *Mirror) OnAlert(ctx context.Context, rec protocol.AlertRecord) {
	if err := m.SaveAlert(ctx, rec); err != nil {
		log.Printf("Mirror: %v", err)
	}
}
