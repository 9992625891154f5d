// Package heartbeat exchanges a robot's status for the current remote
// configuration.
package heartbeat

import (
	"context"

	"github.com/gsu-cloud/turbine-cloud/internal/protocol"
	"github.com/gsu-cloud/turbine-cloud/internal/state"
)

// Observer sees every accepted heartbeat after it has been stored.
type Observer interface {
	OnHeartbeat(ctx context.Context, status protocol.LiveStatus)
}

// Synchronizer applies heartbeats to the state store.
type Synchronizer struct {
	store     *state.Store
	observers []Observer
}

// NewSynchronizer creates a synchronizer backed by store.
func NewSynchronizer(store *state.Store, observers ...Observer) *Synchronizer {
	return &Synchronizer{store: store, observers: observers}
}

// Apply stores the reported status, stamped and marked online, and returns
// the configuration the robot should run with. The configuration is read
// after the status is stored.
func (s *Synchronizer) Apply(ctx context.Context, status protocol.LiveStatus) protocol.RemoteConfig {
	stored := s.store.SetStatus(status)

	for _, o := range s.observers {
		o.OnHeartbeat(ctx, stored)
	}

	return s.store.Config()
}
