// Package state holds the live robot status and the remote configuration.
//
// Both values live only in memory. Each is guarded by its own RWMutex and no
// method ever holds both locks.
package state

import (
	"sync"
	"time"

	"github.com/gsu-cloud/turbine-cloud/internal/protocol"
)

// DefaultStaleAfter is the staleness window after which a robot that has not
// sent a heartbeat is reported offline.
const DefaultStaleAfter = 5 * time.Second

// Store is the shared state of the service.
type Store struct {
	configMu sync.RWMutex
	config   protocol.RemoteConfig

	statusMu sync.RWMutex
	status   protocol.LiveStatus

	staleAfter time.Duration
	now        func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithStaleAfter sets the staleness window.
func WithStaleAfter(d time.Duration) Option {
	return func(s *Store) { s.staleAfter = d }
}

// NewStore creates a store holding the given initial configuration. The
// status starts empty and is therefore reported as lost until the first
// heartbeat.
func NewStore(initial protocol.RemoteConfig, opts ...Option) *Store {
	s := &Store{
		config: initial.Clone(),
		status: protocol.LiveStatus{
			Mode: protocol.ModeIdle,
		},
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns a snapshot of the current configuration.
func (s *Store) Config() protocol.RemoteConfig {
	s.configMu.RLock()
	defer s.configMu.RUnlock()
	return s.config.Clone()
}

// SetConfig replaces the whole configuration. Values are not validated.
func (s *Store) SetConfig(cfg protocol.RemoteConfig) {
	cfg = cfg.Clone()

	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config = cfg
}

// Status returns the last reported status. When the last heartbeat is older
// than the staleness window the copy is marked offline; the stored record is
// left as it is.
func (s *Store) Status() protocol.LiveStatus {
	s.statusMu.RLock()
	status := s.status
	s.statusMu.RUnlock()

	if s.isStale(status.LastUpdate) {
		status.IsOnline = false
		status.Mode = protocol.ModeLostConnection
	}
	return status
}

// SetStatus replaces the status with the reported one, stamps it with the
// current time and marks it online. The stored value is returned.
func (s *Store) SetStatus(status protocol.LiveStatus) protocol.LiveStatus {
	status.LastUpdate = s.now().Unix()
	status.IsOnline = true

	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status = status
	return status
}

// StaleAfter returns the configured staleness window.
func (s *Store) StaleAfter() time.Duration {
	return s.staleAfter
}

// isStale reports whether a heartbeat stamped at lastUpdate is outside the
// staleness window. Stamps have whole-second resolution, so the clock is read
// at the same resolution.
func (s *Store) isStale(lastUpdate int64) bool {
	elapsed := s.now().Truncate(time.Second).Sub(time.Unix(lastUpdate, 0))
	return elapsed > s.staleAfter
}
