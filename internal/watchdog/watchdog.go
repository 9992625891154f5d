// Package watchdog notices robots that stop sending heartbeats.
package watchdog

import (
	"context"
	"log"
	"time"

	"github.com/gsu-cloud/turbine-cloud/internal/protocol"
)

// LostHandler is told when a robot's heartbeat goes stale.
type LostHandler interface {
	OnLost(status protocol.LiveStatus)
}

// Watchdog arms one deadline per turbine token on every heartbeat. When a
// deadline fires and the derived status for that token is offline, the lost
// handlers are called with it.
type Watchdog struct {
	timers     *Scheduler
	status     func() protocol.LiveStatus
	staleAfter time.Duration
	// grace covers the whole-second resolution of heartbeat stamps.
	grace    time.Duration
	handlers []LostHandler
}

// New creates a watchdog. status returns the derived live status.
func New(timers *Scheduler, status func() protocol.LiveStatus, staleAfter time.Duration, handlers ...LostHandler) *Watchdog {
	return &Watchdog{
		timers:     timers,
		status:     status,
		staleAfter: staleAfter,
		grace:      time.Second,
		handlers:   handlers,
	}
}

// OnHeartbeat re-arms the deadline for the reporting turbine.
func (w *Watchdog) OnHeartbeat(_ context.Context, status protocol.LiveStatus) {
	token := status.TurbineToken
	expiry := time.Unix(status.LastUpdate, 0).Add(w.staleAfter + w.grace)

	if err := w.timers.Schedule(token, expiry, func() { w.check(token) }); err != nil {
		log.Printf("Watchdog: could not arm deadline for %q: %v", token, err)
	}
}

func (w *Watchdog) check(token string) {
	status := w.status()
	if status.IsOnline || status.TurbineToken != token {
		return
	}

	log.Printf("Robot %q lost: no heartbeat since %s", token, time.Unix(status.LastUpdate, 0).Format(time.RFC3339))
	for _, h := range w.handlers {
		h.OnLost(status)
	}
}
