// Package alarming tracks turbines whose captures run hotter than the
// configured trigger.
package alarming

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gsu-cloud/turbine-cloud/internal/protocol"
)

// Notifier delivers hotspot transitions
type Notifier interface {
	Notify(ctx context.Context, n *protocol.HotspotNotification) error
}

// Evaluator compares every new alert with the remote configuration and
// manages the per-turbine hotspot state
type Evaluator struct {
	stateManager *StateManager
	config       func() protocol.RemoteConfig
	notifiers    []Notifier
	// confirmCaptures is the number of consecutive hot captures needed
	// before a hotspot is raised
	confirmCaptures int
	now             func() time.Time
	mu              sync.Mutex
}

// NewEvaluator creates a hotspot evaluator. config returns the current
// remote configuration.
func NewEvaluator(stateManager *StateManager, config func() protocol.RemoteConfig, confirmCaptures int, notifiers ...Notifier) *Evaluator {
	if confirmCaptures < 1 {
		confirmCaptures = 1
	}
	return &Evaluator{
		stateManager:    stateManager,
		config:          config,
		notifiers:       notifiers,
		confirmCaptures: confirmCaptures,
		now:             time.Now,
	}
}

// OnAlert evaluates a freshly recorded alert
func (e *Evaluator) OnAlert(ctx context.Context, rec protocol.AlertRecord) {
	if err := e.Evaluate(ctx, rec); err != nil {
		log.Printf("Hotspot evaluation for %s failed: %v", rec.TurbineToken, err)
	}
}

// Evaluate moves the turbine's state according to the alert
func (e *Evaluator) Evaluate(ctx context.Context, rec protocol.AlertRecord) error {
	cfg := e.config()
	breached := cfg.SystemEnabled && rec.MaxTemp > cfg.MaxTempTrigger

	e.mu.Lock()
	state := e.stateManager.GetState(rec.TurbineToken)
	now := e.now()

	var notification *protocol.HotspotNotification
	if breached {
		notification = e.handleBreach(rec, cfg, state, now)
	} else {
		notification = e.handleNoBreach(rec, cfg, state)
	}
	e.mu.Unlock()

	if notification == nil {
		return nil
	}
	return e.sendNotification(ctx, notification)
}

func (e *Evaluator) handleBreach(rec protocol.AlertRecord, cfg protocol.RemoteConfig, state HotspotState, now time.Time) *protocol.HotspotNotification {
	switch state.Status {
	case HotspotStateClear:
		state = HotspotState{
			Status:          HotspotStatePending,
			BreachStartTime: now,
		}
		fallthrough

	case HotspotStatePending:
		state.HotCaptures++
		state.LastChecked = now
		state.BreachValue = rec.MaxTemp

		if state.HotCaptures >= e.confirmCaptures {
			return e.triggerHotspot(rec, cfg, state)
		}
		e.stateManager.SetState(rec.TurbineToken, state)

	case HotspotStateActive:
		state.HotCaptures++
		state.LastChecked = now
		if rec.MaxTemp > state.BreachValue {
			state.BreachValue = rec.MaxTemp
		}
		e.stateManager.SetState(rec.TurbineToken, state)
	}

	return nil
}

func (e *Evaluator) handleNoBreach(rec protocol.AlertRecord, cfg protocol.RemoteConfig, state HotspotState) *protocol.HotspotNotification {
	switch state.Status {
	case HotspotStatePending:
		// Cooled down before the hotspot was confirmed
		e.stateManager.DeleteState(rec.TurbineToken)

	case HotspotStateActive:
		return e.clearHotspot(rec, cfg, state)
	}

	return nil
}

func (e *Evaluator) triggerHotspot(rec protocol.AlertRecord, cfg protocol.RemoteConfig, state HotspotState) *protocol.HotspotNotification {
	log.Printf("HOTSPOT TRIGGERED: turbine=%s max_temp=%.2f trigger=%.2f angle=%.1f file=%s",
		rec.TurbineToken, rec.MaxTemp, cfg.MaxTempTrigger, rec.Angle, rec.DatasetPath)

	state.Status = HotspotStateActive
	state.AlertID = rec.ID
	e.stateManager.SetState(rec.TurbineToken, state)

	return &protocol.HotspotNotification{
		Type:         protocol.HotspotTypeTriggered,
		TurbineToken: rec.TurbineToken,
		MaxTemp:      rec.MaxTemp,
		Trigger:      cfg.MaxTempTrigger,
		Angle:        rec.Angle,
		DatasetPath:  rec.DatasetPath,
		AlertID:      rec.ID,
		StartTime:    state.BreachStartTime,
	}
}

func (e *Evaluator) clearHotspot(rec protocol.AlertRecord, cfg protocol.RemoteConfig, state HotspotState) *protocol.HotspotNotification {
	log.Printf("HOTSPOT CLEARED: turbine=%s max_temp=%.2f trigger=%.2f",
		rec.TurbineToken, rec.MaxTemp, cfg.MaxTempTrigger)

	e.stateManager.DeleteState(rec.TurbineToken)

	return &protocol.HotspotNotification{
		Type:         protocol.HotspotTypeCleared,
		TurbineToken: rec.TurbineToken,
		MaxTemp:      rec.MaxTemp,
		Trigger:      cfg.MaxTempTrigger,
		Angle:        rec.Angle,
		DatasetPath:  rec.DatasetPath,
		AlertID:      state.AlertID,
		StartTime:    state.BreachStartTime,
	}
}

// sendNotification tries every notifier and returns the first error
func (e *Evaluator) sendNotification(ctx context.Context, n *protocol.HotspotNotification) error {
	var firstErr error
	for _, notifier := range e.notifiers {
		if err := notifier.Notify(ctx, n); err != nil {
			log.Printf("Hotspot notifier failed: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
