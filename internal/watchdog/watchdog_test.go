package watchdog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gsu-cloud/turbine-cloud/internal/protocol"
	"github.com/gsu-cloud/turbine-cloud/internal/state"
)

type lostRecorder struct {
	mu   sync.Mutex
	lost []protocol.LiveStatus
}

func (r *lostRecorder) OnLost(status protocol.LiveStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lost = append(r.lost, status)
}

func (r *lostRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lost)
}

// fixedStatus always reports the same derived status.
func fixedStatus(s protocol.LiveStatus) func() protocol.LiveStatus {
	return func() protocol.LiveStatus { return s }
}

func newTestWatchdog(status func() protocol.LiveStatus, rec *lostRecorder) (*Watchdog, *Scheduler) {
	timers := NewScheduler()
	timers.Start()
	w := New(timers, status, 50*time.Millisecond, rec)
	w.grace = 0
	return w, timers
}

func TestWatchdog_ReportsLostRobot(t *testing.T) {
	rec := &lostRecorder{}
	w, timers := newTestWatchdog(fixedStatus(protocol.LiveStatus{
		TurbineToken: "T1",
		Mode:         protocol.ModeLostConnection,
	}), rec)
	defer timers.Stop()

	w.OnHeartbeat(context.Background(), protocol.LiveStatus{TurbineToken: "T1", LastUpdate: time.Now().Unix()})

	time.Sleep(200 * time.Millisecond)

	if rec.count() != 1 {
		t.Fatalf("Expected 1 lost event, got %d", rec.count())
	}
	if rec.lost[0].Mode != protocol.ModeLostConnection {
		t.Errorf("Expected mode %q, got %q", protocol.ModeLostConnection, rec.lost[0].Mode)
	}
}

func TestWatchdog_IgnoresOnlineRobot(t *testing.T) {
	rec := &lostRecorder{}
	w, timers := newTestWatchdog(fixedStatus(protocol.LiveStatus{TurbineToken: "T1", IsOnline: true}), rec)
	defer timers.Stop()

	w.OnHeartbeat(context.Background(), protocol.LiveStatus{TurbineToken: "T1", LastUpdate: time.Now().Add(-time.Second).Unix()})

	time.Sleep(200 * time.Millisecond)

	if rec.count() != 0 {
		t.Errorf("Expected no lost events, got %d", rec.count())
	}
}

func TestWatchdog_IgnoresOtherTurbine(t *testing.T) {
	rec := &lostRecorder{}
	w, timers := newTestWatchdog(fixedStatus(protocol.LiveStatus{TurbineToken: "T2"}), rec)
	defer timers.Stop()

	w.OnHeartbeat(context.Background(), protocol.LiveStatus{TurbineToken: "T1", LastUpdate: time.Now().Add(-time.Second).Unix()})

	time.Sleep(200 * time.Millisecond)

	if rec.count() != 0 {
		t.Errorf("Expected no lost events, got %d", rec.count())
	}
}

func TestWatchdog_RearmedByHeartbeat(t *testing.T) {
	rec := &lostRecorder{}
	w, timers := newTestWatchdog(fixedStatus(protocol.LiveStatus{TurbineToken: "T1"}), rec)
	defer timers.Stop()
	ctx := context.Background()

	// First deadline far in the future, then replaced by an already expired one.
	w.OnHeartbeat(ctx, protocol.LiveStatus{TurbineToken: "T1", LastUpdate: time.Now().Add(time.Hour).Unix()})
	if timers.Stats().Pending != 1 {
		t.Fatalf("Expected 1 pending deadline, got %d", timers.Stats().Pending)
	}
	w.OnHeartbeat(ctx, protocol.LiveStatus{TurbineToken: "T1", LastUpdate: time.Now().Add(-time.Second).Unix()})

	time.Sleep(200 * time.Millisecond)

	if rec.count() != 1 {
		t.Errorf("Expected 1 lost event, got %d", rec.count())
	}
	if timers.Stats().Pending != 0 {
		t.Errorf("Expected no pending deadlines, got %d", timers.Stats().Pending)
	}
}

func TestWatchdog_WithStateStore(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	store := state.NewStore(protocol.RemoteConfig{}, state.WithClock(clock), state.WithStaleAfter(5*time.Second))

	rec := &lostRecorder{}
	w, timers := newTestWatchdog(store.Status, rec)
	defer timers.Stop()

	stored := store.SetStatus(protocol.LiveStatus{TurbineToken: "T1", Mode: "Scanning"})

	// The store clock moves past the window; the deadline itself is in the past.
	mu.Lock()
	now = now.Add(10 * time.Second)
	mu.Unlock()
	w.OnHeartbeat(context.Background(), stored)

	time.Sleep(200 * time.Millisecond)

	if rec.count() != 1 {
		t.Fatalf("Expected 1 lost event, got %d", rec.count())
	}
	if rec.lost[0].IsOnline {
		t.Error("Expected lost status to be offline")
	}
}
