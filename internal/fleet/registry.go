package fleet

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/gsu-cloud/turbine-cloud/internal/protocol"
)

// TurbineInfo holds what the cloud knows about one turbine's robot
type TurbineInfo struct {
	Token      string
	FirstSeen  time.Time
	LastHeard  time.Time
	LastMode   string
	Heartbeats int
	Uploads    int
	mu         sync.RWMutex
}

func (t *TurbineInfo) recordHeartbeat(mode string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.LastHeard = at
	t.LastMode = mode
	t.Heartbeats++
}

func (t *TurbineInfo) recordUpload() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Uploads++
}

// GetLastHeard returns the time of the last heartbeat
func (t *TurbineInfo) GetLastHeard() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.LastHeard
}

func (t *TurbineInfo) summary(online bool) protocol.TurbineSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var lastHeard int64
	if !t.LastHeard.IsZero() {
		lastHeard = t.LastHeard.Unix()
	}
	return protocol.TurbineSummary{
		TurbineToken: t.Token,
		FirstSeen:    t.FirstSeen.Unix(),
		LastHeard:    lastHeard,
		LastMode:     t.LastMode,
		Heartbeats:   t.Heartbeats,
		Uploads:      t.Uploads,
		IsOnline:     online,
	}
}

// Registry tracks every turbine that has reported since startup
type Registry struct {
	turbines    map[string]*TurbineInfo
	mu          sync.RWMutex
	maxTurbines int
	staleAfter  time.Duration
	now         func() time.Time
}

// NewRegistry creates a registry that remembers at most maxTurbines tokens.
// A turbine is online while its last heartbeat is within staleAfter.
func NewRegistry(maxTurbines int, staleAfter time.Duration) *Registry {
	return &Registry{
		turbines:    make(map[string]*TurbineInfo),
		maxTurbines: maxTurbines,
		staleAfter:  staleAfter,
		now:         time.Now,
	}
}

// SetClock replaces time.Now. Only meant to be called before use.
func (r *Registry) SetClock(now func() time.Time) {
	r.now = now
}

func (r *Registry) getOrCreate(token string, at time.Time) (*TurbineInfo, error) {
	r.mu.RLock()
	info, exists := r.turbines[token]
	r.mu.RUnlock()
	if exists {
		return info, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check after acquiring the write lock
	if info, exists := r.turbines[token]; exists {
		return info, nil
	}
	if len(r.turbines) >= r.maxTurbines {
		return nil, ErrMaxTurbinesReached
	}

	info = &TurbineInfo{Token: token, FirstSeen: at}
	r.turbines[token] = info
	return info, nil
}

// RecordHeartbeat notes a heartbeat from token at the given time
func (r *Registry) RecordHeartbeat(token, mode string, at time.Time) error {
	info, err := r.getOrCreate(token, at)
	if err != nil {
		return err
	}
	info.recordHeartbeat(mode, at)
	return nil
}

// RecordUpload notes a stored capture from token
func (r *Registry) RecordUpload(token string, at time.Time) error {
	info, err := r.getOrCreate(token, at)
	if err != nil {
		return err
	}
	info.recordUpload()
	return nil
}

// OnHeartbeat feeds the registry from the heartbeat synchronizer
func (r *Registry) OnHeartbeat(_ context.Context, status protocol.LiveStatus) {
	if status.TurbineToken == "" {
		return
	}
	if err := r.RecordHeartbeat(status.TurbineToken, status.Mode, time.Unix(status.LastUpdate, 0)); err != nil {
		log.Printf("Fleet: not tracking %s: %v", status.TurbineToken, err)
	}
}

// OnAlert feeds the registry from the ingest pipeline
func (r *Registry) OnAlert(_ context.Context, rec protocol.AlertRecord) {
	if err := r.RecordUpload(rec.TurbineToken, time.Unix(rec.Timestamp, 0)); err != nil {
		log.Printf("Fleet: not tracking %s: %v", rec.TurbineToken, err)
	}
}

func (r *Registry) online(lastHeard time.Time) bool {
	return !lastHeard.IsZero() && !r.olderThan(lastHeard, r.staleAfter)
}

// olderThan compares at whole-second resolution, the resolution of heartbeat
// and upload stamps.
func (r *Registry) olderThan(at time.Time, d time.Duration) bool {
	return r.now().Truncate(time.Second).Sub(at.Truncate(time.Second)) > d
}

// Get returns the summary for one turbine
func (r *Registry) Get(token string) (protocol.TurbineSummary, bool) {
	r.mu.RLock()
	info, exists := r.turbines[token]
	r.mu.RUnlock()

	if !exists {
		return protocol.TurbineSummary{}, false
	}
	return info.summary(r.online(info.GetLastHeard())), true
}

// List returns every known turbine ordered by token
func (r *Registry) List() []protocol.TurbineSummary {
	r.mu.RLock()
	infos := make([]*TurbineInfo, 0, len(r.turbines))
	for _, info := range r.turbines {
		infos = append(infos, info)
	}
	r.mu.RUnlock()

	result := make([]protocol.TurbineSummary, 0, len(infos))
	for _, info := range infos {
		result = append(result, info.summary(r.online(info.GetLastHeard())))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].TurbineToken < result[j].TurbineToken
	})
	return result
}

// Inactive returns the tokens whose last heartbeat is older than timeout,
// including turbines that only ever uploaded
func (r *Registry) Inactive(timeout time.Duration) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var inactive []string
	for token, info := range r.turbines {
		lastHeard := info.GetLastHeard()
		if lastHeard.IsZero() || r.olderThan(lastHeard, timeout) {
			inactive = append(inactive, token)
		}
	}
	sort.Strings(inactive)
	return inactive
}

// Count returns the number of known turbines
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.turbines)
}

// Stats returns statistics about the registry
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	infos := make([]*TurbineInfo, 0, len(r.turbines))
	for _, info := range r.turbines {
		infos = append(infos, info)
	}
	r.mu.RUnlock()

	stats := RegistryStats{Turbines: len(infos), MaxTurbines: r.maxTurbines}
	for _, info := range infos {
		if r.online(info.GetLastHeard()) {
			stats.Online++
		}
	}
	return stats
}

// RegistryStats contains statistics about the registry
type RegistryStats struct {
	Turbines    int `json:"turbines"`
	Online      int `json:"online"`
	MaxTurbines int `json:"max_turbines"`
}

var (
	ErrMaxTurbinesReached = &FleetError{"maximum tracked turbines reached"}
)

// FleetError represents a fleet registry error
type FleetError struct {
	msg string
}

func (e *FleetError) Error() string {
	return e.msg
}
