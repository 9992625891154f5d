package alarming

import (
	"sync"
	"time"
)

// HotspotState is the alarm state of one turbine
type HotspotState struct {
	Status          string    `json:"status"` // CLEAR, PENDING_HOTSPOT, HOTSPOT
	BreachStartTime time.Time `json:"breach_start_time"`
	LastChecked     time.Time `json:"last_checked"`
	BreachValue     float64   `json:"breach_value"`
	HotCaptures     int       `json:"hot_captures"`
	AlertID         string    `json:"alert_id,omitempty"`
}

const (
	HotspotStateClear   = "CLEAR"
	HotspotStatePending = "PENDING_HOTSPOT"
	HotspotStateActive  = "HOTSPOT"
)

// StateManager keeps hotspot states in memory, keyed by turbine token
type StateManager struct {
	states map[string]HotspotState
	mu     sync.RWMutex
}

// NewStateManager creates an empty state manager
func NewStateManager() *StateManager {
	return &StateManager{states: make(map[string]HotspotState)}
}

// GetState returns the state for a turbine; unknown turbines are CLEAR
func (sm *StateManager) GetState(token string) HotspotState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if state, ok := sm.states[token]; ok {
		return state
	}
	return HotspotState{Status: HotspotStateClear}
}

// SetState saves the state for a turbine
func (sm *StateManager) SetState(token string, state HotspotState) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.states[token] = state
}

// DeleteState returns a turbine to CLEAR
func (sm *StateManager) DeleteState(token string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.states, token)
}

// GetAllStates returns every non-clear state
func (sm *StateManager) GetAllStates() map[string]HotspotState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	states := make(map[string]HotspotState, len(sm.states))
	for token, state := range sm.states {
		states[token] = state
	}
	return states
}
