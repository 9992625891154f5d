package alerts

import (
	"sync"

	"github.com/gsu-cloud/turbine-cloud/internal/protocol"
)

// DefaultCapacity is the number of alerts kept in history.
const DefaultCapacity = 50

// Ring is a bounded, newest-first history of alert records. Inserting into a
// full ring overwrites the oldest record in the same critical section, so the
// length never exceeds the capacity.
type Ring struct {
	mu       sync.RWMutex
	buffer   []protocol.AlertRecord
	head     int // index of the next write
	size     int
	capacity int
}

// NewRing creates a ring holding at most capacity records. A non-positive
// capacity selects DefaultCapacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{
		buffer:   make([]protocol.AlertRecord, capacity),
		capacity: capacity,
	}
}

// Push inserts rec as the newest record, evicting the oldest when full.
func (r *Ring) Push(rec protocol.AlertRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buffer[r.head] = rec
	r.head = (r.head + 1) % r.capacity
	if r.size < r.capacity {
		r.size++
	}
}

// List returns a copy of the history, newest first.
func (r *Ring) List() []protocol.AlertRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]protocol.AlertRecord, r.size)
	for i := 0; i < r.size; i++ {
		idx := (r.head - 1 - i + r.capacity) % r.capacity
		result[i] = r.buffer[idx]
	}
	return result
}

// Len returns the number of records held.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Cap returns the maximum number of records held.
func (r *Ring) Cap() int {
	return r.capacity
}
