package watchdog

import (
	"container/heap"
	"sync"
	"time"
)

// deadline is a callback scheduled for a point in time
type deadline struct {
	id       string
	expiryAt time.Time
	callback func()
	index    int // index in the heap (for heap.Interface)
}

// deadlineHeap is a min-heap of deadlines ordered by expiryAt
type deadlineHeap []*deadline

func (h deadlineHeap) Len() int { return len(h) }

func (h deadlineHeap) Less(i, j int) bool {
	return h[i].expiryAt.Before(h[j].expiryAt)
}

func (h deadlineHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *deadlineHeap) Push(x interface{}) {
	d := x.(*deadline)
	d.index = len(*h)
	*h = append(*h, d)
}

func (h *deadlineHeap) Pop() interface{} {
	old := *h
	n := len(old)
	d := old[n-1]
	old[n-1] = nil
	d.index = -1
	*h = old[0 : n-1]
	return d
}

// Scheduler runs callbacks at their deadlines. Scheduling an id that is
// already pending replaces the earlier deadline.
type Scheduler struct {
	heap    deadlineHeap
	byID    map[string]*deadline
	mu      sync.Mutex
	wakeup  chan struct{}
	stopped bool
	stopCh  chan struct{}
	fired   uint64
}

// NewScheduler creates a stopped scheduler
func NewScheduler() *Scheduler {
	s := &Scheduler{
		heap:   make(deadlineHeap, 0),
		byID:   make(map[string]*deadline),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
	heap.Init(&s.heap)
	return s
}

// Start launches the scheduling loop
func (s *Scheduler) Start() {
	go s.run()
}

// Stop ends the scheduling loop. Pending deadlines are dropped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stopCh)
	s.mu.Unlock()
}

// Schedule arranges for callback to run at expiryAt
func (s *Scheduler) Schedule(id string, expiryAt time.Time, callback func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSchedulerStopped
	}

	if existing, ok := s.byID[id]; ok {
		heap.Remove(&s.heap, existing.index)
		delete(s.byID, id)
	}

	d := &deadline{id: id, expiryAt: expiryAt, callback: callback}
	heap.Push(&s.heap, d)
	s.byID[id] = d

	// Wake up the loop if this is now the earliest deadline
	if s.heap[0] == d {
		select {
		case s.wakeup <- struct{}{}:
		default:
		}
	}

	return nil
}

// Cancel removes a pending deadline
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.byID[id]
	if !ok {
		return false
	}

	heap.Remove(&s.heap, d.index)
	delete(s.byID, id)
	return true
}

func (s *Scheduler) run() {
	for {
		s.mu.Lock()

		if s.stopped {
			s.mu.Unlock()
			return
		}

		waitDuration := 24 * time.Hour
		if s.heap.Len() > 0 {
			next := s.heap[0]
			waitDuration = time.Until(next.expiryAt)

			if waitDuration <= 0 {
				d := heap.Pop(&s.heap).(*deadline)
				delete(s.byID, d.id)
				s.fired++
				s.mu.Unlock()

				go d.callback()
				continue
			}
		}

		s.mu.Unlock()

		timer := time.NewTimer(waitDuration)
		select {
		case <-timer.C:
		case <-s.wakeup:
			timer.Stop()
		case <-s.stopCh:
			timer.Stop()
			return
		}
	}
}

// Stats returns statistics about the scheduler
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SchedulerStats{
		Pending: len(s.byID),
		Fired:   s.fired,
	}
}

// SchedulerStats contains statistics about the scheduler
type SchedulerStats struct {
	Pending int    `json:"pending"`
	Fired   uint64 `json:"fired"`
}

var (
	ErrSchedulerStopped = &SchedulerError{"watchdog scheduler is stopped"}
)

// SchedulerError represents a scheduler error
type SchedulerError struct {
	msg string
}

func (e *SchedulerError) Error() string {
	return e.msg
}
