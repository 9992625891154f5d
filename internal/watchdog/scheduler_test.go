package watchdog

import (
	"sync"
	"testing"
	"time"
)

func TestScheduler_Schedule(t *testing.T) {
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	executed := false
	var mu sync.Mutex

	err := s.Schedule("test1", time.Now().Add(100*time.Millisecond), func() {
		mu.Lock()
		executed = true
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	if !executed {
		t.Error("Callback was not executed")
	}
	mu.Unlock()
}

func TestScheduler_Cancel(t *testing.T) {
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	executed := false
	var mu sync.Mutex

	s.Schedule("test1", time.Now().Add(100*time.Millisecond), func() {
		mu.Lock()
		executed = true
		mu.Unlock()
	})

	if !s.Cancel("test1") {
		t.Error("Cancel returned false")
	}
	if s.Cancel("test1") {
		t.Error("Second cancel returned true")
	}

	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	if executed {
		t.Error("Callback was executed despite being cancelled")
	}
	mu.Unlock()
}

func TestScheduler_Ordering(t *testing.T) {
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	var results []int
	var mu sync.Mutex
	record := func(n int) func() {
		return func() {
			mu.Lock()
			results = append(results, n)
			mu.Unlock()
		}
	}

	s.Schedule("task3", time.Now().Add(150*time.Millisecond), record(3))
	s.Schedule("task1", time.Now().Add(50*time.Millisecond), record(1))
	s.Schedule("task2", time.Now().Add(100*time.Millisecond), record(2))

	time.Sleep(250 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if results[0] != 1 || results[1] != 2 || results[2] != 3 {
		t.Errorf("Callbacks executed in wrong order: %v", results)
	}
}

func TestScheduler_RescheduleReplaces(t *testing.T) {
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	count := 0
	var mu sync.Mutex

	s.Schedule("test1", time.Now().Add(100*time.Millisecond), func() {
		mu.Lock()
		count++
		mu.Unlock()
	})
	s.Schedule("test1", time.Now().Add(50*time.Millisecond), func() {
		mu.Lock()
		count += 10
		mu.Unlock()
	})

	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	if count != 10 {
		t.Errorf("Expected count=10 (only second callback), got %d", count)
	}
	mu.Unlock()
}

func TestScheduler_Stats(t *testing.T) {
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	s.Schedule("task1", time.Now().Add(time.Hour), func() {})
	s.Schedule("task2", time.Now().Add(2*time.Hour), func() {})
	s.Schedule("task3", time.Now().Add(-time.Second), func() {})

	time.Sleep(50 * time.Millisecond)

	stats := s.Stats()
	if stats.Pending != 2 {
		t.Errorf("Expected 2 pending deadlines, got %d", stats.Pending)
	}
	if stats.Fired != 1 {
		t.Errorf("Expected 1 fired deadline, got %d", stats.Fired)
	}
}

func TestScheduler_ScheduleAfterStop(t *testing.T) {
	s := NewScheduler()
	s.Start()
	s.Stop()
	s.Stop()

	if err := s.Schedule("late", time.Now(), func() {}); err != ErrSchedulerStopped {
		t.Errorf("Expected ErrSchedulerStopped, got %v", err)
	}
}
