// Package analysis runs capture decoding and reduction on a bounded pool of
// workers so large arrays are not processed on request goroutines.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gsu-cloud/turbine-cloud/internal/matrix"
)

// ErrPoolStopped is returned for work submitted after Stop.
var ErrPoolStopped = errors.New("analysis: pool stopped")

// Result is a decoded capture and its summary.
type Result struct {
	Grid  *matrix.Grid
	Stats matrix.Stats
}

// job is one capture waiting for a worker
type job struct {
	data     []byte
	enqueued time.Time
	reply    chan reply
}

type reply struct {
	result *Result
	err    error
}

// Pool is a fixed set of workers fed by a bounded job queue.
type Pool struct {
	jobQueue    chan *job
	workerCount int

	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once

	mu        sync.Mutex
	processed uint64
	failed    uint64
}

// NewPool creates a pool. Non-positive sizes select the defaults.
func NewPool(workerCount, queueSize int) *Pool {
	if workerCount <= 0 {
		workerCount = 4
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Pool{
		jobQueue:    make(chan *job, queueSize),
		workerCount: workerCount,
		stopCh:      make(chan struct{}),
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	log.Printf("Analysis pool started with %d workers", p.workerCount)
}

// Stop signals the workers to exit and waits for them. Pending callers
// receive ErrPoolStopped.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
	p.wg.Wait()
}

// Analyze decodes and reduces data on a worker. It blocks until the result is
// ready, ctx is done, or the pool stops.
func (p *Pool) Analyze(ctx context.Context, data []byte) (*Result, error) {
	j := &job{
		data:     data,
		enqueued: time.Now(),
		reply:    make(chan reply, 1),
	}

	select {
	case p.jobQueue <- j:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.stopCh:
		return nil, ErrPoolStopped
	}

	select {
	case r := <-j.reply:
		return r.result, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.stopCh:
		return nil, ErrPoolStopped
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case j := <-p.jobQueue:
			p.process(id, j)
		case <-p.stopCh:
			return
		}
	}
}

func (p *Pool) process(id int, j *job) {
	result, err := Analyze(j.data)

	p.mu.Lock()
	if err != nil {
		p.failed++
	} else {
		p.processed++
	}
	p.mu.Unlock()

	if wait := time.Since(j.enqueued); wait > time.Second {
		log.Printf("Analysis worker %d: job waited %s in queue", id, wait)
	}

	// reply is buffered, so an abandoned caller never blocks the worker.
	j.reply <- reply{result: result, err: err}
}

// Analyze decodes and reduces data on the calling goroutine.
func Analyze(data []byte) (*Result, error) {
	grid, err := matrix.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode capture: %w", err)
	}
	return &Result{Grid: grid, Stats: matrix.Reduce(grid)}, nil
}

// Stats returns statistics about the pool
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return PoolStats{
		Workers:   p.workerCount,
		Queued:    len(p.jobQueue),
		Processed: p.processed,
		Failed:    p.failed,
	}
}

// PoolStats contains statistics about the pool
type PoolStats struct {
	Workers   int    `json:"workers"`
	Queued    int    `json:"queued"`
	Processed uint64 `json:"processed"`
	Failed    uint64 `json:"failed"`
}
