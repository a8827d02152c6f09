// File: core/concurrency/pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pool drains a bounded MPMC ring with a fixed set of worker goroutines.
// Workers use a hybrid spin-then-yield idle strategy and drain the ring
// completely before exiting on shutdown.

package concurrency

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/momentics/taskring/api"
)

// spinCount is the number of cheap emptiness probes an idle worker makes
// before yielding its timeslice back to the scheduler.
const spinCount = 64

// defaultEnqueueRetries bounds the cooperative yield loop inside Enqueue
// before the full queue is surfaced to the caller as api.ErrQueueFull.
const defaultEnqueueRetries = 1000

var _ api.Pool = (*Pool)(nil)

// Pool is a fixed-size worker pool over a bounded lock-free ring.
//
// The active counter is incremented before a dequeued task executes and
// decremented after. WaitAll polls `ring empty && active == 0`; incrementing
// any later would widen the window where a task has been dequeued but not
// yet counted, letting WaitAll return early.
type Pool struct {
	ring    *Ring[func()]
	retries int
	workers int

	stop      atomic.Bool
	active    atomic.Int64
	enqueued  atomic.Uint64
	completed atomic.Uint64
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewPool starts workers goroutines draining a ring of the given capacity.
// workers must be at least 1.
func NewPool(workers, capacity int, opts ...PoolOption) (*Pool, error) {
	if workers < 1 {
		return nil, api.ErrInvalidWorkerCount
	}
	p := &Pool{
		ring:    NewRing[func()](capacity),
		retries: defaultEnqueueRetries,
		workers: workers,
	}
	for _, o := range opts {
		o(p)
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.workerLoop()
	}
	return p, nil
}

// Enqueue publishes task to the ring. While the ring is full the caller
// yields cooperatively; after the retry budget the full queue is surfaced
// as api.ErrQueueFull so the caller can shed load instead of amplifying
// memory use. Returns api.ErrPoolStopped once shutdown has begun.
func (p *Pool) Enqueue(task func()) error {
	if p.stop.Load() {
		return api.ErrPoolStopped
	}
	for attempt := 0; ; attempt++ {
		if p.ring.TryEnqueue(task) {
			p.enqueued.Add(1)
			return nil
		}
		if p.stop.Load() {
			return api.ErrPoolStopped
		}
		if attempt >= p.retries {
			return api.ErrQueueFull
		}
		runtime.Gosched()
	}
}

// WaitAll blocks until the ring is empty and no task is in flight.
// Spin-poll with yields: WaitAll runs at quiescence points, not hot paths.
func (p *Pool) WaitAll() {
	for !p.ring.Empty() || p.active.Load() > 0 {
		runtime.Gosched()
	}
}

// Close stops intake, lets workers drain every committed task and joins
// them. Committed work is never dropped. Safe to call more than once.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.stop.Store(true)
		p.wg.Wait()
	})
}

// QueueDepth returns the approximate number of queued tasks.
func (p *Pool) QueueDepth() uint64 { return p.ring.Size() }

// ActiveCount returns the number of tasks currently executing.
func (p *Pool) ActiveCount() int64 { return p.active.Load() }

// TotalEnqueued returns the number of tasks accepted by Enqueue.
func (p *Pool) TotalEnqueued() uint64 { return p.enqueued.Load() }

// TotalCompleted returns the number of tasks that finished executing.
func (p *Pool) TotalCompleted() uint64 { return p.completed.Load() }

// ThreadCount returns the number of worker goroutines.
func (p *Pool) ThreadCount() int { return p.workers }

// QueueCapacity returns the ring capacity.
func (p *Pool) QueueCapacity() int { return p.ring.Cap() }

func (p *Pool) workerLoop() {
	defer p.wg.Done()
	for {
		if task, ok := p.ring.TryDequeue(); ok {
			// Increment BEFORE executing, right after the dequeue: WaitAll
			// misses this task only in the gap between the two steps.
			p.active.Add(1)
			p.safeExecute(task)
			p.active.Add(-1)
			p.completed.Add(1)
			continue
		}

		if p.stop.Load() && p.ring.Empty() {
			return
		}

		// Spin briefly with cheap emptiness probes, then yield.
		for i := 0; i < spinCount; i++ {
			if !p.ring.Empty() {
				break
			}
		}
		runtime.Gosched()
	}
}

// safeExecute isolates worker goroutines from panicking tasks.
// Result delivery and failure capture belong to the task wrapper.
func (p *Pool) safeExecute(task func()) {
	defer func() { _ = recover() }()
	task()
}
