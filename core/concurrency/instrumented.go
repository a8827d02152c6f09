// File: core/concurrency/instrumented.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// InstrumentedPool wraps Pool with golden-signal metrics: latency,
// traffic, errors and saturation. Every submitted task is wrapped so
// that its wall-clock latency and success/failure land in the registry.
//
// WaitAll here is two-phase. Phase 1 waits for the inner pool's
// quiescence: ring empty and active == 0. A worker advances the ring head
// before it increments the inner active counter, so in that short window
// phase 1 can unblock while a dequeued task has yet to run. Phase 2 spins
// until completed+failed == submitted, which is the only signal that
// every wrapper has fully finished.

package concurrency

import (
	"runtime"
	"time"

	"github.com/momentics/taskring/core/metrics"
)

// InstrumentedPool has the same surface as Pool plus metric getters.
type InstrumentedPool struct {
	pool     *Pool
	registry *metrics.Registry

	tasksSubmitted *metrics.Counter
	tasksCompleted *metrics.Counter
	tasksFailed    *metrics.Counter
	queueDepth     *metrics.Gauge
	activeWorkers  *metrics.Gauge
	threadCount    *metrics.Gauge
	taskLatency    *metrics.Histogram
}

// NewInstrumentedPool builds a pool of workers goroutines over a ring of
// the given capacity and registers its metrics into registry. A nil
// registry gets a private one, reachable via Registry().
func NewInstrumentedPool(workers, capacity int, registry *metrics.Registry, opts ...PoolOption) (*InstrumentedPool, error) {
	pool, err := NewPool(workers, capacity, opts...)
	if err != nil {
		return nil, err
	}
	if registry == nil {
		registry = metrics.NewRegistry()
	}

	ip := &InstrumentedPool{pool: pool, registry: registry}
	ip.tasksSubmitted = registry.NewCounter(
		"tasks_submitted_total",
		"Total number of tasks submitted to the pool")
	ip.tasksCompleted = registry.NewCounter(
		"tasks_completed_total",
		"Total number of tasks that completed successfully")
	ip.tasksFailed = registry.NewCounter(
		"tasks_failed_total",
		"Total number of tasks that returned an error or panicked")
	ip.queueDepth = registry.NewGauge(
		"queue_depth_current",
		"Current number of tasks waiting in the queue")
	ip.activeWorkers = registry.NewGauge(
		"active_workers_current",
		"Current number of workers actively executing tasks")
	ip.threadCount = registry.NewGauge(
		"thread_count",
		"Total number of worker goroutines in the pool")
	ip.threadCount.Set(int64(workers))
	ip.taskLatency = registry.NewHistogram(
		"task_latency_seconds",
		"End-to-end task latency from submission to completion", nil)
	return ip, nil
}

// SubmitInstrumented submits fn through ip, wiring the wrapper that
// feeds the latency histogram and the outcome counters.
//
// The submitted counter is bumped only after the ring accepted the task:
// a rejected submission never ran, and counting it would leave
// WaitAll's phase-2 equality unsatisfiable.
func SubmitInstrumented[R any](ip *InstrumentedPool, fn func() (R, error)) (*Future[R], error) {
	f := newFuture[R]()
	submitTime := time.Now()

	task := func() {
		ip.activeWorkers.Inc()
		ip.queueDepth.Set(int64(ip.pool.QueueDepth()))

		val, err := runProtected(fn)
		f.complete(val, err)

		// Metric updates must commit before the active_workers decrement:
		// WaitAll phase 2 reads these counters as the completion signal.
		ip.taskLatency.ObserveSince(submitTime)
		if err != nil {
			ip.tasksFailed.Inc()
		} else {
			ip.tasksCompleted.Inc()
		}

		ip.activeWorkers.Dec()
		ip.queueDepth.Set(int64(ip.pool.QueueDepth()))
	}

	if err := ip.pool.Enqueue(task); err != nil {
		return nil, err
	}
	ip.tasksSubmitted.Inc()
	ip.queueDepth.Set(int64(ip.pool.QueueDepth()))
	return f, nil
}

// Enqueue submits a result-less task. Failures still land in
// tasks_failed_total, so fire-and-forget callers keep error visibility.
func (ip *InstrumentedPool) Enqueue(fn func() error) error {
	_, err := SubmitInstrumented(ip, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// WaitAll blocks until every submitted task has fully finished,
// including all metric bookkeeping.
func (ip *InstrumentedPool) WaitAll() {
	// Phase 1: inner-pool quiescence — ring drained, no task in flight.
	ip.pool.WaitAll()

	// Phase 2: a task dequeued but not yet counted as active is invisible
	// to phase 1; the outcome counters move only when its wrapper finishes.
	submitted := ip.tasksSubmitted.Get()
	for ip.tasksCompleted.Get()+ip.tasksFailed.Get() < submitted {
		runtime.Gosched()
	}

	ip.queueDepth.Set(0)
	ip.activeWorkers.Set(0)
}

// Close drains and joins the inner pool, then settles the counters the
// same way WaitAll does so post-shutdown reads are consistent.
func (ip *InstrumentedPool) Close() {
	ip.pool.Close()
	submitted := ip.tasksSubmitted.Get()
	for ip.tasksCompleted.Get()+ip.tasksFailed.Get() < submitted {
		runtime.Gosched()
	}
	ip.queueDepth.Set(0)
	ip.activeWorkers.Set(0)
}

// Registry returns the registry holding this pool's metrics.
func (ip *InstrumentedPool) Registry() *metrics.Registry { return ip.registry }

// Submitted returns tasks_submitted_total.
func (ip *InstrumentedPool) Submitted() uint64 { return ip.tasksSubmitted.Get() }

// Completed returns tasks_completed_total.
func (ip *InstrumentedPool) Completed() uint64 { return ip.tasksCompleted.Get() }

// Failed returns tasks_failed_total.
func (ip *InstrumentedPool) Failed() uint64 { return ip.tasksFailed.Get() }

// QueueDepth returns the approximate number of queued tasks.
func (ip *InstrumentedPool) QueueDepth() uint64 { return ip.pool.QueueDepth() }

// ActiveWorkers returns the number of tasks currently executing.
func (ip *InstrumentedPool) ActiveWorkers() int64 { return ip.pool.ActiveCount() }

// ThreadCount returns the number of worker goroutines.
func (ip *InstrumentedPool) ThreadCount() int { return ip.pool.ThreadCount() }

// Latency returns the task latency histogram.
func (ip *InstrumentedPool) Latency() *metrics.Histogram { return ip.taskLatency }
