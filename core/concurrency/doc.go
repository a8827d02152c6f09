// File: core/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package concurrency is the execution core: a bounded lock-free MPMC
// ring, a fixed-size worker pool draining it, single-assignment result
// handles and an instrumented pool variant that exports golden-signal
// metrics.
//
// Coordination is atomics-only on the hot path. This package takes no
// mutex of its own; the mutexes it touches live in the metrics layer. Backpressure is explicit: a full ring
// surfaces as api.ErrQueueFull after a bounded retry loop, never as an
// unbounded wait.
package concurrency
