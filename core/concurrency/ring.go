// File: core/concurrency/ring.go
// Package concurrency implements the lock-free execution core.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Ring is a bounded MPMC ring buffer using per-slot sequence numbers,
// the pattern by Dmitry Vyukov. Head, tail and each slot carry cache-line
// padding so producers and consumers never invalidate each other's lines.

package concurrency

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/momentics/taskring/api"
)

// Ensure compile-time interface compliance.
var _ api.Ring[any] = (*Ring[any])(nil)

// slot is one cell of the ring.
//
// The sequence encodes slot state relative to head/tail:
// sequence == pos means empty and producible at the current round,
// sequence == pos+1 means full and consumable.
type slot[T any] struct {
	sequence atomic.Uint64
	item     T
	_        cpu.CacheLinePad
}

// Ring is a bounded MPMC ring buffer. Safe for any mix of
// concurrent producers and consumers. Never blocks.
type Ring[T any] struct {
	mask  uint64
	slots []slot[T]
	_     cpu.CacheLinePad
	head  atomic.Uint64
	_     cpu.CacheLinePad
	tail  atomic.Uint64
	_     cpu.CacheLinePad
}

// NewRing allocates a ring buffer. Capacity is rounded up to the next
// power of two, minimum 2. Storage is pre-allocated; the ring itself
// cannot fail after construction.
func NewRing[T any](capacity int) *Ring[T] {
	size := 2
	for size < capacity {
		size <<= 1
	}
	r := &Ring[T]{
		mask:  uint64(size - 1),
		slots: make([]slot[T], size),
	}
	for i := range r.slots {
		r.slots[i].sequence.Store(uint64(i))
	}
	return r
}

// TryEnqueue commits item into the ring. Returns false when full;
// the item stays with the caller (backpressure).
func (r *Ring[T]) TryEnqueue(item T) bool {
	for {
		tail := r.tail.Load()
		s := &r.slots[tail&r.mask]
		seq := s.sequence.Load()
		diff := int64(seq) - int64(tail)

		switch {
		case diff == 0:
			// Slot producible. Claim the position.
			if r.tail.CompareAndSwap(tail, tail+1) {
				s.item = item
				// Publishes the item: the sequence store pairs with the
				// consumer's sequence load, ordering the item write first.
				s.sequence.Store(tail + 1)
				return true
			}
		case diff < 0:
			return false // full
		default:
			// Another producer advanced tail; reload and retry.
		}
	}
}

// TryDequeue removes the oldest consumable item. Returns false when empty.
func (r *Ring[T]) TryDequeue() (T, bool) {
	for {
		head := r.head.Load()
		s := &r.slots[head&r.mask]
		seq := s.sequence.Load()
		diff := int64(seq) - int64(head+1)

		switch {
		case diff == 0:
			if r.head.CompareAndSwap(head, head+1) {
				item := s.item
				var zero T
				s.item = zero // release captures to the GC
				// Republish the slot for round k+1.
				s.sequence.Store(head + r.mask + 1)
				return item, true
			}
		case diff < 0:
			var zero T
			return zero, false // empty
		default:
			// Another consumer advanced head; reload and retry.
		}
	}
}

// Size returns an approximate item count. Head and tail may move between
// the two loads, so this is a non-linearizable snapshot for monitoring.
func (r *Ring[T]) Size() uint64 {
	head := r.head.Load()
	tail := r.tail.Load()
	if tail > head {
		return tail - head
	}
	return 0
}

// Empty reports whether the ring currently holds no items.
func (r *Ring[T]) Empty() bool {
	return r.Size() == 0
}

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int {
	return len(r.slots)
}
