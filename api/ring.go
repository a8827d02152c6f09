// Package api
// Author: momentics@gmail.com
//
// Bounded lock-free ring buffer contract shared by the pool and its tests.

package api

// Ring is a bounded MPMC ring buffer contract.
type Ring[T any] interface {
	// TryEnqueue adds an item, returns false if full.
	// On false the item was not committed and stays with the caller.
	TryEnqueue(item T) bool
	// TryDequeue removes the oldest consumable item, returns false if empty.
	TryDequeue() (T, bool)
	// Size returns an approximate number of items. Monitoring only.
	Size() uint64
	// Cap returns the fixed buffer capacity.
	Cap() int
}
