// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error values shared across the library.

package api

import "errors"

// Errors surfaced by the execution core.
var (
	// ErrQueueFull reports that an enqueue could not place its task
	// within the retry budget. Backpressure: the caller sheds load.
	ErrQueueFull = errors.New("task queue full")

	// ErrPoolStopped reports an enqueue after shutdown has begun.
	ErrPoolStopped = errors.New("pool stopped")

	// ErrInvalidWorkerCount rejects pool construction with zero workers.
	ErrInvalidWorkerCount = errors.New("worker count must be at least 1")
)

// Errors surfaced by the network collaborators.
var (
	ErrClientClosed    = errors.New("client is closed")
	ErrServerRunning   = errors.New("server already running")
	ErrPayloadTooLarge = errors.New("payload exceeds maximum allowed size")
)
