package worker

import "errors"

var (
	// ErrPoolClosed is returned when submitting to a pool that is shutting down.
	ErrPoolClosed = errors.New("worker pool closed")
	// ErrQueueFull is returned when the shard queue for a match has no room.
	ErrQueueFull = errors.New("command queue full")
	// ErrHandlerPanic is reported to the submitter when the handler panics.
	ErrHandlerPanic = errors.New("command handler panicked")
)
