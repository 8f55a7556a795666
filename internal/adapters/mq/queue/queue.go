// Package queue holds the bounded command queues that feed the match executors.
package queue

import (
	"context"
	"sync"

	"github.com/okian/takraw/internal/domain/model"
	"github.com/okian/takraw/pkg/metrics"
)

// Default queue configuration constants.
const defaultQueueCapacity = 1024

// Command is the payload flowing through the queue.
type Command = model.Command

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a command. It returns false when the queue is full, closed,
	// or ctx is already done.
	Enqueue(ctx context.Context, c Command) bool

	// Dequeue returns the channel commands arrive on. It is closed by Close.
	Dequeue() <-chan Command

	// Len returns the current number of queued commands.
	Len() int

	// Close stops accepting commands and closes the dequeue channel.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	commands chan Command
	capacity int
	shard    int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.commands = make(chan Command, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(q.shard, 0)
	return q
}

// Enqueue adds a command to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, c Command) bool { //nolint:gocritic // hugeParam: Command is passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueRejected("closed")
		return false
	}
	if ctx.Err() != nil {
		metrics.RecordQueueRejected("context_cancelled")
		return false
	}

	select {
	case q.commands <- c:
		metrics.UpdateQueueSize(q.shard, len(q.commands))
		return true
	default:
		metrics.RecordQueueRejected("full")
		return false
	}
}

// Dequeue returns the receive side of the queue.
func (q *InMemoryQueue) Dequeue() <-chan Command {
	return q.commands
}

// Len returns the current number of queued commands.
func (q *InMemoryQueue) Len() int {
	size := len(q.commands)
	metrics.UpdateQueueSize(q.shard, size)
	return size
}

// Close stops the queue. Commands already buffered can still be drained.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.commands)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
