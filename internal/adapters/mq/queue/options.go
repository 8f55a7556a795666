package queue

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the maximum number of buffered commands.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithShard sets the shard index used to label queue metrics.
func WithShard(shard int) Option {
	return func(q *InMemoryQueue) {
		if shard >= 0 {
			q.shard = shard
		}
	}
}
