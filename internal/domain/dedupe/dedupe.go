// Package dedupe tracks client command ids so a retried command is applied
// at most once.
package dedupe

import (
	"context"
	"sync"
)

// Default cache size when no option is given.
const defaultMaxSize = 50000

// Deduper records seen command keys.
type Deduper interface {
	// SeenAndRecord atomically checks whether key was seen and records it if not.
	// It returns true when key was already seen.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so the command can be retried. Used when a command
	// was recorded but never reached the executor.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// Key scopes a client command id to its match.
func Key(matchID, commandID string) string {
	return matchID + "/" + commandID
}

// inMemoryDeduper keeps keys in a map with FIFO eviction over a ring of
// insertion order. Each key maps to its ring slot, or -1 when maxSize <= 0
// disables eviction.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]int
	ring    []string
	next    int
	maxSize int
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]int)
	if d.maxSize > 0 {
		d.ring = make([]string, 0, d.maxSize)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if d.maxSize <= 0 {
		d.seen[key] = -1
		return false
	}
	if len(d.ring) < d.maxSize {
		d.seen[key] = len(d.ring)
		d.ring = append(d.ring, key)
		return false
	}
	// ring is full: overwrite the oldest slot
	if old := d.ring[d.next]; old != "" {
		delete(d.seen, old)
	}
	d.ring[d.next] = key
	d.seen[key] = d.next
	d.next = (d.next + 1) % d.maxSize
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.seen[key]
	if !ok {
		return
	}
	delete(d.seen, key)
	// blank the ring slot so a later eviction does not drop a re-recorded key
	if slot >= 0 {
		d.ring[slot] = ""
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
