// Package worker runs match commands on a fixed set of serial executors.
// Commands are sharded by match id, so each match is driven by exactly one
// goroutine and its commands apply in submission order.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/takraw/internal/adapters/mq/queue"
	"github.com/okian/takraw/internal/domain/model"
	"github.com/okian/takraw/pkg/logger"
	"github.com/okian/takraw/pkg/metrics"
)

// Default worker configuration constants.
const (
	metricsUpdateInterval = 5 * time.Second
	defaultQueueCapacity  = 256
)

// Command is what workers read off the queue.
type Command = model.Command

// Handler applies a command to its match.
type Handler interface {
	Handle(ctx context.Context, cmd Command) model.CommandResult
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, cmd Command) model.CommandResult

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, cmd Command) model.CommandResult { //nolint:gocritic // hugeParam
	return f(ctx, cmd)
}

// Queue defines how workers receive commands.
type Queue interface {
	Dequeue() <-chan Command
}

// Worker drains one queue.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after draining what is already buffered.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker applies commands from its queue one at a time.
type InMemoryWorker struct {
	queue   Queue
	handler Handler
	name    string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, handler Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		handler:  handler,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	commands := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			w.drain(ctx, commands)
			return
		case cmd, ok := <-commands:
			if !ok {
				return
			}
			w.process(ctx, cmd)
		}
	}
}

func (w *InMemoryWorker) drain(ctx context.Context, commands <-chan Command) {
	for {
		select {
		case cmd, ok := <-commands:
			if !ok {
				return
			}
			w.process(ctx, cmd)
		default:
			return
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process applies one command and answers the submitter. The handler runs
// under the worker's context, not the submitter's, so a caller that gives up
// mid-command cannot interrupt persistence of a change that already happened.
func (w *InMemoryWorker) process(ctx context.Context, cmd Command) { //nolint:gocritic // hugeParam: Command is passed by value for channel semantics
	if cmd.Ctx != nil && cmd.Ctx.Err() != nil {
		metrics.RecordRejected("cancelled")
		w.reply(ctx, cmd, model.CommandResult{Err: cmd.Ctx.Err()})
		return
	}

	start := time.Now()
	res := w.handle(ctx, cmd)
	metrics.RecordCommandLatency(string(cmd.Kind), float64(time.Since(start).Microseconds())/1000)

	w.reply(ctx, cmd, res)
}

func (w *InMemoryWorker) handle(ctx context.Context, cmd Command) (res model.CommandResult) { //nolint:gocritic // hugeParam
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error(ctx, "command handler panicked",
				logger.String("match_id", cmd.MatchID),
				logger.String("kind", string(cmd.Kind)),
				logger.Any("panic", r),
			)
			res = model.CommandResult{Err: fmt.Errorf("%w: %v", ErrHandlerPanic, r)}
		}
	}()
	return w.handler.Handle(ctx, cmd)
}

// reply never blocks; submitters are expected to pass a buffered channel.
func (w *InMemoryWorker) reply(ctx context.Context, cmd Command, res model.CommandResult) { //nolint:gocritic // hugeParam
	if cmd.Reply == nil {
		return
	}
	select {
	case cmd.Reply <- res:
	default:
		w.logger.Warn(ctx, "reply dropped",
			logger.String("match_id", cmd.MatchID),
			logger.String("command_id", cmd.ID),
		)
	}
}

// Pool manages one worker and one queue per shard.
type Pool struct {
	workers       []*InMemoryWorker
	queues        []*queue.InMemoryQueue
	queueCapacity int

	mu       sync.RWMutex
	closed   bool
	shutdown chan struct{}

	logger logger.Logger
}

// NewPool creates a new worker pool. workerCount below 1 defaults to the
// number of CPUs.
func NewPool(workerCount int, handler Handler, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers:       make([]*InMemoryWorker, workerCount),
		queues:        make([]*queue.InMemoryQueue, workerCount),
		queueCapacity: defaultQueueCapacity,
		shutdown:      make(chan struct{}),
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	for i := 0; i < workerCount; i++ {
		p.queues[i] = queue.NewInMemoryQueue(queue.WithCapacity(p.queueCapacity), queue.WithShard(i))
		p.workers[i] = NewInMemoryWorker(
			p.queues[i],
			handler,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(p.logger),
		)
	}
	p.logger = p.logger.Named("worker-pool")

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of shards.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Shard returns the worker index that owns matchID.
func (p *Pool) Shard(matchID string) int {
	return int(xxhash.Sum64String(matchID) % uint64(len(p.workers)))
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.startMetricsUpdater(ctx)
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			for _, q := range p.queues {
				q.Len()
			}
		}
	}
}

// Submit enqueues cmd on its match's shard without waiting for the result.
func (p *Pool) Submit(ctx context.Context, cmd Command) error { //nolint:gocritic // hugeParam
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}
	if !p.queues[p.Shard(cmd.MatchID)].Enqueue(ctx, cmd) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrQueueFull
	}
	return nil
}

// Do submits cmd and waits for its result or for ctx to end.
func (p *Pool) Do(ctx context.Context, cmd Command) (model.CommandResult, error) { //nolint:gocritic // hugeParam
	reply := make(chan model.CommandResult, 1)
	cmd.Ctx = ctx
	cmd.Reply = reply

	if err := p.Submit(ctx, cmd); err != nil {
		return model.CommandResult{}, err
	}
	select {
	case res := <-reply:
		return res, nil
	case <-ctx.Done():
		return model.CommandResult{}, ctx.Err()
	}
}

// Shutdown closes every queue, lets workers drain them, and waits for the
// workers to exit or ctx to end.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.shutdown)
	for _, q := range p.queues {
		if err := q.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	p.mu.Unlock()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
		}
	}
	return nil
}
