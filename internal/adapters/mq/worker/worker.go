// Package worker drains the persistence queue into the event store.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/pulse/internal/adapters/mq/queue"
	"github.com/okian/pulse/pkg/logger"
	"github.com/okian/pulse/pkg/metrics"
)

const (
	defaultSaveTimeout  = 5 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Event is what workers read off the queue.
type Event = queue.Event

// Saver persists one entry.
type Saver interface {
	Save(ctx context.Context, e Event) error
}

// Queue defines how workers receive entries.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker processes entries until its queue is drained or it is stopped.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker saves entries read from a queue.
type InMemoryWorker struct {
	queue       Queue
	saver       Saver
	name        string
	saveTimeout time.Duration

	processed atomic.Int64
	failed    atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker.
func NewInMemoryWorker(q Queue, saver Saver, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:       q,
		saver:       saver,
		name:        "worker",
		saveTimeout: defaultSaveTimeout,
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Named("persist").Named(w.name)
	}
	return w
}

// Run starts the worker loop. It returns when the queue channel closes,
// ctx is cancelled, or Shutdown is called.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := w.process(ctx, e); err != nil {
				w.logger.Error(ctx, "persisting pulse entry failed",
					logger.String("entryID", e.ID),
					logger.String("gameId", e.GameID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker without draining.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Processed returns the number of entries saved successfully.
func (w *InMemoryWorker) Processed() int64 { return w.processed.Load() }

// Failed returns the number of entries that could not be saved.
func (w *InMemoryWorker) Failed() int64 { return w.failed.Load() }

func (w *InMemoryWorker) process(ctx context.Context, e Event) error { //nolint:gocritic // hugeParam: entries travel by value
	start := time.Now()
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.saveTimeout)
	defer cancel()

	err := w.saver.Save(saveCtx, e)
	metrics.RecordPersistLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		w.failed.Add(1)
		metrics.RecordPersistResult(metrics.PersistFailed)
		metrics.RecordErrorByComponent("persist", "save_error")
		return fmt.Errorf("save entry %s: %w", e.ID, err)
	}
	w.processed.Add(1)
	metrics.RecordPersistResult(metrics.PersistSaved)
	return nil
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers     []*InMemoryWorker
	queue       queue.Queue
	saver       Saver
	saveTimeout time.Duration
	started     atomic.Bool

	logger logger.Logger
}

// NewPool creates a worker pool. A non-positive count uses NumCPU.
func NewPool(workerCount int, q queue.Queue, saver Saver, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers:     make([]*InMemoryWorker, workerCount),
		queue:       q,
		saver:       saver,
		saveTimeout: defaultSaveTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Named("persist")
	}

	for i := 0; i < workerCount; i++ {
		p.workers[i] = NewInMemoryWorker(q, saver,
			WithName("worker-"+strconv.Itoa(i)),
			WithSaveTimeout(p.saveTimeout),
			WithLogger(p.logger.Named("worker-"+strconv.Itoa(i))),
		)
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "persistence workers started", logger.Int("workers", len(p.workers)))
}

// Submit hands an entry to the queue without blocking. A full or closed
// queue drops the entry and reports why.
func (p *Pool) Submit(ctx context.Context, e Event) error { //nolint:gocritic // hugeParam: entries travel by value
	if err := p.queue.Enqueue(ctx, e); err != nil {
		metrics.RecordPersistResult(metrics.PersistDropped)
		return err
	}
	return nil
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed sums the successful saves of every worker.
func (p *Pool) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Failed sums the failed saves of every worker.
func (p *Pool) Failed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Failed()
	}
	return n
}

// Shutdown closes the queue and lets workers drain it. Workers still busy
// when ctx (or the pool timeout) expires are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}
	if !p.started.Load() {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			_ = w.Shutdown(context.Background())
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
