// Package worker credits closed deals to the partner ledger in the background.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/dylanram/attribution/internal/domain/attribution"
	"github.com/dylanram/attribution/internal/domain/model"
	"github.com/dylanram/attribution/pkg/logger"
	"github.com/dylanram/attribution/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Deal is what workers read off the queue.
type Deal = model.ClosedDeal

// Attributor splits a deal's value across its partners.
type Attributor interface {
	Attribute(d attribution.Deal, k attribution.Kind) (attribution.Result, error)
}

// Crediter records an attributed deal in the ledger.
type Crediter interface {
	Credit(ctx context.Context, dealID string, dealValue float64, amounts map[string]float64) error
}

// Queue defines how workers receive deals.
type Queue interface {
	Dequeue() <-chan Deal
}

// InMemoryWorker attributes queued deals and credits the results.
type InMemoryWorker struct {
	queue      Queue
	attributor Attributor
	crediter   Crediter
	name       string
	processed  *atomic.Int64

	done   chan struct{}
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, a Attributor, c Crediter, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      q,
		attributor: a,
		crediter:   c,
		name:       "worker",
		processed:  &atomic.Int64{},
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(logger.String("worker", w.name))
	return w
}

// Run consumes deals until the queue is closed and drained, or ctx is done.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	deals := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deals:
			if !ok {
				return
			}
			if err := w.process(ctx, d); err != nil {
				w.logger.Error(ctx, "error crediting deal", logger.String("deal_id", d.DealID), logger.Error(err))
			}
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

// Processed returns how many deals this worker credited.
func (w *InMemoryWorker) Processed() int64 {
	return w.processed.Load()
}

func (w *InMemoryWorker) process(ctx context.Context, d Deal) error { //nolint:gocritic // hugeParam: passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	res, err := w.attributor.Attribute(d.Deal, d.Model)
	if err != nil {
		metrics.RecordWorkerError()
		return fmt.Errorf("attribute deal %s: %w", d.DealID, err)
	}
	if err := w.crediter.Credit(ctx, d.DealID, res.Value, res.Amounts); err != nil {
		metrics.RecordWorkerError()
		return fmt.Errorf("credit deal %s: %w", d.DealID, err)
	}

	w.processed.Add(1)
	metrics.RecordDealCredited()
	w.logger.Debug(ctx, "deal credited",
		logger.String("deal_id", d.DealID),
		logger.String("model", string(d.Model)),
		logger.Float64("value", res.Value),
	)
	return nil
}

// Pool manages multiple workers reading one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a worker pool. workerCount < 1 means one worker per CPU.
func NewPool(workerCount int, q Queue, a Attributor, c Crediter) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(q, a, c, WithName("worker-"+strconv.Itoa(i)))
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Processed returns the total deals credited by the pool.
func (p *Pool) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
		}
	}
	return nil
}
