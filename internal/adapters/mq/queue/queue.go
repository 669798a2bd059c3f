// Package queue buffers closed deals between intake and the ledger workers.
package queue

import (
	"context"
	"sync"

	"github.com/dylanram/attribution/internal/domain/model"
	"github.com/dylanram/attribution/pkg/metrics"
)

const defaultQueueCapacity = 10_000

// Deal is the payload type flowing through the queue.
type Deal = model.ClosedDeal

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a deal without blocking. It fails with ErrFull when the
	// queue is at capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, d Deal) error

	// Dequeue returns the receive side of the queue. The channel is closed
	// by Close once drained.
	Dequeue() <-chan Deal

	// Len returns the current number of queued deals.
	Len() int

	// Close stops intake. Queued deals stay readable from Dequeue.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	deals    chan Deal
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.deals = make(chan Deal, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0, q.capacity)
	return q
}

// Enqueue adds a deal to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, d Deal) error { //nolint:gocritic // hugeParam: passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError("context_cancelled")
		return err
	}

	select {
	case q.deals <- d:
		metrics.UpdateQueueSize(len(q.deals), q.capacity)
		return nil
	default:
		metrics.RecordQueueEnqueueError("full")
		return ErrFull
	}
}

// Dequeue returns the channel workers read from.
func (q *InMemoryQueue) Dequeue() <-chan Deal {
	return q.deals
}

// Len returns the current number of queued deals.
func (q *InMemoryQueue) Len() int {
	size := len(q.deals)
	metrics.UpdateQueueSize(size, q.capacity)
	return size
}

// Capacity returns the configured capacity.
func (q *InMemoryQueue) Capacity() int {
	return q.capacity
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.deals)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
