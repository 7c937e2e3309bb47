// Package memory holds the in-process import queue that feeds the worker pool.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JakeFAU/receptionist-onboarding/internal/metrics"
	"github.com/JakeFAU/receptionist-onboarding/internal/onboarding"
)

var (
	// ErrClosed is returned once the queue has been shut down.
	ErrClosed = onboarding.ErrQueueClosed
	// ErrDuplicateJob is returned when a job id is already waiting in the queue.
	ErrDuplicateJob = errors.New("job already queued")
)

// Queue is a bounded FIFO of pending imports. Enqueue blocks while the queue is
// full; a job id may be waiting at most once.
type Queue struct {
	ch   chan onboarding.QueueItem
	done chan struct{}

	mu      sync.Mutex
	pending map[string]struct{}
	closed  bool
}

// NewQueue creates a queue holding up to capacity waiting imports.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		ch:      make(chan onboarding.QueueItem, capacity),
		done:    make(chan struct{}),
		pending: make(map[string]struct{}),
	}
}

// Enqueue adds an import, waiting for room until ctx ends or the queue closes.
func (q *Queue) Enqueue(ctx context.Context, item onboarding.QueueItem) error {
	if err := q.reserve(item.JobID); err != nil {
		return err
	}
	select {
	case <-q.done:
		q.release(item.JobID)
		return ErrClosed
	default:
	}
	select {
	case <-ctx.Done():
		q.release(item.JobID)
		return fmt.Errorf("enqueue %s canceled: %w", item.JobID, ctx.Err())
	case <-q.done:
		q.release(item.JobID)
		return ErrClosed
	case q.ch <- item:
		metrics.SetQueueDepth(len(q.ch))
		return nil
	}
}

// Dequeue returns the oldest waiting import.
func (q *Queue) Dequeue(ctx context.Context) (onboarding.QueueItem, error) {
	select {
	case <-ctx.Done():
		return onboarding.QueueItem{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case <-q.done:
		return onboarding.QueueItem{}, ErrClosed
	case item := <-q.ch:
		q.release(item.JobID)
		metrics.SetQueueDepth(len(q.ch))
		return item, nil
	}
}

// Len reports how many imports are waiting.
func (q *Queue) Len() int { return len(q.ch) }

// Close stops the queue. Waiting imports are dropped; their jobs stay queued in
// the job store. Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

func (q *Queue) reserve(jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	if jobID == "" {
		return nil
	}
	if _, ok := q.pending[jobID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, jobID)
	}
	q.pending[jobID] = struct{}{}
	return nil
}

func (q *Queue) release(jobID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.pending, jobID)
}
