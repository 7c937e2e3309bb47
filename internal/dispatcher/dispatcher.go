// Package dispatcher hands submitted imports to the worker pool.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/receptionist-onboarding/internal/onboarding"
	"github.com/JakeFAU/receptionist-onboarding/internal/worker"
)

// ErrMissingJobID is returned when an import is enqueued without a job id.
var ErrMissingJobID = errors.New("queue item has no job id")

// Dispatcher owns the import queue and the workers draining it.
type Dispatcher struct {
	queue   onboarding.Queue
	workers []*worker.Worker
	logger  *zap.Logger
}

// New creates a Dispatcher. logger may be nil.
func New(queue onboarding.Queue, workers []*worker.Worker, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		queue:   queue,
		workers: workers,
		logger:  logger,
	}
}

// Run starts every worker and blocks until ctx ends and the workers have
// finished their current import.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("dispatcher started", zap.Int("workers", len(d.workers)))
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	<-ctx.Done()
	wg.Wait()
	d.logger.Info("dispatcher stopped")
}

// Enqueue submits one import for a worker to pick up.
func (d *Dispatcher) Enqueue(ctx context.Context, item onboarding.QueueItem) error {
	if item.JobID == "" {
		return ErrMissingJobID
	}
	if err := d.queue.Enqueue(ctx, item); err != nil {
		d.logger.Warn("enqueue failed",
			zap.String("job_id", item.JobID),
			zap.String("business_id", item.Request.BusinessID),
			zap.Error(err),
		)
		return fmt.Errorf("enqueue job %s: %w", item.JobID, err)
	}
	d.logger.Debug("import queued",
		zap.String("job_id", item.JobID),
		zap.String("business_id", item.Request.BusinessID),
		zap.String("url", item.Request.URL),
	)
	return nil
}
