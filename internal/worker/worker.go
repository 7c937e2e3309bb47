// Package worker implements the import job execution loop.
package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/receptionist-onboarding/internal/metrics"
	"github.com/JakeFAU/receptionist-onboarding/internal/onboarding"
)

// Importer runs one onboarding import.
type Importer interface {
	Import(ctx context.Context, req onboarding.Request) (onboarding.Summary, error)
}

// Config controls Worker behavior.
type Config struct {
	// JobTimeout bounds a single import. Zero means no bound beyond the parent context.
	JobTimeout time.Duration
}

// Worker consumes queue items and runs the import pipeline for each.
type Worker struct {
	queue    onboarding.Queue
	jobStore onboarding.JobStore
	importer Importer
	cfg      Config
	logger   *zap.Logger
}

// New constructs a Worker.
func New(
	queue onboarding.Queue,
	jobStore onboarding.JobStore,
	importer Importer,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:    queue,
		jobStore: jobStore,
		importer: importer,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run blocks, consuming queue items until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, onboarding.ErrQueueClosed) {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued job", zap.String("job_id", item.JobID))
		w.processJob(ctx, item)
	}
}

func (w *Worker) processJob(ctx context.Context, item onboarding.QueueItem) {
	logger := w.logger.With(zap.String("job_id", item.JobID), zap.String("business_id", item.Request.BusinessID))
	if w.importer == nil {
		logger.Error("no importer configured")
		w.finish(ctx, logger, item.JobID, onboarding.JobStatusFailed, onboarding.CodeInternal, "no importer configured", nil)
		return
	}

	if err := w.jobStore.UpdateJobStatus(ctx, item.JobID, onboarding.JobStatusRunning, "", "", nil); err != nil {
		logger.Error("update job status failed", zap.Error(err))
		return
	}

	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	jobCtx, cancel := w.jobContext(ctx)
	defer cancel()

	summary, err := w.importer.Import(jobCtx, item.Request)
	if err != nil {
		code := onboarding.CodeFor(err)
		logger.Warn("import failed", zap.String("code", string(code)), zap.Error(err))
		w.finish(ctx, logger, item.JobID, onboarding.JobStatusFailed, code, err.Error(), &summary)
		return
	}
	logger.Info("import succeeded", zap.Int("pages", summary.PagesCrawled), zap.Int("services", summary.ServicesFound))
	w.finish(ctx, logger, item.JobID, onboarding.JobStatusSucceeded, "", "", &summary)
}

func (w *Worker) jobContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if w.cfg.JobTimeout > 0 {
		return context.WithTimeout(ctx, w.cfg.JobTimeout)
	}
	return context.WithCancel(ctx)
}

// finish records the terminal state even when ctx was canceled during shutdown.
func (w *Worker) finish(
	ctx context.Context,
	logger *zap.Logger,
	jobID string,
	status onboarding.JobStatus,
	code onboarding.Code,
	errText string,
	summary *onboarding.Summary,
) {
	if err := w.jobStore.UpdateJobStatus(context.WithoutCancel(ctx), jobID, status, code, errText, summary); err != nil {
		logger.Error("final job status update failed", zap.Error(err))
	}
}
