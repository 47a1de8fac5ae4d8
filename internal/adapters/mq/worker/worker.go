// Package worker runs queued recompute jobs against the pipeline.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/ladder/internal/adapters/mq/queue"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

// Runner executes one replay of a dataset.
type Runner interface {
	RunDataset(ctx context.Context, dataset model.Dataset) error
}

// Queue defines how the worker receives jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker drains the recompute queue one job at a time. Runs never overlap, so
// each job owns the whole working set of its replay.
type Worker struct {
	queue  Queue
	runner Runner
	name   string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// New creates a worker.
func New(q Queue, r Runner, opts ...Option) *Worker {
	w := &Worker{
		queue:    q,
		runner:   r,
		name:     "recompute",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run processes jobs until ctx is cancelled, Shutdown is called or the queue
// is closed.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

// Shutdown signals the worker to stop after the current job and waits.
func (w *Worker) Shutdown(ctx context.Context) error {
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

func (w *Worker) process(ctx context.Context, job queue.Job) {
	start := time.Now()
	w.logger.Info(ctx, "recompute started",
		logger.String("job", job.ID),
		logger.String("dataset", job.Dataset.String()),
		logger.String("reason", job.Reason),
		logger.Duration("waited", start.Sub(job.EnqueuedAt)),
	)
	if err := w.runner.RunDataset(ctx, job.Dataset); err != nil {
		metrics.RecordJob("failed")
		metrics.RecordErrorByComponent("worker", "run_failed")
		w.logger.Error(ctx, "recompute failed",
			logger.String("job", job.ID),
			logger.String("dataset", job.Dataset.String()),
			logger.Error(err),
		)
		return
	}
	metrics.RecordJob("done")
	w.logger.Info(ctx, "recompute finished",
		logger.String("job", job.ID),
		logger.String("dataset", job.Dataset.String()),
		logger.Duration("took", time.Since(start)),
	)
}
