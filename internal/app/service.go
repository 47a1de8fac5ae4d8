// Package service wires ingestion, the snapshot store, the rating pipeline
// and artifact publication together. It is the single entry point used by
// the HTTP API and the CLI.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/okian/ladder/internal/adapters/mq/queue"
	"github.com/okian/ladder/internal/adapters/mq/worker"
	"github.com/okian/ladder/internal/adapters/output"
	"github.com/okian/ladder/internal/adapters/repository"
	"github.com/okian/ladder/internal/domain/analytics"
	"github.com/okian/ladder/internal/domain/compression"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/rating"
	"github.com/okian/ladder/internal/domain/rivalry"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

// runAdapter adapts Service.Run to worker.Runner.
type runAdapter struct {
	svc *Service
}

func (a runAdapter) RunDataset(ctx context.Context, d model.Dataset) error {
	_, err := a.svc.Run(ctx, d)
	return err
}

// Service owns the snapshot store and the latest result of every dataset.
type Service struct {
	mu sync.RWMutex
	// runMu serialises pipeline runs; a run holds it from List to publish.
	runMu sync.Mutex

	store  repository.Store
	writer *output.Writer
	queue  queue.Queue
	worker *worker.Worker

	engine      *rating.Engine
	mode        compression.Mode
	gate        analytics.Gate
	rivalryOpts []rivalry.Option
	cutoff      time.Time

	results map[model.Dataset]*RunResult

	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a Service over store and writer.
func New(store repository.Store, writer *output.Writer, opts ...Option) *Service {
	s := &Service{
		store:   store,
		writer:  writer,
		engine:  rating.New(),
		mode:    compression.ModeHybrid,
		gate:    analytics.DefaultGate(),
		results: make(map[model.Dataset]*RunResult),
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the recompute worker when a queue is configured.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.queue != nil {
		wctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.cancel = cancel
		s.worker = worker.New(s.queue, runAdapter{svc: s}, worker.WithLogger(s.logger))
		go s.worker.Run(wctx)
	}
	if n, err := s.store.Count(ctx); err == nil {
		metrics.UpdateStoredSnapshots(n)
	}
	s.started = true
	s.logger.Info(ctx, "ladder service started",
		logger.Bool("recompute_worker", s.queue != nil),
		logger.String("compression", string(s.mode)),
		logger.String("model", string(s.engine.Model().Kind())),
	)
	return nil
}

// Stop drains the worker and closes the queue. The store is left open; its
// owner closes it.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	w, cancel := s.worker, s.cancel
	s.worker, s.cancel = nil, nil
	s.started = false
	s.mu.Unlock()

	// the in-flight job publishes under mu, so wait without holding it
	var err error
	if s.queue != nil {
		_ = s.queue.Close()
	}
	if w != nil {
		err = w.Shutdown(ctx)
		cancel()
	}
	s.logger.Info(ctx, "ladder service stopped")
	return err
}

// Latest returns the most recent run of d.
func (s *Service) Latest(d model.Dataset) (*RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.results[d]
	if !ok {
		return nil, ErrNoRun
	}
	return r, nil
}

func (s *Service) publish(r *RunResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.Dataset] = r
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"model":       string(s.engine.Model().Kind()),
		"compression": string(s.mode),
	}
	if n, err := s.store.Count(ctx); err == nil {
		stats["storedSnapshots"] = n
		metrics.UpdateStoredSnapshots(n)
	}
	if s.queue != nil {
		stats["queueLength"] = s.queue.Len(ctx)
	}
	runs := make(map[string]interface{}, len(s.results))
	for d, r := range s.results {
		runs[d.String()] = map[string]interface{}{
			"runId":      r.RunID,
			"asOf":       model.FormatDay(r.AsOf),
			"snapshots":  r.Snapshots,
			"players":    len(r.Standings.All),
			"active":     len(r.Standings.Active),
			"finishedAt": r.FinishedAt,
		}
	}
	stats["runs"] = runs
	return stats
}
