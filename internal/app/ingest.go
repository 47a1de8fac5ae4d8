package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/okian/ladder/internal/adapters/ingest"
	"github.com/okian/ladder/internal/adapters/mq/queue"
	"github.com/okian/ladder/internal/adapters/repository"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/snapshot"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

// Ingest sources.
const (
	SourcePaste  = "paste"
	SourceExport = "export"
)

// IngestResult reports an admitted batch.
type IngestResult struct {
	Admitted int         `json:"admitted"`
	Dates    []string    `json:"dates"`
	Stored   int         `json:"stored"`
	Jobs     []queue.Job `json:"-"`
	Queued   []string    `json:"queued,omitempty"`
}

// Ingest admits snaps as one batch. Nothing is stored if any snapshot
// collides with a stored date or another one in the batch. When a queue is
// configured every dataset is scheduled for recomputation.
func (s *Service) Ingest(ctx context.Context, source string, snaps []snapshot.Snapshot) (IngestResult, error) {
	if len(snaps) == 0 {
		return IngestResult{}, ingest.ErrNoLeaderboard
	}
	if err := s.store.Append(ctx, snaps...); err != nil {
		s.reject(ctx, source, err)
		return IngestResult{}, err
	}

	res := IngestResult{Admitted: len(snaps)}
	for _, snap := range snaps {
		res.Dates = append(res.Dates, model.FormatDay(snap.Date()))
	}
	metrics.RecordSnapshotsIngested(source, len(snaps))
	if n, err := s.store.Count(ctx); err == nil {
		res.Stored = n
		metrics.UpdateStoredSnapshots(n)
	}
	s.logger.Info(ctx, "snapshots admitted",
		logger.String("source", source),
		logger.Int("count", len(snaps)),
		logger.String("first", res.Dates[0]),
		logger.String("last", res.Dates[len(res.Dates)-1]),
	)

	if s.queue != nil {
		for _, d := range s.datasets() {
			if job, ok := s.queue.Enqueue(ctx, d, "ingest:"+source); ok {
				res.Jobs = append(res.Jobs, job)
				res.Queued = append(res.Queued, d.String())
			} else {
				s.logger.Warn(ctx, "recompute not queued", logger.String("dataset", d.String()))
			}
		}
	}
	return res, nil
}

// IngestPaste parses and admits one pasted leaderboard. fallback dates a
// paste without a header line; zero means such a paste is rejected.
func (s *Service) IngestPaste(ctx context.Context, text string, fallback time.Time) (IngestResult, error) {
	var opts []ingest.Option
	if !fallback.IsZero() {
		opts = append(opts, ingest.WithFallbackDate(fallback))
	}
	snap, err := ingest.NewParser(opts...).ParsePaste(text)
	if err != nil {
		s.reject(ctx, SourcePaste, err)
		return IngestResult{}, err
	}
	return s.Ingest(ctx, SourcePaste, []snapshot.Snapshot{snap})
}

// IngestExport parses and admits every leaderboard of a chat export.
func (s *Service) IngestExport(ctx context.Context, r io.Reader) (IngestResult, error) {
	snaps, err := ingest.NewParser().ParseExport(r)
	if err != nil {
		s.reject(ctx, SourceExport, err)
		return IngestResult{}, err
	}
	return s.Ingest(ctx, SourceExport, snaps)
}

// datasets lists the lineages a new snapshot affects.
func (s *Service) datasets() []model.Dataset {
	if s.cutoff.IsZero() {
		return []model.Dataset{model.DatasetFull}
	}
	return model.Datasets()
}

func (s *Service) reject(ctx context.Context, source string, err error) {
	reason := RejectReason(err)
	metrics.RecordSnapshotRejected(reason)
	s.logger.Warn(ctx, "ingest rejected",
		logger.String("source", source),
		logger.String("reason", reason),
		logger.Error(err),
	)
}

// RejectReason classifies an ingest failure for metrics and API responses.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, repository.ErrDuplicateDate), errors.Is(err, snapshot.ErrDuplicateDate):
		return "duplicate_date"
	case errors.Is(err, snapshot.ErrMalformed):
		return "malformed"
	case errors.Is(err, ingest.ErrNoLeaderboard):
		return "no_leaderboard"
	case errors.Is(err, ingest.ErrNoDate):
		return "no_date"
	case errors.Is(err, ingest.ErrBadExport):
		return "bad_export"
	}
	return "store"
}
