package service

import (
	"time"

	"github.com/okian/ladder/internal/adapters/mq/queue"
	"github.com/okian/ladder/internal/domain/analytics"
	"github.com/okian/ladder/internal/domain/compression"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/rating"
	"github.com/okian/ladder/internal/domain/rivalry"
	"github.com/okian/ladder/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEngine sets the rating engine used for replays.
func WithEngine(e *rating.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithCompressionMode selects the display compression curve.
func WithCompressionMode(mode compression.Mode) Option {
	return func(s *Service) {
		if mode != "" {
			s.mode = mode
		}
	}
}

// WithGate sets the activity gate for standings and history.
func WithGate(g analytics.Gate) Option {
	return func(s *Service) {
		s.gate = g
	}
}

// WithRivalryOptions configures the rivalry stage.
func WithRivalryOptions(opts ...rivalry.Option) Option {
	return func(s *Service) {
		s.rivalryOpts = append(s.rivalryOpts, opts...)
	}
}

// WithCutoff sets the first day of the recent dataset.
func WithCutoff(day time.Time) Option {
	return func(s *Service) {
		if !day.IsZero() {
			s.cutoff = model.Day(day)
		}
	}
}

// WithQueue enables background recomputation: every successful ingest queues
// a run of each dataset, drained by a worker between Start and Stop.
func WithQueue(q queue.Queue) Option {
	return func(s *Service) {
		s.queue = q
	}
}
