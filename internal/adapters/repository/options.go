package repository

import "github.com/okian/ladder/pkg/logger"

// Option applies a configuration option to a store.
type Option func(*settings)

type settings struct {
	log logger.Logger
}

// WithLogger sets the logger used for load and append events.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

func applyOptions(opts []Option) settings {
	s := settings{log: logger.Discard()}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
