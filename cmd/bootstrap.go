package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/okian/ladder/internal/adapters/mq/queue"
	"github.com/okian/ladder/internal/adapters/output"
	"github.com/okian/ladder/internal/adapters/repository"
	app "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/config"
	"github.com/okian/ladder/internal/domain/compression"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/rating"
	"github.com/okian/ladder/internal/domain/rivalry"
	"github.com/okian/ladder/pkg/logger"
)

// stack is everything a command needs; close releases the store.
type stack struct {
	svc   *app.Service
	store repository.Store
}

func (s stack) close() { _ = s.store.Close() }

// build opens the store and wires the service from configuration. A queue is
// attached when withQueue is set.
func build(ctx context.Context, c *config.Config, withQueue bool) (stack, error) {
	log := logger.Get()

	if err := os.MkdirAll(filepath.Dir(c.StorePath()), 0o755); err != nil {
		return stack{}, fmt.Errorf("create data dir: %w", err)
	}
	store, err := repository.Open(ctx, c.StoreDriver, c.StorePath(), repository.WithLogger(log.Named("store")))
	if err != nil {
		return stack{}, err
	}

	m, err := rating.NewModel(rating.Kind(c.RatingModel))
	if err != nil {
		_ = store.Close()
		return stack{}, err
	}
	mode, err := compression.ParseMode(c.CompressionMode)
	if err != nil {
		_ = store.Close()
		return stack{}, err
	}

	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithEngine(rating.New(rating.WithParams(c.RatingParams()), rating.WithModel(m))),
		app.WithCompressionMode(mode),
		app.WithGate(c.Gate()),
		app.WithRivalryOptions(
			rivalry.WithMinEncounters(c.RivalryMinEncounters),
			rivalry.WithTopN(c.RivalryTopN),
		),
	}
	if day, ok := c.Cutoff(); ok {
		opts = append(opts, app.WithCutoff(day))
	}
	if withQueue {
		opts = append(opts, app.WithQueue(queue.NewInMemoryQueue()))
	}
	writer := output.NewWriter(c.OutputDir, output.WithLogger(log.Named("output")))
	return stack{svc: app.New(store, writer, opts...), store: store}, nil
}

// datasetFlag resolves a --dataset value, falling back to configuration.
func datasetFlag(name string, c *config.Config) (model.Dataset, error) {
	if name == "" {
		name = c.Dataset
	}
	return model.ParseDataset(name)
}
