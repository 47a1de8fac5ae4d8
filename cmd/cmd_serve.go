package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/ladder/internal/adapters/http/api"
	"github.com/okian/ladder/internal/adapters/http/swagger"
	app "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/config"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// serveCmd runs the HTTP API with background recomputation.
var serveCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree
	Use:   "serve",
	Short: "Serve the read and ingest API",
	Long: `Serve standings, player histories and rivalry boards over HTTP and accept
new leaderboards on POST /snapshots. Every admitted leaderboard queues a
recompute of the affected datasets.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Root context with cancel on SIGINT/SIGTERM.
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func init() { //nolint:gochecknoinits // cobra registration
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, c *config.Config) error {
	log := logger.Get()

	st, err := build(ctx, c, true)
	if err != nil {
		return err
	}
	defer st.close()

	if err := st.svc.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := st.svc.Stop(stopCtx); err != nil {
			log.Error(stopCtx, "service stop failed", logger.Error(err))
		}
	}()
	warm(ctx, st.svc, c, log)

	// HTTP mux and routes.
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)

	d, _ := model.ParseDataset(c.Dataset)
	api.NewServer(st.svc,
		api.WithDefaultDataset(d),
		api.WithIngestRate(c.IngestRatePerSec, c.IngestBurst),
		api.WithLogger(log.Named("api")),
	).Register(ctx, mux)

	srv := &http.Server{
		Addr:              c.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", c.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or a listener failure
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// warm computes every dataset once so reads work before the first ingest.
func warm(ctx context.Context, svc *app.Service, c *config.Config, log logger.Logger) {
	for _, d := range model.Datasets() {
		if _, ok := c.Cutoff(); d == model.DatasetRecent && !ok {
			continue
		}
		if _, err := svc.Run(ctx, d); err != nil {
			log.Warn(ctx, "initial run skipped", logger.String("dataset", d.String()), logger.Error(err))
		}
	}
}
