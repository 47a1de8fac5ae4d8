// Command ladder ingests daily leaderboards, replays them into ratings and
// serves the results.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/ladder/internal/config"
	"github.com/okian/ladder/pkg/logger"
)

// cfg is loaded once per invocation by the root command.
var cfg *config.Config //nolint:gochecknoglobals // cobra command state

// rootCmd is the base command for the ladder CLI.
var rootCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree
	Use:   "ladder",
	Short: "Longitudinal ratings from daily top-30 leaderboards",
	Long: `ladder turns a history of daily top-30 leaderboards into an Elo-style
rating per player, with activity-gated standings, an enriched day-by-day
history and head-to-head rivalry boards.

Configuration is read from LADDER_CONFIG (YAML) and LADDER_* variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load(cmd.Context())
		if err != nil {
			return err
		}
		if err := logger.Init(logger.WithFormat(loaded.LogFormat), logger.WithWriter(cmd.ErrOrStderr())); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		if err := logger.SetLevelString(loaded.LogLevel); err != nil {
			logger.Get().Warn(cmd.Context(), "invalid log_level; falling back to info",
				logger.String("log_level", loaded.LogLevel), logger.Error(err))
			_ = logger.SetLevelString("info")
		}
		cfg = loaded
		return nil
	},
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
