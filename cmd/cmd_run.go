package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/ladder/internal/adapters/output"
	app "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/domain/model"
)

// runCmd replays a dataset and publishes its artifacts.
var runCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree
	Use:   "run",
	Short: "Replay a dataset and publish standings, history and rivalries",
	Long: `Replay every stored snapshot of a dataset from scratch and atomically
publish its artifacts to output_dir, replacing the previous ones.

Examples:
  ladder run
  ladder run --dataset recent`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		d, err := datasetFlag(runDatasetName, cfg)
		if err != nil {
			return err
		}
		st, err := build(cmd.Context(), cfg, false)
		if err != nil {
			return err
		}
		defer st.close()
		return runDataset(cmd, st.svc, d)
	},
}

// rivalryCmd recomputes rivalry boards from the published history.
var rivalryCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree
	Use:   "rivalry",
	Short: "Recompute rivalry boards from the latest history artifact",
	RunE: func(cmd *cobra.Command, _ []string) error {
		d, err := datasetFlag(rivalryDatasetName, cfg)
		if err != nil {
			return err
		}
		st, err := build(cmd.Context(), cfg, false)
		if err != nil {
			return err
		}
		defer st.close()

		rv, err := st.svc.RunRivalry(cmd.Context(), d)
		if errors.Is(err, output.ErrArtifactNotFound) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: no history artifact, run it first\n", d)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d qualifying pair(s)\n", d, rv.Pairs)
		for _, a := range rv.Artifacts {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", a.Path)
		}
		return nil
	},
}

var ( //nolint:gochecknoglobals // cobra flag targets
	runDatasetName     string
	rivalryDatasetName string
)

func init() { //nolint:gochecknoinits // cobra registration
	rootCmd.AddCommand(runCmd, rivalryCmd)

	runCmd.Flags().StringVar(&runDatasetName, "dataset", "", "Dataset to replay: full or recent (default from config)")
	rivalryCmd.Flags().StringVar(&rivalryDatasetName, "dataset", "", "Dataset to analyse: full or recent (default from config)")
}

func runDataset(cmd *cobra.Command, svc *app.Service, d model.Dataset) error {
	r, err := svc.Run(cmd.Context(), d)
	if err != nil {
		return fmt.Errorf("run %s: %w", d, err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d snapshot(s) through %s, %d player(s), %d active, %d rivalry pair(s)\n",
		d, r.Snapshots, model.FormatDay(r.AsOf), len(r.Standings.All), len(r.Standings.Active), r.Pairs)
	for _, a := range r.Artifacts {
		fmt.Fprintf(out, "  %s\n", a.Path)
	}
	return nil
}
