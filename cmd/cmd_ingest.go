package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	app "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/domain/model"
)

// ingestCmd admits leaderboards into the snapshot store.
var ingestCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree
	Use:   "ingest",
	Short: "Admit leaderboards into the snapshot store",
	Long: `Admit leaderboards from a chat export or a single pasted leaderboard.
A batch is all-or-nothing: any malformed leaderboard or already stored date
rejects the whole input.

Examples:
  ladder ingest --file export.json
  ladder ingest --paste today.txt --date 2025-03-14
  ladder ingest --file export.json --run`,
	RunE: runIngest,
}

// Ingest command flags
var ( //nolint:gochecknoglobals // cobra flag targets
	ingestFile  string
	ingestPaste string
	ingestDate  string
	ingestRun   bool
)

func init() { //nolint:gochecknoinits // cobra registration
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "Chat export JSON file")
	ingestCmd.Flags().StringVar(&ingestPaste, "paste", "", "Text file holding one pasted leaderboard")
	ingestCmd.Flags().StringVar(&ingestDate, "date", "", "Date (YYYY-MM-DD) for a paste without a header line")
	ingestCmd.Flags().BoolVar(&ingestRun, "run", false, "Recompute every dataset after admitting")
	ingestCmd.MarkFlagsMutuallyExclusive("file", "paste")
	ingestCmd.MarkFlagsOneRequired("file", "paste")
}

func runIngest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	st, err := build(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer st.close()

	var res app.IngestResult
	switch {
	case ingestFile != "":
		f, err := os.Open(ingestFile)
		if err != nil {
			return err
		}
		defer f.Close()
		res, err = st.svc.IngestExport(ctx, f)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", ingestFile, err)
		}
	default:
		text, err := os.ReadFile(ingestPaste)
		if err != nil {
			return err
		}
		var fallback time.Time
		if ingestDate != "" {
			if fallback, err = model.ParseDay(ingestDate); err != nil {
				return fmt.Errorf("--date: %w", err)
			}
		}
		res, err = st.svc.IngestPaste(ctx, string(text), fallback)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", ingestPaste, err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "admitted %d snapshot(s) %s, %d stored\n",
		res.Admitted, strings.Join(res.Dates, ","), res.Stored)

	if !ingestRun {
		return nil
	}
	for _, d := range model.Datasets() {
		if _, ok := cfg.Cutoff(); d == model.DatasetRecent && !ok {
			continue
		}
		if err := runDataset(cmd, st.svc, d); err != nil {
			return err
		}
	}
	return nil
}
