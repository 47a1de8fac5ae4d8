// Command test-days writes a synthetic chat export of daily leaderboards for
// seeding a local instance:
//
//	test-days --days 120 --roster 45 --out export.json
//	ladder ingest --file export.json --run
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/testdays"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var (
		start  string
		days   int
		roster int
		seed   int64
		skip   int
		out    string
		paste  bool
	)
	cmd := &cobra.Command{
		Use:          "test-days",
		Short:        "Generate a deterministic season of daily leaderboards",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			first, err := model.ParseDay(start)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			if days < 1 {
				return fmt.Errorf("--days must be at least 1")
			}
			snaps := testdays.Season(testdays.Config{
				Start:      first,
				Days:       days,
				RosterSize: roster,
				Seed:       seed,
				SkipEvery:  skip,
			})

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if paste {
				_, err := io.WriteString(w, testdays.Paste(snaps[len(snaps)-1]))
				return err
			}
			return testdays.WriteExport(w, "daily leaderboard", snaps)
		},
	}
	cmd.Flags().StringVar(&start, "start", time.Now().UTC().AddDate(0, 0, -90).Format(model.DateLayout), "First day (YYYY-MM-DD)")
	cmd.Flags().IntVar(&days, "days", 90, "Number of calendar days")
	cmd.Flags().IntVar(&roster, "roster", 45, "Players who may appear; at least 30")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed")
	cmd.Flags().IntVar(&skip, "skip-every", 0, "Leave out every n-th day")
	cmd.Flags().StringVar(&out, "out", "-", "Output file, - for stdout")
	cmd.Flags().BoolVar(&paste, "paste", false, "Write only the last day as a pasted leaderboard")
	return cmd
}
