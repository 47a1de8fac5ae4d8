package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	app "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/config"
	"github.com/okian/ladder/internal/testdays"
	"github.com/okian/ladder/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests that bypass the root command
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

// execute runs the CLI with args and fresh flag state.
func execute(args ...string) (string, error) {
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// workspace points the configuration at fresh directories.
func workspace(t *testing.T) (dir string) {
	t.Helper()
	dir = t.TempDir()
	t.Setenv("LADDER_CONFIG", "")
	t.Setenv("LADDER_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("LADDER_OUTPUT_DIR", filepath.Join(dir, "out"))
	t.Setenv("LADDER_LOG_LEVEL", "warn")
	return dir
}

func writeExport(t *testing.T, path string, days int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	snaps := testdays.Season(testdays.Config{Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Days: days})
	if err := testdays.WriteExport(f, "daily", snaps); err != nil {
		t.Fatal(err)
	}
}

func TestCLI(t *testing.T) {
	convey.Convey("Given a fresh workspace and an export", t, func() {
		dir := workspace(t)
		export := filepath.Join(dir, "export.json")
		writeExport(t, export, 20)

		convey.Convey("When the export is ingested and run", func() {
			out, err := execute("ingest", "--file", export, "--run")

			convey.Convey("Then every artifact is published", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "admitted 20 snapshot(s)")
				convey.So(out, convey.ShouldContainSubstring, "full: 20 snapshot(s) through 2025-01-20")
				files, _ := filepath.Glob(filepath.Join(dir, "out", "*_full_2025-01-20.csv"))
				convey.So(files, convey.ShouldHaveLength, 6)
			})

			convey.Convey("And ingesting it again is rejected", func() {
				_, err := execute("ingest", "--file", export)
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "already stored")
			})

			convey.Convey("And rivalries can be recomputed alone", func() {
				out, err := execute("rivalry", "--dataset", "full")
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "qualifying pair(s)")
			})
		})

		convey.Convey("When the recent dataset has no cutoff", func() {
			_, err := execute("ingest", "--file", export)
			convey.So(err, convey.ShouldBeNil)
			_, err = execute("run", "--dataset", "recent")
			convey.So(errors.Is(err, app.ErrNoCutoff), convey.ShouldBeTrue)
		})

		convey.Convey("When a cutoff is configured", func() {
			t.Setenv("LADDER_RECENT_SINCE", "2025-01-15")
			_, err := execute("ingest", "--file", export)
			convey.So(err, convey.ShouldBeNil)
			out, err := execute("run", "--dataset", "recent")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "recent: 6 snapshot(s)")
		})

		convey.Convey("When rivalries are requested before any run", func() {
			out, err := execute("rivalry")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "no history artifact")
		})

		convey.Convey("When the SQLite store is configured", func() {
			t.Setenv("LADDER_STORE_DRIVER", "sqlite")
			out, err := execute("ingest", "--file", export, "--run")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "20 stored")
			_, err = os.Stat(filepath.Join(dir, "data", "ladder.db"))
			convey.So(err, convey.ShouldBeNil)
		})

		convey.Convey("When the configuration is invalid", func() {
			t.Setenv("LADDER_STORE_DRIVER", "mongo")
			_, err := execute("run")
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When ingest gets no source", func() {
			_, err := execute("ingest")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestServe(t *testing.T) {
	convey.Convey("Given a configuration on a free port", t, func() {
		workspace(t)
		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"
		cfg.DataDir = filepath.Join(t.TempDir(), "data")
		cfg.OutputDir = filepath.Join(t.TempDir(), "out")

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()

			convey.Convey("Then the server shuts down cleanly", func() {
				convey.So(serve(ctx, cfg), convey.ShouldBeNil)
			})
		})
	})
}

func TestCommandTree(t *testing.T) {
	convey.Convey("Given the root command", t, func() {
		names := map[string]bool{}
		for _, c := range rootCmd.Commands() {
			names[c.Name()] = true
		}
		convey.So(names, convey.ShouldContainKey, "ingest")
		convey.So(names, convey.ShouldContainKey, "run")
		convey.So(names, convey.ShouldContainKey, "rivalry")
		convey.So(names, convey.ShouldContainKey, "serve")
	})
}
