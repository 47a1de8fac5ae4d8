// Package output publishes pipeline results as header-included CSV artifacts.
//
// Every artifact is named <category>_<dataset>_<YYYY-MM-DD>.csv, where the
// date is the last day covered. Writes are atomic; a successful write removes
// the older artifacts of the same category and dataset.
package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/atomicfile"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

// Category identifies a kind of artifact.
type Category string

// Published categories.
const (
	CategoryStandingsActive   Category = "standings-active"
	CategoryStandingsAll      Category = "standings-all"
	CategoryHistory           Category = "history"
	CategoryRivalryEncounters Category = "rivalry-encounters"
	CategoryRivalryCloseness  Category = "rivalry-closeness"
	CategoryRivalryElite      Category = "rivalry-elite"
)

const ext = ".csv"

// Artifact describes one published file.
type Artifact struct {
	Category Category
	Dataset  model.Dataset
	AsOf     time.Time
	Path     string
}

// Option configures a Writer.
type Option func(*Writer)

// WithLogger sets the writer's logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.log = l
		}
	}
}

// Writer publishes and locates artifacts under one directory.
type Writer struct {
	dir string
	log logger.Logger
}

// NewWriter creates a Writer rooted at dir.
func NewWriter(dir string, opts ...Option) *Writer {
	w := &Writer{dir: dir, log: logger.Discard()}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.Named("output")
	return w
}

// Dir returns the artifact directory.
func (w *Writer) Dir() string { return w.dir }

// Name returns the file name of an artifact.
func Name(c Category, d model.Dataset, asOf time.Time) string {
	return fmt.Sprintf("%s_%s_%s%s", c, d, model.FormatDay(asOf), ext)
}

// Write atomically publishes a table and then removes the artifacts of the
// same category and dataset with an earlier date. Newer artifacts are kept,
// so a late run never replaces a fresher one. A failed write leaves the
// previous artifact in place.
func (w *Writer) Write(ctx context.Context, c Category, d model.Dataset, asOf time.Time, header []string, rows [][]string) (Artifact, error) {
	path := filepath.Join(w.dir, Name(c, d, asOf))
	if err := atomicfile.WriteCSV(path, header, rows); err != nil {
		metrics.RecordErrorByComponent("output", "write")
		return Artifact{}, fmt.Errorf("publish %s: %w", filepath.Base(path), err)
	}
	metrics.RecordArtifactWritten(string(c))

	old, err := w.list(c, d)
	if err != nil {
		return Artifact{}, err
	}
	day := model.Day(asOf)
	for _, a := range old {
		if !a.AsOf.Before(day) {
			continue
		}
		if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
			w.log.Warn(ctx, "could not remove superseded artifact",
				logger.String("path", a.Path), logger.Error(err))
		}
	}
	w.log.Info(ctx, "artifact written",
		logger.String("category", string(c)), logger.String("dataset", d.String()),
		logger.Int("rows", len(rows)), logger.String("path", path))
	return Artifact{Category: c, Dataset: d, AsOf: day, Path: path}, nil
}

// Latest returns the newest artifact of a category and dataset.
func (w *Writer) Latest(c Category, d model.Dataset) (Artifact, error) {
	all, err := w.list(c, d)
	if err != nil {
		return Artifact{}, err
	}
	if len(all) == 0 {
		return Artifact{}, fmt.Errorf("%w: %s/%s", ErrArtifactNotFound, c, d)
	}
	return all[len(all)-1], nil
}

// list returns the artifacts of a category and dataset sorted by date.
func (w *Writer) list(c Category, d model.Dataset) ([]Artifact, error) {
	entries, err := os.ReadDir(w.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	prefix := fmt.Sprintf("%s_%s_", c, d)
	var out []Artifact
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
			continue
		}
		asOf, err := model.ParseDay(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ext))
		if err != nil {
			continue
		}
		out = append(out, Artifact{Category: c, Dataset: d, AsOf: asOf, Path: filepath.Join(w.dir, name)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AsOf.Before(out[j].AsOf) })
	return out, nil
}
