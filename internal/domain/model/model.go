// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical calendar-date encoding used in storage and artifacts.
const DateLayout = "2006-01-02"

// ErrUnknownDataset is returned when a dataset name does not map to a lineage.
var ErrUnknownDataset = errors.New("unknown dataset")

// Entry is one ranked row of a daily leaderboard.
type Entry struct {
	Player string // display name, unique within a day
	Rank   int    // 1 is best
	Score  int64  // non-negative game score
}

// Dataset selects which historical lineage a pipeline run replays.
type Dataset string

// Supported datasets.
const (
	DatasetFull   Dataset = "full"   // every stored snapshot
	DatasetRecent Dataset = "recent" // snapshots on or after the configured cutoff
)

// Datasets lists every supported dataset in a stable order.
func Datasets() []Dataset { return []Dataset{DatasetFull, DatasetRecent} }

// ParseDataset maps a name to a Dataset.
func ParseDataset(name string) (Dataset, error) {
	switch Dataset(strings.ToLower(strings.TrimSpace(name))) {
	case DatasetFull:
		return DatasetFull, nil
	case DatasetRecent:
		return DatasetRecent, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDataset, name)
}

// String implements fmt.Stringer.
func (d Dataset) String() string { return string(d) }

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a DateLayout string into a UTC calendar date.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// FormatDay renders a calendar date with DateLayout.
func FormatDay(t time.Time) string { return t.UTC().Format(DateLayout) }

// DaysBetween returns the whole number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
