// Package repository persists the admitted daily snapshots.
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/snapshot"
	"github.com/okian/ladder/pkg/metrics"
)

// Supported drivers.
const (
	DriverCSV    = "csv"
	DriverSQLite = "sqlite"
)

// Store holds the chronological snapshot sequence. Snapshots are immutable
// once admitted; there is no update or delete.
type Store interface {
	// Append admits snaps as one batch. If any date is already stored or
	// repeated within the batch, nothing is written and ErrDuplicateDate is
	// returned.
	Append(ctx context.Context, snaps ...snapshot.Snapshot) error
	// List returns every stored snapshot in ascending date order.
	List(ctx context.Context) ([]snapshot.Snapshot, error)
	// Dates returns the stored dates in ascending order.
	Dates(ctx context.Context) ([]time.Time, error)
	// Count returns the number of stored snapshots.
	Count(ctx context.Context) (int, error)
	Close() error
}

// Open creates the store for driver at path.
func Open(ctx context.Context, driver, path string, opts ...Option) (Store, error) {
	switch strings.ToLower(driver) {
	case DriverCSV, "":
		return NewCSVStore(path, opts...)
	case DriverSQLite:
		return NewSQLiteStore(ctx, path, opts...)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
}

// checkBatch rejects dates that are already stored or repeated within snaps.
func checkBatch(stored map[time.Time]struct{}, snaps []snapshot.Snapshot) error {
	seen := make(map[time.Time]struct{}, len(snaps))
	for _, s := range snaps {
		d := s.Date()
		if _, ok := stored[d]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateDate, model.FormatDay(d))
		}
		if _, ok := seen[d]; ok {
			return fmt.Errorf("%w: %s repeated in batch", ErrDuplicateDate, model.FormatDay(d))
		}
		seen[d] = struct{}{}
	}
	return nil
}

// rowsToSnapshots groups flat rows by date and validates each group.
func rowsToSnapshots(rows []storedRow) ([]snapshot.Snapshot, error) {
	byDate := make(map[time.Time][]model.Entry)
	var dates []time.Time
	for _, r := range rows {
		if _, ok := byDate[r.date]; !ok {
			dates = append(dates, r.date)
		}
		byDate[r.date] = append(byDate[r.date], r.entry)
	}
	out := make([]snapshot.Snapshot, 0, len(dates))
	for _, d := range dates {
		snap, err := snapshot.Validate(d, byDate[d])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		out = append(out, snap)
	}
	snapshot.SortByDate(out)
	return out, nil
}

type storedRow struct {
	date  time.Time
	entry model.Entry
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}
