package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/snapshot"
	"github.com/okian/ladder/pkg/atomicfile"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

var csvHeader = []string{"date", "rank", "player", "score"}

// CSVStore keeps every snapshot in one flat CSV file, one row per ranked
// entry. Each append rewrites the file atomically.
//
// Several processes may share the file. Writers serialise on mu and on an
// exclusive lock of path+".lock", and re-read the file under that lock so the
// duplicate check and the rewrite see every admitted day. Readers use the
// published slice and reload it when the file on disk has changed.
type CSVStore struct {
	path   string
	log    logger.Logger
	mu     sync.Mutex
	snaps  atomic.Pointer[loaded]
	closed atomic.Bool
}

// loaded is the published snapshot slice and the file state it was read from.
type loaded struct {
	snaps []snapshot.Snapshot
	stamp fileStamp
}

type fileStamp struct {
	modTime time.Time
	size    int64
}

func stampOf(path string) fileStamp {
	fi, err := os.Stat(path)
	if err != nil {
		return fileStamp{}
	}
	return fileStamp{modTime: fi.ModTime(), size: fi.Size()}
}

// NewCSVStore loads path, which may not exist yet.
func NewCSVStore(path string, opts ...Option) (*CSVStore, error) {
	cfg := applyOptions(opts)
	s := &CSVStore{path: path, log: cfg.log.Named("csv_store")}

	snaps, err := s.reload()
	if err != nil {
		return nil, err
	}
	metrics.UpdateStoredSnapshots(len(snaps))
	s.log.Info(context.Background(), "snapshot store loaded",
		logger.String("path", path), logger.Int("snapshots", len(snaps)))
	return s, nil
}

// reload reads the file and publishes the result. The stamp is taken before
// the read so a concurrent rename is picked up by the next refresh.
func (s *CSVStore) reload() ([]snapshot.Snapshot, error) {
	stamp := stampOf(s.path)
	snaps, err := s.load()
	if err != nil {
		return nil, err
	}
	s.snaps.Store(&loaded{snaps: snaps, stamp: stamp})
	return snaps, nil
}

// current returns the published slice, reloading it if another handle has
// rewritten the file since it was read.
func (s *CSVStore) current() ([]snapshot.Snapshot, error) {
	l := s.snaps.Load()
	if stampOf(s.path) == l.stamp {
		return l.snaps, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if l = s.snaps.Load(); stampOf(s.path) == l.stamp {
		return l.snaps, nil
	}
	snaps, err := s.reload()
	if err != nil {
		return nil, err
	}
	metrics.UpdateStoredSnapshots(len(snaps))
	return snaps, nil
}

func (s *CSVStore) load() ([]snapshot.Snapshot, error) {
	header, records, err := atomicfile.ReadCSV(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if header != nil && !slices.Equal(header, csvHeader) {
		return nil, fmt.Errorf("%w: unexpected header %v", ErrCorrupt, header)
	}
	rows := make([]storedRow, 0, len(records))
	for i, rec := range records {
		r, err := parseCSVRow(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCorrupt, i+2, err)
		}
		rows = append(rows, r)
	}
	return rowsToSnapshots(rows)
}

func parseCSVRow(rec []string) (storedRow, error) {
	if len(rec) != len(csvHeader) {
		return storedRow{}, fmt.Errorf("expected %d fields, got %d", len(csvHeader), len(rec))
	}
	d, err := model.ParseDay(rec[0])
	if err != nil {
		return storedRow{}, err
	}
	rank, err := strconv.Atoi(rec[1])
	if err != nil {
		return storedRow{}, err
	}
	score, err := strconv.ParseInt(rec[3], 10, 64)
	if err != nil {
		return storedRow{}, err
	}
	return storedRow{date: d, entry: model.Entry{Player: rec[2], Rank: rank, Score: score}}, nil
}

// Append implements Store.
func (s *CSVStore) Append(ctx context.Context, snaps ...snapshot.Snapshot) error {
	defer observe("append", time.Now())
	if s.closed.Load() {
		return ErrClosed
	}
	if len(snaps) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, err := acquireLock(s.path + ".lock")
	if err != nil {
		metrics.RecordErrorByComponent("repository", "lock")
		return err
	}
	defer func() {
		if err := lock.release(); err != nil {
			s.log.Warn(ctx, "could not release store lock", logger.Error(err))
		}
	}()

	current, err := s.reload()
	if err != nil {
		return err
	}
	stored := make(map[time.Time]struct{}, len(current))
	for _, sn := range current {
		stored[sn.Date()] = struct{}{}
	}
	if err := checkBatch(stored, snaps); err != nil {
		metrics.RecordErrorByComponent("repository", "duplicate_date")
		return err
	}

	next := make([]snapshot.Snapshot, 0, len(current)+len(snaps))
	next = append(next, current...)
	next = append(next, snaps...)
	snapshot.SortByDate(next)

	if err := atomicfile.WriteCSV(s.path, csvHeader, encodeRows(next)); err != nil {
		metrics.RecordErrorByComponent("repository", "write")
		return err
	}
	s.snaps.Store(&loaded{snaps: next, stamp: stampOf(s.path)})
	metrics.UpdateStoredSnapshots(len(next))
	s.log.Info(ctx, "snapshots appended",
		logger.Int("added", len(snaps)), logger.Int("total", len(next)))
	return nil
}

func encodeRows(snaps []snapshot.Snapshot) [][]string {
	rows := make([][]string, 0, len(snaps)*snapshot.RanksPerDay)
	for _, sn := range snaps {
		day := model.FormatDay(sn.Date())
		for i := 0; i < sn.Len(); i++ {
			e := sn.At(i)
			rows = append(rows, []string{day, strconv.Itoa(e.Rank), e.Player, strconv.FormatInt(e.Score, 10)})
		}
	}
	return rows
}

// List implements Store.
func (s *CSVStore) List(ctx context.Context) ([]snapshot.Snapshot, error) {
	defer observe("list", time.Now())
	if s.closed.Load() {
		return nil, ErrClosed
	}
	current, err := s.current()
	if err != nil {
		return nil, err
	}
	return append([]snapshot.Snapshot(nil), current...), nil
}

// Dates implements Store.
func (s *CSVStore) Dates(ctx context.Context) ([]time.Time, error) {
	snaps, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, len(snaps))
	for i, sn := range snaps {
		out[i] = sn.Date()
	}
	return out, nil
}

// Count implements Store.
func (s *CSVStore) Count(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	current, err := s.current()
	if err != nil {
		return 0, err
	}
	return len(current), nil
}

// Close implements Store.
func (s *CSVStore) Close() error {
	s.closed.Store(true)
	return nil
}
