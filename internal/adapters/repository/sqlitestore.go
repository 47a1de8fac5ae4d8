package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/snapshot"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	day TEXT PRIMARY KEY,
	admitted_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS entries (
	day    TEXT    NOT NULL REFERENCES snapshots(day),
	rank   INTEGER NOT NULL,
	player TEXT    NOT NULL,
	score  INTEGER NOT NULL,
	PRIMARY KEY (day, rank),
	UNIQUE (day, player)
);
`

// SQLiteStore keeps snapshots in a SQLite database. Appends run in one
// transaction, so a rejected batch leaves no rows behind.
type SQLiteStore struct {
	db  *sql.DB
	log logger.Logger
}

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	cfg := applyOptions(opts)
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// a single connection keeps transactions and pragmas on one handle
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", sqliteSchema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate sqlite %s: %w", path, err)
		}
	}

	s := &SQLiteStore{db: db, log: cfg.log.Named("sqlite_store")}
	n, err := s.Count(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	metrics.UpdateStoredSnapshots(n)
	s.log.Info(ctx, "snapshot store opened", logger.String("path", path), logger.Int("snapshots", n))
	return s, nil
}

// Append implements Store.
func (s *SQLiteStore) Append(ctx context.Context, snaps ...snapshot.Snapshot) error {
	defer observe("append", time.Now())
	if len(snaps) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stored := make(map[time.Time]struct{}, len(snaps))
	for _, sn := range snaps {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM snapshots WHERE day = ?`, model.FormatDay(sn.Date())).Scan(&one)
		switch {
		case err == nil:
			stored[sn.Date()] = struct{}{}
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}
	}
	if err := checkBatch(stored, snaps); err != nil {
		metrics.RecordErrorByComponent("repository", "duplicate_date")
		return err
	}

	dayStmt, err := tx.PrepareContext(ctx, `INSERT INTO snapshots (day, admitted_at) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer dayStmt.Close()
	rowStmt, err := tx.PrepareContext(ctx, `INSERT INTO entries (day, rank, player, score) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer rowStmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, sn := range snaps {
		day := model.FormatDay(sn.Date())
		if _, err := dayStmt.ExecContext(ctx, day, now); err != nil {
			return fmt.Errorf("insert %s: %w", day, err)
		}
		for i := 0; i < sn.Len(); i++ {
			e := sn.At(i)
			if _, err := rowStmt.ExecContext(ctx, day, e.Rank, e.Player, e.Score); err != nil {
				return fmt.Errorf("insert %s rank %d: %w", day, e.Rank, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		metrics.RecordErrorByComponent("repository", "write")
		return err
	}

	n, err := s.Count(ctx)
	if err == nil {
		metrics.UpdateStoredSnapshots(n)
	}
	s.log.Info(ctx, "snapshots appended", logger.Int("added", len(snaps)), logger.Int("total", n))
	return nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) ([]snapshot.Snapshot, error) {
	defer observe("list", time.Now())
	rows, err := s.db.QueryContext(ctx, `SELECT day, rank, player, score FROM entries ORDER BY day, rank`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storedRow
	for rows.Next() {
		var (
			day string
			r   storedRow
		)
		if err := rows.Scan(&day, &r.entry.Rank, &r.entry.Player, &r.entry.Score); err != nil {
			return nil, err
		}
		if r.date, err = model.ParseDay(day); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rowsToSnapshots(out)
}

// Dates implements Store.
func (s *SQLiteStore) Dates(ctx context.Context) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT day FROM snapshots ORDER BY day`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		d, err := model.ParseDay(day)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
