// Package snapshot defines the immutable daily leaderboard and its admission rules.
//
// A Snapshot only exists after Validate accepted it, so every consumer
// downstream (store, rating engine, analytics) can rely on its shape.
package snapshot

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/okian/ladder/internal/domain/model"
)

// RanksPerDay is the exact number of ranked players in every daily leaderboard.
const RanksPerDay = 30

// Snapshot is one admitted calendar day of ranked results.
type Snapshot struct {
	date    time.Time
	entries []model.Entry // sorted by rank ascending
}

// Date returns the calendar day covered.
func (s Snapshot) Date() time.Time { return s.date }

// Entries returns a copy of the ranked rows, best first.
func (s Snapshot) Entries() []model.Entry { return slices.Clone(s.entries) }

// Len returns the number of ranked rows.
func (s Snapshot) Len() int { return len(s.entries) }

// At returns the row at zero-based position i (rank i+1).
func (s Snapshot) At(i int) model.Entry { return s.entries[i] }

// ValidationError describes every defect found in a candidate snapshot.
type ValidationError struct {
	Date           string   `json:"date"`
	BadDate        bool     `json:"bad_date,omitempty"`
	Rows           int      `json:"rows"`
	Missing        []int    `json:"missing,omitempty"`
	Duplicated     []int    `json:"duplicated,omitempty"`
	OutOfRange     []int    `json:"out_of_range,omitempty"`
	NegativeScores []string `json:"negative_scores,omitempty"`
	DuplicateNames []string `json:"duplicate_names,omitempty"`
	EmptyNames     int      `json:"empty_names,omitempty"`
}

func (e *ValidationError) Error() string {
	var parts []string
	if e.BadDate {
		parts = append(parts, fmt.Sprintf("unparseable date %q", e.Date))
	}
	if e.Rows != RanksPerDay {
		parts = append(parts, fmt.Sprintf("expected %d rows, got %d", RanksPerDay, e.Rows))
	}
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing ranks %v", e.Missing))
	}
	if len(e.Duplicated) > 0 {
		parts = append(parts, fmt.Sprintf("duplicated ranks %v", e.Duplicated))
	}
	if len(e.OutOfRange) > 0 {
		parts = append(parts, fmt.Sprintf("ranks out of range %v", e.OutOfRange))
	}
	if len(e.NegativeScores) > 0 {
		parts = append(parts, fmt.Sprintf("negative scores for %s", strings.Join(e.NegativeScores, ", ")))
	}
	if len(e.DuplicateNames) > 0 {
		parts = append(parts, fmt.Sprintf("players listed twice: %s", strings.Join(e.DuplicateNames, ", ")))
	}
	if e.EmptyNames > 0 {
		parts = append(parts, fmt.Sprintf("%d rows without a player name", e.EmptyNames))
	}
	return fmt.Sprintf("snapshot %s: %s", e.Date, strings.Join(parts, "; "))
}

// Unwrap ties every validation failure to ErrMalformed.
func (e *ValidationError) Unwrap() error { return ErrMalformed }

func (e *ValidationError) empty() bool {
	return !e.BadDate && e.Rows == RanksPerDay && len(e.Missing) == 0 &&
		len(e.Duplicated) == 0 && len(e.OutOfRange) == 0 && len(e.NegativeScores) == 0 &&
		len(e.DuplicateNames) == 0 && e.EmptyNames == 0
}

// ParseAndValidate parses a DateLayout date and validates the rows.
func ParseAndValidate(date string, entries []model.Entry) (Snapshot, error) {
	d, err := model.ParseDay(date)
	if err != nil {
		return Snapshot{}, &ValidationError{Date: date, BadDate: true, Rows: len(entries)}
	}
	return Validate(d, entries)
}

// Validate checks that entries form exactly one permutation of ranks 1..30 with
// non-negative scores and distinct, non-empty player names. It never repairs
// input: any defect yields a *ValidationError listing all of them.
func Validate(date time.Time, entries []model.Entry) (Snapshot, error) {
	verr := &ValidationError{Date: model.FormatDay(date), Rows: len(entries)}
	if date.IsZero() {
		verr.BadDate = true
	}

	seenRank := make(map[int]int, len(entries))
	seenName := make(map[string]int, len(entries))
	for _, e := range entries {
		switch {
		case e.Rank < 1 || e.Rank > RanksPerDay:
			verr.OutOfRange = append(verr.OutOfRange, e.Rank)
		default:
			seenRank[e.Rank]++
		}
		if e.Score < 0 {
			verr.NegativeScores = append(verr.NegativeScores, e.Player)
		}
		name := strings.TrimSpace(e.Player)
		if name == "" {
			verr.EmptyNames++
			continue
		}
		seenName[name]++
	}
	for r := 1; r <= RanksPerDay; r++ {
		switch n := seenRank[r]; {
		case n == 0:
			verr.Missing = append(verr.Missing, r)
		case n > 1:
			verr.Duplicated = append(verr.Duplicated, r)
		}
	}
	for name, n := range seenName {
		if n > 1 {
			verr.DuplicateNames = append(verr.DuplicateNames, name)
		}
	}
	sort.Ints(verr.OutOfRange)
	sort.Strings(verr.DuplicateNames)

	if !verr.empty() {
		return Snapshot{}, verr
	}

	out := make([]model.Entry, len(entries))
	for i, e := range entries {
		out[i] = model.Entry{Player: strings.TrimSpace(e.Player), Rank: e.Rank, Score: e.Score}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return Snapshot{date: model.Day(date), entries: out}, nil
}

// SortByDate orders snapshots chronologically in place.
func SortByDate(snaps []Snapshot) {
	sort.SliceStable(snaps, func(i, j int) bool { return snaps[i].date.Before(snaps[j].date) })
}

// CheckUnique returns ErrDuplicateDate naming the first repeated day in snaps.
func CheckUnique(snaps []Snapshot) error {
	seen := make(map[time.Time]struct{}, len(snaps))
	for _, s := range snaps {
		if _, dup := seen[s.date]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateDate, model.FormatDay(s.date))
		}
		seen[s.date] = struct{}{}
	}
	return nil
}
