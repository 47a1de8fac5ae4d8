// Package ingest turns raw leaderboard text into validated snapshots. Two
// sources are supported: a single pasted leaderboard and a chat export with
// one leaderboard per message. Both produce the same snapshot shape.
package ingest

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/snapshot"
)

var (
	// "12. Some Name - 12,345 pts", also "#12)" and en/em dash or colon separators
	rowPattern = regexp.MustCompile(`^\s*#?(\d{1,3})\s*[.)]\s*(.+?)\s+[-–—:]\s+(\d[\d,.'\s\x{00a0}\x{202f}]*)\s*(?:pts|points)?\s*$`)
	// ISO date anywhere in a header line
	isoDate = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	// day-first date, e.g. 14/03/2025 or 14.03.2025
	dayFirst = regexp.MustCompile(`\b(\d{1,2})[./](\d{1,2})[./](\d{4})\b`)
)

// Option configures a Parser.
type Option func(*Parser)

// WithFallbackDate sets the date used when a leaderboard carries no header.
func WithFallbackDate(t time.Time) Option {
	return func(p *Parser) {
		p.fallback = model.Day(t)
	}
}

// Parser extracts leaderboards from text.
type Parser struct {
	fallback time.Time
}

// NewParser creates a Parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParsePaste parses one pasted leaderboard.
func (p *Parser) ParsePaste(text string) (snapshot.Snapshot, error) {
	date, rows, err := scan(text)
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	if date.IsZero() {
		date = p.fallback
	}
	if date.IsZero() {
		return snapshot.Snapshot{}, ErrNoDate
	}
	return snapshot.Validate(date, rows)
}

// scan returns the first header date (zero when absent) and the ranked rows.
func scan(text string) (time.Time, []model.Entry, error) {
	var (
		date time.Time
		rows []model.Entry
	)
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if m := rowPattern.FindStringSubmatch(line); m != nil {
			rank, err := strconv.Atoi(m[1])
			if err != nil {
				return time.Time{}, nil, fmt.Errorf("rank %q: %w", m[1], err)
			}
			score, err := parseScore(m[3])
			if err != nil {
				return time.Time{}, nil, err
			}
			rows = append(rows, model.Entry{Player: m[2], Rank: rank, Score: score})
			continue
		}
		if date.IsZero() && len(rows) == 0 {
			date = headerDate(line)
		}
	}
	if err := sc.Err(); err != nil {
		return time.Time{}, nil, err
	}
	if len(rows) == 0 {
		return time.Time{}, nil, ErrNoLeaderboard
	}
	return date, rows, nil
}

// parseScore strips thousands separators.
func parseScore(s string) (int64, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ',', '.', '\'', ' ', '\t', '\u00a0', '\u202f':
			return -1
		}
		return r
	}, s)
	v, err := strconv.ParseInt(clean, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("score %q: %w", s, err)
	}
	return v, nil
}

func headerDate(line string) time.Time {
	if m := isoDate.FindStringSubmatch(line); m != nil {
		if t, err := model.ParseDay(m[1]); err == nil {
			return t
		}
	}
	if m := dayFirst.FindStringSubmatch(line); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
		// reject rollovers such as 31/02
		if t.Day() == d && int(t.Month()) == mo {
			return t
		}
	}
	return time.Time{}
}
