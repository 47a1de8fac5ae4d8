// Package testdays generates deterministic synthetic leaderboard seasons for
// tests and for seeding a local instance.
package testdays

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/snapshot"
)

// Generation defaults.
const (
	defaultRosterSize = 45
	defaultSeed       = 42
	baseScore         = 1_000
	skillSpread       = 9_000
	noiseFraction     = 0.35
)

// Config controls a generated season.
type Config struct {
	Start      time.Time // first calendar day
	Days       int       // number of consecutive days
	RosterSize int       // players that may appear; must be >= 30
	Seed       int64     // rng seed; same seed, same season
	SkipEvery  int       // when > 0, every SkipEvery-th day is left out of the season
}

// Roster returns n deterministic player names.
func Roster(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("player%03d", i+1)
	}
	return names
}

// Day builds a validated snapshot where players[i] finishes at rank i+1.
// Scores descend from top, by step, and never go below zero.
func Day(date time.Time, players []string, top, step int64) snapshot.Snapshot {
	rows := make([]model.Entry, len(players))
	for i, p := range players {
		score := top - int64(i)*step
		if score < 0 {
			score = 0
		}
		rows[i] = model.Entry{Player: p, Rank: i + 1, Score: score}
	}
	snap, err := snapshot.Validate(date, rows)
	if err != nil {
		panic(err)
	}
	return snap
}

// Repeat returns days consecutive copies of the same ranking.
func Repeat(start time.Time, days int, players []string, top, step int64) []snapshot.Snapshot {
	out := make([]snapshot.Snapshot, days)
	for i := range out {
		out[i] = Day(start.AddDate(0, 0, i), players, top, step)
	}
	return out
}

// Season generates a noisy but skill-driven season. Each day 30 players are
// drawn from the roster and ranked by skill plus noise.
func Season(cfg Config) []snapshot.Snapshot {
	if cfg.RosterSize < snapshot.RanksPerDay {
		cfg.RosterSize = defaultRosterSize
	}
	if cfg.Seed == 0 {
		cfg.Seed = defaultSeed
	}
	if cfg.Start.IsZero() {
		cfg.Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // deterministic fixtures

	roster := Roster(cfg.RosterSize)
	skill := make(map[string]float64, len(roster))
	for i, p := range roster {
		// earlier players are stronger
		skill[p] = baseScore + skillSpread*float64(len(roster)-i)/float64(len(roster))
	}

	var out []snapshot.Snapshot
	for d := 0; d < cfg.Days; d++ {
		if cfg.SkipEvery > 0 && d > 0 && d%cfg.SkipEvery == 0 {
			continue
		}
		picked := append([]string(nil), roster...)
		rng.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
		picked = picked[:snapshot.RanksPerDay]

		type draw struct {
			name  string
			score int64
		}
		draws := make([]draw, len(picked))
		for i, p := range picked {
			s := skill[p] * (1 + noiseFraction*(rng.Float64()*2-1))
			draws[i] = draw{name: p, score: int64(s)}
		}
		sort.Slice(draws, func(i, j int) bool {
			if draws[i].score != draws[j].score {
				return draws[i].score > draws[j].score
			}
			return draws[i].name < draws[j].name
		})

		rows := make([]model.Entry, len(draws))
		for i, dr := range draws {
			rows[i] = model.Entry{Player: dr.name, Rank: i + 1, Score: dr.score}
		}
		snap, err := snapshot.Validate(cfg.Start.AddDate(0, 0, d), rows)
		if err != nil {
			panic(err)
		}
		out = append(out, snap)
	}
	return out
}
