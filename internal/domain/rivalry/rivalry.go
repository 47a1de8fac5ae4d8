// Package rivalry derives head-to-head statistics for every pair of players
// who shared enough leaderboards.
package rivalry

import (
	"math"
	"sort"
	"time"

	"github.com/okian/ladder/internal/domain/analytics"
)

// Defaults.
const (
	DefaultMinEncounters = 7
	DefaultTopN          = 10
	closenessSpread      = 20.0
)

// Board names a ranking of records.
type Board string

// Available boards.
const (
	BoardEncounters Board = "encounters"
	BoardCloseness  Board = "closeness"
	BoardElite      Board = "elite"
)

// Boards lists every board in publication order.
func Boards() []Board { return []Board{BoardEncounters, BoardCloseness, BoardElite} }

// Record is the head-to-head summary of one unordered pair. PlayerA sorts
// before PlayerB.
type Record struct {
	PlayerA    string  `json:"player_a"`
	PlayerB    string  `json:"player_b"`
	Encounters int     `json:"encounters"`
	WinsA      int     `json:"wins_a"`
	WinsB      int     `json:"wins_b"`
	AvgRankA   float64 `json:"avg_rank_a"`
	AvgRankB   float64 `json:"avg_rank_b"`
	Closeness  float64 `json:"closeness"`
	Elite      float64 `json:"elite"`
}

// Option configures Compute.
type Option func(*settings)

type settings struct {
	minEncounters int
	topN          int
}

// WithMinEncounters drops pairs that met fewer than n times.
func WithMinEncounters(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.minEncounters = n
		}
	}
}

// WithTopN caps each board.
func WithTopN(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.topN = n
		}
	}
}

type pairKey struct{ a, b string }

type tally struct {
	encounters   int
	winsA, winsB int
	rankA, rankB int
}

type appearance struct {
	player string
	rank   int
}

// Compute scans the played rows of a history and returns every qualifying
// pair, ordered by names.
func Compute(rows []analytics.HistoryRow, opts ...Option) []Record {
	s := apply(opts)

	byDate := make(map[time.Time][]appearance)
	var dates []time.Time
	for _, r := range rows {
		if !r.Played {
			continue
		}
		if _, ok := byDate[r.Date]; !ok {
			dates = append(dates, r.Date)
		}
		byDate[r.Date] = append(byDate[r.Date], appearance{player: r.Player, rank: r.Rank})
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	tallies := make(map[pairKey]*tally)
	for _, d := range dates {
		day := byDate[d]
		sort.Slice(day, func(i, j int) bool { return day[i].player < day[j].player })
		for i := 0; i < len(day); i++ {
			for j := i + 1; j < len(day); j++ {
				a, b := day[i], day[j]
				key := pairKey{a.player, b.player}
				t := tallies[key]
				if t == nil {
					t = &tally{}
					tallies[key] = t
				}
				t.encounters++
				t.rankA += a.rank
				t.rankB += b.rank
				switch {
				case a.rank < b.rank:
					t.winsA++
				case b.rank < a.rank:
					t.winsB++
				}
			}
		}
	}

	out := make([]Record, 0, len(tallies))
	for key, t := range tallies {
		if t.encounters < s.minEncounters {
			continue
		}
		out = append(out, newRecord(key, t))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PlayerA != out[j].PlayerA {
			return out[i].PlayerA < out[j].PlayerA
		}
		return out[i].PlayerB < out[j].PlayerB
	})
	return out
}

func newRecord(key pairKey, t *tally) Record {
	n := float64(t.encounters)
	avgA := float64(t.rankA) / n
	avgB := float64(t.rankB) / n
	return Record{
		PlayerA:    key.a,
		PlayerB:    key.b,
		Encounters: t.encounters,
		WinsA:      t.winsA,
		WinsB:      t.winsB,
		AvgRankA:   avgA,
		AvgRankB:   avgB,
		Closeness:  Closeness(t.winsA, t.winsB, t.encounters),
		Elite:      n / ((avgA + avgB) / 2),
	}
}

// Closeness is 1 for a perfectly even series and falls toward 0 as one
// player dominates.
func Closeness(winsA, winsB, encounters int) float64 {
	if encounters <= 0 {
		return 0
	}
	diff := math.Abs(float64(winsA - winsB))
	return (1 - diff/float64(encounters)) * (1 / (1 + diff/closenessSpread))
}

// Top returns the first n records of board, best first. Ties fall back to the
// other measures and then to player names, so the order is total.
func Top(records []Record, board Board, n int) []Record {
	sorted := append([]Record(nil), records...)
	var primary func(Record) float64
	switch board {
	case BoardCloseness:
		primary = func(r Record) float64 { return r.Closeness }
	case BoardElite:
		primary = func(r Record) float64 { return r.Elite }
	default:
		primary = func(r Record) float64 { return float64(r.Encounters) }
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if pa, pb := primary(a), primary(b); pa != pb {
			return pa > pb
		}
		if a.Encounters != b.Encounters {
			return a.Encounters > b.Encounters
		}
		if a.PlayerA != b.PlayerA {
			return a.PlayerA < b.PlayerA
		}
		return a.PlayerB < b.PlayerB
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Leaderboards computes every board with the configured size.
func Leaderboards(records []Record, opts ...Option) map[Board][]Record {
	s := apply(opts)
	out := make(map[Board][]Record, 3)
	for _, b := range Boards() {
		out[b] = Top(records, b, s.topN)
	}
	return out
}

// ParseBoard maps a query value to a Board.
func ParseBoard(s string) (Board, bool) {
	for _, b := range Boards() {
		if string(b) == s {
			return b, true
		}
	}
	return "", false
}

func apply(opts []Option) settings {
	s := settings{minEncounters: DefaultMinEncounters, topN: DefaultTopN}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
