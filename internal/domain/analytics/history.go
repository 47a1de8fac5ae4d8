package analytics

import (
	"sort"
	"time"

	"github.com/okian/ladder/internal/domain/rating"
)

// Rolling window sizes, in days actually played.
const (
	trendWindow       = 7
	consistencyWindow = 14
	trendThreshold    = 1.5
	topTenRank        = 10
)

// Trend summarises recent form: lower average rank is better.
type Trend string

// Trend values.
const (
	TrendUp     Trend = "↑"
	TrendDown   Trend = "↓"
	TrendStable Trend = "→"
)

// HistoryRow is one player on one snapshot date. Rows exist for every date
// after a player's first appearance; on days not played the statistics are
// carried forward from the last played day.
type HistoryRow struct {
	Date        time.Time `json:"date"`
	Player      string    `json:"player"`
	Played      bool      `json:"played"`
	Rank        int       `json:"rank,omitempty"`
	Score       int64     `json:"score,omitempty"`
	RawRating   float64   `json:"raw_rating"`
	Rating      float64   `json:"rating"`
	Delta       float64   `json:"delta"`
	Games       int       `json:"games"`
	Uncertainty float64   `json:"uncertainty"`
	Active      bool      `json:"active"`
	ActiveRank  *int      `json:"active_rank"`
	Last7Avg    *float64  `json:"last7_avg"`
	Prev7Avg    *float64  `json:"prev7_avg"`
	Trend       Trend     `json:"trend"`
	Consistency *float64  `json:"consistency"`
	Wins        int       `json:"wins"`
	Top10       int       `json:"top10"`
	AvgRank     float64   `json:"avg_rank"`
	PeakRating  float64   `json:"peak_rating"`
}

type track struct {
	state    rating.PlayerState
	last7    *window
	prev7    *window
	recent14 *window
	wins     int
	top10    int
	rankSum  int
	peak     float64
}

func newTrack(name string) *track {
	return &track{
		state:    rating.PlayerState{Name: name},
		last7:    newWindow(trendWindow),
		prev7:    newWindow(trendWindow),
		recent14: newWindow(consistencyWindow),
	}
}

func (t *track) play(c rating.Change, compressed float64) {
	t.state.Rating = c.After
	t.state.Games = c.Games
	t.state.LastSeen = c.Date
	t.state.Uncertainty = c.Uncertainty

	r := float64(c.Rank)
	if old, ok := t.last7.push(r); ok {
		t.prev7.push(old)
	}
	t.recent14.push(r)
	if c.Rank == 1 {
		t.wins++
	}
	if c.Rank <= topTenRank {
		t.top10++
	}
	t.rankSum += c.Rank
	if t.state.Games == 1 || compressed > t.peak {
		t.peak = compressed
	}
}

// History replays the audited day results into per-player rows, with ratings
// compressed by the builder's frozen scaler.
func (b Builder) History(days []rating.DayResult) []HistoryRow {
	tracks := make(map[string]*track)
	var names []string
	var rows []HistoryRow

	for _, day := range days {
		played := make(map[string]rating.Change, len(day.Changes))
		for _, c := range day.Changes {
			t, ok := tracks[c.Player]
			if !ok {
				t = newTrack(c.Player)
				tracks[c.Player] = t
				names = append(names, c.Player)
			}
			t.play(c, b.Scaler.Apply(c.After))
			played[c.Player] = c
		}
		sort.Strings(names)

		dayRows := make([]HistoryRow, 0, len(names))
		for _, name := range names {
			t := tracks[name]
			row := HistoryRow{
				Date:        day.Date,
				Player:      name,
				RawRating:   t.state.Rating,
				Rating:      b.Scaler.Apply(t.state.Rating),
				Games:       t.state.Games,
				Uncertainty: t.state.Uncertainty,
				Active:      b.Gate.Active(t.state.LastSeen, t.state.Games, day.Date),
				Trend:       TrendStable,
				Wins:        t.wins,
				Top10:       t.top10,
				AvgRank:     float64(t.rankSum) / float64(t.state.Games),
				PeakRating:  t.peak,
			}
			if c, ok := played[name]; ok {
				row.Played = true
				row.Rank = c.Rank
				row.Score = c.Score
				row.Delta = c.Delta
			}
			if m, ok := t.last7.mean(); ok {
				row.Last7Avg = &m
			}
			if m, ok := t.prev7.mean(); ok {
				row.Prev7Avg = &m
				switch diff := m - *row.Last7Avg; {
				case diff > trendThreshold:
					row.Trend = TrendUp
				case diff < -trendThreshold:
					row.Trend = TrendDown
				}
			}
			if sd, ok := t.recent14.stdDev(); ok {
				row.Consistency = &sd
			}
			dayRows = append(dayRows, row)
		}

		sort.SliceStable(dayRows, func(i, j int) bool {
			return ranksBefore(dayRows[i].Rating, dayRows[i].Player, dayRows[j].Rating, dayRows[j].Player)
		})
		var activeIdx []int
		for i := range dayRows {
			if dayRows[i].Active {
				activeIdx = append(activeIdx, i)
			}
		}
		denseRank(len(activeIdx), func(k int) float64 { return dayRows[activeIdx[k]].Rating }, func(k, r int) {
			ar := r
			dayRows[activeIdx[k]].ActiveRank = &ar
		})
		rows = append(rows, dayRows...)
	}
	return rows
}

// PlayerHistory filters rows down to one player, preserving date order.
func PlayerHistory(rows []HistoryRow, player string) []HistoryRow {
	var out []HistoryRow
	for _, r := range rows {
		if r.Player == player {
			out = append(out, r)
		}
	}
	return out
}
