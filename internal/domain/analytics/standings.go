// Package analytics derives the published views of a replay: activity-gated
// standings and the day-by-day history enriched with rolling statistics.
package analytics

import (
	"sort"
	"time"

	"github.com/okian/ladder/internal/domain/compression"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/rating"
)

// Activity gate defaults.
const (
	DefaultActivityWindowDays = 14
	DefaultMinGames           = 10
)

// Gate decides whether a player counts as active on a given day.
type Gate struct {
	WindowDays int
	MinGames   int
}

// DefaultGate returns the production activity rule.
func DefaultGate() Gate {
	return Gate{WindowDays: DefaultActivityWindowDays, MinGames: DefaultMinGames}
}

// Active reports whether a player last seen on lastSeen with games played is
// active as of asOf.
func (g Gate) Active(lastSeen time.Time, games int, asOf time.Time) bool {
	return model.DaysBetween(lastSeen, asOf) <= g.WindowDays && games >= g.MinGames
}

// Standing is one row of a final leaderboard view.
type Standing struct {
	Rank         int       `json:"rank"`
	ActiveRank   *int      `json:"active_rank"`
	Player       string    `json:"player"`
	Rating       float64   `json:"rating"`
	RawRating    float64   `json:"raw_rating"`
	Games        int       `json:"games"`
	Confidence   float64   `json:"confidence"`
	LastSeen     time.Time `json:"last_seen"`
	DaysInactive int       `json:"days_inactive"`
	Uncertainty  float64   `json:"uncertainty"`
	Active       bool      `json:"active"`
}

// Standings holds both published views.
type Standings struct {
	AsOf   time.Time  `json:"as_of"`
	Active []Standing `json:"active"`
	All    []Standing `json:"all"`
}

// Builder derives views from replay output.
type Builder struct {
	Gate   Gate
	Params rating.Params
	Scaler compression.Scaler
}

// Standings builds the active-only and all-players views as of asOf.
func (b Builder) Standings(players []rating.PlayerState, asOf time.Time) Standings {
	all := make([]Standing, 0, len(players))
	for _, p := range players {
		inactive := model.DaysBetween(p.LastSeen, asOf)
		all = append(all, Standing{
			Player:       p.Name,
			Rating:       b.Scaler.Apply(p.Rating),
			RawRating:    p.Rating,
			Games:        p.Games,
			Confidence:   rating.Confidence(p.Games, b.Params.ConfidenceGames),
			LastSeen:     p.LastSeen,
			DaysInactive: inactive,
			Uncertainty:  b.displayUncertainty(p.Uncertainty, inactive),
			Active:       b.Gate.Active(p.LastSeen, p.Games, asOf),
		})
	}
	sort.SliceStable(all, func(i, j int) bool { return ranksBefore(all[i].Rating, all[i].Player, all[j].Rating, all[j].Player) })

	var active []Standing
	denseRank(len(all), func(i int) float64 { return all[i].Rating }, func(i, r int) { all[i].Rank = r })
	for i := range all {
		if all[i].Active {
			active = append(active, all[i])
		}
	}
	denseRank(len(active), func(i int) float64 { return active[i].Rating }, func(i, r int) {
		active[i].Rank = r
		ar := r
		active[i].ActiveRank = &ar
	})
	// mirror the active rank onto the all-players view
	byName := make(map[string]int, len(active))
	for _, s := range active {
		byName[s.Player] = *s.ActiveRank
	}
	for i := range all {
		if r, ok := byName[all[i].Player]; ok {
			ar := r
			all[i].ActiveRank = &ar
		}
	}
	return Standings{AsOf: asOf, Active: active, All: all}
}

// displayUncertainty projects the stored multiplier to asOf, so long-absent
// players show the loss amplification they would carry into their next game.
func (b Builder) displayUncertainty(stored float64, daysInactive int) float64 {
	if daysInactive <= 1 {
		return stored
	}
	grown := b.Params.GrownUncertainty(daysInactive - 1)
	if grown > stored {
		return grown
	}
	return stored
}

// ranksBefore orders by rating descending, then by name.
func ranksBefore(ra float64, na string, rb float64, nb string) bool {
	if ra != rb {
		return ra > rb
	}
	return na < nb
}

// denseRank assigns 1-based dense ranks to n items already sorted by value desc.
func denseRank(n int, value func(int) float64, set func(i, rank int)) {
	rank := 0
	for i := 0; i < n; i++ {
		if i == 0 || value(i) != value(i-1) {
			rank++
		}
		set(i, rank)
	}
}
