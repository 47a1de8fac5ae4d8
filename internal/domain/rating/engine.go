// Package rating replays daily leaderboards into a longitudinal Elo-style rating.
//
// Every day is applied as one batch: all deltas are computed from the ratings
// at the start of the day, stabilised (log scaling, uncertainty dampening,
// floor clamp) and only then written back. Replaying the same snapshot
// sequence always yields bit-identical results.
package rating

import (
	"fmt"
	"math"
	"time"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/snapshot"
)

// Change is the audited outcome of one player's day.
type Change struct {
	Date   time.Time
	Player string
	Rank   int
	Score  int64

	Before   float64 // raw rating at the start of the day
	RawDelta float64 // model output before stabilisation
	Delta    float64 // applied change, After-Before
	After    float64

	Games              int     // games played including this day
	PregameUncertainty float64 // multiplier applied to today's loss
	Uncertainty        float64 // after today's decay
}

// DayResult holds the changes of one replayed day, ordered by rank.
type DayResult struct {
	Date    time.Time
	Changes []Change
}

// Result is the outcome of a full replay.
type Result struct {
	Players []PlayerState // final states ordered by name
	Days    []DayResult   // chronological
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithParams replaces the engine tuning.
func WithParams(p Params) Option {
	return func(e *Engine) {
		e.params = p
	}
}

// WithModel selects the per-day delta model.
func WithModel(m Model) Option {
	return func(e *Engine) {
		if m != nil {
			e.model = m
		}
	}
}

// Engine applies daily snapshots to a Ledger.
type Engine struct {
	params Params
	model  Model
}

// New creates an engine with DefaultParams and the pairwise model.
func New(opts ...Option) *Engine {
	e := &Engine{
		params: DefaultParams(),
		model:  Pairwise{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Params returns the engine tuning.
func (e *Engine) Params() Params { return e.params }

// Model returns the per-day model in use.
func (e *Engine) Model() Model { return e.model }

// Replay applies snaps in order to a fresh ledger. Snapshots must be strictly
// ascending by date.
func (e *Engine) Replay(snaps []snapshot.Snapshot) (Result, error) {
	ledger := NewLedger()
	days := make([]DayResult, 0, len(snaps))
	for _, s := range snaps {
		day, err := e.Step(ledger, s)
		if err != nil {
			return Result{}, err
		}
		days = append(days, day)
	}
	return Result{Players: ledger.States(), Days: days}, nil
}

// Step applies one day to ledger and returns the audited changes.
func (e *Engine) Step(ledger *Ledger, snap snapshot.Snapshot) (DayResult, error) {
	date := snap.Date()
	if !ledger.lastDate.IsZero() && !date.After(ledger.lastDate) {
		return DayResult{}, fmt.Errorf("%w: %s after %s", ErrOutOfOrder,
			model.FormatDay(date), model.FormatDay(ledger.lastDate))
	}

	p := e.params
	n := snap.Len()
	states := make([]*PlayerState, n)
	pregame := make([]float64, n)
	day := Day{Snapshot: snap, Ratings: make([]float64, n), Games: make([]int, n)}

	for i := 0; i < n; i++ {
		row := snap.At(i)
		st, ok := ledger.players[row.Player]
		if !ok {
			st = &PlayerState{Name: row.Player, Rating: p.Baseline, Uncertainty: p.UncertaintyBase}
			ledger.players[row.Player] = st
			pregame[i] = p.UncertaintyBase
		} else {
			missed := model.DaysBetween(st.LastSeen, date) - 1
			pregame[i] = p.GrownUncertainty(missed)
		}
		states[i] = st
		day.Ratings[i] = st.Rating
		day.Games[i] = st.Games
	}

	raw := e.model.Deltas(day, p)

	changes := make([]Change, n)
	for i, st := range states {
		d := raw[i]
		if p.LogScaling {
			d = p.LogScale(d)
		}
		if d < 0 {
			d *= pregame[i]
		}
		before := st.Rating
		after := math.Max(p.Floor, before+d)

		st.Rating = after
		st.Games++
		st.LastSeen = date
		st.Uncertainty = p.DecayUncertainty(pregame[i])

		row := snap.At(i)
		changes[i] = Change{
			Date:               date,
			Player:             row.Player,
			Rank:               row.Rank,
			Score:              row.Score,
			Before:             before,
			RawDelta:           raw[i],
			Delta:              after - before,
			After:              after,
			Games:              st.Games,
			PregameUncertainty: pregame[i],
			Uncertainty:        st.Uncertainty,
		}
	}
	ledger.lastDate = date
	return DayResult{Date: date, Changes: changes}, nil
}
