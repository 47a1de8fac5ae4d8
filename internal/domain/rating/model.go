package rating

import (
	"fmt"
	"sort"
	"strings"

	"github.com/okian/ladder/internal/domain/snapshot"
)

// Kind enumerates the per-day delta models.
type Kind string

// Supported models.
const (
	KindPairwise    Kind = "pairwise"
	KindDailyResult Kind = "daily"
)

// Day is the read-only input of a per-day model. Ratings and Games are aligned
// with the snapshot rows and reflect the state at the start of the day.
type Day struct {
	Snapshot snapshot.Snapshot
	Ratings  []float64
	Games    []int
}

// Model turns one day's ranking into raw per-player deltas aligned with the
// snapshot rows. Implementations must not depend on anything but their input.
type Model interface {
	Kind() Kind
	Deltas(day Day, p Params) []float64
}

// NewModel returns the model for kind.
func NewModel(kind Kind) (Model, error) {
	switch Kind(strings.ToLower(string(kind))) {
	case KindPairwise, "":
		return Pairwise{}, nil
	case KindDailyResult:
		return DailyResult{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownModel, kind)
}

// Pairwise compares every pair of players of the day, O(n²).
type Pairwise struct{}

// Kind implements Model.
func (Pairwise) Kind() Kind { return KindPairwise }

// Deltas implements Model.
//
// The loser's delta reuses the winner's surprise (1-e_i) scaled by the loser's
// own K; it is not recomputed from the loser's expectation. Only the winner's
// gain is reduced by the floor factor of the loser.
func (Pairwise) Deltas(day Day, p Params) []float64 {
	n := day.Snapshot.Len()
	deltas := make([]float64, n)
	if n < 2 {
		return deltas
	}
	maxGap := day.Snapshot.At(0).Score - day.Snapshot.At(n-1).Score

	for i := 0; i < n-1; i++ {
		winner := Side{Rating: day.Ratings[i], Score: day.Snapshot.At(i).Score, Games: day.Games[i]}
		for j := i + 1; j < n; j++ {
			loser := Side{Rating: day.Ratings[j], Score: day.Snapshot.At(j).Score, Games: day.Games[j]}
			gain, loss := PairDelta(p, winner, loser, maxGap)
			deltas[i] += gain
			deltas[j] += loss
		}
	}
	return deltas
}

// Side is one participant of a pairwise comparison.
type Side struct {
	Rating float64
	Score  int64
	Games  int
}

// PairDelta returns the winner's gain and the loser's (non-positive) change for
// one comparison. maxGap is only used when ratio weighting is disabled.
func PairDelta(p Params, winner, loser Side, maxGap int64) (gain, loss float64) {
	var w float64
	if p.RatioWeighting {
		w = p.RatioWeight(winner.Score, loser.Score)
	} else {
		w = p.GapWeight(winner.Score, loser.Score, maxGap)
	}
	ei := Expected(winner.Rating, loser.Rating)

	gain = p.KFactor(winner.Games) * w * (1 - ei) * p.FloorFactor(loser.Rating)
	loss = p.KFactor(loser.Games) * w * (ei - 1)
	return gain, loss
}

// DailyResult scores each player by how far they beat the rank their rating
// predicted, O(n log n).
type DailyResult struct{}

// Kind implements Model.
func (DailyResult) Kind() Kind { return KindDailyResult }

// Deltas implements Model. Players with equal ratings share the average of
// their expected ranks; actual ranks come straight from the snapshot.
func (DailyResult) Deltas(day Day, p Params) []float64 {
	n := day.Snapshot.Len()
	deltas := make([]float64, n)
	if n < 2 {
		return deltas
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return day.Ratings[idx[a]] > day.Ratings[idx[b]] })

	expected := make([]float64, n)
	for start := 0; start < n; {
		end := start
		for end+1 < n && day.Ratings[idx[end+1]] == day.Ratings[idx[start]] {
			end++
		}
		avg := float64(start+end)/2 + 1
		for q := start; q <= end; q++ {
			expected[idx[q]] = avg
		}
		start = end + 1
	}

	for i := 0; i < n; i++ {
		perf := (expected[i] - float64(day.Snapshot.At(i).Rank)) / float64(n-1)
		deltas[i] = p.DailyKFactor(day.Games[i]) * perf
	}
	return deltas
}
