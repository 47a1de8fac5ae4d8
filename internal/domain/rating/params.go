package rating

import "math"

// Default tuning constants.
const (
	DefaultBaseline       = 1500.0
	DefaultFloor          = 1000.0
	DefaultFloorSoftZone  = 100.0
	DefaultKGlobal        = 180.0
	DefaultOpponents      = 29
	DefaultRatioCap       = 10.0
	DefaultLogScaleFactor = 50.0
	DefaultDailyK         = 48.0

	DefaultNewGames              = 10
	DefaultNewMultiplier         = 1.5
	DefaultProvisionalGames      = 30
	DefaultProvisionalMultiplier = 1.2

	DefaultUncertaintyBase   = 1.0
	DefaultUncertaintyMax    = 2.0
	DefaultUncertaintyGrowth = 0.02
	DefaultUncertaintyDecay  = 0.15

	DefaultConfidenceGames = 30
)

// Params holds every tunable of the engine. The zero value is not useful; start
// from DefaultParams.
type Params struct {
	Baseline      float64
	Floor         float64
	FloorSoftZone float64

	// KGlobal is the classic single-game K; the pairwise model divides it by
	// Opponents so one day's summed deltas stay comparable to one game.
	KGlobal   float64
	Opponents int

	NewGames              int
	NewMultiplier         float64
	ProvisionalGames      int
	ProvisionalMultiplier float64

	RatioWeighting bool
	RatioCap       float64

	LogScaling     bool
	LogScaleFactor float64

	UncertaintyBase   float64
	UncertaintyMax    float64
	UncertaintyGrowth float64 // per missed day
	UncertaintyDecay  float64 // fraction of excess removed per played day

	// DailyK is the flat per-day K of the daily-result model.
	DailyK float64

	ConfidenceGames int
}

// DefaultParams returns the production tuning.
func DefaultParams() Params {
	return Params{
		Baseline:              DefaultBaseline,
		Floor:                 DefaultFloor,
		FloorSoftZone:         DefaultFloorSoftZone,
		KGlobal:               DefaultKGlobal,
		Opponents:             DefaultOpponents,
		NewGames:              DefaultNewGames,
		NewMultiplier:         DefaultNewMultiplier,
		ProvisionalGames:      DefaultProvisionalGames,
		ProvisionalMultiplier: DefaultProvisionalMultiplier,
		RatioWeighting:        true,
		RatioCap:              DefaultRatioCap,
		LogScaling:            true,
		LogScaleFactor:        DefaultLogScaleFactor,
		UncertaintyBase:       DefaultUncertaintyBase,
		UncertaintyMax:        DefaultUncertaintyMax,
		UncertaintyGrowth:     DefaultUncertaintyGrowth,
		UncertaintyDecay:      DefaultUncertaintyDecay,
		DailyK:                DefaultDailyK,
		ConfidenceGames:       DefaultConfidenceGames,
	}
}

// KNormalized is the per-opponent K used by the pairwise model.
func (p Params) KNormalized() float64 {
	return p.KGlobal / float64(p.Opponents)
}

func (p Params) experience(games int) float64 {
	switch {
	case games < p.NewGames:
		return p.NewMultiplier
	case games < p.ProvisionalGames:
		return p.ProvisionalMultiplier
	default:
		return 1
	}
}

// KFactor returns the pairwise K for a player with the given games played.
func (p Params) KFactor(games int) float64 {
	return p.KNormalized() * p.experience(games)
}

// DailyKFactor returns the daily-result K for a player with the given games played.
func (p Params) DailyKFactor(games int) float64 {
	return p.DailyK * p.experience(games)
}

// FloorFactor scales a winner's gain by how far the loser sits above the floor:
// 0 at or below Floor, 1 from Floor+FloorSoftZone upwards, linear between.
func (p Params) FloorFactor(loserRating float64) float64 {
	if p.FloorSoftZone <= 0 {
		if loserRating <= p.Floor {
			return 0
		}
		return 1
	}
	return clamp((loserRating-p.Floor)/p.FloorSoftZone, 0, 1)
}

// RatioWeight maps a winner/loser score pair to [0.5, 1]; a RatioCap-fold
// score ratio saturates at 1 and a tie gives 0.5.
func (p Params) RatioWeight(winner, loser int64) float64 {
	var ratio float64
	switch {
	case loser > 0:
		ratio = float64(winner) / float64(loser)
	case winner > 0:
		return 1
	default:
		ratio = 1
	}
	return 0.5 + 0.5*math.Min(math.Log2(math.Max(ratio, 1))/math.Log2(p.RatioCap), 1)
}

// GapWeight is the linear fallback weight relative to the day's top-to-bottom gap.
func (p Params) GapWeight(winner, loser, maxGap int64) float64 {
	if maxGap <= 0 {
		return 0.5
	}
	return 0.5 + 0.5*float64(winner-loser)/float64(maxGap)
}

// LogScale compresses a day's aggregate delta, leaving small deltas nearly unchanged.
func (p Params) LogScale(delta float64) float64 {
	if delta == 0 || p.LogScaleFactor <= 0 {
		return delta
	}
	mag := p.LogScaleFactor * math.Log1p(math.Abs(delta)/p.LogScaleFactor)
	return math.Copysign(mag, delta)
}

// GrownUncertainty is the pre-game uncertainty after missedDays without play.
func (p Params) GrownUncertainty(missedDays int) float64 {
	if missedDays < 0 {
		missedDays = 0
	}
	return math.Min(p.UncertaintyMax, p.UncertaintyBase+float64(missedDays)*p.UncertaintyGrowth)
}

// DecayUncertainty moves u towards UncertaintyBase after a played day.
func (p Params) DecayUncertainty(u float64) float64 {
	return p.UncertaintyBase + (u-p.UncertaintyBase)*(1-p.UncertaintyDecay)
}

// Expected is the logistic Elo expectation of a player rated ri against rj.
func Expected(ri, rj float64) float64 {
	return 1 / (1 + math.Pow(10, (rj-ri)/400))
}

// Confidence is games/threshold clamped to [0, 1].
func Confidence(games, threshold int) float64 {
	if threshold <= 0 {
		return 1
	}
	return clamp(float64(games)/float64(threshold), 0, 1)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
