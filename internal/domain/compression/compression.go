// Package compression maps raw ratings onto a bounded display scale relative
// to the rating distribution.
//
// A Scaler is frozen from one distribution (normally the final ratings of a
// replay) and then applied to any raw value, so historical trajectories are
// expressed on the same scale as the final leaderboard.
package compression

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Display-scale constants.
const (
	Baseline    = 1500.0
	TargetMin   = 1000.0
	TargetMax   = 2000.0
	HardCeiling = 2200.0
)

// Transform constants.
const (
	negativeSpread = 2.5
	positiveSpread = 5.5
	eliteThreshold = 8.0
	eliteDamping   = 0.6
	linearShare    = 0.8
	logShare       = 0.2
	logGain        = 1.8
)

// Mode selects the transform family.
type Mode string

// Supported modes.
const (
	ModeHybrid Mode = "hybrid"
	ModeSoft   Mode = "soft"
)

// ParseMode maps a config value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeHybrid, "":
		return ModeHybrid, nil
	case ModeSoft:
		return ModeSoft, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Scaler is a frozen compression function.
type Scaler struct {
	Mode       Mode
	Median     float64
	StdDev     float64
	Degenerate bool // fewer than two values or zero spread; everything maps to Baseline
}

// NewScaler freezes the median and sample standard deviation of values. The
// values are sorted first so the result does not depend on input order.
func NewScaler(mode Mode, values []float64) Scaler {
	s := Scaler{Mode: mode}
	if len(values) < 2 {
		s.Degenerate = true
		if len(values) == 1 {
			s.Median = values[0]
		}
		return s
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	s.Median = median(sorted)
	s.StdDev = stdDev(sorted)
	if s.StdDev == 0 || math.IsNaN(s.StdDev) {
		s.Degenerate = true
	}
	return s
}

// Apply compresses one raw rating.
func (s Scaler) Apply(raw float64) float64 {
	if s.Degenerate {
		return Baseline
	}
	z := (raw - s.Median) / s.StdDev
	if s.Mode == ModeSoft {
		return soft(z)
	}
	return hybrid(z)
}

// Compress freezes a scaler from ratings and applies it to each of them.
func Compress(mode Mode, ratings map[string]float64) map[string]float64 {
	values := make([]float64, 0, len(ratings))
	for _, r := range ratings {
		values = append(values, r)
	}
	s := NewScaler(mode, values)
	out := make(map[string]float64, len(ratings))
	for name, r := range ratings {
		out[name] = s.Apply(r)
	}
	return out
}

// Upper returns the asymptotic ceiling of the mode.
func Upper(mode Mode) float64 {
	if mode == ModeSoft {
		return TargetMax
	}
	return HardCeiling
}

func soft(z float64) float64 {
	if z < 0 {
		return Baseline - math.Tanh(-z/negativeSpread)*(Baseline-TargetMin)
	}
	return Baseline + math.Tanh(z/negativeSpread)*(TargetMax-Baseline)
}

func hybrid(z float64) float64 {
	if z < 0 {
		return Baseline - math.Tanh(-z/negativeSpread)*(Baseline-TargetMin)
	}
	if z > eliteThreshold {
		excess := z - eliteThreshold
		z = eliteThreshold + math.Log1p(excess*eliteDamping)/eliteDamping
	}
	eff := z*linearShare + logGain*math.Log1p(z)*logShare
	return Baseline + math.Tanh(eff/positiveSpread)*(HardCeiling-Baseline)
}

// median expects sorted input.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// stdDev is the sample (n-1) standard deviation.
func stdDev(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}
