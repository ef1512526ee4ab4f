package ic

import (
	"fmt"
	"sort"

	"github.com/tradewell/alphagate/internal/stats"
)

// DefaultHorizons are the forward horizons (in trading days) tested by
// decay analysis: daily, weekly, fortnightly, monthly, quarterly.
var DefaultHorizons = []int{1, 5, 10, 21, 63}

// DecayResult describes how predictive power falls off as the forward
// horizon lengthens. HalfLife is nil when the IC never decays to half
// of its optimum within the tested horizons.
type DecayResult struct {
	ICByHorizon    map[int]float64 `json:"ic_by_horizon"`
	OptimalHorizon int             `json:"optimal_horizon"`
	HalfLife       *float64        `json:"half_life,omitempty"`
}

// AnalyzeDecay sums forward returns over each horizon, computes the mean
// cross-sectional IC across all time points with enough look-ahead, and
// selects the horizon with maximum IC. signalsByTime and returnsByTime
// are parallel time×asset matrices.
func AnalyzeDecay(signalsByTime, returnsByTime [][]float64, horizons []int, cfg Config) (DecayResult, error) {
	if len(signalsByTime) != len(returnsByTime) {
		return DecayResult{}, fmt.Errorf("ic decay: time dimension mismatch %d != %d",
			len(signalsByTime), len(returnsByTime))
	}
	if len(horizons) == 0 {
		horizons = DefaultHorizons
	}
	sorted := append([]int(nil), horizons...)
	sort.Ints(sorted)

	result := DecayResult{ICByHorizon: make(map[int]float64, len(sorted))}
	nTimes := len(signalsByTime)

	for _, h := range sorted {
		if h <= 0 {
			return DecayResult{}, fmt.Errorf("ic decay: horizon must be positive, got %d", h)
		}

		ics := make([]float64, 0, nTimes)
		for t := 0; t+h <= nTimes; t++ {
			fwd, err := forwardReturns(returnsByTime, t, h)
			if err != nil {
				return DecayResult{}, err
			}
			r, n, err := stats.Spearman(signalsByTime[t], fwd)
			if err != nil {
				return DecayResult{}, fmt.Errorf("ic decay at t=%d h=%d: %w", t, h, err)
			}
			if n >= cfg.MinObservations {
				ics = append(ics, r)
			}
		}
		result.ICByHorizon[h] = stats.Mean(ics)
	}

	// Horizon with maximum IC wins; ties resolve to the shorter horizon.
	result.OptimalHorizon = sorted[0]
	for _, h := range sorted {
		if result.ICByHorizon[h] > result.ICByHorizon[result.OptimalHorizon] {
			result.OptimalHorizon = h
		}
	}

	result.HalfLife = interpolateHalfLife(sorted, result.ICByHorizon, result.OptimalHorizon)
	return result, nil
}

// forwardReturns sums per-asset returns over [t, t+h).
func forwardReturns(returnsByTime [][]float64, t, h int) ([]float64, error) {
	nAssets := len(returnsByTime[t])
	fwd := make([]float64, nAssets)
	for k := 0; k < h; k++ {
		row := returnsByTime[t+k]
		if len(row) != nAssets {
			return nil, fmt.Errorf("ic decay: ragged returns matrix at t=%d", t+k)
		}
		for a := 0; a < nAssets; a++ {
			fwd[a] += row[a]
		}
	}
	return fwd, nil
}

// interpolateHalfLife finds the horizon where IC first drops to half of
// the optimum, linearly interpolated between tested horizons.
func interpolateHalfLife(horizons []int, icByHorizon map[int]float64, optimal int) *float64 {
	peak := icByHorizon[optimal]
	if peak <= 0 {
		return nil
	}
	half := peak / 2

	prev := optimal
	for _, h := range horizons {
		if h <= optimal {
			continue
		}
		cur := icByHorizon[h]
		if cur <= half {
			prevIC := icByHorizon[prev]
			hl := float64(prev)
			if prevIC != cur {
				hl = float64(prev) + float64(h-prev)*(prevIC-half)/(prevIC-cur)
			}
			return &hl
		}
		prev = h
	}
	return nil
}
