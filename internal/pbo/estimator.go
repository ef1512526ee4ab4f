// Package pbo estimates the probability of backtest overfitting through
// combinatorial symmetric cross-validation: the series is cut into
// contiguous blocks, every half-sized block selection plays the role of
// the in-sample set, and the complement scores it out-of-sample.
package pbo

import (
	"fmt"
	"math"

	"github.com/tradewell/alphagate/internal/stats"
)

// Config holds PBO thresholds.
type Config struct {
	NSplits        int     `yaml:"n_splits"`         // even, default 8 → C(8,4)=70 combinations
	Threshold      float64 `yaml:"threshold"`        // pass: pbo < 0.5
	PeriodsPerYear float64 `yaml:"periods_per_year"` // Sharpe annualization
}

// DefaultConfig returns production PBO thresholds.
func DefaultConfig() Config {
	return Config{NSplits: 8, Threshold: 0.5, PeriodsPerYear: 252}
}

// Result reports the overfitting estimate for one indicator.
type Result struct {
	PBO                   float64 `json:"pbo"`
	NCombinations         int     `json:"n_combinations"`
	NUnderperformed       int     `json:"n_underperformed"`
	MeanInSampleSharpe    float64 `json:"mean_in_sample_sharpe"`
	MeanOutOfSampleSharpe float64 `json:"mean_out_of_sample_sharpe"`
	Degradation           float64 `json:"degradation"`
	Interpretation        string  `json:"interpretation"` // low_risk | moderate_risk | high_risk
	Passed                bool    `json:"passed"`
}

// Estimate runs combinatorial symmetric cross-validation over equal
// length return and signal series. The trading direction is selected on
// the in-sample blocks of each combination and held fixed for its
// out-of-sample evaluation; a combination underperforms when the chosen
// direction ranks strictly below the median of its long/short variant
// pair out of sample, i.e. its out-of-sample Sharpe is negative.
func Estimate(returns, signals []float64, cfg Config) (Result, error) {
	if len(returns) != len(signals) {
		return Result{}, fmt.Errorf("pbo: length mismatch returns=%d signals=%d", len(returns), len(signals))
	}
	if cfg.NSplits <= 0 || cfg.NSplits%2 != 0 {
		return Result{}, fmt.Errorf("pbo: nSplits must be even and positive, got %d", cfg.NSplits)
	}
	if len(returns) < cfg.NSplits {
		// Too little data to form one observation per block
		return Result{Interpretation: "high_risk"}, nil
	}

	// Strategy return per step: position sign taken from the signal.
	strat := make([]float64, len(returns))
	for i := range returns {
		strat[i] = signOf(signals[i]) * returns[i]
	}

	blocks := splitBlocks(strat, cfg.NSplits)
	combos := stats.Combinations(cfg.NSplits, cfg.NSplits/2)

	nCombos, err := stats.BinomialCoeff(cfg.NSplits, cfg.NSplits/2)
	if err != nil {
		return Result{}, err
	}

	result := Result{NCombinations: int(nCombos)}
	sumIS, sumOOS := 0.0, 0.0

	for _, combo := range combos {
		inSample := gather(blocks, combo, true)
		outSample := gather(blocks, combo, false)

		// Direction chosen in sample, applied to both sides.
		dir := signOf(stats.Mean(inSample))
		is := stats.Sharpe(scale(inSample, dir), cfg.PeriodsPerYear)
		oos := stats.Sharpe(scale(outSample, dir), cfg.PeriodsPerYear)

		sumIS += is
		sumOOS += oos
		if oos < 0 {
			result.NUnderperformed++
		}
	}

	result.PBO = float64(result.NUnderperformed) / float64(result.NCombinations)
	result.MeanInSampleSharpe = sumIS / float64(result.NCombinations)
	result.MeanOutOfSampleSharpe = sumOOS / float64(result.NCombinations)

	if result.MeanInSampleSharpe != 0 {
		result.Degradation = (result.MeanInSampleSharpe - result.MeanOutOfSampleSharpe) /
			math.Abs(result.MeanInSampleSharpe)
	}

	switch {
	case result.PBO < 0.3:
		result.Interpretation = "low_risk"
	case result.PBO < 0.5:
		result.Interpretation = "moderate_risk"
	default:
		result.Interpretation = "high_risk"
	}
	result.Passed = result.PBO < cfg.Threshold

	return result, nil
}

// splitBlocks cuts the series into n contiguous blocks; the last block
// absorbs the remainder.
func splitBlocks(series []float64, n int) [][]float64 {
	size := len(series) / n
	blocks := make([][]float64, n)
	for i := 0; i < n; i++ {
		start := i * size
		end := start + size
		if i == n-1 {
			end = len(series)
		}
		blocks[i] = series[start:end]
	}
	return blocks
}

// gather concatenates the selected blocks (selected=true) or their
// complement (selected=false), preserving temporal order.
func gather(blocks [][]float64, combo []int, selected bool) []float64 {
	inCombo := make(map[int]bool, len(combo))
	for _, i := range combo {
		inCombo[i] = true
	}

	var out []float64
	for i, b := range blocks {
		if inCombo[i] == selected {
			out = append(out, b...)
		}
	}
	return out
}

func scale(v []float64, factor float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x * factor
	}
	return out
}

// signOf treats zero as long so a flat signal still yields a finite,
// well-defined strategy.
func signOf(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
