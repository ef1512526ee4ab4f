// Package dsr deflates an observed Sharpe ratio for selection bias: the
// more strategy variants were tried, the higher the Sharpe that pure
// chance produces, and the observed value must clear that benchmark
// after adjusting its standard error for skewed, fat-tailed returns.
package dsr

import (
	"fmt"
	"math"

	"github.com/tradewell/alphagate/internal/stats"
)

// eulerMascheroni appears in the expected maximum of N standard
// normal draws.
const eulerMascheroni = 0.5772156649015329

// Config holds DSR thresholds.
type Config struct {
	Alpha          float64 `yaml:"alpha"`            // significance level, default 0.05
	PeriodsPerYear float64 `yaml:"periods_per_year"` // Sharpe annualization
}

// DefaultConfig returns production DSR thresholds.
func DefaultConfig() Config {
	return Config{Alpha: 0.05, PeriodsPerYear: 252}
}

// Result reports the deflated significance of an observed Sharpe ratio.
type Result struct {
	Value           float64 `json:"value"`   // probability the Sharpe is genuine
	PValue          float64 `json:"p_value"` // probability it is luck; grows with trials
	SharpeRatio     float64 `json:"sharpe_ratio"`
	BenchmarkSharpe float64 `json:"benchmark_sharpe"` // expected max Sharpe from nTrials of noise
	NTrials         int     `json:"n_trials"`
	NObservations   int     `json:"n_observations"`
	Passed          bool    `json:"passed"`
}

// Estimate computes the deflated Sharpe ratio of a return series given
// the number of independent variants attempted before this one was
// selected. nTrials must be at least 1.
func Estimate(returns []float64, nTrials int, cfg Config) (Result, error) {
	if nTrials < 1 {
		return Result{}, fmt.Errorf("dsr: nTrials must be >= 1, got %d", nTrials)
	}

	n := len(returns)
	result := Result{NTrials: nTrials, NObservations: n}
	if n < 2 {
		// Not enough data to estimate a standard error; never significant.
		result.PValue = 1
		return result, nil
	}

	// Per-period Sharpe; annualization cancels out of the test statistic.
	sr := stats.Sharpe(returns, 1)
	result.SharpeRatio = sr * math.Sqrt(cfg.PeriodsPerYear)

	skew := stats.Skewness(returns)
	kurt := stats.Kurtosis(returns)

	sr0 := ExpectedMaxSharpe(nTrials, n)
	result.BenchmarkSharpe = sr0 * math.Sqrt(cfg.PeriodsPerYear)

	// Standard error of the Sharpe estimator under non-normal returns
	// (Mertens adjustment). Guarded below a small floor to keep the
	// statistic finite for pathological samples.
	variance := (1 - skew*sr + (kurt-1)/4*sr*sr) / float64(n-1)
	if variance < 1e-18 {
		variance = 1e-18
	}

	z := (sr - sr0) / math.Sqrt(variance)
	result.Value = stats.NormCDF(z)
	result.PValue = 1 - result.Value
	result.Passed = result.PValue < cfg.Alpha

	return result, nil
}

// ExpectedMaxSharpe returns the per-period Sharpe that the best of
// nTrials unskilled strategies is expected to show over nObservations,
// via the expected maximum of standard normal draws.
func ExpectedMaxSharpe(nTrials, nObservations int) float64 {
	if nTrials <= 1 || nObservations < 2 {
		return 0
	}
	nt := float64(nTrials)
	maxZ := (1-eulerMascheroni)*stats.NormPPF(1-1/nt) +
		eulerMascheroni*stats.NormPPF(1-1/(nt*math.E))
	// Null Sharpe estimates scatter with variance ~ 1/(n-1).
	return maxZ / math.Sqrt(float64(nObservations-1))
}

// MinimumRequiredSharpe inverts the test: the annualized Sharpe an
// indicator must show over nObservations periods to clear significance
// at the configured alpha after nTrials attempts. Uses the IID-normal
// standard error since the candidate's higher moments are unknown ahead
// of time.
func MinimumRequiredSharpe(nTrials, nObservations int, cfg Config) (float64, error) {
	if nTrials < 1 {
		return 0, fmt.Errorf("dsr: nTrials must be >= 1, got %d", nTrials)
	}
	if nObservations < 2 {
		return 0, fmt.Errorf("dsr: need at least 2 observations, got %d", nObservations)
	}

	sr0 := ExpectedMaxSharpe(nTrials, nObservations)
	zAlpha := stats.NormPPF(1 - cfg.Alpha)
	perPeriod := sr0 + zAlpha/math.Sqrt(float64(nObservations-1))
	return perPeriod * math.Sqrt(cfg.PeriodsPerYear), nil
}
