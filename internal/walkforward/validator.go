// Package walkforward estimates out-of-sample robustness by repeatedly
// training on one stretch of history and testing on the stretch that
// follows it, either with a sliding fixed-size window (rolling) or a
// growing one (anchored).
package walkforward

import (
	"errors"
	"fmt"
	"math"

	"github.com/tradewell/alphagate/internal/stats"
)

// ErrInsufficientData marks a series too short for the requested
// partitioning. It is the one failure a sweep may skip over.
var ErrInsufficientData = errors.New("insufficient data")

// Partitioning methods.
const (
	MethodRolling  = "rolling"
	MethodAnchored = "anchored"
)

// Config holds walk-forward thresholds.
type Config struct {
	NPeriods                 int     `yaml:"n_periods"`                   // ≥2
	TrainRatio               float64 `yaml:"train_ratio"`                 // train share within a train+test pair
	Method                   string  `yaml:"method"`                      // rolling | anchored
	MinObservationsPerPeriod int     `yaml:"min_observations_per_period"` // data sufficiency floor
	MinEfficiency            float64 `yaml:"min_efficiency"`              // robust: OOS/IS ≥ 0.5
	MinConsistency           float64 `yaml:"min_consistency"`             // robust: ≥ 60% OOS-positive periods
	OverfitEfficiency        float64 `yaml:"overfit_efficiency"`          // below this (incl. negative) → overfit
	PeriodsPerYear           float64 `yaml:"periods_per_year"`
}

// DefaultConfig returns production walk-forward thresholds.
func DefaultConfig() Config {
	return Config{
		NPeriods:                 5,
		TrainRatio:               0.75,
		Method:                   MethodRolling,
		MinObservationsPerPeriod: 30,
		MinEfficiency:            0.5,
		MinConsistency:           0.6,
		OverfitEfficiency:        0.1,
		PeriodsPerYear:           252,
	}
}

// Period is one train/test partition outcome.
type Period struct {
	PeriodIndex       int     `json:"period_index"`
	NInSample         int     `json:"n_in_sample"`
	NOutOfSample      int     `json:"n_out_of_sample"`
	InSampleSharpe    float64 `json:"in_sample_sharpe"`
	OutOfSampleSharpe float64 `json:"out_of_sample_sharpe"`
	OOSPositive       bool    `json:"oos_positive"`
}

// Result aggregates all periods of one walk-forward run.
type Result struct {
	Method         string   `json:"method"`
	NPeriods       int      `json:"n_periods"`
	TrainRatio     float64  `json:"train_ratio"`
	Periods        []Period `json:"periods"`
	MeanISSharpe   float64  `json:"mean_is_sharpe"`
	MeanOOSSharpe  float64  `json:"mean_oos_sharpe"`
	Efficiency     float64  `json:"efficiency"`  // meanOOS / meanIS, bounded
	Consistency    float64  `json:"consistency"` // fraction of OOS-positive periods
	Degradation    float64  `json:"degradation"` // 1 - efficiency
	Interpretation string   `json:"interpretation"` // robust | marginal | overfit
	Passed         bool     `json:"passed"`
}

// efficiencyBound caps the OOS/IS ratio so a near-zero in-sample mean
// cannot blow the statistic up.
const efficiencyBound = 3.0

// Run validates a signal/return series with the configured partitioning.
// Invalid configuration or insufficient data is a caller error.
func Run(returns, signals []float64, cfg Config) (Result, error) {
	if len(returns) != len(signals) {
		return Result{}, fmt.Errorf("walkforward: length mismatch returns=%d signals=%d", len(returns), len(signals))
	}
	if cfg.NPeriods < 2 {
		return Result{}, fmt.Errorf("walkforward: nPeriods must be >= 2, got %d", cfg.NPeriods)
	}
	if cfg.Method != MethodRolling && cfg.Method != MethodAnchored {
		return Result{}, fmt.Errorf("walkforward: unknown method %q", cfg.Method)
	}
	if cfg.TrainRatio <= 0 || cfg.TrainRatio >= 1 {
		return Result{}, fmt.Errorf("walkforward: trainRatio must be in (0,1), got %v", cfg.TrainRatio)
	}
	if len(returns) < cfg.NPeriods*cfg.MinObservationsPerPeriod {
		return Result{}, fmt.Errorf("walkforward: %w: %d < %d periods × %d observations",
			ErrInsufficientData, len(returns), cfg.NPeriods, cfg.MinObservationsPerPeriod)
	}

	// Same sign convention as the PBO estimator: position from the
	// signal sign, direction chosen on the training stretch.
	strat := make([]float64, len(returns))
	for i := range returns {
		strat[i] = signOf(signals[i]) * returns[i]
	}

	segLen := len(strat) / cfg.NPeriods
	trainWindow := int(math.Round(float64(segLen) * cfg.TrainRatio / (1 - cfg.TrainRatio)))
	if trainWindow < 1 {
		trainWindow = 1
	}

	result := Result{Method: cfg.Method, NPeriods: cfg.NPeriods, TrainRatio: cfg.TrainRatio}
	var isSharpes, oosSharpes []float64
	positives := 0

	for i := 1; i < cfg.NPeriods; i++ {
		testStart := i * segLen
		testEnd := testStart + segLen
		if i == cfg.NPeriods-1 {
			testEnd = len(strat)
		}

		trainStart := 0
		if cfg.Method == MethodRolling {
			trainStart = testStart - trainWindow
			if trainStart < 0 {
				trainStart = 0
			}
		}

		train := strat[trainStart:testStart]
		test := strat[testStart:testEnd]

		dir := signOf(stats.Mean(train))
		is := stats.Sharpe(scale(train, dir), cfg.PeriodsPerYear)
		oos := stats.Sharpe(scale(test, dir), cfg.PeriodsPerYear)

		p := Period{
			PeriodIndex:       i,
			NInSample:         len(train),
			NOutOfSample:      len(test),
			InSampleSharpe:    is,
			OutOfSampleSharpe: oos,
			OOSPositive:       oos > 0,
		}
		result.Periods = append(result.Periods, p)

		isSharpes = append(isSharpes, is)
		oosSharpes = append(oosSharpes, oos)
		if p.OOSPositive {
			positives++
		}
	}

	result.MeanISSharpe = stats.Mean(isSharpes)
	result.MeanOOSSharpe = stats.Mean(oosSharpes)
	result.Efficiency = boundedRatio(result.MeanOOSSharpe, result.MeanISSharpe)
	result.Consistency = float64(positives) / float64(len(result.Periods))
	result.Degradation = 1 - result.Efficiency

	switch {
	case result.Efficiency >= cfg.MinEfficiency && result.Consistency >= cfg.MinConsistency:
		result.Interpretation = "robust"
	case result.Efficiency < cfg.OverfitEfficiency:
		result.Interpretation = "overfit"
	default:
		result.Interpretation = "marginal"
	}
	result.Passed = result.Interpretation == "robust"

	return result, nil
}

// SweepConfig is one cell of the walk-forward configuration matrix.
type SweepConfig struct {
	NPeriods   int
	TrainRatio float64
	Method     string
}

// Sweep runs the validator over a configuration matrix and returns
// every successful result for comparison. Cells whose implied period
// length violates data sufficiency are skipped; any other failure is a
// caller error and aborts the sweep.
func Sweep(returns, signals []float64, cells []SweepConfig, base Config) ([]Result, error) {
	var out []Result
	for _, cell := range cells {
		cfg := base
		cfg.NPeriods = cell.NPeriods
		cfg.TrainRatio = cell.TrainRatio
		cfg.Method = cell.Method

		res, err := Run(returns, signals, cfg)
		if errors.Is(err, ErrInsufficientData) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func boundedRatio(num, den float64) float64 {
	if math.Abs(den) < 1e-9 {
		return 0
	}
	r := num / den
	if r > efficiencyBound {
		return efficiencyBound
	}
	if r < -efficiencyBound {
		return -efficiencyBound
	}
	return r
}

func scale(v []float64, factor float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x * factor
	}
	return out
}

func signOf(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
