// Package validate runs every statistical gate against a candidate
// indicator and aggregates the verdicts into a single auditable result.
// Gates share no mutable state and run concurrently.
package validate

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tradewell/alphagate/internal/dsr"
	"github.com/tradewell/alphagate/internal/ic"
	"github.com/tradewell/alphagate/internal/metrics"
	"github.com/tradewell/alphagate/internal/ortho"
	"github.com/tradewell/alphagate/internal/pbo"
	"github.com/tradewell/alphagate/internal/walkforward"
)

// Gate names as reported in results and metrics.
const (
	GateIC            = "ic"
	GatePBO           = "pbo"
	GateDSR           = "dsr"
	GateWalkForward   = "walk_forward"
	GateOrthogonality = "orthogonality"
)

// Config aggregates every gate's thresholds. Orthogonality can be
// demoted to advisory so a correlated-but-strong candidate still
// reaches review instead of auto-rejection.
type Config struct {
	IC                    ic.Config          `yaml:"ic"`
	PBO                   pbo.Config         `yaml:"pbo"`
	DSR                   dsr.Config         `yaml:"dsr"`
	WalkForward           walkforward.Config `yaml:"walk_forward"`
	Orthogonality         ortho.Config       `yaml:"orthogonality"`
	OrthogonalityRequired bool               `yaml:"orthogonality_required"`

	// DecisivePValue marks a DSR failure as beyond salvage; at or
	// above it the evaluation recommends retirement outright.
	DecisivePValue float64 `yaml:"decisive_p_value"`
}

// DefaultConfig returns production validation thresholds.
func DefaultConfig() Config {
	return Config{
		IC:                    ic.DefaultConfig(),
		PBO:                   pbo.DefaultConfig(),
		DSR:                   dsr.DefaultConfig(),
		WalkForward:           walkforward.DefaultConfig(),
		Orthogonality:         ortho.DefaultConfig(),
		OrthogonalityRequired: true,
		DecisivePValue:        0.5,
	}
}

// Input carries everything one validation run needs. SignalsByTime and
// ReturnsByTime are optional; without them the IC gate falls back to a
// rolling time-series IC over the flat series.
type Input struct {
	IndicatorID     string
	Signals         []float64
	Returns         []float64
	SignalsByTime   [][]float64
	ReturnsByTime   [][]float64
	Existing        map[string][]float64
	TrialsAttempted int
	TrialsSelected  int
}

// Trials records the multiple-testing context of a run.
type Trials struct {
	Attempted              int     `json:"attempted"`
	Selected               int     `json:"selected"`
	MultipleTestingPenalty float64 `json:"multiple_testing_penalty"` // ≥1
}

// GateOutcome is the pass/fail verdict of one gate.
type GateOutcome struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Required bool   `json:"required"`
	Detail   string `json:"detail"`
	Millis   int64  `json:"millis"`
}

// Result is the composite verdict of one validation run.
type Result struct {
	RunID           string             `json:"run_id"`
	IndicatorID     string             `json:"indicator_id"`
	ICStats         ic.Stats           `json:"ic_stats"`
	PBO             pbo.Result         `json:"pbo"`
	DSR             dsr.Result         `json:"dsr"`
	WalkForward     walkforward.Result `json:"walk_forward"`
	Orthogonality   ortho.Result       `json:"orthogonality"`
	Trials          Trials             `json:"trials"`
	Gates           []GateOutcome      `json:"gates"`
	GatesPassed     int                `json:"gates_passed"`
	TotalGates      int                `json:"total_gates"`
	OverallPassed   bool               `json:"overall_passed"`
	Summary         string             `json:"summary"`
	Recommendations []string           `json:"recommendations"`
}

// Runner executes validation pipelines. The metrics registry may be
// nil, e.g. in offline tooling.
type Runner struct {
	cfg     Config
	metrics *metrics.Registry
}

// NewRunner creates a pipeline runner.
func NewRunner(cfg Config, m *metrics.Registry) *Runner {
	return &Runner{cfg: cfg, metrics: m}
}

// Run executes all five gates concurrently and aggregates. Programmer
// errors from any gate (mismatched lengths, bad configuration) abort
// the whole run; statistical degeneracy only fails the affected gate.
func (r *Runner) Run(in Input) (*Result, error) {
	if in.TrialsAttempted < 1 {
		in.TrialsAttempted = 1
	}
	if in.TrialsSelected < 1 {
		in.TrialsSelected = 1
	}

	result := &Result{
		RunID:       uuid.NewString(),
		IndicatorID: in.IndicatorID,
		Trials:      Trials{Attempted: in.TrialsAttempted, Selected: in.TrialsSelected},
	}

	// Same sign convention everywhere: position from the signal sign.
	strat := make([]float64, 0, len(in.Returns))
	if len(in.Signals) == len(in.Returns) {
		for i := range in.Returns {
			if in.Signals[i] < 0 {
				strat = append(strat, -in.Returns[i])
			} else {
				strat = append(strat, in.Returns[i])
			}
		}
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		gateErr error
	)

	runGate := func(name string, required bool, fn func() (bool, string, error)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			passed, detail, err := fn()
			elapsed := time.Since(start)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gateErr == nil {
					gateErr = fmt.Errorf("%s gate: %w", name, err)
				}
				return
			}
			result.Gates = append(result.Gates, GateOutcome{
				Name:     name,
				Passed:   passed,
				Required: required,
				Detail:   detail,
				Millis:   elapsed.Milliseconds(),
			})
			if r.metrics != nil {
				r.metrics.GateDuration.WithLabelValues(name).Observe(elapsed.Seconds())
				outcome := "fail"
				if passed {
					outcome = "pass"
				}
				r.metrics.GateResults.WithLabelValues(name, outcome).Inc()
			}
		}()
	}

	runGate(GateIC, true, func() (bool, string, error) {
		series, err := r.icSeries(in)
		if err != nil {
			return false, "", err
		}
		result.ICStats = ic.CalculateStats(series, r.cfg.IC)
		s := result.ICStats
		return s.Passed, fmt.Sprintf("mean=%.4f std=%.4f icir=%.2f (%s)", s.Mean, s.Std, s.ICIR, s.Interpretation), nil
	})

	runGate(GatePBO, true, func() (bool, string, error) {
		res, err := pbo.Estimate(in.Returns, in.Signals, r.cfg.PBO)
		if err != nil {
			return false, "", err
		}
		result.PBO = res
		return res.Passed, fmt.Sprintf("pbo=%.3f over %d combinations (%s)", res.PBO, res.NCombinations, res.Interpretation), nil
	})

	runGate(GateDSR, true, func() (bool, string, error) {
		res, err := dsr.Estimate(strat, in.TrialsAttempted, r.cfg.DSR)
		if err != nil {
			return false, "", err
		}
		result.DSR = res
		return res.Passed, fmt.Sprintf("sharpe=%.2f p=%.4f after %d trials", res.SharpeRatio, res.PValue, res.NTrials), nil
	})

	runGate(GateWalkForward, true, func() (bool, string, error) {
		res, err := walkforward.Run(in.Returns, in.Signals, r.cfg.WalkForward)
		if err != nil {
			// Insufficient history is a routine condition for young
			// indicators, not a caller bug: fail the gate instead.
			if errors.Is(err, walkforward.ErrInsufficientData) {
				return false, err.Error(), nil
			}
			return false, "", err
		}
		result.WalkForward = res
		return res.Passed, fmt.Sprintf("efficiency=%.2f consistency=%.2f (%s)", res.Efficiency, res.Consistency, res.Interpretation), nil
	})

	runGate(GateOrthogonality, r.cfg.OrthogonalityRequired, func() (bool, string, error) {
		res, err := ortho.Check(in.Signals, in.Existing, r.cfg.Orthogonality)
		if err != nil {
			return false, "", err
		}
		result.Orthogonality = res
		detail := fmt.Sprintf("max_corr=%.2f vs %d existing", res.MaxCorrelationFound, len(in.Existing))
		if res.VIF != nil {
			detail += fmt.Sprintf(" vif=%.2f", *res.VIF)
		}
		return res.IsOrthogonal, detail, nil
	})

	wg.Wait()
	if gateErr != nil {
		return nil, gateErr
	}

	r.aggregate(result, strat)

	log.Info().
		Str("indicator", in.IndicatorID).
		Str("run_id", result.RunID).
		Bool("passed", result.OverallPassed).
		Int("gates_passed", result.GatesPassed).
		Str("summary", result.Summary).
		Msg("validation run complete")

	if r.metrics != nil {
		r.metrics.ValidationsTotal.Inc()
	}
	return result, nil
}

// icSeries builds the IC value series either cross-sectionally (one IC
// per time point) or from a rolling window over the flat series.
func (r *Runner) icSeries(in Input) ([]ic.Value, error) {
	if len(in.SignalsByTime) > 0 {
		if len(in.SignalsByTime) != len(in.ReturnsByTime) {
			return nil, fmt.Errorf("time dimension mismatch %d != %d", len(in.SignalsByTime), len(in.ReturnsByTime))
		}
		series := make([]ic.Value, 0, len(in.SignalsByTime))
		for t := range in.SignalsByTime {
			v, err := ic.CrossSectionalIC(in.SignalsByTime[t], in.ReturnsByTime[t], r.cfg.IC)
			if err != nil {
				return nil, fmt.Errorf("t=%d: %w", t, err)
			}
			series = append(series, v)
		}
		return series, nil
	}
	return ic.TimeSeriesIC(in.Signals, in.Returns, r.cfg.IC)
}

// aggregate folds gate outcomes into the composite verdict. The
// reduction is commutative: gate completion order never matters.
func (r *Runner) aggregate(result *Result, strat []float64) {
	sort.Slice(result.Gates, func(i, j int) bool { return result.Gates[i].Name < result.Gates[j].Name })

	result.TotalGates = len(result.Gates)
	result.OverallPassed = true
	for _, g := range result.Gates {
		if g.Passed {
			result.GatesPassed++
			continue
		}
		if g.Required {
			result.OverallPassed = false
		}
		result.Recommendations = append(result.Recommendations,
			fmt.Sprintf("%s gate failed: %s", g.Name, g.Detail))
	}
	result.Recommendations = append(result.Recommendations, result.Orthogonality.Recommendations...)

	result.Trials.MultipleTestingPenalty = r.multipleTestingPenalty(result.Trials.Attempted, len(strat))

	verdict := "REJECTED"
	if result.OverallPassed {
		verdict = "PASSED"
	}
	result.Summary = fmt.Sprintf("%s: %d/%d gates passed (ic=%s, pbo=%s, wf=%s, dsr_p=%.3f)",
		verdict, result.GatesPassed, result.TotalGates,
		result.ICStats.Interpretation, result.PBO.Interpretation,
		result.WalkForward.Interpretation, result.DSR.PValue)
}

// multipleTestingPenalty is the ratio between the Sharpe bar after
// nTrials attempts and the single-trial bar; always ≥ 1.
func (r *Runner) multipleTestingPenalty(nTrials, nObs int) float64 {
	if nObs < 2 {
		return 1
	}
	base, err := dsr.MinimumRequiredSharpe(1, nObs, r.cfg.DSR)
	if err != nil || base <= 0 {
		return 1
	}
	penalized, err := dsr.MinimumRequiredSharpe(nTrials, nObs, r.cfg.DSR)
	if err != nil {
		return 1
	}
	penalty := penalized / base
	if penalty < 1 {
		return 1
	}
	return penalty
}
