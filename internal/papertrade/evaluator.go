// Package papertrade decides whether an indicator's live paper record
// confirms its backtest before any capital is committed.
package papertrade

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tradewell/alphagate/internal/persistence"
	"github.com/tradewell/alphagate/internal/recorder"
	"github.com/tradewell/alphagate/internal/stats"
)

// Actions an evaluation can recommend.
const (
	ActionPromote = "promote"
	ActionExtend  = "extend"
	ActionReject  = "reject"
)

// Config sets the paper-trading acceptance bands.
type Config struct {
	MinTrackingDays     int     `yaml:"min_tracking_days"` // trading days, weekends excluded
	MinOutcomes         int     `yaml:"min_outcomes"`
	SharpeRetention     float64 `yaml:"sharpe_retention"`  // realized must keep this fraction of backtest Sharpe
	DrawdownMultiple    float64 `yaml:"drawdown_multiple"` // realized drawdown may exceed backtest by this factor
	MinHitRate          float64 `yaml:"min_hit_rate"`
	MinRealizedIC       float64 `yaml:"min_realized_ic"`
	RejectSharpe        float64 `yaml:"reject_sharpe"` // below this, reject instead of extend
	PeriodsPerYear      float64 `yaml:"periods_per_year"`
	LargeSampleOutcomes int     `yaml:"large_sample_outcomes"` // at or above, verdicts are high confidence
}

// DefaultConfig returns production paper-trading thresholds.
func DefaultConfig() Config {
	return Config{
		MinTrackingDays:     30,
		MinOutcomes:         20,
		SharpeRetention:     0.5,
		DrawdownMultiple:    1.5,
		MinHitRate:          0.45,
		MinRealizedIC:       0.0,
		RejectSharpe:        0.0,
		PeriodsPerYear:      252,
		LargeSampleOutcomes: 60,
	}
}

// BacktestStats is the promise the indicator made during validation.
type BacktestStats struct {
	Sharpe      float64 `json:"sharpe"`
	MaxDrawdown float64 `json:"max_drawdown"`
}

// Readiness says whether enough paper history exists to judge.
// TrackingDays and DaysUntilEvaluation count trading days, the same
// calendar the recorder writes on.
type Readiness struct {
	CanEvaluate         bool `json:"can_evaluate"`
	TrackingDays        int  `json:"tracking_days"`
	NOutcomes           int  `json:"n_outcomes"`
	DaysUntilEvaluation int  `json:"days_until_evaluation"`
	MissingOutcomes     int  `json:"missing_outcomes"`
}

// Check is one acceptance-band comparison.
type Check struct {
	Name      string  `json:"name"`
	Passed    bool    `json:"passed"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
}

// Report is the full paper-trading verdict.
type Report struct {
	IndicatorID     string  `json:"indicator_id"`
	RealizedSharpe  float64 `json:"realized_sharpe"`
	RealizedMaxDD   float64 `json:"realized_max_dd"`
	RealizedIC      float64 `json:"realized_ic"`
	RealizedHitRate float64 `json:"realized_hit_rate"`
	NOutcomes       int     `json:"n_outcomes"`
	Checks          []Check `json:"checks"`
	Action          string  `json:"action"`
	Confidence      string  `json:"confidence"`
	Reason          string  `json:"reason"`
}

// Evaluator reads realized paper signals and scores them against the
// backtest.
type Evaluator struct {
	repo persistence.PaperSignalRepo
	cfg  Config
}

// New creates a paper-trading evaluator.
func New(repo persistence.PaperSignalRepo, cfg Config) *Evaluator {
	return &Evaluator{repo: repo, cfg: cfg}
}

// CanEvaluate reports whether the tracking window and realized sample
// are both large enough to draw a conclusion.
func (e *Evaluator) CanEvaluate(ctx context.Context, indicatorID string, trackingStart, asOf time.Time) (Readiness, error) {
	realized, err := e.repo.ListRealized(ctx, indicatorID)
	if err != nil {
		return Readiness{}, fmt.Errorf("readiness check for %s: %w", indicatorID, err)
	}

	days := recorder.TradingDaysBetween(trackingStart, asOf)
	r := Readiness{
		TrackingDays: days,
		NOutcomes:    len(realized),
	}
	if days < e.cfg.MinTrackingDays {
		r.DaysUntilEvaluation = e.cfg.MinTrackingDays - days
	}
	if len(realized) < e.cfg.MinOutcomes {
		r.MissingOutcomes = e.cfg.MinOutcomes - len(realized)
	}
	r.CanEvaluate = r.DaysUntilEvaluation == 0 && r.MissingOutcomes == 0
	return r, nil
}

// Evaluate compares realized paper performance to the backtest bands
// and recommends promote, extend, or reject. Callers should gate on
// CanEvaluate first; an undersized sample always comes back "extend".
func (e *Evaluator) Evaluate(ctx context.Context, indicatorID string, backtest BacktestStats) (*Report, error) {
	realized, err := e.repo.ListRealized(ctx, indicatorID)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", indicatorID, err)
	}

	report := &Report{IndicatorID: indicatorID, NOutcomes: len(realized)}
	if len(realized) < e.cfg.MinOutcomes {
		report.Action = ActionExtend
		report.Confidence = "low"
		report.Reason = fmt.Sprintf("only %d realized outcomes, need %d", len(realized), e.cfg.MinOutcomes)
		return report, nil
	}

	signals := make([]float64, len(realized))
	outcomes := make([]float64, len(realized))
	strat := make([]float64, len(realized))
	for i, row := range realized {
		signals[i] = row.Signal
		outcomes[i] = *row.Outcome
		if row.Signal < 0 {
			strat[i] = -outcomes[i]
		} else {
			strat[i] = outcomes[i]
		}
	}

	report.RealizedSharpe = stats.Sharpe(strat, e.cfg.PeriodsPerYear)
	report.RealizedMaxDD = stats.MaxDrawdown(strat)
	report.RealizedHitRate = stats.HitRate(strat)
	ic, _, err := stats.Spearman(signals, outcomes)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", indicatorID, err)
	}
	report.RealizedIC = ic

	sharpeFloor := backtest.Sharpe * e.cfg.SharpeRetention
	ddCeiling := math.Abs(backtest.MaxDrawdown) * e.cfg.DrawdownMultiple
	report.Checks = []Check{
		{Name: "sharpe_retention", Passed: report.RealizedSharpe >= sharpeFloor, Value: report.RealizedSharpe, Threshold: sharpeFloor},
		{Name: "drawdown_bound", Passed: math.Abs(report.RealizedMaxDD) <= ddCeiling || ddCeiling == 0, Value: math.Abs(report.RealizedMaxDD), Threshold: ddCeiling},
		{Name: "hit_rate", Passed: report.RealizedHitRate >= e.cfg.MinHitRate, Value: report.RealizedHitRate, Threshold: e.cfg.MinHitRate},
		{Name: "realized_ic", Passed: report.RealizedIC > e.cfg.MinRealizedIC, Value: report.RealizedIC, Threshold: e.cfg.MinRealizedIC},
	}

	e.decide(report, backtest)

	log.Info().
		Str("indicator", indicatorID).
		Str("action", report.Action).
		Float64("realized_sharpe", report.RealizedSharpe).
		Float64("realized_ic", report.RealizedIC).
		Int("n_outcomes", report.NOutcomes).
		Msg("paper trading evaluated")
	return report, nil
}

// decide maps the checks onto an action. Confidence scales with the
// realized sample and with how far the numbers sit from the bands.
func (e *Evaluator) decide(report *Report, backtest BacktestStats) {
	allPassed := true
	for _, c := range report.Checks {
		if !c.Passed {
			allPassed = false
			break
		}
	}

	largeSample := report.NOutcomes >= e.cfg.LargeSampleOutcomes

	switch {
	case allPassed:
		report.Action = ActionPromote
		report.Confidence = "medium"
		if largeSample && report.RealizedSharpe >= backtest.Sharpe*0.8 {
			report.Confidence = "high"
		}
		report.Reason = "realized performance confirms the backtest"
	case report.RealizedSharpe < e.cfg.RejectSharpe && report.RealizedIC <= 0:
		report.Action = ActionReject
		report.Confidence = "medium"
		if largeSample {
			report.Confidence = "high"
		}
		report.Reason = fmt.Sprintf("realized Sharpe %.2f and IC %.3f show no live edge", report.RealizedSharpe, report.RealizedIC)
	default:
		report.Action = ActionExtend
		report.Confidence = "low"
		if largeSample {
			report.Confidence = "medium"
		}
		report.Reason = "mixed live results; extend the tracking window"
	}
}
