package papertrade

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradewell/alphagate/internal/persistence"
	"github.com/tradewell/alphagate/internal/persistence/memory"
)

func day(s string) time.Time {
	t, err := time.Parse(persistence.DateFormat, s)
	if err != nil {
		panic(err)
	}
	return t
}

// seedRealized writes n realized rows whose outcomes follow
// outcome = f(signal).
func seedRealized(t *testing.T, repo persistence.PaperSignalRepo, indicatorID string, n int, f func(i int, signal float64) float64) {
	t.Helper()
	rng := rand.New(rand.NewSource(21))
	start := day("2025-04-01")
	rows := make([]persistence.PaperSignalRow, 0, n)
	for i := 0; i < n; i++ {
		sig := rng.NormFloat64()
		out := f(i, sig)
		rows = append(rows, persistence.PaperSignalRow{
			IndicatorID: indicatorID,
			Date:        start.AddDate(0, 0, i),
			Symbol:      fmt.Sprintf("SYM-%d", i%5),
			Signal:      sig,
			Outcome:     &out,
		})
	}
	require.NoError(t, repo.UpsertBatch(context.Background(), rows))
}

func TestEvaluate_ConfirmingRecordPromotes(t *testing.T) {
	repo := memory.NewPaperSignalRepo()
	rng := rand.New(rand.NewSource(5))
	seedRealized(t, repo, "ind-1", 80, func(_ int, sig float64) float64 {
		return 0.01*sig + 0.002*rng.NormFloat64()
	})

	e := New(repo, DefaultConfig())
	report, err := e.Evaluate(context.Background(), "ind-1", BacktestStats{Sharpe: 2.0, MaxDrawdown: -0.10})
	require.NoError(t, err)

	assert.Equal(t, ActionPromote, report.Action, "reason: %s", report.Reason)
	assert.Greater(t, report.RealizedIC, 0.5)
	assert.Greater(t, report.RealizedSharpe, 1.0)
	for _, c := range report.Checks {
		assert.True(t, c.Passed, "check %s: %.4f vs %.4f", c.Name, c.Value, c.Threshold)
	}
}

func TestEvaluate_InvertedEdgeRejects(t *testing.T) {
	repo := memory.NewPaperSignalRepo()
	rng := rand.New(rand.NewSource(9))
	seedRealized(t, repo, "ind-1", 80, func(_ int, sig float64) float64 {
		return -0.01*sig + 0.002*rng.NormFloat64()
	})

	e := New(repo, DefaultConfig())
	report, err := e.Evaluate(context.Background(), "ind-1", BacktestStats{Sharpe: 2.0, MaxDrawdown: -0.10})
	require.NoError(t, err)

	assert.Equal(t, ActionReject, report.Action, "reason: %s", report.Reason)
	assert.Equal(t, "high", report.Confidence, "80 outcomes is a large sample")
	assert.Less(t, report.RealizedIC, 0.0)
}

func TestEvaluate_UndersizedSampleExtends(t *testing.T) {
	repo := memory.NewPaperSignalRepo()
	seedRealized(t, repo, "ind-1", 5, func(_ int, sig float64) float64 { return 0.01 * sig })

	e := New(repo, DefaultConfig())
	report, err := e.Evaluate(context.Background(), "ind-1", BacktestStats{Sharpe: 2.0, MaxDrawdown: -0.10})
	require.NoError(t, err)

	assert.Equal(t, ActionExtend, report.Action)
	assert.Equal(t, "low", report.Confidence)
	assert.Empty(t, report.Checks, "no bands are scored on an undersized sample")
}

func TestEvaluate_MixedResultsExtend(t *testing.T) {
	repo := memory.NewPaperSignalRepo()
	rng := rand.New(rand.NewSource(13))
	// A live edge exists but the realized drawdown blows through the
	// backtest's band
	seedRealized(t, repo, "ind-1", 80, func(_ int, sig float64) float64 {
		return 0.005*sig + 0.01*rng.NormFloat64()
	})

	e := New(repo, DefaultConfig())
	report, err := e.Evaluate(context.Background(), "ind-1", BacktestStats{Sharpe: 2.0, MaxDrawdown: -0.0001})
	require.NoError(t, err)

	assert.Equal(t, ActionExtend, report.Action, "reason: %s", report.Reason)
}

func TestCanEvaluate_Readiness(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewPaperSignalRepo()
	e := New(repo, DefaultConfig())

	// Sunday start; the 8 trading days through Wednesday the 11th leave
	// 22 to go
	r, err := e.CanEvaluate(ctx, "ind-1", day("2025-06-01"), day("2025-06-11"))
	require.NoError(t, err)
	assert.False(t, r.CanEvaluate)
	assert.Equal(t, 8, r.TrackingDays)
	assert.Equal(t, 22, r.DaysUntilEvaluation)
	assert.Equal(t, 20, r.MissingOutcomes)

	seedRealized(t, repo, "ind-1", 25, func(_ int, sig float64) float64 { return 0.01 * sig })
	r, err = e.CanEvaluate(ctx, "ind-1", day("2025-06-01"), day("2025-07-15"))
	require.NoError(t, err)
	assert.True(t, r.CanEvaluate)
	assert.Equal(t, 32, r.TrackingDays)
	assert.Equal(t, 25, r.NOutcomes)
	assert.Zero(t, r.DaysUntilEvaluation)
	assert.Zero(t, r.MissingOutcomes)
}

func TestCanEvaluate_CountsTradingDaysNotCalendarDays(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewPaperSignalRepo()
	seedRealized(t, repo, "ind-1", 25, func(_ int, sig float64) float64 { return 0.01 * sig })
	e := New(repo, DefaultConfig())

	// Monday start plus 30 calendar days spans only 22 trading days:
	// the window is not yet satisfied
	r, err := e.CanEvaluate(ctx, "ind-1", day("2026-06-01"), day("2026-07-01"))
	require.NoError(t, err)
	assert.False(t, r.CanEvaluate)
	assert.Equal(t, 22, r.TrackingDays)
	assert.Equal(t, 8, r.DaysUntilEvaluation)
	assert.Zero(t, r.MissingOutcomes)
}

func TestCanEvaluate_OutcomeShortfallIsReported(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewPaperSignalRepo()
	seedRealized(t, repo, "ind-1", 12, func(_ int, sig float64) float64 { return 0.01 * sig })
	e := New(repo, DefaultConfig())

	// Window satisfied, sample short by 8 outcomes
	r, err := e.CanEvaluate(ctx, "ind-1", day("2025-06-01"), day("2025-07-15"))
	require.NoError(t, err)
	assert.False(t, r.CanEvaluate)
	assert.Zero(t, r.DaysUntilEvaluation)
	assert.Equal(t, 8, r.MissingOutcomes)
}
