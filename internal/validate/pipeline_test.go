package validate

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// healthyInput builds a signal with a genuine, persistent relationship
// to next-period returns.
func healthyInput(n int) Input {
	rng := rand.New(rand.NewSource(7))
	signals := make([]float64, n)
	returns := make([]float64, n)
	for i := 0; i < n; i++ {
		signals[i] = rng.NormFloat64()
		returns[i] = 0.01*signals[i] + 0.001*rng.NormFloat64()
	}
	return Input{
		IndicatorID:     "momentum_12_1",
		Signals:         signals,
		Returns:         returns,
		TrialsAttempted: 3,
		TrialsSelected:  1,
	}
}

// noiseInput builds a signal with no relationship to returns at all.
func noiseInput(n int) Input {
	rng := rand.New(rand.NewSource(11))
	signals := make([]float64, n)
	returns := make([]float64, n)
	for i := 0; i < n; i++ {
		signals[i] = rng.NormFloat64()
		returns[i] = 0.01 * rng.NormFloat64()
	}
	return Input{
		IndicatorID:     "lunar_phase",
		Signals:         signals,
		Returns:         returns,
		TrialsAttempted: 50,
		TrialsSelected:  1,
	}
}

func TestRun_HealthyIndicatorPassesAndDeploys(t *testing.T) {
	r := NewRunner(DefaultConfig(), nil)

	res, err := r.Run(healthyInput(600))
	require.NoError(t, err)

	assert.True(t, res.OverallPassed, "summary: %s", res.Summary)
	assert.Equal(t, 5, res.TotalGates)
	assert.Equal(t, 5, res.GatesPassed)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "momentum_12_1", res.IndicatorID)

	ev := r.Evaluate(res)
	assert.Equal(t, ActionDeploy, ev.Action)
	assert.Equal(t, "high", ev.Confidence)
}

func TestRun_PureNoiseRetires(t *testing.T) {
	r := NewRunner(DefaultConfig(), nil)

	res, err := r.Run(noiseInput(600))
	require.NoError(t, err)

	assert.False(t, res.OverallPassed, "summary: %s", res.Summary)
	assert.GreaterOrEqual(t, res.DSR.PValue, 0.5,
		"a noise indicator tried 50 times should look worse than the luck benchmark")

	ev := r.Evaluate(res)
	assert.Equal(t, ActionRetire, ev.Action)
	assert.Equal(t, "high", ev.Confidence)
}

func TestRun_GateErrorAbortsRun(t *testing.T) {
	r := NewRunner(DefaultConfig(), nil)

	_, err := r.Run(Input{
		IndicatorID: "broken",
		Signals:     []float64{1, 2, 3},
		Returns:     []float64{0.1, 0.2},
	})
	require.Error(t, err)
}

func TestRun_AdvisoryOrthogonalityDoesNotBlock(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OrthogonalityRequired = false
	r := NewRunner(cfg, nil)

	in := healthyInput(600)
	// An existing indicator that is nearly the same series
	dup := make([]float64, len(in.Signals))
	rng := rand.New(rand.NewSource(3))
	for i, s := range in.Signals {
		dup[i] = s + 0.01*rng.NormFloat64()
	}
	in.Existing = map[string][]float64{"momentum_12_1_v0": dup}

	res, err := r.Run(in)
	require.NoError(t, err)

	assert.False(t, res.Orthogonality.IsOrthogonal)
	assert.True(t, res.OverallPassed, "advisory orthogonality must not veto")
	assert.Equal(t, 4, res.GatesPassed)
	assert.NotEmpty(t, res.Recommendations)
}

func TestRun_RequiredOrthogonalityBlocks(t *testing.T) {
	r := NewRunner(DefaultConfig(), nil)

	in := healthyInput(600)
	in.Existing = map[string][]float64{"momentum_12_1_v0": append([]float64(nil), in.Signals...)}

	res, err := r.Run(in)
	require.NoError(t, err)
	assert.False(t, res.OverallPassed)

	ev := r.Evaluate(res)
	assert.Equal(t, ActionRetry, ev.Action, "a correlated but genuine signal is fixable, not retirable")
}

func TestRun_MultipleTestingPenalty(t *testing.T) {
	r := NewRunner(DefaultConfig(), nil)

	one := healthyInput(600)
	one.TrialsAttempted = 1
	resOne, err := r.Run(one)
	require.NoError(t, err)
	assert.Equal(t, 1.0, resOne.Trials.MultipleTestingPenalty)

	many := healthyInput(600)
	many.TrialsAttempted = 200
	resMany, err := r.Run(many)
	require.NoError(t, err)
	assert.Greater(t, resMany.Trials.MultipleTestingPenalty, 1.0,
		"200 trials must raise the Sharpe bar above the single-trial bar")
	assert.False(t, math.IsInf(resMany.Trials.MultipleTestingPenalty, 0))
}

func TestRun_InsufficientHistoryFailsWalkForwardGateOnly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IC.Window = 10
	cfg.IC.MinObservations = 5
	cfg.PBO.NSplits = 4
	r := NewRunner(cfg, nil)

	in := healthyInput(80) // too short for five walk-forward periods of 30
	res, err := r.Run(in)
	require.NoError(t, err, "short history is a gate failure, not a pipeline error")

	var wf *GateOutcome
	for i := range res.Gates {
		if res.Gates[i].Name == GateWalkForward {
			wf = &res.Gates[i]
		}
	}
	require.NotNil(t, wf)
	assert.False(t, wf.Passed)
	assert.Contains(t, wf.Detail, "insufficient data")
	assert.False(t, res.OverallPassed)
}

func TestAggregate_SummaryNamesEveryVerdict(t *testing.T) {
	r := NewRunner(DefaultConfig(), nil)

	res, err := r.Run(healthyInput(600))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Summary, "PASSED"))
	assert.Contains(t, res.Summary, "5/5")
}

func TestRun_DeterministicGateOrdering(t *testing.T) {
	r := NewRunner(DefaultConfig(), nil)

	res, err := r.Run(healthyInput(600))
	require.NoError(t, err)

	names := make([]string, len(res.Gates))
	for i, g := range res.Gates {
		names[i] = g.Name
	}
	assert.Equal(t, []string{GateDSR, GateIC, GateOrthogonality, GatePBO, GateWalkForward}, names)
}
