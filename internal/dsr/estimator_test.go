package dsr

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func genuineReturns(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	returns := make([]float64, n)
	for i := range returns {
		returns[i] = 0.002 + rng.NormFloat64()*0.01
	}
	return returns
}

func TestEstimate_MoreTrialsNeverHelp(t *testing.T) {
	cfg := DefaultConfig()
	returns := genuineReturns(400, 11)

	prev := -1.0
	for _, trials := range []int{1, 2, 5, 10, 50, 100, 1000} {
		res, err := Estimate(returns, trials, cfg)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.PValue, prev,
			"p-value must be non-decreasing in trials (at %d)", trials)
		prev = res.PValue
	}
}

func TestEstimate_StrongEdgePassesSingleTrial(t *testing.T) {
	cfg := DefaultConfig()
	res, err := Estimate(genuineReturns(400, 3), 1, cfg)
	require.NoError(t, err)
	assert.True(t, res.Passed, "Sharpe ~3 over 400 points with one trial should be significant (p=%v)", res.PValue)
	assert.Equal(t, 0.0, res.BenchmarkSharpe, "single trial has no selection bias benchmark")
}

func TestEstimate_NTrialsValidation(t *testing.T) {
	_, err := Estimate(genuineReturns(100, 1), 0, DefaultConfig())
	require.Error(t, err)
	_, err = Estimate(genuineReturns(100, 1), -5, DefaultConfig())
	require.Error(t, err)
}

func TestEstimate_ShortSeriesNeverSignificant(t *testing.T) {
	res, err := Estimate([]float64{0.01}, 10, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.PValue)
	assert.False(t, res.Passed)
}

func TestEstimate_ZeroVarianceStaysFinite(t *testing.T) {
	flat := make([]float64, 100)
	for i := range flat {
		flat[i] = 0.001
	}
	res, err := Estimate(flat, 10, DefaultConfig())
	require.NoError(t, err)
	assert.False(t, math.IsNaN(res.PValue))
	assert.False(t, math.IsNaN(res.Value))
}

func TestExpectedMaxSharpe_GrowsWithTrials(t *testing.T) {
	prev := 0.0
	for _, trials := range []int{2, 5, 10, 100, 1000} {
		v := ExpectedMaxSharpe(trials, 252)
		assert.Greater(t, v, prev, "benchmark must grow with trials")
		prev = v
	}
	assert.Equal(t, 0.0, ExpectedMaxSharpe(1, 252))
}

func TestMinimumRequiredSharpe_Penalty(t *testing.T) {
	cfg := DefaultConfig()

	base, err := MinimumRequiredSharpe(1, 252, cfg)
	require.NoError(t, err)
	penalized, err := MinimumRequiredSharpe(100, 252, cfg)
	require.NoError(t, err)

	assert.Greater(t, base, 0.0)
	assert.Greater(t, penalized, base, "100 trials must demand a higher Sharpe than 1")

	// More data lowers the bar
	longer, err := MinimumRequiredSharpe(100, 2520, cfg)
	require.NoError(t, err)
	assert.Less(t, longer, penalized)

	_, err = MinimumRequiredSharpe(0, 252, cfg)
	require.Error(t, err)
	_, err = MinimumRequiredSharpe(10, 1, cfg)
	require.Error(t, err)
}
