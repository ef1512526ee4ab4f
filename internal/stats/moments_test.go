package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharpe_KnownValue(t *testing.T) {
	// Constant mean 0.001, alternating deviation ±0.001
	returns := []float64{0.002, 0.0, 0.002, 0.0, 0.002, 0.0}

	got := Sharpe(returns, 252)
	mean := 0.001
	sd := StdDev(returns)
	assert.InDelta(t, mean/sd*math.Sqrt(252), got, 1e-12)
}

func TestSharpe_Degenerate(t *testing.T) {
	assert.Equal(t, 0.0, Sharpe(nil, 252))
	assert.Equal(t, 0.0, Sharpe([]float64{0.01}, 252))
	assert.Equal(t, 0.0, Sharpe([]float64{0.01, 0.01, 0.01}, 252), "zero variance must not divide by zero")
}

func TestStdDev_SampleDenominator(t *testing.T) {
	// Variance of {2,4,4,4,5,5,7,9} with n-1 denominator is 32/7
	v := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, math.Sqrt(32.0/7.0), StdDev(v), 1e-12)
	assert.Equal(t, 0.0, StdDev([]float64{1}))
}

func TestSkewnessKurtosis_Symmetric(t *testing.T) {
	v := []float64{-2, -1, 0, 1, 2}
	assert.InDelta(t, 0.0, Skewness(v), 1e-12)
	// Short/degenerate samples fall back to the normal baseline
	assert.Equal(t, 3.0, Kurtosis([]float64{1, 2, 3}))
	assert.Equal(t, 3.0, Kurtosis([]float64{5, 5, 5, 5}))
}

func TestMaxDrawdown(t *testing.T) {
	// Path rises to 0.3, falls to 0.1, recovers
	returns := []float64{0.1, 0.2, -0.15, -0.05, 0.3}
	assert.InDelta(t, 0.2, MaxDrawdown(returns), 1e-12)
	assert.Equal(t, 0.0, MaxDrawdown([]float64{0.1, 0.1}))
}

func TestHitRate(t *testing.T) {
	assert.Equal(t, 0.0, HitRate(nil))
	assert.InDelta(t, 0.5, HitRate([]float64{1, -1, 2, -2}), 1e-12)
	assert.InDelta(t, 0.25, HitRate([]float64{1, 0, -1, -2}), 1e-12, "zeros do not count as hits")
}

func TestBinomialCoeff_Exact(t *testing.T) {
	cases := []struct {
		n, k int
		want int64
	}{
		{8, 4, 70},
		{16, 8, 12870},
		{4, 2, 6},
		{10, 0, 1},
		{10, 10, 1},
	}
	for _, c := range cases {
		got, err := BinomialCoeff(c.n, c.k)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "C(%d,%d)", c.n, c.k)
	}

	_, err := BinomialCoeff(4, 5)
	require.Error(t, err)
}

func TestCombinations_Enumeration(t *testing.T) {
	got := Combinations(4, 2)
	want := [][]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}
	assert.Equal(t, want, got)

	coeff, err := BinomialCoeff(8, 4)
	require.NoError(t, err)
	assert.Len(t, Combinations(8, 4), int(coeff))
}

func TestNormCDFAndPPF_RoundTrip(t *testing.T) {
	assert.InDelta(t, 0.5, NormCDF(0), 1e-12)
	assert.InDelta(t, 0.9772, NormCDF(2), 1e-4)

	for _, p := range []float64{0.01, 0.05, 0.25, 0.5, 0.75, 0.95, 0.99} {
		assert.InDelta(t, p, NormCDF(NormPPF(p)), 1e-8, "p=%v", p)
	}
	assert.True(t, math.IsInf(NormPPF(0), -1))
	assert.True(t, math.IsInf(NormPPF(1), 1))
}
