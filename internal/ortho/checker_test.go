package ortho

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noiseSeries(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64()
	}
	return out
}

func TestCheck_IndependentCandidatePasses(t *testing.T) {
	cfg := DefaultConfig()
	candidate := noiseSeries(200, 1)
	existing := map[string][]float64{
		"mom_5d":  noiseSeries(200, 2),
		"vol_21d": noiseSeries(200, 3),
	}

	res, err := Check(candidate, existing, cfg)
	require.NoError(t, err)
	assert.True(t, res.IsOrthogonal)
	assert.Len(t, res.Correlations, 2)
	require.NotNil(t, res.VIF)
	assert.Less(t, *res.VIF, cfg.MaxVIF)
}

func TestCheck_DuplicateCandidateFails(t *testing.T) {
	cfg := DefaultConfig()
	base := noiseSeries(200, 4)

	res, err := Check(base, map[string][]float64{"existing_copy": base}, cfg)
	require.NoError(t, err)
	assert.False(t, res.IsOrthogonal)
	assert.Equal(t, "existing_copy", res.MostCorrelatedWith)
	assert.InDelta(t, 1.0, res.MaxCorrelationFound, 1e-9)
	assert.NotEmpty(t, res.Recommendations)
	assert.Nil(t, res.VIF, "single existing indicator: no VIF")
}

func TestCheck_WarningBand(t *testing.T) {
	cfg := DefaultConfig()
	base := noiseSeries(300, 5)
	indep := noiseSeries(300, 6)

	// Blend to land |corr| between the warning and rejection thresholds
	mixed := make([]float64, len(base))
	for i := range base {
		mixed[i] = 0.6*base[i] + 0.8*indep[i]
	}

	res, err := Check(mixed, map[string][]float64{"base": base}, cfg)
	require.NoError(t, err)
	require.Len(t, res.Correlations, 1)
	c := res.Correlations[0]
	assert.True(t, c.IsAcceptable)
	assert.True(t, c.IsWarning, "corr=%v should fall in the warning band", c.Correlation)
	assert.True(t, res.IsOrthogonal)
}

func TestCheck_LengthMismatchFails(t *testing.T) {
	_, err := Check(noiseSeries(100, 1), map[string][]float64{"short": noiseSeries(50, 2)}, DefaultConfig())
	require.Error(t, err)
}

func TestComputeVIF_RedundantCandidate(t *testing.T) {
	a := noiseSeries(200, 7)
	b := noiseSeries(200, 8)

	// Candidate is an exact linear combination: R² → 1, VIF huge
	y := make([]float64, len(a))
	for i := range y {
		y[i] = 2*a[i] - 3*b[i]
	}

	vif := computeVIF(y, [][]float64{a, b})
	require.NotNil(t, vif)
	assert.Greater(t, *vif, DefaultConfig().MaxVIF)
}

func TestComputeVIF_SingularReportsNil(t *testing.T) {
	a := noiseSeries(100, 9)
	// Second regressor is a scalar multiple of the first: collinear
	dup := make([]float64, len(a))
	for i := range a {
		dup[i] = 2 * a[i]
	}

	vif := computeVIF(noiseSeries(100, 10), [][]float64{a, dup})
	assert.Nil(t, vif, "singular normal equations must report nil, not guess")

	// Constant target has no variance to explain
	flat := make([]float64, 100)
	assert.Nil(t, computeVIF(flat, [][]float64{a, noiseSeries(100, 11)}))
}

func TestRankByOrthogonality_LeastRedundantFirst(t *testing.T) {
	cfg := DefaultConfig()
	base := noiseSeries(300, 12)
	existing := map[string][]float64{
		"prod_a": base,
		"prod_b": noiseSeries(300, 13),
	}

	rng := rand.New(rand.NewSource(14))
	nearDup := make([]float64, len(base))
	for i := range base {
		nearDup[i] = base[i] + 0.05*rng.NormFloat64()
	}

	ranked, err := RankByOrthogonality(map[string][]float64{
		"fresh":    noiseSeries(300, 15),
		"near_dup": nearDup,
	}, existing, cfg)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "fresh", ranked[0].IndicatorID)
	assert.Greater(t, ranked[0].Score, ranked[1].Score)
}
