// Package ortho measures how redundant a candidate indicator is against
// the indicators already in production: pairwise correlation against
// each one, and a variance inflation factor from regressing the
// candidate on all of them jointly.
package ortho

import (
	"fmt"
	"math"
	"sort"

	"github.com/tradewell/alphagate/internal/stats"
)

// Config holds orthogonality thresholds.
type Config struct {
	MaxCorrelation     float64 `yaml:"max_correlation"`     // unacceptable at or above, default 0.7
	CorrelationWarning float64 `yaml:"correlation_warning"` // warning band lower edge, default 0.5
	MaxVIF             float64 `yaml:"max_vif"`             // unacceptable at or above, default 5.0
	VIFWarning         float64 `yaml:"vif_warning"`         // default 3.0
}

// DefaultConfig returns production orthogonality thresholds.
func DefaultConfig() Config {
	return Config{
		MaxCorrelation:     0.7,
		CorrelationWarning: 0.5,
		MaxVIF:             5.0,
		VIFWarning:         3.0,
	}
}

// Correlation is the pairwise result against one existing indicator.
type Correlation struct {
	IndicatorID  string  `json:"indicator_id"`
	Correlation  float64 `json:"correlation"`
	NValidPairs  int     `json:"n_valid_pairs"`
	IsWarning    bool    `json:"is_warning"`
	IsAcceptable bool    `json:"is_acceptable"`
}

// Result is the full orthogonality verdict for a candidate. VIF is nil
// when fewer than two existing indicators are present or the regression
// is singular.
type Result struct {
	IsOrthogonal        bool          `json:"is_orthogonal"`
	MaxCorrelationFound float64       `json:"max_correlation_found"`
	MostCorrelatedWith  string        `json:"most_correlated_with"`
	VIF                 *float64      `json:"vif,omitempty"`
	Correlations        []Correlation `json:"correlations"`
	Recommendations     []string      `json:"recommendations"`
}

// Check evaluates a candidate series against the existing indicator set.
// Series lengths must all match the candidate's.
func Check(candidate []float64, existing map[string][]float64, cfg Config) (Result, error) {
	result := Result{IsOrthogonal: true}

	ids := make([]string, 0, len(existing))
	for id := range existing {
		ids = append(ids, id)
	}
	sort.Strings(ids) // deterministic output order

	for _, id := range ids {
		r, n, err := stats.Pearson(candidate, existing[id])
		if err != nil {
			return Result{}, fmt.Errorf("orthogonality vs %s: %w", id, err)
		}

		abs := math.Abs(r)
		c := Correlation{
			IndicatorID:  id,
			Correlation:  r,
			NValidPairs:  n,
			IsWarning:    abs >= cfg.CorrelationWarning && abs < cfg.MaxCorrelation,
			IsAcceptable: abs < cfg.MaxCorrelation,
		}
		result.Correlations = append(result.Correlations, c)

		if abs > math.Abs(result.MaxCorrelationFound) {
			result.MaxCorrelationFound = r
			result.MostCorrelatedWith = id
		}
		if !c.IsAcceptable {
			result.IsOrthogonal = false
			result.Recommendations = append(result.Recommendations,
				fmt.Sprintf("correlation %.2f with %s exceeds limit %.2f", r, id, cfg.MaxCorrelation))
		} else if c.IsWarning {
			result.Recommendations = append(result.Recommendations,
				fmt.Sprintf("correlation %.2f with %s is in the warning band", r, id))
		}
	}

	// VIF needs at least two regressors to say more than the pairwise
	// correlations already do.
	if len(ids) >= 2 {
		regressors := make([][]float64, 0, len(ids))
		for _, id := range ids {
			regressors = append(regressors, existing[id])
		}
		if vif := computeVIF(candidate, regressors); vif != nil {
			result.VIF = vif
			if *vif >= cfg.MaxVIF {
				result.IsOrthogonal = false
				result.Recommendations = append(result.Recommendations,
					fmt.Sprintf("VIF %.2f exceeds limit %.2f", *vif, cfg.MaxVIF))
			} else if *vif >= cfg.VIFWarning {
				result.Recommendations = append(result.Recommendations,
					fmt.Sprintf("VIF %.2f is elevated", *vif))
			}
		}
	}

	return result, nil
}

// computeVIF regresses y on the given regressors (with intercept) by
// ordinary least squares and returns 1/(1-R²). A singular normal
// equation system or a constant y reports nil rather than guessing.
func computeVIF(y []float64, regressors [][]float64) *float64 {
	n := len(y)
	k := len(regressors)
	for _, reg := range regressors {
		if len(reg) != n {
			return nil
		}
	}
	if n < k+2 {
		return nil
	}

	// Design matrix with leading intercept column.
	cols := k + 1
	x := make([][]float64, n)
	for i := 0; i < n; i++ {
		x[i] = make([]float64, cols)
		x[i][0] = 1
		for j, reg := range regressors {
			x[i][j+1] = reg[i]
		}
	}

	// Normal equations: (XᵀX) b = Xᵀy
	xtx := make([][]float64, cols)
	xty := make([]float64, cols)
	for a := 0; a < cols; a++ {
		xtx[a] = make([]float64, cols)
		for b := 0; b < cols; b++ {
			sum := 0.0
			for i := 0; i < n; i++ {
				sum += x[i][a] * x[i][b]
			}
			xtx[a][b] = sum
		}
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += x[i][a] * y[i]
		}
		xty[a] = sum
	}

	beta, ok := solve(xtx, xty)
	if !ok {
		return nil
	}

	meanY := stats.Mean(y)
	sst, ssr := 0.0, 0.0
	for i := 0; i < n; i++ {
		pred := 0.0
		for j := 0; j < cols; j++ {
			pred += x[i][j] * beta[j]
		}
		resid := y[i] - pred
		ssr += resid * resid
		d := y[i] - meanY
		sst += d * d
	}
	if sst == 0 {
		return nil
	}

	r2 := 1 - ssr/sst
	if r2 < 0 {
		r2 = 0
	}

	const maxVIFValue = 1e6
	vif := maxVIFValue
	if r2 < 1-1/maxVIFValue {
		vif = 1 / (1 - r2)
	}
	return &vif
}

// solve performs Gaussian elimination with partial pivoting; ok=false
// signals a singular system.
func solve(a [][]float64, b []float64) ([]float64, bool) {
	n := len(a)
	m := make([][]float64, n)
	for i := range a {
		m[i] = append(append([]float64(nil), a[i]...), b[i])
	}

	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(m[row][col]) > math.Abs(m[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(m[pivot][col]) < 1e-12 {
			return nil, false
		}
		m[col], m[pivot] = m[pivot], m[col]

		for row := col + 1; row < n; row++ {
			f := m[row][col] / m[col][col]
			for j := col; j <= n; j++ {
				m[row][j] -= f * m[col][j]
			}
		}
	}

	out := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := m[i][n]
		for j := i + 1; j < n; j++ {
			sum -= m[i][j] * out[j]
		}
		out[i] = sum / m[i][i]
	}
	return out, true
}

// Ranked is one candidate's redundancy score.
type Ranked struct {
	IndicatorID string  `json:"indicator_id"`
	Score       float64 `json:"score"` // higher = less redundant
	Result      Result  `json:"result"`
}

// RankByOrthogonality scores competing candidates by how little they
// overlap the existing set and sorts them best-first. The score averages
// (1 - |max correlation|) with min(1, 1/VIF); candidates without a VIF
// use the correlation term alone.
func RankByOrthogonality(candidates map[string][]float64, existing map[string][]float64, cfg Config) ([]Ranked, error) {
	out := make([]Ranked, 0, len(candidates))
	for id, series := range candidates {
		res, err := Check(series, existing, cfg)
		if err != nil {
			return nil, fmt.Errorf("ranking %s: %w", id, err)
		}

		score := 1 - math.Abs(res.MaxCorrelationFound)
		if res.VIF != nil {
			score = (score + math.Min(1, 1 / *res.VIF)) / 2
		}
		out = append(out, Ranked{IndicatorID: id, Score: score, Result: res})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].IndicatorID < out[j].IndicatorID
	})
	return out, nil
}
