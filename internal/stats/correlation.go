package stats

import (
	"fmt"
	"math"
	"sort"
)

// ValidPairs filters two parallel series down to the indices where both
// values are finite. Both outputs have equal length.
func ValidPairs(x, y []float64) ([]float64, []float64) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}

	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if isFinite(x[i]) && isFinite(y[i]) {
			xs = append(xs, x[i])
			ys = append(ys, y[i])
		}
	}
	return xs, ys
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Pearson computes the product-moment correlation between x and y after
// pairwise exclusion of non-finite values. Returns the correlation, the
// number of valid pairs used, and an error only on length mismatch.
// Degenerate inputs (fewer than 2 valid pairs, zero variance) yield 0.
func Pearson(x, y []float64) (float64, int, error) {
	if len(x) != len(y) {
		return 0, 0, fmt.Errorf("pearson: length mismatch %d != %d", len(x), len(y))
	}

	xs, ys := ValidPairs(x, y)
	return pearsonClean(xs, ys), len(xs), nil
}

// pearsonClean assumes equal-length finite inputs.
func pearsonClean(x, y []float64) float64 {
	n := len(x)
	if n < 2 {
		return 0
	}

	meanX, meanY := 0.0, 0.0
	for i := 0; i < n; i++ {
		meanX += x[i]
		meanY += y[i]
	}
	meanX /= float64(n)
	meanY /= float64(n)

	cov, varX, varY := 0.0, 0.0, 0.0
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}

	if varX == 0 || varY == 0 {
		return 0
	}

	r := cov / math.Sqrt(varX*varY)

	// Clamp numerical noise to the valid range
	if r > 1.0 {
		r = 1.0
	} else if r < -1.0 {
		r = -1.0
	}
	return r
}

// Spearman computes the rank correlation between x and y. Ties receive
// their average rank. Non-finite values are excluded pairwise before
// ranking. Length mismatch is a caller bug and returns an error; constant
// or tied inputs degrade to 0.
func Spearman(x, y []float64) (float64, int, error) {
	if len(x) != len(y) {
		return 0, 0, fmt.Errorf("spearman: length mismatch %d != %d", len(x), len(y))
	}

	xs, ys := ValidPairs(x, y)
	if len(xs) < 2 {
		return 0, len(xs), nil
	}

	return pearsonClean(ranks(xs), ranks(ys)), len(xs), nil
}

// ranks assigns 1-based ranks with average ranks for ties.
func ranks(v []float64) []float64 {
	n := len(v)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return v[idx[a]] < v[idx[b]] })

	out := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && v[idx[j+1]] == v[idx[i]] {
			j++
		}
		// Average rank across the tie group [i, j]
		avg := float64(i+j)/2.0 + 1.0
		for k := i; k <= j; k++ {
			out[idx[k]] = avg
		}
		i = j + 1
	}
	return out
}
