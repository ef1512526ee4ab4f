package stats

import "fmt"

// BinomialCoeff computes C(n, k) exactly using the multiplicative
// formula. Floating approximations are not acceptable here because the
// result sizes combination enumerations.
func BinomialCoeff(n, k int) (int64, error) {
	if n < 0 || k < 0 || k > n {
		return 0, fmt.Errorf("binomial: invalid arguments n=%d k=%d", n, k)
	}
	if k > n-k {
		k = n - k
	}
	result := int64(1)
	for i := 0; i < k; i++ {
		result = result * int64(n-i) / int64(i+1)
	}
	return result, nil
}

// Combinations enumerates all k-element subsets of {0..n-1} in
// lexicographic order.
func Combinations(n, k int) [][]int {
	if k < 0 || k > n {
		return nil
	}
	if k == 0 {
		return [][]int{{}}
	}

	var out [][]int
	cur := make([]int, k)
	for i := range cur {
		cur[i] = i
	}
	for {
		pick := make([]int, k)
		copy(pick, cur)
		out = append(out, pick)

		// Advance to the next combination
		i := k - 1
		for i >= 0 && cur[i] == n-k+i {
			i--
		}
		if i < 0 {
			break
		}
		cur[i]++
		for j := i + 1; j < k; j++ {
			cur[j] = cur[j-1] + 1
		}
	}
	return out
}
