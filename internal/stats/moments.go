package stats

import "math"

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

// StdDev returns the sample standard deviation (n-1 denominator),
// or 0 when fewer than 2 values are present.
func StdDev(v []float64) float64 {
	if len(v) < 2 {
		return 0
	}
	mean := Mean(v)
	ss := 0.0
	for _, x := range v {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(v)-1))
}

// Sharpe returns the annualized Sharpe ratio of a return series.
// Returns exactly 0 for fewer than 2 observations or zero variance so
// downstream arithmetic stays total.
func Sharpe(returns []float64, periodsPerYear float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	sd := StdDev(returns)
	if sd == 0 {
		return 0
	}
	return Mean(returns) / sd * math.Sqrt(periodsPerYear)
}

// Skewness returns the sample skewness, or 0 when undefined.
func Skewness(v []float64) float64 {
	n := float64(len(v))
	if n < 3 {
		return 0
	}
	mean := Mean(v)
	m2, m3 := 0.0, 0.0
	for _, x := range v {
		d := x - mean
		m2 += d * d
		m3 += d * d * d
	}
	m2 /= n
	m3 /= n
	if m2 == 0 {
		return 0
	}
	return m3 / math.Pow(m2, 1.5)
}

// Kurtosis returns the sample kurtosis (normal distribution = 3),
// or 3 when undefined so the DSR adjustment reduces to the IID case.
func Kurtosis(v []float64) float64 {
	n := float64(len(v))
	if n < 4 {
		return 3
	}
	mean := Mean(v)
	m2, m4 := 0.0, 0.0
	for _, x := range v {
		d := x - mean
		m2 += d * d
		m4 += d * d * d * d
	}
	m2 /= n
	m4 /= n
	if m2 == 0 {
		return 3
	}
	return m4 / (m2 * m2)
}

// MaxDrawdown returns the largest peak-to-trough decline of the
// cumulative return path, as a positive number.
func MaxDrawdown(returns []float64) float64 {
	peak, cum, maxDD := 0.0, 0.0, 0.0
	for _, r := range returns {
		cum += r
		if cum > peak {
			peak = cum
		}
		if dd := peak - cum; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// HitRate returns the fraction of strictly positive values.
func HitRate(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	wins := 0
	for _, x := range v {
		if x > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(v))
}
