// Package ic measures the information coefficient of an indicator: the
// rank correlation between emitted signals and forward realized returns,
// tracked cross-sectionally, through time, and across forward horizons.
package ic

import (
	"fmt"

	"github.com/tradewell/alphagate/internal/stats"
)

// Value is a single IC measurement. IsValid requires the observation
// count to reach the configured minimum; invalid values are still
// reported so callers can see how much data was available.
type Value struct {
	IC            float64 `json:"ic"`
	NObservations int     `json:"n_observations"`
	IsValid       bool    `json:"is_valid"`
}

// Config holds IC thresholds. Every field is independently overridable.
type Config struct {
	MinObservations int     `yaml:"min_observations"` // ≥10 valid pairs per measurement
	Window          int     `yaml:"window"`           // rolling time-series window
	MinMean         float64 `yaml:"min_mean"`         // pass: mean IC ≥ 0.02
	MaxStd          float64 `yaml:"max_std"`          // pass: IC std ≤ 0.03
	MinICIR         float64 `yaml:"min_icir"`         // pass: ICIR ≥ 0.5

	// Interpretation bands
	StrongMean   float64 `yaml:"strong_mean"`   // 0.05
	StrongStd    float64 `yaml:"strong_std"`    // 0.05
	StrongICIR   float64 `yaml:"strong_icir"`   // 0.5
	ModerateMean float64 `yaml:"moderate_mean"` // 0.02
	ModerateICIR float64 `yaml:"moderate_icir"` // 0.3
}

// DefaultConfig returns production IC thresholds.
func DefaultConfig() Config {
	return Config{
		MinObservations: 10,
		Window:          60,
		MinMean:         0.02,
		MaxStd:          0.03,
		MinICIR:         0.5,
		StrongMean:      0.05,
		StrongStd:       0.05,
		StrongICIR:      0.5,
		ModerateMean:    0.02,
		ModerateICIR:    0.3,
	}
}

// Stats aggregates a series of IC values. Only valid entries contribute;
// with no valid entries all numeric fields are 0 and Passed is false.
type Stats struct {
	Mean           float64 `json:"mean"`
	Std            float64 `json:"std"`
	ICIR           float64 `json:"icir"`
	HitRate        float64 `json:"hit_rate"`
	NValid         int     `json:"n_valid"`
	Interpretation string  `json:"interpretation"` // strong | moderate | weak
	Passed         bool    `json:"passed"`
}

// CrossSectionalIC computes the Spearman correlation between signals and
// forward returns across a cross-section of assets at one point in time.
func CrossSectionalIC(signals, returns []float64, cfg Config) (Value, error) {
	r, n, err := stats.Spearman(signals, returns)
	if err != nil {
		return Value{}, fmt.Errorf("cross-sectional ic: %w", err)
	}
	return Value{IC: r, NObservations: n, IsValid: n >= cfg.MinObservations}, nil
}

// TimeSeriesIC computes a rolling Spearman IC over a trailing window,
// one value per window slide. Series shorter than the window produce an
// empty result rather than an error.
func TimeSeriesIC(signals, returns []float64, cfg Config) ([]Value, error) {
	if len(signals) != len(returns) {
		return nil, fmt.Errorf("time-series ic: length mismatch %d != %d", len(signals), len(returns))
	}
	window := cfg.Window
	if window <= 0 {
		window = DefaultConfig().Window
	}
	if len(signals) < window {
		return []Value{}, nil
	}

	out := make([]Value, 0, len(signals)-window+1)
	for end := window; end <= len(signals); end++ {
		r, n, _ := stats.Spearman(signals[end-window:end], returns[end-window:end])
		out = append(out, Value{IC: r, NObservations: n, IsValid: n >= cfg.MinObservations})
	}
	return out, nil
}

// CalculateStats aggregates an IC series over its valid entries.
func CalculateStats(series []Value, cfg Config) Stats {
	valid := make([]float64, 0, len(series))
	for _, v := range series {
		if v.IsValid {
			valid = append(valid, v.IC)
		}
	}
	if len(valid) == 0 {
		return Stats{Interpretation: "weak"}
	}

	s := Stats{
		Mean:    stats.Mean(valid),
		Std:     stats.StdDev(valid),
		HitRate: stats.HitRate(valid),
		NValid:  len(valid),
	}
	if s.Std > 0 {
		s.ICIR = s.Mean / s.Std
	}

	switch {
	case s.Mean > cfg.StrongMean && s.Std < cfg.StrongStd && s.ICIR > cfg.StrongICIR:
		s.Interpretation = "strong"
	case s.Mean > cfg.ModerateMean && s.ICIR > cfg.ModerateICIR:
		s.Interpretation = "moderate"
	default:
		s.Interpretation = "weak"
	}

	s.Passed = s.Mean >= cfg.MinMean && s.Std <= cfg.MaxStd && s.ICIR >= cfg.MinICIR
	return s
}
