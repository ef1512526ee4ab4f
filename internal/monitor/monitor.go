// Package monitor watches indicators already in production and flags
// the ones whose predictive power has decayed enough to retire.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/tradewell/alphagate/internal/metrics"
	"github.com/tradewell/alphagate/internal/persistence"
	"github.com/tradewell/alphagate/internal/persistence/cache"
)

// Retirement reasons.
const (
	ReasonICDecay  = "ic_decay"
	ReasonCrowding = "crowding"
	ReasonCapacity = "capacity"
)

// Recommended actions.
const (
	ActionNone    = "none"
	ActionMonitor = "monitor"
	ActionRetire  = "retire"
)

// Config sets the retirement triggers.
type Config struct {
	MinHealthyIC   float64       `yaml:"min_healthy_ic"`  // daily IC below this counts as a low day
	DecayDays      int           `yaml:"decay_days"`      // consecutive low days before retirement
	LookbackDays   int           `yaml:"lookback_days"`   // window for the average IC
	MaxCapacity    int           `yaml:"max_capacity"`    // active indicators before capacity pressure
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	BreakerTimeout time.Duration `yaml:"breaker_timeout"`
}

// DefaultConfig returns production monitoring thresholds.
func DefaultConfig() Config {
	return Config{
		MinHealthyIC:   0.02,
		DecayDays:      30,
		LookbackDays:   30,
		MaxCapacity:    20,
		CacheTTL:       5 * time.Minute,
		BreakerTimeout: 30 * time.Second,
	}
}

// HealthCheck is one monitoring verdict for one indicator.
type HealthCheck struct {
	IndicatorID          string    `json:"indicator_id"`
	CheckedAt            time.Time `json:"checked_at"`
	NHistoryDays         int       `json:"n_history_days"`
	ConsecutiveLowICDays int       `json:"consecutive_low_ic_days"`
	AvgRecentIC          float64   `json:"avg_recent_ic"`
	ShouldRetire         bool      `json:"should_retire"`
	RetireReason         string    `json:"retire_reason,omitempty"`
	RecommendedAction    string    `json:"recommended_action"`
	Detail               string    `json:"detail"`
}

// Monitor evaluates retirement triggers against stored IC history. The
// history read goes through a circuit breaker; when storage is down an
// indicator is treated as having no history rather than blocking the
// monitoring loop.
type Monitor struct {
	repo    persistence.ICHistoryRepo
	breaker *gobreaker.CircuitBreaker
	cache   cache.Cache
	metrics *metrics.Registry
	cfg     Config
}

// New creates a monitor. Cache and metrics may be nil.
func New(repo persistence.ICHistoryRepo, c cache.Cache, m *metrics.Registry, cfg Config) *Monitor {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "ic-history",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
	return &Monitor{repo: repo, breaker: breaker, cache: c, metrics: m, cfg: cfg}
}

// CheckIndicator runs all retirement triggers for one indicator.
// activeCount is the number of indicators currently in production and
// drives the capacity trigger.
func (m *Monitor) CheckIndicator(ctx context.Context, indicatorID string, activeCount int) (*HealthCheck, error) {
	history := m.loadHistory(ctx, indicatorID)

	hc := &HealthCheck{
		IndicatorID:          indicatorID,
		CheckedAt:            time.Now().UTC(),
		NHistoryDays:         len(history),
		ConsecutiveLowICDays: m.countConsecutiveLowICDays(history),
		AvgRecentIC:          m.avgRecentIC(history),
	}

	switch {
	case hc.ConsecutiveLowICDays >= m.cfg.DecayDays && hc.AvgRecentIC < m.cfg.MinHealthyIC:
		hc.ShouldRetire = true
		hc.RetireReason = ReasonICDecay
		hc.Detail = fmt.Sprintf("%d consecutive days below %.3f, %d-day average IC %.4f",
			hc.ConsecutiveLowICDays, m.cfg.MinHealthyIC, m.cfg.LookbackDays, hc.AvgRecentIC)
	case m.isCrowded(history):
		hc.ShouldRetire = true
		hc.RetireReason = ReasonCrowding
	case activeCount > m.cfg.MaxCapacity:
		hc.ShouldRetire = true
		hc.RetireReason = ReasonCapacity
		hc.Detail = fmt.Sprintf("%d active indicators exceeds capacity of %d", activeCount, m.cfg.MaxCapacity)
	}

	switch {
	case hc.ShouldRetire:
		hc.RecommendedAction = ActionRetire
	case hc.ConsecutiveLowICDays >= m.cfg.DecayDays/2:
		hc.RecommendedAction = ActionMonitor
		hc.Detail = fmt.Sprintf("%d consecutive low-IC days, watching for decay", hc.ConsecutiveLowICDays)
	default:
		hc.RecommendedAction = ActionNone
	}

	if hc.ShouldRetire {
		log.Warn().
			Str("indicator", indicatorID).
			Str("reason", hc.RetireReason).
			Str("detail", hc.Detail).
			Msg("retirement recommended")
		if m.metrics != nil {
			m.metrics.Retirements.WithLabelValues(hc.RetireReason).Inc()
		}
	}

	m.storeLatest(ctx, hc)
	return hc, nil
}

// LatestCheck returns the most recent cached verdict, if any.
func (m *Monitor) LatestCheck(ctx context.Context, indicatorID string) (*HealthCheck, bool) {
	if m.cache == nil {
		return nil, false
	}
	b, ok := m.cache.Get(ctx, latestKey(indicatorID))
	if !ok {
		return nil, false
	}
	var hc HealthCheck
	if err := json.Unmarshal(b, &hc); err != nil {
		return nil, false
	}
	return &hc, true
}

// loadHistory reads recent IC history through the circuit breaker.
// Failures degrade to "no history": the monitor keeps running and the
// error is visible in logs and the storage-error counter.
func (m *Monitor) loadHistory(ctx context.Context, indicatorID string) []persistence.ICHistoryRow {
	res, err := m.breaker.Execute(func() (interface{}, error) {
		return m.repo.ListRecent(ctx, indicatorID, m.cfg.LookbackDays)
	})
	if err != nil {
		log.Warn().Err(err).Str("indicator", indicatorID).Msg("IC history unavailable, treating as no history")
		if m.metrics != nil {
			m.metrics.StorageErrors.Inc()
		}
		return nil
	}
	return res.([]persistence.ICHistoryRow)
}

// countConsecutiveLowICDays walks backwards from the most recent day
// and stops at the first healthy one. history is newest first.
func (m *Monitor) countConsecutiveLowICDays(history []persistence.ICHistoryRow) int {
	count := 0
	for _, row := range history {
		if row.ICValue >= m.cfg.MinHealthyIC {
			break
		}
		count++
	}
	return count
}

// avgRecentIC averages the lookback window; zero with no history.
func (m *Monitor) avgRecentIC(history []persistence.ICHistoryRow) float64 {
	if len(history) == 0 {
		return 0
	}
	sum := 0.0
	for _, row := range history {
		sum += row.ICValue
	}
	return sum / float64(len(history))
}

// isCrowded is the crowding trigger. Detecting alpha crowding needs
// cross-indicator flow data the engine does not ingest yet, so the
// trigger never fires; it exists so the retirement reasons are stable
// once that data lands.
func (m *Monitor) isCrowded(_ []persistence.ICHistoryRow) bool {
	return false
}

func (m *Monitor) storeLatest(ctx context.Context, hc *HealthCheck) {
	if m.cache == nil {
		return
	}
	b, err := json.Marshal(hc)
	if err != nil {
		return
	}
	m.cache.Set(ctx, latestKey(hc.IndicatorID), b, m.cfg.CacheTTL)
}

func latestKey(indicatorID string) string {
	return "monitor:latest:" + indicatorID
}
