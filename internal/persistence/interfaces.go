// Package persistence defines the storage contracts of the validation
// engine. The numeric gates never touch storage; only the signal
// recorder and the production monitor do, and both receive their
// repositories explicitly.
package persistence

import (
	"context"
	"fmt"
	"math"
	"time"
)

// DateFormat is the canonical day key used in natural keys.
const DateFormat = "2006-01-02"

// ICHistoryRow is one day of realized information-coefficient metrics
// for a live indicator. Natural key: (indicator_id, date).
type ICHistoryRow struct {
	IndicatorID      string    `json:"indicator_id" db:"indicator_id"`
	Date             time.Time `json:"date" db:"date"`
	ICValue          float64   `json:"ic_value" db:"ic_value"`
	ICStd            float64   `json:"ic_std" db:"ic_std"`
	DecisionsUsedIn  int       `json:"decisions_used_in" db:"decisions_used_in"`
	DecisionsCorrect int       `json:"decisions_correct" db:"decisions_correct"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// Validate enforces the row invariants before any write.
func (r ICHistoryRow) Validate() error {
	if r.IndicatorID == "" {
		return fmt.Errorf("ic history row: empty indicator id")
	}
	if r.Date.IsZero() {
		return fmt.Errorf("ic history row: zero date")
	}
	if math.IsNaN(r.ICValue) || math.IsInf(r.ICValue, 0) {
		return fmt.Errorf("ic history row: non-finite ic value")
	}
	if r.ICValue < -1 || r.ICValue > 1 {
		return fmt.Errorf("ic history row: ic %v outside [-1,1]", r.ICValue)
	}
	if r.DecisionsCorrect > r.DecisionsUsedIn {
		return fmt.Errorf("ic history row: correct %d > used %d", r.DecisionsCorrect, r.DecisionsUsedIn)
	}
	return nil
}

// PaperSignalRow is one emitted paper-trading signal. Outcome stays nil
// until the forward horizon elapses and is written exactly once.
// Natural key: (indicator_id, date, symbol).
type PaperSignalRow struct {
	ID          string    `json:"id" db:"id"`
	IndicatorID string    `json:"indicator_id" db:"indicator_id"`
	Date        time.Time `json:"date" db:"date"`
	Symbol      string    `json:"symbol" db:"symbol"`
	Signal      float64   `json:"signal" db:"signal"`
	Outcome     *float64  `json:"outcome,omitempty" db:"outcome"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Validate enforces the row invariants before any write.
func (r PaperSignalRow) Validate() error {
	if r.IndicatorID == "" {
		return fmt.Errorf("paper signal row: empty indicator id")
	}
	if r.Symbol == "" {
		return fmt.Errorf("paper signal row: empty symbol")
	}
	if r.Date.IsZero() {
		return fmt.Errorf("paper signal row: zero date")
	}
	if math.IsNaN(r.Signal) || math.IsInf(r.Signal, 0) {
		return fmt.Errorf("paper signal row: non-finite signal")
	}
	if r.Outcome != nil && (math.IsNaN(*r.Outcome) || math.IsInf(*r.Outcome, 0)) {
		return fmt.Errorf("paper signal row: non-finite outcome")
	}
	return nil
}

// DecisionAttributionRow links a trading decision to the indicator
// signal that contributed to it. WasCorrect stays nil until the
// decision resolves. Natural key: (decision_id, indicator_id).
type DecisionAttributionRow struct {
	DecisionID         string    `json:"decision_id" db:"decision_id"`
	IndicatorID        string    `json:"indicator_id" db:"indicator_id"`
	SignalValue        float64   `json:"signal_value" db:"signal_value"`
	ContributionWeight float64   `json:"contribution_weight" db:"contribution_weight"`
	WasCorrect         *bool     `json:"was_correct,omitempty" db:"was_correct"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// Validate enforces the row invariants before any write.
func (r DecisionAttributionRow) Validate() error {
	if r.DecisionID == "" || r.IndicatorID == "" {
		return fmt.Errorf("attribution row: empty key component")
	}
	if math.IsNaN(r.SignalValue) || math.IsInf(r.SignalValue, 0) {
		return fmt.Errorf("attribution row: non-finite signal value")
	}
	if r.ContributionWeight < 0 || r.ContributionWeight > 1 {
		return fmt.Errorf("attribution row: weight %v outside [0,1]", r.ContributionWeight)
	}
	return nil
}

// ICHistoryRepo stores daily IC metrics. All writes are idempotent
// upserts keyed by (indicator_id, date).
type ICHistoryRepo interface {
	// Upsert inserts or replaces one day of IC metrics.
	Upsert(ctx context.Context, row ICHistoryRow) error

	// ListRecent returns up to `days` most recent rows for an
	// indicator, newest first.
	ListRecent(ctx context.Context, indicatorID string, days int) ([]ICHistoryRow, error)

	// Purge removes all history for a retired indicator.
	Purge(ctx context.Context, indicatorID string) error
}

// PaperSignalRepo stores per-symbol, per-day paper signals and their
// eventually realized outcomes.
type PaperSignalRepo interface {
	// UpsertBatch writes a day's signals atomically; replays overwrite,
	// never duplicate.
	UpsertBatch(ctx context.Context, rows []PaperSignalRow) error

	// AttachOutcomes writes realized forward returns onto the rows of
	// the given day, keyed by symbol, and reports how many matched.
	AttachOutcomes(ctx context.Context, indicatorID string, date time.Time, outcomes map[string]float64) (int, error)

	// ListPending returns rows still waiting for an outcome.
	ListPending(ctx context.Context, indicatorID string) ([]PaperSignalRow, error)

	// ListRealized returns rows with an attached outcome, oldest first.
	ListRealized(ctx context.Context, indicatorID string) ([]PaperSignalRow, error)

	// Purge removes all rows for a retired indicator.
	Purge(ctx context.Context, indicatorID string) error
}

// AttributionRepo stores decision attributions for live indicators.
type AttributionRepo interface {
	// Upsert inserts or replaces one attribution row.
	Upsert(ctx context.Context, row DecisionAttributionRow) error

	// ListByIndicator returns recent attributions, newest first.
	ListByIndicator(ctx context.Context, indicatorID string, limit int) ([]DecisionAttributionRow, error)
}

// Repository aggregates the storage interfaces handed to the recorder
// and the monitor.
type Repository struct {
	ICHistory    ICHistoryRepo
	PaperSignals PaperSignalRepo
	Attributions AttributionRepo
}

// DayKey normalizes a timestamp to its UTC day string.
func DayKey(t time.Time) string {
	return t.UTC().Format(DateFormat)
}

// Day truncates a timestamp to UTC midnight, the canonical form for
// the Date columns.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
