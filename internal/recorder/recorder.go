// Package recorder persists daily paper-trading signals and joins
// realized outcomes back onto them once the forward horizon elapses.
package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tradewell/alphagate/internal/persistence"
)

// SignalRecorder writes signals and outcomes through a PaperSignalRepo.
// Recording is idempotent: replaying a day overwrites rather than
// duplicates, and a replay never clears an already-realized outcome.
type SignalRecorder struct {
	repo persistence.PaperSignalRepo
}

// New creates a recorder on top of any signal repository.
func New(repo persistence.PaperSignalRepo) *SignalRecorder {
	return &SignalRecorder{repo: repo}
}

// RecordSignals stores one day of signals for an indicator, one row per
// symbol. The whole batch is written atomically.
func (r *SignalRecorder) RecordSignals(ctx context.Context, indicatorID string, date time.Time, signals map[string]float64) error {
	if len(signals) == 0 {
		return nil
	}
	rows := make([]persistence.PaperSignalRow, 0, len(signals))
	for symbol, value := range signals {
		rows = append(rows, persistence.PaperSignalRow{
			IndicatorID: indicatorID,
			Date:        persistence.Day(date),
			Symbol:      symbol,
			Signal:      value,
		})
	}
	if err := r.repo.UpsertBatch(ctx, rows); err != nil {
		return fmt.Errorf("record signals for %s: %w", indicatorID, err)
	}

	log.Debug().
		Str("indicator", indicatorID).
		Str("date", persistence.DayKey(date)).
		Int("symbols", len(rows)).
		Msg("signals recorded")
	return nil
}

// RecordOutcomes attaches realized forward returns to the signals
// emitted horizonDays trading days before asOf. Outcomes for symbols
// with no recorded signal are dropped, never inserted. Returns the
// number of rows that matched.
func (r *SignalRecorder) RecordOutcomes(ctx context.Context, indicatorID string, asOf time.Time, horizonDays int, outcomes map[string]float64) (int, error) {
	if horizonDays < 0 {
		return 0, fmt.Errorf("horizonDays must be non-negative, got %d", horizonDays)
	}
	if len(outcomes) == 0 {
		return 0, nil
	}

	signalDate := SubtractTradingDays(asOf, horizonDays)
	n, err := r.repo.AttachOutcomes(ctx, indicatorID, signalDate, outcomes)
	if err != nil {
		return 0, fmt.Errorf("record outcomes for %s: %w", indicatorID, err)
	}

	if n < len(outcomes) {
		log.Warn().
			Str("indicator", indicatorID).
			Str("signal_date", signalDate.Format(persistence.DateFormat)).
			Int("matched", n).
			Int("offered", len(outcomes)).
			Msg("some outcomes had no recorded signal")
	}
	return n, nil
}

// PendingOutcomes lists the signals still waiting for a realized
// return.
func (r *SignalRecorder) PendingOutcomes(ctx context.Context, indicatorID string) ([]persistence.PaperSignalRow, error) {
	rows, err := r.repo.ListPending(ctx, indicatorID)
	if err != nil {
		return nil, fmt.Errorf("list pending outcomes for %s: %w", indicatorID, err)
	}
	return rows, nil
}

// SubtractTradingDays walks back n trading days from t, counting
// weekdays only. Exchange holidays are not modelled; the signal writer
// and the outcome writer skip the same days, so lookups stay aligned.
func SubtractTradingDays(t time.Time, n int) time.Time {
	d := persistence.Day(t)
	for n > 0 {
		d = d.AddDate(0, 0, -1)
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n--
		}
	}
	return d
}

// TradingDaysBetween counts the weekdays in (from, to], the same
// calendar SubtractTradingDays walks. Zero when to is not after from.
func TradingDaysBetween(from, to time.Time) int {
	d := persistence.Day(from)
	end := persistence.Day(to)
	n := 0
	for d.Before(end) {
		d = d.AddDate(0, 0, 1)
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return n
}
