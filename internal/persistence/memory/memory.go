// Package memory provides in-memory repository implementations used by
// tests and offline runs. Semantics mirror the postgres repositories:
// idempotent upserts on natural keys, batch atomicity, single outcome
// write per row.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tradewell/alphagate/internal/persistence"
)

// NewRepository wires the three in-memory repos into one aggregate.
func NewRepository() *persistence.Repository {
	return &persistence.Repository{
		ICHistory:    NewICHistoryRepo(),
		PaperSignals: NewPaperSignalRepo(),
		Attributions: NewAttributionRepo(),
	}
}

type icHistoryRepo struct {
	mu   sync.RWMutex
	rows map[string]persistence.ICHistoryRow // indicator|day
}

// NewICHistoryRepo returns an empty in-memory IC history store.
func NewICHistoryRepo() persistence.ICHistoryRepo {
	return &icHistoryRepo{rows: make(map[string]persistence.ICHistoryRow)}
}

func (r *icHistoryRepo) Upsert(_ context.Context, row persistence.ICHistoryRow) error {
	if err := row.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	r.rows[row.IndicatorID+"|"+persistence.DayKey(row.Date)] = row
	return nil
}

func (r *icHistoryRepo) ListRecent(_ context.Context, indicatorID string, days int) ([]persistence.ICHistoryRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []persistence.ICHistoryRow
	for key, row := range r.rows {
		if strings.HasPrefix(key, indicatorID+"|") {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if days > 0 && len(out) > days {
		out = out[:days]
	}
	return out, nil
}

func (r *icHistoryRepo) Purge(_ context.Context, indicatorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.rows {
		if strings.HasPrefix(key, indicatorID+"|") {
			delete(r.rows, key)
		}
	}
	return nil
}

type paperSignalRepo struct {
	mu   sync.RWMutex
	rows map[string]persistence.PaperSignalRow // indicator|day|symbol
}

// NewPaperSignalRepo returns an empty in-memory paper signal store.
func NewPaperSignalRepo() persistence.PaperSignalRepo {
	return &paperSignalRepo{rows: make(map[string]persistence.PaperSignalRow)}
}

func signalKey(indicatorID string, date time.Time, symbol string) string {
	return indicatorID + "|" + persistence.DayKey(date) + "|" + symbol
}

func (r *paperSignalRepo) UpsertBatch(_ context.Context, rows []persistence.PaperSignalRow) error {
	// Validate everything first so a bad row cannot leave a partial batch.
	for i, row := range rows {
		if err := row.Validate(); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for _, row := range rows {
		key := signalKey(row.IndicatorID, row.Date, row.Symbol)
		if existing, ok := r.rows[key]; ok {
			// Replays overwrite the signal but never clobber a
			// realized outcome with nil.
			if row.Outcome == nil {
				row.Outcome = existing.Outcome
			}
			row.ID = existing.ID
			row.CreatedAt = existing.CreatedAt
		}
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		r.rows[key] = row
	}
	return nil
}

func (r *paperSignalRepo) AttachOutcomes(_ context.Context, indicatorID string, date time.Time, outcomes map[string]float64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := 0
	for symbol, outcome := range outcomes {
		key := signalKey(indicatorID, date, symbol)
		row, ok := r.rows[key]
		if !ok {
			continue
		}
		o := outcome
		row.Outcome = &o
		r.rows[key] = row
		matched++
	}
	return matched, nil
}

func (r *paperSignalRepo) ListPending(_ context.Context, indicatorID string) ([]persistence.PaperSignalRow, error) {
	return r.list(indicatorID, false), nil
}

func (r *paperSignalRepo) ListRealized(_ context.Context, indicatorID string) ([]persistence.PaperSignalRow, error) {
	return r.list(indicatorID, true), nil
}

func (r *paperSignalRepo) list(indicatorID string, realized bool) []persistence.PaperSignalRow {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []persistence.PaperSignalRow
	for key, row := range r.rows {
		if !strings.HasPrefix(key, indicatorID+"|") {
			continue
		}
		if (row.Outcome != nil) == realized {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

func (r *paperSignalRepo) Purge(_ context.Context, indicatorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.rows {
		if strings.HasPrefix(key, indicatorID+"|") {
			delete(r.rows, key)
		}
	}
	return nil
}

type attributionRepo struct {
	mu   sync.RWMutex
	rows map[string]persistence.DecisionAttributionRow // decision|indicator
}

// NewAttributionRepo returns an empty in-memory attribution store.
func NewAttributionRepo() persistence.AttributionRepo {
	return &attributionRepo{rows: make(map[string]persistence.DecisionAttributionRow)}
}

func (r *attributionRepo) Upsert(_ context.Context, row persistence.DecisionAttributionRow) error {
	if err := row.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	r.rows[row.DecisionID+"|"+row.IndicatorID] = row
	return nil
}

func (r *attributionRepo) ListByIndicator(_ context.Context, indicatorID string, limit int) ([]persistence.DecisionAttributionRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []persistence.DecisionAttributionRow
	for _, row := range r.rows {
		if row.IndicatorID == indicatorID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
