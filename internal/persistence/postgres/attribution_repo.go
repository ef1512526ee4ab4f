package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tradewell/alphagate/internal/persistence"
)

// attributionRepo implements AttributionRepo for PostgreSQL.
type attributionRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewAttributionRepo creates a PostgreSQL attribution repository.
func NewAttributionRepo(db *sqlx.DB, timeout time.Duration) persistence.AttributionRepo {
	return &attributionRepo{db: db, timeout: timeout}
}

// Upsert inserts or replaces one attribution row, keyed by
// (decision_id, indicator_id).
func (r *attributionRepo) Upsert(ctx context.Context, row persistence.DecisionAttributionRow) error {
	if err := row.Validate(); err != nil {
		return fmt.Errorf("attribution upsert: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO decision_attributions
		(decision_id, indicator_id, signal_value, contribution_weight, was_correct)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (decision_id, indicator_id) DO UPDATE SET
			signal_value = EXCLUDED.signal_value,
			contribution_weight = EXCLUDED.contribution_weight,
			was_correct = COALESCE(EXCLUDED.was_correct, decision_attributions.was_correct)`

	_, err := r.db.ExecContext(ctx, query,
		row.DecisionID, row.IndicatorID, row.SignalValue, row.ContributionWeight, row.WasCorrect)
	if err != nil {
		return fmt.Errorf("failed to upsert attribution: %w", err)
	}
	return nil
}

// ListByIndicator returns recent attributions, newest first.
func (r *attributionRepo) ListByIndicator(ctx context.Context, indicatorID string, limit int) ([]persistence.DecisionAttributionRow, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT decision_id, indicator_id, signal_value, contribution_weight, was_correct, created_at
		FROM decision_attributions
		WHERE indicator_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows := []persistence.DecisionAttributionRow{}
	if err := r.db.SelectContext(ctx, &rows, query, indicatorID, limit); err != nil {
		return nil, fmt.Errorf("failed to list attributions: %w", err)
	}
	return rows, nil
}
