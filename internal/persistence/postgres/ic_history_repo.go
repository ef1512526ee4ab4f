package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tradewell/alphagate/internal/persistence"
)

// icHistoryRepo implements ICHistoryRepo for PostgreSQL.
type icHistoryRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewICHistoryRepo creates a PostgreSQL IC history repository.
func NewICHistoryRepo(db *sqlx.DB, timeout time.Duration) persistence.ICHistoryRepo {
	return &icHistoryRepo{db: db, timeout: timeout}
}

// Upsert inserts or replaces one day of IC metrics, keyed by
// (indicator_id, date).
func (r *icHistoryRepo) Upsert(ctx context.Context, row persistence.ICHistoryRow) error {
	if err := row.Validate(); err != nil {
		return fmt.Errorf("ic history upsert: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO indicator_ic_history
		(indicator_id, date, ic_value, ic_std, decisions_used_in, decisions_correct)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (indicator_id, date) DO UPDATE SET
			ic_value = EXCLUDED.ic_value,
			ic_std = EXCLUDED.ic_std,
			decisions_used_in = EXCLUDED.decisions_used_in,
			decisions_correct = EXCLUDED.decisions_correct`

	_, err := r.db.ExecContext(ctx, query,
		row.IndicatorID, row.Date.UTC(), row.ICValue, row.ICStd,
		row.DecisionsUsedIn, row.DecisionsCorrect)
	if err != nil {
		return fmt.Errorf("failed to upsert ic history: %w", err)
	}
	return nil
}

// ListRecent returns up to `days` most recent rows, newest first.
func (r *icHistoryRepo) ListRecent(ctx context.Context, indicatorID string, days int) ([]persistence.ICHistoryRow, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT indicator_id, date, ic_value, ic_std, decisions_used_in, decisions_correct, created_at
		FROM indicator_ic_history
		WHERE indicator_id = $1
		ORDER BY date DESC
		LIMIT $2`

	rows := []persistence.ICHistoryRow{}
	if err := r.db.SelectContext(ctx, &rows, query, indicatorID, days); err != nil {
		return nil, fmt.Errorf("failed to list ic history: %w", err)
	}
	return rows, nil
}

// Purge removes all history for a retired indicator.
func (r *icHistoryRepo) Purge(ctx context.Context, indicatorID string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM indicator_ic_history WHERE indicator_id = $1`, indicatorID); err != nil {
		return fmt.Errorf("failed to purge ic history: %w", err)
	}
	return nil
}
