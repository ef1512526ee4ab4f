package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tradewell/alphagate/internal/persistence"
)

// paperSignalRepo implements PaperSignalRepo for PostgreSQL.
type paperSignalRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPaperSignalRepo creates a PostgreSQL paper signal repository.
func NewPaperSignalRepo(db *sqlx.DB, timeout time.Duration) persistence.PaperSignalRepo {
	return &paperSignalRepo{db: db, timeout: timeout}
}

// UpsertBatch writes a day's signals in one transaction so a failure
// cannot leave a partial batch. Replays overwrite the signal value but
// keep an already-realized outcome.
func (r *paperSignalRepo) UpsertBatch(ctx context.Context, rows []persistence.PaperSignalRow) error {
	for i, row := range rows {
		if err := row.Validate(); err != nil {
			return fmt.Errorf("paper signal batch row %d: %w", i, err)
		}
	}
	if len(rows) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin signal batch: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO indicator_paper_signals
		(id, indicator_id, date, symbol, signal, outcome)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (indicator_id, date, symbol) DO UPDATE SET
			signal = EXCLUDED.signal,
			outcome = COALESCE(EXCLUDED.outcome, indicator_paper_signals.outcome)`

	for _, row := range rows {
		id := row.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, query,
			id, row.IndicatorID, row.Date.UTC(), row.Symbol, row.Signal, row.Outcome); err != nil {
			return fmt.Errorf("failed to upsert paper signal %s/%s: %w", row.IndicatorID, row.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit signal batch: %w", err)
	}
	return nil
}

// AttachOutcomes writes realized forward returns onto the rows of the
// given day and reports how many matched.
func (r *paperSignalRepo) AttachOutcomes(ctx context.Context, indicatorID string, date time.Time, outcomes map[string]float64) (int, error) {
	if len(outcomes) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin outcome batch: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE indicator_paper_signals
		SET outcome = $4
		WHERE indicator_id = $1 AND date = $2 AND symbol = $3`

	matched := 0
	for symbol, outcome := range outcomes {
		res, err := tx.ExecContext(ctx, query, indicatorID, date.UTC(), symbol, outcome)
		if err != nil {
			return 0, fmt.Errorf("failed to attach outcome for %s: %w", symbol, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			matched += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit outcome batch: %w", err)
	}
	return matched, nil
}

// ListPending returns rows still waiting for an outcome.
func (r *paperSignalRepo) ListPending(ctx context.Context, indicatorID string) ([]persistence.PaperSignalRow, error) {
	return r.list(ctx, indicatorID, `outcome IS NULL`)
}

// ListRealized returns rows with an attached outcome, oldest first.
func (r *paperSignalRepo) ListRealized(ctx context.Context, indicatorID string) ([]persistence.PaperSignalRow, error) {
	return r.list(ctx, indicatorID, `outcome IS NOT NULL`)
}

func (r *paperSignalRepo) list(ctx context.Context, indicatorID, cond string) ([]persistence.PaperSignalRow, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT id, indicator_id, date, symbol, signal, outcome, created_at
		FROM indicator_paper_signals
		WHERE indicator_id = $1 AND %s
		ORDER BY date ASC, symbol ASC`, cond)

	rows := []persistence.PaperSignalRow{}
	if err := r.db.SelectContext(ctx, &rows, query, indicatorID); err != nil {
		return nil, fmt.Errorf("failed to list paper signals: %w", err)
	}
	return rows, nil
}

// Purge removes all rows for a retired indicator.
func (r *paperSignalRepo) Purge(ctx context.Context, indicatorID string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM indicator_paper_signals WHERE indicator_id = $1`, indicatorID); err != nil {
		return fmt.Errorf("failed to purge paper signals: %w", err)
	}
	return nil
}
