// Package postgres implements the persistence contracts on PostgreSQL
// with idempotent natural-key upserts.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/tradewell/alphagate/internal/persistence"
)

// DefaultQueryTimeout bounds every repository call.
const DefaultQueryTimeout = 5 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS indicator_ic_history (
	indicator_id      TEXT             NOT NULL,
	date              DATE             NOT NULL,
	ic_value          DOUBLE PRECISION NOT NULL,
	ic_std            DOUBLE PRECISION NOT NULL,
	decisions_used_in INTEGER          NOT NULL DEFAULT 0,
	decisions_correct INTEGER          NOT NULL DEFAULT 0,
	created_at        TIMESTAMPTZ      NOT NULL DEFAULT now(),
	PRIMARY KEY (indicator_id, date)
);

CREATE TABLE IF NOT EXISTS indicator_paper_signals (
	id           UUID             NOT NULL,
	indicator_id TEXT             NOT NULL,
	date         DATE             NOT NULL,
	symbol       TEXT             NOT NULL,
	signal       DOUBLE PRECISION NOT NULL,
	outcome      DOUBLE PRECISION,
	created_at   TIMESTAMPTZ      NOT NULL DEFAULT now(),
	PRIMARY KEY (indicator_id, date, symbol)
);

CREATE TABLE IF NOT EXISTS decision_attributions (
	decision_id         TEXT             NOT NULL,
	indicator_id        TEXT             NOT NULL,
	signal_value        DOUBLE PRECISION NOT NULL,
	contribution_weight DOUBLE PRECISION NOT NULL,
	was_correct         BOOLEAN,
	created_at          TIMESTAMPTZ      NOT NULL DEFAULT now(),
	PRIMARY KEY (decision_id, indicator_id)
);
`

// Connect opens a PostgreSQL connection pool and verifies it.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// EnsureSchema creates the validation tables when missing.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("postgres schema: %w", err)
	}
	return nil
}

// NewRepository wires the three PostgreSQL repos into one aggregate.
func NewRepository(db *sqlx.DB, timeout time.Duration) *persistence.Repository {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &persistence.Repository{
		ICHistory:    NewICHistoryRepo(db, timeout),
		PaperSignals: NewPaperSignalRepo(db, timeout),
		Attributions: NewAttributionRepo(db, timeout),
	}
}
