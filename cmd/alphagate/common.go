package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tradewell/alphagate/internal/config"
	"github.com/tradewell/alphagate/internal/persistence"
	"github.com/tradewell/alphagate/internal/persistence/memory"
	"github.com/tradewell/alphagate/internal/persistence/postgres"
)

// loadConfig resolves the config file and applies the log-level
// override before anything else runs.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	level := cfg.LogLevel
	if override, _ := cmd.Flags().GetString("log-level"); override != "" {
		level = override
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return cfg, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	return cfg, nil
}

// buildRepository connects storage. With --memory everything lives in
// the process, which is enough for local runs and demos.
func buildRepository(ctx context.Context, cmd *cobra.Command, cfg config.Config) (*persistence.Repository, func(), error) {
	if useMemory, _ := cmd.Flags().GetBool("memory"); useMemory {
		log.Info().Msg("using in-memory storage")
		return memory.NewRepository(), func() {}, nil
	}

	db, err := postgres.Connect(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		closeDB(db)
		return nil, nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return postgres.NewRepository(db, cfg.Database.QueryTimeout), func() { closeDB(db) }, nil
}

func closeDB(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close database")
	}
}
