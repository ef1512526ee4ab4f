package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tradewell/alphagate/internal/monitor"
	"github.com/tradewell/alphagate/internal/persistence/cache"
)

func runMonitor(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	repo, cleanup, err := buildRepository(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	indicatorID, _ := cmd.Flags().GetString("indicator")
	activeCount, _ := cmd.Flags().GetInt("active")

	mon := monitor.New(repo.ICHistory, cache.New(cfg.Redis.Addr), nil, cfg.Monitoring)
	hc, err := mon.CheckIndicator(ctx, indicatorID, activeCount)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(hc)
}
