package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tradewell/alphagate/internal/metrics"
	"github.com/tradewell/alphagate/internal/monitor"
	"github.com/tradewell/alphagate/internal/papertrade"
	"github.com/tradewell/alphagate/internal/persistence/cache"
	"github.com/tradewell/alphagate/internal/recorder"
	"github.com/tradewell/alphagate/internal/server"
	"github.com/tradewell/alphagate/internal/validate"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, cleanup, err := buildRepository(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	reg := metrics.NewRegistry()
	srv := server.New(
		validate.NewRunner(cfg.Validation, reg),
		monitor.New(repo.ICHistory, cache.New(cfg.Redis.Addr), reg, cfg.Monitoring),
		recorder.New(repo.PaperSignals),
		papertrade.New(repo.PaperSignals, cfg.PaperTrading),
		repo.Attributions,
		reg,
		version,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}
