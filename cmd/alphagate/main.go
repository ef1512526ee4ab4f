package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	appName = "AlphaGate"
	version = "v1.3.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     "alphagate",
		Short:   "Statistical validation and retirement engine for trading indicators",
		Version: version,
		Long: appName + ` decides which trading indicators earn production capital and
which ones lose it.

Candidates pass five statistical gates (IC, PBO, deflated Sharpe,
walk-forward, orthogonality) before deployment, prove themselves in
paper trading, and are monitored for alpha decay until retirement.`,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level override (trace|debug|info|warn|error)")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Run the validation pipeline on a candidate indicator",
		Long:  "Runs all statistical gates against a candidate's signal and return history and prints the composite verdict",
		RunE:  runValidate,
	}
	validateCmd.Flags().String("input", "", "Path to JSON file with the candidate's signals and returns (required)")
	validateCmd.Flags().String("indicator", "", "Indicator identifier (overrides the input file)")
	validateCmd.Flags().Int("trials", 1, "Number of configurations tried while developing this indicator")
	_ = validateCmd.MarkFlagRequired("input")

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Check retirement triggers for a production indicator",
		Long:  "Reads stored IC history and reports decay, crowding, and capacity triggers",
		RunE:  runMonitor,
	}
	monitorCmd.Flags().String("indicator", "", "Indicator identifier (required)")
	monitorCmd.Flags().Int("active", 0, "Number of indicators currently in production")
	monitorCmd.Flags().Bool("memory", false, "Use in-memory storage instead of PostgreSQL")
	_ = monitorCmd.MarkFlagRequired("indicator")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  "Serves validation runs, indicator health, and Prometheus metrics over HTTP",
		RunE:  runServe,
	}
	serveCmd.Flags().Bool("memory", false, "Use in-memory storage instead of PostgreSQL")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
