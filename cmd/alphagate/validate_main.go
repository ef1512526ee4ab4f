package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tradewell/alphagate/internal/metrics"
	"github.com/tradewell/alphagate/internal/validate"
)

// candidateFile is the on-disk shape of a validation request.
type candidateFile struct {
	IndicatorID     string               `json:"indicator_id"`
	Signals         []float64            `json:"signals"`
	Returns         []float64            `json:"returns"`
	SignalsByTime   [][]float64          `json:"signals_by_time,omitempty"`
	ReturnsByTime   [][]float64          `json:"returns_by_time,omitempty"`
	Existing        map[string][]float64 `json:"existing,omitempty"`
	TrialsAttempted int                  `json:"trials_attempted,omitempty"`
}

// validateOutput is what the validate command prints.
type validateOutput struct {
	Result     *validate.Result    `json:"result"`
	Evaluation validate.Evaluation `json:"evaluation"`
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	inputPath, _ := cmd.Flags().GetString("input")
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input %s: %w", inputPath, err)
	}
	var candidate candidateFile
	if err := json.Unmarshal(data, &candidate); err != nil {
		return fmt.Errorf("failed to parse input %s: %w", inputPath, err)
	}

	if id, _ := cmd.Flags().GetString("indicator"); id != "" {
		candidate.IndicatorID = id
	}
	if trials, _ := cmd.Flags().GetInt("trials"); trials > 1 {
		candidate.TrialsAttempted = trials
	}
	if candidate.IndicatorID == "" {
		return fmt.Errorf("no indicator id in input or flags")
	}

	runner := validate.NewRunner(cfg.Validation, metrics.NewRegistry())
	result, err := runner.Run(validate.Input{
		IndicatorID:     candidate.IndicatorID,
		Signals:         candidate.Signals,
		Returns:         candidate.Returns,
		SignalsByTime:   candidate.SignalsByTime,
		ReturnsByTime:   candidate.ReturnsByTime,
		Existing:        candidate.Existing,
		TrialsAttempted: candidate.TrialsAttempted,
	})
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := validateOutput{Result: result, Evaluation: runner.Evaluate(result)}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
