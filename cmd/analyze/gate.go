package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"regime-tier-lab/internal/decision"
	"regime-tier-lab/internal/orchestrator"
)

var (
	gateOut        string
	gateFailOnNoGo bool
)

var errNoGo = errors.New("decision is not GO")

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Run robustness and sensitivity, then decide GO / NO-GO",
	Example: `  analyze gate --config config.yaml --out DECISION_GATE.md
  analyze gate --json --fail-on-nogo`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, in, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		cfg := env.Config
		gate, err := env.Orchestrator.Gate(cmd.Context(), in, orchestrator.GateConfig{
			Robustness:  cfg.Robustness,
			Sensitivity: cfg.Sensitivity,
			Thresholds:  cfg.Gate,
			Sufficiency: cfg.Sufficiency,
		})
		if err != nil {
			return err
		}

		md := decision.RenderMarkdown(gate.Result)
		if gateOut != "" {
			if err := os.WriteFile(gateOut, []byte(md), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", gateOut, err)
			}
			env.Log.Info().Str("path", gateOut).Msg("decision written")
		}

		if outputJSON {
			err = printJSON(gate)
		} else {
			fmt.Print(md)
		}
		if err != nil {
			return err
		}

		if gateFailOnNoGo && gate.Result.Decision != decision.DecisionGO {
			return errNoGo
		}
		return nil
	},
}

func init() {
	gateCmd.Flags().StringVar(&gateOut, "out", "", "Write the markdown decision to this file")
	gateCmd.Flags().BoolVar(&gateFailOnNoGo, "fail-on-nogo", false, "Exit non-zero unless the decision is GO")
	rootCmd.AddCommand(gateCmd)
}
