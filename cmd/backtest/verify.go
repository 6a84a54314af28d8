package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"regime-tier-lab/internal/domain"
)

var errVerificationFailed = errors.New("verification failed")

var verifyCmd = &cobra.Command{
	Use:   "verify <run-id>",
	Short: "Replay a stored run and compare its trades",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, _, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.Orchestrator.Verify(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if outputJSON {
			if err := printJSON(report); err != nil {
				return err
			}
		} else {
			fmt.Println()
			fmt.Println("=== Replay Verification ===")
			fmt.Printf("Run ID:             %s\n", report.RunID)
			fmt.Printf("Stored trades:      %d\n", report.TotalTrades)
			fmt.Printf("Matched:            %d\n", report.MatchedTrades)
			fmt.Printf("Divergent:          %d\n", report.DivergentTrades)
			fmt.Printf("Missing:            %d\n", report.MissingTrades)
			for _, r := range report.Results {
				for _, d := range r.Divergences {
					fmt.Printf("  %s %-12s stored=%v replayed=%v\n", r.TradeID[:12], d.Field, d.Expected, d.Actual)
				}
			}
			for _, v := range report.Violations {
				fmt.Printf("  %-20s %s %s\n", v.Invariant, v.Date.Format(domain.DateLayout), v.Detail)
			}
		}

		if !report.OK() {
			return errVerificationFailed
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
