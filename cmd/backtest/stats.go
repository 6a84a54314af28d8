package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"regime-tier-lab/internal/domain"
)

var statsCmd = &cobra.Command{
	Use:   "stats <run-id>",
	Short: "Aggregate the stored trades of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, _, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := env.Orchestrator.TradeStats(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(stats)
		}

		fmt.Println()
		fmt.Println("=== Trade Statistics ===")
		fmt.Printf("Run ID:             %s\n", stats.RunID)
		fmt.Printf("Trades:             %d (%d wins, %d losses)\n", stats.Trades, stats.Wins, stats.Losses)
		fmt.Printf("Win Rate:           %.2f%%\n", stats.WinRate)
		fmt.Printf("Trade Quality:      %.3f\n", stats.TradeQuality)
		fmt.Printf("Profit Factor:      %.2f\n", stats.ProfitFactor)
		fmt.Printf("Return mean/median: %.2f%% / %.2f%%\n", stats.MeanReturnPct, stats.MedianReturnPct)
		fmt.Printf("Return p10/p90:     %.2f%% / %.2f%%\n", stats.ReturnP10, stats.ReturnP90)
		fmt.Printf("Total PnL:          %.2f\n", stats.TotalPnL)
		fmt.Printf("Total Fees:         %.2f\n", stats.TotalFees)
		fmt.Printf("Max loss streak:    %d\n", stats.MaxConsecutiveLosses)
		for _, k := range []domain.ExitKind{domain.ExitKindTarget, domain.ExitKindForced} {
			fmt.Printf("  %-17s %d\n", string(k)+":", stats.ByExitKind[k])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
