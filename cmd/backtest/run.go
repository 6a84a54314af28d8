package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/orchestrator"
	"regime-tier-lab/internal/reporting"
)

var (
	showTrades bool
	outDir     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one simulation and store it",
	Example: `  backtest run --config config.yaml
  backtest run --symbol SOXL --ref QQQ --start 2020-01-02 --end 2024-12-31 --trades`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, in, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := env.Orchestrator.Simulate(cmd.Context(), in)
		if err != nil {
			return err
		}

		if outDir != "" {
			if err := writeReport(outDir, in, run); err != nil {
				return err
			}
			env.Log.Info().Str("dir", outDir).Msg("Report written")
		}

		if outputJSON {
			return printJSON(run)
		}
		printRun(in, run)
		if showTrades {
			printTrades(run.Result.ClosedTrades)
		}
		return nil
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored simulation runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, _, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		runs, err := env.Orchestrator.Runs(cmd.Context(), domain.RunKindSimulation)
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(runs)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RUN ID\tSYMBOL\tREF\tSTART\tEND\tFINAL\tCAGR%\tMDD%\tTRADES")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.2f\t%.2f\t%.2f\t%d\n",
				r.RunID[:12], r.Symbol, r.RefSymbol,
				r.StartDate.Format(domain.DateLayout), r.EndDate.Format(domain.DateLayout),
				r.FinalEquity, r.CAGR, r.MaxDrawdown, r.TotalTrades)
		}
		return w.Flush()
	},
}

func init() {
	runCmd.Flags().BoolVar(&showTrades, "trades", false, "Print closed trades")
	runCmd.Flags().StringVar(&outDir, "out", "", "Write report.md, trades.csv and daily.csv to this directory")
	rootCmd.AddCommand(runCmd, runsCmd)
}

func printRun(in orchestrator.Inputs, run *orchestrator.SimulationRun) {
	s := run.Summary
	fmt.Println()
	fmt.Println("=== Backtest Result ===")
	fmt.Printf("Run ID:             %s\n", run.RunID)
	if run.Existing {
		fmt.Println("                    (already stored)")
	}
	fmt.Printf("Symbol:             %s (regime from %s)\n", in.Symbol, in.RefSymbol)
	fmt.Printf("Window:             %s .. %s\n",
		in.Params.StartDate.Format(domain.DateLayout), in.Params.EndDate.Format(domain.DateLayout))
	fmt.Printf("Tier mode:          %s\n", in.Params.TierMode)
	fmt.Println()

	fmt.Println("Equity:")
	fmt.Printf("  Start:            %.2f\n", s.StartEquity)
	fmt.Printf("  Final:            %.2f\n", s.FinalEquity)
	fmt.Printf("  Total Return:     %.2f%%\n", s.TotalReturn)
	fmt.Printf("  CAGR:             %.2f%%\n", s.CAGR)
	fmt.Printf("  Max Drawdown:     %.2f%% (%s)\n", s.MaxDrawdown, s.MaxDrawdownAt.Format(domain.DateLayout))
	fmt.Printf("  Ulcer Index:      %.2f\n", s.UlcerIndex)
	fmt.Printf("  Martin Ratio:     %.2f\n", s.MartinRatio)
	fmt.Println()

	fmt.Println("Trades:")
	fmt.Printf("  Closed:           %d\n", s.Trades)
	fmt.Printf("  Win Rate:         %.2f%%\n", s.WinRate)
	fmt.Printf("  Trade Quality:    %.3f\n", s.TradeQuality)
	fmt.Printf("  Profit Factor:    %.2f\n", s.ProfitFactor)
	fmt.Printf("  Invested (avg):   %.1f%% (p5 %.1f%%, p95 %.1f%%)\n", s.AvgInvestedPct, s.InvestedP5, s.InvestedP95)

	if len(run.Violations) > 0 {
		fmt.Println()
		fmt.Println("Invariant violations:")
		for _, v := range run.Violations {
			fmt.Printf("  %-20s %s %s\n", v.Invariant, v.Date.Format(domain.DateLayout), v.Detail)
		}
	}
}

func printTrades(trades []domain.ClosedTrade) {
	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENTRY\tEXIT\tREGIME\tQTY\tBUY\tSELL\tPNL\tPNL%\tDAYS\tEXIT")
	for _, t := range trades {
		if t.Quantity == 0 {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%d\t%s\n",
			t.EntryDate.Format(domain.DateLayout), t.ExitDate.Format(domain.DateLayout),
			t.RegimeAtEntry, t.Quantity, t.EntryPrice, t.ExitPrice, t.PnL, t.PnLPct, t.DaysHeld, t.ExitKind)
	}
	_ = w.Flush()
}

func writeReport(dir string, in orchestrator.Inputs, run *orchestrator.SimulationRun) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	report := reporting.Build(run.RunID, in.Symbol, in.RefSymbol, run.Result, time.Now().UTC())
	files := map[string]string{
		"report.md":  reporting.RenderMarkdown(report),
		"trades.csv": reporting.RenderTradesCSV(run.Result.ClosedTrades),
		"daily.csv":  reporting.RenderDailyCSV(run.Result.DailyLog),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}
