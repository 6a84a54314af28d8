package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/optimizer"
	"regime-tier-lab/internal/robustness"
	"regime-tier-lab/internal/sensitivity"
)

var robustnessCmd = &cobra.Command{
	Use:   "robustness",
	Short: "Simulate randomly sampled windows and report survival",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, in, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := env.Orchestrator.Robustness(cmd.Context(), in, env.Config.Robustness, progress(env.Log, "robustness"))
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(run)
		}
		printRobustness(run.RunID, run.Report)
		return nil
	},
}

var sensitivityCmd = &cobra.Command{
	Use:   "sensitivity",
	Short: "Shift buy-limit and target percentages over a grid",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, in, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := env.Orchestrator.Sensitivity(cmd.Context(), in, env.Config.Sensitivity, progress(env.Log, "sensitivity"))
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(run)
		}
		printSensitivity(run.RunID, run.Report)
		return nil
	},
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Random parameter search ranked by CAGR",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, in, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := env.Orchestrator.Optimize(cmd.Context(), in, env.Config.Optimizer, progress(env.Log, "optimizer"))
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(run)
		}
		printOptimizer(run.RunID, run.Report)
		return nil
	},
}

var runsKind string

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored analysis runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, _, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		kind := domain.RunKind(runsKind)
		switch kind {
		case domain.RunKindRobustness, domain.RunKindSensitivity, domain.RunKindOptimizer:
		default:
			return fmt.Errorf("unknown run kind %q", runsKind)
		}

		runs, err := env.Orchestrator.Runs(cmd.Context(), kind)
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(runs)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RUN ID\tCREATED\tSYMBOL\tCAGR%\tMDD%\tSIMS\tTRADES")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.2f\t%d\t%d\n",
				r.RunID, r.CreatedAt.Format("2006-01-02 15:04"), r.Symbol, r.CAGR, r.MaxDrawdown, r.Evaluations, r.TotalTrades)
		}
		return w.Flush()
	},
}

func init() {
	runsCmd.Flags().StringVar(&runsKind, "kind", string(domain.RunKindRobustness), "ROBUSTNESS, SENSITIVITY or OPTIMIZER")
	rootCmd.AddCommand(robustnessCmd, sensitivityCmd, optimizeCmd, runsCmd)
}

func printRobustness(runID string, r *robustness.Report) {
	fmt.Println()
	fmt.Println("=== Robustness ===")
	fmt.Printf("Run ID:             %s\n", runID)
	fmt.Printf("Windows:            %d (seed %d)\n", r.Runs, r.Seed)
	fmt.Printf("Survival Rate:      %.1f%%\n", r.SurvivalRate)
	fmt.Printf("Mean CAGR:          %.2f%%\n", r.MeanCAGR)
	fmt.Printf("Mean Max Drawdown:  %.2f%%\n", r.MeanMaxDrawdown)
	fmt.Printf("Mean Win Rate:      %.1f%%\n", r.MeanWinRate)
	fmt.Printf("Mean Trade Quality: %.3f\n", r.MeanTradeQuality)
	fmt.Printf("Mean R-squared:     %.3f\n", r.MeanRSquared)
}

func printSensitivity(runID string, r *sensitivity.Report) {
	fmt.Println()
	fmt.Println("=== Sensitivity ===")
	fmt.Printf("Run ID:             %s\n", runID)
	fmt.Printf("Grid:               %dx%d at %.2f points\n", 2*r.Steps+1, 2*r.Steps+1, r.Step)
	fmt.Printf("Center CAGR:        %.2f%%\n", r.CenterReturn)
	fmt.Printf("Mean / Min / Max:   %.2f%% / %.2f%% / %.2f%%\n", r.MeanReturn, r.MinReturn, r.MaxReturn)
	fmt.Printf("Stability Ratio:    %.2f\n", r.StabilityRatio)
	fmt.Println()

	// Rows are target shifts, columns buy-limit shifts.
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', tabwriter.AlignRight)
	fmt.Fprint(w, "tgt\\buy\t")
	for x := -r.Steps; x <= r.Steps; x++ {
		fmt.Fprintf(w, "%+.1f\t", float64(x)*r.Step)
	}
	fmt.Fprintln(w)
	for y := r.Steps; y >= -r.Steps; y-- {
		fmt.Fprintf(w, "%+.1f\t", float64(y)*r.Step)
		for _, v := range r.Grid[y+r.Steps] {
			fmt.Fprintf(w, "%.1f\t", v)
		}
		fmt.Fprintln(w)
	}
	_ = w.Flush()
}

func printOptimizer(runID string, r *optimizer.Report) {
	fmt.Println()
	fmt.Println("=== Optimizer ===")
	fmt.Printf("Run ID:             %s\n", runID)
	fmt.Printf("Candidates:         %d (seed %d)\n", r.Candidates, r.Seed)
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tCAGR%\tMDD%\tWIN%\tPF\tSAFE buy/tgt/hold\tOFF buy/tgt/hold")
	for i, c := range r.Top {
		s, o := c.Params.Safe, c.Params.Offensive
		fmt.Fprintf(w, "%d\t%.2f\t%.2f\t%.1f\t%.2f\t%.1f/%.1f/%d\t%.1f/%.1f/%d\n",
			i+1, c.CAGR, c.MaxDrawdown, c.WinRate, c.ProfitFactor,
			s.BuyLimitPct, s.TargetPct, s.HoldingDayLimit,
			o.BuyLimitPct, o.TargetPct, o.HoldingDayLimit)
	}
	_ = w.Flush()
}
