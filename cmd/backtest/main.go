// Command backtest runs single simulations, prints next-session order sheets
// and verifies stored runs by replay.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"regime-tier-lab/internal/app"
	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/orchestrator"
)

var (
	configPath string
	outputJSON bool
	symbol     string
	refSymbol  string
	startDate  string
	endDate    string
)

var rootCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Regime-switching tiered-entry backtester",
	Long: `backtest simulates the tiered-entry strategy over stored daily bars.

Price bars come from ClickHouse when CLICKHOUSE_DSN is set, otherwise they are
loaded from the ingest directory into memory. Runs are stored in PostgreSQL
when POSTGRES_DSN is set.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to YAML config file")
	pf.BoolVar(&outputJSON, "json", false, "Output as JSON")
	pf.StringVar(&symbol, "symbol", "", "Traded symbol (overrides config)")
	pf.StringVar(&refSymbol, "ref", "", "Regime reference symbol (overrides config)")
	pf.StringVar(&startDate, "start", "", "Start date YYYY-MM-DD (overrides config)")
	pf.StringVar(&endDate, "end", "", "End date YYYY-MM-DD (overrides config)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup builds the environment, applies flag overrides to the inputs and
// seeds memory-backed bars for the resulting symbols.
func setup(ctx context.Context) (*app.Env, orchestrator.Inputs, error) {
	env, err := app.Setup(ctx, configPath, false)
	if err != nil {
		return nil, orchestrator.Inputs{}, err
	}

	in, err := env.Inputs()
	if err == nil {
		err = applyOverrides(&in)
	}
	if err == nil {
		env.Config.Symbol, env.Config.RefSymbol = in.Symbol, in.RefSymbol
		err = env.Stores.Seed(ctx, env.Config, env.Metrics, env.Log)
	}
	if err != nil {
		env.Close()
		return nil, orchestrator.Inputs{}, err
	}
	return env, in, nil
}

func applyOverrides(in *orchestrator.Inputs) error {
	if symbol != "" {
		in.Symbol = symbol
	}
	if refSymbol != "" {
		in.RefSymbol = refSymbol
	}
	if startDate != "" {
		t, err := domain.ParseDate(startDate)
		if err != nil {
			return fmt.Errorf("--start: %w", err)
		}
		in.Params.StartDate = t
	}
	if endDate != "" {
		t, err := domain.ParseDate(endDate)
		if err != nil {
			return fmt.Errorf("--end: %w", err)
		}
		in.Params.EndDate = t
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
