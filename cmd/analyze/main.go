// Command analyze runs the robustness, sensitivity and optimizer analyses and
// evaluates the GO / NO-GO decision gate.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"regime-tier-lab/internal/app"
	"regime-tier-lab/internal/batch"
	"regime-tier-lab/internal/observability"
	"regime-tier-lab/internal/orchestrator"
)

var (
	configPath  string
	outputJSON  bool
	metricsAddr string
	symbol      string
	refSymbol   string
	seed        uint64
	workers     int
)

var rootCmd = &cobra.Command{
	Use:          "analyze",
	Short:        "Parameter analyses and decision gate",
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to YAML config file")
	pf.BoolVar(&outputJSON, "json", false, "Output as JSON")
	pf.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running (e.g. :9090)")
	pf.StringVar(&symbol, "symbol", "", "Traded symbol (overrides config)")
	pf.StringVar(&refSymbol, "ref", "", "Regime reference symbol (overrides config)")
	pf.Uint64Var(&seed, "seed", 0, "Random seed (overrides config, 0 keeps it)")
	pf.IntVar(&workers, "workers", 0, "Parallel simulations (overrides config, 0 keeps it)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup builds the environment, applies overrides, seeds memory-backed bars
// and starts the metrics server when requested.
func setup(ctx context.Context) (*app.Env, orchestrator.Inputs, error) {
	env, err := app.Setup(ctx, configPath, false)
	if err != nil {
		return nil, orchestrator.Inputs{}, err
	}

	if symbol != "" {
		env.Config.Symbol = symbol
	}
	if refSymbol != "" {
		env.Config.RefSymbol = refSymbol
	}
	if seed != 0 {
		env.Config.Robustness.Seed = seed
		env.Config.Optimizer.Seed = seed
	}
	if workers > 0 {
		env.Config.Robustness.Batch.Workers = workers
		env.Config.Sensitivity.Batch.Workers = workers
		env.Config.Optimizer.Batch.Workers = workers
	}

	in, err := env.Inputs()
	if err == nil {
		err = env.Stores.Seed(ctx, env.Config, env.Metrics, env.Log)
	}
	if err != nil {
		env.Close()
		return nil, orchestrator.Inputs{}, err
	}

	if metricsAddr != "" {
		go func() {
			if err := observability.Serve(ctx, metricsAddr, env.Log); err != nil {
				env.Log.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}
	return env, in, nil
}

// progress logs completed batches.
func progress(log zerolog.Logger, kind string) batch.ProgressFunc {
	return func(completed, total int) {
		log.Info().
			Str("analysis", kind).
			Int("completed", completed).
			Int("total", total).
			Msg("progress")
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
