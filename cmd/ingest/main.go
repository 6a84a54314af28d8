// Command ingest loads daily bars from CSV or JSON files into the price store,
// once or on a cron schedule.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"regime-tier-lab/internal/app"
	"regime-tier-lab/internal/config"
	"regime-tier-lab/internal/ingestion"
	"regime-tier-lab/internal/observability"
	"regime-tier-lab/internal/scheduler"
)

var (
	configPath  string
	dataDir     string
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load daily price bars into the price store",
	Long: `ingest reads <dir>/<SYMBOL>.csv or <dir>/<SYMBOL>.json, normalizes the bars and
appends the days newer than the stored series. Without CLICKHOUSE_DSN the bars
are only validated in memory.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to YAML config file")
	pf.StringVar(&dataDir, "dir", "", "Data directory (overrides config)")
	pf.StringVar(&metricsAddr, "metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")

	rootCmd.AddCommand(fileCmd("csv"), fileCmd("json"), watchCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setup(ctx context.Context, format string) (*app.Env, *ingestion.Manager, error) {
	env, err := app.Setup(ctx, configPath, false)
	if err != nil {
		return nil, nil, err
	}
	if dataDir != "" {
		env.Config.Ingest.Dir = dataDir
	}
	if format != "" {
		env.Config.Ingest.Format = format
	}
	if env.Stores.Memory {
		env.Log.Warn().Msg("CLICKHOUSE_DSN not set, ingested bars are not persisted")
	}

	if metricsAddr != "" {
		go func() {
			if err := observability.Serve(ctx, metricsAddr, env.Log); err != nil {
				env.Log.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	mgr := app.NewIngester(app.Source(env.Config.Ingest), env.Stores.Bars, env.Metrics, env.Log)
	return env, mgr, nil
}

func symbolsOf(cfg *config.Config, args []string) []string {
	if len(args) > 0 {
		return args
	}
	return cfg.IngestSymbols()
}

func fileCmd(format string) *cobra.Command {
	return &cobra.Command{
		Use:   format + " [SYMBOL...]",
		Short: fmt.Sprintf("Ingest %s files once (default symbols from config)", format),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, mgr, err := setup(cmd.Context(), format)
			if err != nil {
				return err
			}
			defer env.Close()

			counts, err := mgr.IngestAll(cmd.Context(), symbolsOf(env.Config, args))
			printCounts(counts)
			return err
		},
	}
}

var (
	watchFormat string
	watchRunNow bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [SYMBOL...]",
	Short: "Ingest on the configured cron schedule until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, mgr, err := setup(ctx, watchFormat)
		if err != nil {
			return err
		}
		defer env.Close()

		job := scheduler.NewIngestJob(scheduler.IngestJobConfig{
			Ctx:      ctx,
			Ingester: mgr,
			Symbols:  symbolsOf(env.Config, args),
			Timeout:  env.Config.Ingest.Timeout,
			Log:      env.Log,
		})

		sched := scheduler.New(env.Log)
		if err := sched.AddJob(env.Config.Ingest.Schedule, job); err != nil {
			return err
		}
		if watchRunNow {
			if err := sched.RunNow(job); err != nil {
				env.Log.Error().Err(err).Msg("initial ingestion failed")
			}
		}

		sched.Start()
		env.Log.Info().Str("schedule", env.Config.Ingest.Schedule).Msg("watching")
		<-ctx.Done()
		sched.Stop()
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchFormat, "format", "", "csv or json (overrides config)")
	watchCmd.Flags().BoolVar(&watchRunNow, "run-now", true, "Ingest once before waiting for the schedule")
}

func printCounts(counts map[string]int) {
	symbols := make([]string, 0, len(counts))
	for s := range counts {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	for _, s := range symbols {
		fmt.Printf("%-8s %d new bars\n", s, counts[s])
	}
}
