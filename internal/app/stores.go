// Package app assembles the stores, orchestrator and ingestion used by the
// command-line tools.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"regime-tier-lab/internal/config"
	"regime-tier-lab/internal/ingestion"
	"regime-tier-lab/internal/observability"
	"regime-tier-lab/internal/orchestrator"
	"regime-tier-lab/internal/storage"
	chstore "regime-tier-lab/internal/storage/clickhouse"
	"regime-tier-lab/internal/storage/memory"
	"regime-tier-lab/internal/storage/migrations"
	pgstore "regime-tier-lab/internal/storage/postgres"
)

// Stores bundles the three stores and their connections.
type Stores struct {
	Bars   storage.PriceBarStore
	Runs   storage.RunSummaryStore
	Trades storage.TradeRecordStore

	// Memory reports that bars live in process memory and must be seeded.
	Memory bool

	closers []func()
}

// OpenStores connects ClickHouse for price bars and PostgreSQL for runs when
// their DSNs are set, applying migrations first. Unset DSNs fall back to
// in-memory stores.
func OpenStores(ctx context.Context, cfg config.StorageConfig, m *observability.Metrics, log zerolog.Logger) (*Stores, error) {
	s := &Stores{}

	if cfg.ClickHouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		if err != nil {
			return nil, fmt.Errorf("clickhouse: %w", err)
		}
		s.closers = append(s.closers, func() { _ = conn.Close() })
		s.Bars = instrumentBars(chstore.NewPriceBarStore(conn), m)
		log.Info().Msg("price bars in clickhouse")
	} else {
		s.Bars = memory.NewPriceBarStore()
		s.Memory = true
		log.Info().Msg("price bars in memory")
	}

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		s.closers = append(s.closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			s.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		s.Runs = instrumentRuns(pgstore.NewRunSummaryStore(pool), m)
		s.Trades = instrumentTrades(pgstore.NewTradeRecordStore(pool), m)
		log.Info().Msg("runs in postgres")
	} else {
		s.Runs = memory.NewRunSummaryStore()
		s.Trades = memory.NewTradeRecordStore()
		log.Info().Msg("runs in memory")
	}

	return s, nil
}

// Close releases the database connections in reverse order.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// Source returns the file source configured for ingestion.
func Source(cfg config.IngestConfig) ingestion.BarSource {
	if cfg.Format == "json" {
		return ingestion.NewJSONSource(cfg.Dir)
	}
	return ingestion.NewCSVSource(cfg.Dir)
}

// NewIngester creates an ingestion manager that reports to m.
func NewIngester(src ingestion.BarSource, bars storage.PriceBarStore, m *observability.Metrics, log zerolog.Logger) *ingestion.Manager {
	return ingestion.NewManager(ingestion.ManagerOptions{
		Source:  src,
		Store:   bars,
		Metrics: m,
		Logger:  log,
	})
}

// Seed loads the configured symbols from files into memory-backed bars.
// It is a no-op for database-backed bars.
func (s *Stores) Seed(ctx context.Context, cfg *config.Config, m *observability.Metrics, log zerolog.Logger) error {
	if !s.Memory {
		return nil
	}
	ingester := NewIngester(Source(cfg.Ingest), s.Bars, m, log)
	if _, err := ingester.IngestAll(ctx, cfg.IngestSymbols()); err != nil {
		return fmt.Errorf("seed from %s: %w", cfg.Ingest.Dir, err)
	}
	return nil
}

// NewOrchestrator wires an orchestrator over the stores.
func (s *Stores) NewOrchestrator(m *observability.Metrics, log zerolog.Logger) *orchestrator.Orchestrator {
	return orchestrator.New(orchestrator.Options{
		PriceBarStore:    s.Bars,
		RunSummaryStore:  s.Runs,
		TradeRecordStore: s.Trades,
		Metrics:          m,
		Logger:           log,
	})
}
