package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/normalization"
	"regime-tier-lab/internal/observability"
	"regime-tier-lab/internal/storage"
)

// Manager orchestrates ingestion from sources to storage.
// It normalizes fetched bars and appends only days newer than the stored series.
type Manager struct {
	source  BarSource
	store   storage.PriceBarStore
	metrics *observability.Metrics
	log     zerolog.Logger
}

// ManagerOptions contains configuration for creating a Manager.
type ManagerOptions struct {
	Source  BarSource
	Store   storage.PriceBarStore
	Metrics *observability.Metrics // optional
	Logger  zerolog.Logger
}

// NewManager creates a new ingestion manager with the provided source and store.
func NewManager(opts ManagerOptions) *Manager {
	return &Manager{
		source:  opts.Source,
		store:   opts.Store,
		metrics: opts.Metrics,
		log:     opts.Logger.With().Str("component", "ingestion").Logger(),
	}
}

// IngestBars fetches a symbol's bars and stores the days after the last stored one.
// Returns count of ingested bars and any error.
// Overlapping days already stored are skipped, not rewritten.
func (m *Manager) IngestBars(ctx context.Context, symbol string) (int, error) {
	if m.source == nil || m.store == nil {
		return 0, nil
	}

	raw, err := m.source.Fetch(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", symbol, err)
	}

	bars, stats := normalization.Normalize(raw)
	if len(bars) == 0 {
		return 0, nil
	}

	stored, err := m.store.GetBySymbol(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("load stored %s: %w", symbol, err)
	}

	fresh := bars
	if n := len(stored); n > 0 {
		fresh = newerThan(bars, stored[n-1])
	}

	m.log.Debug().
		Str("symbol", symbol).
		Int("fetched", stats.Input).
		Int("duplicates", stats.Duplicates).
		Int("invalid", stats.Invalid).
		Int("stored", len(stored)).
		Int("new", len(fresh)).
		Msg("bars normalized")

	if len(fresh) == 0 {
		return 0, nil
	}

	// Store via bulk insert - storage layer rejects duplicates
	if err := m.store.InsertBulk(ctx, symbol, fresh); err != nil {
		return 0, fmt.Errorf("store %s: %w", symbol, err)
	}

	return len(fresh), nil
}

// IngestAll ingests every symbol, stopping at the first error.
func (m *Manager) IngestAll(ctx context.Context, symbols []string) (map[string]int, error) {
	counts := make(map[string]int, len(symbols))
	for _, symbol := range symbols {
		n, err := m.IngestBars(ctx, symbol)
		if err != nil {
			if m.metrics != nil {
				m.metrics.RecordIngestionError(symbol)
			}
			return counts, err
		}
		counts[symbol] = n
		if m.metrics != nil {
			m.metrics.RecordBarsIngested(symbol, n, time.Now().Unix())
		}
		m.log.Info().Str("symbol", symbol).Int("bars", n).Msg("symbol ingested")
	}
	return counts, nil
}

func newerThan(bars []domain.PriceBar, last domain.PriceBar) []domain.PriceBar {
	cutoff := domain.Day(last.Date)
	for i, b := range bars {
		if b.Date.After(cutoff) {
			return bars[i:]
		}
	}
	return nil
}
