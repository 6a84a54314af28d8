package normalization

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/storage"
)

// Runner loads stored series and normalizes them for simulation.
type Runner struct {
	barStore storage.PriceBarStore
	log      zerolog.Logger
}

// NewRunner creates a new normalization runner.
func NewRunner(barStore storage.PriceBarStore, log zerolog.Logger) *Runner {
	return &Runner{
		barStore: barStore,
		log:      log.With().Str("component", "normalization").Logger(),
	}
}

// LoadSeries loads and normalizes all bars of a symbol.
// Steps:
//  1. Load bars from store
//  2. Normalize (day truncation, sort, dedup, OHLC fill)
//  3. Verify strict date order
func (r *Runner) LoadSeries(ctx context.Context, symbol string) ([]domain.PriceBar, error) {
	bars, err := r.barStore.GetBySymbol(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", symbol, err)
	}
	return r.finish(symbol, bars)
}

// LoadRange loads and normalizes bars of a symbol within [start, end].
func (r *Runner) LoadRange(ctx context.Context, symbol string, start, end time.Time) ([]domain.PriceBar, error) {
	bars, err := r.barStore.GetByDateRange(ctx, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", symbol, err)
	}
	return r.finish(symbol, bars)
}

func (r *Runner) finish(symbol string, bars []domain.PriceBar) ([]domain.PriceBar, error) {
	normalized, stats := Normalize(bars)
	if len(normalized) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoBars, symbol)
	}
	if err := CheckOrdered(normalized); err != nil {
		return nil, err
	}

	r.log.Debug().
		Str("symbol", symbol).
		Int("bars", stats.Output).
		Int("duplicates", stats.Duplicates).
		Int("invalid", stats.Invalid).
		Int("filled", stats.Filled).
		Msg("series normalized")

	return normalized, nil
}
