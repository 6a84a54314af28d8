package ingestion

import (
	"context"

	"regime-tier-lab/internal/domain"
)

// BarSource provides raw daily bars from external sources.
type BarSource interface {
	// Fetch returns all bars available for a symbol.
	// Bars may be unordered or repeat a day; Manager normalizes them.
	Fetch(ctx context.Context, symbol string) ([]domain.PriceBar, error)
}
