package stub

import (
	"context"
	"fmt"

	"regime-tier-lab/internal/domain"
)

// StubBarSource returns fixed in-memory bars for testing.
// Bars can be intentionally unordered to test normalization.
// Implements ingestion.BarSource interface.
type StubBarSource struct {
	bars map[string][]domain.PriceBar
	err  error
}

// NewStubBarSource creates a new stub bar source keyed by symbol.
func NewStubBarSource(bars map[string][]domain.PriceBar) *StubBarSource {
	return &StubBarSource{bars: bars}
}

// FailWith makes every Fetch return err.
func (s *StubBarSource) FailWith(err error) {
	s.err = err
}

// Fetch returns a copy of the symbol's bars.
func (s *StubBarSource) Fetch(_ context.Context, symbol string) ([]domain.PriceBar, error) {
	if s.err != nil {
		return nil, s.err
	}
	bars, ok := s.bars[symbol]
	if !ok {
		return nil, fmt.Errorf("stub: unknown symbol %q", symbol)
	}
	out := make([]domain.PriceBar, len(bars))
	copy(out, bars)
	return out, nil
}
