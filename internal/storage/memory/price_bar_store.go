package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/storage"
)

// PriceBarStore is an in-memory implementation of storage.PriceBarStore.
type PriceBarStore struct {
	mu   sync.RWMutex
	data map[string]map[time.Time]domain.PriceBar // symbol -> date -> bar
}

// NewPriceBarStore creates a new in-memory price bar store.
func NewPriceBarStore() *PriceBarStore {
	return &PriceBarStore{
		data: make(map[string]map[time.Time]domain.PriceBar),
	}
}

// InsertBulk adds bars for a symbol. Fails entire batch on duplicate (symbol, date).
func (s *PriceBarStore) InsertBulk(_ context.Context, symbol string, bars []domain.PriceBar) error {
	if symbol == "" {
		return storage.ErrInvalidInput
	}
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.data[symbol]
	batchKeys := make(map[time.Time]struct{}, len(bars))

	for _, b := range bars {
		if b.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		day := domain.Day(b.Date)
		if _, exists := existing[day]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[day]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[day] = struct{}{}
	}

	if existing == nil {
		existing = make(map[time.Time]domain.PriceBar, len(bars))
		s.data[symbol] = existing
	}
	for _, b := range bars {
		b.Date = domain.Day(b.Date)
		existing[b.Date] = b
	}

	return nil
}

// GetBySymbol retrieves all bars for a symbol, ordered by date ASC.
func (s *PriceBarStore) GetBySymbol(_ context.Context, symbol string) ([]domain.PriceBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(symbol, func(time.Time) bool { return true }), nil
}

// GetByDateRange retrieves bars for a symbol within [start, end] (inclusive).
func (s *PriceBarStore) GetByDateRange(_ context.Context, symbol string, start, end time.Time) ([]domain.PriceBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start, end = domain.Day(start), domain.Day(end)
	return s.collect(symbol, func(d time.Time) bool {
		return !d.Before(start) && !d.After(end)
	}), nil
}

func (s *PriceBarStore) collect(symbol string, keep func(time.Time) bool) []domain.PriceBar {
	var result []domain.PriceBar
	for d, b := range s.data[symbol] {
		if keep(d) {
			result = append(result, b)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result
}

// Symbols lists stored symbols in ascending order.
func (s *PriceBarStore) Symbols(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols := make([]string, 0, len(s.data))
	for sym := range s.data {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols, nil
}

var _ storage.PriceBarStore = (*PriceBarStore)(nil)
