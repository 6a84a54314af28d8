package clickhouse

import (
	"context"
	"fmt"
	"time"

	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/storage"
)

// PriceBarStore implements storage.PriceBarStore using ClickHouse.
type PriceBarStore struct {
	conn *Conn
}

// NewPriceBarStore creates a new PriceBarStore.
func NewPriceBarStore(conn *Conn) *PriceBarStore {
	return &PriceBarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceBarStore = (*PriceBarStore)(nil)

// InsertBulk adds bars for a symbol. Fails entire batch on duplicate (symbol, date).
func (s *PriceBarStore) InsertBulk(ctx context.Context, symbol string, bars []domain.PriceBar) error {
	if symbol == "" {
		return storage.ErrInvalidInput
	}
	if len(bars) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[time.Time]struct{}, len(bars))
	first, last := domain.Day(bars[0].Date), domain.Day(bars[0].Date)
	for _, b := range bars {
		if b.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		day := domain.Day(b.Date)
		if _, exists := seen[day]; exists {
			return storage.ErrDuplicateKey
		}
		seen[day] = struct{}{}
		if day.Before(first) {
			first = day
		}
		if day.After(last) {
			last = day
		}
	}

	// Check for duplicates against existing DB rows
	stored, err := s.GetByDateRange(ctx, symbol, first, last)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	for _, b := range stored {
		if _, exists := seen[b.Date]; exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_bars (symbol, date, open, high, low, close, volume)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(symbol, domain.Day(b.Date), b.Open, b.High, b.Low, b.Close, b.Volume)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySymbol retrieves all bars for a symbol, ordered by date ASC.
func (s *PriceBarStore) GetBySymbol(ctx context.Context, symbol string) ([]domain.PriceBar, error) {
	query := `
		SELECT date, open, high, low, close, volume
		FROM price_bars FINAL
		WHERE symbol = ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("query by symbol: %w", err)
	}
	defer rows.Close()

	return scanPriceBars(rows)
}

// GetByDateRange retrieves bars for a symbol within [start, end] (inclusive).
func (s *PriceBarStore) GetByDateRange(ctx context.Context, symbol string, start, end time.Time) ([]domain.PriceBar, error) {
	query := `
		SELECT date, open, high, low, close, volume
		FROM price_bars FINAL
		WHERE symbol = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, domain.Day(start), domain.Day(end))
	if err != nil {
		return nil, fmt.Errorf("query by date range: %w", err)
	}
	defer rows.Close()

	return scanPriceBars(rows)
}

// Symbols lists stored symbols in ascending order.
func (s *PriceBarStore) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT DISTINCT symbol FROM price_bars ORDER BY symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate symbol rows: %w", err)
	}
	return symbols, nil
}

// scanPriceBars scans multiple rows.
func scanPriceBars(rows chRows) ([]domain.PriceBar, error) {
	var bars []domain.PriceBar

	for rows.Next() {
		var b domain.PriceBar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan price bar row: %w", err)
		}
		b.Date = domain.Day(b.Date)
		bars = append(bars, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price bar rows: %w", err)
	}

	return bars, nil
}
