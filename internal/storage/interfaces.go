package storage

import (
	"context"
	"time"

	"regime-tier-lab/internal/domain"
)

// PriceBarStore provides access to price_bars storage.
type PriceBarStore interface {
	// InsertBulk adds bars for a symbol. Fails entire batch on duplicate (symbol, date).
	InsertBulk(ctx context.Context, symbol string, bars []domain.PriceBar) error

	// GetBySymbol retrieves all bars for a symbol, ordered by date ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]domain.PriceBar, error)

	// GetByDateRange retrieves bars for a symbol within [start, end] (inclusive).
	GetByDateRange(ctx context.Context, symbol string, start, end time.Time) ([]domain.PriceBar, error)

	// Symbols lists stored symbols in ascending order.
	Symbols(ctx context.Context) ([]string, error)
}

// RunSummaryStore provides access to run_summaries storage.
type RunSummaryStore interface {
	// Insert adds a new summary. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, s *domain.RunSummary) error

	// GetByID retrieves a summary by run ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.RunSummary, error)

	// GetByKind retrieves all summaries of a kind, ordered by created_at ASC, run_id ASC.
	GetByKind(ctx context.Context, kind domain.RunKind) ([]*domain.RunSummary, error)
}

// TradeRecordStore provides access to trade_records storage.
type TradeRecordStore interface {
	// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, trades []*domain.TradeRecord) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error)

	// GetByRunID retrieves all trades of a run, ordered by exit_date ASC, trade_id ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.TradeRecord, error)
}
