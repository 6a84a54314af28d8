package app

import (
	"context"
	"errors"
	"time"

	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/observability"
	"regime-tier-lab/internal/storage"
)

// Database labels for query metrics.
const (
	dbClickHouse = "clickhouse"
	dbPostgres   = "postgres"
)

type queryTimer struct {
	metrics  *observability.Metrics
	database string
}

func (q queryTimer) observe(op string, start time.Time, err error) {
	q.metrics.RecordDBQuery(q.database, op, time.Since(start).Seconds(), err)
}

type barStore struct {
	next storage.PriceBarStore
	queryTimer
}

func instrumentBars(next storage.PriceBarStore, m *observability.Metrics) storage.PriceBarStore {
	if m == nil {
		return next
	}
	return &barStore{next: next, queryTimer: queryTimer{metrics: m, database: dbClickHouse}}
}

func (s *barStore) InsertBulk(ctx context.Context, symbol string, bars []domain.PriceBar) error {
	start := time.Now()
	err := s.next.InsertBulk(ctx, symbol, bars)
	s.observe("insert_bars", start, err)
	return err
}

func (s *barStore) GetBySymbol(ctx context.Context, symbol string) ([]domain.PriceBar, error) {
	start := time.Now()
	bars, err := s.next.GetBySymbol(ctx, symbol)
	s.observe("get_bars", start, err)
	return bars, err
}

func (s *barStore) GetByDateRange(ctx context.Context, symbol string, from, to time.Time) ([]domain.PriceBar, error) {
	start := time.Now()
	bars, err := s.next.GetByDateRange(ctx, symbol, from, to)
	s.observe("get_bars_range", start, err)
	return bars, err
}

func (s *barStore) Symbols(ctx context.Context) ([]string, error) {
	start := time.Now()
	symbols, err := s.next.Symbols(ctx)
	s.observe("symbols", start, err)
	return symbols, err
}

type runStore struct {
	next storage.RunSummaryStore
	queryTimer
}

func instrumentRuns(next storage.RunSummaryStore, m *observability.Metrics) storage.RunSummaryStore {
	if m == nil {
		return next
	}
	return &runStore{next: next, queryTimer: queryTimer{metrics: m, database: dbPostgres}}
}

func (s *runStore) Insert(ctx context.Context, r *domain.RunSummary) error {
	start := time.Now()
	err := s.next.Insert(ctx, r)
	s.observe("insert_run", start, err)
	return err
}

func (s *runStore) GetByID(ctx context.Context, runID string) (*domain.RunSummary, error) {
	start := time.Now()
	r, err := s.next.GetByID(ctx, runID)
	s.observe("get_run", start, ignoreNotFound(err))
	return r, err
}

func (s *runStore) GetByKind(ctx context.Context, kind domain.RunKind) ([]*domain.RunSummary, error) {
	start := time.Now()
	runs, err := s.next.GetByKind(ctx, kind)
	s.observe("get_runs", start, err)
	return runs, err
}

type tradeStore struct {
	next storage.TradeRecordStore
	queryTimer
}

func instrumentTrades(next storage.TradeRecordStore, m *observability.Metrics) storage.TradeRecordStore {
	if m == nil {
		return next
	}
	return &tradeStore{next: next, queryTimer: queryTimer{metrics: m, database: dbPostgres}}
}

func (s *tradeStore) InsertBulk(ctx context.Context, trades []*domain.TradeRecord) error {
	start := time.Now()
	err := s.next.InsertBulk(ctx, trades)
	s.observe("insert_trades", start, err)
	return err
}

func (s *tradeStore) GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error) {
	start := time.Now()
	t, err := s.next.GetByID(ctx, tradeID)
	s.observe("get_trade", start, ignoreNotFound(err))
	return t, err
}

func (s *tradeStore) GetByRunID(ctx context.Context, runID string) ([]*domain.TradeRecord, error) {
	start := time.Now()
	trades, err := s.next.GetByRunID(ctx, runID)
	s.observe("get_trades", start, err)
	return trades, err
}

// ignoreNotFound keeps lookups of absent rows out of the error count.
func ignoreNotFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}
