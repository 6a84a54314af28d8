package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/storage"
)

// TradeRecordStore implements storage.TradeRecordStore using PostgreSQL.
type TradeRecordStore struct {
	pool *Pool
}

// NewTradeRecordStore creates a new TradeRecordStore.
func NewTradeRecordStore(pool *Pool) *TradeRecordStore {
	return &TradeRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeRecordStore = (*TradeRecordStore)(nil)

const tradeRecordColumns = `
	trade_id, run_id,
	entry_date, exit_date, entry_price, exit_price, quantity,
	pnl, pnl_pct, fees, exit_kind, regime, days_held
`

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeRecordStore) InsertBulk(ctx context.Context, trades []*domain.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}
	for _, t := range trades {
		if t == nil || t.TradeID == "" || t.RunID == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO trade_records (` + tradeRecordColumns + `) VALUES (
			$1, $2,
			$3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13
		)
	`

	for _, t := range trades {
		_, err := tx.Exec(ctx, query,
			t.TradeID, t.RunID,
			t.EntryDate, t.ExitDate, t.EntryPrice, t.ExitPrice, t.Quantity,
			t.PnL, t.PnLPct, t.Fees, string(t.ExitKind), string(t.Regime), t.DaysHeld,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade record in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeRecordStore) GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error) {
	query := `SELECT ` + tradeRecordColumns + ` FROM trade_records WHERE trade_id = $1`

	t, err := scanTradeRecord(s.pool.QueryRow(ctx, query, tradeID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade record by id: %w", err)
	}
	return t, nil
}

// GetByRunID retrieves all trades of a run, ordered by exit_date ASC, trade_id ASC.
func (s *TradeRecordStore) GetByRunID(ctx context.Context, runID string) ([]*domain.TradeRecord, error) {
	query := `
		SELECT ` + tradeRecordColumns + `
		FROM trade_records
		WHERE run_id = $1
		ORDER BY exit_date ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get trade records by run id: %w", err)
	}
	defer rows.Close()

	var trades []*domain.TradeRecord
	for rows.Next() {
		t, err := scanTradeRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade record row: %w", err)
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade record rows: %w", err)
	}

	return trades, nil
}

// scanTradeRecord scans a single row into a TradeRecord.
func scanTradeRecord(row pgx.Row) (*domain.TradeRecord, error) {
	var t domain.TradeRecord
	var exitKind, regime string

	err := row.Scan(
		&t.TradeID, &t.RunID,
		&t.EntryDate, &t.ExitDate, &t.EntryPrice, &t.ExitPrice, &t.Quantity,
		&t.PnL, &t.PnLPct, &t.Fees, &exitKind, &regime, &t.DaysHeld,
	)
	if err != nil {
		return nil, err
	}

	t.ExitKind = domain.ExitKind(exitKind)
	t.Regime = domain.Regime(regime)
	return &t, nil
}
