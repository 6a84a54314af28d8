package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/storage"
)

// RunSummaryStore implements storage.RunSummaryStore using PostgreSQL.
type RunSummaryStore struct {
	pool *Pool
}

// NewRunSummaryStore creates a new RunSummaryStore.
func NewRunSummaryStore(pool *Pool) *RunSummaryStore {
	return &RunSummaryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunSummaryStore = (*RunSummaryStore)(nil)

const runSummaryColumns = `
	run_id, kind, symbol, ref_symbol, start_date, end_date, params_json,
	final_equity, cagr, max_drawdown, win_rate, trade_quality, profit_factor,
	total_trades, evaluations, extra, created_at
`

// Insert adds a new summary. Returns ErrDuplicateKey if run_id exists.
func (s *RunSummaryStore) Insert(ctx context.Context, r *domain.RunSummary) error {
	if r == nil || r.RunID == "" || r.Kind == "" {
		return storage.ErrInvalidInput
	}

	params := r.ParamsJSON
	if len(params) == 0 {
		params = []byte("{}")
	}
	var extra []byte
	if len(r.Extra) > 0 {
		extra = r.Extra
	}

	query := `
		INSERT INTO run_summaries (` + runSummaryColumns + `) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17
		)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RunID, string(r.Kind), r.Symbol, r.RefSymbol, r.StartDate, r.EndDate, params,
		r.FinalEquity, r.CAGR, r.MaxDrawdown, r.WinRate, r.TradeQuality, r.ProfitFactor,
		r.TotalTrades, r.Evaluations, extra, r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run summary: %w", err)
	}
	return nil
}

// GetByID retrieves a summary by run ID. Returns ErrNotFound if not exists.
func (s *RunSummaryStore) GetByID(ctx context.Context, runID string) (*domain.RunSummary, error) {
	query := `SELECT ` + runSummaryColumns + ` FROM run_summaries WHERE run_id = $1`

	r, err := scanRunSummary(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run summary by id: %w", err)
	}
	return r, nil
}

// GetByKind retrieves all summaries of a kind, ordered by created_at ASC, run_id ASC.
func (s *RunSummaryStore) GetByKind(ctx context.Context, kind domain.RunKind) ([]*domain.RunSummary, error) {
	query := `
		SELECT ` + runSummaryColumns + `
		FROM run_summaries
		WHERE kind = $1
		ORDER BY created_at ASC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("get run summaries by kind: %w", err)
	}
	defer rows.Close()

	var summaries []*domain.RunSummary
	for rows.Next() {
		r, err := scanRunSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run summary row: %w", err)
		}
		summaries = append(summaries, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run summary rows: %w", err)
	}

	return summaries, nil
}

// scanRunSummary scans a single row into a RunSummary.
func scanRunSummary(row pgx.Row) (*domain.RunSummary, error) {
	var r domain.RunSummary
	var kind string

	err := row.Scan(
		&r.RunID, &kind, &r.Symbol, &r.RefSymbol, &r.StartDate, &r.EndDate, &r.ParamsJSON,
		&r.FinalEquity, &r.CAGR, &r.MaxDrawdown, &r.WinRate, &r.TradeQuality, &r.ProfitFactor,
		&r.TotalTrades, &r.Evaluations, &r.Extra, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Kind = domain.RunKind(kind)
	return &r, nil
}
