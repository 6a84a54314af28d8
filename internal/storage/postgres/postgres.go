package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the shared connection pool behind the run summary and trade
// record stores.
type Pool struct {
	*pgxpool.Pool
}

// NewPool opens a pool for dsn and fails fast if the server is unreachable,
// so a bad postgres_dsn setting is reported before any simulation runs.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid run store dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open run store pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run store unreachable at %s: %w", cfg.ConnConfig.Host, err)
	}

	return &Pool{Pool: pool}, nil
}

// Close releases every pooled connection.
func (p *Pool) Close() {
	p.Pool.Close()
}

// SQLSTATE 23505: the run_id or trade_id primary key already exists.
const codeUniqueViolation = "23505"

// isDuplicateKeyError reports whether err is a primary key clash, which the
// stores translate to storage.ErrDuplicateKey.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// isNotFoundError reports whether a single-row lookup matched nothing.
func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
