package migrations

import (
	"context"
	"fmt"

	"regime-tier-lab/internal/storage/postgres"
)

// RunPostgresMigrations brings the run_summaries and trade_records tables
// up to date. Every file is written with IF [NOT] EXISTS guards, so the
// whole set is replayed on each startup instead of tracking a version.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := readMigrations(PostgresFS, "postgres")
	if err != nil {
		return err
	}

	for _, f := range files {
		// pgx runs a multi-statement string as one simple-protocol batch.
		if _, err := pool.Exec(ctx, f.SQL); err != nil {
			return fmt.Errorf("postgres schema step %s: %w", f.Name, err)
		}
	}
	return nil
}
