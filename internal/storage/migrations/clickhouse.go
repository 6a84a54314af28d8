package migrations

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	chstore "regime-tier-lab/internal/storage/clickhouse"
)

// errQuotedSemicolon is returned for schema files the splitter would cut
// in the middle of a string literal.
var errQuotedSemicolon = errors.New("';' inside a quoted literal")

// RunClickhouseMigrations creates the bar database named in dsn when it is
// missing, applies the price_bars schema and hands back a connection bound
// to that database for the bar store.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}
	if err := ensureDatabase(ctx, dsn, dbName); err != nil {
		return nil, err
	}

	files, err := readMigrations(ClickhouseFS, "clickhouse")
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if err := validateNoSemicolonInStrings(f.SQL); err != nil {
			return nil, fmt.Errorf("clickhouse schema file %s: %w", f.Name, err)
		}
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, fmt.Errorf("open bar database %s: %w", dbName, err)
	}

	for _, f := range files {
		// The native protocol executes one statement per call.
		for _, stmt := range splitStatements(f.SQL) {
			if err := conn.Exec(ctx, stmt); err != nil {
				conn.Close()
				return nil, fmt.Errorf("clickhouse schema step %s: %w", f.Name, err)
			}
		}
	}
	return conn, nil
}

// ensureDatabase issues CREATE DATABASE through a connection to the server
// default database, since dbName may not exist yet.
func ensureDatabase(ctx context.Context, dsn, dbName string) error {
	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("open clickhouse server connection: %w", err)
	}
	defer admin.Close()

	if err := admin.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", dbName)); err != nil {
		return fmt.Errorf("create bar database %s: %w", dbName, err)
	}
	return nil
}

// splitStatements cuts a schema file into statements at each ';'.
// Whole-line "--" comments are dropped first. Quoted literals, block
// comments and dollar quoting are not understood, which is why schema
// files are checked with validateNoSemicolonInStrings before splitting.
func splitStatements(input string) []string {
	var kept []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		kept = append(kept, line)
	}

	var stmts []string
	for _, part := range strings.Split(strings.Join(kept, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// validateNoSemicolonInStrings scans single-quoted literals ('' is an
// escaped quote) and fails on the first ';' found inside one.
func validateNoSemicolonInStrings(sql string) error {
	quoted := false
	for i := 0; i < len(sql); i++ {
		switch {
		case sql[i] == '\'' && quoted && i+1 < len(sql) && sql[i+1] == '\'':
			i++
		case sql[i] == '\'':
			quoted = !quoted
		case sql[i] == ';' && quoted:
			return fmt.Errorf("%w at byte %d", errQuotedSemicolon, i)
		}
	}
	return nil
}

// databaseFromDSN returns the path segment of a clickhouse:// DSN.
func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn %q names no bar database", u.Redacted())
	}
	return db, nil
}
