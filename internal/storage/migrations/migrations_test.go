package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	sql := `-- header comment
CREATE TABLE a (x UInt8) ENGINE = Memory;

-- second
CREATE TABLE b (y String) ENGINE = Memory;
`
	stmts := splitStatements(sql)
	require.Len(t, stmts, 2)
	assert.True(t, strings.HasPrefix(stmts[0], "CREATE TABLE a"))
	assert.True(t, strings.HasPrefix(stmts[1], "CREATE TABLE b"))
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	assert.NoError(t, validateNoSemicolonInStrings(`SELECT 'it''s'; SELECT 1;`))
	assert.ErrorIs(t, validateNoSemicolonInStrings(`SELECT 'a;b';`), errQuotedSemicolon)
	assert.NoError(t, validateNoSemicolonInStrings(`SELECT ''; SELECT 2;`))
}

func TestReadMigrations_Ordered(t *testing.T) {
	files, err := readMigrations(PostgresFS, "postgres")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(files), 2)

	for i := 1; i < len(files); i++ {
		assert.Less(t, files[i-1].Name, files[i].Name)
	}
	assert.Contains(t, files[0].SQL, "CREATE TABLE IF NOT EXISTS run_summaries")
	assert.Contains(t, files[1].SQL, "ADD COLUMN IF NOT EXISTS evaluations")
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:@localhost:9000/lab")
	require.NoError(t, err)
	assert.Equal(t, "lab", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	for _, c := range []struct {
		fsys  fs.FS
		dir   string
		table string
	}{
		{PostgresFS, "postgres", "run_summaries"},
		{PostgresFS, "postgres", "trade_records"},
		{ClickhouseFS, "clickhouse", "price_bars"},
	} {
		entries, err := fs.ReadDir(c.fsys, c.dir)
		require.NoError(t, err)
		require.NotEmpty(t, entries)

		var all strings.Builder
		for _, e := range entries {
			data, err := fs.ReadFile(c.fsys, c.dir+"/"+e.Name())
			require.NoError(t, err)
			all.Write(data)
		}
		assert.Contains(t, all.String(), "CREATE TABLE IF NOT EXISTS "+c.table)
		assert.NoError(t, validateNoSemicolonInStrings(all.String()))
	}
}
