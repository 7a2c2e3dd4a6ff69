package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	input := `-- header comment
CREATE TABLE a (x UInt8) ENGINE = Memory;

-- second
CREATE TABLE b (y String) ENGINE = Memory;
`
	stmts := splitStatements(input)
	require.Len(t, stmts, 2)
	assert.True(t, strings.HasPrefix(stmts[0], "CREATE TABLE a"))
	assert.True(t, strings.HasPrefix(stmts[1], "CREATE TABLE b"))
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	assert.NoError(t, validateNoSemicolonInStrings(`SELECT 'it''s'; SELECT 1;`))
	assert.Error(t, validateNoSemicolonInStrings(`SELECT 'a;b';`))
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default@localhost:9000/orb")
	require.NoError(t, err)
	assert.Equal(t, "orb", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}

func TestEmbeddedMigrationsAreSplittable(t *testing.T) {
	for _, tc := range []struct {
		fsys fs.FS
		dir  string
	}{
		{PostgresFS, "postgres"},
		{ClickhouseFS, "clickhouse"},
	} {
		entries, err := fs.ReadDir(tc.fsys, tc.dir)
		require.NoError(t, err)
		require.NotEmpty(t, entries, tc.dir)

		for _, e := range entries {
			data, err := fs.ReadFile(tc.fsys, tc.dir+"/"+e.Name())
			require.NoError(t, err)
			assert.NoError(t, validateNoSemicolonInStrings(string(data)), e.Name())
			assert.NotEmpty(t, splitStatements(string(data)), e.Name())
		}
	}
}
