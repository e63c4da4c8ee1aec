package sqldb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDialect(t *testing.T) {
	for in, want := range map[string]Dialect{
		"mysql":      DialectMySQL,
		" MySQL ":    DialectMySQL,
		"postgres":   DialectPostgres,
		"pgx":        DialectPostgres,
		"postgresql": DialectPostgres,
		"sqlite":     DialectSQLite,
	} {
		got, err := ParseDialect(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDialect("oracle")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	q := "SELECT a FROM t WHERE x = ? AND y = ?"
	assert.Equal(t, q, DialectMySQL.Rebind(q))
	assert.Equal(t, q, DialectSQLite.Rebind(q))
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", DialectPostgres.Rebind(q))
}

func TestOpenSQLite(t *testing.T) {
	db, err := Open(context.Background(), DialectSQLite, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	var one int
	require.NoError(t, db.QueryRow("SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)
}

func TestAutoIncrementKey(t *testing.T) {
	assert.Contains(t, DialectMySQL.AutoIncrementKey(), "AUTO_INCREMENT")
	assert.Contains(t, DialectPostgres.AutoIncrementKey(), "BIGSERIAL")
	assert.Contains(t, DialectSQLite.AutoIncrementKey(), "AUTOINCREMENT")
}
