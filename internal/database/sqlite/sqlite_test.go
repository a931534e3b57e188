package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"match-engine/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDB_ExecAndQueryRebindPlaceholders(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, filepath.Join(t.TempDir(), "nested", "match.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Equal(t, database.DialectSQLite, db.Dialect())
	require.NoError(t, db.Ping(ctx))

	_, err = db.Exec(ctx, `CREATE TABLE scores (id TEXT PRIMARY KEY, value INTEGER NOT NULL)`)
	require.NoError(t, err)
	for i, id := range []string{"a", "b", "c"} {
		n, err := db.Exec(ctx, `INSERT INTO scores (id, value) VALUES ($1, $2)`, id, (i+1)*10)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	}

	rows, err := db.Query(ctx, `SELECT id FROM scores WHERE value >= $1 ORDER BY value`, 20)
	require.NoError(t, err)
	var ids []string
	for rows.Next() {
		var id string
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	rows.Close()
	assert.Equal(t, []string{"b", "c"}, ids)

	n, err := db.Exec(ctx, `DELETE FROM scores WHERE value < $1`, 30)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestDB_NilIsNotConnected(t *testing.T) {
	var db *DB
	ctx := context.Background()

	assert.ErrorIs(t, db.Ping(ctx), database.ErrNoConnection)
	_, err := db.Exec(ctx, `SELECT 1`)
	assert.ErrorIs(t, err, database.ErrNoConnection)
	_, err = db.Query(ctx, `SELECT 1`)
	assert.ErrorIs(t, err, database.ErrNoConnection)
	assert.NoError(t, db.Close())
}
