package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/subscriptions/internal/shared/infrastructure/database"
)

func openTestDB(t *testing.T, path string) database.Connection {
	t.Helper()
	conn, err := NewConnection(context.Background(), database.Config{Driver: database.DriverSQLite, SQLitePath: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestNewConnection_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.db")
	conn := openTestDB(t, path)

	assert.NoError(t, conn.Ping(context.Background()))
	assert.Equal(t, database.DriverSQLite, conn.Driver())
	assert.FileExists(t, path)
}

func TestNewConnection_ThroughFactory(t *testing.T) {
	conn, err := database.NewConnection(context.Background(), database.Config{SQLitePath: MemoryPath, URL: MemoryPath})
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, database.DriverSQLite, conn.Driver())
}

func TestConnection_ExecAndQuery(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t, MemoryPath)

	_, err := conn.Exec(ctx, `CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)`)
	require.NoError(t, err)

	result, err := conn.Exec(ctx, `INSERT INTO kv (k, v) VALUES (?, ?), (?, ?)`, "a", "1", "b", "2")
	require.NoError(t, err)
	affected, err := result.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	var v string
	require.NoError(t, conn.QueryRow(ctx, `SELECT v FROM kv WHERE k = ?`, "b").Scan(&v))
	assert.Equal(t, "2", v)

	err = conn.QueryRow(ctx, `SELECT v FROM kv WHERE k = ?`, "missing").Scan(&v)
	assert.True(t, database.IsNoRows(err))

	rows, err := conn.Query(ctx, `SELECT k FROM kv ORDER BY k`)
	require.NoError(t, err)
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		require.NoError(t, rows.Scan(&k))
		keys = append(keys, k)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestWithinTx(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t, MemoryPath)
	_, err := conn.Exec(ctx, `CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)`)
	require.NoError(t, err)

	t.Run("commits", func(t *testing.T) {
		err := database.WithinTx(ctx, conn, func(tx database.Executor) error {
			_, err := tx.Exec(ctx, `INSERT INTO kv (k, v) VALUES (?, ?)`, "committed", "yes")
			return err
		})
		require.NoError(t, err)

		var v string
		require.NoError(t, conn.QueryRow(ctx, `SELECT v FROM kv WHERE k = ?`, "committed").Scan(&v))
		assert.Equal(t, "yes", v)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		failure := errors.New("second statement failed")
		err := database.WithinTx(ctx, conn, func(tx database.Executor) error {
			if _, err := tx.Exec(ctx, `INSERT INTO kv (k, v) VALUES (?, ?)`, "partial", "no"); err != nil {
				return err
			}
			return failure
		})
		assert.ErrorIs(t, err, failure)

		var count int
		require.NoError(t, conn.QueryRow(ctx, `SELECT COUNT(*) FROM kv WHERE k = ?`, "partial").Scan(&count))
		assert.Zero(t, count)
	})
}
