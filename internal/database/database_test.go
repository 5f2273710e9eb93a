package database_test

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"gallery/internal/database"

	"github.com/stretchr/testify/require"
)

func TestOpenAppliesMigrations(t *testing.T) {
	t.Parallel()

	db, err := database.Open(t.Context(), filepath.Join(t.TempDir(), "nested", "gallery.sqlite"))
	require.NoError(t, err, "Open error")
	t.Cleanup(func() { _ = db.Close() })

	for _, table := range []string{"user", "account", "session"} {
		var name string
		err := db.QueryRowContext(t.Context(), `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoErrorf(t, err, "expected table %q", table)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gallery.sqlite")

	db, err := database.Open(t.Context(), path)
	require.NoError(t, err, "first Open error")
	require.NoError(t, db.Close())

	db, err = database.Open(t.Context(), path)
	require.NoError(t, err, "second Open error")
	require.NoError(t, db.Close())
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	t.Parallel()

	_, err := database.Open(t.Context(), "")
	require.Error(t, err)
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	t.Parallel()

	db, err := database.Open(t.Context(), filepath.Join(t.TempDir(), "gallery.sqlite"))
	require.NoError(t, err, "Open error")
	t.Cleanup(func() { _ = db.Close() })

	boom := errors.New("boom")
	err = database.WithTransaction(t.Context(), db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(t.Context(),
			`INSERT INTO user(id, name, email, created_at, updated_at) VALUES('u1', 'A', 'a@example.com', datetime('now'), datetime('now'))`)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.QueryRowContext(t.Context(), `SELECT COUNT(*) FROM user`).Scan(&count))
	require.Zero(t, count, "insert should have been rolled back")
}
