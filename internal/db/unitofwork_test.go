package db_test

import (
	"context"
	"errors"
	"testing"

	"github.com/futureyou/futureyou-os/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUoW(t *testing.T) *db.SQLiteUnitOfWork {
	t.Helper()
	database, err := db.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return db.NewSQLiteUnitOfWork(database)
}

const insertUser = `INSERT INTO users (id, name, created_at) VALUES (?, ?, '2026-01-01T00:00:00.000Z')`

func userName(uow *db.SQLiteUnitOfWork, id string) (string, bool) {
	var name string
	var found bool
	_ = uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		if err := tx.QueryRowContext(ctx, `SELECT name FROM users WHERE id = ?`, id).Scan(&name); err != nil {
			return nil
		}
		found = true
		return nil
	})
	return name, found
}

func TestWithinTx_CommitOnSuccess(t *testing.T) {
	uow := newUoW(t)

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		_, err := tx.ExecContext(ctx, insertUser, "u1", "Ana")
		return err
	})
	require.NoError(t, err)

	name, found := userName(uow, "u1")
	assert.True(t, found)
	assert.Equal(t, "Ana", name)
}

func TestWithinTx_RollbackOnError(t *testing.T) {
	uow := newUoW(t)
	boom := errors.New("habit insert failed")

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		if _, err := tx.ExecContext(ctx, insertUser, "u2", "Ben"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, found := userName(uow, "u2")
	assert.False(t, found, "user row must not survive rollback")
}

func TestWithinTx_RollbackOnPanic(t *testing.T) {
	uow := newUoW(t)

	assert.Panics(t, func() {
		_ = uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
			_, _ = tx.ExecContext(ctx, insertUser, "u3", "Cy")
			panic("boom")
		})
	})

	_, found := userName(uow, "u3")
	assert.False(t, found)
}

func TestOpenDB_ForeignKeysEnforced(t *testing.T) {
	uow := newUoW(t)

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO habits (id, user_id, title, created_at) VALUES ('h1', 'missing', 'Run', '2026-01-01T00:00:00.000Z')`)
		return err
	})
	assert.Error(t, err)
}
