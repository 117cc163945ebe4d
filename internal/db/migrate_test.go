package db

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	db := openTestDB(t)

	expected := []string{"users", "user_facts", "habits", "completions", "events", "learned_models", "memories"}
	for _, table := range expected {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_CreatesIndexes(t *testing.T) {
	db := openTestDB(t)

	expected := []string{
		"idx_habits_user",
		"idx_completions_user_date",
		"idx_events_user_ts",
		"idx_events_user_type_ts",
		"idx_memories_user_type",
	}
	for _, idx := range expected {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='index' AND name=?`, idx).Scan(&name)
		require.NoError(t, err, "index %s should exist", idx)
	}
}

func TestMigrate_CompletionKeyIsUnique(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`INSERT INTO users (id, created_at) VALUES ('u1', '2026-01-01T00:00:00.000Z')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO habits (id, user_id, title, created_at) VALUES ('h1', 'u1', 'Run', '2026-01-01T00:00:00.000Z')`)
	require.NoError(t, err)

	insert := `INSERT INTO completions (user_id, habit_id, date, done, recorded_at) VALUES ('u1', 'h1', '2026-01-02', 1, '2026-01-02T08:00:00.000Z')`
	_, err = db.Exec(insert)
	require.NoError(t, err)
	_, err = db.Exec(insert)
	assert.Error(t, err, "duplicate (user, habit, date) must be rejected")
}

func TestMigrate_HabitImportanceChecked(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`INSERT INTO users (id, created_at) VALUES ('u1', '2026-01-01T00:00:00.000Z')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO habits (id, user_id, title, importance, created_at) VALUES ('h1', 'u1', 'Run', 9, '2026-01-01T00:00:00.000Z')`)
	assert.Error(t, err)
}
