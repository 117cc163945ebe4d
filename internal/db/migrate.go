package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations. Every statement is idempotent so the
// full list is replayed on each open.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		email      TEXT NOT NULL DEFAULT '',
		timezone   TEXT NOT NULL DEFAULT 'UTC',
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS user_facts (
		user_id    TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		json       TEXT NOT NULL DEFAULT '{}',
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS habits (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title         TEXT NOT NULL,
		schedule_time TEXT NOT NULL DEFAULT '',
		importance    INTEGER NOT NULL DEFAULT 3
		              CHECK(importance BETWEEN 1 AND 5),
		created_at    TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_habits_user ON habits(user_id)`,

	// One row per (user, habit, day). Streaks are derived from this table.
	`CREATE TABLE IF NOT EXISTS completions (
		user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		habit_id    TEXT NOT NULL REFERENCES habits(id) ON DELETE CASCADE,
		date        TEXT NOT NULL,
		done        INTEGER NOT NULL DEFAULT 0,
		recorded_at TEXT NOT NULL,
		PRIMARY KEY (user_id, habit_id, date)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_completions_user_date ON completions(user_id, date)`,

	`CREATE TABLE IF NOT EXISTS events (
		id      TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		type    TEXT NOT NULL,
		payload TEXT NOT NULL,
		ts      TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_events_user_ts ON events(user_id, ts)`,
	`CREATE INDEX IF NOT EXISTS idx_events_user_type_ts ON events(user_id, type, ts)`,

	`CREATE TABLE IF NOT EXISTS learned_models (
		user_id    TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		json       TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS memories (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		type       TEXT NOT NULL,
		text       TEXT NOT NULL,
		metadata   TEXT NOT NULL DEFAULT '{}',
		vector     TEXT,
		created_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_memories_user_type ON memories(user_id, type, created_at)`,

	// Embedding model that produced the vector, so a provider switch does not
	// compare vectors across spaces.
	`ALTER TABLE memories ADD COLUMN embed_model TEXT NOT NULL DEFAULT ''`,
}
