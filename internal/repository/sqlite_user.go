package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/futureyou/futureyou-os/internal/db"
	"github.com/futureyou/futureyou-os/internal/domain"
)

// SQLiteUserRepo implements UserRepo using a SQLite database.
type SQLiteUserRepo struct {
	db db.DBTX
}

// NewSQLiteUserRepo creates a new SQLiteUserRepo.
func NewSQLiteUserRepo(conn db.DBTX) *SQLiteUserRepo {
	return &SQLiteUserRepo{db: conn}
}

func (r *SQLiteUserRepo) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (id, name, email, timezone, created_at) VALUES (?, ?, ?, ?, ?)`
	tz := u.Timezone
	if tz == "" {
		tz = "UTC"
	}
	_, err := r.db.ExecContext(ctx, query, u.ID, u.Name, u.Email, tz, formatTime(u.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (r *SQLiteUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT id, name, email, timezone, created_at FROM users WHERE id = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteUserRepo) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, email, timezone, created_at FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var out []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var created string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Timezone, &created); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	t, err := parseTime(created)
	if err != nil {
		return nil, fmt.Errorf("parsing user created_at: %w", err)
	}
	u.CreatedAt = t
	return &u, nil
}

// SQLiteUserFactsRepo implements UserFactsRepo. Facts are one JSON document
// per user.
type SQLiteUserFactsRepo struct {
	db db.DBTX
}

// NewSQLiteUserFactsRepo creates a new SQLiteUserFactsRepo.
func NewSQLiteUserFactsRepo(conn db.DBTX) *SQLiteUserFactsRepo {
	return &SQLiteUserFactsRepo{db: conn}
}

func (r *SQLiteUserFactsRepo) Get(ctx context.Context, userID string) (*domain.UserFacts, error) {
	var raw, updated string
	err := r.db.QueryRowContext(ctx, `SELECT json, updated_at FROM user_facts WHERE user_id = ?`, userID).
		Scan(&raw, &updated)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user facts: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning user facts: %w", err)
	}

	var f domain.UserFacts
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return nil, fmt.Errorf("decoding user facts: %w", err)
	}
	f.UserID = userID
	if t, err := parseTime(updated); err == nil {
		f.UpdatedAt = t
	}
	return &f, nil
}

func (r *SQLiteUserFactsRepo) Upsert(ctx context.Context, f *domain.UserFacts) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding user facts: %w", err)
	}
	query := `INSERT INTO user_facts (user_id, json, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET json = excluded.json, updated_at = excluded.updated_at`
	if _, err := r.db.ExecContext(ctx, query, f.UserID, string(raw), nowUTC()); err != nil {
		return fmt.Errorf("upserting user facts: %w", err)
	}
	return nil
}
