package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/futureyou/futureyou-os/internal/db"
	"github.com/futureyou/futureyou-os/internal/domain"
)

// SQLiteLearnedModelRepo stores the learned model as one JSON blob per user.
type SQLiteLearnedModelRepo struct {
	db db.DBTX
}

// NewSQLiteLearnedModelRepo creates a new SQLiteLearnedModelRepo.
func NewSQLiteLearnedModelRepo(conn db.DBTX) *SQLiteLearnedModelRepo {
	return &SQLiteLearnedModelRepo{db: conn}
}

func (r *SQLiteLearnedModelRepo) Get(ctx context.Context, userID string) (*domain.LearnedUserModel, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT json FROM learned_models WHERE user_id = ?`, userID).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("learned model: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning learned model: %w", err)
	}

	var m domain.LearnedUserModel
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("decoding learned model: %w", err)
	}
	return m.Normalize(), nil
}

func (r *SQLiteLearnedModelRepo) Put(ctx context.Context, userID string, m *domain.LearnedUserModel) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding learned model: %w", err)
	}
	query := `INSERT INTO learned_models (user_id, json, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET json = excluded.json, updated_at = excluded.updated_at`
	if _, err := r.db.ExecContext(ctx, query, userID, string(raw), nowUTC()); err != nil {
		return fmt.Errorf("storing learned model: %w", err)
	}
	return nil
}
