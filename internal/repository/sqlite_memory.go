package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/futureyou/futureyou-os/internal/db"
	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/oklog/ulid/v2"
)

// SQLiteMemoryRepo implements MemoryRepo. IDs are ULIDs so insertion order
// and id order agree.
type SQLiteMemoryRepo struct {
	db db.DBTX

	mu      sync.Mutex
	entropy *rand.Rand
}

// NewSQLiteMemoryRepo creates a new SQLiteMemoryRepo.
func NewSQLiteMemoryRepo(conn db.DBTX) *SQLiteMemoryRepo {
	return &SQLiteMemoryRepo{
		db:      conn,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *SQLiteMemoryRepo) newID(t time.Time) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), r.entropy).String()
}

func (r *SQLiteMemoryRepo) Insert(ctx context.Context, m *domain.MemoryRecord) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.ID == "" {
		m.ID = r.newID(m.CreatedAt)
	}
	meta := m.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	rawMeta, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encoding memory metadata: %w", err)
	}
	var vec any
	if len(m.Vector) > 0 {
		rawVec, err := json.Marshal(m.Vector)
		if err != nil {
			return fmt.Errorf("encoding memory vector: %w", err)
		}
		vec = string(rawVec)
	}

	query := `INSERT INTO memories (id, user_id, type, text, metadata, vector, embed_model, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		m.ID, m.UserID, string(m.Type), m.Text, string(rawMeta), vec, m.EmbedModel, formatTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting memory: %w", err)
	}
	return nil
}

// ListRecent returns the newest limit records, newest first.
func (r *SQLiteMemoryRepo) ListRecent(ctx context.Context, userID string, t domain.MemoryType, limit int) ([]domain.MemoryRecord, error) {
	query := `SELECT id, user_id, type, text, metadata, vector, embed_model, created_at FROM memories
		WHERE user_id = ? AND type = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, userID, string(t), limit)
	if err != nil {
		return nil, fmt.Errorf("listing memories: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

// ListWithVectors returns records embedded by embedModel.
func (r *SQLiteMemoryRepo) ListWithVectors(ctx context.Context, userID string, t domain.MemoryType, embedModel string) ([]domain.MemoryRecord, error) {
	query := `SELECT id, user_id, type, text, metadata, vector, embed_model, created_at FROM memories
		WHERE user_id = ? AND type = ? AND vector IS NOT NULL AND embed_model = ?
		ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, userID, string(t), embedModel)
	if err != nil {
		return nil, fmt.Errorf("listing memory vectors: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

func scanMemories(rows *sql.Rows) ([]domain.MemoryRecord, error) {
	var out []domain.MemoryRecord
	for rows.Next() {
		var m domain.MemoryRecord
		var typ, meta, created string
		var vec sql.NullString
		if err := rows.Scan(&m.ID, &m.UserID, &typ, &m.Text, &meta, &vec, &m.EmbedModel, &created); err != nil {
			return nil, fmt.Errorf("scanning memory: %w", err)
		}
		m.Type = domain.MemoryType(typ)
		if err := json.Unmarshal([]byte(meta), &m.Metadata); err != nil {
			return nil, fmt.Errorf("decoding memory metadata: %w", err)
		}
		if vec.Valid && vec.String != "" {
			if err := json.Unmarshal([]byte(vec.String), &m.Vector); err != nil {
				return nil, fmt.Errorf("decoding memory vector: %w", err)
			}
		}
		t, err := parseTime(created)
		if err != nil {
			return nil, fmt.Errorf("parsing memory created_at: %w", err)
		}
		m.CreatedAt = t
		out = append(out, m)
	}
	return out, rows.Err()
}
