package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/futureyou/futureyou-os/internal/db"
	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/google/uuid"
)

// SQLiteEventRepo implements EventRepo using a SQLite database. Events are
// never updated or deleted through this type.
type SQLiteEventRepo struct {
	db db.DBTX
}

// NewSQLiteEventRepo creates a new SQLiteEventRepo.
func NewSQLiteEventRepo(conn db.DBTX) *SQLiteEventRepo {
	return &SQLiteEventRepo{db: conn}
}

// Append validates e and inserts it. A missing ID or timestamp is filled in
// on e before the insert.
func (r *SQLiteEventRepo) Append(ctx context.Context, e *domain.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	raw, err := domain.EncodePayload(e.Payload)
	if err != nil {
		return err
	}

	query := `INSERT INTO events (id, user_id, type, payload, ts) VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, e.ID, e.UserID, string(e.Type), string(raw), formatTime(e.Timestamp)); err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepo) ListByUser(ctx context.Context, userID string, from, to time.Time) ([]domain.Event, error) {
	query := `SELECT id, user_id, type, payload, ts FROM events
		WHERE user_id = ? AND ts >= ? AND ts < ?
		ORDER BY ts, id`
	rows, err := r.db.QueryContext(ctx, query, userID, formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (r *SQLiteEventRepo) ListByType(ctx context.Context, userID string, types []domain.EventType, from, to time.Time) ([]domain.Event, error) {
	if len(types) == 0 {
		return nil, nil
	}
	args := []any{userID}
	for _, t := range types {
		args = append(args, string(t))
	}
	args = append(args, formatTime(from), formatTime(to))

	query := `SELECT id, user_id, type, payload, ts FROM events
		WHERE user_id = ? AND type IN (` + placeholders(len(types)) + `) AND ts >= ? AND ts < ?
		ORDER BY ts, id`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing events by type: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListRecentByType returns the newest limit events of the given types, oldest
// first.
func (r *SQLiteEventRepo) ListRecentByType(ctx context.Context, userID string, types []domain.EventType, limit int) ([]domain.Event, error) {
	if len(types) == 0 || limit <= 0 {
		return nil, nil
	}
	args := []any{userID}
	for _, t := range types {
		args = append(args, string(t))
	}
	args = append(args, limit)

	query := `SELECT id, user_id, type, payload, ts FROM (
			SELECT id, user_id, type, payload, ts FROM events
			WHERE user_id = ? AND type IN (` + placeholders(len(types)) + `)
			ORDER BY ts DESC, id DESC LIMIT ?
		) ORDER BY ts, id`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing recent events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (r *SQLiteEventRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting events: %w", err)
	}
	return n, nil
}

func (r *SQLiteEventRepo) CountByType(ctx context.Context, userID string, t domain.EventType) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE user_id = ? AND type = ?`, userID, string(t)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting %s events: %w", t, err)
	}
	return n, nil
}

// LastEventAt returns the newest event timestamp for the user, or nil.
func (r *SQLiteEventRepo) LastEventAt(ctx context.Context, userID string) (*time.Time, error) {
	var ts sql.NullString
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(ts) FROM events WHERE user_id = ?`, userID).Scan(&ts); err != nil {
		return nil, fmt.Errorf("reading last event time: %w", err)
	}
	return parseNullableTime(ts), nil
}

// ListActiveUserIDs returns users with at least one event at or after since.
func (r *SQLiteEventRepo) ListActiveUserIDs(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM events WHERE ts >= ? ORDER BY user_id`, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("listing active users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning active user: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanEvents(rows *sql.Rows) ([]domain.Event, error) {
	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		var typ, raw, ts string
		if err := rows.Scan(&e.ID, &e.UserID, &typ, &raw, &ts); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.Type = domain.EventType(typ)
		p, err := domain.DecodePayload(e.Type, []byte(raw))
		if err != nil {
			return nil, fmt.Errorf("decoding event %s: %w", e.ID, err)
		}
		e.Payload = p
		t, err := parseTime(ts)
		if err != nil {
			return nil, fmt.Errorf("parsing event ts: %w", err)
		}
		e.Timestamp = t
		out = append(out, e)
	}
	return out, rows.Err()
}
