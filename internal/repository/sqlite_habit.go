package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/futureyou/futureyou-os/internal/db"
	"github.com/futureyou/futureyou-os/internal/domain"
)

// SQLiteHabitRepo implements HabitRepo using a SQLite database.
type SQLiteHabitRepo struct {
	db db.DBTX
}

// NewSQLiteHabitRepo creates a new SQLiteHabitRepo.
func NewSQLiteHabitRepo(conn db.DBTX) *SQLiteHabitRepo {
	return &SQLiteHabitRepo{db: conn}
}

const habitColumns = `id, user_id, title, schedule_time, importance, created_at`

func (r *SQLiteHabitRepo) Create(ctx context.Context, h *domain.Habit) error {
	query := `INSERT INTO habits (` + habitColumns + `) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		h.ID,
		h.UserID,
		h.Title,
		h.ScheduleTime,
		h.Importance,
		formatTime(h.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting habit: %w", err)
	}
	return nil
}

func (r *SQLiteHabitRepo) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = ?`, id)
	return scanHabit(row)
}

func (r *SQLiteHabitRepo) ListByUser(ctx context.Context, userID string) ([]*domain.Habit, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+habitColumns+` FROM habits WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing habits: %w", err)
	}
	defer rows.Close()

	var out []*domain.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *SQLiteHabitRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM habits WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting habit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("habit: %w", ErrNotFound)
	}
	return nil
}

func scanHabit(row rowScanner) (*domain.Habit, error) {
	var h domain.Habit
	var created string
	err := row.Scan(&h.ID, &h.UserID, &h.Title, &h.ScheduleTime, &h.Importance, &created)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("habit: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning habit: %w", err)
	}
	t, err := parseTime(created)
	if err != nil {
		return nil, fmt.Errorf("parsing habit created_at: %w", err)
	}
	h.CreatedAt = t
	return &h, nil
}

// SQLiteCompletionRepo implements CompletionRepo using a SQLite database.
type SQLiteCompletionRepo struct {
	db db.DBTX
}

// NewSQLiteCompletionRepo creates a new SQLiteCompletionRepo.
func NewSQLiteCompletionRepo(conn db.DBTX) *SQLiteCompletionRepo {
	return &SQLiteCompletionRepo{db: conn}
}

// Upsert writes the row for (user, habit, date). Repeating a call with the
// same key leaves exactly one row.
func (r *SQLiteCompletionRepo) Upsert(ctx context.Context, c *domain.Completion) error {
	query := `INSERT INTO completions (user_id, habit_id, date, done, recorded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, habit_id, date)
		DO UPDATE SET done = excluded.done, recorded_at = excluded.recorded_at`
	_, err := r.db.ExecContext(ctx, query,
		c.UserID,
		c.HabitID,
		c.Date,
		boolToInt(c.Done),
		formatTime(c.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting completion: %w", err)
	}
	return nil
}

func (r *SQLiteCompletionRepo) ListByUser(ctx context.Context, userID, fromDate, toDate string) ([]domain.Completion, error) {
	query := `SELECT user_id, habit_id, date, done, recorded_at FROM completions
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date, habit_id`
	rows, err := r.db.QueryContext(ctx, query, userID, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("listing completions: %w", err)
	}
	defer rows.Close()
	return scanCompletions(rows)
}

func (r *SQLiteCompletionRepo) ListByHabit(ctx context.Context, userID, habitID string) ([]domain.Completion, error) {
	query := `SELECT user_id, habit_id, date, done, recorded_at FROM completions
		WHERE user_id = ? AND habit_id = ?
		ORDER BY date`
	rows, err := r.db.QueryContext(ctx, query, userID, habitID)
	if err != nil {
		return nil, fmt.Errorf("listing habit completions: %w", err)
	}
	defer rows.Close()
	return scanCompletions(rows)
}

func (r *SQLiteCompletionRepo) CountDone(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM completions WHERE user_id = ? AND done = 1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting completions: %w", err)
	}
	return n, nil
}

func scanCompletions(rows *sql.Rows) ([]domain.Completion, error) {
	var out []domain.Completion
	for rows.Next() {
		var c domain.Completion
		var done int
		var recorded string
		if err := rows.Scan(&c.UserID, &c.HabitID, &c.Date, &done, &recorded); err != nil {
			return nil, fmt.Errorf("scanning completion: %w", err)
		}
		c.Done = intToBool(done)
		t, err := parseTime(recorded)
		if err != nil {
			return nil, fmt.Errorf("parsing completion recorded_at: %w", err)
		}
		c.RecordedAt = t
		out = append(out, c)
	}
	return out, rows.Err()
}
