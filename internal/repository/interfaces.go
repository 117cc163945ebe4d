package repository

import (
	"context"
	"time"

	"github.com/futureyou/futureyou-os/internal/domain"
)

type UserRepo interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
}

type UserFactsRepo interface {
	Get(ctx context.Context, userID string) (*domain.UserFacts, error)
	Upsert(ctx context.Context, f *domain.UserFacts) error
}

type HabitRepo interface {
	Create(ctx context.Context, h *domain.Habit) error
	GetByID(ctx context.Context, id string) (*domain.Habit, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Habit, error)
	Delete(ctx context.Context, id string) error
}

// CompletionRepo stores the daily truth table. Dates are YYYY-MM-DD keys in
// the user's timezone; range bounds are inclusive.
type CompletionRepo interface {
	Upsert(ctx context.Context, c *domain.Completion) error
	ListByUser(ctx context.Context, userID, fromDate, toDate string) ([]domain.Completion, error)
	ListByHabit(ctx context.Context, userID, habitID string) ([]domain.Completion, error)
	CountDone(ctx context.Context, userID string) (int, error)
}

// EventRepo is the append-only event log. Time ranges are [from, to).
type EventRepo interface {
	Append(ctx context.Context, e *domain.Event) error
	ListByUser(ctx context.Context, userID string, from, to time.Time) ([]domain.Event, error)
	ListByType(ctx context.Context, userID string, types []domain.EventType, from, to time.Time) ([]domain.Event, error)
	ListRecentByType(ctx context.Context, userID string, types []domain.EventType, limit int) ([]domain.Event, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	CountByType(ctx context.Context, userID string, t domain.EventType) (int, error)
	LastEventAt(ctx context.Context, userID string) (*time.Time, error)
	ListActiveUserIDs(ctx context.Context, since time.Time) ([]string, error)
}

type LearnedModelRepo interface {
	Get(ctx context.Context, userID string) (*domain.LearnedUserModel, error)
	Put(ctx context.Context, userID string, m *domain.LearnedUserModel) error
}

type MemoryRepo interface {
	Insert(ctx context.Context, m *domain.MemoryRecord) error
	ListRecent(ctx context.Context, userID string, t domain.MemoryType, limit int) ([]domain.MemoryRecord, error)
	ListWithVectors(ctx context.Context, userID string, t domain.MemoryType, embedModel string) ([]domain.MemoryRecord, error)
}
