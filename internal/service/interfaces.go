package service

import (
	"context"
	"time"

	"github.com/futureyou/futureyou-os/internal/domain"
)

type UserService interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	// GetFacts returns nil when the user has not stated anything yet.
	GetFacts(ctx context.Context, userID string) (*domain.UserFacts, error)
	// UpdateFacts applies fn to the user's stored facts, starting from an
	// empty document when none exist yet.
	UpdateFacts(ctx context.Context, userID string, fn func(f *domain.UserFacts)) (*domain.UserFacts, error)
}

type HabitService interface {
	CreateHabit(ctx context.Context, h *domain.Habit) error
	ListHabits(ctx context.Context, userID string) ([]HabitStatus, error)
	// RecordCompletion upserts the (habit, date) completion and logs a
	// habit_tick event in the same transaction. An empty date means today in
	// the user's timezone.
	RecordCompletion(ctx context.Context, userID, habitID, date string, done bool) (*domain.Event, error)
	// DeleteHabit removes the habit and its completions. Past habit_tick
	// events stay in the log.
	DeleteHabit(ctx context.Context, userID, habitID string) error
}

type ReflectionService interface {
	Record(ctx context.Context, userID, question, answer string) (*domain.Event, error)
}

type MessageService interface {
	List(ctx context.Context, userID string, limit int) ([]Message, error)
}

// ConsistencyDays is the trailing window HabitStatus.WeekDone counts over,
// today included.
const ConsistencyDays = 7

// HabitStatus is a habit with its streak derived as of today.
type HabitStatus struct {
	Habit     *domain.Habit
	Streak    int
	DoneToday bool
	WeekDone  int
	LastTick  *time.Time
}

// Message is one generated coach message from the inbox.
type Message struct {
	ID        string
	Type      domain.MessageType
	Text      string
	State     domain.ExecutionState
	Authority domain.Authority
	Fallback  bool
	Extra     map[string]string
	Timestamp time.Time
}

// Invalidator drops cached derived state for a user after a write.
// usermodel.Builder satisfies it.
type Invalidator interface {
	Invalidate(userID string)
}

// MilestoneRecorder appends an arc milestone to the learned model.
// usermodel.LearnedStore satisfies it.
type MilestoneRecorder interface {
	RecordMilestone(ctx context.Context, userID string, ms domain.ArcMilestone) (domain.ArcMilestone, error)
}

// MemoryWriter stores text for later semantic recall. memory.Store
// satisfies it.
type MemoryWriter interface {
	Store(ctx context.Context, userID string, t domain.MemoryType, text string, metadata map[string]string)
}
