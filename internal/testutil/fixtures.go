package testutil

import (
	"time"

	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/google/uuid"
)

// User options
type UserOption func(*domain.User)

func WithUserName(name string) UserOption {
	return func(u *domain.User) {
		u.Name = name
	}
}

func WithTimezone(tz string) UserOption {
	return func(u *domain.User) {
		u.Timezone = tz
	}
}

func WithCreatedAt(t time.Time) UserOption {
	return func(u *domain.User) {
		u.CreatedAt = t
	}
}

func NewTestUser(opts ...UserOption) *domain.User {
	u := &domain.User{
		ID:        uuid.New().String(),
		Name:      "Sam",
		Email:     "sam@example.com",
		Timezone:  "UTC",
		CreatedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Habit options
type HabitOption func(*domain.Habit)

func WithSchedule(hhmm string) HabitOption {
	return func(h *domain.Habit) {
		h.ScheduleTime = hhmm
	}
}

func WithImportance(i int) HabitOption {
	return func(h *domain.Habit) {
		h.Importance = i
	}
}

func WithHabitCreatedAt(t time.Time) HabitOption {
	return func(h *domain.Habit) {
		h.CreatedAt = t
	}
}

func NewTestHabit(userID, title string, opts ...HabitOption) *domain.Habit {
	h := &domain.Habit{
		ID:         uuid.New().String(),
		UserID:     userID,
		Title:      title,
		Importance: 3,
		CreatedAt:  time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewTestCompletion builds a completion for date. RecordedAt is noon UTC on
// that date.
func NewTestCompletion(userID, habitID, date string, done bool) *domain.Completion {
	day, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		panic("testutil: bad completion date " + date)
	}
	return &domain.Completion{
		UserID:     userID,
		HabitID:    habitID,
		Date:       date,
		Done:       done,
		RecordedAt: day.Add(12 * time.Hour),
	}
}

// NewTestEvent builds an event with a fresh ID.
func NewTestEvent(userID string, t domain.EventType, p domain.Payload, at time.Time) domain.Event {
	return domain.Event{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      t,
		Payload:   p,
		Timestamp: at,
	}
}

// Tick builds a habit_tick event.
func Tick(userID, habitID string, at time.Time, completed bool) domain.Event {
	return NewTestEvent(userID, domain.EventHabitTick, domain.HabitTickPayload{
		HabitID:   habitID,
		Date:      at.UTC().Format(domain.DateLayout),
		Completed: completed,
	}, at)
}
