package service

import (
	"context"
	"fmt"
	"time"

	"github.com/futureyou/futureyou-os/internal/db"
	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/futureyou/futureyou-os/internal/repository"
	"github.com/google/uuid"
)

type habitService struct {
	users       repository.UserRepo
	habits      repository.HabitRepo
	completions repository.CompletionRepo
	uow         db.UnitOfWork
	cache       Invalidator
	milestones  MilestoneRecorder
	observer    UseCaseObserver
	now         func() time.Time
}

func NewHabitService(
	users repository.UserRepo,
	habits repository.HabitRepo,
	completions repository.CompletionRepo,
	uow db.UnitOfWork,
	cache Invalidator,
	milestones MilestoneRecorder,
	observers ...UseCaseObserver,
) HabitService {
	return &habitService{
		users:       users,
		habits:      habits,
		completions: completions,
		uow:         uow,
		cache:       cache,
		milestones:  milestones,
		observer:    useCaseObserverOrNoop(observers),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *habitService) CreateHabit(ctx context.Context, h *domain.Habit) (err error) {
	uc := startUseCase(s.observer, "create-habit", map[string]any{"user_id": h.UserID})
	defer func() { uc.finish(ctx, err) }()

	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.Importance == 0 {
		h.Importance = 3
	}
	if err = h.Validate(); err != nil {
		return err
	}
	h.CreatedAt = s.now()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if _, err := ensureUser(ctx, repository.NewSQLiteUserRepo(tx), h.UserID); err != nil {
			return err
		}
		if err := repository.NewSQLiteHabitRepo(tx).Create(ctx, h); err != nil {
			return err
		}
		return repository.NewSQLiteEventRepo(tx).Append(ctx, &domain.Event{
			UserID:    h.UserID,
			Type:      domain.EventHabitAction,
			Payload:   domain.HabitActionPayload{HabitID: h.ID, Action: "created"},
			Timestamp: h.CreatedAt,
		})
	})
	if err != nil {
		return err
	}
	invalidate(s.cache, h.UserID)
	return nil
}

func (s *habitService) ListHabits(ctx context.Context, userID string) ([]HabitStatus, error) {
	u, err := ensureUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	habits, err := s.habits.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	today := domain.DateOf(now, u.Location())
	weekStart := domain.DateOf(now.AddDate(0, 0, -(ConsistencyDays-1)), u.Location())

	out := make([]HabitStatus, 0, len(habits))
	for _, h := range habits {
		completions, err := s.completions.ListByHabit(ctx, userID, h.ID)
		if err != nil {
			return nil, fmt.Errorf("listing completions for %s: %w", h.ID, err)
		}
		st := HabitStatus{
			Habit:    h,
			Streak:   domain.DeriveStreak(completions, today),
			LastTick: domain.LastTick(completions),
		}
		for _, c := range completions {
			if !c.Done {
				continue
			}
			if c.Date == today {
				st.DoneToday = true
			}
			if c.Date >= weekStart && c.Date <= today {
				st.WeekDone++
			}
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *habitService) RecordCompletion(ctx context.Context, userID, habitID, date string, done bool) (event *domain.Event, err error) {
	uc := startUseCase(s.observer, "record-completion", map[string]any{
		"user_id":  userID,
		"habit_id": habitID,
		"done":     done,
	})
	defer func() { uc.finish(ctx, err) }()

	now := s.now()
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		u, err := ensureUser(ctx, repository.NewSQLiteUserRepo(tx), userID)
		if err != nil {
			return err
		}
		h, err := repository.NewSQLiteHabitRepo(tx).GetByID(ctx, habitID)
		if err != nil {
			return err
		}
		if h.UserID != userID {
			return fmt.Errorf("habit %s: %w", habitID, repository.ErrNotFound)
		}
		day, err := resolveDate(date, now, u.Location())
		if err != nil {
			return err
		}

		completions := repository.NewSQLiteCompletionRepo(tx)
		before, err := completions.ListByHabit(ctx, userID, habitID)
		if err != nil {
			return err
		}
		c := &domain.Completion{UserID: userID, HabitID: habitID, Date: day, Done: done, RecordedAt: now}
		if err := completions.Upsert(ctx, c); err != nil {
			return err
		}
		after, err := completions.ListByHabit(ctx, userID, habitID)
		if err != nil {
			return err
		}

		event = &domain.Event{
			UserID: userID,
			Type:   domain.EventHabitTick,
			Payload: domain.HabitTickPayload{
				HabitID:        habitID,
				HabitTitle:     h.Title,
				Date:           day,
				Completed:      done,
				Streak:         domain.DeriveStreak(after, day),
				PreviousStreak: domain.DeriveStreak(before, day),
			},
			Timestamp: now,
		}
		return repository.NewSQLiteEventRepo(tx).Append(ctx, event)
	})
	if err != nil {
		return nil, err
	}
	tick := event.Payload.(domain.HabitTickPayload)
	uc.fields["streak"] = tick.Streak
	invalidate(s.cache, userID)

	if n, ok := crossedStreakMilestone(tick.PreviousStreak, tick.Streak); ok && s.milestones != nil {
		uc.fields["milestone"] = n
		// Milestones are best effort; the tick itself is already committed.
		if _, merr := s.milestones.RecordMilestone(ctx, userID, domain.ArcMilestone{
			Type:         fmt.Sprintf("streak_%d", n),
			Description:  fmt.Sprintf("%d-day streak on %s", n, tick.HabitTitle),
			Significance: streakMilestones[n],
		}); merr != nil {
			uc.fields["milestone_error"] = merr.Error()
		}
	}
	return event, nil
}

func (s *habitService) DeleteHabit(ctx context.Context, userID, habitID string) (err error) {
	uc := startUseCase(s.observer, "delete-habit", map[string]any{"user_id": userID, "habit_id": habitID})
	defer func() { uc.finish(ctx, err) }()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		habits := repository.NewSQLiteHabitRepo(tx)
		h, err := habits.GetByID(ctx, habitID)
		if err != nil {
			return err
		}
		if h.UserID != userID {
			return fmt.Errorf("habit %s: %w", habitID, repository.ErrNotFound)
		}
		if err := habits.Delete(ctx, habitID); err != nil {
			return err
		}
		return repository.NewSQLiteEventRepo(tx).Append(ctx, &domain.Event{
			UserID:    userID,
			Type:      domain.EventHabitAction,
			Payload:   domain.HabitActionPayload{HabitID: habitID, Action: "deleted"},
			Timestamp: s.now(),
		})
	})
	if err != nil {
		return err
	}
	invalidate(s.cache, userID)
	return nil
}

// streakMilestones maps streak lengths worth marking on the arc to their
// significance.
var streakMilestones = map[int]int{7: 2, 21: 3, 30: 3, 66: 4, 100: 5}

// crossedStreakMilestone reports the largest milestone length in (prev, cur].
func crossedStreakMilestone(prev, cur int) (int, bool) {
	best := 0
	for n := range streakMilestones {
		if prev < n && n <= cur && n > best {
			best = n
		}
	}
	return best, best > 0
}
