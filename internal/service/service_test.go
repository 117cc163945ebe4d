package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/futureyou/futureyou-os/internal/db"
	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/futureyou/futureyou-os/internal/repository"
	"github.com/futureyou/futureyou-os/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 11, 20, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type recordingObserver struct {
	events []UseCaseEvent
}

func (o *recordingObserver) ObserveUseCase(_ context.Context, e UseCaseEvent) {
	o.events = append(o.events, e)
}

type countingInvalidator struct {
	calls map[string]int
}

func (c *countingInvalidator) Invalidate(userID string) {
	if c.calls == nil {
		c.calls = map[string]int{}
	}
	c.calls[userID]++
}

type recordingMilestones struct {
	recorded []domain.ArcMilestone
	err      error
}

func (r *recordingMilestones) RecordMilestone(_ context.Context, _ string, ms domain.ArcMilestone) (domain.ArcMilestone, error) {
	r.recorded = append(r.recorded, ms)
	return ms, r.err
}

type storedMemory struct {
	userID string
	kind   domain.MemoryType
	text   string
	meta   map[string]string
}

type recordingMemory struct {
	stored []storedMemory
}

func (m *recordingMemory) Store(_ context.Context, userID string, t domain.MemoryType, text string, meta map[string]string) {
	m.stored = append(m.stored, storedMemory{userID: userID, kind: t, text: text, meta: meta})
}

func seedUser(t *testing.T, conn *sql.DB) *domain.User {
	t.Helper()
	u := testutil.NewTestUser()
	require.NoError(t, repository.NewSQLiteUserRepo(conn).Create(context.Background(), u))
	return u
}

func newHabitService(conn *sql.DB, uow db.UnitOfWork, inv Invalidator, obs ...UseCaseObserver) *habitService {
	svc := NewHabitService(
		repository.NewSQLiteUserRepo(conn),
		repository.NewSQLiteHabitRepo(conn),
		repository.NewSQLiteCompletionRepo(conn),
		uow,
		inv,
		nil,
		obs...,
	).(*habitService)
	svc.now = fixedClock
	return svc
}

func allEvents(t *testing.T, conn *sql.DB, userID string) []domain.Event {
	t.Helper()
	events, err := repository.NewSQLiteEventRepo(conn).ListByUser(context.Background(), userID,
		time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return events
}

func TestHabitService_CreateHabitLogsAction(t *testing.T) {
	conn := testutil.NewTestDB(t)
	u := seedUser(t, conn)
	inv := &countingInvalidator{}
	svc := newHabitService(conn, testutil.NewTestUoW(conn), inv)
	ctx := context.Background()

	h := &domain.Habit{UserID: u.ID, Title: "Morning run", ScheduleTime: "06:30"}
	require.NoError(t, svc.CreateHabit(ctx, h))
	assert.NotEmpty(t, h.ID)
	assert.Equal(t, 3, h.Importance)

	events := allEvents(t, conn, u.ID)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventHabitAction, events[0].Type)
	assert.Equal(t, domain.HabitActionPayload{HabitID: h.ID, Action: "created"}, events[0].Payload)
	assert.Equal(t, 1, inv.calls[u.ID])
}

func TestHabitService_CreateHabitValidates(t *testing.T) {
	conn := testutil.NewTestDB(t)
	u := seedUser(t, conn)
	svc := newHabitService(conn, testutil.NewTestUoW(conn), nil)

	err := svc.CreateHabit(context.Background(), &domain.Habit{UserID: u.ID, Title: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidHabit)

	err = svc.CreateHabit(context.Background(), &domain.Habit{UserID: "ghost", Title: "Read"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestHabitService_RecordCompletionDerivesStreak(t *testing.T) {
	conn := testutil.NewTestDB(t)
	u := seedUser(t, conn)
	svc := newHabitService(conn, testutil.NewTestUoW(conn), nil)
	ctx := context.Background()
	h := &domain.Habit{UserID: u.ID, Title: "Meditate"}
	require.NoError(t, svc.CreateHabit(ctx, h))

	for _, day := range []string{"2026-03-09", "2026-03-10"} {
		_, err := svc.RecordCompletion(ctx, u.ID, h.ID, day, true)
		require.NoError(t, err)
	}

	ev, err := svc.RecordCompletion(ctx, u.ID, h.ID, "", true)
	require.NoError(t, err)
	tick := ev.Payload.(domain.HabitTickPayload)
	assert.Equal(t, "2026-03-11", tick.Date)
	assert.Equal(t, "Meditate", tick.HabitTitle)
	assert.Equal(t, 3, tick.Streak)
	assert.Equal(t, 2, tick.PreviousStreak)

	ev, err = svc.RecordCompletion(ctx, u.ID, h.ID, "2026-03-11", false)
	require.NoError(t, err)
	tick = ev.Payload.(domain.HabitTickPayload)
	assert.False(t, tick.Completed)
	assert.Equal(t, 0, tick.Streak)
	assert.Equal(t, 3, tick.PreviousStreak)

	n, err := repository.NewSQLiteCompletionRepo(conn).CountDone(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "the untick overwrites today's row")
	assert.Len(t, allEvents(t, conn, u.ID), 5)
}

func TestHabitService_RecordCompletionRollsBack(t *testing.T) {
	conn := testutil.NewTestDB(t)
	u := seedUser(t, conn)
	ctx := context.Background()
	h := testutil.NewTestHabit(u.ID, "Stretch")
	require.NoError(t, repository.NewSQLiteHabitRepo(conn).Create(ctx, h))

	boom := errors.New("disk full")
	uow := &testutil.FailOnNthExecUoW{DB: conn, FailOn: 2, Err: boom}
	svc := newHabitService(conn, uow, nil)

	_, err := svc.RecordCompletion(ctx, u.ID, h.ID, "2026-03-11", true)
	require.ErrorIs(t, err, boom)

	completions, err := repository.NewSQLiteCompletionRepo(conn).ListByHabit(ctx, u.ID, h.ID)
	require.NoError(t, err)
	assert.Empty(t, completions, "completion must not outlive its event")
	assert.Empty(t, allEvents(t, conn, u.ID))
}

func TestHabitService_RecordCompletionRejects(t *testing.T) {
	conn := testutil.NewTestDB(t)
	owner := seedUser(t, conn)
	other := seedUser(t, conn)
	ctx := context.Background()
	h := testutil.NewTestHabit(owner.ID, "Stretch")
	require.NoError(t, repository.NewSQLiteHabitRepo(conn).Create(ctx, h))
	svc := newHabitService(conn, testutil.NewTestUoW(conn), nil)

	_, err := svc.RecordCompletion(ctx, other.ID, h.ID, "", true)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.RecordCompletion(ctx, owner.ID, h.ID, "11/03/2026", true)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestHabitService_ListHabits(t *testing.T) {
	conn := testutil.NewTestDB(t)
	u := seedUser(t, conn)
	ctx := context.Background()
	habits := repository.NewSQLiteHabitRepo(conn)
	completions := repository.NewSQLiteCompletionRepo(conn)

	run := testutil.NewTestHabit(u.ID, "Run")
	read := testutil.NewTestHabit(u.ID, "Read")
	require.NoError(t, habits.Create(ctx, run))
	require.NoError(t, habits.Create(ctx, read))
	for _, d := range []string{"2026-03-09", "2026-03-10", "2026-03-11"} {
		require.NoError(t, completions.Upsert(ctx, testutil.NewTestCompletion(u.ID, run.ID, d, true)))
	}
	require.NoError(t, completions.Upsert(ctx, testutil.NewTestCompletion(u.ID, read.ID, "2026-03-10", true)))

	svc := newHabitService(conn, testutil.NewTestUoW(conn), nil)
	got, err := svc.ListHabits(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	byTitle := map[string]HabitStatus{}
	for _, st := range got {
		byTitle[st.Habit.Title] = st
	}
	assert.Equal(t, 3, byTitle["Run"].Streak)
	assert.True(t, byTitle["Run"].DoneToday)
	assert.Equal(t, 3, byTitle["Run"].WeekDone)
	assert.Equal(t, 1, byTitle["Read"].WeekDone)
	assert.Equal(t, 1, byTitle["Read"].Streak, "yesterday still counts before today is recorded")
	assert.False(t, byTitle["Read"].DoneToday)
	require.NotNil(t, byTitle["Read"].LastTick)
}

func TestHabitService_RecordCompletionMarksStreakMilestones(t *testing.T) {
	conn := testutil.NewTestDB(t)
	u := seedUser(t, conn)
	ctx := context.Background()
	h := testutil.NewTestHabit(u.ID, "Meditate")
	require.NoError(t, repository.NewSQLiteHabitRepo(conn).Create(ctx, h))
	completions := repository.NewSQLiteCompletionRepo(conn)
	for _, d := range []string{"2026-03-05", "2026-03-06", "2026-03-07", "2026-03-08", "2026-03-09", "2026-03-10"} {
		require.NoError(t, completions.Upsert(ctx, testutil.NewTestCompletion(u.ID, h.ID, d, true)))
	}

	rec := &recordingMilestones{err: errors.New("learned store down")}
	obs := &recordingObserver{}
	svc := newHabitService(conn, testutil.NewTestUoW(conn), nil, obs)
	svc.milestones = rec

	ev, err := svc.RecordCompletion(ctx, u.ID, h.ID, "2026-03-11", true)
	require.NoError(t, err, "a failed milestone write does not fail the tick")
	assert.Equal(t, 7, ev.Payload.(domain.HabitTickPayload).Streak)
	require.Len(t, rec.recorded, 1)
	assert.Equal(t, "streak_7", rec.recorded[0].Type)
	assert.Equal(t, "7-day streak on Meditate", rec.recorded[0].Description)

	last := obs.events[len(obs.events)-1]
	assert.Equal(t, 7, last.Fields["milestone"])
	assert.Equal(t, "learned store down", last.Fields["milestone_error"])

	// Re-recording the same day crosses nothing.
	_, err = svc.RecordCompletion(ctx, u.ID, h.ID, "2026-03-11", true)
	require.NoError(t, err)
	assert.Len(t, rec.recorded, 1)
}

func TestCrossedStreakMilestone(t *testing.T) {
	tests := []struct {
		prev, cur int
		want      int
		ok        bool
	}{
		{6, 7, 7, true},
		{7, 8, 0, false},
		{0, 3, 0, false},
		{20, 21, 21, true},
		{5, 31, 30, true},
		{7, 0, 0, false},
	}
	for _, tt := range tests {
		got, ok := crossedStreakMilestone(tt.prev, tt.cur)
		assert.Equal(t, tt.want, got, "%d -> %d", tt.prev, tt.cur)
		assert.Equal(t, tt.ok, ok, "%d -> %d", tt.prev, tt.cur)
	}
}

func TestHabitService_DeleteHabit(t *testing.T) {
	conn := testutil.NewTestDB(t)
	owner := seedUser(t, conn)
	other := seedUser(t, conn)
	ctx := context.Background()
	inv := &countingInvalidator{}
	svc := newHabitService(conn, testutil.NewTestUoW(conn), inv)

	h := &domain.Habit{UserID: owner.ID, Title: "Read"}
	require.NoError(t, svc.CreateHabit(ctx, h))
	_, err := svc.RecordCompletion(ctx, owner.ID, h.ID, "2026-03-11", true)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteHabit(ctx, other.ID, h.ID), repository.ErrNotFound)
	require.NoError(t, svc.DeleteHabit(ctx, owner.ID, h.ID))

	habits, err := svc.ListHabits(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, habits)
	left, err := repository.NewSQLiteCompletionRepo(conn).ListByHabit(ctx, owner.ID, h.ID)
	require.NoError(t, err)
	assert.Empty(t, left, "completions cascade with the habit")

	events := allEvents(t, conn, owner.ID)
	require.Len(t, events, 3)
	assert.Equal(t, domain.HabitActionPayload{HabitID: h.ID, Action: "deleted"}, events[2].Payload)
	assert.Equal(t, 3, inv.calls[owner.ID])

	assert.ErrorIs(t, svc.DeleteHabit(ctx, owner.ID, h.ID), repository.ErrNotFound)
}

func TestHabitService_ObservesUseCases(t *testing.T) {
	conn := testutil.NewTestDB(t)
	u := seedUser(t, conn)
	obs := &recordingObserver{}
	svc := newHabitService(conn, testutil.NewTestUoW(conn), nil, obs)
	ctx := context.Background()

	h := &domain.Habit{UserID: u.ID, Title: "Journal"}
	require.NoError(t, svc.CreateHabit(ctx, h))
	_, err := svc.RecordCompletion(ctx, u.ID, h.ID, "", true)
	require.NoError(t, err)
	_, err = svc.RecordCompletion(ctx, u.ID, "missing", "", true)
	require.Error(t, err)

	require.Len(t, obs.events, 3)
	assert.Equal(t, "create-habit", obs.events[0].Name)
	assert.Equal(t, "record-completion", obs.events[1].Name)
	assert.True(t, obs.events[1].Success)
	assert.Equal(t, 1, obs.events[1].Fields["streak"])
	assert.False(t, obs.events[2].Success)
	assert.Error(t, obs.events[2].Err)
}

func TestUserService_CreateAndFacts(t *testing.T) {
	conn := testutil.NewTestDB(t)
	inv := &countingInvalidator{}
	svc := NewUserService(repository.NewSQLiteUserRepo(conn), repository.NewSQLiteUserFactsRepo(conn), testutil.NewTestUoW(conn), inv)
	ctx := context.Background()

	u := &domain.User{Name: "  Ada "}
	require.NoError(t, svc.CreateUser(ctx, u))
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, "UTC", u.Timezone)

	got, err := svc.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)

	none, err := svc.GetFacts(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	all, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, u.ID, all[0].ID)

	_, err = svc.UpdateFacts(ctx, u.ID, func(f *domain.UserFacts) { f.Purpose = "build things that last" })
	require.NoError(t, err)
	facts, err := svc.UpdateFacts(ctx, u.ID, func(f *domain.UserFacts) { f.Values = []string{"craft"} })
	require.NoError(t, err)
	assert.Equal(t, "build things that last", facts.Purpose)
	assert.Equal(t, []string{"craft"}, facts.Values)

	stored, err := repository.NewSQLiteUserFactsRepo(conn).Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, facts.Purpose, stored.Purpose)
	assert.Equal(t, 2, inv.calls[u.ID])
}

func TestUserService_Rejects(t *testing.T) {
	conn := testutil.NewTestDB(t)
	svc := NewUserService(repository.NewSQLiteUserRepo(conn), repository.NewSQLiteUserFactsRepo(conn), testutil.NewTestUoW(conn), nil)
	ctx := context.Background()

	assert.ErrorIs(t, svc.CreateUser(ctx, &domain.User{}), ErrInvalidInput)
	assert.ErrorIs(t, svc.CreateUser(ctx, &domain.User{Name: "Ada", Timezone: "Mars/Olympus"}), ErrInvalidInput)

	_, err := svc.UpdateFacts(ctx, "nobody", func(*domain.UserFacts) {})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReflectionService_RecordStoresMemory(t *testing.T) {
	conn := testutil.NewTestDB(t)
	u := seedUser(t, conn)
	mem := &recordingMemory{}
	events := repository.NewSQLiteEventRepo(conn)
	svc := NewReflectionService(repository.NewSQLiteUserRepo(conn), events, mem, nil)
	ctx := context.Background()

	ev, err := svc.Record(ctx, u.ID, "What got in the way?", "  Late meetings again. ")
	require.NoError(t, err)
	assert.Equal(t, domain.ReflectionPayload{Question: "What got in the way?", Answer: "Late meetings again."}, ev.Payload)

	n, err := events.CountByType(ctx, u.ID, domain.EventReflectionAnswer)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, mem.stored, 1)
	assert.Equal(t, storedMemory{
		userID: u.ID,
		kind:   domain.MemoryReflection,
		text:   "Late meetings again.",
		meta:   map[string]string{"event_id": ev.ID, "question": "What got in the way?"},
	}, mem.stored[0])
}

func TestReflectionService_Rejects(t *testing.T) {
	conn := testutil.NewTestDB(t)
	u := seedUser(t, conn)
	svc := NewReflectionService(repository.NewSQLiteUserRepo(conn), repository.NewSQLiteEventRepo(conn), nil, nil)

	_, err := svc.Record(context.Background(), u.ID, "", "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Record(context.Background(), "nobody", "", "fine")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMessageService_ListNewestFirst(t *testing.T) {
	conn := testutil.NewTestDB(t)
	u := seedUser(t, conn)
	events := repository.NewSQLiteEventRepo(conn)
	ctx := context.Background()

	coach := func(typ domain.EventType, text string, at time.Time) {
		require.NoError(t, events.Append(ctx, &domain.Event{
			UserID: u.ID,
			Type:   typ,
			Payload: domain.CoachMessagePayload{
				Text:           text,
				ExecutionState: domain.StateMiddle,
				Authority:      domain.AuthorityHumble,
			},
			Timestamp: at,
		}))
	}
	coach(domain.EventCoachBrief, "morning", fixedNow.Add(-3*time.Hour))
	require.NoError(t, events.Append(ctx, &domain.Event{
		UserID:    u.ID,
		Type:      domain.EventChatMessage,
		Payload:   domain.ChatMessagePayload{Role: "user", Text: "hi"},
		Timestamp: fixedNow.Add(-2 * time.Hour),
	}))
	coach(domain.EventCoachNudge, "nudge", fixedNow.Add(-time.Hour))
	coach(domain.EventCoachDebrief, "evening", fixedNow)

	msgs, err := NewMessageService(events).List(ctx, u.ID, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.MessageDebrief, msgs[0].Type)
	assert.Equal(t, "evening", msgs[0].Text)
	assert.Equal(t, domain.MessageNudge, msgs[1].Type)

	all, err := NewMessageService(events).List(ctx, u.ID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
