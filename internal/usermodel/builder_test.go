package usermodel

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/futureyou/futureyou-os/internal/cache"
	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/futureyou/futureyou-os/internal/repository"
	"github.com/futureyou/futureyou-os/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 11, 15, 0, 0, 0, time.UTC)

type fixture struct {
	conn    *sql.DB
	builder *Builder
	learned *LearnedStore
	deep    *cache.Expirable[*domain.DeepUserModel]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := testutil.NewTestDB(t)
	deep := cache.NewExpirable[*domain.DeepUserModel](16, time.Minute)
	learnedCache := cache.NewExpirable[*domain.LearnedUserModel](16, time.Hour)

	ls := NewLearnedStore(repository.NewSQLiteLearnedModelRepo(conn), learnedCache, deep)
	ls.now = func() time.Time { return fixedNow }

	b := NewBuilder(Repos{
		Users:       repository.NewSQLiteUserRepo(conn),
		Facts:       repository.NewSQLiteUserFactsRepo(conn),
		Habits:      repository.NewSQLiteHabitRepo(conn),
		Completions: repository.NewSQLiteCompletionRepo(conn),
		Events:      repository.NewSQLiteEventRepo(conn),
	}, ls, deep, WithClock(func() time.Time { return fixedNow }))

	return &fixture{conn: conn, builder: b, learned: ls, deep: deep}
}

func (f *fixture) seedUser(t *testing.T, opts ...testutil.UserOption) *domain.User {
	t.Helper()
	u := testutil.NewTestUser(opts...)
	require.NoError(t, repository.NewSQLiteUserRepo(f.conn).Create(context.Background(), u))
	return u
}

func (f *fixture) seedHabit(t *testing.T, userID, title string, opts ...testutil.HabitOption) *domain.Habit {
	t.Helper()
	h := testutil.NewTestHabit(userID, title, opts...)
	require.NoError(t, repository.NewSQLiteHabitRepo(f.conn).Create(context.Background(), h))
	return h
}

// seedDone records a done completion daysAgo and its habit_tick event.
func (f *fixture) seedDone(t *testing.T, userID, habitID string, daysAgo int) {
	t.Helper()
	ctx := context.Background()
	date := fixedNow.AddDate(0, 0, -daysAgo).Format(domain.DateLayout)
	c := testutil.NewTestCompletion(userID, habitID, date, true)
	require.NoError(t, repository.NewSQLiteCompletionRepo(f.conn).Upsert(ctx, c))
	e := testutil.Tick(userID, habitID, c.RecordedAt, true)
	require.NoError(t, repository.NewSQLiteEventRepo(f.conn).Append(ctx, &e))
}

func TestBuild_AssemblesEveryLayer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t, testutil.WithUserName("Maya"), testutil.WithCreatedAt(fixedNow.AddDate(0, 0, -20)))
	run := f.seedHabit(t, u.ID, "Run", testutil.WithImportance(5))
	read := f.seedHabit(t, u.ID, "Read")
	for d := 0; d < 5; d++ {
		f.seedDone(t, u.ID, run.ID, d)
	}
	f.seedDone(t, u.ID, read.ID, 2)

	refl := testutil.NewTestEvent(u.ID, domain.EventReflectionAnswer,
		domain.ReflectionPayload{Question: "What matters?", Answer: "Being steady."}, fixedNow.Add(-time.Hour))
	require.NoError(t, repository.NewSQLiteEventRepo(f.conn).Append(ctx, &refl))

	require.NoError(t, repository.NewSQLiteUserFactsRepo(f.conn).Upsert(ctx, &domain.UserFacts{
		UserID:  u.ID,
		Purpose: "Be the calm parent",
		Contradictions: []domain.Contradiction{
			{ID: "c1", Description: "Says mornings matter, skips them", Severity: 3, Status: domain.ContradictionActive},
		},
	}))

	m, err := f.builder.Build(ctx, u.ID)
	require.NoError(t, err)

	assert.Equal(t, "Maya", m.Identity.Name)
	assert.Equal(t, 20, m.Identity.DaysInSystem)
	assert.Equal(t, "Be the calm parent", m.Identity.Purpose)
	assert.Equal(t, domain.PhaseArchitect, m.Arc.Phase)
	assert.Equal(t, 6, m.Arc.DaysInPhase)

	assert.Equal(t, 2, m.Behavior.TotalHabits)
	assert.Equal(t, 5, m.Behavior.LongestCurrentStreak)
	assert.Equal(t, "Run", m.Behavior.LongestStreakHabit)
	assert.Equal(t, 0, m.Behavior.DaysSinceLastAction)

	assert.Equal(t, domain.DataVolume{TotalEvents: 7, TotalCompletions: 6, ReflectionCount: 1}, m.Volume)
	assert.Equal(t, "2026-03-11", m.Recent.Today)
	assert.Len(t, m.Recent.CompletionsOn("2026-03-11"), 1)

	require.NotNil(t, m.Contradictions.Primary)
	assert.Equal(t, "c1", m.Contradictions.Primary.ID)
	assert.Nil(t, m.Learned)
	assert.Equal(t, domain.ConfidenceInsufficient, m.ModelConfidence)
	assert.Nil(t, m.ActiveTriggerChainWarning)
}

func TestBuild_NewUserHasConservativeDefaults(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, testutil.WithCreatedAt(fixedNow))

	m, err := f.builder.Build(context.Background(), u.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, m.Identity.DaysInSystem)
	assert.Equal(t, domain.PhaseObserver, m.Arc.Phase)
	assert.Equal(t, domain.EngagementGhost, m.Patterns.EngagementPattern)
	assert.Equal(t, domain.MotivationUnknown, m.Psychology.MotivationStyle)
	assert.Empty(t, m.Recent.Events)
}

func TestBuild_UnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.builder.Build(context.Background(), "missing")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestBuild_CachesUntilLearnedWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t)

	first, err := f.builder.Build(ctx, u.ID)
	require.NoError(t, err)
	second, err := f.builder.Build(ctx, u.ID)
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, f.learned.AddExcuse(ctx, u.ID, "too tired", false))

	third, err := f.builder.Build(ctx, u.ID)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	require.Len(t, third.Psychology.RecurringExcuses, 1)
	assert.Equal(t, "too tired", third.Psychology.RecurringExcuses[0].Phrase)
	require.NotNil(t, third.Learned)
}

func TestBuild_ConcurrentCallersAgree(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, testutil.WithCreatedAt(fixedNow.AddDate(0, 0, -3)))

	var wg sync.WaitGroup
	results := make([]*domain.DeepUserModel, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.builder.Build(context.Background(), u.ID)
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].Identity, results[i].Identity)
		assert.Equal(t, results[0].Behavior, results[i].Behavior)
	}
}
