package synthesis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/futureyou/futureyou-os/internal/memory"
	"github.com/futureyou/futureyou-os/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday morning.
var fixedNow = time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)

const today = "2026-03-11"

type stubModels struct {
	model *domain.DeepUserModel
	err   error
}

func (s stubModels) Build(context.Context, string) (*domain.DeepUserModel, error) {
	return s.model, s.err
}

type stubRecall struct {
	hits []memory.Hit
}

func (s stubRecall) Recent(context.Context, string, domain.MemoryType, int) []memory.Hit {
	return s.hits
}

func newSynth(m *domain.DeepUserModel, recall Recaller) *Synthesizer {
	return New(stubModels{model: m}, recall, WithClock(func() time.Time { return fixedNow }))
}

// newModel returns a fresh user with no history.
func newModel() *domain.DeepUserModel {
	return &domain.DeepUserModel{
		Identity: domain.UserIdentity{UserID: "u1", Name: "Sam", Timezone: "UTC"},
		Behavior: domain.UserBehavior{DaysSinceLastAction: 999},
		Patterns: domain.UserPatterns{EngagementPattern: domain.EngagementNewUser},
		Psychology: domain.UserPsychology{
			ShameSensitivity: domain.DefaultShameSensitivity(),
			MotivationStyle:  domain.MotivationUnknown,
		},
		Predictions:     domain.UserPredictions{SlipRisk: domain.SlipRiskAssessment{Level: domain.RiskMedium}},
		Arc:             domain.UserArc{Phase: domain.PhaseObserver},
		ModelConfidence: domain.ConfidenceInsufficient,
		Recent:          domain.RecentActivity{Today: today, Location: time.UTC},
	}
}

// onTrackModel is a user 40 days in with three long streaks and activity
// today.
func onTrackModel() *domain.DeepUserModel {
	m := newModel()
	m.Identity.DaysInSystem = 40
	m.Identity.Purpose = "Be the person my kids look up to"
	m.Arc = domain.UserArc{Phase: domain.PhaseArchitect, DaysInPhase: 26}
	m.Volume = domain.DataVolume{TotalEvents: 60, TotalCompletions: 90, ReflectionCount: 4}
	m.ModelConfidence = domain.ConfidenceMedium
	m.Behavior = domain.UserBehavior{
		Habits: []domain.HabitSummary{
			{ID: "h1", Title: "Gym", Streak: 16, CompletionRate7d: 100, Importance: 5, ScheduledTime: "07:00"},
			{ID: "h2", Title: "Read", Streak: 9, CompletionRate7d: 86, Importance: 3, ScheduledTime: "21:00"},
			{ID: "h3", Title: "Meditate", Streak: 7, CompletionRate7d: 71, Importance: 3},
		},
		TotalHabits:          3,
		ActiveHabits:         3,
		LongestCurrentStreak: 16,
		LongestStreakHabit:   "Gym",
		Last7DaysRate:        80,
		Last30DaysRate:       75,
		DaysSinceLastAction:  0,
	}
	m.Patterns.EngagementPattern = domain.EngagementDailyEngaged
	m.Predictions.SlipRisk = domain.SlipRiskAssessment{Probability: 0.1, Level: domain.RiskLow}
	m.Recent.Completions = []domain.Completion{
		{UserID: "u1", HabitID: "h1", Date: today, Done: true},
		{UserID: "u1", HabitID: "h1", Date: "2026-03-10", Done: true},
		{UserID: "u1", HabitID: "h2", Date: "2026-03-10", Done: true},
		{UserID: "u1", HabitID: "h3", Date: "2026-03-10", Done: false},
	}
	return m
}

// ghostModel is a user who went silent four days ago after missing three
// habits.
func ghostModel() *domain.DeepUserModel {
	m := newModel()
	m.Identity.DaysInSystem = 20
	m.Arc = domain.UserArc{Phase: domain.PhaseArchitect, DaysInPhase: 6}
	m.Volume = domain.DataVolume{TotalEvents: 25, TotalCompletions: 30}
	m.ModelConfidence = domain.ConfidenceLow
	m.Behavior = domain.UserBehavior{
		Habits: []domain.HabitSummary{
			{ID: "h1", Title: "Gym", CompletionRate7d: 0, Importance: 5, ScheduledTime: "07:00"},
			{ID: "h2", Title: "Read", CompletionRate7d: 14, Importance: 2},
			{ID: "h3", Title: "Journal", CompletionRate7d: 0, Importance: 3},
		},
		TotalHabits:         3,
		DormantHabits:       3,
		Last7DaysRate:       10,
		Last30DaysRate:      45,
		DaysSinceLastAction: 4,
	}
	m.Patterns.EngagementPattern = domain.EngagementGhost
	m.Predictions.SlipRisk = domain.SlipRiskAssessment{Probability: 0.85, Level: domain.RiskCritical}
	m.Recent.Completions = []domain.Completion{
		{UserID: "u1", HabitID: "h1", Date: "2026-03-06", Done: false},
		{UserID: "u1", HabitID: "h2", Date: "2026-03-06", Done: false},
		{UserID: "u1", HabitID: "h3", Date: "2026-03-06", Done: false},
	}
	return m
}

func TestForBrief_NewUserIsHumble(t *testing.T) {
	b, err := newSynth(newModel(), nil).ForBrief(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, domain.AuthorityHumble, b.Voice.Authority)
	assert.Equal(t, domain.QualitySparse, b.Voice.DataQuality)
	assert.False(t, b.Epistemic.CanClaimPatterns)
	assert.Equal(t, domain.StateSlip, b.State())
	assert.Equal(t, domain.FocusExtractFear, b.QuestionFocus)
	assert.Equal(t, "never", b.Recent.LastEngagement)
	assert.Empty(t, b.EarnedTruths)
	assert.NotEmpty(t, b.Unknowns)
	assert.Empty(t, b.PendingCommitments)
	assert.Empty(t, b.PastReflections)
}

func TestForBrief_OnTrackCelebratesLongStreak(t *testing.T) {
	b, err := newSynth(onTrackModel(), nil).ForBrief(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, domain.StateOnTrack, b.State())
	assert.Equal(t, domain.FocusCelebrateProgress, b.QuestionFocus)
	assert.Equal(t, domain.ApproachCelebration, b.Voice.Approach)
	assert.Equal(t, 2, b.Yesterday.Completed)
	assert.Equal(t, 1, b.Yesterday.Missed)
	assert.Equal(t, 67, b.Yesterday.Rate)
	assert.Equal(t, "Gym streak now at 16 days", b.Yesterday.Highlight)
	assert.Equal(t, []string{"Gym (16 days)", "Read (9 days)", "Meditate (7 days)"}, b.TodayFocus.StreaksToProtect)
	assert.Contains(t, b.TodayFocus.PriorityHabits, "Gym")
	assert.Contains(t, b.TodayFocus.PriorityHabits, "Meditate")
}

func TestForBrief_OnTrackWithoutLongStreakClarifies(t *testing.T) {
	m := onTrackModel()
	m.Behavior.LongestCurrentStreak = 9

	b, err := newSynth(m, nil).ForBrief(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, domain.StateOnTrack, b.State())
	assert.Equal(t, domain.FocusClarifyIntention, b.QuestionFocus)
}

func TestForNudge_GhostUserSlips(t *testing.T) {
	n, err := newSynth(ghostModel(), nil).ForNudge(context.Background(), "u1", "ghost_check", "silent for 4 days", 0)
	require.NoError(t, err)

	assert.Equal(t, domain.StateSlip, n.State())
	assert.Contains(t, []domain.QuestionFocus{domain.FocusProbeExcuse, domain.FocusExtractFear}, n.QuestionFocus)
	assert.Equal(t, DefaultNudgeSeverity, n.Trigger.Severity)
	assert.Equal(t, domain.RiskCritical, n.Urgency)
	assert.Equal(t, "Do one thing right now, anything, to break the freeze", n.RecommendedAction)
	assert.Equal(t, "4 days ago", n.Recent.LastEngagement)
	assert.Contains(t, n.Execution.Evidence(), "Ghost pattern detected")
}

func TestForNudge_GhostWithExcusesProbes(t *testing.T) {
	m := ghostModel()
	m.Psychology.RecurringExcuses = []domain.RecurringExcuse{{Phrase: "too tired", Frequency: 4}}

	n, err := newSynth(m, nil).ForNudge(context.Background(), "u1", "ghost_check", "", 3)
	require.NoError(t, err)
	assert.Equal(t, domain.FocusProbeExcuse, n.QuestionFocus)
}

func TestSynthesizer_PropagatesModelError(t *testing.T) {
	boom := errors.New("store down")
	s := New(stubModels{err: boom}, nil)

	_, err := s.ForBrief(context.Background(), "u1")
	assert.ErrorIs(t, err, boom)
	_, err = s.ForNudge(context.Background(), "u1", "x", "", 1)
	assert.ErrorIs(t, err, boom)
	_, err = s.ForDebrief(context.Background(), "u1")
	assert.ErrorIs(t, err, boom)
	_, err = s.ForWeeklyLetter(context.Background(), "u1")
	assert.ErrorIs(t, err, boom)
	_, err = s.ForChat(context.Background(), "u1", nil)
	assert.ErrorIs(t, err, boom)
}

func TestSynthesizer_AttachesReflections(t *testing.T) {
	recall := stubRecall{hits: []memory.Hit{
		{Text: "I skipped because of work", Metadata: map[string]string{"dayKey": "2026-03-09", "source": "debrief"}},
		{Text: "Felt good today", CreatedAt: time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)},
	}}

	b, err := newSynth(onTrackModel(), recall).ForBrief(context.Background(), "u1")
	require.NoError(t, err)

	require.Len(t, b.PastReflections, 2)
	assert.Equal(t, Reflection{Text: "I skipped because of work", DayKey: "2026-03-09", Source: "debrief"}, b.PastReflections[0])
	assert.Equal(t, Reflection{Text: "Felt good today", DayKey: "2026-03-10", Source: "unknown"}, b.PastReflections[1])
}

func TestNewBase_Deterministic(t *testing.T) {
	m := onTrackModel()
	first := NewBase(m, fixedNow)
	second := NewBase(m, fixedNow)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("NewBase not deterministic (-first +second):\n%s", diff)
	}
}

func TestNewBase_UsesUserTimezone(t *testing.T) {
	loc := time.FixedZone("EST", -5*60*60)
	m := onTrackModel()
	m.Recent.Location = loc

	b := NewBase(m, fixedNow)
	assert.Equal(t, loc, b.Now.Location())
	assert.Equal(t, 4, b.Now.Hour())
}

func TestEpistemicInput_CollectsTodayAndStreaks(t *testing.T) {
	in := EpistemicInput(onTrackModel())

	assert.Equal(t, 40, in.DaysInSystem)
	assert.Equal(t, 60, in.TotalEvents)
	assert.Equal(t, 90, in.TotalCompletions)
	assert.Equal(t, []string{"Gym"}, in.TodayCompletions)
	assert.Len(t, in.Streaks, 3)
}

func TestBuildRecentData_TodayBuckets(t *testing.T) {
	m := onTrackModel()
	// Read is scheduled tonight, Meditate has no time.
	rd := BuildRecentData(m, fixedNow)

	assert.Equal(t, 1, rd.Today.CompletedCount)
	assert.Equal(t, 0, rd.Today.MissedCount)
	assert.Equal(t, 2, rd.Today.PendingCount)
	assert.Equal(t, 33, rd.Today.CompletionRate)
	assert.Equal(t, []string{"Gym"}, rd.RecentWins)
	assert.Equal(t, "today", rd.LastEngagement)
	require.Len(t, rd.ActiveStreaks, 3)
	assert.Equal(t, ActiveStreak{HabitTitle: "Gym", Days: 16}, rd.ActiveStreaks[0])
	assert.Equal(t, ActiveStreak{HabitTitle: "Meditate", Days: 7}, rd.ActiveStreaks[2])
}

func TestBuildRecentData_PastScheduleCountsAsMissed(t *testing.T) {
	m := ghostModel()
	rd := BuildRecentData(m, fixedNow)

	// Gym was due at 07:00; the others have no time yet.
	assert.Equal(t, 1, rd.Today.MissedCount)
	assert.Equal(t, 2, rd.Today.PendingCount)
	assert.Empty(t, rd.RecentWins)
}

func TestBuildRecentData_WeekTrendAgainstPriorWeek(t *testing.T) {
	m := newModel()
	m.Behavior.Habits = []domain.HabitSummary{{ID: "h1", Title: "Gym"}}
	m.Behavior.Last7DaysRate = 80
	m.Behavior.Last30DaysRate = 80
	for d := 7; d <= 13; d++ {
		m.Recent.Completions = append(m.Recent.Completions, domain.Completion{
			HabitID: "h1", Date: fixedNow.AddDate(0, 0, -d).Format(domain.DateLayout), Done: d == 7,
		})
	}

	rd := BuildRecentData(m, fixedNow)
	assert.Equal(t, TrendImproving, rd.Week.Trend)
	assert.Equal(t, 0, rd.Week.Total)
}

func TestLastEngagement(t *testing.T) {
	assert.Equal(t, "today", lastEngagement(0))
	assert.Equal(t, "yesterday", lastEngagement(1))
	assert.Equal(t, "5 days ago", lastEngagement(5))
	assert.Equal(t, "never", lastEngagement(999))
}

func TestPastScheduled(t *testing.T) {
	assert.True(t, pastScheduled("07:00", fixedNow))
	assert.False(t, pastScheduled("21:00", fixedNow))
	assert.False(t, pastScheduled("", fixedNow))
	assert.False(t, pastScheduled("soon", fixedNow))
}

func TestForDebrief_ReviewsToday(t *testing.T) {
	m := onTrackModel()
	m.Recent.Completions = append(m.Recent.Completions, domain.Completion{HabitID: "h2", Date: today, Done: false})
	m.Psychology.TimeWasters = []string{"phone"}
	m.Recent.Events = []domain.Event{
		testutil.Tick("u1", "h1", time.Date(2026, 3, 11, 7, 5, 0, 0, time.UTC), true),
		testutil.Tick("u1", "h2", time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC), false),
		testutil.Tick("u1", "h3", time.Date(2026, 3, 11, 13, 30, 0, 0, time.UTC), true),
	}
	thu := time.Thursday
	m.Patterns.DriftWindows = []domain.DriftWindow{{HourOfDay: 15, DayOfWeek: &thu, CompletionRate: 20, SampleSize: 6}}

	d, err := newSynth(m, nil).ForDebrief(context.Background(), "u1")
	require.NoError(t, err)

	require.Len(t, d.TodayActual.Completed, 1)
	require.Len(t, d.TodayActual.Missed, 1)
	assert.Equal(t, 50, d.TodayActual.CompletionRate)
	assert.Equal(t, "Continuing your Gym streak (16 days)", d.TodayActual.BestMoment)
	assert.Equal(t, "Missing Read", d.TodayActual.HardestMoment)
	assert.False(t, d.IntentionVsReality.Aligned)
	assert.Equal(t, "Today was 30% below your recent average", d.IntentionVsReality.Gap)
	assert.Equal(t, DriftAnalysis{DriftedAt: "08:00", DriftCause: "Possibly: phone", RecoveredAt: "13:00"}, d.Drift)
	assert.Equal(t, "Gym", d.Tomorrow.PriorityHabit)
	assert.Equal(t, "15:00", d.Tomorrow.RiskWindow)
}

func TestCompareIntention(t *testing.T) {
	tests := []struct {
		name             string
		expected, actual int
		want             IntentionVsReality
	}{
		{"within band", 70, 60, IntentionVsReality{Aligned: true}},
		{"below", 70, 40, IntentionVsReality{Gap: "Today was 30% below your recent average"}},
		{"above", 40, 100, IntentionVsReality{Aligned: true, Gap: "Today was 60% above your recent average"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compareIntention(tt.expected, tt.actual))
		})
	}
}

func TestForWeeklyLetter_WeekOverWeek(t *testing.T) {
	m := onTrackModel()
	m.Recent.Completions = nil
	for d := 0; d < 14; d++ {
		m.Recent.Completions = append(m.Recent.Completions, domain.Completion{
			HabitID: "h1", Date: fixedNow.AddDate(0, 0, -d).Format(domain.DateLayout), Done: d < 7 || d%2 == 0,
		})
	}
	m.Arc.Milestones = []domain.ArcMilestone{
		{Description: "First 14-day streak", AchievedAt: fixedNow.AddDate(0, 0, -2)},
		{Description: "First week", AchievedAt: fixedNow.AddDate(0, 0, -30)},
	}

	l, err := newSynth(m, nil).ForWeeklyLetter(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, 7, l.Week.TotalCompleted)
	assert.Equal(t, 0, l.Week.TotalMissed)
	assert.Equal(t, 100, l.WeekOverWeek.ThisWeek)
	assert.Equal(t, 43, l.WeekOverWeek.LastWeek)
	assert.Equal(t, 57, l.WeekOverWeek.Change)
	assert.Equal(t, "Significant improvement", l.WeekOverWeek.Description)
	assert.Equal(t, []string{"First 14-day streak"}, l.Arc.MilestonesThisWeek)
}

func TestLetter_TruthPrefersUnchallengedNarrative(t *testing.T) {
	m := onTrackModel()
	m.Psychology.LimitingNarratives = []domain.LimitingNarrative{
		{Narrative: "I always fail", Challenged: true},
		{Narrative: "I'm not disciplined"},
	}

	l := LetterFrom(m, NewBase(m, fixedNow))
	assert.Contains(t, l.TruthToDeliver, `"I'm not disciplined"`)
}

func TestDescribeChange(t *testing.T) {
	tests := []struct {
		change int
		want   string
	}{
		{20, "Significant improvement"},
		{10, "Slight improvement"},
		{0, "Holding steady"},
		{-5, "Holding steady"},
		{-10, "Slight decline"},
		{-16, "Significant decline"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DescribeChange(tt.change), "change %d", tt.change)
	}
}

func TestAnalyzeConversation(t *testing.T) {
	var history []domain.ChatTurn
	for i := 0; i < 11; i++ {
		history = append(history, domain.ChatTurn{Role: "assistant", Content: "ok"})
	}
	history = append(history,
		domain.ChatTurn{Role: "user", Content: "I'm so tired, I missed the gym again"},
		domain.ChatTurn{Role: "assistant", Content: "What happened?"},
	)

	c := AnalyzeConversation(history)
	assert.Len(t, c.RecentMessages, 10)
	assert.Equal(t, "depleted", c.EmotionalTone)
	assert.Equal(t, "recovery", c.TopicThread)
}

func TestAnalyzeConversation_Empty(t *testing.T) {
	c := AnalyzeConversation(nil)
	assert.Empty(t, c.RecentMessages)
	assert.Equal(t, "neutral", c.EmotionalTone)
	assert.Equal(t, "", c.TopicThread)
}

func TestForChat_PatternsWaitForHistory(t *testing.T) {
	m := onTrackModel()
	wed := time.Wednesday
	m.Patterns.WeakestDay = &domain.DayOfWeekPattern{Day: wed, DayName: "Wednesday", CompletionRate: 40, IsWeakDay: true}

	c, err := newSynth(m, nil).ForChat(context.Background(), "u1", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Wednesday is consistently their weak day"}, c.PatternsToSurface)

	m.Identity.DaysInSystem = 10
	c, err = newSynth(m, nil).ForChat(context.Background(), "u1", nil)
	require.NoError(t, err)
	assert.Empty(t, c.PatternsToSurface)
}

func TestForChat_CommitmentsFromLastWeek(t *testing.T) {
	m := onTrackModel()
	m.Psychology.RecurringExcuses = []domain.RecurringExcuse{{Phrase: "too busy", Frequency: 2}}
	m.Patterns.AvoidedHabits = []string{"h3", "missing"}
	m.Learned = &domain.LearnedUserModel{Commitments: []domain.CommitmentRecord{
		{ID: "c1", Text: "I'll do it tomorrow", MadeAt: fixedNow.AddDate(0, 0, -2), Status: domain.CommitmentPending},
		{ID: "c2", Text: "I'm going to read", MadeAt: fixedNow.AddDate(0, 0, -9), Status: domain.CommitmentPending},
		{ID: "c3", Text: "I promise I'll run", MadeAt: fixedNow.AddDate(0, 0, -1), Status: domain.CommitmentKept},
	}}

	c, err := newSynth(m, nil).ForChat(context.Background(), "u1", []domain.ChatTurn{{Role: "user", Content: "hey"}})
	require.NoError(t, err)

	require.Len(t, c.CommitmentsToCheck, 1)
	assert.Equal(t, "c1", c.CommitmentsToCheck[0].ID)
	assert.Contains(t, c.Curiosities, `What's really behind "too busy"?`)
	assert.Contains(t, c.Curiosities, "Why do they keep avoiding Meditate?")
}
