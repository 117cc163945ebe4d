package synthesis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/futureyou/futureyou-os/internal/behavior"
	"github.com/futureyou/futureyou-os/internal/domain"
)

const (
	alignmentBand = 15
	driftGap      = 4 * time.Hour
)

type TodayActual struct {
	Completed      []TodayHabit
	Missed         []TodayHabit
	CompletionRate int
	BestMoment     string
	HardestMoment  string
}

type IntentionVsReality struct {
	Aligned bool
	Gap     string
}

type DriftAnalysis struct {
	DriftedAt   string
	DriftCause  string
	RecoveredAt string
}

type TomorrowSetup struct {
	PriorityHabit     string
	RiskWindow        string
	CommitmentToProbe string
}

// Debrief is the evening debrief projection.
type Debrief struct {
	*Base
	TodayActual        TodayActual
	IntentionVsReality IntentionVsReality
	Drift              DriftAnalysis
	Tomorrow           TomorrowSetup
	QuestionFocus      domain.QuestionFocus
}

func (s *Synthesizer) ForDebrief(ctx context.Context, userID string) (*Debrief, error) {
	m, base, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return DebriefFrom(m, base), nil
}

// DebriefFrom extends a base projection for the evening debrief.
func DebriefFrom(m *domain.DeepUserModel, base *Base) *Debrief {
	actual := todayActual(m)
	return &Debrief{
		Base:               base,
		TodayActual:        actual,
		IntentionVsReality: compareIntention(m.Behavior.Last7DaysRate, actual.CompletionRate),
		Drift:              todaysDrift(m, base.Now),
		Tomorrow:           tomorrowSetup(m, base.Now),
		QuestionFocus:      SelectQuestionFocus(m, base.State()),
	}
}

func todayActual(m *domain.DeepUserModel) TodayActual {
	a := TodayActual{Completed: []TodayHabit{}, Missed: []TodayHabit{}}
	for _, c := range m.Recent.CompletionsOn(m.Recent.Today) {
		th := TodayHabit{HabitID: c.HabitID, Title: "Unknown", Completed: c.Done}
		if h := m.Behavior.HabitByID(c.HabitID); h != nil {
			th.Title = h.Title
			th.ScheduledTime = h.ScheduledTime
			if c.Done {
				th.Streak = h.Streak
			}
		}
		if c.Done {
			a.Completed = append(a.Completed, th)
		} else {
			a.Missed = append(a.Missed, th)
		}
	}
	a.CompletionRate = behavior.Rate(len(a.Completed), len(a.Completed)+len(a.Missed))

	sort.SliceStable(a.Completed, func(i, j int) bool { return a.Completed[i].Streak > a.Completed[j].Streak })
	if len(a.Completed) > 0 {
		top := a.Completed[0]
		if top.Streak >= activeStreakMin {
			a.BestMoment = fmt.Sprintf("Continuing your %s streak (%d days)", top.Title, top.Streak)
		} else {
			a.BestMoment = "Completing " + top.Title
		}
	}
	if len(a.Missed) > 0 {
		a.HardestMoment = "Missing " + a.Missed[0].Title
	}
	return a
}

// compareIntention measures today against the 7-day rate. Within the band
// counts as aligned; above it is aligned with a positive gap.
func compareIntention(expected, actual int) IntentionVsReality {
	switch {
	case actual < expected-alignmentBand:
		return IntentionVsReality{Gap: fmt.Sprintf("Today was %d%% below your recent average", expected-actual)}
	case actual > expected+alignmentBand:
		return IntentionVsReality{Aligned: true, Gap: fmt.Sprintf("Today was %d%% above your recent average", actual-expected)}
	}
	return IntentionVsReality{Aligned: true}
}

// todaysDrift finds the first gap longer than four hours between today's
// events.
func todaysDrift(m *domain.DeepUserModel, now time.Time) DriftAnalysis {
	var d DriftAnalysis
	loc := now.Location()
	var todays []domain.Event
	for _, e := range m.Recent.Events {
		if domain.DateOf(e.Timestamp, loc) == m.Recent.Today {
			todays = append(todays, e)
		}
	}
	for i := 1; i < len(todays); i++ {
		prev, curr := todays[i-1].Timestamp, todays[i].Timestamp
		if curr.Sub(prev) > driftGap {
			d.DriftedAt = hourLabel(prev.In(loc).Hour())
			d.RecoveredAt = hourLabel(curr.In(loc).Hour())
			break
		}
	}
	if tw := m.Psychology.TimeWasters; len(tw) > 0 {
		d.DriftCause = "Possibly: " + tw[0]
	}
	return d
}

func tomorrowSetup(m *domain.DeepUserModel, now time.Time) TomorrowSetup {
	var t TomorrowSetup

	cands := make([]domain.HabitSummary, 0, len(m.Behavior.Habits))
	for _, h := range m.Behavior.Habits {
		if h.Importance >= 4 || h.Streak >= 7 {
			cands = append(cands, h)
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Importance > cands[j].Importance })
	if len(cands) > 0 {
		t.PriorityHabit = cands[0].Title
	}

	tomorrow := now.AddDate(0, 0, 1).Weekday()
	for _, d := range m.Patterns.DriftWindows {
		if d.DayOfWeek == nil || *d.DayOfWeek == tomorrow {
			t.RiskWindow = hourLabel(d.HourOfDay)
			break
		}
	}

	if pending := m.Learned.PendingCommitments(); len(pending) > 0 {
		t.CommitmentToProbe = pending[0].Text
	}
	return t
}
