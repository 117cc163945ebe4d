package synthesis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/futureyou/futureyou-os/internal/behavior"
	"github.com/futureyou/futureyou-os/internal/domain"
)

const maxFocusItems = 3

type YesterdayPerformance struct {
	Completed int
	Missed    int
	Rate      int
	Highlight string
}

type TodayFocus struct {
	PriorityHabits    []string
	DriftWindowsToday []string
	StreaksToProtect  []string
}

// Brief is the morning brief projection.
type Brief struct {
	*Base
	Yesterday          YesterdayPerformance
	TodayFocus         TodayFocus
	PendingCommitments []domain.CommitmentRecord
	QuestionFocus      domain.QuestionFocus
}

func (s *Synthesizer) ForBrief(ctx context.Context, userID string) (*Brief, error) {
	m, base, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return BriefFrom(m, base), nil
}

// BriefFrom extends a base projection for the morning brief.
func BriefFrom(m *domain.DeepUserModel, base *Base) *Brief {
	pending := m.Learned.PendingCommitments()
	if pending == nil {
		pending = []domain.CommitmentRecord{}
	}
	return &Brief{
		Base:               base,
		Yesterday:          yesterdayPerformance(m, base.Now),
		TodayFocus:         todayFocus(m, base.Now.Weekday()),
		PendingCommitments: pending,
		QuestionFocus:      SelectQuestionFocus(m, base.State()),
	}
}

func yesterdayPerformance(m *domain.DeepUserModel, now time.Time) YesterdayPerformance {
	yesterday := dateOffset(now, -1)
	var y YesterdayPerformance
	active := map[string]bool{}
	for _, c := range m.Recent.CompletionsOn(yesterday) {
		if c.Done {
			y.Completed++
			active[c.HabitID] = true
		} else {
			y.Missed++
		}
	}
	for _, c := range m.Recent.CompletionsOn(m.Recent.Today) {
		if c.Done {
			active[c.HabitID] = true
		}
	}
	y.Rate = behavior.Rate(y.Completed, y.Completed+y.Missed)

	if y.Completed > 0 {
		var best *domain.HabitSummary
		for i := range m.Behavior.Habits {
			h := &m.Behavior.Habits[i]
			if active[h.ID] && (best == nil || h.Streak > best.Streak) {
				best = h
			}
		}
		if best != nil && best.Streak >= activeStreakMin {
			y.Highlight = fmt.Sprintf("%s streak now at %d days", best.Title, best.Streak)
		}
	}
	return y
}

func todayFocus(m *domain.DeepUserModel, weekday time.Weekday) TodayFocus {
	f := TodayFocus{
		PriorityHabits:    []string{},
		DriftWindowsToday: []string{},
		StreaksToProtect:  []string{},
	}
	for _, h := range m.Behavior.Habits {
		if len(f.PriorityHabits) < maxFocusItems && (h.Importance >= 4 || (h.Streak >= 7 && h.CompletionRate7d < 80)) {
			f.PriorityHabits = append(f.PriorityHabits, h.Title)
		}
		if len(f.StreaksToProtect) < maxFocusItems && h.Streak >= 7 {
			f.StreaksToProtect = append(f.StreaksToProtect, fmt.Sprintf("%s (%d days)", h.Title, h.Streak))
		}
	}
	for _, d := range m.Patterns.DriftWindows {
		if d.DayOfWeek == nil || *d.DayOfWeek == weekday {
			f.DriftWindowsToday = append(f.DriftWindowsToday, hourLabel(d.HourOfDay))
		}
	}
	return f
}

// topStreakHabit returns the habit with the longest streak of at least min
// days, or nil.
func topStreakHabit(habits []domain.HabitSummary, min int) *domain.HabitSummary {
	cands := make([]domain.HabitSummary, 0, len(habits))
	for _, h := range habits {
		if h.Streak >= min {
			cands = append(cands, h)
		}
	}
	if len(cands) == 0 {
		return nil
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Streak > cands[j].Streak })
	return &cands[0]
}
