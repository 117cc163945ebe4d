package synthesis

import (
	"fmt"
	"sort"
	"time"

	"github.com/futureyou/futureyou-os/internal/behavior"
	"github.com/futureyou/futureyou-os/internal/domain"
)

const (
	maxActiveStreaks = 5
	maxRecentWins    = 3
	trendMargin      = 10
	streakAtRiskRate = 70
)

type TodayHabit struct {
	HabitID       string
	Title         string
	Completed     bool
	Streak        int
	ScheduledTime string
}

type TodaySnapshot struct {
	Habits         []TodayHabit
	CompletedCount int
	MissedCount    int
	PendingCount   int
	CompletionRate int
}

type WeekSnapshot struct {
	Completed int
	Total     int
	Rate      int
	Trend     Trend
}

type ActiveStreak struct {
	HabitTitle string
	Days       int
	AtRisk     bool
}

// RecentData is the short-range snapshot every prompt carries.
type RecentData struct {
	Today               TodaySnapshot
	Week                WeekSnapshot
	ActiveStreaks       []ActiveStreak
	RecentWins          []string
	LastEngagement      string
	DaysSinceLastAction int
}

// BuildRecentData summarizes today, the last seven days and active streaks.
// A habit counts as missed today when it has an explicit not-done row or its
// scheduled time has passed.
func BuildRecentData(m *domain.DeepUserModel, now time.Time) RecentData {
	today := m.Recent.Today
	doneToday := map[string]bool{}
	recorded := map[string]bool{}
	for _, c := range m.Recent.CompletionsOn(today) {
		recorded[c.HabitID] = true
		doneToday[c.HabitID] = c.Done
	}

	var snap TodaySnapshot
	var wins []string
	for _, h := range m.Behavior.Habits {
		th := TodayHabit{
			HabitID:       h.ID,
			Title:         h.Title,
			Completed:     doneToday[h.ID],
			Streak:        h.Streak,
			ScheduledTime: h.ScheduledTime,
		}
		snap.Habits = append(snap.Habits, th)
		switch {
		case th.Completed:
			snap.CompletedCount++
			if len(wins) < maxRecentWins {
				wins = append(wins, th.Title)
			}
		case recorded[h.ID] || pastScheduled(h.ScheduledTime, now):
			snap.MissedCount++
		default:
			snap.PendingCount++
		}
	}
	snap.CompletionRate = behavior.Rate(snap.CompletedCount, len(snap.Habits))

	rd := RecentData{
		Today:               snap,
		Week:                weekSnapshot(m, now),
		ActiveStreaks:       activeStreaks(m.Behavior.Habits),
		RecentWins:          wins,
		LastEngagement:      lastEngagement(m.Behavior.DaysSinceLastAction),
		DaysSinceLastAction: m.Behavior.DaysSinceLastAction,
	}
	if rd.RecentWins == nil {
		rd.RecentWins = []string{}
	}
	return rd
}

func weekSnapshot(m *domain.DeepUserModel, now time.Time) WeekSnapshot {
	w := WeekSnapshot{Rate: m.Behavior.Last7DaysRate}
	w.Completed, w.Total = countRange(m.Recent.Completions, dateOffset(now, -6), m.Recent.Today)
	prevDone, prevTotal := countRange(m.Recent.Completions, dateOffset(now, -13), dateOffset(now, -7))

	baseline := m.Behavior.Last30DaysRate
	if prevTotal > 0 {
		baseline = behavior.Rate(prevDone, prevTotal)
	}
	w.Trend = compareRates(w.Rate, baseline)
	return w
}

// countRange counts done and total completion rows dated within [from, to].
func countRange(completions []domain.Completion, from, to string) (done, total int) {
	for _, c := range completions {
		if c.Date < from || c.Date > to {
			continue
		}
		total++
		if c.Done {
			done++
		}
	}
	return done, total
}

func compareRates(current, baseline int) Trend {
	switch {
	case current > baseline+trendMargin:
		return TrendImproving
	case current < baseline-trendMargin:
		return TrendDeclining
	}
	return TrendStable
}

func activeStreaks(habits []domain.HabitSummary) []ActiveStreak {
	sorted := make([]domain.HabitSummary, 0, len(habits))
	for _, h := range habits {
		if h.Streak >= activeStreakMin {
			sorted = append(sorted, h)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Streak > sorted[j].Streak })

	out := []ActiveStreak{}
	for _, h := range sorted[:min(maxActiveStreaks, len(sorted))] {
		out = append(out, ActiveStreak{HabitTitle: h.Title, Days: h.Streak, AtRisk: h.CompletionRate7d < streakAtRiskRate})
	}
	return out
}

func lastEngagement(days int) string {
	switch days {
	case 0:
		return "today"
	case 1:
		return "yesterday"
	case behavior.NoActionDays:
		return "never"
	}
	return fmt.Sprintf("%d days ago", days)
}

// pastScheduled reports whether an "HH:MM" schedule time is earlier than
// now on now's calendar day.
func pastScheduled(hhmm string, now time.Time) bool {
	if hhmm == "" {
		return false
	}
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return false
	}
	scheduled := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
	return now.After(scheduled)
}

// dateOffset returns the date key days away from now's calendar day.
func dateOffset(now time.Time, days int) string {
	return now.AddDate(0, 0, days).Format(domain.DateLayout)
}
