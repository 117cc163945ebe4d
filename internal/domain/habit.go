package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the calendar-day key used by completions.
const DateLayout = "2006-01-02"

// Habit is a recurring action the user tracks. Streak is not stored: it is
// derived from the completion table at read time.
type Habit struct {
	ID           string
	UserID       string
	Title        string
	ScheduleTime string // "HH:MM" or empty
	Importance   int    // 1-5
	CreatedAt    time.Time
}

func (h *Habit) Validate() error {
	if strings.TrimSpace(h.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidHabit)
	}
	if h.Importance < 1 || h.Importance > 5 {
		return fmt.Errorf("%w: importance %d outside 1-5", ErrInvalidHabit, h.Importance)
	}
	if h.ScheduleTime != "" {
		if _, err := time.Parse("15:04", h.ScheduleTime); err != nil {
			return fmt.Errorf("%w: schedule time %q", ErrInvalidHabit, h.ScheduleTime)
		}
	}
	return nil
}

// ScheduledHour returns the hour of the scheduled time, or -1 when unscheduled.
func (h *Habit) ScheduledHour() int {
	if h.ScheduleTime == "" {
		return -1
	}
	t, err := time.Parse("15:04", h.ScheduleTime)
	if err != nil {
		return -1
	}
	return t.Hour()
}

// Completion is the daily truth row for one habit. At most one exists per
// (user, habit, date).
type Completion struct {
	UserID     string
	HabitID    string
	Date       string
	Done       bool
	RecordedAt time.Time
}

// DateOf formats t as a calendar day in loc.
func DateOf(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}

// ParseDate parses a completion date key at midnight in loc.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateLayout, date, loc)
}

// DeriveStreak counts consecutive done days for one habit ending today, or
// ending yesterday when today has no row yet. An explicit not-done row for
// today resets the streak to zero.
func DeriveStreak(completions []Completion, today string) int {
	byDate := make(map[string]bool, len(completions))
	for _, c := range completions {
		byDate[c.Date] = c.Done
	}

	day, err := time.Parse(DateLayout, today)
	if err != nil {
		return 0
	}

	done, recorded := byDate[today]
	if recorded && !done {
		return 0
	}
	if !recorded {
		day = day.AddDate(0, 0, -1)
	}

	streak := 0
	for byDate[day.Format(DateLayout)] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// LastTick returns the latest RecordedAt among done completions, or nil.
func LastTick(completions []Completion) *time.Time {
	var last *time.Time
	for i := range completions {
		c := completions[i]
		if !c.Done {
			continue
		}
		if last == nil || c.RecordedAt.After(*last) {
			t := c.RecordedAt
			last = &t
		}
	}
	return last
}

// GroupCompletionsByHabit buckets completions by habit id. Each bucket is
// sorted by date ascending.
func GroupCompletionsByHabit(completions []Completion) map[string][]Completion {
	out := make(map[string][]Completion)
	for _, c := range completions {
		out[c.HabitID] = append(out[c.HabitID], c)
	}
	for id := range out {
		sort.SliceStable(out[id], func(i, j int) bool { return out[id][i].Date < out[id][j].Date })
	}
	return out
}
