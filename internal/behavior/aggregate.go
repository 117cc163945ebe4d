// Package behavior computes rolling behavioral statistics from a user's raw
// habits, completions and events. Every function here is pure: the same
// inputs always produce the same output.
package behavior

import (
	"math"
	"sort"
	"time"

	"github.com/futureyou/futureyou-os/internal/domain"
)

// NoActionDays is reported as days-since-last-action when the user has no
// events at all.
const NoActionDays = 999

// Input is the raw material for one aggregation.
type Input struct {
	Habits      []*domain.Habit
	Completions []domain.Completion
	// Events must be sorted by timestamp ascending.
	Events []domain.Event
	// LastEventAt overrides the last event time when Events is a bounded
	// window that may not contain the newest event.
	LastEventAt *time.Time
	Now         time.Time
	Location    *time.Location
}

// Snapshot is the aggregator output.
type Snapshot struct {
	Behavior domain.UserBehavior
	Patterns domain.UserPatterns
}

// Aggregate builds the behavior and pattern layers.
func Aggregate(in Input) Snapshot {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	b := buildBehavior(in, loc)
	p := buildPatterns(b, in.Completions, in.Now, loc)
	return Snapshot{Behavior: b, Patterns: p}
}

// window returns the inclusive [from, to] date keys covering the last days
// calendar days ending today.
func window(now time.Time, loc *time.Location, days int) (string, string) {
	today := now.In(loc)
	from := today.AddDate(0, 0, -(days - 1))
	return from.Format(domain.DateLayout), today.Format(domain.DateLayout)
}

func inWindow(date, from, to string) bool {
	return date >= from && date <= to
}

// Rate returns done/total as a rounded percentage, or 0 for an empty total.
func Rate(done, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}

func rateIn(completions []domain.Completion, from, to string) int {
	done, total := 0, 0
	for _, c := range completions {
		if !inWindow(c.Date, from, to) {
			continue
		}
		total++
		if c.Done {
			done++
		}
	}
	return Rate(done, total)
}

func buildBehavior(in Input, loc *time.Location) domain.UserBehavior {
	today := domain.DateOf(in.Now, loc)
	from7, to := window(in.Now, loc, 7)
	from30, _ := window(in.Now, loc, 30)
	byHabit := domain.GroupCompletionsByHabit(in.Completions)

	b := domain.UserBehavior{
		Habits:           make([]domain.HabitSummary, 0, len(in.Habits)),
		TotalHabits:      len(in.Habits),
		MostActiveHours:  []int{},
		LeastActiveHours: []int{},
	}

	for _, h := range in.Habits {
		hc := byHabit[h.ID]
		s := domain.HabitSummary{
			ID:                h.ID,
			Title:             h.Title,
			Streak:            domain.DeriveStreak(hc, today),
			LastTick:          domain.LastTick(hc),
			CompletionRate7d:  rateIn(hc, from7, to),
			CompletionRate30d: rateIn(hc, from30, to),
			ScheduledTime:     h.ScheduleTime,
			Importance:        h.Importance,
		}
		if s.Importance == 0 {
			s.Importance = 3
		}
		b.Habits = append(b.Habits, s)

		switch {
		case s.Streak > 0:
			b.ActiveHabits++
		case s.LastTick != nil:
			b.DormantHabits++
		default:
			b.NeverStartedHabits++
		}
		if s.Streak > b.LongestCurrentStreak {
			b.LongestCurrentStreak = s.Streak
			b.LongestStreakHabit = s.Title
		}
	}

	b.Last7DaysRate = rateIn(in.Completions, from7, to)
	b.Last30DaysRate = rateIn(in.Completions, from30, to)
	b.DaysSinceLastAction = DaysSinceLastAction(in.Events, in.LastEventAt, in.Now)
	b.MostActiveHours, b.LeastActiveHours = activeHours(in.Completions, loc)
	return b
}

// DaysSinceLastAction is whole days since the newest event, or NoActionDays.
func DaysSinceLastAction(events []domain.Event, last *time.Time, now time.Time) int {
	var ts time.Time
	switch {
	case last != nil:
		ts = *last
	case len(events) > 0:
		ts = events[len(events)-1].Timestamp
	default:
		return NoActionDays
	}
	d := int(math.Floor(now.Sub(ts).Hours() / 24))
	if d < 0 {
		return 0
	}
	return d
}

type hourStat struct {
	hour  int
	done  int
	total int
}

func hourStats(completions []domain.Completion, loc *time.Location) []hourStat {
	byHour := map[int]*hourStat{}
	for _, c := range completions {
		h := c.RecordedAt.In(loc).Hour()
		s, ok := byHour[h]
		if !ok {
			s = &hourStat{hour: h}
			byHour[h] = s
		}
		s.total++
		if c.Done {
			s.done++
		}
	}
	out := make([]hourStat, 0, len(byHour))
	for _, s := range byHour {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].hour < out[j].hour })
	return out
}

// activeHours ranks hours of day by completed count: top three and bottom
// three. Ties keep hour order.
func activeHours(completions []domain.Completion, loc *time.Location) ([]int, []int) {
	stats := hourStats(completions, loc)
	most := append([]hourStat(nil), stats...)
	sort.SliceStable(most, func(i, j int) bool { return most[i].done > most[j].done })
	least := append([]hourStat(nil), stats...)
	sort.SliceStable(least, func(i, j int) bool { return least[i].done < least[j].done })

	pick := func(s []hourStat) []int {
		out := []int{}
		for i := 0; i < len(s) && i < 3; i++ {
			out = append(out, s[i].hour)
		}
		return out
	}
	return pick(most), pick(least)
}
