package behavior

import (
	"fmt"
	"math"
	"time"

	"github.com/futureyou/futureyou-os/internal/domain"
)

const (
	strongDayRate     = 70
	weakDayRate       = 40
	minDaySample      = 5
	driftMaxRate      = 50
	minDriftSample    = 5
	avoidedMaxRate    = 20
	warriorMarginRate = 15
)

func buildPatterns(b domain.UserBehavior, completions []domain.Completion, now time.Time, loc *time.Location) domain.UserPatterns {
	from30, to := window(now, loc, 30)
	recent := make([]domain.Completion, 0, len(completions))
	for _, c := range completions {
		if inWindow(c.Date, from30, to) {
			recent = append(recent, c)
		}
	}

	dow := DayOfWeekPatterns(recent)
	p := domain.UserPatterns{
		DriftWindows:      DriftWindows(recent, loc),
		DayOfWeekPatterns: dow,
		AvoidedHabits:     AvoidedHabits(b.Habits),
		ConsistencyScore:  ConsistencyScore(b),
	}
	if len(recent) > 0 {
		p.StrongestDay, p.WeakestDay = strongestAndWeakest(dow)
	}
	p.EngagementPattern = ClassifyEngagement(b, dow)
	return p
}

// DayOfWeekPatterns returns one entry per weekday, Sunday first.
func DayOfWeekPatterns(completions []domain.Completion) []domain.DayOfWeekPattern {
	var done, total [7]int
	for _, c := range completions {
		d, err := time.Parse(domain.DateLayout, c.Date)
		if err != nil {
			continue
		}
		wd := d.Weekday()
		total[wd]++
		if c.Done {
			done[wd]++
		}
	}

	out := make([]domain.DayOfWeekPattern, 7)
	for i := 0; i < 7; i++ {
		rate := Rate(done[i], total[i])
		out[i] = domain.DayOfWeekPattern{
			Day:            time.Weekday(i),
			DayName:        time.Weekday(i).String(),
			CompletionRate: rate,
			AvgCompletions: float64(total[i]) / 4,
			IsStrongDay:    rate >= strongDayRate && total[i] >= minDaySample,
			IsWeakDay:      rate > 0 && rate <= weakDayRate && total[i] >= minDaySample,
		}
	}
	return out
}

// strongestAndWeakest picks the first day with the highest rate and the
// first day with the lowest non-zero rate.
func strongestAndWeakest(dow []domain.DayOfWeekPattern) (*domain.DayOfWeekPattern, *domain.DayOfWeekPattern) {
	var strongest, weakest *domain.DayOfWeekPattern
	for i := range dow {
		d := dow[i]
		if strongest == nil || d.CompletionRate > strongest.CompletionRate {
			cp := d
			strongest = &cp
		}
		if d.CompletionRate > 0 && (weakest == nil || d.CompletionRate < weakest.CompletionRate) {
			cp := d
			weakest = &cp
		}
	}
	return strongest, weakest
}

// DriftWindows reports hours of day with a completion rate at or below 50%
// over at least five samples, in hour order.
func DriftWindows(completions []domain.Completion, loc *time.Location) []domain.DriftWindow {
	out := []domain.DriftWindow{}
	for _, s := range hourStats(completions, loc) {
		if s.total < minDriftSample {
			continue
		}
		rate := Rate(s.done, s.total)
		if rate > driftMaxRate {
			continue
		}
		out = append(out, domain.DriftWindow{
			HourOfDay:      s.hour,
			CompletionRate: rate,
			SampleSize:     s.total,
			Description:    fmt.Sprintf("Low-completion window at %02d:00", s.hour),
		})
	}
	return out
}

// AvoidedHabits lists habits that were started at least once but sit at or
// below 20% over thirty days.
func AvoidedHabits(habits []domain.HabitSummary) []string {
	out := []string{}
	for _, h := range habits {
		if h.CompletionRate30d <= avoidedMaxRate && h.LastTick != nil {
			out = append(out, h.ID)
		}
	}
	return out
}

// ConsistencyScore blends the 30- and 7-day rates with a streak bonus,
// clamped to [0,100].
func ConsistencyScore(b domain.UserBehavior) int {
	raw := float64(b.Last30DaysRate)*0.6 + float64(b.Last7DaysRate)*0.3
	if b.LongestCurrentStreak > 0 {
		raw += 10
	}
	return clamp(int(math.Round(raw)), 0, 100)
}

// WeekdayWeekendAverages returns the mean completion rate over Monday-Friday
// and over Saturday-Sunday. An empty group averages to 0.
func WeekdayWeekendAverages(dow []domain.DayOfWeekPattern) (weekday, weekend float64) {
	var wdSum, weSum float64
	var wdN, weN int
	for _, d := range dow {
		if d.Day == time.Saturday || d.Day == time.Sunday {
			weSum += float64(d.CompletionRate)
			weN++
		} else {
			wdSum += float64(d.CompletionRate)
			wdN++
		}
	}
	if wdN > 0 {
		weekday = wdSum / float64(wdN)
	}
	if weN > 0 {
		weekend = weSum / float64(weN)
	}
	return weekday, weekend
}

// ClassifyEngagement applies the ordered engagement rules. Ghosting and
// new-user status are checked before any rate, since rates mean nothing
// without recent data.
func ClassifyEngagement(b domain.UserBehavior, dow []domain.DayOfWeekPattern) domain.EngagementPattern {
	if b.DaysSinceLastAction >= 3 {
		return domain.EngagementGhost
	}
	if b.TotalHabits == 0 {
		return domain.EngagementNewUser
	}

	avg := float64(b.Last30DaysRate)
	weekday, weekend := WeekdayWeekendAverages(dow)

	switch {
	case avg >= 60 && b.DaysSinceLastAction <= 1:
		return domain.EngagementDailyEngaged
	case weekend >= weekday+warriorMarginRate:
		return domain.EngagementWeekendWarrior
	case weekday >= weekend+warriorMarginRate:
		return domain.EngagementWeekdayWarrior
	case avg <= 20:
		return domain.EngagementSporadic
	case b.Last7DaysRate < b.Last30DaysRate-15:
		return domain.EngagementFading
	}
	return domain.EngagementSporadic
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
