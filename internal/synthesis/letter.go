package synthesis

import (
	"context"
	"fmt"
	"time"

	"github.com/futureyou/futureyou-os/internal/behavior"
	"github.com/futureyou/futureyou-os/internal/domain"
)

const strongWeekRate = 70

type WeekSummary struct {
	TotalCompleted int
	TotalMissed    int
	OverallRate    int
	BestDay        string
	WorstDay       string
	Trend          Trend
}

type WeekOverWeek struct {
	ThisWeek    int
	LastWeek    int
	Change      int
	Description string
}

type ArcProgress struct {
	MilestonesThisWeek []string
	NextMilestone      string
}

// Letter is the weekly letter projection.
type Letter struct {
	*Base
	Week           WeekSummary
	WeekOverWeek   WeekOverWeek
	Arc            ArcProgress
	TruthToDeliver string
	NextWeekFocus  string
}

func (s *Synthesizer) ForWeeklyLetter(ctx context.Context, userID string) (*Letter, error) {
	m, base, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return LetterFrom(m, base), nil
}

// LetterFrom extends a base projection with the week in review.
func LetterFrom(m *domain.DeepUserModel, base *Base) *Letter {
	week := weekSummary(m, base.Now)
	return &Letter{
		Base:           base,
		Week:           week,
		WeekOverWeek:   weekOverWeek(m, base.Now),
		Arc:            arcProgress(m, base.Now),
		TruthToDeliver: truthToDeliver(m, week),
		NextWeekFocus:  nextWeekFocus(m, week),
	}
}

func weekSummary(m *domain.DeepUserModel, now time.Time) WeekSummary {
	w := WeekSummary{BestDay: "Unknown", WorstDay: "Unknown"}
	done, total := countRange(m.Recent.Completions, dateOffset(now, -6), m.Recent.Today)
	w.TotalCompleted, w.TotalMissed = done, total-done
	w.OverallRate = behavior.Rate(done, total)
	if d := m.Patterns.StrongestDay; d != nil {
		w.BestDay = d.DayName
	}
	if d := m.Patterns.WeakestDay; d != nil {
		w.WorstDay = d.DayName
	}
	w.Trend = compareRates(m.Behavior.Last7DaysRate, m.Behavior.Last30DaysRate)
	return w
}

func weekOverWeek(m *domain.DeepUserModel, now time.Time) WeekOverWeek {
	thisDone, thisTotal := countRange(m.Recent.Completions, dateOffset(now, -6), m.Recent.Today)
	lastDone, lastTotal := countRange(m.Recent.Completions, dateOffset(now, -13), dateOffset(now, -7))
	w := WeekOverWeek{
		ThisWeek: behavior.Rate(thisDone, thisTotal),
		LastWeek: behavior.Rate(lastDone, lastTotal),
	}
	w.Change = w.ThisWeek - w.LastWeek
	w.Description = DescribeChange(w.Change)
	return w
}

// DescribeChange labels a week-over-week change in percentage points.
func DescribeChange(change int) string {
	switch {
	case change > 15:
		return "Significant improvement"
	case change > 5:
		return "Slight improvement"
	case change < -15:
		return "Significant decline"
	case change < -5:
		return "Slight decline"
	}
	return "Holding steady"
}

func arcProgress(m *domain.DeepUserModel, now time.Time) ArcProgress {
	a := ArcProgress{MilestonesThisWeek: []string{}, NextMilestone: m.Arc.NextMilestone}
	cutoff := now.AddDate(0, 0, -7)
	for _, ms := range m.Arc.Milestones {
		if !ms.AchievedAt.Before(cutoff) {
			a.MilestonesThisWeek = append(a.MilestonesThisWeek, ms.Description)
		}
	}
	return a
}

func truthToDeliver(m *domain.DeepUserModel, week WeekSummary) string {
	if week.Trend == TrendDeclining && m.Contradictions.Primary != nil {
		return m.Contradictions.Primary.Description
	}
	for _, n := range m.Psychology.LimitingNarratives {
		if !n.Challenged {
			return fmt.Sprintf("You keep saying %q. Is it true, or is it a story you're telling yourself?", n.Narrative)
		}
	}
	if fp := fingerprint(m); fp != nil && fp.CelebrationTrap.Type == domain.CelebrationCoast && week.Trend == TrendDeclining {
		return "You tend to ease up after progress. This week might be that pattern repeating."
	}
	if week.Trend == TrendImproving && week.OverallRate >= strongWeekRate {
		return "Your consistency is becoming who you are, not just what you do."
	}
	return ""
}

func nextWeekFocus(m *domain.DeepUserModel, week WeekSummary) string {
	switch {
	case week.Trend == TrendDeclining:
		return "Rebuild momentum with small wins. Don't try to fix everything at once."
	case m.Patterns.WeakestDay != nil:
		return fmt.Sprintf("Own %s. It has been your leak.", m.Patterns.WeakestDay.DayName)
	case len(m.Patterns.AvoidedHabits) > 0:
		return "Face the habit you've been avoiding"
	case week.Trend == TrendImproving:
		return "Keep the momentum and don't let success turn into complacency"
	}
	return ""
}
