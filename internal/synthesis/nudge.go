package synthesis

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/futureyou/futureyou-os/internal/domain"
)

// DefaultNudgeSeverity applies when a caller passes no severity.
const DefaultNudgeSeverity = 3

type NudgeTrigger struct {
	Type         string
	Reason       string
	Severity     int
	HabitContext string
}

// Nudge is the mid-day nudge projection.
type Nudge struct {
	*Base
	Trigger           NudgeTrigger
	Urgency           domain.RiskLevel
	AtStake           string
	RelevantPattern   string
	RecommendedAction string
	QuestionFocus     domain.QuestionFocus
}

func (s *Synthesizer) ForNudge(ctx context.Context, userID, trigger, reason string, severity int) (*Nudge, error) {
	m, base, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NudgeFrom(m, base, trigger, reason, severity), nil
}

// NudgeFrom extends a base projection for one nudge trigger. Severity is
// clamped to 1-5; zero means DefaultNudgeSeverity.
func NudgeFrom(m *domain.DeepUserModel, base *Base, trigger, reason string, severity int) *Nudge {
	if severity == 0 {
		severity = DefaultNudgeSeverity
	}
	severity = max(1, min(5, severity))

	urgency := Urgency(severity, base.CurrentRisk.Level)
	atStake := whatIsAtStake(m, trigger)
	return &Nudge{
		Base: base,
		Trigger: NudgeTrigger{
			Type:         trigger,
			Reason:       reason,
			Severity:     severity,
			HabitContext: atStake,
		},
		Urgency:           urgency,
		AtStake:           atStake,
		RelevantPattern:   relevantPattern(m, trigger, base.Now),
		RecommendedAction: recommendedAction(m, trigger, urgency),
		QuestionFocus:     SelectQuestionFocus(m, base.State()),
	}
}

// Urgency combines trigger severity with the current slip risk.
func Urgency(severity int, risk domain.RiskLevel) domain.RiskLevel {
	switch {
	case severity >= 5 || risk == domain.RiskCritical:
		return domain.RiskCritical
	case severity >= 4 || risk == domain.RiskHigh:
		return domain.RiskHigh
	case severity <= 2:
		return domain.RiskLow
	}
	return domain.RiskMedium
}

func whatIsAtStake(m *domain.DeepUserModel, trigger string) string {
	if strings.Contains(trigger, "streak") {
		if h := topStreakHabit(m.Behavior.Habits, 7); h != nil {
			return fmt.Sprintf("%d-day %s streak", h.Streak, h.Title)
		}
	}
	if strings.Contains(trigger, "high_importance") {
		important := make([]domain.HabitSummary, 0, len(m.Behavior.Habits))
		for _, h := range m.Behavior.Habits {
			if h.Importance >= 4 {
				important = append(important, h)
			}
		}
		sort.SliceStable(important, func(i, j int) bool { return important[i].Importance > important[j].Importance })
		if len(important) > 0 {
			return important[0].Title
		}
	}
	return ""
}

func relevantPattern(m *domain.DeepUserModel, trigger string, now time.Time) string {
	for _, d := range m.Patterns.DriftWindows {
		if d.HourOfDay == now.Hour() {
			return fmt.Sprintf("This is your %s drift window. You complete only %d%% of habits at this time", hourLabel(d.HourOfDay), d.CompletionRate)
		}
	}
	for _, d := range m.Patterns.DayOfWeekPatterns {
		if d.Day == now.Weekday() && d.IsWeakDay {
			return fmt.Sprintf("%s is historically your weakest day (%d%%)", d.DayName, d.CompletionRate)
		}
	}
	if top := m.Psychology.TopExcuse(); top != nil && strings.Contains(trigger, "drift") {
		return fmt.Sprintf("Watch for the %q excuse", top.Phrase)
	}
	return ""
}

func recommendedAction(m *domain.DeepUserModel, trigger string, urgency domain.RiskLevel) string {
	switch {
	case urgency == domain.RiskCritical:
		if h := topStreakHabit(m.Behavior.Habits, 7); h != nil {
			return fmt.Sprintf("Do %s right now to protect your %d-day streak", h.Title, h.Streak)
		}
		return "Do one thing right now, anything, to break the freeze"
	case urgency == domain.RiskHigh:
		return "Pick the smallest habit and do it in the next 5 minutes"
	case strings.Contains(trigger, "momentum"):
		return "What's the one thing you can knock out before noon?"
	case strings.Contains(trigger, "drift"):
		return "Step away from the distraction and do one habit"
	}
	return "Check in with your intentions for today"
}
