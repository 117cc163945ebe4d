package synthesis

import (
	"fmt"

	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/futureyou/futureyou-os/internal/epistemic"
)

const (
	onTrackMinScore = 30
	middleMinScore  = -20
	activeStreakMin = 3
)

// Factor is one signed contribution to the execution score.
type Factor struct {
	Key      string
	Delta    int
	Evidence string
}

// ExecutionScore is the evidence trail behind an execution state.
type ExecutionScore struct {
	Score   int
	State   domain.ExecutionState
	Factors []Factor
}

// Evidence returns the factor evidence strings in scoring order.
func (s ExecutionScore) Evidence() []string {
	out := make([]string, len(s.Factors))
	for i, f := range s.Factors {
		out[i] = f.Evidence
	}
	return out
}

// ScoreExecution buckets the user into ON_TRACK, MIDDLE or SLIP from five
// independent factors. Engagement and slip risk only contribute when they
// move the score.
func ScoreExecution(m *domain.DeepUserModel) ExecutionScore {
	var s ExecutionScore
	add := func(key string, delta int, evidence string) {
		s.Score += delta
		s.Factors = append(s.Factors, Factor{Key: key, Delta: delta, Evidence: evidence})
	}

	rate := m.Behavior.Last7DaysRate
	switch {
	case rate >= 70:
		add("rate_7d", 30, fmt.Sprintf("Strong 7-day completion rate: %d%%", rate))
	case rate >= 50:
		add("rate_7d", 10, fmt.Sprintf("Moderate 7-day completion rate: %d%%", rate))
	case rate >= 30:
		add("rate_7d", -10, fmt.Sprintf("Low 7-day completion rate: %d%%", rate))
	default:
		add("rate_7d", -30, fmt.Sprintf("Very low 7-day completion rate: %d%%", rate))
	}

	days := m.Behavior.DaysSinceLastAction
	switch {
	case days == 0:
		add("recency", 20, "Active today")
	case days == 1:
		add("recency", 10, "Active yesterday")
	case days <= 3:
		add("recency", -10, fmt.Sprintf("%d days since last action", days))
	default:
		add("recency", -30, fmt.Sprintf("%d days since last action (ghost territory)", days))
	}

	streaks := countStreaks(m.Behavior.Habits, activeStreakMin)
	switch {
	case streaks >= 3:
		add("streaks", 20, fmt.Sprintf("%d active streaks", streaks))
	case streaks >= 1:
		add("streaks", 10, fmt.Sprintf("%d active streak(s)", streaks))
	default:
		add("streaks", -10, "No active streaks")
	}

	switch m.Patterns.EngagementPattern {
	case domain.EngagementDailyEngaged:
		add("engagement", 20, "Daily engaged pattern")
	case domain.EngagementGhost:
		add("engagement", -40, "Ghost pattern detected")
	case domain.EngagementFading:
		add("engagement", -20, "Fading engagement pattern")
	}

	switch m.Predictions.SlipRisk.Level {
	case domain.RiskCritical:
		add("slip_risk", -30, "Critical slip risk")
	case domain.RiskHigh:
		add("slip_risk", -15, "High slip risk")
	case domain.RiskLow:
		add("slip_risk", 15, "Low slip risk")
	}

	switch {
	case s.Score >= onTrackMinScore:
		s.State = domain.StateOnTrack
	case s.Score >= middleMinScore:
		s.State = domain.StateMiddle
	default:
		s.State = domain.StateSlip
	}
	return s
}

func countStreaks(habits []domain.HabitSummary, min int) int {
	n := 0
	for _, h := range habits {
		if h.Streak >= min {
			n++
		}
	}
	return n
}

// SelectQuestionFocus picks what the message should ask about. First match
// wins.
func SelectQuestionFocus(m *domain.DeepUserModel, state domain.ExecutionState) domain.QuestionFocus {
	switch state {
	case domain.StateOnTrack:
		if m.Behavior.LongestCurrentStreak >= 14 {
			return domain.FocusCelebrateProgress
		}
		return domain.FocusClarifyIntention
	case domain.StateSlip:
		if len(m.Psychology.RecurringExcuses) > 0 {
			return domain.FocusProbeExcuse
		}
		return domain.FocusExtractFear
	}
	if len(m.Contradictions.Active) > 0 {
		return domain.FocusConfrontPattern
	}
	return domain.FocusClarifyIntention
}

var phaseTones = map[domain.Phase]string{
	domain.PhaseObserver:  "Curious and supportive. Ask questions to understand. Do not assume you know them yet.",
	domain.PhaseArchitect: "Direct and structured. Reference specific patterns. Challenge inconsistencies.",
	domain.PhaseOracle:    "Calm and knowing. Use their own words. Ask questions about who they are becoming, not tactics.",
}

// PhaseTone returns the tone line for a phase.
func PhaseTone(p domain.Phase) string {
	if t, ok := phaseTones[p]; ok {
		return t
	}
	return phaseTones[domain.PhaseObserver]
}

// CalibrateVoice derives tone limits from shame sensitivity and state.
// Authority and data quality come from the epistemic context so the voice
// can never outrank what the engine allows.
func CalibrateVoice(m *domain.DeepUserModel, state domain.ExecutionState, ec epistemic.Context) VoiceCalibration {
	shame := m.Psychology.ShameSensitivity
	maxIntensity := shame.MaxMessageIntensity
	if maxIntensity <= 0 || maxIntensity > 10 {
		maxIntensity = domain.DefaultShameSensitivity().MaxMessageIntensity
	}

	current := min(5, maxIntensity)
	switch state {
	case domain.StateOnTrack:
		current = min(6, maxIntensity)
	case domain.StateSlip:
		if shame.Score > 0.6 {
			current = min(4, maxIntensity)
		} else {
			current = min(7, maxIntensity)
		}
	}

	var approach domain.ApproachStyle
	switch {
	case state == domain.StateOnTrack && m.Behavior.LongestCurrentStreak >= 7:
		approach = domain.ApproachCelebration
	case state == domain.StateSlip && shame.Score > 0.5:
		approach = domain.ApproachSupport
	case state == domain.StateMiddle:
		approach = domain.ApproachNeutral
	default:
		approach = domain.ApproachChallenge
	}

	v := VoiceCalibration{
		DataQuality:         ec.Quality,
		Authority:           ec.Authority,
		MaxIntensity:        maxIntensity,
		CurrentIntensity:    current,
		Approach:            approach,
		RequiresSoftLanding: shame.RequiresSoftLanding,
		PhaseTone:           PhaseTone(ec.Phase),
		AvoidPhrases:        []string{},
	}
	if shame.Score > 0.5 {
		v.AvoidPhrases = []string{"you failed", "you didn't", "again", "disappointed", "why can't you"}
		v.PreferPhrases = []string{"when you're ready", "no judgment", "let's", "we", "together"}
	} else {
		v.PreferPhrases = []string{"you know what to do", "prove it", "show up"}
	}
	return v
}
