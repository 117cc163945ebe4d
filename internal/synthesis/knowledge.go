package synthesis

import (
	"fmt"
	"strings"

	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/futureyou/futureyou-os/internal/epistemic"
)

const recurringExcuseMin = 3

// EarnedTruths lists claims computed directly from stored data. Pattern and
// timing truths the epistemic context does not permit yet come back as
// hypotheses instead, so they can only be asked about.
func EarnedTruths(m *domain.DeepUserModel, ec epistemic.Context) ([]EarnedTruth, []Hypothesis) {
	truths := []EarnedTruth{}
	var demoted []Hypothesis

	b := m.Behavior
	if b.Last7DaysRate > 0 {
		truths = append(truths, EarnedTruth{
			Statement:  fmt.Sprintf("Your 7-day completion rate is %d%%", b.Last7DaysRate),
			Confidence: 1.0,
			Evidence:   "Direct calculation from completion data",
			Category:   "behavior",
		})
	}
	if b.LongestCurrentStreak > 0 {
		stmt := fmt.Sprintf("Your longest current streak is %d days", b.LongestCurrentStreak)
		if b.LongestStreakHabit != "" {
			stmt += fmt.Sprintf(" (%s)", b.LongestStreakHabit)
		}
		truths = append(truths, EarnedTruth{
			Statement:  stmt,
			Confidence: 1.0,
			Evidence:   "Consecutive completion rows",
			Category:   "behavior",
		})
	}

	if w := m.Patterns.WeakestDay; w != nil {
		if ec.CanClaimPatterns {
			truths = append(truths, EarnedTruth{
				Statement:  fmt.Sprintf("%s is your weakest day (%d%% completion)", w.DayName, w.CompletionRate),
				Confidence: 0.8,
				Evidence:   fmt.Sprintf("Based on %d days of data", m.Identity.DaysInSystem),
				Category:   "pattern",
			})
		} else {
			demoted = append(demoted, Hypothesis{
				Statement:   fmt.Sprintf("%s may be a harder day (%d%% completion so far)", w.DayName, w.CompletionRate),
				Confidence:  0.4,
				Basis:       "Too little history to call it a pattern",
				ShouldProbe: true,
			})
		}
	}

	if len(m.Patterns.DriftWindows) > 0 {
		d := m.Patterns.DriftWindows[0]
		if ec.CanClaimTiming {
			truths = append(truths, EarnedTruth{
				Statement:  fmt.Sprintf("You tend to drift around %s (%d%% completion)", hourLabel(d.HourOfDay), d.CompletionRate),
				Confidence: 0.7,
				Evidence:   fmt.Sprintf("Observed %d times", d.SampleSize),
				Category:   "pattern",
			})
		} else {
			demoted = append(demoted, Hypothesis{
				Statement:   fmt.Sprintf("Around %s may be a hard time of day", hourLabel(d.HourOfDay)),
				Confidence:  0.3,
				Basis:       fmt.Sprintf("Only %d samples", d.SampleSize),
				ShouldProbe: true,
			})
		}
	}

	if top := m.Psychology.TopExcuse(); top != nil && top.Frequency >= recurringExcuseMin {
		truths = append(truths, EarnedTruth{
			Statement:  fmt.Sprintf("%q is a recurring excuse (used %d times)", top.Phrase, top.Frequency),
			Confidence: 0.7,
			Evidence:   "Detected in conversations",
			Category:   "psychology",
		})
	}
	if tw := m.Psychology.TimeWasters; len(tw) > 0 {
		truths = append(truths, EarnedTruth{
			Statement:  "Your main time wasters: " + strings.Join(tw[:min(3, len(tw))], ", "),
			Confidence: 0.6,
			Evidence:   "Stated by you or detected in conversations",
			Category:   "psychology",
		})
	}
	return truths, demoted
}

// Hypotheses lists unverified inferences worth probing.
func Hypotheses(m *domain.DeepUserModel) []Hypothesis {
	out := []Hypothesis{}
	if c := m.Contradictions.Primary; c != nil {
		out = append(out, Hypothesis{
			Statement:   c.Description,
			Confidence:  0.5,
			Basis:       c.Evidence,
			ShouldProbe: true,
		})
	}
	if n := m.Psychology.LimitingNarratives; len(n) > 0 {
		out = append(out, Hypothesis{
			Statement:   fmt.Sprintf("You may believe %q, and it could be holding you back", n[0].Narrative),
			Confidence:  0.4,
			Basis:       fmt.Sprintf("Used %d times", n[0].Frequency),
			ShouldProbe: !n[0].Challenged,
		})
	}
	if fp := fingerprint(m); fp != nil && fp.RecoveryStyle.Type == domain.RecoverySudden && fp.RecoveryStyle.CrashRiskAfterRestart > 0.5 {
		basis := strings.Join(fp.RecoveryStyle.Evidence, "; ")
		if basis == "" {
			basis = "Observed pattern"
		}
		out = append(out, Hypothesis{
			Statement:   "You tend to go all-in after breaks, then crash. Gradual restarts might work better.",
			Confidence:  0.6,
			Basis:       basis,
			ShouldProbe: true,
		})
	}
	if avoided := m.Patterns.AvoidedHabits; len(avoided) > 0 {
		out = append(out, Hypothesis{
			Statement:   "You may be avoiding certain habits because they feel harder or matter more",
			Confidence:  0.5,
			Basis:       fmt.Sprintf("%d habits consistently missed", len(avoided)),
			ShouldProbe: true,
		})
	}
	return out
}

// Unknowns lists open questions the coach should try to answer.
func Unknowns(m *domain.DeepUserModel) []string {
	out := []string{}
	if m.ModelConfidence == domain.ConfidenceInsufficient || m.ModelConfidence == domain.ConfidenceLow {
		out = append(out, "There is not enough data to understand their patterns yet")
	}
	if m.Identity.Purpose == "" {
		out = append(out, "What is driving you to build these habits?")
	}
	if m.Psychology.MotivationStyle == "" || m.Psychology.MotivationStyle == domain.MotivationUnknown {
		out = append(out, "What actually motivates you: progress, fear, identity, or something else?")
	}
	if m.Patterns.EngagementPattern == domain.EngagementSporadic {
		out = append(out, "What decides whether you show up on a given day?")
	}
	if m.Behavior.DaysSinceLastAction > 2 {
		out = append(out, "What pulled you away?")
	}
	return out
}

func fingerprint(m *domain.DeepUserModel) *domain.BehavioralFingerprint {
	if m.Learned == nil {
		return nil
	}
	return m.Learned.Fingerprint
}

func hourLabel(h int) string {
	return fmt.Sprintf("%02d:00", h)
}

// habitTitles maps habit ids to titles, skipping unknown ids.
func habitTitles(b *domain.UserBehavior, ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if h := b.HabitByID(id); h != nil {
			out = append(out, h.Title)
		}
	}
	return out
}
