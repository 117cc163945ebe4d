package usermodel

import (
	"fmt"
	"sort"
	"time"

	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/futureyou/futureyou-os/internal/epistemic"
)

func buildIdentity(u *domain.User, f *domain.UserFacts, now time.Time) domain.UserIdentity {
	tz := u.Timezone
	if tz == "" {
		tz = "UTC"
	}
	id := domain.UserIdentity{
		UserID:       u.ID,
		Name:         u.DisplayName(),
		Email:        u.Email,
		Timezone:     tz,
		Values:       []string{},
		DaysInSystem: u.DaysInSystem(now),
		CreatedAt:    u.CreatedAt,
	}
	if f != nil {
		id.Age = f.Age
		id.Purpose = f.Purpose
		id.Vision = f.Vision
		id.BurningQuestion = f.BurningQuestion
		id.DiscoveryCompleted = f.DiscoveryCompleted
		if f.Values != nil {
			id.Values = f.Values
		}
	}
	return id
}

// BuildContradictions splits stored contradictions by status. The primary
// contradiction is the most severe active one; ties keep stored order.
func BuildContradictions(stored []domain.Contradiction) domain.ContradictionLayer {
	layer := domain.ContradictionLayer{
		Active:   []domain.Contradiction{},
		Resolved: []domain.Contradiction{},
	}
	for _, c := range stored {
		switch c.Status {
		case domain.ContradictionActive:
			layer.Active = append(layer.Active, c)
		case domain.ContradictionResolved:
			layer.Resolved = append(layer.Resolved, c)
		}
	}
	sort.SliceStable(layer.Active, func(i, j int) bool {
		return layer.Active[i].Severity > layer.Active[j].Severity
	})
	if len(layer.Active) > 0 {
		primary := layer.Active[0]
		layer.Primary = &primary
	}
	return layer
}

// BuildPsychology combines learned inferences with stated facts.
func BuildPsychology(learned *domain.LearnedUserModel, f *domain.UserFacts) domain.UserPsychology {
	p := domain.UserPsychology{
		ShameSensitivity:   domain.DefaultShameSensitivity(),
		RecurringExcuses:   []domain.RecurringExcuse{},
		TimeWasters:        []string{},
		LimitingNarratives: []domain.LimitingNarrative{},
		MotivationStyle:    domain.MotivationUnknown,
	}
	if learned != nil {
		if learned.ShameSensitivity != nil {
			p.ShameSensitivity = *learned.ShameSensitivity
		}
		if learned.Excuses != nil {
			p.RecurringExcuses = learned.Excuses
		}
		if learned.Narratives != nil {
			p.LimitingNarratives = learned.Narratives
		}
	}
	if f != nil {
		if f.TimeWasters != nil {
			p.TimeWasters = f.TimeWasters
		}
		if f.MotivationStyle != "" {
			p.MotivationStyle = f.MotivationStyle
		}
	}
	if p.MotivationStyle == domain.MotivationUnknown && learned != nil && learned.Fingerprint != nil {
		if s := learned.Fingerprint.MotivationProfile.Primary; s != "" {
			p.MotivationStyle = s
		}
	}
	return p
}

// BuildPredictions scores slip, engagement and per-streak risk. Probabilities
// are accumulated in tenths so bucket boundaries are exact.
func BuildPredictions(b domain.UserBehavior, p domain.UserPsychology) domain.UserPredictions {
	tenths := 2
	if b.Last7DaysRate < 40 {
		tenths += 3
	}
	if b.Last30DaysRate < 40 {
		tenths += 2
	}
	if b.DaysSinceLastAction >= 2 {
		tenths += 3
	}
	if len(p.RecurringExcuses) >= 3 {
		tenths++
	}
	slipP := clampTenths(tenths)

	eta := 24
	if b.DaysSinceLastAction >= 2 {
		eta = 0
	}
	slip := domain.SlipRiskAssessment{
		Probability: slipP,
		Level:       domain.RiskLevelFromProbability(slipP),
		Factors: []domain.RiskFactor{
			{
				Key:         "recentCompletion",
				Description: fmt.Sprintf("7-day completion rate at %d%%", b.Last7DaysRate),
				Weight:      0.4,
				Direction:   direction(b.Last7DaysRate < 40),
			},
			{
				Key:         "daysSinceLastAction",
				Description: fmt.Sprintf("%d days since last action", b.DaysSinceLastAction),
				Weight:      0.3,
				Direction:   direction(b.DaysSinceLastAction >= 2),
			},
		},
		PrimaryFactors:      []string{"recentCompletion", "daysSinceLastAction"},
		EstimatedTimeToSlip: &eta,
		Trend:               "stable",
	}

	engTenths := 1
	if b.Last30DaysRate < 50 {
		engTenths += 2
	}
	if b.DaysSinceLastAction >= 3 {
		engTenths += 3
	}
	engP := clampTenths(engTenths)
	engagement := domain.SlipRiskAssessment{
		Probability:    engP,
		Level:          domain.RiskLevelFromProbability(engP),
		Factors:        []domain.RiskFactor{},
		PrimaryFactors: []string{},
		Trend:          "stable",
	}

	return domain.UserPredictions{
		SlipRisk:       slip,
		EngagementRisk: engagement,
		StreakRisks:    streakRisks(b.Habits),
	}
}

func streakRisks(habits []domain.HabitSummary) []domain.StreakRisk {
	out := []domain.StreakRisk{}
	for _, h := range habits {
		if h.Streak < 5 {
			continue
		}
		r := domain.StreakRisk{
			HabitID:    h.ID,
			HabitTitle: h.Title,
			Streak:     h.Streak,
			RiskLevel:  domain.RiskLow,
			Reason:     "Healthy streak",
		}
		switch {
		case h.CompletionRate7d < 50:
			r.RiskLevel = domain.RiskHigh
			r.Reason = "Very low recent completion threatens this streak"
		case h.CompletionRate7d < 70:
			r.RiskLevel = domain.RiskMedium
			r.Reason = "7-day completion is soft for this streak"
		}
		out = append(out, r)
	}
	return out
}

func clampTenths(t int) float64 {
	if t < 0 {
		t = 0
	}
	if t > 10 {
		t = 10
	}
	return float64(t) / 10
}

func direction(up bool) domain.RiskDirection {
	if up {
		return domain.DirectionUp
	}
	return domain.DirectionDown
}

var nextMilestones = map[domain.Phase]string{
	domain.PhaseObserver:  "Complete 14 days with at least 50% completion",
	domain.PhaseArchitect: "Hold 70%+ completion for 30 days",
	domain.PhaseOracle:    "Sustain your system while evolving your identity",
}

// BuildArc places the user on the observer/architect/oracle arc.
func BuildArc(daysInSystem int, learned *domain.LearnedUserModel) domain.UserArc {
	phase := epistemic.PhaseForDays(daysInSystem)
	inPhase := daysInSystem - epistemic.PhaseStartDay(phase)
	if inPhase < 0 {
		inPhase = 0
	}
	arc := domain.UserArc{
		Phase:         phase,
		DaysInPhase:   inPhase,
		Milestones:    []domain.ArcMilestone{},
		NextMilestone: nextMilestones[phase],
	}
	if learned != nil && learned.Milestones != nil {
		arc.Milestones = learned.Milestones
	}
	return arc
}

// TriggerLookback bounds how far back events can match a chain's steps.
const TriggerLookback = 48 * time.Hour

const defaultStepWindow = 24 * time.Hour

// ActiveTriggerChain returns a warning for the learned chain whose leading
// steps best match the user's events inside TriggerLookback, or nil. A chain
// needs at least two matched steps to warn. Events must be ascending.
func ActiveTriggerChain(learned *domain.LearnedUserModel, events []domain.Event, now time.Time) *domain.TriggerChainWarning {
	if learned == nil || len(learned.TriggerChains) == 0 {
		return nil
	}
	cutoff := now.Add(-TriggerLookback)
	var recent []domain.Event
	for _, e := range events {
		if !e.Timestamp.Before(cutoff) && !e.Timestamp.After(now) {
			recent = append(recent, e)
		}
	}
	if len(recent) < 2 {
		return nil
	}

	var (
		best      *domain.TriggerChainWarning
		bestRatio float64
		bestConf  float64
	)
	for _, chain := range learned.TriggerChains {
		total := len(chain.Pattern)
		if total < 2 {
			continue
		}
		stage, lastAt := matchLeadingSteps(chain.Pattern, recent)
		if stage < 2 {
			continue
		}
		ratio := float64(stage) / float64(total)
		if best != nil && (ratio < bestRatio || (ratio == bestRatio && chain.Confidence <= bestConf)) {
			continue
		}
		best = &domain.TriggerChainWarning{
			ChainID:             chain.ID,
			ChainName:           chain.Name,
			CurrentStage:        stage,
			TotalStages:         total,
			EstimatedRisk:       chainRisk(chain.SlipProbability, ratio),
			NextEventExpectedBy: nextExpected(chain, stage, lastAt),
		}
		bestRatio, bestConf = ratio, chain.Confidence
	}
	return best
}

// matchLeadingSteps walks the events once, advancing through the pattern
// whenever the next step's event type appears inside its window.
func matchLeadingSteps(pattern []domain.TriggerChainStep, events []domain.Event) (int, time.Time) {
	stage := 0
	var lastAt time.Time
	for _, e := range events {
		if stage == len(pattern) {
			break
		}
		step := pattern[stage]
		if e.Type != step.EventType {
			continue
		}
		if stage > 0 && e.Timestamp.Sub(lastAt) > stepWindow(step) {
			continue
		}
		stage++
		lastAt = e.Timestamp
	}
	return stage, lastAt
}

func stepWindow(s domain.TriggerChainStep) time.Duration {
	if s.WindowHours <= 0 {
		return defaultStepWindow
	}
	return time.Duration(s.WindowHours) * time.Hour
}

func chainRisk(slipProbability, progress float64) domain.RiskLevel {
	level := domain.RiskLevelFromProbability(slipProbability * progress)
	if level == domain.RiskLow {
		return domain.RiskMedium
	}
	return level
}

func nextExpected(chain domain.TriggerChain, stage int, lastAt time.Time) *time.Time {
	var t time.Time
	switch {
	case stage < len(chain.Pattern):
		t = lastAt.Add(stepWindow(chain.Pattern[stage]))
	case chain.AvgTimeToSlipHours > 0:
		t = lastAt.Add(time.Duration(chain.AvgTimeToSlipHours * float64(time.Hour)))
	default:
		return nil
	}
	return &t
}
