// Package synthesis projects a deep user model onto the context one
// generation call needs. Each projection is built per request and never
// stored.
package synthesis

import (
	"context"
	"time"

	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/futureyou/futureyou-os/internal/epistemic"
	"github.com/futureyou/futureyou-os/internal/memory"
)

const (
	reflectionRecallLimit = 10
	chatHistoryLimit      = 10
)

// ModelSource builds the deep user model. usermodel.Builder satisfies it.
type ModelSource interface {
	Build(ctx context.Context, userID string) (*domain.DeepUserModel, error)
}

// Recaller reads recent semantic memories. memory.Store satisfies it.
type Recaller interface {
	Recent(ctx context.Context, userID string, t domain.MemoryType, limit int) []memory.Hit
}

type EarnedTruth struct {
	Statement  string
	Confidence float64
	Evidence   string
	Category   string // behavior, pattern, psychology
}

type Hypothesis struct {
	Statement   string
	Confidence  float64
	Basis       string
	ShouldProbe bool
}

type VoiceCalibration struct {
	DataQuality         domain.DataQuality
	Authority           domain.Authority
	MaxIntensity        int
	CurrentIntensity    int
	Approach            domain.ApproachStyle
	RequiresSoftLanding bool
	PhaseTone           string
	AvoidPhrases        []string
	PreferPhrases       []string
}

type Reflection struct {
	Text   string
	DayKey string
	Source string
}

// Trend compares two completion rates.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// Base is shared by every message type.
type Base struct {
	UserID   string
	UserName string

	Execution            ExecutionScore
	CurrentRisk          domain.SlipRiskAssessment
	ActiveTriggerWarning *domain.TriggerChainWarning
	Voice                VoiceCalibration
	Epistemic            epistemic.Context

	EarnedTruths         []EarnedTruth
	Hypotheses           []Hypothesis
	Unknowns             []string
	ActiveContradictions []domain.Contradiction
	Recent               RecentData

	Phase        domain.Phase
	DaysInPhase  int
	DaysInSystem int
	Purpose      string
	Values       []string

	Shame           domain.ShameSensitivity
	Excuses         []domain.RecurringExcuse
	TimeWasters     []string
	ModelConfidence domain.ConfidenceLevel

	PastReflections []Reflection
	ReflectionCount int

	// Now is the synthesis time in the user's timezone.
	Now time.Time
}

// State is shorthand for the execution state.
func (b *Base) State() domain.ExecutionState { return b.Execution.State }

// Synthesizer builds per-message projections.
type Synthesizer struct {
	models ModelSource
	recall Recaller
	now    func() time.Time
}

type Option func(*Synthesizer)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Synthesizer) { s.now = now }
}

// New returns a Synthesizer. A nil recaller disables reflection recall.
func New(models ModelSource, recall Recaller, opts ...Option) *Synthesizer {
	if recall == nil {
		recall = memory.Disabled{}
	}
	s := &Synthesizer{models: models, recall: recall, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Synthesizer) load(ctx context.Context, userID string) (*domain.DeepUserModel, *Base, error) {
	m, err := s.models.Build(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	base := NewBase(m, s.now())
	base.PastReflections = s.reflections(ctx, m)
	return m, base, nil
}

func (s *Synthesizer) reflections(ctx context.Context, m *domain.DeepUserModel) []Reflection {
	hits := s.recall.Recent(ctx, m.Identity.UserID, domain.MemoryReflection, reflectionRecallLimit)
	out := make([]Reflection, 0, len(hits))
	for _, h := range hits {
		r := Reflection{Text: h.Text, DayKey: h.Metadata["dayKey"], Source: h.Metadata["source"]}
		if r.DayKey == "" {
			r.DayKey = domain.DateOf(h.CreatedAt, m.Recent.Location)
		}
		if r.Source == "" {
			r.Source = "unknown"
		}
		out = append(out, r)
	}
	return out
}

// NewBase computes the shared projection. It is pure: the same model and
// time always give the same result.
func NewBase(m *domain.DeepUserModel, now time.Time) *Base {
	loc := m.Recent.Location
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	ec := epistemic.Evaluate(EpistemicInput(m))
	exec := ScoreExecution(m)
	shame := m.Psychology.ShameSensitivity
	truths, demoted := EarnedTruths(m, ec)

	return &Base{
		UserID:               m.Identity.UserID,
		UserName:             m.Identity.Name,
		Execution:            exec,
		CurrentRisk:          m.Predictions.SlipRisk,
		ActiveTriggerWarning: m.ActiveTriggerChainWarning,
		Voice:                CalibrateVoice(m, exec.State, ec),
		Epistemic:            ec,
		EarnedTruths:         truths,
		Hypotheses:           append(demoted, Hypotheses(m)...),
		Unknowns:             Unknowns(m),
		ActiveContradictions: m.Contradictions.Active,
		Recent:               BuildRecentData(m, now),
		Phase:                m.Arc.Phase,
		DaysInPhase:          m.Arc.DaysInPhase,
		DaysInSystem:         m.Identity.DaysInSystem,
		Purpose:              m.Identity.Purpose,
		Values:               m.Identity.Values,
		Shame:                shame,
		Excuses:              m.Psychology.RecurringExcuses,
		TimeWasters:          m.Psychology.TimeWasters,
		ModelConfidence:      m.ModelConfidence,
		ReflectionCount:      m.Volume.ReflectionCount,
		PastReflections:      []Reflection{},
		Now:                  now,
	}
}

// EpistemicInput maps the model onto the epistemic engine's input.
func EpistemicInput(m *domain.DeepUserModel) epistemic.Input {
	in := epistemic.Input{
		DaysInSystem:     m.Identity.DaysInSystem,
		TotalEvents:      m.Volume.TotalEvents,
		TotalCompletions: m.Volume.TotalCompletions,
		ReflectionCount:  m.Volume.ReflectionCount,
	}
	for _, c := range m.Recent.CompletionsOn(m.Recent.Today) {
		if !c.Done {
			continue
		}
		if h := m.Behavior.HabitByID(c.HabitID); h != nil {
			in.TodayCompletions = append(in.TodayCompletions, h.Title)
		}
	}
	for _, h := range m.Behavior.Habits {
		if h.Streak > 0 {
			in.Streaks = append(in.Streaks, epistemic.StreakFact{Title: h.Title, Days: h.Streak})
		}
	}
	return in
}
