// Package epistemic decides what the coach is allowed to claim about a user.
// The result is a pure function of elapsed time and data volume.
package epistemic

import (
	"fmt"

	"github.com/futureyou/futureyou-os/internal/domain"
)

const (
	ArchitectStartDay = 14
	OracleStartDay    = 60

	developingVolume    = 15
	richVolume          = 50
	comprehensiveVolume = 100
	comprehensiveRefl   = 10

	timingVolume  = 30
	historyVolume = 20

	verifiedStreakDays = 3
)

// Confidence caps how assertive generated text may sound.
type Confidence string

const (
	ConfidenceTentative     Confidence = "tentative"
	ConfidenceObservational Confidence = "observational"
	ConfidenceConfident     Confidence = "confident"
	ConfidenceCertain       Confidence = "certain"
)

// StreakFact is an active streak on one habit.
type StreakFact struct {
	Title string
	Days  int
}

type Input struct {
	DaysInSystem     int
	TotalEvents      int
	TotalCompletions int
	ReflectionCount  int
	// TodayCompletions holds titles of habits completed today.
	TodayCompletions []string
	Streaks          []StreakFact
}

type Permissions struct {
	CanClaimPatterns          bool
	CanClaimTiming            bool
	CanClaimPredictions       bool
	CanClaimHistory           bool
	CanUseDirectConfrontation bool
}

type VerifiedFact struct {
	Type     string
	Content  string
	Evidence string
}

// Context is the evaluated epistemic state for one user at one moment.
type Context struct {
	DaysInSystem     int
	Phase            domain.Phase
	Quality          domain.DataQuality
	Volume           int
	TotalEvents      int
	TotalCompletions int
	ReflectionCount  int
	Permissions
	Authority     domain.Authority
	MaxConfidence Confidence
	VerifiedFacts []VerifiedFact
	Rules         string
	BannedClaims  []string
}

// Evaluate computes the epistemic context. Zero data is not an error: it
// yields the most conservative context.
func Evaluate(in Input) Context {
	phase := PhaseForDays(in.DaysInSystem)
	volume := in.TotalEvents + in.TotalCompletions
	quality := QualityFor(volume, in.ReflectionCount)

	c := Context{
		DaysInSystem:     in.DaysInSystem,
		Phase:            phase,
		Quality:          quality,
		Volume:           volume,
		TotalEvents:      in.TotalEvents,
		TotalCompletions: in.TotalCompletions,
		ReflectionCount:  in.ReflectionCount,
		Permissions: Permissions{
			CanClaimPatterns:    phase != domain.PhaseObserver && quality.Rank() >= domain.QualityDeveloping.Rank(),
			CanClaimTiming:      volume >= timingVolume,
			CanClaimPredictions: phase == domain.PhaseOracle && quality == domain.QualityComprehensive,
			CanClaimHistory:     phase != domain.PhaseObserver && volume >= historyVolume,
			CanUseDirectConfrontation: phase == domain.PhaseOracle ||
				(phase == domain.PhaseArchitect && quality.Rank() >= domain.QualityRich.Rank()),
		},
		Authority:     domain.MinAuthority(TimeGate(phase), VolumeGate(quality)),
		MaxConfidence: maxConfidence(phase, quality),
		VerifiedFacts: verifiedFacts(in),
		Rules:         rulesFor(phase, in.DaysInSystem),
		BannedClaims:  bannedClaims(phase, quality),
	}
	return c
}

// PhaseForDays maps days in system to a phase: observer [0,14),
// architect [14,60), oracle [60,∞).
func PhaseForDays(days int) domain.Phase {
	switch {
	case days >= OracleStartDay:
		return domain.PhaseOracle
	case days >= ArchitectStartDay:
		return domain.PhaseArchitect
	}
	return domain.PhaseObserver
}

// PhaseStartDay is the first day of phase p.
func PhaseStartDay(p domain.Phase) int {
	switch p {
	case domain.PhaseArchitect:
		return ArchitectStartDay
	case domain.PhaseOracle:
		return OracleStartDay
	}
	return 0
}

// QualityFor maps event volume and reflection count to a data-quality tier.
func QualityFor(volume, reflections int) domain.DataQuality {
	switch {
	case volume >= comprehensiveVolume && reflections >= comprehensiveRefl:
		return domain.QualityComprehensive
	case volume >= richVolume:
		return domain.QualityRich
	case volume >= developingVolume:
		return domain.QualityDeveloping
	}
	return domain.QualitySparse
}

// TimeGate is the highest authority elapsed time alone allows.
func TimeGate(p domain.Phase) domain.Authority {
	switch p {
	case domain.PhaseOracle:
		return domain.AuthorityDeep
	case domain.PhaseArchitect:
		return domain.AuthorityEarned
	}
	return domain.AuthorityHumble
}

// VolumeGate is the highest authority data volume alone allows.
func VolumeGate(q domain.DataQuality) domain.Authority {
	switch q {
	case domain.QualityComprehensive:
		return domain.AuthorityDeep
	case domain.QualityRich:
		return domain.AuthorityEarned
	case domain.QualityDeveloping:
		return domain.AuthorityGrowing
	}
	return domain.AuthorityHumble
}

func maxConfidence(p domain.Phase, q domain.DataQuality) Confidence {
	switch p {
	case domain.PhaseOracle:
		switch q {
		case domain.QualityComprehensive:
			return ConfidenceCertain
		case domain.QualityRich:
			return ConfidenceConfident
		}
		return ConfidenceObservational
	case domain.PhaseArchitect:
		return ConfidenceObservational
	}
	return ConfidenceTentative
}

func verifiedFacts(in Input) []VerifiedFact {
	facts := make([]VerifiedFact, 0, len(in.TodayCompletions)+len(in.Streaks)+1)
	for _, title := range in.TodayCompletions {
		facts = append(facts, VerifiedFact{
			Type:     "completion",
			Content:  fmt.Sprintf("Completed %q today", title),
			Evidence: "completion row dated today",
		})
	}
	for _, s := range in.Streaks {
		if s.Days < verifiedStreakDays {
			continue
		}
		facts = append(facts, VerifiedFact{
			Type:     "streak",
			Content:  fmt.Sprintf("%d-day streak on %q", s.Days, s.Title),
			Evidence: "consecutive completion rows",
		})
	}
	facts = append(facts, VerifiedFact{
		Type:     "tenure",
		Content:  fmt.Sprintf("User has been in system for %d days", in.DaysInSystem),
		Evidence: "account creation time",
	})
	return facts
}

var observerBannedClaims = []string{
	"I've noticed you tend to",
	"Your pattern shows",
	"You always",
	"You never",
	"You typically",
	"You usually",
	"hours of silence",
	"hours ago",
	"I remember when you",
	"You told me",
	"Based on your history",
	"Your typical behavior",
	"I've seen you do this before",
	"This is a pattern",
	"This is becoming a pattern",
	"You've been avoiding",
	"You've been struggling",
	"Your track record",
}

var sparseArchitectBannedClaims = []string{
	"You always",
	"You never",
	"hours ago",
	"I remember when you",
	"You told me that",
}

func bannedClaims(p domain.Phase, q domain.DataQuality) []string {
	switch {
	case p == domain.PhaseObserver:
		return append([]string(nil), observerBannedClaims...)
	case p == domain.PhaseArchitect && q == domain.QualitySparse:
		return append([]string(nil), sparseArchitectBannedClaims...)
	}
	return []string{}
}
