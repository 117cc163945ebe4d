package epistemic

import (
	"strings"
	"testing"

	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseForDays(t *testing.T) {
	tests := []struct {
		days int
		want domain.Phase
	}{
		{0, domain.PhaseObserver},
		{13, domain.PhaseObserver},
		{14, domain.PhaseArchitect},
		{59, domain.PhaseArchitect},
		{60, domain.PhaseOracle},
		{400, domain.PhaseOracle},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PhaseForDays(tt.days), "days=%d", tt.days)
	}
}

func TestQualityFor(t *testing.T) {
	tests := []struct {
		volume, refl int
		want         domain.DataQuality
	}{
		{0, 0, domain.QualitySparse},
		{14, 0, domain.QualitySparse},
		{15, 0, domain.QualityDeveloping},
		{50, 0, domain.QualityRich},
		{100, 9, domain.QualityRich},
		{100, 10, domain.QualityComprehensive},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, QualityFor(tt.volume, tt.refl), "volume=%d refl=%d", tt.volume, tt.refl)
	}
}

func TestEvaluate_NewUserIsHumble(t *testing.T) {
	c := Evaluate(Input{})

	assert.Equal(t, domain.PhaseObserver, c.Phase)
	assert.Equal(t, domain.QualitySparse, c.Quality)
	assert.Equal(t, domain.AuthorityHumble, c.Authority)
	assert.Equal(t, ConfidenceTentative, c.MaxConfidence)
	assert.False(t, c.CanClaimPatterns)
	assert.False(t, c.CanClaimTiming)
	assert.False(t, c.CanClaimHistory)
	assert.False(t, c.CanUseDirectConfrontation)
	assert.Contains(t, c.BannedClaims, "You always")
	require.Len(t, c.VerifiedFacts, 1)
	assert.Equal(t, "User has been in system for 0 days", c.VerifiedFacts[0].Content)
}

func TestEvaluate_LongTenureLowVolumeStaysLow(t *testing.T) {
	c := Evaluate(Input{DaysInSystem: 200, TotalEvents: 10})
	assert.Equal(t, domain.PhaseOracle, c.Phase)
	assert.Equal(t, domain.AuthorityHumble, c.Authority)

	c = Evaluate(Input{DaysInSystem: 200, TotalEvents: 20})
	assert.Equal(t, domain.AuthorityGrowing, c.Authority)
}

func TestEvaluate_HighVolumeNewUserStaysHumble(t *testing.T) {
	c := Evaluate(Input{DaysInSystem: 5, TotalEvents: 500, ReflectionCount: 40})
	assert.Equal(t, domain.QualityComprehensive, c.Quality)
	assert.Equal(t, domain.AuthorityHumble, c.Authority)
}

func TestEvaluate_OracleComprehensiveIsDeep(t *testing.T) {
	c := Evaluate(Input{DaysInSystem: 90, TotalEvents: 80, TotalCompletions: 40, ReflectionCount: 12})
	assert.Equal(t, domain.AuthorityDeep, c.Authority)
	assert.Equal(t, ConfidenceCertain, c.MaxConfidence)
	assert.True(t, c.CanClaimPredictions)
	assert.True(t, c.CanUseDirectConfrontation)
	assert.Empty(t, c.BannedClaims)
}

func TestEvaluate_AuthorityMonotonicInDays(t *testing.T) {
	volumes := []struct{ events, refl int }{{0, 0}, {20, 0}, {60, 0}, {150, 12}}
	for _, v := range volumes {
		prev := -1
		for days := 0; days <= 120; days++ {
			c := Evaluate(Input{DaysInSystem: days, TotalEvents: v.events, ReflectionCount: v.refl})
			rank := c.Authority.Rank()
			require.GreaterOrEqual(t, rank, prev, "authority dropped at day %d for volume %d", days, v.events)
			prev = rank
		}
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	in := Input{
		DaysInSystem: 30, TotalEvents: 40, TotalCompletions: 25, ReflectionCount: 3,
		TodayCompletions: []string{"Run"},
		Streaks:          []StreakFact{{Title: "Run", Days: 8}, {Title: "Read", Days: 2}},
	}
	first := Evaluate(in)
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(first, Evaluate(in)); diff != "" {
			t.Fatalf("evaluate not deterministic:\n%s", diff)
		}
	}
}

func TestEvaluate_VerifiedFactsOnlyTodayStreaksAndTenure(t *testing.T) {
	c := Evaluate(Input{
		DaysInSystem:     21,
		TodayCompletions: []string{"Meditate"},
		Streaks:          []StreakFact{{Title: "Meditate", Days: 5}, {Title: "Read", Days: 2}},
	})

	var contents []string
	for _, f := range c.VerifiedFacts {
		contents = append(contents, f.Content)
	}
	assert.Equal(t, []string{
		`Completed "Meditate" today`,
		`5-day streak on "Meditate"`,
		"User has been in system for 21 days",
	}, contents)
}

func TestEvaluate_SparseArchitectGetsShortBanList(t *testing.T) {
	c := Evaluate(Input{DaysInSystem: 20, TotalEvents: 5})
	assert.Equal(t, domain.PhaseArchitect, c.Phase)
	assert.Equal(t, sparseArchitectBannedClaims, c.BannedClaims)
}

func TestPromptSection(t *testing.T) {
	c := Evaluate(Input{DaysInSystem: 3})
	s := c.PromptSection()

	assert.Contains(t, s, "This is day 3.")
	assert.NotContains(t, s, "[X]")
	assert.Contains(t, s, "- Pattern claims: NO")
	assert.Contains(t, s, "User has been in system for 3 days")
	assert.Contains(t, s, "NEVER SAY IN OBSERVER PHASE")
	assert.True(t, strings.HasPrefix(s, "## WHAT YOU MAY CLAIM: OBSERVER PHASE"))
}
