package usermodel

import (
	"context"
	"testing"

	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/futureyou/futureyou-os/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLearnedStore_GetMissingIsNil(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t)

	m, err := f.learned.Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestLearnedStore_AddExcuseIncrementsAndStaysFlagged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t)

	require.NoError(t, f.learned.AddExcuse(ctx, u.ID, "Too tired", true))
	require.NoError(t, f.learned.AddExcuse(ctx, u.ID, "too tired", false))
	require.NoError(t, f.learned.AddExcuse(ctx, u.ID, "no time", false))

	m, err := f.learned.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, m.Excuses, 2)
	assert.Equal(t, "Too tired", m.Excuses[0].Phrase)
	assert.Equal(t, 2, m.Excuses[0].Frequency)
	assert.True(t, m.Excuses[0].TypicallyFollowedBySlip)
	require.NotNil(t, m.Excuses[0].LastUsedAt)
	assert.True(t, fixedNow.Equal(*m.Excuses[0].LastUsedAt))
	assert.Equal(t, 1, m.Excuses[1].Frequency)
}

func TestLearnedStore_AddNarrative(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t)

	require.NoError(t, f.learned.AddNarrative(ctx, u.ID, "I'm not a morning person", domain.SentimentLimiting))
	require.NoError(t, f.learned.AddNarrative(ctx, u.ID, "i'm not a morning person", domain.SentimentNeutral))

	m, err := f.learned.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, m.Narratives, 1)
	assert.Equal(t, 2, m.Narratives[0].Frequency)
	assert.Equal(t, domain.SentimentNeutral, m.Narratives[0].Sentiment)
	assert.False(t, m.Narratives[0].Challenged)
}

func TestLearnedStore_CommitmentLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t)

	rec, err := f.learned.AddCommitment(ctx, u.ID, domain.CommitmentRecord{Text: "I will run tomorrow", MadeIn: domain.MessageChat})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, domain.CommitmentPending, rec.Status)
	assert.True(t, fixedNow.Equal(rec.MadeAt))

	require.NoError(t, f.learned.ResolveCommitment(ctx, u.ID, rec.ID, true, "evt-1"))

	m, err := f.learned.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, m.Commitments, 1)
	assert.Equal(t, domain.CommitmentKept, m.Commitments[0].Status)
	assert.Equal(t, "evt-1", m.Commitments[0].KeptEvidenceEventID)
	require.NotNil(t, m.Commitments[0].ResolvedAt)
	assert.Empty(t, m.PendingCommitments())
}

func TestLearnedStore_ResolveUnknownCommitmentWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t)

	require.NoError(t, f.learned.ResolveCommitment(ctx, u.ID, "nope", false, ""))

	_, err := repository.NewSQLiteLearnedModelRepo(f.conn).Get(ctx, u.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLearnedStore_RecordMilestone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t)

	ms, err := f.learned.RecordMilestone(ctx, u.ID, domain.ArcMilestone{Type: "streak", Description: "First 7-day streak", Significance: 3})
	require.NoError(t, err)
	assert.NotEmpty(t, ms.ID)
	assert.True(t, fixedNow.Equal(ms.AchievedAt))

	m, err := f.learned.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, m.Milestones, 1)
	assert.Equal(t, "First 7-day streak", m.Milestones[0].Description)

	again, err := f.learned.RecordMilestone(ctx, u.ID, domain.ArcMilestone{Type: "streak", Description: "First 7-day streak", Significance: 3})
	require.NoError(t, err)
	assert.Equal(t, ms.ID, again.ID)
	m, err = f.learned.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, m.Milestones, 1)
}

func TestLearnedStore_UpdatePreservesUntouchedFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t)

	require.NoError(t, f.learned.AddExcuse(ctx, u.ID, "busy", false))
	level := domain.ConfidenceLow
	points := 42
	got, err := f.learned.Update(ctx, u.ID, domain.LearnedUpdate{ConfidenceLevel: &level, DataPointsUsed: &points})
	require.NoError(t, err)

	assert.Equal(t, domain.ConfidenceLow, got.ConfidenceLevel)
	assert.Equal(t, 42, got.DataPointsUsed)
	require.Len(t, got.Excuses, 1)
	assert.Equal(t, "busy", got.Excuses[0].Phrase)

	stored, err := repository.NewSQLiteLearnedModelRepo(f.conn).Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Excuses, 1)
	assert.Equal(t, domain.ConfidenceLow, stored.ConfidenceLevel)
}

func TestLearnedStore_WriteInvalidatesDeepCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t)

	f.deep.Set(u.ID, &domain.DeepUserModel{})
	require.NoError(t, f.learned.AddNarrative(ctx, u.ID, "I always quit", domain.SentimentLimiting))

	_, ok := f.deep.Get(u.ID)
	assert.False(t, ok)
}
