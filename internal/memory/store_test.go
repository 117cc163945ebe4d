package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/futureyou/futureyou-os/internal/config"
	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/futureyou/futureyou-os/internal/repository"
	"github.com/futureyou/futureyou-os/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keywordEmbedder maps text onto three axes by keyword so ranking is easy
// to predict.
type keywordEmbedder struct {
	fail bool
}

func (k keywordEmbedder) Model() string { return "keyword" }

func (k keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if k.fail {
		return nil, errors.New("embedder down")
	}
	text = strings.ToLower(text)
	vec := []float32{0.01, 0.01, 0.01}
	if strings.Contains(text, "gym") {
		vec[0] = 1
	}
	if strings.Contains(text, "sleep") {
		vec[1] = 1
	}
	if strings.Contains(text, "work") {
		vec[2] = 1
	}
	return vec, nil
}

type failingRepo struct{}

func (failingRepo) Insert(context.Context, *domain.MemoryRecord) error {
	return errors.New("disk full")
}

func (failingRepo) ListRecent(context.Context, string, domain.MemoryType, int) ([]domain.MemoryRecord, error) {
	return nil, errors.New("disk full")
}

func (failingRepo) ListWithVectors(context.Context, string, domain.MemoryType, string) ([]domain.MemoryRecord, error) {
	return nil, errors.New("disk full")
}

func newStore(t *testing.T, emb Embedder) (*SQLiteStore, string) {
	t.Helper()
	conn := testutil.NewTestDB(t)
	u := testutil.NewTestUser()
	require.NoError(t, repository.NewSQLiteUserRepo(conn).Create(context.Background(), u))
	return NewSQLiteStore(repository.NewSQLiteMemoryRepo(conn), emb, nil), u.ID
}

func TestSQLiteStore_QueryRanksBySimilarity(t *testing.T) {
	s, userID := newStore(t, keywordEmbedder{})
	ctx := context.Background()

	s.Store(ctx, userID, domain.MemoryReflection, "Work ran late so I skipped it", nil)
	s.Store(ctx, userID, domain.MemoryReflection, "I skip the gym when I sleep badly", map[string]string{"q": "why"})
	s.Store(ctx, userID, domain.MemoryReflection, "The gym felt good today", nil)

	hits := s.Query(ctx, userID, domain.MemoryReflection, "gym", 5, 0.5)
	require.Len(t, hits, 2)
	assert.Equal(t, "The gym felt good today", hits[0].Text)
	assert.Equal(t, "I skip the gym when I sleep badly", hits[1].Text)
	assert.Greater(t, hits[0].Score, hits[1].Score)
	assert.Equal(t, "why", hits[1].Metadata["q"])
}

func TestSQLiteStore_QueryRespectsLimit(t *testing.T) {
	s, userID := newStore(t, keywordEmbedder{})
	ctx := context.Background()
	for _, text := range []string{"gym one", "gym two", "gym three"} {
		s.Store(ctx, userID, domain.MemoryChat, text, nil)
	}
	assert.Len(t, s.Query(ctx, userID, domain.MemoryChat, "gym", 2, 0), 2)
}

func TestSQLiteStore_RecentNewestFirst(t *testing.T) {
	s, userID := newStore(t, nil)
	ctx := context.Background()
	s.Store(ctx, userID, domain.MemoryReflection, "first", nil)
	s.Store(ctx, userID, domain.MemoryReflection, "second", nil)

	hits := s.Recent(ctx, userID, domain.MemoryReflection, 5)
	require.Len(t, hits, 2)
	assert.ElementsMatch(t, []string{"first", "second"}, []string{hits[0].Text, hits[1].Text})
	assert.Equal(t, 1.0, hits[0].Score)
}

func TestSQLiteStore_EmbedderDownStillStoresText(t *testing.T) {
	s, userID := newStore(t, keywordEmbedder{fail: true})
	ctx := context.Background()

	s.Store(ctx, userID, domain.MemoryReflection, "gym", nil)

	assert.Empty(t, s.Query(ctx, userID, domain.MemoryReflection, "gym", 5, 0))
	assert.Len(t, s.Recent(ctx, userID, domain.MemoryReflection, 5), 1)
}

func TestSQLiteStore_RepoFailureDegradesToEmpty(t *testing.T) {
	s := NewSQLiteStore(failingRepo{}, keywordEmbedder{}, nil)
	ctx := context.Background()

	assert.NotPanics(t, func() { s.Store(ctx, "u", domain.MemoryChat, "gym", nil) })
	assert.Empty(t, s.Query(ctx, "u", domain.MemoryChat, "gym", 5, 0))
	assert.Empty(t, s.Recent(ctx, "u", domain.MemoryChat, 5))
}

func TestDisabled(t *testing.T) {
	var s Store = Disabled{}
	ctx := context.Background()
	s.Store(ctx, "u", domain.MemoryChat, "x", nil)
	assert.Empty(t, s.Query(ctx, "u", domain.MemoryChat, "x", 5, 0))
	assert.Empty(t, s.Recent(ctx, "u", domain.MemoryChat, 5))
}

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()

	s, err := NewFromConfig(ctx, config.MemoryConfig{}, failingRepo{}, nil)
	require.NoError(t, err)
	assert.IsType(t, Disabled{}, s)

	s, err = NewFromConfig(ctx, config.MemoryConfig{Enabled: true, Provider: "ollama", Endpoint: "http://localhost:11434", Model: "nomic-embed-text"}, failingRepo{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)

	_, err = NewFromConfig(ctx, config.MemoryConfig{Enabled: true, Provider: "genai"}, failingRepo{}, nil)
	assert.ErrorIs(t, err, ErrMisconfigured)
}
