// Package memory is the optional semantic memory behind reflections and
// chat. Every failure degrades to an empty result and a log line; callers
// never see an error that could block generation.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/futureyou/futureyou-os/internal/config"
	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/futureyou/futureyou-os/internal/repository"
)

var (
	ErrEmptyEmbedding = errors.New("embedding response was empty")
	ErrMisconfigured  = errors.New("semantic memory misconfigured")
)

// Hit is one recalled memory.
type Hit struct {
	ID        string
	Text      string
	Score     float64
	Metadata  map[string]string
	CreatedAt time.Time
}

// Store is the semantic memory collaborator.
type Store interface {
	Store(ctx context.Context, userID string, t domain.MemoryType, text string, metadata map[string]string)
	Query(ctx context.Context, userID string, t domain.MemoryType, text string, limit int, minScore float64) []Hit
	Recent(ctx context.Context, userID string, t domain.MemoryType, limit int) []Hit
}

// Disabled is the Store used when semantic memory is off.
type Disabled struct{}

func (Disabled) Store(context.Context, string, domain.MemoryType, string, map[string]string) {}

func (Disabled) Query(context.Context, string, domain.MemoryType, string, int, float64) []Hit {
	return nil
}

func (Disabled) Recent(context.Context, string, domain.MemoryType, int) []Hit { return nil }

// SQLiteStore keeps texts and their vectors in the memories table and ranks
// by cosine similarity in process. A failed embedding still stores the text,
// so Recent keeps working while the embedder is down.
type SQLiteStore struct {
	repo     repository.MemoryRepo
	embedder Embedder
	log      *slog.Logger
}

func NewSQLiteStore(repo repository.MemoryRepo, embedder Embedder, log *slog.Logger) *SQLiteStore {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{repo: repo, embedder: embedder, log: log}
}

func (s *SQLiteStore) Store(ctx context.Context, userID string, t domain.MemoryType, text string, metadata map[string]string) {
	if text == "" {
		return
	}
	rec := &domain.MemoryRecord{
		UserID:   userID,
		Type:     t,
		Text:     text,
		Metadata: metadata,
	}
	if s.embedder != nil {
		start := time.Now()
		vec, err := s.embedder.Embed(ctx, text)
		s.logEmbed("store", start, err)
		if err == nil {
			rec.Vector = vec
			rec.EmbedModel = s.embedder.Model()
		}
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		s.log.Warn("memory store failed", "user", userID, "type", t, "error", err)
	}
}

func (s *SQLiteStore) Query(ctx context.Context, userID string, t domain.MemoryType, text string, limit int, minScore float64) []Hit {
	if s.embedder == nil || text == "" || limit <= 0 {
		return nil
	}
	start := time.Now()
	query, err := s.embedder.Embed(ctx, text)
	s.logEmbed("query", start, err)
	if err != nil {
		return nil
	}

	records, err := s.repo.ListWithVectors(ctx, userID, t, s.embedder.Model())
	if err != nil {
		s.log.Warn("memory query failed", "user", userID, "type", t, "error", err)
		return nil
	}

	hits := make([]Hit, 0, len(records))
	for _, r := range records {
		score := CosineSimilarity(query, r.Vector)
		if score < minScore {
			continue
		}
		hits = append(hits, toHit(r, score))
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// Recent returns the newest memories, newest first, with a score of 1.
func (s *SQLiteStore) Recent(ctx context.Context, userID string, t domain.MemoryType, limit int) []Hit {
	if limit <= 0 {
		return nil
	}
	records, err := s.repo.ListRecent(ctx, userID, t, limit)
	if err != nil {
		s.log.Warn("memory recall failed", "user", userID, "type", t, "error", err)
		return nil
	}
	hits := make([]Hit, 0, len(records))
	for _, r := range records {
		hits = append(hits, toHit(r, 1))
	}
	return hits
}

func (s *SQLiteStore) logEmbed(op string, start time.Time, err error) {
	attrs := []any{"op", op, "model", s.embedder.Model(), "latency_ms", time.Since(start).Milliseconds()}
	if err != nil {
		s.log.Warn("embed failed", append(attrs, "error", err)...)
		return
	}
	s.log.Debug("embed", attrs...)
}

func toHit(r domain.MemoryRecord, score float64) Hit {
	return Hit{
		ID:        r.ID,
		Text:      r.Text,
		Score:     score,
		Metadata:  r.Metadata,
		CreatedAt: r.CreatedAt,
	}
}

// NewFromConfig returns Disabled unless memory is enabled. A genai embedder
// that cannot be built is an error; callers may still fall back to Disabled.
func NewFromConfig(ctx context.Context, cfg config.MemoryConfig, repo repository.MemoryRepo, log *slog.Logger) (Store, error) {
	if !cfg.Enabled {
		return Disabled{}, nil
	}
	var emb Embedder
	switch cfg.Provider {
	case "ollama", "":
		emb = NewOllamaEmbedder(cfg.Endpoint, cfg.Model)
	case "genai":
		model := cfg.Model
		if model == "" || model == "nomic-embed-text" {
			model = DefaultGenAIModel
		}
		g, err := NewGenAIEmbedder(ctx, cfg.APIKey, model)
		if err != nil {
			return Disabled{}, err
		}
		emb = g
	default:
		return Disabled{}, fmt.Errorf("%w: provider %q", ErrMisconfigured, cfg.Provider)
	}
	return NewSQLiteStore(repo, emb, log), nil
}
