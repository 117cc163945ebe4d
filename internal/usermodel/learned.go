package usermodel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/futureyou/futureyou-os/internal/cache"
	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/futureyou/futureyou-os/internal/repository"
	"github.com/google/uuid"
)

// LearnedStore reads and merges the persisted learned model. Writes are
// read-modify-write and serialized by one mutex.
type LearnedStore struct {
	repo    repository.LearnedModelRepo
	learned cache.TTLCache[*domain.LearnedUserModel]
	deep    cache.TTLCache[*domain.DeepUserModel]
	now     func() time.Time

	mu sync.Mutex
}

// NewLearnedStore creates a LearnedStore. deep is the deep-model cache that
// every write invalidates.
func NewLearnedStore(
	repo repository.LearnedModelRepo,
	learned cache.TTLCache[*domain.LearnedUserModel],
	deep cache.TTLCache[*domain.DeepUserModel],
) *LearnedStore {
	if learned == nil {
		learned = cache.Noop[*domain.LearnedUserModel]{}
	}
	if deep == nil {
		deep = cache.Noop[*domain.DeepUserModel]{}
	}
	return &LearnedStore{repo: repo, learned: learned, deep: deep, now: func() time.Time { return time.Now().UTC() }}
}

// Get returns the stored model, or nil when the user has none yet. The
// returned value is shared with the cache and must not be mutated.
func (s *LearnedStore) Get(ctx context.Context, userID string) (*domain.LearnedUserModel, error) {
	if m, ok := s.learned.Get(userID); ok {
		return m, nil
	}
	m, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading learned model: %w", err)
	}
	m = m.Normalize()
	s.learned.Set(userID, m)
	return m, nil
}

// Update merges a partial update into the stored model and returns the
// result. Fields the update leaves nil are preserved.
func (s *LearnedStore) Update(ctx context.Context, userID string, u domain.LearnedUpdate) (*domain.LearnedUserModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadOrEmpty(ctx, userID)
	if err != nil {
		return nil, err
	}
	merged := current.Merge(u)
	if err := s.persist(ctx, userID, &merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

// AddExcuse counts one more use of phrase. Matching ignores case. Once an
// excuse has been followed by a slip it stays flagged.
func (s *LearnedStore) AddExcuse(ctx context.Context, userID, phrase string, followedBySlip bool) error {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return nil
	}
	return s.mutate(ctx, userID, func(m *domain.LearnedUserModel, now time.Time) bool {
		excuses := append([]domain.RecurringExcuse(nil), m.Excuses...)
		for i := range excuses {
			if strings.EqualFold(excuses[i].Phrase, phrase) {
				excuses[i].Frequency++
				excuses[i].LastUsedAt = &now
				excuses[i].TypicallyFollowedBySlip = excuses[i].TypicallyFollowedBySlip || followedBySlip
				m.Excuses = excuses
				return true
			}
		}
		m.Excuses = append(excuses, domain.RecurringExcuse{
			Phrase:                  phrase,
			Frequency:               1,
			LastUsedAt:              &now,
			TypicallyFollowedBySlip: followedBySlip,
		})
		return true
	})
}

// AddNarrative counts one more occurrence of a self-narrative and records
// its latest sentiment.
func (s *LearnedStore) AddNarrative(ctx context.Context, userID, narrative string, sentiment domain.NarrativeSentiment) error {
	narrative = strings.TrimSpace(narrative)
	if narrative == "" {
		return nil
	}
	return s.mutate(ctx, userID, func(m *domain.LearnedUserModel, now time.Time) bool {
		narratives := append([]domain.LimitingNarrative(nil), m.Narratives...)
		for i := range narratives {
			if strings.EqualFold(narratives[i].Narrative, narrative) {
				narratives[i].Frequency++
				narratives[i].LastSeenAt = &now
				narratives[i].Sentiment = sentiment
				m.Narratives = narratives
				return true
			}
		}
		m.Narratives = append(narratives, domain.LimitingNarrative{
			Narrative:  narrative,
			Sentiment:  sentiment,
			Frequency:  1,
			LastSeenAt: &now,
		})
		return true
	})
}

// AddCommitment appends a commitment. A missing ID, status or MadeAt is
// filled in.
func (s *LearnedStore) AddCommitment(ctx context.Context, userID string, rec domain.CommitmentRecord) (domain.CommitmentRecord, error) {
	err := s.mutate(ctx, userID, func(m *domain.LearnedUserModel, now time.Time) bool {
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
		if rec.Status == "" {
			rec.Status = domain.CommitmentPending
		}
		if rec.MadeAt.IsZero() {
			rec.MadeAt = now
		}
		m.Commitments = append(append([]domain.CommitmentRecord(nil), m.Commitments...), rec)
		return true
	})
	return rec, err
}

// ResolveCommitment marks a commitment kept or broken. An unknown id is a
// no-op.
func (s *LearnedStore) ResolveCommitment(ctx context.Context, userID, id string, kept bool, evidenceEventID string) error {
	return s.mutate(ctx, userID, func(m *domain.LearnedUserModel, now time.Time) bool {
		for i := range m.Commitments {
			if m.Commitments[i].ID != id {
				continue
			}
			commitments := append([]domain.CommitmentRecord(nil), m.Commitments...)
			c := &commitments[i]
			c.Status = domain.CommitmentBroken
			if kept {
				c.Status = domain.CommitmentKept
				c.KeptEvidenceEventID = evidenceEventID
			}
			c.ResolvedAt = &now
			m.Commitments = commitments
			return true
		}
		return false
	})
}

// RecordMilestone appends an arc milestone stamped now. A milestone is
// achieved once: a repeat of the same type and description returns the
// stored one unchanged.
func (s *LearnedStore) RecordMilestone(ctx context.Context, userID string, ms domain.ArcMilestone) (domain.ArcMilestone, error) {
	err := s.mutate(ctx, userID, func(m *domain.LearnedUserModel, now time.Time) bool {
		for _, existing := range m.Milestones {
			if existing.Type == ms.Type && existing.Description == ms.Description {
				ms = existing
				return false
			}
		}
		ms.ID = uuid.New().String()
		ms.AchievedAt = now
		m.Milestones = append(append([]domain.ArcMilestone(nil), m.Milestones...), ms)
		return true
	})
	return ms, err
}

// Invalidate drops both cached models for a user.
func (s *LearnedStore) Invalidate(userID string) {
	s.deep.Delete(userID)
	s.learned.Delete(userID)
}

// mutate applies fn to a copy of the current model and persists it when fn
// reports a change.
func (s *LearnedStore) mutate(ctx context.Context, userID string, fn func(m *domain.LearnedUserModel, now time.Time) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadOrEmpty(ctx, userID)
	if err != nil {
		return err
	}
	next := *current
	if !fn(&next, s.now()) {
		return nil
	}
	return s.persist(ctx, userID, &next)
}

func (s *LearnedStore) loadOrEmpty(ctx context.Context, userID string) (*domain.LearnedUserModel, error) {
	m, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return domain.EmptyLearnedModel(), nil
	}
	return m, nil
}

func (s *LearnedStore) persist(ctx context.Context, userID string, m *domain.LearnedUserModel) error {
	m.Normalize()
	if err := s.repo.Put(ctx, userID, m); err != nil {
		return fmt.Errorf("persisting learned model: %w", err)
	}
	s.Invalidate(userID)
	s.learned.Set(userID, m)
	return nil
}
