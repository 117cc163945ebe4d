// Package usermodel builds the deep user model: a cached, derived snapshot
// of identity, behavior, patterns, contradictions, psychology, predictions
// and arc, merged with the persisted learned model.
package usermodel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/futureyou/futureyou-os/internal/behavior"
	"github.com/futureyou/futureyou-os/internal/cache"
	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/futureyou/futureyou-os/internal/repository"
	"golang.org/x/sync/singleflight"
)

// EventWindow bounds the events loaded for aggregation. The last event time
// is read separately, so days-since-last-action stays exact beyond it.
const EventWindow = 90 * 24 * time.Hour

// Repos groups the stores the builder reads.
type Repos struct {
	Users       repository.UserRepo
	Facts       repository.UserFactsRepo
	Habits      repository.HabitRepo
	Completions repository.CompletionRepo
	Events      repository.EventRepo
}

// Builder assembles DeepUserModels. Concurrent builds for the same user
// share one computation.
type Builder struct {
	repos   Repos
	learned *LearnedStore
	cache   cache.TTLCache[*domain.DeepUserModel]
	group   singleflight.Group
	now     func() time.Time
}

type BuilderOption func(*Builder)

// WithClock overrides the builder's notion of now.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// NewBuilder creates a Builder. A nil cache disables caching.
func NewBuilder(repos Repos, learned *LearnedStore, c cache.TTLCache[*domain.DeepUserModel], opts ...BuilderOption) *Builder {
	if c == nil {
		c = cache.Noop[*domain.DeepUserModel]{}
	}
	b := &Builder{
		repos:   repos,
		learned: learned,
		cache:   c,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Learned exposes the learned-model store the builder merges from.
func (b *Builder) Learned() *LearnedStore { return b.learned }

// Build returns the cached model for userID or rebuilds it from the store.
func (b *Builder) Build(ctx context.Context, userID string) (*domain.DeepUserModel, error) {
	if m, ok := b.cache.Get(userID); ok {
		return m, nil
	}
	v, err, _ := b.group.Do(userID, func() (any, error) {
		m, err := b.build(ctx, userID)
		if err != nil {
			return nil, err
		}
		b.cache.Set(userID, m)
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.DeepUserModel), nil
}

// Invalidate drops the cached deep model for userID.
func (b *Builder) Invalidate(userID string) {
	b.cache.Delete(userID)
}

func (b *Builder) build(ctx context.Context, userID string) (*domain.DeepUserModel, error) {
	now := b.now()

	user, err := b.repos.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	loc := user.Location()
	today := domain.DateOf(now, loc)

	facts, err := b.repos.Facts.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("loading user facts: %w", err)
		}
		facts = &domain.UserFacts{UserID: userID}
	}

	habits, err := b.repos.Habits.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading habits: %w", err)
	}
	completions, err := b.repos.Completions.ListByUser(ctx, userID, "0001-01-01", today)
	if err != nil {
		return nil, fmt.Errorf("loading completions: %w", err)
	}
	events, err := b.repos.Events.ListByUser(ctx, userID, now.Add(-EventWindow), now.Add(time.Millisecond))
	if err != nil {
		return nil, fmt.Errorf("loading events: %w", err)
	}
	lastEvent, err := b.repos.Events.LastEventAt(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading last event: %w", err)
	}

	volume, err := b.loadVolume(ctx, userID)
	if err != nil {
		return nil, err
	}

	learned, err := b.learned.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	snap := behavior.Aggregate(behavior.Input{
		Habits:      habits,
		Completions: completions,
		Events:      events,
		LastEventAt: lastEvent,
		Now:         now,
		Location:    loc,
	})

	identity := buildIdentity(user, facts, now)
	psychology := BuildPsychology(learned, facts)
	recent := recentActivity(completions, events, today, now, loc)

	model := &domain.DeepUserModel{
		Identity:                  identity,
		Behavior:                  snap.Behavior,
		Patterns:                  snap.Patterns,
		Contradictions:            BuildContradictions(facts.Contradictions),
		Psychology:                psychology,
		Predictions:               BuildPredictions(snap.Behavior, psychology),
		Arc:                       BuildArc(identity.DaysInSystem, learned),
		Learned:                   learned,
		ActiveTriggerChainWarning: ActiveTriggerChain(learned, recent.Events, now),
		ModelConfidence:           domain.ConfidenceInsufficient,
		Volume:                    volume,
		Recent:                    recent,
		BuiltAt:                   now,
	}
	if learned != nil && learned.ConfidenceLevel != "" {
		model.ModelConfidence = learned.ConfidenceLevel
	}
	return model, nil
}

func (b *Builder) loadVolume(ctx context.Context, userID string) (domain.DataVolume, error) {
	var v domain.DataVolume
	var err error
	if v.TotalEvents, err = b.repos.Events.CountByUser(ctx, userID); err != nil {
		return v, fmt.Errorf("counting events: %w", err)
	}
	if v.ReflectionCount, err = b.repos.Events.CountByType(ctx, userID, domain.EventReflectionAnswer); err != nil {
		return v, fmt.Errorf("counting reflections: %w", err)
	}
	if v.TotalCompletions, err = b.repos.Completions.CountDone(ctx, userID); err != nil {
		return v, fmt.Errorf("counting completions: %w", err)
	}
	return v, nil
}

func recentActivity(completions []domain.Completion, events []domain.Event, today string, now time.Time, loc *time.Location) domain.RecentActivity {
	from := now.In(loc).AddDate(0, 0, -(domain.RecentCompletionDays - 1)).Format(domain.DateLayout)
	r := domain.RecentActivity{
		Today:       today,
		Location:    loc,
		Completions: []domain.Completion{},
		Events:      []domain.Event{},
	}
	for _, c := range completions {
		if c.Date >= from && c.Date <= today {
			r.Completions = append(r.Completions, c)
		}
	}
	cutoff := now.Add(-domain.RecentEventWindow)
	for _, e := range events {
		if !e.Timestamp.Before(cutoff) {
			r.Events = append(r.Events, e)
		}
	}
	return r
}
