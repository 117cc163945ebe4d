package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/futureyou/futureyou-os/internal/repository"
)

type reflectionService struct {
	users    repository.UserRepo
	events   repository.EventRepo
	memory   MemoryWriter
	cache    Invalidator
	observer UseCaseObserver
	now      func() time.Time
}

// NewReflectionService builds a ReflectionService. A nil memory skips
// semantic storage.
func NewReflectionService(
	users repository.UserRepo,
	events repository.EventRepo,
	memory MemoryWriter,
	cache Invalidator,
	observers ...UseCaseObserver,
) ReflectionService {
	return &reflectionService{
		users:    users,
		events:   events,
		memory:   memory,
		cache:    cache,
		observer: useCaseObserverOrNoop(observers),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Record logs the answer as a reflection_answer event, then stores it for
// recall. Memory failures never fail the call.
func (s *reflectionService) Record(ctx context.Context, userID, question, answer string) (event *domain.Event, err error) {
	uc := startUseCase(s.observer, "record-reflection", map[string]any{"user_id": userID})
	defer func() { uc.finish(ctx, err) }()

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, fmt.Errorf("%w: answer is empty", ErrInvalidInput)
	}
	if _, err = ensureUser(ctx, s.users, userID); err != nil {
		return nil, err
	}

	event = &domain.Event{
		UserID:    userID,
		Type:      domain.EventReflectionAnswer,
		Payload:   domain.ReflectionPayload{Question: strings.TrimSpace(question), Answer: answer},
		Timestamp: s.now(),
	}
	if err = s.events.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("logging reflection: %w", err)
	}
	invalidate(s.cache, userID)

	if s.memory != nil {
		meta := map[string]string{"event_id": event.ID}
		if q := strings.TrimSpace(question); q != "" {
			meta["question"] = q
		}
		s.memory.Store(ctx, userID, domain.MemoryReflection, answer, meta)
	}
	return event, nil
}
