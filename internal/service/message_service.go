package service

import (
	"context"

	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/futureyou/futureyou-os/internal/repository"
)

const defaultInboxLimit = 20

var coachEventTypes = []domain.EventType{
	domain.EventCoachBrief,
	domain.EventCoachNudge,
	domain.EventCoachDebrief,
	domain.EventCoachLetter,
	domain.EventCoachChat,
}

type messageService struct {
	events   repository.EventRepo
	observer UseCaseObserver
}

func NewMessageService(events repository.EventRepo, observers ...UseCaseObserver) MessageService {
	return &messageService{events: events, observer: useCaseObserverOrNoop(observers)}
}

// List returns the newest coach messages first. A non-positive limit uses
// the default.
func (s *messageService) List(ctx context.Context, userID string, limit int) (msgs []Message, err error) {
	uc := startUseCase(s.observer, "list-messages", map[string]any{"user_id": userID})
	defer func() { uc.finish(ctx, err) }()

	if limit <= 0 {
		limit = defaultInboxLimit
	}
	events, err := s.events.ListRecentByType(ctx, userID, coachEventTypes, limit)
	if err != nil {
		return nil, err
	}

	msgs = make([]Message, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		p, ok := e.Payload.(domain.CoachMessagePayload)
		if !ok {
			continue
		}
		msgs = append(msgs, Message{
			ID:        e.ID,
			Type:      messageTypeFor(e.Type),
			Text:      p.Text,
			State:     p.ExecutionState,
			Authority: p.Authority,
			Fallback:  p.Fallback,
			Extra:     p.Extra,
			Timestamp: e.Timestamp,
		})
	}
	uc.fields["count"] = len(msgs)
	return msgs, nil
}
