package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/futureyou/futureyou-os/internal/repository"
)

// ErrInvalidInput marks caller input rejected before any write.
var ErrInvalidInput = errors.New("invalid input")

// useCase times one service call and reports it on finish.
type useCase struct {
	observer  UseCaseObserver
	name      string
	startedAt time.Time
	fields    map[string]any
}

func startUseCase(observer UseCaseObserver, name string, fields map[string]any) *useCase {
	if fields == nil {
		fields = map[string]any{}
	}
	return &useCase{observer: observer, name: name, startedAt: time.Now(), fields: fields}
}

func (u *useCase) finish(ctx context.Context, err error) {
	u.observer.ObserveUseCase(ctx, UseCaseEvent{
		Name:      u.name,
		StartedAt: u.startedAt,
		Duration:  time.Since(u.startedAt),
		Success:   err == nil,
		Err:       err,
		Fields:    u.fields,
	})
}

// resolveDate validates a YYYY-MM-DD key, defaulting to today in loc.
func resolveDate(date string, now time.Time, loc *time.Location) (string, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return domain.DateOf(now, loc), nil
	}
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return "", fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidInput, date)
	}
	return date, nil
}

// messageTypeFor maps a coach_* event type to the message it carried.
func messageTypeFor(t domain.EventType) domain.MessageType {
	switch t {
	case domain.EventCoachBrief:
		return domain.MessageBrief
	case domain.EventCoachDebrief:
		return domain.MessageDebrief
	case domain.EventCoachNudge:
		return domain.MessageNudge
	case domain.EventCoachLetter:
		return domain.MessageLetter
	default:
		return domain.MessageChat
	}
}

func ensureUser(ctx context.Context, users repository.UserRepo, id string) (*domain.User, error) {
	u, err := users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading user %s: %w", id, err)
	}
	return u, nil
}

func invalidate(inv Invalidator, userID string) {
	if inv != nil {
		inv.Invalidate(userID)
	}
}
