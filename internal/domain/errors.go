package domain

import "errors"

var (
	// ErrInvalidPayload indicates an event payload failed validation or
	// does not match its event type.
	ErrInvalidPayload = errors.New("invalid event payload")

	// ErrUnknownEventType indicates an event type outside ValidEventTypes.
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrInvalidHabit indicates a habit failed field validation.
	ErrInvalidHabit = errors.New("invalid habit")
)
