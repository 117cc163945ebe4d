package domain

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"
)

// MaxLoggedTextLen bounds the generated text stored on coach_* events.
const MaxLoggedTextLen = 500

// Event is an immutable, append-only record of something the user or the
// system did. Payload is a per-type struct; see PayloadFor.
type Event struct {
	ID        string
	UserID    string
	Type      EventType
	Payload   Payload
	Timestamp time.Time
}

// Payload is the sealed set of per-type event payloads.
type Payload interface {
	Validate() error
	isPayload()
}

type HabitTickPayload struct {
	HabitID        string `json:"habitId"`
	HabitTitle     string `json:"habitTitle,omitempty"`
	Date           string `json:"date"`
	Completed      bool   `json:"completed"`
	Streak         int    `json:"streak"`
	PreviousStreak int    `json:"previousStreak"`
}

type HabitActionPayload struct {
	HabitID   string `json:"habitId"`
	Action    string `json:"action"`
	Completed bool   `json:"completed"`
}

type ChatMessagePayload struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type NudgePayload struct {
	Trigger  string `json:"trigger"`
	Reason   string `json:"reason,omitempty"`
	Severity int    `json:"severity"`
}

// CoachMessagePayload is shared by every coach_* event type.
type CoachMessagePayload struct {
	Text            string            `json:"text"`
	ExecutionState  ExecutionState    `json:"executionState"`
	RiskLevel       RiskLevel         `json:"riskLevel"`
	Authority       Authority         `json:"authority"`
	DataQuality     DataQuality       `json:"dataQuality"`
	Phase           Phase             `json:"phase"`
	Intensity       int               `json:"intensity"`
	ModelConfidence ConfidenceLevel   `json:"modelConfidence"`
	Attempts        int               `json:"attempts"`
	Fallback        bool              `json:"fallback"`
	Extra           map[string]string `json:"extra,omitempty"`
}

type ReflectionPayload struct {
	Question string `json:"question,omitempty"`
	Answer   string `json:"answer"`
}

type AppSessionPayload struct {
	DurationSeconds int `json:"durationSeconds"`
}

func (HabitTickPayload) isPayload()    {}
func (HabitActionPayload) isPayload()  {}
func (ChatMessagePayload) isPayload()  {}
func (NudgePayload) isPayload()        {}
func (CoachMessagePayload) isPayload() {}
func (ReflectionPayload) isPayload()   {}
func (AppSessionPayload) isPayload()   {}

func (p HabitTickPayload) Validate() error {
	if p.HabitID == "" {
		return fmt.Errorf("%w: habit_tick requires habitId", ErrInvalidPayload)
	}
	if _, err := time.Parse(DateLayout, p.Date); err != nil {
		return fmt.Errorf("%w: habit_tick date %q", ErrInvalidPayload, p.Date)
	}
	if p.Streak < 0 || p.PreviousStreak < 0 {
		return fmt.Errorf("%w: habit_tick streak must be >= 0", ErrInvalidPayload)
	}
	if p.Streak > 0 && !p.Completed && p.Streak > p.PreviousStreak {
		return fmt.Errorf("%w: habit_tick streak grew without a completion", ErrInvalidPayload)
	}
	return nil
}

func (p HabitActionPayload) Validate() error {
	if p.HabitID == "" {
		return fmt.Errorf("%w: habit_action requires habitId", ErrInvalidPayload)
	}
	return nil
}

func (p ChatMessagePayload) Validate() error {
	if p.Role != "user" && p.Role != "assistant" {
		return fmt.Errorf("%w: chat role %q", ErrInvalidPayload, p.Role)
	}
	if p.Text == "" {
		return fmt.Errorf("%w: chat message text is empty", ErrInvalidPayload)
	}
	return nil
}

func (p NudgePayload) Validate() error {
	if p.Trigger == "" {
		return fmt.Errorf("%w: nudge requires trigger", ErrInvalidPayload)
	}
	if p.Severity < 0 || p.Severity > 5 {
		return fmt.Errorf("%w: nudge severity %d out of range", ErrInvalidPayload, p.Severity)
	}
	return nil
}

func (p CoachMessagePayload) Validate() error {
	if p.Text == "" {
		return fmt.Errorf("%w: coach message text is empty", ErrInvalidPayload)
	}
	if utf8.RuneCountInString(p.Text) > MaxLoggedTextLen {
		return fmt.Errorf("%w: coach message text exceeds %d chars", ErrInvalidPayload, MaxLoggedTextLen)
	}
	if p.Intensity < 0 || p.Intensity > 10 {
		return fmt.Errorf("%w: intensity %d out of range", ErrInvalidPayload, p.Intensity)
	}
	return nil
}

func (p ReflectionPayload) Validate() error {
	if p.Answer == "" {
		return fmt.Errorf("%w: reflection answer is empty", ErrInvalidPayload)
	}
	return nil
}

func (p AppSessionPayload) Validate() error {
	if p.DurationSeconds < 0 {
		return fmt.Errorf("%w: negative session duration", ErrInvalidPayload)
	}
	return nil
}

// PayloadFor returns an empty payload of the concrete type bound to t.
func PayloadFor(t EventType) (Payload, error) {
	switch t {
	case EventHabitTick:
		return &HabitTickPayload{}, nil
	case EventHabitAction:
		return &HabitActionPayload{}, nil
	case EventChatMessage:
		return &ChatMessagePayload{}, nil
	case EventNudge:
		return &NudgePayload{}, nil
	case EventCoachBrief, EventCoachDebrief, EventCoachNudge, EventCoachLetter, EventCoachChat:
		return &CoachMessagePayload{}, nil
	case EventReflectionAnswer:
		return &ReflectionPayload{}, nil
	case EventAppSession:
		return &AppSessionPayload{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, t)
}

// DecodePayload parses raw JSON into the payload type bound to t and
// validates it.
func DecodePayload(t EventType, raw []byte) (Payload, error) {
	target, err := PayloadFor(t)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrInvalidPayload, t, err)
	}
	p := deref(target)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// EncodePayload serializes a payload for storage.
func EncodePayload(p Payload) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil payload", ErrInvalidPayload)
	}
	return json.Marshal(p)
}

// Validate checks the event type is known, the payload matches it, and the
// payload passes its own validation.
func (e *Event) Validate() error {
	if e.UserID == "" {
		return fmt.Errorf("%w: event requires userId", ErrInvalidPayload)
	}
	if !ValidEventTypes[e.Type] {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, e.Type)
	}
	if e.Payload == nil {
		return fmt.Errorf("%w: %s has no payload", ErrInvalidPayload, e.Type)
	}
	if !payloadMatches(e.Type, e.Payload) {
		return fmt.Errorf("%w: %T is not a %s payload", ErrInvalidPayload, e.Payload, e.Type)
	}
	return e.Payload.Validate()
}

// Completed reports whether the event is a habit tick or action that
// recorded a completion.
func (e Event) Completed() bool {
	switch p := e.Payload.(type) {
	case HabitTickPayload:
		return p.Completed
	case HabitActionPayload:
		return p.Completed
	}
	return false
}

// Missed reports whether the event is a habit tick or action recorded as not done.
func (e Event) Missed() bool {
	switch p := e.Payload.(type) {
	case HabitTickPayload:
		return !p.Completed
	case HabitActionPayload:
		return !p.Completed
	}
	return false
}

// Text returns the free text carried by chat, reflection and coach events.
func (e Event) Text() string {
	switch p := e.Payload.(type) {
	case ChatMessagePayload:
		return p.Text
	case ReflectionPayload:
		return p.Answer
	case CoachMessagePayload:
		return p.Text
	}
	return ""
}

// TruncateText cuts s to at most n runes.
func TruncateText(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func payloadMatches(t EventType, p Payload) bool {
	switch p.(type) {
	case HabitTickPayload:
		return t == EventHabitTick
	case HabitActionPayload:
		return t == EventHabitAction
	case ChatMessagePayload:
		return t == EventChatMessage
	case NudgePayload:
		return t == EventNudge
	case CoachMessagePayload:
		return t.IsCoachOutput()
	case ReflectionPayload:
		return t == EventReflectionAnswer
	case AppSessionPayload:
		return t == EventAppSession
	}
	return false
}

func deref(p Payload) Payload {
	switch v := p.(type) {
	case *HabitTickPayload:
		return *v
	case *HabitActionPayload:
		return *v
	case *ChatMessagePayload:
		return *v
	case *NudgePayload:
		return *v
	case *CoachMessagePayload:
		return *v
	case *ReflectionPayload:
		return *v
	case *AppSessionPayload:
		return *v
	}
	return p
}
