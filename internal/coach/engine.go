// Package coach generates every coaching message. Each entry point
// synthesizes the user's state, runs the generate, validate, retry, fallback
// loop and logs the result back into the event stream.
package coach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/futureyou/futureyou-os/internal/learning"
	"github.com/futureyou/futureyou-os/internal/llm"
	"github.com/futureyou/futureyou-os/internal/memory"
	"github.com/futureyou/futureyou-os/internal/service"
	"github.com/futureyou/futureyou-os/internal/synthesis"
	"github.com/futureyou/futureyou-os/internal/usermodel"
)

const logTextLimit = 500

// Synthesizer builds the per-message projections. *synthesis.Synthesizer
// satisfies it.
type Synthesizer interface {
	ForBrief(ctx context.Context, userID string) (*synthesis.Brief, error)
	ForNudge(ctx context.Context, userID, trigger, reason string, severity int) (*synthesis.Nudge, error)
	ForDebrief(ctx context.Context, userID string) (*synthesis.Debrief, error)
	ForWeeklyLetter(ctx context.Context, userID string) (*synthesis.Letter, error)
	ForChat(ctx context.Context, userID string, history []domain.ChatTurn) (*synthesis.Chat, error)
}

// EventLog is where generations are recorded. repository.EventRepo
// satisfies it.
type EventLog interface {
	Append(ctx context.Context, e *domain.Event) error
}

// Metadata describes the state a message was generated in.
type Metadata struct {
	ExecutionState domain.ExecutionState `json:"executionState"`
	RiskLevel      domain.RiskLevel      `json:"riskLevel"`
	Authority      domain.Authority      `json:"authority"`
	DataQuality    domain.DataQuality    `json:"dataQuality"`
	Phase          domain.Phase          `json:"phase"`
	Intensity      int                   `json:"intensity"`
	Trigger        string                `json:"trigger,omitempty"`
	QuestionsAsked []string              `json:"questionsAsked,omitempty"`
	Attempts       int                   `json:"attempts"`
	Fallback       bool                  `json:"fallback"`
}

// Output is what every entry point returns. Text is never empty.
type Output struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// Engine is the generation engine. It is safe for concurrent use when its
// collaborators are.
type Engine struct {
	synth       Synthesizer
	gen         llm.Generator
	events      EventLog
	memory      memory.Store
	learned     learning.Sink
	classifiers learning.Classifiers
	observer    service.UseCaseObserver
	log         *slog.Logger
	now         func() time.Time
}

type Option func(*Engine)

// WithMemory stores chat exchanges in semantic memory.
func WithMemory(s memory.Store) Option {
	return func(e *Engine) { e.memory = s }
}

// WithLearning runs the classifiers over every chat message and writes the
// findings to sink.
func WithLearning(sink learning.Sink, c learning.Classifiers) Option {
	return func(e *Engine) {
		e.learned = sink
		e.classifiers = c
	}
}

func WithObserver(o service.UseCaseObserver) Option {
	return func(e *Engine) { e.observer = o }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithClock overrides the time source used for learning timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine wires an Engine. A nil generator behaves like a disabled one,
// so every message falls back to the example bank.
func NewEngine(synth Synthesizer, gen llm.Generator, events EventLog, opts ...Option) *Engine {
	if gen == nil {
		gen = llm.Disabled{}
	}
	e := &Engine{
		synth:    synth,
		gen:      gen,
		events:   events,
		memory:   memory.Disabled{},
		observer: service.NoopUseCaseObserver{},
		log:      slog.New(slog.DiscardHandler),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// GenerateBrief writes the morning brief.
func (e *Engine) GenerateBrief(ctx context.Context, userID string) (out Output, err error) {
	defer e.observe(ctx, "generate-brief", userID, time.Now(), &out, &err)

	b, err := e.synth.ForBrief(ctx, userID)
	if err != nil {
		return Output{}, loadError(err)
	}
	run := e.run(ctx, job{
		task:    llm.TaskBrief,
		msgType: domain.MessageBrief,
		system:  SystemPrompt(b.Base, domain.MessageBrief),
		prompt:  func(feedback string) string { return BriefPrompt(b, feedback) },
	}.withBase(b.Base))

	out = e.output(b.Base, run)
	out.Metadata.QuestionsAsked = ExtractQuestions(run.Text)
	e.record(ctx, domain.MessageBrief, b.Base, run, nil)
	return out, nil
}

// GenerateNudge writes a nudge for trigger. severity runs 1 to 5.
func (e *Engine) GenerateNudge(ctx context.Context, userID, trigger, reason string, severity int) (out Output, err error) {
	defer e.observe(ctx, "generate-nudge", userID, time.Now(), &out, &err)

	n, err := e.synth.ForNudge(ctx, userID, trigger, reason, severity)
	if err != nil {
		return Output{}, loadError(err)
	}
	run := e.run(ctx, job{
		task:    llm.TaskNudge,
		msgType: domain.MessageNudge,
		system:  SystemPrompt(n.Base, domain.MessageNudge),
		prompt:  func(feedback string) string { return NudgePrompt(n, feedback) },
	}.withBase(n.Base))

	out = e.output(n.Base, run)
	out.Metadata.Trigger = trigger
	e.record(ctx, domain.MessageNudge, n.Base, run, map[string]string{
		"trigger":  trigger,
		"severity": strconv.Itoa(n.Trigger.Severity),
	})
	return out, nil
}

// GenerateDebrief writes the evening debrief.
func (e *Engine) GenerateDebrief(ctx context.Context, userID string) (out Output, err error) {
	defer e.observe(ctx, "generate-debrief", userID, time.Now(), &out, &err)

	d, err := e.synth.ForDebrief(ctx, userID)
	if err != nil {
		return Output{}, loadError(err)
	}
	run := e.run(ctx, job{
		task:    llm.TaskDebrief,
		msgType: domain.MessageDebrief,
		system:  SystemPrompt(d.Base, domain.MessageDebrief),
		prompt:  func(feedback string) string { return DebriefPrompt(d, feedback) },
	}.withBase(d.Base))

	out = e.output(d.Base, run)
	out.Metadata.QuestionsAsked = ExtractQuestions(run.Text)
	e.record(ctx, domain.MessageDebrief, d.Base, run, nil)
	return out, nil
}

// GenerateWeeklyLetter writes the weekly letter.
func (e *Engine) GenerateWeeklyLetter(ctx context.Context, userID string) (out Output, err error) {
	defer e.observe(ctx, "generate-letter", userID, time.Now(), &out, &err)

	l, err := e.synth.ForWeeklyLetter(ctx, userID)
	if err != nil {
		return Output{}, loadError(err)
	}
	run := e.run(ctx, job{
		task:    llm.TaskLetter,
		msgType: domain.MessageLetter,
		system:  SystemPrompt(l.Base, domain.MessageLetter),
		prompt:  func(feedback string) string { return LetterPrompt(l, feedback) },
	}.withBase(l.Base))

	out = e.output(l.Base, run)
	e.record(ctx, domain.MessageLetter, l.Base, run, nil)
	return out, nil
}

// GenerateChatResponse answers message. history holds the earlier turns,
// oldest first; only the last ten are sent to the generator.
func (e *Engine) GenerateChatResponse(ctx context.Context, userID, message string, history []domain.ChatTurn) (out Output, err error) {
	defer e.observe(ctx, "generate-chat", userID, time.Now(), &out, &err)

	c, err := e.synth.ForChat(ctx, userID, history)
	if err != nil {
		return Output{}, loadError(err)
	}

	e.append(ctx, &domain.Event{
		UserID:  userID,
		Type:    domain.EventChatMessage,
		Payload: domain.ChatMessagePayload{Role: "user", Text: message},
	})
	e.learn(ctx, userID, message)

	run := e.run(ctx, job{
		task:    llm.TaskChat,
		msgType: domain.MessageChat,
		system:  SystemPrompt(c.Base, domain.MessageChat),
		prompt:  func(feedback string) string { return ChatPrompt(c, message, feedback) },
		history: c.Conversation.RecentMessages,
	}.withBase(c.Base))

	out = e.output(c.Base, run)
	e.record(ctx, domain.MessageChat, c.Base, run, nil)

	e.memory.Store(ctx, userID, domain.MemoryChat, message, map[string]string{
		"role":  "user",
		"state": string(c.State()),
	})
	e.memory.Store(ctx, userID, domain.MemoryChat, run.Text, map[string]string{
		"role":     "assistant",
		"fallback": strconv.FormatBool(run.Fallback),
	})
	return out, nil
}

func (j job) withBase(b *synthesis.Base) job {
	j.userName = b.UserName
	j.state = b.State()
	j.authority = b.Voice.Authority
	j.epistemic = b.Epistemic
	return j
}

func (e *Engine) output(b *synthesis.Base, r Run) Output {
	return Output{
		Text: r.Text,
		Metadata: Metadata{
			ExecutionState: b.State(),
			RiskLevel:      b.CurrentRisk.Level,
			Authority:      b.Voice.Authority,
			DataQuality:    b.Voice.DataQuality,
			Phase:          b.Phase,
			Intensity:      b.Voice.CurrentIntensity,
			Attempts:       r.Attempts,
			Fallback:       r.Fallback,
		},
	}
}

// record logs the generation as a coach_<type> event. Logging failures are
// reported but never fail the request.
func (e *Engine) record(ctx context.Context, t domain.MessageType, b *synthesis.Base, r Run, extra map[string]string) {
	e.append(ctx, &domain.Event{
		UserID: b.UserID,
		Type:   t.EventType(),
		Payload: domain.CoachMessagePayload{
			Text:            truncate(r.Text, logTextLimit),
			ExecutionState:  b.State(),
			RiskLevel:       b.CurrentRisk.Level,
			Authority:       b.Voice.Authority,
			DataQuality:     b.Voice.DataQuality,
			Phase:           b.Phase,
			Intensity:       b.Voice.CurrentIntensity,
			ModelConfidence: b.ModelConfidence,
			Attempts:        r.Attempts,
			Fallback:        r.Fallback,
			Extra:           extra,
		},
	})
}

func (e *Engine) append(ctx context.Context, ev *domain.Event) {
	if e.events == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = e.now()
	}
	if err := e.events.Append(ctx, ev); err != nil {
		e.log.WarnContext(ctx, "logging event failed", "type", ev.Type, "user_id", ev.UserID, "error", err)
	}
}

// learn runs the real-time classifiers over a chat message.
func (e *Engine) learn(ctx context.Context, userID, message string) {
	if e.learned == nil {
		return
	}
	found, err := e.classifiers.Learn(ctx, e.learned, userID, message, domain.MessageChat, e.now())
	if err != nil {
		e.log.WarnContext(ctx, "learning from chat failed", "user_id", userID, "error", err)
	}
	if !found.Empty() {
		e.log.DebugContext(ctx, "learned from chat", "user_id", userID,
			"excuses", len(found.Excuses), "narratives", len(found.Narratives), "commitments", len(found.Commitments))
	}
}

func (e *Engine) observe(ctx context.Context, name, userID string, started time.Time, out *Output, err *error) {
	fields := map[string]any{"user_id": userID}
	if *err == nil {
		fields["state"] = string(out.Metadata.ExecutionState)
		fields["authority"] = string(out.Metadata.Authority)
		fields["attempts"] = out.Metadata.Attempts
		fields["fallback"] = out.Metadata.Fallback
	}
	e.observer.ObserveUseCase(ctx, service.UseCaseEvent{
		Name:      name,
		StartedAt: started,
		Duration:  time.Since(started),
		Success:   *err == nil,
		Err:       *err,
		Fields:    fields,
	})
}

// loadError keeps a missing user distinguishable and marks everything else
// as a store outage.
func loadError(err error) error {
	if errors.Is(err, usermodel.ErrUserNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
