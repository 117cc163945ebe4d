package coach

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/futureyou/futureyou-os/internal/learning"
	"github.com/futureyou/futureyou-os/internal/llm"
	"github.com/futureyou/futureyou-os/internal/memory"
	"github.com/futureyou/futureyou-os/internal/service"
	"github.com/futureyou/futureyou-os/internal/synthesis"
	"github.com/futureyou/futureyou-os/internal/usermodel"
	"github.com/futureyou/futureyou-os/internal/voice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)

const goodBrief = "Sam, this is the first morning we have together, so I am mostly here to watch and learn how your days actually run. " +
	"Nothing is expected of you yet beyond showing up for one small thing.\n\n" +
	"What is the one habit you want to see done by tonight? What usually gets in the way before noon?"

const bannedBrief = "Sam, you've got this. Believe in yourself and the rest will follow, today and every day after it. " +
	"There is nothing standing between you and the person you want to be except a little patience.\n\n" +
	"What will you do first? What will you do after that?"

// scriptedGenerator replays replies in order and records every request.
type scriptedGenerator struct {
	mu       sync.Mutex
	replies  []string
	err      error
	requests []llm.GenerateRequest
}

func (g *scriptedGenerator) Generate(_ context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	i := len(g.requests) - 1
	if i >= len(g.replies) {
		i = len(g.replies) - 1
	}
	return &llm.GenerateResponse{Text: g.replies[i], Model: "test"}, nil
}

func (g *scriptedGenerator) Available(context.Context) bool { return true }

type stubModels struct {
	model *domain.DeepUserModel
	err   error
}

func (s stubModels) Build(context.Context, string) (*domain.DeepUserModel, error) {
	return s.model, s.err
}

type recordingLog struct {
	events []*domain.Event
	err    error
}

func (l *recordingLog) Append(_ context.Context, e *domain.Event) error {
	if l.err != nil {
		return l.err
	}
	l.events = append(l.events, e)
	return nil
}

type memoryEntry struct {
	kind domain.MemoryType
	text string
}

type recordingMemory struct {
	entries []memoryEntry
}

func (m *recordingMemory) Store(_ context.Context, _ string, t domain.MemoryType, text string, _ map[string]string) {
	m.entries = append(m.entries, memoryEntry{kind: t, text: text})
}

func (m *recordingMemory) Query(context.Context, string, domain.MemoryType, string, int, float64) []memory.Hit {
	return nil
}

func (m *recordingMemory) Recent(context.Context, string, domain.MemoryType, int) []memory.Hit {
	return nil
}

type recordingSink struct {
	excuses     []string
	narratives  []string
	commitments []domain.CommitmentRecord
}

func (s *recordingSink) AddExcuse(_ context.Context, _, phrase string, _ bool) error {
	s.excuses = append(s.excuses, phrase)
	return nil
}

func (s *recordingSink) AddNarrative(_ context.Context, _, narrative string, _ domain.NarrativeSentiment) error {
	s.narratives = append(s.narratives, narrative)
	return nil
}

func (s *recordingSink) AddCommitment(_ context.Context, _ string, rec domain.CommitmentRecord) (domain.CommitmentRecord, error) {
	rec.ID = "c1"
	s.commitments = append(s.commitments, rec)
	return rec, nil
}

type captureObserver struct {
	events []service.UseCaseEvent
}

func (o *captureObserver) ObserveUseCase(_ context.Context, e service.UseCaseEvent) {
	o.events = append(o.events, e)
}

func newModel() *domain.DeepUserModel {
	return &domain.DeepUserModel{
		Identity: domain.UserIdentity{UserID: "u1", Name: "Sam", Timezone: "UTC"},
		Behavior: domain.UserBehavior{DaysSinceLastAction: 999},
		Patterns: domain.UserPatterns{EngagementPattern: domain.EngagementNewUser},
		Psychology: domain.UserPsychology{
			ShameSensitivity: domain.DefaultShameSensitivity(),
			MotivationStyle:  domain.MotivationUnknown,
		},
		Predictions:     domain.UserPredictions{SlipRisk: domain.SlipRiskAssessment{Level: domain.RiskMedium}},
		Arc:             domain.UserArc{Phase: domain.PhaseObserver},
		ModelConfidence: domain.ConfidenceInsufficient,
		Recent:          domain.RecentActivity{Today: "2026-03-11", Location: time.UTC},
	}
}

func newSynth(m *domain.DeepUserModel, err error) *synthesis.Synthesizer {
	return synthesis.New(stubModels{model: m, err: err}, nil, synthesis.WithClock(func() time.Time { return fixedNow }))
}

func newEngine(gen llm.Generator, events EventLog, opts ...Option) *Engine {
	opts = append(opts, WithClock(func() time.Time { return fixedNow }))
	return NewEngine(newSynth(newModel(), nil), gen, events, opts...)
}

func TestGenerateBrief_NewUserIsHumbleAndAsks(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{goodBrief}}
	events := &recordingLog{}

	out, err := newEngine(gen, events).GenerateBrief(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, goodBrief, out.Text)
	assert.Equal(t, domain.AuthorityHumble, out.Metadata.Authority)
	assert.Equal(t, domain.PhaseObserver, out.Metadata.Phase)
	assert.False(t, out.Metadata.Fallback)
	assert.Equal(t, 1, out.Metadata.Attempts)
	assert.Contains(t, out.Text, "?")
	assert.Len(t, out.Metadata.QuestionsAsked, 2)

	require.Len(t, gen.requests, 1)
	assert.Equal(t, llm.TaskBrief, gen.requests[0].Task)
	assert.Contains(t, gen.requests[0].SystemPrompt, "CURRENT AUTHORITY LEVEL: HUMBLE")
	assert.Contains(t, gen.requests[0].UserPrompt, "Write a morning brief for Sam.")

	require.Len(t, events.events, 1)
	ev := events.events[0]
	assert.Equal(t, domain.EventCoachBrief, ev.Type)
	assert.Equal(t, fixedNow, ev.Timestamp)
	payload, ok := ev.Payload.(domain.CoachMessagePayload)
	require.True(t, ok)
	assert.Equal(t, goodBrief, payload.Text)
	assert.Equal(t, 1, payload.Attempts)
}

func TestGenerateBrief_BannedPhraseTwiceFallsBack(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{bannedBrief, bannedBrief}}

	out, err := newEngine(gen, nil).GenerateBrief(context.Background(), "u1")
	require.NoError(t, err)

	want := voice.Fallback(out.Metadata.ExecutionState, domain.MessageBrief, out.Metadata.Authority, "Sam")
	assert.Equal(t, want, out.Text)
	assert.NotContains(t, strings.ToLower(out.Text), "you've got this")
	assert.True(t, out.Metadata.Fallback)
	assert.Equal(t, MaxAttempts, out.Metadata.Attempts)
	assert.Len(t, gen.requests, MaxAttempts)
}

func TestGenerateBrief_RetryCarriesFeedback(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{bannedBrief, goodBrief}}

	out, err := newEngine(gen, nil).GenerateBrief(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, goodBrief, out.Text)
	assert.Equal(t, 2, out.Metadata.Attempts)
	assert.False(t, out.Metadata.Fallback)

	require.Len(t, gen.requests, 2)
	assert.NotContains(t, gen.requests[0].UserPrompt, "YOUR LAST DRAFT WAS REJECTED")
	assert.Contains(t, gen.requests[1].UserPrompt, "YOUR LAST DRAFT WAS REJECTED")
	assert.Contains(t, gen.requests[1].UserPrompt, string(voice.CodeBannedPhrase))
}

func TestEntryPoints_AlwaysReturnTextWhenGeneratorFails(t *testing.T) {
	ctx := context.Background()
	gen := &scriptedGenerator{err: llm.ErrUnavailable}
	e := newEngine(gen, &recordingLog{})

	calls := map[string]func() (Output, error){
		"brief":   func() (Output, error) { return e.GenerateBrief(ctx, "u1") },
		"nudge":   func() (Output, error) { return e.GenerateNudge(ctx, "u1", "midday_check", "nothing done yet", 3) },
		"debrief": func() (Output, error) { return e.GenerateDebrief(ctx, "u1") },
		"letter":  func() (Output, error) { return e.GenerateWeeklyLetter(ctx, "u1") },
		"chat":    func() (Output, error) { return e.GenerateChatResponse(ctx, "u1", "hi", nil) },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			out, err := call()
			require.NoError(t, err)
			assert.NotEmpty(t, strings.TrimSpace(out.Text))
			assert.True(t, out.Metadata.Fallback)
			assert.Equal(t, MaxAttempts, out.Metadata.Attempts)
		})
	}
}

func TestNewEngine_NilGeneratorFallsBack(t *testing.T) {
	out, err := newEngine(nil, nil).GenerateNudge(context.Background(), "u1", "midday_check", "", 2)
	require.NoError(t, err)

	assert.True(t, out.Metadata.Fallback)
	assert.Equal(t, "midday_check", out.Metadata.Trigger)
	assert.Equal(t, voice.Fallback(out.Metadata.ExecutionState, domain.MessageNudge, out.Metadata.Authority, "Sam"), out.Text)
}

func TestGenerateNudge_LogsTrigger(t *testing.T) {
	events := &recordingLog{}
	gen := &scriptedGenerator{err: llm.ErrTimeout}

	_, err := newEngine(gen, events).GenerateNudge(context.Background(), "u1", "streak_risk", "evening and not done", 4)
	require.NoError(t, err)

	require.Len(t, events.events, 1)
	assert.Equal(t, domain.EventCoachNudge, events.events[0].Type)
	payload := events.events[0].Payload.(domain.CoachMessagePayload)
	assert.Equal(t, "streak_risk", payload.Extra["trigger"])
	assert.Equal(t, "4", payload.Extra["severity"])
	assert.True(t, payload.Fallback)
}

func TestGenerateChatResponse_LogsLearnsAndRemembers(t *testing.T) {
	reply := "Sam, tired is real, but it has shown up a lot lately. What would the smallest version of tonight look like?"
	gen := &scriptedGenerator{replies: []string{reply}}
	events := &recordingLog{}
	mem := &recordingMemory{}
	sink := &recordingSink{}
	history := []domain.ChatTurn{
		{Role: "user", Content: "rough day"},
		{Role: "assistant", Content: "Tell me what happened."},
	}

	e := newEngine(gen, events, WithMemory(mem), WithLearning(sink, learning.DefaultClassifiers()))
	out, err := e.GenerateChatResponse(context.Background(), "u1", "I was too tired. I'll do it tomorrow.", history)
	require.NoError(t, err)

	assert.Equal(t, reply, out.Text)
	require.Len(t, gen.requests, 1)
	assert.Equal(t, history, gen.requests[0].History)
	assert.Contains(t, gen.requests[0].UserPrompt, "I was too tired. I'll do it tomorrow.")

	require.Len(t, events.events, 2)
	assert.Equal(t, domain.EventChatMessage, events.events[0].Type)
	assert.Equal(t, domain.ChatMessagePayload{Role: "user", Text: "I was too tired. I'll do it tomorrow."}, events.events[0].Payload)
	assert.Equal(t, domain.EventCoachChat, events.events[1].Type)

	assert.Equal(t, []string{"too tired"}, sink.excuses)
	require.Len(t, sink.commitments, 1)
	assert.Equal(t, "tomorrow", sink.commitments[0].ExtractedTime)

	require.Len(t, mem.entries, 2)
	assert.Equal(t, memoryEntry{kind: domain.MemoryChat, text: "I was too tired. I'll do it tomorrow."}, mem.entries[0])
	assert.Equal(t, memoryEntry{kind: domain.MemoryChat, text: reply}, mem.entries[1])
}

func TestEngine_EventLogFailureDoesNotFailRequest(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{goodBrief}}
	events := &recordingLog{err: errors.New("disk full")}

	out, err := newEngine(gen, events).GenerateBrief(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, goodBrief, out.Text)
}

func TestEngine_UserNotFoundPassesThrough(t *testing.T) {
	e := NewEngine(newSynth(nil, usermodel.ErrUserNotFound), nil, nil)

	_, err := e.GenerateBrief(context.Background(), "ghost")
	assert.ErrorIs(t, err, usermodel.ErrUserNotFound)
	assert.NotErrorIs(t, err, ErrStoreUnavailable)
}

func TestEngine_StoreErrorIsUnavailable(t *testing.T) {
	boom := errors.New("database is locked")
	e := NewEngine(newSynth(nil, boom), nil, nil)

	_, err := e.GenerateDebrief(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, boom)
}

func TestEngine_ObservesEveryCall(t *testing.T) {
	obs := &captureObserver{}
	gen := &scriptedGenerator{replies: []string{goodBrief}}
	e := newEngine(gen, nil, WithObserver(obs))

	_, err := e.GenerateBrief(context.Background(), "u1")
	require.NoError(t, err)

	require.Len(t, obs.events, 1)
	ev := obs.events[0]
	assert.Equal(t, "generate-brief", ev.Name)
	assert.True(t, ev.Success)
	assert.Equal(t, "u1", ev.Fields["user_id"])
	assert.Equal(t, false, ev.Fields["fallback"])
}
