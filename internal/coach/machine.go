package coach

import (
	"context"
	"fmt"
	"strings"

	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/futureyou/futureyou-os/internal/epistemic"
	"github.com/futureyou/futureyou-os/internal/llm"
	"github.com/futureyou/futureyou-os/internal/voice"
)

// MaxAttempts bounds generator calls per message.
const MaxAttempts = 2

// State is a step of the generation loop.
type State int

const (
	StateBuildPrompt State = iota
	StateCallGenerator
	StateValidate
	StateFallback
	StateDone
)

func (s State) String() string {
	switch s {
	case StateBuildPrompt:
		return "build_prompt"
	case StateCallGenerator:
		return "call_generator"
	case StateValidate:
		return "validate"
	case StateFallback:
		return "fallback"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Next is the transition function. ok reports whether the step in s
// succeeded; attempt counts prompts built so far. A failed generator call is
// handled exactly like a failed validation.
func Next(s State, ok bool, attempt int) State {
	switch s {
	case StateBuildPrompt:
		return StateCallGenerator
	case StateCallGenerator:
		if ok {
			return StateValidate
		}
		return afterFailure(attempt)
	case StateValidate:
		if ok {
			return StateDone
		}
		return afterFailure(attempt)
	case StateFallback:
		return StateDone
	}
	return StateDone
}

func afterFailure(attempt int) State {
	if attempt < MaxAttempts {
		return StateBuildPrompt
	}
	return StateFallback
}

// job is everything one generation needs.
type job struct {
	task      llm.TaskType
	msgType   domain.MessageType
	system    string
	prompt    func(feedback string) string
	history   []domain.ChatTurn
	userName  string
	state     domain.ExecutionState
	authority domain.Authority
	epistemic epistemic.Context
}

// Run is the outcome of one pass through the machine.
type Run struct {
	Text       string
	Attempts   int
	Fallback   bool
	Violations []string // from the last failed attempt
	Trace      []State
}

func (e *Engine) run(ctx context.Context, j job) Run {
	var (
		r        Run
		feedback string
		prompt   string
		raw      string
	)
	st := StateBuildPrompt
	for st != StateDone {
		r.Trace = append(r.Trace, st)
		ok := true
		switch st {
		case StateBuildPrompt:
			r.Attempts++
			prompt = j.prompt(feedback)

		case StateCallGenerator:
			resp, err := e.gen.Generate(ctx, llm.GenerateRequest{
				Task:         j.task,
				SystemPrompt: j.system,
				UserPrompt:   prompt,
				History:      j.history,
			})
			if err != nil {
				ok = false
				r.Violations = []string{"GENERATION_FAILED: " + err.Error()}
				feedback = ""
				e.log.WarnContext(ctx, "generation failed",
					"type", j.msgType, "attempt", r.Attempts, "error", err)
				break
			}
			raw = resp.Text

		case StateValidate:
			text, epistemicViolations := e.postProcess(raw, j)
			result := voice.Validate(text, voice.Options{MessageType: j.msgType, UserName: j.userName})
			if result.Passed {
				r.Text = text
				r.Violations = nil
				break
			}
			ok = false
			r.Violations = result.Messages()
			feedback = result.Feedback()
			e.log.InfoContext(ctx, "draft rejected",
				"type", j.msgType, "attempt", r.Attempts, "severity", result.Severity,
				"violations", strings.Join(r.Violations, "; "),
				"epistemic_rewrites", len(epistemicViolations))

		case StateFallback:
			r.Text = voice.Fallback(j.state, j.msgType, j.authority, j.userName)
			r.Fallback = true
		}
		st = Next(st, ok, r.Attempts)
	}
	return r
}

// postProcess strips filler and rewrites claims the user's epistemic
// context does not allow.
func (e *Engine) postProcess(raw string, j job) (string, []string) {
	text := voice.Clean(raw, j.userName)
	return j.epistemic.Clean(text)
}
