package llm

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every generator environment variable.
const EnvPrefix = "FUTUREYOU_LLM_"

// TaskType identifies which coaching message a generation call is for.
type TaskType string

const (
	TaskBrief   TaskType = "brief"
	TaskNudge   TaskType = "nudge"
	TaskDebrief TaskType = "debrief"
	TaskLetter  TaskType = "letter"
	TaskChat    TaskType = "chat"
)

// Provider names a generator backend.
type Provider string

const (
	ProviderOllama Provider = "ollama"
	ProviderGenAI  Provider = "genai"
)

// TaskConfig holds per-task generation parameters.
type TaskConfig struct {
	Temperature float64
	MaxTokens   int
	TimeoutMs   int // overrides global if > 0
}

// LLMConfig holds all configuration for the generator.
type LLMConfig struct {
	Enabled    bool     `env:"ENABLED"`
	LogCalls   bool     `env:"LOG_CALLS"`
	Provider   Provider `env:"PROVIDER"`
	Endpoint   string   `env:"ENDPOINT"`
	Model      string   `env:"MODEL"`
	APIKey     string   `env:"API_KEY"`
	TimeoutMs  int      `env:"TIMEOUT_MS"`
	MaxRetries int      `env:"MAX_RETRIES"`

	Tasks map[TaskType]TaskConfig
}

// taskTimeouts mirrors the per-task timeout variables, e.g.
// FUTUREYOU_LLM_BRIEF_TIMEOUT_MS. Zero leaves the default alone.
type taskTimeouts struct {
	Brief   int `env:"BRIEF_TIMEOUT_MS"`
	Nudge   int `env:"NUDGE_TIMEOUT_MS"`
	Debrief int `env:"DEBRIEF_TIMEOUT_MS"`
	Letter  int `env:"LETTER_TIMEOUT_MS"`
	Chat    int `env:"CHAT_TIMEOUT_MS"`
}

// DefaultConfig returns an LLMConfig with sensible defaults.
// The generator is disabled by default, so every message comes from the
// static example bank until one is configured.
func DefaultConfig() LLMConfig {
	return LLMConfig{
		Enabled:    false,
		Provider:   ProviderOllama,
		Endpoint:   "http://localhost:11434",
		Model:      "llama3.2",
		TimeoutMs:  20000,
		MaxRetries: 1,
		Tasks: map[TaskType]TaskConfig{
			TaskBrief:   {Temperature: 0.8, MaxTokens: 600},
			TaskNudge:   {Temperature: 0.7, MaxTokens: 200, TimeoutMs: 10000},
			TaskDebrief: {Temperature: 0.8, MaxTokens: 600},
			TaskLetter:  {Temperature: 0.85, MaxTokens: 1000, TimeoutMs: 30000},
			TaskChat:    {Temperature: 0.8, MaxTokens: 500},
		},
	}
}

// LoadConfig overlays FUTUREYOU_LLM_* environment variables onto the
// defaults. Unset variables keep their default.
func LoadConfig() (LLMConfig, error) {
	cfg := DefaultConfig()
	opts := env.Options{Prefix: EnvPrefix}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return LLMConfig{}, fmt.Errorf("parsing llm environment: %w", err)
	}

	var timeouts taskTimeouts
	if err := env.ParseWithOptions(&timeouts, opts); err != nil {
		return LLMConfig{}, fmt.Errorf("parsing llm task timeouts: %w", err)
	}
	applyTaskTimeout(&cfg, TaskBrief, timeouts.Brief)
	applyTaskTimeout(&cfg, TaskNudge, timeouts.Nudge)
	applyTaskTimeout(&cfg, TaskDebrief, timeouts.Debrief)
	applyTaskTimeout(&cfg, TaskLetter, timeouts.Letter)
	applyTaskTimeout(&cfg, TaskChat, timeouts.Chat)

	if err := cfg.Validate(); err != nil {
		return LLMConfig{}, err
	}
	return cfg, nil
}

func (c LLMConfig) Validate() error {
	switch c.Provider {
	case ProviderOllama:
	case ProviderGenAI:
		if c.Enabled && c.APIKey == "" {
			return fmt.Errorf("%w: genai provider needs %sAPI_KEY", ErrMisconfigured, EnvPrefix)
		}
	default:
		return fmt.Errorf("%w: provider %q: want ollama or genai", ErrMisconfigured, c.Provider)
	}
	if c.TimeoutMs <= 0 {
		return fmt.Errorf("%w: timeout must be > 0", ErrMisconfigured)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must be >= 0", ErrMisconfigured)
	}
	return nil
}

// TaskTimeout returns the effective timeout for a given task type.
// Uses the task-specific timeout if set, otherwise the global timeout.
func (c LLMConfig) TaskTimeout(task TaskType) int {
	if tc, ok := c.Tasks[task]; ok && tc.TimeoutMs > 0 {
		return tc.TimeoutMs
	}
	return c.TimeoutMs
}

// options resolves temperature and token limit for a request, letting the
// request override the task defaults.
func (c LLMConfig) options(req GenerateRequest) (float64, int) {
	tc := c.Tasks[req.Task]
	temp, maxTok := tc.Temperature, tc.MaxTokens
	if req.Temperature != nil {
		temp = *req.Temperature
	}
	if req.MaxTokens != nil {
		maxTok = *req.MaxTokens
	}
	return temp, maxTok
}

func applyTaskTimeout(cfg *LLMConfig, task TaskType, ms int) {
	if ms <= 0 {
		return
	}
	tc := cfg.Tasks[task]
	tc.TimeoutMs = ms
	cfg.Tasks[task] = tc
}
