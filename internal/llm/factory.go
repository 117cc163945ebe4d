package llm

import (
	"context"
	"fmt"
)

// NewFromConfig picks the generator backend named by cfg. A disabled config
// yields a generator that always fails with ErrDisabled, which callers treat
// like any other generation failure.
func NewFromConfig(ctx context.Context, cfg LLMConfig, observer Observer) (Generator, error) {
	if !cfg.Enabled {
		return Disabled{}, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ProviderGenAI:
		return NewGenAIClient(ctx, cfg, observer)
	case ProviderOllama:
		return NewOllamaClient(cfg, observer), nil
	}
	return nil, fmt.Errorf("%w: provider %q", ErrMisconfigured, cfg.Provider)
}

// Disabled is the generator used when no backend is configured.
type Disabled struct{}

func (Disabled) Generate(context.Context, GenerateRequest) (*GenerateResponse, error) {
	return nil, ErrDisabled
}

func (Disabled) Available(context.Context) bool { return false }
