package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/futureyou/futureyou-os/internal/domain"
	"google.golang.org/genai"
)

// DefaultGenAIModel is used when the provider is genai and no model is set.
const DefaultGenAIModel = "gemini-2.5-flash"

// genaiClient implements Generator on the Gemini API.
type genaiClient struct {
	cfg      LLMConfig
	client   *genai.Client
	observer Observer
}

// NewGenAIClient creates a Generator backed by the Gemini API. cfg.APIKey must
// be set.
func NewGenAIClient(ctx context.Context, cfg LLMConfig, observer Observer) (Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: genai needs an api key", ErrMisconfigured)
	}
	if observer == nil {
		observer = NoopObserver{}
	}
	if cfg.Model == "" || cfg.Model == DefaultConfig().Model {
		cfg.Model = DefaultGenAIModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &genaiClient{cfg: cfg, client: client, observer: observer}, nil
}

func (c *genaiClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	start := time.Now()
	temp, maxTok := c.cfg.options(req)

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.TaskTimeout(req.Task))*time.Millisecond)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(temp)),
		MaxOutputTokens: int32(maxTok),
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	contents := genaiContents(req.History, req.UserPrompt)

	var lastErr error
	for i := 0; i < 1+c.cfg.MaxRetries; i++ {
		resp, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, contents, config)
		var text string
		if err == nil {
			text = resp.Text()
			if strings.TrimSpace(text) == "" {
				err = ErrEmptyResponse
			}
		}
		if err == nil {
			latency := time.Since(start).Milliseconds()
			c.observer.OnCallComplete(LLMCallEvent{
				Task:      req.Task,
				Model:     c.cfg.Model,
				LatencyMs: latency,
				Success:   true,
			})
			return &GenerateResponse{Text: text, Model: c.cfg.Model, LatencyMs: latency}, nil
		}
		lastErr = err
		if errors.Is(err, ErrEmptyResponse) || ctx.Err() != nil {
			break
		}
	}

	err := classify(ctx, lastErr)
	c.observer.OnCallComplete(LLMCallEvent{
		Task:      req.Task,
		Model:     c.cfg.Model,
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   false,
		ErrorCode: errorCode(err),
	})
	return nil, err
}

func (c *genaiClient) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := c.client.Models.Get(ctx, c.cfg.Model, nil)
	return err == nil
}

// genaiContents maps chat history onto Gemini roles and appends the prompt
// as the final user turn.
func genaiContents(history []domain.ChatTurn, prompt string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		if turn.Role == "assistant" {
			contents = append(contents, genai.NewContentFromText(turn.Content, genai.RoleModel))
			continue
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, genai.RoleUser))
	}
	return append(contents, genai.NewContentFromText(prompt, genai.RoleUser))
}
