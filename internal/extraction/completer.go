package extraction

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-validator/internal/model"
	"github.com/sells-group/lead-validator/pkg/anthropic"
	"github.com/sells-group/lead-validator/pkg/openai"
)

// Default models per provider.
const (
	DefaultOpenAIModel    = openai.DefaultModel
	DefaultAnthropicModel = "claude-haiku-4-5-20251001"
	DefaultMaxTokens      = 2048
)

// OpenAICompleter sends prompts through the OpenAI chat completions API at
// temperature 0.
type OpenAICompleter struct {
	client    openai.Client
	model     string
	maxTokens int64
}

// NewOpenAICompleter creates an OpenAICompleter. Empty model and zero
// maxTokens fall back to defaults.
func NewOpenAICompleter(client openai.Client, model string, maxTokens int64) *OpenAICompleter {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &OpenAICompleter{client: client, model: model, maxTokens: maxTokens}
}

// Complete implements Completer.
func (c *OpenAICompleter) Complete(ctx context.Context, system, user string) (*Completion, error) {
	temp := 0.0
	resp, err := c.client.ChatCompletion(ctx, openai.ChatRequest{
		Model:       c.model,
		System:      system,
		User:        user,
		MaxTokens:   c.maxTokens,
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrap(err, "extraction: openai completion")
	}
	resp.Usage.LogCost(c.model, "extract")
	return &Completion{
		Text:  resp.Content,
		Model: c.model,
		Usage: model.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
		Cost: resp.Usage.EstimateCost(c.model),
	}, nil
}

// AnthropicCompleter sends prompts through the Anthropic messages API at
// temperature 0. The system prompt is marked cacheable.
type AnthropicCompleter struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicCompleter creates an AnthropicCompleter. Empty model and zero
// maxTokens fall back to defaults.
func NewAnthropicCompleter(client anthropic.Client, model string, maxTokens int64) *AnthropicCompleter {
	if model == "" {
		model = DefaultAnthropicModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &AnthropicCompleter{client: client, model: model, maxTokens: maxTokens}
}

// Complete implements Completer.
func (c *AnthropicCompleter) Complete(ctx context.Context, system, user string) (*Completion, error) {
	temp := 0.0
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		System:      []anthropic.SystemBlock{{Text: system, CacheControl: &anthropic.CacheControl{}}},
		Messages:    []anthropic.Message{{Role: "user", Content: user}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrap(err, "extraction: anthropic completion")
	}
	resp.Usage.LogCost(c.model, "extract")
	return &Completion{
		Text:  resp.Text(),
		Model: c.model,
		Usage: model.TokenUsage{
			InputTokens:  resp.Usage.InputTokens + resp.Usage.CacheCreationInputTokens + resp.Usage.CacheReadInputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
		Cost: resp.Usage.EstimateCost(c.model),
	}, nil
}
