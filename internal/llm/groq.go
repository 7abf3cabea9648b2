package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

const (
	groqBaseURL     = "https://api.groq.com/openai/v1"
	groqModel       = "llama-3.3-70b-versatile"
	groqTemperature = 0.7
)

// Completer turns a prompt into a text completion.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GroqClient is a Completer backed by Groq's OpenAI-compatible API.
type GroqClient struct {
	client *openai.Client
	model  string
}

// GroqOpts configures a GroqClient. BaseURL and Model default to the
// Groq endpoint and llama-3.3-70b-versatile.
type GroqOpts struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewGroqClient creates a Groq-backed completer.
func NewGroqClient(opts GroqOpts) (*GroqClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("groq api key is required")
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = groqBaseURL
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	model := groqModel
	if opts.Model != "" {
		model = opts.Model
	}

	return &GroqClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// Complete sends the prompt as a single user message and returns the
// model's reply.
func (g *GroqClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: groqTemperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("groq completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from groq")
	}

	log.Info().
		Str("model", g.model).
		Int("inputTokens", resp.Usage.PromptTokens).
		Int("outputTokens", resp.Usage.CompletionTokens).
		Msg("stock analysis llm call")

	return resp.Choices[0].Message.Content, nil
}
