// Package llm wraps the chat-completion model used for thought extraction.
// The wrapper pins JSON-object response mode so callers can parse replies as
// strict JSON.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// ErrEmptyResponse indicates the model returned no usable content.
var ErrEmptyResponse = errors.New("model returned empty response")

// Config holds completion model configuration. BaseURL may point at any
// OpenAI-compatible endpoint.
type Config struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float64
}

// Client is a thin completion client over langchaingo's OpenAI binding.
type Client struct {
	model       llms.Model
	temperature float64
}

// New creates a completion client with forced JSON-object responses.
func New(cfg Config) (*Client, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("completion model required")
	}

	opts := []openai.Option{
		openai.WithModel(cfg.Model),
		openai.WithResponseFormat(openai.ResponseFormatJSON),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating completion client: %w", err)
	}

	return &Client{model: model, temperature: cfg.Temperature}, nil
}

// Complete sends one system+user exchange and returns the raw text of the
// first choice. A single attempt; retry policy belongs to callers.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, userPrompt),
	}

	resp, err := c.model.GenerateContent(ctx, messages, llms.WithTemperature(c.temperature))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", ErrEmptyResponse
	}

	return resp.Choices[0].Content, nil
}
