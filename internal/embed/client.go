// Package embed wraps the embedding model used for semantic recall.
// Embedding is best-effort enrichment: callers must tolerate failure without
// blocking anything else.
package embed

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrEmptyText indicates there was nothing to embed.
var ErrEmptyText = errors.New("empty text")

// Config holds embedding model configuration. BaseURL may point at any
// OpenAI-compatible endpoint (OpenAI, TEI, etc.).
type Config struct {
	BaseURL string
	Model   string
	APIKey  string
	Dims    int
}

// Client generates one embedding per thought text.
type Client struct {
	embedder embeddings.Embedder
	model    string
	dims     int
}

// New creates an embedding client.
func New(cfg Config) (*Client, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model required")
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		// langchaingo requires a token; local OpenAI-compatible servers
		// ignore it.
		apiKey = "placeholder"
	}

	opts := []openai.Option{
		openai.WithModel(cfg.Model),
		openai.WithEmbeddingModel(cfg.Model),
		openai.WithToken(apiKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating embedding client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &Client{embedder: embedder, model: cfg.Model, dims: cfg.Dims}, nil
}

// Model returns the configured embedding model name.
func (c *Client) Model() string { return c.model }

// Dims returns the expected vector length.
func (c *Client) Dims() int { return c.dims }

// Embed generates a vector for one text. A single attempt, no retry.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	vec, err := c.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("embedding provider returned empty vector")
	}

	return vec, nil
}
