package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/dyncards/dyncards/internal/generation"
)

// Config holds the settings for the Gemini backend.
type Config struct {
	APIKey string
	Model  string
}

// Client implements generation.Client using the Gemini API.
type Client struct {
	logger *slog.Logger
	client *genai.Client
	model  string
}

// New creates a Client for the Gemini API backend.
func New(ctx context.Context, logger *slog.Logger, cfg Config) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &Client{
		logger: logger.With("component", "gemini_client", "model", cfg.Model),
		client: client,
		model:  cfg.Model,
	}, nil
}

// Reword sends the source text under the system prompt and returns the
// model's rewording. API failures and empty responses are mapped to
// generation.ErrTransientFailure.
func (c *Client) Reword(ctx context.Context, systemPrompt, text string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(text), cfg)
	if err != nil {
		c.logger.Warn("generate content request failed", "error", err)
		return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}

	out := resp.Text()
	if out == "" {
		return "", fmt.Errorf("%w: empty response from model", generation.ErrTransientFailure)
	}

	return out, nil
}
