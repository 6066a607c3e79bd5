package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/dyncards/dyncards/internal/generation"
)

// DefaultMistralBaseURL is the chat-completions endpoint for Mistral's
// OpenAI-compatible API.
const DefaultMistralBaseURL = "https://api.mistral.ai/v1"

// Config holds the settings for one OpenAI-compatible endpoint.
type Config struct {
	APIKey  string
	BaseURL string // empty means the SDK's default (api.openai.com)
	Model   string
}

// Client implements generation.Client using the openai-go SDK
// (chat completions). One request, one response; no retry logic here.
type Client struct {
	logger *slog.Logger
	model  string
	opts   []option.RequestOption
}

// New creates a Client for the given endpoint configuration.
func New(logger *slog.Logger, cfg Config) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		logger: logger.With("component", "openaicompat_client", "model", cfg.Model),
		model:  cfg.Model,
		opts:   opts,
	}, nil
}

// Reword sends the source text under the system prompt and returns the
// provider's rewording. Transport failures and non-2xx responses are mapped
// to generation.ErrTransientFailure carrying the provider's message.
func (c *Client) Reword(ctx context.Context, systemPrompt, text string) (string, error) {
	client := openai.NewClient(c.opts...)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(text),
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			c.logger.Warn("chat completion request rejected",
				"status", apiErr.StatusCode,
				"message", apiErr.Message)
			return "", fmt.Errorf("%w: provider returned status %d: %s",
				generation.ErrTransientFailure, apiErr.StatusCode, apiErr.Message)
		}
		c.logger.Warn("chat completion request failed", "error", err)
		return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices in response", generation.ErrTransientFailure)
	}

	return resp.Choices[0].Message.Content, nil
}
