package providers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dyncards/dyncards/internal/config"
	"github.com/dyncards/dyncards/internal/generation"
	"github.com/dyncards/dyncards/internal/platform/gemini"
	"github.com/dyncards/dyncards/internal/platform/openaicompat"
)

// Supported provider selections.
const (
	ProviderMistral = "mistral"
	ProviderOpenAI  = "openai"
	ProviderGemini  = "gemini"
)

// New builds the generation client named by cfg.Provider. An unknown
// selection returns an error wrapping generation.ErrInvalidConfig; it is
// surfaced once, when the session is created, and never retried.
func New(ctx context.Context, logger *slog.Logger, cfg config.GenerationConfig) (generation.Client, error) {
	switch cfg.Provider {
	case ProviderMistral:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = openaicompat.DefaultMistralBaseURL
		}
		return openaicompat.New(logger, openaicompat.Config{
			APIKey:  cfg.APIKey,
			BaseURL: baseURL,
			Model:   cfg.Model,
		})

	case ProviderOpenAI:
		return openaicompat.New(logger, openaicompat.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})

	case ProviderGemini:
		return gemini.New(ctx, logger, gemini.Config{
			APIKey: cfg.APIKey,
			Model:  cfg.Model,
		})

	default:
		return nil, fmt.Errorf("%w: unknown provider %q", generation.ErrInvalidConfig, cfg.Provider)
	}
}
