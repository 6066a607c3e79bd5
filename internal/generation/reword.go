package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dyncards/dyncards/internal/domain"
)

// Common constructor errors
var (
	ErrNilClient = errors.New("client cannot be nil")
	ErrNilLogger = errors.New("logger cannot be nil")
)

// RewordService orchestrates a provider client and the structural validator
// with bounded retries. Remote generation is flaky: rate limits, transient
// 5xx, or a model dropping a required marker. Retrying a bounded number of
// times with a delay between attempts gives a fair chance at success without
// hammering the provider.
type RewordService struct {
	client       Client
	logger       *slog.Logger
	systemPrompt string
	maxRetries   int
	retryDelay   time.Duration
}

// NewRewordService creates a RewordService. maxRetries is the number of
// retries after the first attempt, so a job makes at most maxRetries+1 calls.
func NewRewordService(
	client Client,
	logger *slog.Logger,
	systemPrompt string,
	maxRetries int,
	retryDelay time.Duration,
) (*RewordService, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &RewordService{
		client:       client,
		logger:       logger,
		systemPrompt: systemPrompt,
		maxRetries:   maxRetries,
		retryDelay:   retryDelay,
	}, nil
}

// Reword requests one new variant for the job's source text. On provider
// failure or a structural validation miss it sleeps for the retry delay and
// tries again, up to the configured bound. When every attempt is exhausted
// it returns an error wrapping ErrNoVariantProduced: the caller reports a
// transient notice and leaves the cache untouched, never escalating further.
func (s *RewordService) Reword(ctx context.Context, job domain.RewordJob) (string, error) {
	if job.SourceText == "" {
		return "", ErrEmptySourceText
	}

	log := s.logger.With("card_id", job.CardID, "ordinal", job.Ordinal)

	var lastErr error
	attempts := s.maxRetries + 1

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(s.retryDelay):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrNoVariantProduced, ctx.Err())
			}
		}

		text, err := s.client.Reword(ctx, s.systemPrompt, job.SourceText)
		if err != nil {
			lastErr = err
			log.Warn("reword attempt failed",
				"attempt", attempt,
				"max_attempts", attempts,
				"reason", "provider_error",
				"error", err)
			continue
		}

		if !ValidateStructure(job.SourceText, text, job.StructuralTokens) {
			// Distinct failure reason so provider flakiness and marker loss
			// are distinguishable in the logs.
			lastErr = fmt.Errorf("%w: missing structural token", ErrValidationFailed)
			log.Warn("reword attempt failed",
				"attempt", attempt,
				"max_attempts", attempts,
				"reason", "validation_failed",
				"tokens", job.StructuralTokens)
			continue
		}

		log.Debug("reword attempt succeeded",
			"attempt", attempt,
			"variant_length", len(text))
		return text, nil
	}

	return "", fmt.Errorf("%w after %d attempts: %w", ErrNoVariantProduced, attempts, lastErr)
}
