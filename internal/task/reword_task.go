package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dyncards/dyncards/internal/cache"
	"github.com/dyncards/dyncards/internal/domain"
)

// Common constructor errors
var (
	ErrNilReworder = errors.New("reworder cannot be nil")
	ErrNilCache    = errors.New("cache cannot be nil")
	ErrNilLogger   = errors.New("logger cannot be nil")
)

// Reworder is the slice of the generation service the task needs.
type Reworder interface {
	Reword(ctx context.Context, job domain.RewordJob) (string, error)
}

// RewordTask implements the Task interface for producing one new variant of
// an item's text and appending it to the cache.
type RewordTask struct {
	id       uuid.UUID
	job      domain.RewordJob
	reworder Reworder
	cache    *cache.Cache
	logger   *slog.Logger
}

// NewRewordTask creates a reword task for the given job.
func NewRewordTask(
	job domain.RewordJob,
	reworder Reworder,
	variantCache *cache.Cache,
	logger *slog.Logger,
) (*RewordTask, error) {
	if reworder == nil {
		return nil, ErrNilReworder
	}
	if variantCache == nil {
		return nil, ErrNilCache
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	return &RewordTask{
		id:       uuid.New(),
		job:      job,
		reworder: reworder,
		cache:    variantCache,
		logger:   logger.With("task_type", TaskTypeReword, "card_id", job.CardID),
	}, nil
}

// ID returns the task's unique identifier
func (t *RewordTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *RewordTask) Type() string {
	return TaskTypeReword
}

// CardID returns the item this task works on.
func (t *RewordTask) CardID() domain.CardID {
	return t.job.CardID
}

// Execute requests one new variant and appends it to the cache. Exhausted
// retries surface as an error for the runner's boundary handler to report;
// the cache is left untouched in that case.
func (t *RewordTask) Execute(ctx context.Context) error {
	text, err := t.reworder.Reword(ctx, t.job)
	if err != nil {
		return fmt.Errorf("rewording card %d: %w", t.job.CardID, err)
	}

	if _, err := t.cache.Update(ctx, t.job.CardID, cache.Mutation{
		Ordinal:        t.job.Ordinal,
		NewVariantText: &text,
	}); err != nil {
		// The entry was cleared while the job was in flight; drop the result.
		t.logger.Info("discarding variant for cleared card", "error", err)
		return nil
	}

	t.logger.Debug("appended new variant", "variant_length", len(text))
	return nil
}
