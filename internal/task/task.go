package task

import (
	"context"

	"github.com/google/uuid"

	"github.com/dyncards/dyncards/internal/domain"
)

// Task type constants
const (
	// TaskTypeReword represents the task type for generating one new
	// variant of an item's text.
	TaskTypeReword = "reword"
)

// Task represents a unit of background work to be processed
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// CardID returns the item this task works on. The runner uses it to
	// keep at most one task in flight per item.
	CardID() domain.CardID

	// Execute runs the task logic
	Execute(ctx context.Context) error
}
