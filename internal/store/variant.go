package store

import (
	"context"

	"github.com/dyncards/dyncards/internal/domain"
)

// VariantStore defines the interface for durable variant-set persistence.
// The durable row is the source of truth across process restarts; the
// in-memory cache hydrates from it on miss.
//
// All operations are synchronous and safe to call from both the interactive
// path and the single background worker: implementations must not share a
// long-lived connection across callers and must scope each call to its own
// statement or transaction.
type VariantStore interface {
	// Load retrieves the variant set for an item.
	// Returns (nil, nil) when no row exists. A physically present but
	// malformed row is treated the same way: logged and reported as a miss,
	// never propagated as an error. Callers must tolerate an empty result
	// even though a row exists.
	Load(ctx context.Context, id domain.CardID) (*domain.VariantSet, error)

	// Save upserts the full row for an item, overwriting any previous state.
	Save(ctx context.Context, vs *domain.VariantSet) error

	// Delete removes the row for an item. Deleting an absent row is a no-op.
	Delete(ctx context.Context, id domain.CardID) error

	// Clear removes every row.
	Clear(ctx context.Context) error
}
