package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dyncards/dyncards/internal/domain"
	"github.com/dyncards/dyncards/internal/store"
)

// Common constructor errors
var (
	ErrNilStore  = errors.New("store cannot be nil")
	ErrNilLogger = errors.New("logger cannot be nil")

	// ErrUnknownCard is returned by Update when no entry exists for the
	// item, e.g. because it was cleared while a job was in flight.
	ErrUnknownCard = errors.New("no cached entry for card")
)

// Mutation describes a partial update to one item's variant set. Nil fields
// are left untouched. Ordinal scopes the Reps and LastShownIndex fields.
type Mutation struct {
	Ordinal          domain.Ordinal
	Reps             *int
	LastShownIndex   *int
	NewVariantText   *string
	LastOverallShown *int
}

// Cache mirrors persisted variant sets in memory, hydrating lazily and
// flushing every mutation straight back to the store. It exclusively owns
// the in-memory VariantSet object per item.
type Cache struct {
	mu      sync.Mutex
	entries map[domain.CardID]*domain.VariantSet
	store   store.VariantStore
	logger  *slog.Logger
}

// New creates an empty Cache over the given store.
func New(variantStore store.VariantStore, logger *slog.Logger) (*Cache, error) {
	if variantStore == nil {
		return nil, ErrNilStore
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	return &Cache{
		entries: make(map[domain.CardID]*domain.VariantSet),
		store:   variantStore,
		logger:  logger.With("component", "variant_cache"),
	}, nil
}

// Poll returns the variant set for an item, in order of preference: the
// in-memory entry, the persisted row, or a fresh set seeded with the live
// source text (persisted immediately). An ordinal not seen before on a
// cached item gets its bookkeeping added lazily with cursor 0.
//
// Poll always produces a usable entry, returned as a clone so the caller
// never shares state with the background worker. Persistence failures are
// logged and the in-memory state carries on, so the interactive path never
// fails here.
func (c *Cache) Poll(
	ctx context.Context,
	id domain.CardID,
	ord domain.Ordinal,
	sourceText string,
	reps int,
) *domain.VariantSet {
	c.mu.Lock()
	defer c.mu.Unlock()

	if vs, ok := c.entries[id]; ok {
		if vs.EnsureOrdinal(ord, reps) {
			c.persist(ctx, vs)
		}
		return vs.Clone()
	}

	vs, err := c.store.Load(ctx, id)
	if err != nil {
		c.logger.Error("failed to hydrate variant set, reseeding from source text",
			"card_id", id,
			"error", err)
		vs = nil
	}

	if vs != nil {
		if vs.EnsureOrdinal(ord, reps) {
			c.persist(ctx, vs)
		}
		c.entries[id] = vs
		c.logger.Debug("hydrated variant set from store",
			"card_id", id,
			"text_count", len(vs.Texts))
		return vs.Clone()
	}

	fresh, err := domain.NewVariantSet(id, ord, sourceText, reps)
	if err != nil {
		// Empty source text; keep an entry anyway so cursors have somewhere
		// to live. The single empty text is still "something to render".
		fresh = &domain.VariantSet{
			CardID:           id,
			Texts:            []string{sourceText},
			LastShown:        map[domain.Ordinal]int{ord: 0},
			RepCounts:        map[domain.Ordinal]int{ord: reps + 1},
			LastOverallShown: domain.NoOverallShown,
		}
	}

	c.entries[id] = fresh
	c.persist(ctx, fresh)
	c.logger.Debug("seeded fresh variant set",
		"card_id", id,
		"ordinal", ord)
	return fresh.Clone()
}

// Update applies a mutation to an item's cached entry, flushes it to the
// store, and returns a clone of the updated state. Setting LastShownIndex
// out of range is a programming error and panics; callers validate indices
// they did not compute themselves. Returns ErrUnknownCard if the item is
// not cached.
func (c *Cache) Update(ctx context.Context, id domain.CardID, mut Mutation) (*domain.VariantSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	vs, ok := c.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCard, id)
	}

	if mut.Reps != nil {
		vs.RepCounts[mut.Ordinal] = *mut.Reps
	}

	if mut.NewVariantText != nil {
		vs.Texts = append(vs.Texts, *mut.NewVariantText)
		c.logger.Debug("appended variant",
			"card_id", id,
			"text_count", len(vs.Texts))
	}

	if mut.LastShownIndex != nil {
		if *mut.LastShownIndex < 0 || *mut.LastShownIndex >= len(vs.Texts) {
			panic(fmt.Sprintf("cache: last-shown index %d out of range for card %d with %d texts",
				*mut.LastShownIndex, id, len(vs.Texts)))
		}
		vs.LastShown[mut.Ordinal] = *mut.LastShownIndex
	}

	if mut.LastOverallShown != nil {
		if *mut.LastOverallShown != domain.NoOverallShown &&
			(*mut.LastOverallShown < 0 || *mut.LastOverallShown >= len(vs.Texts)) {
			panic(fmt.Sprintf("cache: overall index %d out of range for card %d with %d texts",
				*mut.LastOverallShown, id, len(vs.Texts)))
		}
		vs.LastOverallShown = *mut.LastOverallShown
	}

	c.persist(ctx, vs)
	return vs.Clone(), nil
}

// ClearItem removes an item's entry from memory and from the store.
func (c *Cache) ClearItem(ctx context.Context, id domain.CardID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, id)

	if err := c.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to clear persisted variant set: %w", err)
	}

	c.logger.Debug("cleared variant set", "card_id", id)
	return nil
}

// ClearAll removes every entry from memory and from the store.
func (c *Cache) ClearAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[domain.CardID]*domain.VariantSet)

	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear persisted variant sets: %w", err)
	}

	c.logger.Debug("cleared all variant sets")
	return nil
}

// Evict drops an item's in-memory entry without touching the store, forcing
// the next Poll to hydrate. Used by tests to exercise the reload path.
func (c *Cache) Evict(id domain.CardID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Len reports how many items are currently mirrored in memory.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// persist flushes the entry; failures are logged, not propagated, since the
// in-memory state remains usable and the next successful flush overwrites
// the row anyway. Callers hold c.mu.
func (c *Cache) persist(ctx context.Context, vs *domain.VariantSet) {
	if err := c.store.Save(ctx, vs); err != nil {
		c.logger.Error("failed to persist variant set",
			"card_id", vs.CardID,
			"error", err)
	}
}
