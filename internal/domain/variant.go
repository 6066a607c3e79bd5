package domain

import (
	"errors"
	"fmt"
)

// VariantSet-specific validation errors
var (
	// ErrEmptySourceText is returned when a variant set is created without source text.
	ErrEmptySourceText = errors.New("source text cannot be empty")

	// ErrNoTexts is returned when a variant set holds no texts at all.
	ErrNoTexts = errors.New("variant set must hold at least one text")

	// ErrCursorOutOfRange is returned when a last-shown cursor points past the
	// end of the text list.
	ErrCursorOutOfRange = errors.New("last-shown cursor out of range")

	// ErrMissingOrdinal is returned when bookkeeping for a sub-rendering
	// ordinal is absent where it is required.
	ErrMissingOrdinal = errors.New("missing bookkeeping for ordinal")
)

// CardID identifies the item whose text is varied. The item itself is owned
// by the host collection; only the identifier crosses into this library.
type CardID int64

// Ordinal identifies one sub-rendering of an item, such as a single cloze
// occlusion. Each ordinal keeps its own last-shown cursor and rep counter.
type Ordinal int

// NoOverallShown marks a variant set that has not displayed anything yet.
const NoOverallShown = -1

// VariantSet is the cached collection of alternate texts for one item,
// plus per-ordinal selection bookkeeping.
//
// Texts[0] is always the original, untouched source text; later entries are
// generated variants in generation order. Every cursor stored in LastShown
// and LastOverallShown indexes into Texts.
type VariantSet struct {
	CardID           CardID          `json:"card_id"`
	Texts            []string        `json:"texts"`
	LastShown        map[Ordinal]int `json:"last_shown"`
	RepCounts        map[Ordinal]int `json:"rep_counts"`
	LastOverallShown int             `json:"last_overall_shown"`
}

// NewVariantSet seeds a variant set for a first-seen item: the live source
// text at index 0 with the given ordinal's cursor at 0. The rep counter is
// seeded one above the host's current value so the display that caused the
// seed counts as already observed; only the next advance of the host's
// counter triggers generation and reselection.
func NewVariantSet(id CardID, ord Ordinal, sourceText string, reps int) (*VariantSet, error) {
	if sourceText == "" {
		return nil, ErrEmptySourceText
	}

	return &VariantSet{
		CardID:           id,
		Texts:            []string{sourceText},
		LastShown:        map[Ordinal]int{ord: 0},
		RepCounts:        map[Ordinal]int{ord: reps + 1},
		LastOverallShown: NoOverallShown,
	}, nil
}

// Validate checks the structural invariants of the set: a non-empty text
// list and every stored cursor in range. A set loaded from storage that
// fails validation must be treated as corrupt.
func (v *VariantSet) Validate() error {
	if len(v.Texts) == 0 {
		return ErrNoTexts
	}

	for ord, idx := range v.LastShown {
		if idx < 0 || idx >= len(v.Texts) {
			return fmt.Errorf("%w: ordinal %d has cursor %d with %d texts",
				ErrCursorOutOfRange, ord, idx, len(v.Texts))
		}
	}

	if v.LastOverallShown != NoOverallShown &&
		(v.LastOverallShown < 0 || v.LastOverallShown >= len(v.Texts)) {
		return fmt.Errorf("%w: overall cursor %d with %d texts",
			ErrCursorOutOfRange, v.LastOverallShown, len(v.Texts))
	}

	return nil
}

// EnsureOrdinal lazily adds bookkeeping for an ordinal first seen on an
// already-cached item (a new sub-rendering appearing on a cached card).
// The rep counter is seeded one above the host's current value, same as
// NewVariantSet, so the first display of the new ordinal never triggers.
// It reports whether anything was added.
func (v *VariantSet) EnsureOrdinal(ord Ordinal, reps int) bool {
	added := false
	if v.LastShown == nil {
		v.LastShown = make(map[Ordinal]int)
	}
	if v.RepCounts == nil {
		v.RepCounts = make(map[Ordinal]int)
	}
	if _, ok := v.LastShown[ord]; !ok {
		v.LastShown[ord] = 0
		added = true
	}
	if _, ok := v.RepCounts[ord]; !ok {
		v.RepCounts[ord] = reps + 1
		added = true
	}
	return added
}

// Clone returns a deep copy of the set. The cache hands out clones so that
// readers never share state with the background worker.
func (v *VariantSet) Clone() *VariantSet {
	cp := &VariantSet{
		CardID:           v.CardID,
		Texts:            make([]string, len(v.Texts)),
		LastShown:        make(map[Ordinal]int, len(v.LastShown)),
		RepCounts:        make(map[Ordinal]int, len(v.RepCounts)),
		LastOverallShown: v.LastOverallShown,
	}
	copy(cp.Texts, v.Texts)
	for ord, idx := range v.LastShown {
		cp.LastShown[ord] = idx
	}
	for ord, reps := range v.RepCounts {
		cp.RepCounts[ord] = reps
	}
	return cp
}

// Bookkeeping returns the last-shown cursor and rep counter for an ordinal.
// Both maps must carry the ordinal and the cursor must be in range;
// otherwise ErrMissingOrdinal or ErrCursorOutOfRange is returned so the
// caller can purge the corrupt entry.
func (v *VariantSet) Bookkeeping(ord Ordinal) (lastShown, reps int, err error) {
	lastShown, ok := v.LastShown[ord]
	if !ok {
		return 0, 0, fmt.Errorf("%w: last-shown for ordinal %d", ErrMissingOrdinal, ord)
	}

	reps, ok = v.RepCounts[ord]
	if !ok {
		return 0, 0, fmt.Errorf("%w: rep counter for ordinal %d", ErrMissingOrdinal, ord)
	}

	if lastShown < 0 || lastShown >= len(v.Texts) {
		return 0, 0, fmt.Errorf("%w: ordinal %d has cursor %d with %d texts",
			ErrCursorOutOfRange, ord, lastShown, len(v.Texts))
	}

	return lastShown, reps, nil
}
