package service

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/dyncards/dyncards/internal/cache"
	"github.com/dyncards/dyncards/internal/domain"
	"github.com/dyncards/dyncards/internal/events"
	"github.com/dyncards/dyncards/internal/task"
)

// Common constructor errors
var (
	ErrNilCache    = errors.New("cache cannot be nil")
	ErrNilRunner   = errors.New("runner cannot be nil")
	ErrNilReworder = errors.New("reworder cannot be nil")
	ErrNilNotifier = errors.New("notifier cannot be nil")
	ErrNilLogger   = errors.New("logger cannot be nil")
)

// DisplayRequest carries everything the policy needs for one display of one
// sub-rendering. The host supplies its authoritative rep counter and the
// structural tokens (if any) that must survive rewording.
type DisplayRequest struct {
	CardID           domain.CardID
	Ordinal          domain.Ordinal
	SourceText       string
	Category         string
	Reps             int
	StructuralTokens []string
}

// DisplayService decides, on each display, which variant index to show and
// whether to enqueue a generation job. All generation happens fire-and-forget
// on the background runner.
type DisplayService struct {
	cache    *cache.Cache
	runner   *task.Runner
	reworder task.Reworder
	notifier *events.Notifier
	logger   *slog.Logger

	maxVariants int

	mu       sync.Mutex
	paused   bool
	excluded map[string]struct{}
	rng      *rand.Rand
}

// NewDisplayService creates a DisplayService. excludedCategories and paused
// seed the runtime state from configuration.
func NewDisplayService(
	variantCache *cache.Cache,
	runner *task.Runner,
	reworder task.Reworder,
	notifier *events.Notifier,
	logger *slog.Logger,
	maxVariants int,
	excludedCategories []string,
	paused bool,
) (*DisplayService, error) {
	if variantCache == nil {
		return nil, ErrNilCache
	}
	if runner == nil {
		return nil, ErrNilRunner
	}
	if reworder == nil {
		return nil, ErrNilReworder
	}
	if notifier == nil {
		return nil, ErrNilNotifier
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if maxVariants < 1 {
		maxVariants = 1
	}

	excluded := make(map[string]struct{}, len(excludedCategories))
	for _, cat := range excludedCategories {
		excluded[cat] = struct{}{}
	}

	return &DisplayService{
		cache:       variantCache,
		runner:      runner,
		reworder:    reworder,
		notifier:    notifier,
		logger:      logger.With("component", "display_service"),
		maxVariants: maxVariants,
		paused:      paused,
		excluded:    excluded,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// OnDisplay picks the variant to show for this display and returns its index
// and text. The caller renders the text through its own templating engine.
//
// A presentation counts as new when the host's rep counter has caught up
// with the cached one; only then does the policy reselect and consider
// requesting another variant. Re-renders of the same state (e.g. flipping
// to the answer side) reuse the previous choice.
func (s *DisplayService) OnDisplay(ctx context.Context, req DisplayRequest) (int, string) {
	vs := s.cache.Poll(ctx, req.CardID, req.Ordinal, req.SourceText, req.Reps)

	lastShown, cachedReps, err := vs.Bookkeeping(req.Ordinal)
	if err != nil {
		// Corrupt bookkeeping: purge the one affected entry and tell the
		// user why rewording paused for this item. The next display reseeds
		// from the live source text.
		s.logger.Warn("purging corrupt cache entry",
			"card_id", req.CardID,
			"ordinal", req.Ordinal,
			"error", err)
		if clearErr := s.cache.ClearItem(ctx, req.CardID); clearErr != nil {
			s.logger.Error("failed to purge corrupt cache entry",
				"card_id", req.CardID,
				"error", clearErr)
		}
		s.notifier.Error(req.CardID,
			"Cached variants for card %d were corrupt and have been reset.", req.CardID)
		return 0, req.SourceText
	}

	idx := lastShown

	if cachedReps <= req.Reps {
		s.maybeEnqueue(req, len(vs.Texts))

		idx = s.choose(len(vs.Texts), vs.LastOverallShown, lastShown)

		reps := req.Reps + 1
		if _, err := s.cache.Update(ctx, req.CardID, cache.Mutation{
			Ordinal:          req.Ordinal,
			Reps:             &reps,
			LastShownIndex:   &idx,
			LastOverallShown: &idx,
		}); err != nil {
			s.logger.Error("failed to record selection", "card_id", req.CardID, "error", err)
		}
	} else if vs.LastOverallShown != idx {
		// Re-render of the same state: keep the previous choice but anchor
		// it as the most recent overall.
		if _, err := s.cache.Update(ctx, req.CardID, cache.Mutation{
			Ordinal:          req.Ordinal,
			LastOverallShown: &idx,
		}); err != nil {
			s.logger.Error("failed to record overall anchor", "card_id", req.CardID, "error", err)
		}
	}

	s.logger.Debug("selected variant",
		"card_id", req.CardID,
		"ordinal", req.Ordinal,
		"index", idx,
		"text_count", len(vs.Texts))

	return idx, vs.Texts[idx]
}

// choose picks the next display index uniformly at random, excluding the
// most recently shown one. With a single candidate the exclusion is waived:
// a one-variant item always shows index 0 rather than starving.
func (s *DisplayService) choose(textCount, lastOverall, lastShown int) int {
	if textCount <= 1 {
		return 0
	}

	anchor := lastOverall
	if anchor == domain.NoOverallShown {
		anchor = lastShown
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if anchor < 0 || anchor >= textCount {
		return s.rng.Intn(textCount)
	}

	// Uniform over all indices except the anchor.
	idx := s.rng.Intn(textCount - 1)
	if idx >= anchor {
		idx++
	}
	return idx
}

// maybeEnqueue hands a generation job to the runner when growth is wanted:
// not paused, category not excluded, and the text list below its cap.
// Enqueueing never blocks; a full queue or an already-outstanding job for
// the item just means no new request this time.
func (s *DisplayService) maybeEnqueue(req DisplayRequest, textCount int) {
	if textCount >= s.maxVariants {
		return
	}

	s.mu.Lock()
	paused := s.paused
	_, excluded := s.excluded[req.Category]
	s.mu.Unlock()

	if paused || excluded {
		return
	}

	// Started lazily here so a session that only reviews cached items never
	// spawns the worker.
	s.runner.Start()

	rewordTask, err := task.NewRewordTask(domain.RewordJob{
		CardID:           req.CardID,
		Ordinal:          req.Ordinal,
		SourceText:       req.SourceText,
		StructuralTokens: req.StructuralTokens,
	}, s.reworder, s.cache, s.logger)
	if err != nil {
		s.logger.Error("failed to build reword task", "card_id", req.CardID, "error", err)
		return
	}

	if err := s.runner.Enqueue(rewordTask); err != nil {
		if errors.Is(err, task.ErrAlreadyInFlight) {
			s.logger.Debug("generation already in flight", "card_id", req.CardID)
			return
		}
		s.logger.Warn("failed to enqueue generation job",
			"card_id", req.CardID,
			"error", err)
	}
}

// Pause stops new generation jobs from being enqueued. Existing variants
// still display.
func (s *DisplayService) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

// Resume re-enables generation.
func (s *DisplayService) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}

// Paused reports whether generation is paused.
func (s *DisplayService) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// ExcludeCategory stops items of the given category from triggering
// generation.
func (s *DisplayService) ExcludeCategory(category string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.excluded[category] = struct{}{}
}

// IncludeCategory re-enables generation for the given category.
func (s *DisplayService) IncludeCategory(category string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.excluded, category)
}

// ExcludedCategories returns the current exclusion set, for persisting back
// to configuration.
func (s *DisplayService) ExcludedCategories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.excluded))
	for cat := range s.excluded {
		out = append(out, cat)
	}
	return out
}
