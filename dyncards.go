// Package dyncards keeps flashcard reviews fresh by generating and caching
// reworded variants of card texts with a remote language model. The host
// review application calls OnDisplay with the card it is about to show and
// gets back the text to render; generation happens in the background and
// never blocks the review flow.
package dyncards

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dyncards/dyncards/internal/cache"
	"github.com/dyncards/dyncards/internal/config"
	"github.com/dyncards/dyncards/internal/domain"
	"github.com/dyncards/dyncards/internal/events"
	"github.com/dyncards/dyncards/internal/generation"
	"github.com/dyncards/dyncards/internal/platform/logger"
	"github.com/dyncards/dyncards/internal/platform/providers"
	"github.com/dyncards/dyncards/internal/platform/sqlite"
	"github.com/dyncards/dyncards/internal/service"
	"github.com/dyncards/dyncards/internal/task"
)

// Re-exported types forming the public surface of the library.
type (
	// Config holds all session configuration.
	Config = config.Config

	// CardID identifies a card in the host collection.
	CardID = domain.CardID

	// Ordinal identifies one sub-rendering of a card.
	Ordinal = domain.Ordinal

	// DisplayRequest describes one card display.
	DisplayRequest = service.DisplayRequest

	// Notice is a user-visible message published by the session.
	Notice = events.Notice

	// NoticeHandler receives notices; it runs synchronously and must not block.
	NoticeHandler = events.Handler

	// GenerationClient produces one reworded variant per call. Hosts normally
	// rely on the configured provider; tests inject their own.
	GenerationClient = generation.Client
)

// ErrInvalidConfig wraps every configuration problem surfaced by New:
// validation failures and unknown provider selections alike.
var ErrInvalidConfig = errors.New("invalid configuration")

// LoadConfig reads configuration from the given YAML file (optional) and
// from DYNCARDS_-prefixed environment variables, applying defaults for
// everything unset.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns the default configuration. The API key has no
// default and must be filled in before the config validates.
func DefaultConfig() *Config {
	return config.Default()
}

// SaveConfig writes the configuration to the given file as YAML.
func SaveConfig(cfg *Config, path string) error {
	return config.Save(cfg, path)
}

type options struct {
	logger *slog.Logger
	client generation.Client
}

// Option customizes session construction.
type Option func(*options)

// WithLogger replaces the logger built from the config's logging level.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClient replaces the provider client built from the config's generation
// settings. The configured provider and API key are ignored when set.
func WithClient(c GenerationClient) Option {
	return func(o *options) { o.client = c }
}

// Session is one review session's worth of variant state: the open cache
// database, the background generation worker, and the selection policy.
// A Session is safe for use from one interactive goroutine; the background
// worker it owns synchronizes through the cache.
type Session struct {
	cfg      *Config
	logger   *slog.Logger
	db       *sql.DB
	cache    *cache.Cache
	runner   *task.Runner
	notifier *events.Notifier
	display  *service.DisplayService

	closeOnce sync.Once
	closeErr  error
}

// New validates the configuration and assembles a session. The cache
// database is opened (and migrated) immediately; the background worker
// starts lazily on the first display that wants a new variant.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config cannot be nil", ErrInvalidConfig)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	// An injected client carries its own credentials, so the configured
	// provider settings are not required to validate then.
	if o.client == nil {
		if err := config.Validate(cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	log := o.logger
	if log == nil {
		log = logger.Setup(cfg.Logging.Level)
	}

	client := o.client
	if client == nil {
		var err error
		client, err = providers.New(ctx, log, cfg.Generation)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	reworder, err := generation.NewRewordService(
		client,
		log,
		cfg.Generation.SystemPrompt,
		cfg.Generation.MaxRetries,
		time.Duration(cfg.Generation.RetryDelaySeconds)*time.Second,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build reword service: %w", err)
	}

	db, err := sqlite.Open(cfg.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database %s: %w", cfg.Cache.Path, err)
	}

	variantCache, err := cache.New(sqlite.NewVariantStore(db), log)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to build variant cache: %w", err)
	}

	notifier := events.NewNotifier(log)

	runner := task.NewRunner(task.DefaultQueueSize, log)
	runner.SetErrorHandler(func(t task.Task, err error) {
		notifier.Error(t.CardID(),
			"Could not generate a new variant for card %d: %v", t.CardID(), err)
	})

	display, err := service.NewDisplayService(
		variantCache,
		runner,
		reworder,
		notifier,
		log,
		cfg.Cache.MaxVariants,
		cfg.Cache.ExcludedCategories,
		cfg.Generation.Paused,
	)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to build display service: %w", err)
	}

	log.Info("session opened",
		"cache_path", cfg.Cache.Path,
		"max_variants", cfg.Cache.MaxVariants,
		"paused", cfg.Generation.Paused)

	return &Session{
		cfg:      cfg,
		logger:   log,
		db:       db,
		cache:    variantCache,
		runner:   runner,
		notifier: notifier,
		display:  display,
	}, nil
}

// OnDisplay reports that the host is about to show a card and returns the
// variant index and text to render. It reads only from memory and disk,
// never from the network, and always returns something renderable.
func (s *Session) OnDisplay(ctx context.Context, req DisplayRequest) (int, string) {
	return s.display.OnDisplay(ctx, req)
}

// Pause stops new variants from being requested. Cached variants still
// display.
func (s *Session) Pause() { s.display.Pause() }

// Resume re-enables variant generation.
func (s *Session) Resume() { s.display.Resume() }

// Paused reports whether generation is paused.
func (s *Session) Paused() bool { return s.display.Paused() }

// ExcludeCategory stops cards of the given category from triggering
// generation.
func (s *Session) ExcludeCategory(category string) { s.display.ExcludeCategory(category) }

// IncludeCategory re-enables generation for the given category.
func (s *Session) IncludeCategory(category string) { s.display.IncludeCategory(category) }

// ExcludedCategories returns the categories currently excluded from
// generation.
func (s *Session) ExcludedCategories() []string { return s.display.ExcludedCategories() }

// ClearItem drops all cached variants for one card, in memory and on disk.
// The next display reseeds from the live source text.
func (s *Session) ClearItem(ctx context.Context, id CardID) error {
	if err := s.cache.ClearItem(ctx, id); err != nil {
		return err
	}
	s.notifier.Info(id, "Cleared cached variants for card %d.", id)
	return nil
}

// ClearAll drops every cached variant, in memory and on disk.
func (s *Session) ClearAll(ctx context.Context) error {
	if err := s.cache.ClearAll(ctx); err != nil {
		return err
	}
	s.notifier.Info(0, "Cleared all cached variants.")
	return nil
}

// OnNotice registers a handler for user-visible notices: generation
// failures, cache resets, clears. Handlers run synchronously, some on the
// background worker goroutine.
func (s *Session) OnNotice(handler NoticeHandler) {
	s.notifier.Register(handler)
}

// Close stops the background worker, waits for an in-flight job to finish,
// optionally clears the cache per configuration, and closes the database.
// Close is idempotent.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.runner.Stop()

		var errs []error
		if s.cfg.Cache.ClearOnSessionEnd {
			if err := s.cache.ClearAll(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close cache database: %w", err))
		}

		s.closeErr = errors.Join(errs...)
		s.logger.Info("session closed")
	})
	return s.closeErr
}
