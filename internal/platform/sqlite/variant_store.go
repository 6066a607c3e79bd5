package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/dyncards/dyncards/internal/domain"
	"github.com/dyncards/dyncards/internal/platform/logger"
	"github.com/dyncards/dyncards/internal/store"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// VariantStore implements store.VariantStore using SQLite.
type VariantStore struct {
	db store.DBTX
}

// NewVariantStore creates a new VariantStore on an already-open handle.
func NewVariantStore(db store.DBTX) *VariantStore {
	return &VariantStore{db: db}
}

// Open opens (or creates) the SQLite database at path and migrates the
// schema to the latest version. The pool is limited to a single connection:
// the store serializes the interactive path and the background worker at the
// connection level, so each call effectively runs in its own scope.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database at %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite database at %s: %w", path, err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Load retrieves the variant set for an item. A missing row returns
// (nil, nil). A row that cannot be decoded or fails invariant validation is
// logged and reported as a miss so the caller reseeds from live source text.
func (s *VariantStore) Load(ctx context.Context, id domain.CardID) (*domain.VariantSet, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT texts, last_shown, rep_counts, last_overall
		FROM card_variants
		WHERE card_id = $1
	`

	var textsJSON, lastShownJSON, repCountsJSON []byte
	var lastOverall int

	err := s.db.QueryRowContext(ctx, query, int64(id)).
		Scan(&textsJSON, &lastShownJSON, &repCountsJSON, &lastOverall)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("failed to load variant set",
			"card_id", id,
			"error", err)
		return nil, fmt.Errorf("failed to load variant set: %w", err)
	}

	vs := &domain.VariantSet{
		CardID:           id,
		LastOverallShown: lastOverall,
	}

	if err := decodeRow(vs, textsJSON, lastShownJSON, repCountsJSON); err != nil {
		// A malformed row is a miss, not a failure: the caller reseeds the
		// entry and the next Save overwrites the bad row.
		log.Warn("discarding malformed variant set row",
			"card_id", id,
			"error", err)
		return nil, nil
	}

	if err := vs.Validate(); err != nil {
		log.Warn("discarding invalid variant set row",
			"card_id", id,
			"error", err)
		return nil, nil
	}

	return vs, nil
}

func decodeRow(vs *domain.VariantSet, textsJSON, lastShownJSON, repCountsJSON []byte) error {
	if err := json.Unmarshal(textsJSON, &vs.Texts); err != nil {
		return fmt.Errorf("%w: texts: %v", store.ErrCorruptEntry, err)
	}
	if err := json.Unmarshal(lastShownJSON, &vs.LastShown); err != nil {
		return fmt.Errorf("%w: last_shown: %v", store.ErrCorruptEntry, err)
	}
	if err := json.Unmarshal(repCountsJSON, &vs.RepCounts); err != nil {
		return fmt.Errorf("%w: rep_counts: %v", store.ErrCorruptEntry, err)
	}
	return nil
}

// Save upserts the full row for an item, overwriting any previous state.
func (s *VariantStore) Save(ctx context.Context, vs *domain.VariantSet) error {
	log := logger.FromContext(ctx)

	if err := vs.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	textsJSON, err := json.Marshal(vs.Texts)
	if err != nil {
		return fmt.Errorf("failed to encode texts: %w", err)
	}
	lastShownJSON, err := json.Marshal(vs.LastShown)
	if err != nil {
		return fmt.Errorf("failed to encode last-shown cursors: %w", err)
	}
	repCountsJSON, err := json.Marshal(vs.RepCounts)
	if err != nil {
		return fmt.Errorf("failed to encode rep counters: %w", err)
	}

	query := `
		INSERT INTO card_variants (card_id, texts, last_shown, rep_counts, last_overall, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (card_id) DO UPDATE SET
			texts = excluded.texts,
			last_shown = excluded.last_shown,
			rep_counts = excluded.rep_counts,
			last_overall = excluded.last_overall,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx, query,
		int64(vs.CardID),
		textsJSON,
		lastShownJSON,
		repCountsJSON,
		vs.LastOverallShown,
		now,
	)
	if err != nil {
		log.Error("failed to save variant set",
			"card_id", vs.CardID,
			"text_count", len(vs.Texts),
			"error", err)
		return fmt.Errorf("failed to save variant set: %w", err)
	}

	return nil
}

// Delete removes the row for an item. Deleting an absent row is a no-op.
func (s *VariantStore) Delete(ctx context.Context, id domain.CardID) error {
	log := logger.FromContext(ctx)

	_, err := s.db.ExecContext(ctx, `DELETE FROM card_variants WHERE card_id = $1`, int64(id))
	if err != nil {
		log.Error("failed to delete variant set",
			"card_id", id,
			"error", err)
		return fmt.Errorf("failed to delete variant set: %w", err)
	}

	return nil
}

// Clear removes every row. The schema stays under goose's ownership, so the
// table is truncated rather than dropped; subsequent Loads all miss, which
// is the whole observable contract.
func (s *VariantStore) Clear(ctx context.Context) error {
	log := logger.FromContext(ctx)

	_, err := s.db.ExecContext(ctx, `DELETE FROM card_variants`)
	if err != nil {
		log.Error("failed to clear variant sets", "error", err)
		return fmt.Errorf("failed to clear variant sets: %w", err)
	}

	return nil
}
