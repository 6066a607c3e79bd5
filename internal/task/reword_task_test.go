package task

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyncards/dyncards/internal/cache"
	"github.com/dyncards/dyncards/internal/domain"
	"github.com/dyncards/dyncards/internal/generation"
	"github.com/dyncards/dyncards/internal/platform/sqlite"
)

// stubReworder implements Reworder with a fixed result.
type stubReworder struct {
	text  string
	err   error
	calls int
}

func (s *stubReworder) Reword(ctx context.Context, job domain.RewordJob) (string, error) {
	s.calls++
	return s.text, s.err
}

func setupCache(t *testing.T) *cache.Cache {
	t.Helper()

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	c, err := cache.New(sqlite.NewVariantStore(db), setupTestLogger())
	require.NoError(t, err)
	return c
}

func testJob() domain.RewordJob {
	return domain.RewordJob{
		CardID:     42,
		Ordinal:    0,
		SourceText: "the source text",
	}
}

func TestNewRewordTaskValidation(t *testing.T) {
	c := setupCache(t)
	rw := &stubReworder{text: "ok"}
	logger := setupTestLogger()

	_, err := NewRewordTask(testJob(), nil, c, logger)
	assert.ErrorIs(t, err, ErrNilReworder)

	_, err = NewRewordTask(testJob(), rw, nil, logger)
	assert.ErrorIs(t, err, ErrNilCache)

	_, err = NewRewordTask(testJob(), rw, c, nil)
	assert.ErrorIs(t, err, ErrNilLogger)

	task, err := NewRewordTask(testJob(), rw, c, logger)
	require.NoError(t, err)
	assert.Equal(t, TaskTypeReword, task.Type())
	assert.EqualValues(t, 42, task.CardID())
}

func TestExecuteAppendsVariant(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	c.Poll(ctx, 42, 0, "the source text", 0)

	task, err := NewRewordTask(testJob(), &stubReworder{text: "a new variant"}, c, setupTestLogger())
	require.NoError(t, err)

	require.NoError(t, task.Execute(ctx))

	vs := c.Poll(ctx, 42, 0, "the source text", 0)
	require.Len(t, vs.Texts, 2)
	assert.Equal(t, "a new variant", vs.Texts[1])
}

func TestExecuteLeavesCacheUntouchedOnFailure(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	c.Poll(ctx, 42, 0, "the source text", 0)

	exhausted := fmt.Errorf("%w after 3 attempts: %w",
		generation.ErrNoVariantProduced, errors.New("provider down"))

	task, err := NewRewordTask(testJob(), &stubReworder{err: exhausted}, c, setupTestLogger())
	require.NoError(t, err)

	err = task.Execute(ctx)
	assert.ErrorIs(t, err, generation.ErrNoVariantProduced)

	vs := c.Poll(ctx, 42, 0, "the source text", 0)
	assert.Len(t, vs.Texts, 1)
}

func TestExecuteDropsResultForClearedCard(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	// The item was never polled (or was cleared): nothing to append to.
	task, err := NewRewordTask(testJob(), &stubReworder{text: "orphan variant"}, c, setupTestLogger())
	require.NoError(t, err)

	// Not an error: the result is just dropped.
	assert.NoError(t, task.Execute(ctx))
	assert.Equal(t, 0, c.Len())
}
