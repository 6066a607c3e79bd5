package dyncards

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyncards/dyncards/internal/events"
)

// stubClient implements GenerationClient with canned behavior.
type stubClient struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (s *stubClient) Reword(ctx context.Context, systemPrompt, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("variant %d of %s", s.calls, text), nil
}

func (s *stubClient) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Generation.APIKey = "test-key"
	cfg.Generation.MaxRetries = 0
	cfg.Generation.RetryDelaySeconds = 0
	cfg.Cache.Path = ":memory:"
	return cfg
}

func openSession(t *testing.T, cfg *Config, client GenerationClient) *Session {
	t.Helper()

	s, err := New(context.Background(), cfg, WithClient(client), WithLogger(testLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestNewRejectsBadConfig(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	// Default config is missing the API key.
	_, err = New(ctx, DefaultConfig())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg := testConfig()
	cfg.Generation.Provider = "carrier-pigeon"
	_, err = New(ctx, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSessionGrowsVariantsAcrossDisplays(t *testing.T) {
	client := &stubClient{}
	s := openSession(t, testConfig(), client)
	ctx := context.Background()

	req := DisplayRequest{CardID: 42, Ordinal: 0, SourceText: "What is the capital of France?"}

	// First display seeds the cache; nothing is generated until the host's
	// counter advances.
	idx, text := s.OnDisplay(ctx, req)
	assert.Equal(t, 0, idx)
	assert.Equal(t, "What is the capital of France?", text)
	assert.Equal(t, 0, client.callCount())

	// Second display: the counter advanced, a variant is requested in the
	// background while the source still shows.
	req.Reps = 1
	idx, text = s.OnDisplay(ctx, req)
	assert.Equal(t, 0, idx)

	require.Eventually(t, func() bool {
		return client.callCount() == 1
	}, 5*time.Second, 10*time.Millisecond)

	reps := 2
	require.Eventually(t, func() bool {
		req.Reps = reps
		reps++
		idx, text = s.OnDisplay(ctx, req)
		return idx != 0
	}, 5*time.Second, 20*time.Millisecond)

	assert.Contains(t, text, "variant")
}

func TestSessionPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	cfg := testConfig()
	cfg.Cache.Path = path

	client := &stubClient{}
	ctx := context.Background()

	s := openSession(t, cfg, client)
	s.OnDisplay(ctx, DisplayRequest{CardID: 7, Ordinal: 0, SourceText: "source"})
	s.OnDisplay(ctx, DisplayRequest{CardID: 7, Ordinal: 0, SourceText: "source", Reps: 1})
	require.Eventually(t, func() bool { return client.callCount() == 1 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Close(ctx))

	// A fresh session over the same file sees the generated variant without
	// calling the provider again.
	s2 := openSession(t, cfg, client)
	var sawVariant bool
	for i := 1; i <= 10 && !sawVariant; i++ {
		idx, _ := s2.OnDisplay(ctx, DisplayRequest{CardID: 7, Ordinal: 0, SourceText: "source", Reps: i})
		sawVariant = idx != 0
	}
	assert.True(t, sawVariant, "persisted variant never displayed after reopen")
}

func TestClearOnSessionEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	cfg := testConfig()
	cfg.Cache.Path = path
	cfg.Cache.ClearOnSessionEnd = true

	client := &stubClient{}
	ctx := context.Background()

	s := openSession(t, cfg, client)
	s.OnDisplay(ctx, DisplayRequest{CardID: 7, Ordinal: 0, SourceText: "source"})
	s.OnDisplay(ctx, DisplayRequest{CardID: 7, Ordinal: 0, SourceText: "source", Reps: 1})
	require.Eventually(t, func() bool { return client.callCount() == 1 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Close(ctx))

	// The wipe happened on close: the reopened session starts from scratch.
	cfg2 := testConfig()
	cfg2.Cache.Path = path
	cfg2.Generation.Paused = true

	s2 := openSession(t, cfg2, client)
	for i := 0; i < 10; i++ {
		idx, text := s2.OnDisplay(ctx, DisplayRequest{CardID: 7, Ordinal: 0, SourceText: "source", Reps: i})
		require.Equal(t, 0, idx)
		require.Equal(t, "source", text)
	}
}

func TestClearItemResetsCard(t *testing.T) {
	client := &stubClient{}
	s := openSession(t, testConfig(), client)
	ctx := context.Background()

	s.OnDisplay(ctx, DisplayRequest{CardID: 7, Ordinal: 0, SourceText: "source"})
	s.OnDisplay(ctx, DisplayRequest{CardID: 7, Ordinal: 0, SourceText: "source", Reps: 1})
	require.Eventually(t, func() bool { return client.callCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	var notices []Notice
	var mu sync.Mutex
	s.OnNotice(func(n Notice) {
		mu.Lock()
		defer mu.Unlock()
		notices = append(notices, n)
	})

	require.NoError(t, s.ClearItem(ctx, 7))

	mu.Lock()
	require.Len(t, notices, 1)
	assert.Equal(t, events.SeverityInfo, notices[0].Severity)
	mu.Unlock()

	// Pause so the reseeded card stays at just the source text.
	s.Pause()
	idx, text := s.OnDisplay(ctx, DisplayRequest{CardID: 7, Ordinal: 0, SourceText: "source", Reps: 5})
	assert.Equal(t, 0, idx)
	assert.Equal(t, "source", text)
}

func TestGenerationFailureNotice(t *testing.T) {
	client := &stubClient{err: errors.New("rate limited")}
	s := openSession(t, testConfig(), client)
	ctx := context.Background()

	var mu sync.Mutex
	var notices []Notice
	s.OnNotice(func(n Notice) {
		mu.Lock()
		defer mu.Unlock()
		notices = append(notices, n)
	})

	s.OnDisplay(ctx, DisplayRequest{CardID: 42, Ordinal: 0, SourceText: "source"})
	idx, text := s.OnDisplay(ctx, DisplayRequest{CardID: 42, Ordinal: 0, SourceText: "source", Reps: 1})

	// The failure never disturbs the interactive path.
	assert.Equal(t, 0, idx)
	assert.Equal(t, "source", text)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(notices) == 1
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, events.SeverityError, notices[0].Severity)
	assert.EqualValues(t, 42, notices[0].CardID)
}

func TestPauseAndCategoryControls(t *testing.T) {
	client := &stubClient{}
	cfg := testConfig()
	cfg.Generation.Paused = true
	cfg.Cache.ExcludedCategories = []string{"Definitions"}

	s := openSession(t, cfg, client)

	assert.True(t, s.Paused())
	s.Resume()
	assert.False(t, s.Paused())
	s.Pause()
	assert.True(t, s.Paused())

	assert.Equal(t, []string{"Definitions"}, s.ExcludedCategories())
	s.IncludeCategory("Definitions")
	assert.Empty(t, s.ExcludedCategories())
	s.ExcludeCategory("Definitions")
	assert.Equal(t, []string{"Definitions"}, s.ExcludedCategories())
}

func TestCloseIsIdempotent(t *testing.T) {
	s := openSession(t, testConfig(), &stubClient{})
	ctx := context.Background()

	require.NoError(t, s.Close(ctx))
	require.NoError(t, s.Close(ctx))
}
