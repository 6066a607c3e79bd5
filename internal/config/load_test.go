package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *Config {
	cfg := Default()
	cfg.Generation.APIKey = "test-key"
	return cfg
}

func TestLoadDefaultsWithEnvKey(t *testing.T) {
	t.Setenv("DYNCARDS_GENERATION_API_KEY", "env-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "mistral", cfg.Generation.Provider)
	assert.Equal(t, "env-key", cfg.Generation.APIKey)
	assert.Equal(t, "mistral-small-latest", cfg.Generation.Model)
	assert.Equal(t, 2, cfg.Generation.MaxRetries)
	assert.Equal(t, 5, cfg.Generation.RetryDelaySeconds)
	assert.False(t, cfg.Generation.Paused)
	assert.Equal(t, 3, cfg.Cache.MaxVariants)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NotEmpty(t, cfg.Generation.SystemPrompt)
}

func TestLoadMissingAPIKeyFails(t *testing.T) {
	_, err := Load("")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dyncards.yaml")

	content := `
generation:
  provider: gemini
  api_key: file-key
  model: gemini-2.0-flash
cache:
  max_variants: 5
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.Generation.Provider)
	assert.Equal(t, "file-key", cfg.Generation.APIKey)
	assert.Equal(t, "gemini-2.0-flash", cfg.Generation.Model)
	assert.Equal(t, 5, cfg.Cache.MaxVariants)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Defaults still apply for settings the file does not mention.
	assert.Equal(t, 2, cfg.Generation.MaxRetries)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dyncards.yaml")

	content := `
generation:
  provider: acme
  api_key: k
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}, wantErr: false},
		{name: "zero max variants", mutate: func(c *Config) { c.Cache.MaxVariants = 0 }, wantErr: true},
		{name: "negative retries", mutate: func(c *Config) { c.Generation.MaxRetries = -1 }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: true},
		{name: "bad base url", mutate: func(c *Config) { c.Generation.BaseURL = "not a url" }, wantErr: true},
		{name: "empty model", mutate: func(c *Config) { c.Generation.Model = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dyncards.yaml")

	cfg := validTestConfig()
	cfg.Generation.Paused = true
	cfg.Cache.ExcludedCategories = []string{"Cloze", "Image Occlusion"}

	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Generation, loaded.Generation)
	assert.Equal(t, cfg.Cache, loaded.Cache)
	assert.Equal(t, cfg.Logging, loaded.Logging)
}

func TestSaveRejectsInvalidConfig(t *testing.T) {
	cfg := validTestConfig()
	cfg.Cache.MaxVariants = 0

	err := Save(cfg, filepath.Join(t.TempDir(), "dyncards.yaml"))
	assert.ErrorIs(t, err, ErrValidation)
}
