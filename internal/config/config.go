package config

// Config holds all library configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
	Cache      CacheConfig      `mapstructure:"cache"      validate:"required"`
	Logging    LoggingConfig    `mapstructure:"logging"    validate:"required"`
}

// GenerationConfig contains all settings for the remote rewording provider.
type GenerationConfig struct {
	// Provider selects the remote backend. Unknown values are a
	// configuration error surfaced when the session is created.
	Provider string `mapstructure:"provider" validate:"required,oneof=mistral openai gemini"`

	APIKey string `mapstructure:"api_key" validate:"required"`

	// BaseURL overrides the provider endpoint, e.g. for a proxy or a
	// self-hosted OpenAI-compatible server. Ignored by the gemini provider.
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`

	Model string `mapstructure:"model" validate:"required"`

	// SystemPrompt is the instruction sent with every rewording request.
	SystemPrompt string `mapstructure:"system_prompt" validate:"required"`

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0"`

	// RetryDelaySeconds is the pause between attempts.
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds" validate:"gte=0"`

	// Paused starts the session with generation paused. Existing variants
	// still display.
	Paused bool `mapstructure:"paused"`
}

// CacheConfig contains all settings for the variant cache and its
// persistent backing store.
type CacheConfig struct {
	// Path is the SQLite database file, or ":memory:" for an ephemeral cache.
	Path string `mapstructure:"path" validate:"required"`

	// MaxVariants caps the text list per item, counting the original at
	// index 0.
	MaxVariants int `mapstructure:"max_variants" validate:"required,gt=0"`

	// ExcludedCategories lists item categories (e.g. note type names) that
	// never trigger generation.
	ExcludedCategories []string `mapstructure:"excluded_categories"`

	// ClearOnSessionEnd drops all cached variants when the session closes.
	ClearOnSessionEnd bool `mapstructure:"clear_on_session_end"`
}

// LoggingConfig contains the logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// Default returns a Config populated with the same defaults Load applies,
// for hosts that assemble configuration programmatically.
func Default() *Config {
	return &Config{
		Generation: GenerationConfig{
			Provider:          "mistral",
			Model:             "mistral-small-latest",
			SystemPrompt:      defaultSystemPrompt,
			MaxRetries:        2,
			RetryDelaySeconds: 5,
		},
		Cache: CacheConfig{
			Path:        "dyncards.db",
			MaxVariants: 3,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

const defaultSystemPrompt = "Reword the following flashcard text. Keep the meaning, difficulty, " +
	"and any {{...}} markers exactly as they are. Reply with the reworded text only."
