package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ErrValidation wraps validation failures so callers can distinguish a bad
// config from an unreadable one.
var ErrValidation = errors.New("invalid configuration")

// Load reads configuration from the given file (YAML; optional) and from
// environment variables with the DYNCARDS_ prefix, environment taking
// precedence. Missing settings fall back to defaults. Returns a validated
// Config or an error describing what is wrong.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("DYNCARDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks a Config against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// Save writes the configuration to the given file as YAML. Saving is an
// explicit operation: runtime mutations (pause, category exclusions) only
// reach disk when the host asks for it.
func Save(cfg *Config, path string) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	v := viper.New()

	v.Set("generation.provider", cfg.Generation.Provider)
	v.Set("generation.api_key", cfg.Generation.APIKey)
	v.Set("generation.base_url", cfg.Generation.BaseURL)
	v.Set("generation.model", cfg.Generation.Model)
	v.Set("generation.system_prompt", cfg.Generation.SystemPrompt)
	v.Set("generation.max_retries", cfg.Generation.MaxRetries)
	v.Set("generation.retry_delay_seconds", cfg.Generation.RetryDelaySeconds)
	v.Set("generation.paused", cfg.Generation.Paused)
	v.Set("cache.path", cfg.Cache.Path)
	v.Set("cache.max_variants", cfg.Cache.MaxVariants)
	v.Set("cache.excluded_categories", cfg.Cache.ExcludedCategories)
	v.Set("cache.clear_on_session_end", cfg.Cache.ClearOnSessionEnd)
	v.Set("logging.level", cfg.Logging.Level)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	def := Default()

	// Every key gets a default, even if empty: AutomaticEnv only feeds
	// Unmarshal for keys viper already knows about.
	v.SetDefault("generation.provider", def.Generation.Provider)
	v.SetDefault("generation.api_key", "")
	v.SetDefault("generation.base_url", "")
	v.SetDefault("generation.model", def.Generation.Model)
	v.SetDefault("generation.system_prompt", def.Generation.SystemPrompt)
	v.SetDefault("generation.max_retries", def.Generation.MaxRetries)
	v.SetDefault("generation.retry_delay_seconds", def.Generation.RetryDelaySeconds)
	v.SetDefault("generation.paused", def.Generation.Paused)
	v.SetDefault("cache.path", def.Cache.Path)
	v.SetDefault("cache.max_variants", def.Cache.MaxVariants)
	v.SetDefault("cache.excluded_categories", []string{})
	v.SetDefault("cache.clear_on_session_end", def.Cache.ClearOnSessionEnd)
	v.SetDefault("logging.level", def.Logging.Level)
}
