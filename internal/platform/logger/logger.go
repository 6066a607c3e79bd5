package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Setup creates a structured JSON logger writing to stderr with the given
// level. The level is parsed case-insensitively; an unknown value falls back
// to info with a warning, since a misconfigured level must never prevent the
// host from starting a session.
func Setup(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo

		tmpLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		tmpLogger.Warn("invalid log level configured, using default level",
			"configured_level", level,
			"default_level", "info")
	}

	opts := &slog.HandlerOptions{
		Level: lvl,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
