// Package logging configures the process-wide slog logger from the
// PROXY_LOG_LEVEL-style verbosity string.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup builds a text-handler logger at the given verbosity and installs
// it as the slog default. Unknown level strings fall back to info.
func Setup(level string) *slog.Logger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	log := slog.New(h)
	slog.SetDefault(log)
	return log
}

// ParseLevel maps debug|info|warn|error (case-insensitive) to the
// corresponding slog level.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
