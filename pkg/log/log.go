// Package log configures the process-wide structured logger.
package log

import (
	"log/slog"
	"os"
	"strings"
)

const serviceName = "journeyd"

// ParseLevel maps a configuration string to a slog level. Unknown values
// fall back to info so a typo in LOG_LEVEL never silences the process.
func ParseLevel(logLevel string) slog.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup installs the default logger. Every record carries the service
// attribute so journeyd lines are filterable in shared log streams.
func Setup(logLevel string) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLevel(logLevel),
	})

	slog.SetDefault(slog.New(handler).With("service", serviceName))
}

// WithModule returns the default logger scoped to one engine module.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
