// Package logging configures structured logging (log/slog) for the command line
// application.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup sets the default slog logger. Format is 'json' or 'text' and level one of
// debug, info, warn or error. Debug forces the debug level.
func Setup(level, format string, debug bool) *slog.Logger {
	return SetupWriter(os.Stdout, level, format, debug)
}

func SetupWriter(w io.Writer, level, format string, debug bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	if debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler).With("app", "inventory-sheets")
	slog.SetDefault(logger)

	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
