// Package logging builds the process-wide slog logger: TTY detection picks
// a text or JSON handler, LOG_FORMAT and LOG_LEVEL override from the
// environment, and source locations are shortened to repo-relative paths.
// Components namespace the logger with logger.With("component", ...).
package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ContextKey is the type for context values carried into log lines.
type ContextKey string

// RunIDKey carries the per-invocation run ID through contexts.
const RunIDKey ContextKey = "log_run_id"

// New creates a configured logger. Format: LOG_FORMAT (text/json), else
// text on a TTY and JSON otherwise. Level: LOG_LEVEL, default info.
func New() *slog.Logger {
	logFormat := os.Getenv("LOG_FORMAT")
	useText := logFormat == "text" || (logFormat == "" && isatty(os.Stdout))

	wd, _ := os.Getwd()
	opts := &slog.HandlerOptions{
		Level:     parseLogLevel(os.Getenv("LOG_LEVEL")),
		AddSource: true,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.SourceKey {
				if src, ok := a.Value.Any().(*slog.Source); ok {
					if rel, err := filepath.Rel(wd, src.File); err == nil {
						src.File = rel
					} else {
						src.File = filepath.Base(src.File)
					}
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if useText {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// SetDefault creates a logger and installs it as the slog default.
func SetDefault() *slog.Logger {
	logger := New()
	slog.SetDefault(logger)
	return logger
}

// WithRunID returns a context carrying the run ID.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID extracts the run ID from the context, or "" when absent.
func GetRunID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(RunIDKey).(string); ok {
		return id
	}
	return ""
}

// FromContext attaches the context's run ID to the logger, if present.
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id := GetRunID(ctx); id != "" {
		return logger.With("run_id", id)
	}
	return logger
}

func parseLogLevel(level string) slog.Level {
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

// isatty reports whether f is a terminal.
func isatty(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}
