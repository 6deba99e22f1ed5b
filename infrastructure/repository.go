package infrastructure

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// TimeOperation executes an operation and logs its execution time
func TimeOperation(ctx context.Context, logger *slog.Logger, name string, operation func() error) error {
	start := time.Now()
	err := operation()
	elapsed := time.Since(start)
	if err != nil {
		logger.Log(ctx, slog.LevelWarn, "operation failed", "operation", name, "elapsed", elapsed, "error", err)
		return err
	}
	logger.Log(ctx, slog.LevelDebug, "operation completed", "operation", name, "elapsed", elapsed)
	return nil
}

// NewLogger builds the process logger. format is "json" or "text".
func NewLogger(level, format string) *slog.Logger {
	return newLogger(os.Stdout, level, format)
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func ParseLevel(level string) slog.Level {
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

// DiscardLogger is used by tests and by components constructed without a logger.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
