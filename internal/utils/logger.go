// Package utils provides logging, metrics, tracing and circuit breaking helpers.
package utils

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Logger is the global structured logger instance. It falls back to the
// slog default until InitLogger runs.
var Logger = slog.Default()

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown values mean info.
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

// NewHandler returns the handler for an environment: colored tint output on
// stderr for dev, JSON on w everywhere else.
func NewHandler(env string, level slog.Level, w io.Writer) slog.Handler {
	if env == "dev" {
		return tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

// InitLogger initializes the structured logger and sets it as the slog default.
func InitLogger(env, service, level string) {
	lvl := ParseLevel(level)

	Logger = slog.New(NewHandler(env, lvl, os.Stdout)).With(slog.String("service", service))
	slog.SetDefault(Logger)

	Logger.Info("logger initialized",
		slog.String("level", lvl.String()),
		slog.String("env", env),
	)
}

// Info logs an info level message with optional key-value pairs.
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Error logs an error level message with optional key-value pairs.
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}

// Debug logs a debug level message with optional key-value pairs.
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Warn logs a warning level message with optional key-value pairs.
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}
