package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/rmitchellscott/diamondperls/internal/config"
)

var (
	loggerMu sync.RWMutex
	logger   = newLogger(os.Stderr, config.Get("LOG_LEVEL", "info"), config.Get("LOG_FORMAT", "text"))
)

// ParseLevel maps a level name to a slog level. Unknown names yield info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

func newLogger(w io.Writer, level, format string) *slog.Logger {
	lvl := ParseLevel(level)
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      lvl,
		TimeFormat: time.RFC3339,
	}))
}

// Configure replaces the process logger.
func Configure(w io.Writer, level, format string) {
	l := newLogger(w, level, format)
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}

// Logger returns the current process logger.
func Logger() *slog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

func Debug(msg string, args ...any) { Logger().Debug(msg, args...) }
func Info(msg string, args ...any)  { Logger().Info(msg, args...) }
func Warn(msg string, args ...any)  { Logger().Warn(msg, args...) }
func Error(msg string, args ...any) { Logger().Error(msg, args...) }

// DebugWithComponent logs at debug level tagged with a component name.
func DebugWithComponent(component, msg string, args ...any) {
	Logger().With("component", component).Debug(msg, args...)
}

// InfoWithComponent logs at info level tagged with a component name.
func InfoWithComponent(component, msg string, args ...any) {
	Logger().With("component", component).Info(msg, args...)
}

// WarnWithComponent logs at warn level tagged with a component name.
func WarnWithComponent(component, msg string, args ...any) {
	Logger().With("component", component).Warn(msg, args...)
}

// ErrorWithComponent logs at error level tagged with a component name.
func ErrorWithComponent(component, msg string, args ...any) {
	Logger().With("component", component).Error(msg, args...)
}
