// Package logging builds the application's slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"trafficlens/internal/config"
)

// New creates the application logger.
// Development and test environments log text to stdout. Production logs
// JSON to stdout and to a rotating file under cfg.LogsDirectory.
func New(cfg *config.Config) *slog.Logger {
	return NewWithWriter(cfg, nil)
}

// NewWithWriter is New with an explicit base writer (stdout when nil).
func NewWithWriter(cfg *config.Config, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.LogLevel)}

	if !cfg.IsProduction() {
		return slog.New(slog.NewTextHandler(w, opts)).With(slog.String("app", cfg.AppName))
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogsDirectory, cfg.AppName+".log"),
		MaxSize:    cfg.LogsMaxSizeInMb,
		MaxBackups: cfg.LogsMaxBackups,
		MaxAge:     cfg.LogsMaxAgeInDays,
		Compress:   true,
	}

	return slog.New(slog.NewJSONHandler(io.MultiWriter(w, rotator), opts)).With(slog.String("app", cfg.AppName))
}

// ParseLevel maps a configured level to slog. Unknown values fall back to info.
func ParseLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops everything. Used by tests and tools
// that have no configured logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
