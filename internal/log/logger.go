// Package log builds the application's slog loggers: JSON for
// machines, a compact colored format for terminals.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/catalyzer/cabinet/internal/config"
)

// Logger wraps a configured slog.Logger.
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a Logger on stdout per the application config.
func NewLogger(cfg config.AppConfig) *Logger {
	return NewLoggerWithWriter(os.Stdout, cfg.LogFormat(), cfg.LogLevel())
}

// NewLoggerWithWriter creates a Logger on the given writer. The stdio
// command uses this to keep logs off stdout, which carries the MCP
// protocol.
func NewLoggerWithWriter(w io.Writer, format config.LogFormat, level string) *Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = newTerminalHandler(w, opts)
	}
	return &Logger{logger: slog.New(handler)}
}

// ParseLevel maps a level name to its slog level, defaulting to Info.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Slog returns the underlying slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	return l.logger
}

// SetDefault installs the logger as the process-wide slog default so
// that packages logging through slog.Default (the SQL query logger,
// third-party code) use the configured handler.
func (l *Logger) SetDefault() {
	slog.SetDefault(l.logger)
}
