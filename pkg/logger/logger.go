package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// Logger is the structured logger shared by every layer of the service.
type Logger struct {
	*slog.Logger
}

type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// NewLogger returns a text logger writing to stderr at the given level.
func NewLogger(level string) *Logger {
	return New(Options{Level: level})
}

func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "json":
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: parseLevel(opts.Level)})
	default:
		handler = charmlog.NewWithOptions(out, charmlog.Options{
			Level:           charmLevel(opts.Level),
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
		})
	}

	return &Logger{Logger: slog.New(handler)}
}

// NewNop discards everything; used by tests.
func NewNop() *Logger {
	return New(Options{Level: "error", Format: "json", Output: io.Discard})
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
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

func charmLevel(level string) charmlog.Level {
	switch parseLevel(level) {
	case slog.LevelDebug:
		return charmlog.DebugLevel
	case slog.LevelWarn:
		return charmlog.WarnLevel
	case slog.LevelError:
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}
