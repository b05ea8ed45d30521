package waiton

import (
	"log/slog"
	"os"
)

// Logger receives progress and diagnostic output from a Run. It wraps
// log/slog so callers can plug in their own handler without pulling in an
// extra logging dependency for what is, structurally, just two levels
// gated by a couple of booleans.
type Logger interface {
	// Info logs a user-facing progress line; gated by Options.Log.
	Info(msg string, args ...any)
	// Debug logs a diagnostic line; gated by Options.Verbose.
	Debug(msg string, args ...any)
}

// slogLogger adapts *slog.Logger to Logger, gating each level independently
// so Log and Verbose can be toggled without constructing two loggers.
type slogLogger struct {
	log     *slog.Logger
	info    bool
	verbose bool
}

// NewSlogLogger returns a Logger writing to stderr, gated by log/verbose.
func NewSlogLogger(log, verbose bool) Logger {
	return &slogLogger{
		log:     slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})),
		info:    log,
		verbose: verbose,
	}
}

func (l *slogLogger) Info(msg string, args ...any) {
	if l.info {
		l.log.Info(msg, args...)
	}
}

func (l *slogLogger) Debug(msg string, args ...any) {
	if l.verbose {
		l.log.Debug(msg, args...)
	}
}
