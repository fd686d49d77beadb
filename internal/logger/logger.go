// Package logger wires the process's two log sinks: a leveled diagnostic log
// and the per-request access log. Both are zerolog loggers; targets are
// selected by name ("stdout", "stderr") or opened as append-mode files.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"example.com/servedir/internal/config"
)

// Logger bundles the diagnostic and access sinks. Diag is exported for
// direct leveled use; access entries go through Access so every line carries
// the same fields.
type Logger struct {
	Diag zerolog.Logger

	access  zerolog.Logger
	closers []io.Closer
}

// New builds a Logger from the logging configuration. File targets are
// opened append-only and wrapped in a synchronized writer so concurrent
// requests cannot interleave partial lines.
func New(cfg config.Logging) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	l := &Logger{}

	errWriter, err := l.openTarget(cfg.ErrorLog, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("error log: %w", err)
	}
	l.Diag = zerolog.New(errWriter).Level(level).With().Timestamp().Logger()

	accessWriter, err := l.openTarget(cfg.AccessLog, os.Stdout)
	if err != nil {
		l.Close()
		return nil, fmt.Errorf("access log: %w", err)
	}
	l.access = zerolog.New(accessWriter).With().Timestamp().Logger()

	return l, nil
}

// NewNop returns a Logger that discards everything. Used by tests and as a
// defensive default.
func NewNop() *Logger {
	return &Logger{Diag: zerolog.Nop(), access: zerolog.Nop()}
}

// Access emits the single access-log line for a completed request.
func (l *Logger) Access(method, path string, status int) {
	l.access.Log().
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Send()
}

// Close releases any file targets opened by New.
func (l *Logger) Close() error {
	var firstErr error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.closers = nil
	return firstErr
}

func (l *Logger) openTarget(target string, fallback *os.File) (io.Writer, error) {
	switch target {
	case "":
		return fallback, nil
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		f, err := os.OpenFile(target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file %s: %w", target, err)
		}
		l.closers = append(l.closers, f)
		return zerolog.SyncWriter(f), nil
	}
}
