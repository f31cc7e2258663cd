package logging

import (
	"io"
	"log/slog"
	"os"
	"sort"
)

// Logger wraps slog.Logger with field helpers
type Logger struct {
	*slog.Logger
}

// NewLogger creates a text logger at debug level in development and a JSON
// logger at info level otherwise
func NewLogger(isDev bool) *Logger {
	return newLogger(os.Stdout, isDev)
}

// NewNopLogger discards everything, for tests
func NewNopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func newLogger(w io.Writer, isDev bool) *Logger {
	var handler slog.Handler
	if isDev {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// WithFields returns a logger that adds the given fields to every record
func (l *Logger) WithFields(fields map[string]any) *Logger {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(fields)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	return &Logger{Logger: l.Logger.With(args...)}
}

// WithError is shorthand for adding an error field
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.Logger.With("error", err)}
}
