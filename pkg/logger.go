package findduplicatefiles

import (
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
)

// Logger wraps slog.Logger with a single verbosity level.
//
// Verbosity 0 logs warnings only, 1 adds progress messages, 2 adds per-file
// debug output and 3 adds function entry/exit tracing.
type Logger struct {
	*slog.Logger
	verbosity int
}

// NewLogger creates a text Logger writing to w (stderr when w is nil).
func NewLogger(w io.Writer, verbosity int) *Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: levelForVerbosity(verbosity),
	})
	return &Logger{Logger: slog.New(handler), verbosity: verbosity}
}

// NewJSONLogger creates a Logger that writes JSON records to w.
func NewJSONLogger(w io.Writer, verbosity int) *Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: levelForVerbosity(verbosity),
	})
	return &Logger{Logger: slog.New(handler), verbosity: verbosity}
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil)), verbosity: -1}
}

// Verbosity returns the configured verbosity level.
func (l *Logger) Verbosity() int {
	return l.verbosity
}

// With returns a Logger that adds the given attributes to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), verbosity: l.verbosity}
}

// Enter logs function entry at verbosity 3+ and returns a func for exit logging.
//
//	defer logger.Enter()()
func (l *Logger) Enter() func() {
	if l.verbosity < 3 {
		return func() {}
	}

	pc, _, _, ok := runtime.Caller(1)
	if !ok {
		return func() {}
	}
	funcName := runtime.FuncForPC(pc).Name()
	if idx := strings.LastIndex(funcName, "."); idx != -1 {
		funcName = funcName[idx+1:]
	}

	l.Debug("enter", "func", funcName)
	return func() {
		l.Debug("exit", "func", funcName)
	}
}

func levelForVerbosity(verbosity int) slog.Level {
	switch {
	case verbosity <= 0:
		return slog.LevelWarn
	case verbosity == 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
