// Package logging provides the structured logger used across the pipeline.
// Built on log/slog with a small Field vocabulary so call sites stay terse.
package logging

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config holds logger settings.
type Config struct {
	Level  string // trace|debug|info|warn|error
	Format string // "json" or "text"
}

// Logger wraps slog with component scoping helpers.
type Logger struct {
	slogger *slog.Logger
}

// Field is one structured log attribute.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field          { return Field{Key: key, Value: value} }
func Int(key string, value int) Field         { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field     { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field       { return Field{Key: key, Value: value} }
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// New creates a logger writing to stdout.
func New(cfg Config) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return &Logger{slogger: slog.New(handler)}
}

// NewNop returns a logger that discards everything; used in tests.
func NewNop() *Logger {
	return &Logger{slogger: slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError + 4}))}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// WithComponent scopes all subsequent entries to a named component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{slogger: l.slogger.With("component", component)}
}

// WithRun scopes entries to one workflow run.
func (l *Logger) WithRun(runID string) *Logger {
	return &Logger{slogger: l.slogger.With("run_id", runID)}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.slogger.Debug(msg, attrs(fields)...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.slogger.Info(msg, attrs(fields)...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.slogger.Warn(msg, attrs(fields)...) }

func (l *Logger) Error(msg string, err error, fields ...Field) {
	args := attrs(fields)
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
	}
	l.slogger.Error(msg, args...)
}

func attrs(fields []Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "trace", "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
