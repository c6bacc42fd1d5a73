package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel is the minimum severity a logger emits. It is a thin alias over
// slog's levels so config parsing and handler setup share one representation.
type LogLevel slog.Level

const (
	DebugLevel = LogLevel(slog.LevelDebug)
	InfoLevel  = LogLevel(slog.LevelInfo)
	WarnLevel  = LogLevel(slog.LevelWarn)
	ErrorLevel = LogLevel(slog.LevelError)
)

func (l LogLevel) String() string {
	return slog.Level(l).String()
}

// ParseLogLevel maps a level name to a LogLevel. Unknown names fall back to
// info rather than erroring so a typo in configuration never silences logs.
func ParseLogLevel(name string) LogLevel {
	switch strings.ToLower(name) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Logger emits structured JSON log lines. Field-enriched copies share the
// underlying handler, so deriving one per request is cheap.
type Logger struct {
	slog *slog.Logger
}

// NewLogger creates a JSON logger writing to output at the given level
func NewLogger(level LogLevel, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: slog.Level(level),
	})
	return &Logger{slog: slog.New(handler)}
}

// WithField returns a logger that includes the field on every line
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{slog: l.slog.With(key, value)}
}

// WithFields returns a logger that includes all given fields on every line
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{slog: l.slog.With(args...)}
}

// WithError returns a logger carrying the error message as a field
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

func (l *Logger) Debug(msg string) { l.slog.Debug(msg) }
func (l *Logger) Info(msg string)  { l.slog.Info(msg) }
func (l *Logger) Warn(msg string)  { l.slog.Warn(msg) }
func (l *Logger) Error(msg string) { l.slog.Error(msg) }

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.slog.Debug(fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.slog.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.slog.Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.slog.Error(fmt.Sprintf(format, args...))
}

type contextKey string

// requestIDKey carries the per-request correlation id through handler and
// processor call chains.
const requestIDKey contextKey = "request_id"

// WithRequestID stamps a request ID onto the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID returns the request ID from the context, or empty
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithRequestScope returns a logger tagged with the context's request ID,
// when one is present.
func (l *Logger) WithRequestScope(ctx context.Context) *Logger {
	if requestID := GetRequestID(ctx); requestID != "" {
		return l.WithField("request_id", requestID)
	}
	return l
}
