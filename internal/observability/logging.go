// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application. It
// discards output until InitLogging is called so that nothing is written
// over the terminal UI.
var GlobalLogger = &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

var logOutput io.Writer = io.Discard

// LogOutput returns the sink GlobalLogger writes to.
func LogOutput() io.Writer {
	return logOutput
}

// LoggingConfig selects the sink, format, and level of the global logger.
type LoggingConfig struct {
	Level string
	// File is the path logs are appended to. "-" means stderr.
	File string
	JSON bool
}

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// Context keys for logging
const (
	RequestID LogContextKey = "request_id"
	TraceID   LogContextKey = "trace_id"
)

// ParseLevel maps a config level name onto a slog level.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InitLogging replaces GlobalLogger according to cfg. The returned function
// closes the log file, if one was opened.
func InitLogging(cfg LoggingConfig) (func() error, error) {
	var w io.Writer = os.Stderr
	closer := func() error { return nil }

	if cfg.File != "" && cfg.File != "-" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open log file %q: %w", cfg.File, err)
		}
		w = f
		closer = f.Close
	}

	logOutput = w
	GlobalLogger = NewLogger(w, ParseLevel(cfg.Level), cfg.JSON)
	return closer, nil
}

// NewLogger builds a Logger writing to w.
func NewLogger(w io.Writer, level slog.Level, json bool) *Logger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return &Logger{Logger: slog.New(handler)}
}

// WithRequestID returns a new context with the given request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestID, id)
}

// ExtractRequestID retrieves the request ID from the context.
func ExtractRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestID).(string); ok {
		return id
	}
	return ""
}

// WithTraceID returns a new context carrying the trace ID for log lines.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceID, id)
}

// ExtractTraceID retrieves the trace ID from the context.
func ExtractTraceID(ctx context.Context) string {
	if id, ok := ctx.Value(TraceID).(string); ok {
		return id
	}
	return ""
}

// APILogger provides structured logging for outbound API calls.
type APILogger struct {
	client string
}

// NewAPILogger creates a new APILogger for the named client.
func NewAPILogger(client string) *APILogger {
	return &APILogger{client: client}
}

// LogRequest logs a completed API round trip.
func (l *APILogger) LogRequest(ctx context.Context, method, path string, status int, elapsed time.Duration) {
	GlobalLogger.InfoContext(ctx, "api request",
		slog.String("client", l.client),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Duration("elapsed", elapsed),
		slog.String("request_id", ExtractRequestID(ctx)),
		slog.String("trace_id", ExtractTraceID(ctx)),
	)
}

// LogError logs an API call that never produced a response.
func (l *APILogger) LogError(ctx context.Context, method, path string, err error) {
	GlobalLogger.ErrorContext(ctx, "api request failed",
		slog.String("client", l.client),
		slog.String("method", method),
		slog.String("path", path),
		slog.String("error", err.Error()),
		slog.String("request_id", ExtractRequestID(ctx)),
		slog.String("trace_id", ExtractTraceID(ctx)),
	)
}

// LogReadFailure records a read whose failure is not surfaced to the user.
func LogReadFailure(ctx context.Context, resource string, err error, stale bool) {
	if stale {
		CacheFallbacks.WithLabelValues(resource).Inc()
	}
	GlobalLogger.WarnContext(ctx, "read failed",
		slog.String("resource", resource),
		slog.Bool("served_stale", stale),
		slog.String("error", err.Error()),
	)
}

// LogRollback records an optimistic update that was reverted.
func LogRollback(ctx context.Context, entity string, id int64, err error) {
	OptimisticRollbacks.WithLabelValues(entity).Inc()
	GlobalLogger.DebugContext(ctx, "optimistic update rolled back",
		slog.String("entity", entity),
		slog.Int64("id", id),
		slog.String("error", err.Error()),
	)
}

// LogIntent records what happened to a deferred action.
func LogIntent(ctx context.Context, kind, outcome string) {
	DeferredIntents.WithLabelValues(kind, outcome).Inc()
	GlobalLogger.InfoContext(ctx, "deferred intent",
		slog.String("kind", kind),
		slog.String("outcome", outcome),
	)
}

// LogUserFailure records a failure that is shown to the user as an alert.
func LogUserFailure(ctx context.Context, action string, err error) {
	GlobalLogger.ErrorContext(ctx, "user action failed",
		slog.String("action", action),
		slog.String("error", err.Error()),
	)
}
