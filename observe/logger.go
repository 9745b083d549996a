package observe

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// LogLevel is the minimum severity a Logger writes.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"debug", "info", "warn", "error"}

// ParseLogLevel maps a level name to a LogLevel. Unknown names map to LevelInfo.
func ParseLogLevel(s string) LogLevel {
	for i, name := range levelNames {
		if s == name {
			return LogLevel(i)
		}
	}
	return LevelInfo
}

func (l LogLevel) String() string {
	if l < LevelDebug || l > LevelError {
		return levelNames[LevelInfo]
	}
	return levelNames[l]
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const redactedValue = "[REDACTED]"

var redactedKeys = func() map[string]struct{} {
	m := make(map[string]struct{}, len(RedactedFields))
	for _, k := range RedactedFields {
		m[k] = struct{}{}
	}
	return m
}()

// replaceAttr lowercases levels, names the time key "timestamp" and masks
// redacted top-level keys.
func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		a.Key = "timestamp"
		a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339Nano))
	case slog.LevelKey:
		if lvl, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(strings.ToLower(lvl.String()))
		}
	default:
		if _, ok := redactedKeys[a.Key]; ok {
			a.Value = slog.StringValue(redactedValue)
		}
	}
	return a
}

// slogLogger writes one JSON object per line through a slog.JSONHandler.
// When ctx carries a valid span context the line gains trace_id and span_id.
type slogLogger struct {
	logger *slog.Logger
}

// NewLogger returns a JSON logger at level writing to stderr.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter returns a JSON logger at level writing to w.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       ParseLogLevel(level).slogLevel(),
		ReplaceAttr: replaceAttr,
	})
	return &slogLogger{logger: slog.New(h)}
}

// WithCall binds call.id, call.callable and, for instance or type owners,
// call.owner to every line.
func (l *slogLogger) WithCall(meta CallMeta) Logger {
	attrs := []any{
		slog.String("call.id", meta.CallID()),
		slog.String("call.callable", meta.Callable),
	}
	if meta.Owner != "" {
		attrs = append(attrs, slog.String("call.owner", meta.Owner))
	}
	return &slogLogger{logger: l.logger.With(attrs...)}
}

func (l *slogLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelDebug, msg, fields)
}

func (l *slogLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelInfo, msg, fields)
}

func (l *slogLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelWarn, msg, fields)
}

func (l *slogLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelError, msg, fields)
}

func (l *slogLogger) log(ctx context.Context, level slog.Level, msg string, fields []Field) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.logger.Enabled(ctx, level) {
		return
	}

	attrs := make([]slog.Attr, 0, len(fields)+2)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()))
	}
	for _, f := range fields {
		attrs = append(attrs, slog.Any(f.Key, f.Value))
	}
	l.logger.LogAttrs(ctx, level, msg, attrs...)
}

type noopLogger struct{}

// NoopLogger returns a logger that discards everything.
func NoopLogger() Logger {
	return noopLogger{}
}

func (noopLogger) Info(context.Context, string, ...Field)  {}
func (noopLogger) Warn(context.Context, string, ...Field)  {}
func (noopLogger) Error(context.Context, string, ...Field) {}
func (noopLogger) Debug(context.Context, string, ...Field) {}
func (l noopLogger) WithCall(CallMeta) Logger              { return l }
