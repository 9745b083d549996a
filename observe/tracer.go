package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// CallMeta describes a memoized call for telemetry purposes.
type CallMeta struct {
	Owner    string // Owner label (type name or instance label; may be empty)
	Callable string // Callable identity (required)
	Lifetime string // never|duration|forever (optional)
	Async    bool   // Whether the call refreshes in the background
}

// SpanName returns the deterministic span name for this call.
// Format: memo.compute.<callable>
func (m CallMeta) SpanName() string {
	return "memo.compute." + m.Callable
}

// CallID returns the fully qualified call identifier.
// Format: <owner>#<callable> or just <callable> for global calls.
func (m CallMeta) CallID() string {
	if m.Owner != "" {
		return m.Owner + "#" + m.Callable
	}
	return m.Callable
}

// Validate reports whether the metadata is usable.
func (m CallMeta) Validate() error {
	if m.Callable == "" {
		return ErrMissingCallable
	}
	return nil
}

// Tracer wraps OpenTelemetry tracing with call-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a real computation.
	StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with call metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("call.id", meta.CallID()),
		attribute.String("call.callable", meta.Callable),
		attribute.Bool("call.error", false), // updated in EndSpan
	}
	if meta.Owner != "" {
		attrs = append(attrs, attribute.String("call.owner", meta.Owner))
	}
	if meta.Lifetime != "" {
		attrs = append(attrs, attribute.String("call.lifetime", meta.Lifetime))
	}
	if meta.Async {
		attrs = append(attrs, attribute.Bool("call.async", true))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("call.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

// NoopTracer returns a tracer that records nothing.
func NoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
