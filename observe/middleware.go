package observe

import (
	"context"
	"time"
)

// ComputeFunc is the signature of a memoized computation.
type ComputeFunc func(ctx context.Context) (any, error)

// Middleware wraps real computations with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe ComputeFunc.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from the wrapped function are recorded and propagated unchanged.
//   - Ownership: Results are passed through without modification.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
// Nil components are replaced with no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NoopTracer()
	}
	if metrics == nil {
		metrics = NoopMetrics()
	}
	if logger == nil {
		logger = NoopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap wraps fn with tracing, metrics and logging for the call described by meta.
func (m *Middleware) Wrap(meta CallMeta, fn ComputeFunc) ComputeFunc {
	return func(ctx context.Context) (any, error) {
		ctx, span := m.tracer.StartSpan(ctx, meta)

		start := time.Now()
		result, err := fn(ctx)
		duration := time.Since(start)

		m.tracer.EndSpan(span, err)
		m.metrics.RecordCompute(ctx, meta, duration, err)

		callLogger := m.logger.WithCall(meta)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}
		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			callLogger.Warn(ctx, "computation failed", fields...)
		} else {
			callLogger.Debug(ctx, "computation completed", fields...)
		}

		return result, err
	}
}

// Metrics returns the metrics the middleware records to.
func (m *Middleware) Metrics() Metrics { return m.metrics }

// Logger returns the middleware's logger.
func (m *Middleware) Logger() Logger { return m.logger }

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
