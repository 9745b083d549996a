package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records memoization metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCompute records one real computation with its duration and error status.
	RecordCompute(ctx context.Context, meta CallMeta, duration time.Duration, err error)

	// RecordEvent records one cache event (hit, miss, evicted, ...). A positive
	// age is recorded as the age of the entry the event concerns.
	RecordEvent(ctx context.Context, meta CallMeta, outcome string, age time.Duration)
}

type metricsImpl struct {
	meter        metric.Meter
	computeCount metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	eventCount   metric.Int64Counter
	ageHist      metric.Float64Histogram
}

// NewMetrics creates the memoization instruments on the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	computeCount, err := meter.Int64Counter(
		"memo.compute.total",
		metric.WithDescription("Total number of real computations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"memo.compute.errors",
		metric.WithDescription("Total number of failed computations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"memo.compute.duration_ms",
		metric.WithDescription("Computation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	eventCount, err := meter.Int64Counter(
		"memo.events.total",
		metric.WithDescription("Total number of cache events by outcome"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	ageHist, err := meter.Float64Histogram(
		"memo.entry.age_ms",
		metric.WithDescription("Age of the entry an event concerns, in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		computeCount: computeCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		eventCount:   eventCount,
		ageHist:      ageHist,
	}, nil
}

func callAttrs(meta CallMeta) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("call.callable", meta.Callable),
	}
	if meta.Owner != "" {
		attrs = append(attrs, attribute.String("call.owner", meta.Owner))
	}
	return attrs
}

// RecordCompute records metrics for one computation.
func (m *metricsImpl) RecordCompute(ctx context.Context, meta CallMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(callAttrs(meta)...)

	m.computeCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// RecordEvent records metrics for one cache event.
func (m *metricsImpl) RecordEvent(ctx context.Context, meta CallMeta, outcome string, age time.Duration) {
	attrs := append(callAttrs(meta), attribute.String("outcome", outcome))
	opt := metric.WithAttributes(attrs...)

	m.eventCount.Add(ctx, 1, opt)
	if age > 0 {
		m.ageHist.Record(ctx, float64(age.Milliseconds()), opt)
	}
}

type noopMetrics struct{}

// NoopMetrics returns a Metrics that records nothing.
func NoopMetrics() Metrics {
	return noopMetrics{}
}

func (noopMetrics) RecordCompute(ctx context.Context, meta CallMeta, duration time.Duration, err error) {
}

func (noopMetrics) RecordEvent(ctx context.Context, meta CallMeta, outcome string, age time.Duration) {
}
