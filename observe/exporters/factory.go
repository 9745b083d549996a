// Package exporters resolves OpenTelemetry exporters from their configured
// names. Remote exporters read their endpoints from the standard OTEL_*
// environment variables and refuse to start without one.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var (
	// ErrEndpointNotConfigured indicates a remote exporter without an endpoint
	// in its environment.
	ErrEndpointNotConfigured = errors.New("exporters: endpoint not configured")

	// ErrUnknownExporter indicates an exporter name with no registered constructor.
	ErrUnknownExporter = errors.New("exporters: unknown exporter")
)

// Options tune the locally-rendered exporters.
type Options struct {
	// Writer receives stdout exporter output. Default: os.Stdout.
	Writer io.Writer

	// Registerer receives the Prometheus collector.
	// Default: prometheus.DefaultRegisterer.
	Registerer promclient.Registerer
}

// Option mutates Options.
type Option func(*Options)

// WithWriter redirects stdout exporters to w.
func WithWriter(w io.Writer) Option {
	return func(o *Options) { o.Writer = w }
}

// WithRegisterer registers the Prometheus collector with r.
func WithRegisterer(r promclient.Registerer) Option {
	return func(o *Options) { o.Registerer = r }
}

func resolve(opts []Option) Options {
	o := Options{Writer: os.Stdout, Registerer: promclient.DefaultRegisterer}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Writer == nil {
		o.Writer = os.Stdout
	}
	if o.Registerer == nil {
		o.Registerer = promclient.DefaultRegisterer
	}
	return o
}

type (
	spanFactory   func(ctx context.Context, o Options) (sdktrace.SpanExporter, error)
	readerFactory func(ctx context.Context, o Options) (sdkmetric.Reader, error)
)

// A nil factory result means the signal is collected but never exported.
var spanFactories = map[string]spanFactory{
	"":     nothing[sdktrace.SpanExporter],
	"none": nothing[sdktrace.SpanExporter],
	"stdout": func(_ context.Context, o Options) (sdktrace.SpanExporter, error) {
		return stdouttrace.New(stdouttrace.WithWriter(o.Writer))
	},
	"otlp": remote("otlp", []string{"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"},
		func(ctx context.Context) (sdktrace.SpanExporter, error) { return otlptracegrpc.New(ctx) }),
	// Jaeger ingests OTLP natively; the collector address comes from its own variable.
	"jaeger": remote("jaeger", []string{"OTEL_EXPORTER_JAEGER_ENDPOINT"},
		func(ctx context.Context) (sdktrace.SpanExporter, error) {
			return otlptracegrpc.New(ctx,
				otlptracegrpc.WithEndpointURL(lookup("OTEL_EXPORTER_JAEGER_ENDPOINT")))
		}),
}

var readerFactories = map[string]readerFactory{
	"":     nothing[sdkmetric.Reader],
	"none": nothing[sdkmetric.Reader],
	"stdout": func(_ context.Context, o Options) (sdkmetric.Reader, error) {
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(o.Writer))
		if err != nil {
			return nil, err
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	},
	"otlp": remote("otlp", []string{"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"},
		func(ctx context.Context) (sdkmetric.Reader, error) {
			exp, err := otlpmetricgrpc.New(ctx)
			if err != nil {
				return nil, err
			}
			return sdkmetric.NewPeriodicReader(exp), nil
		}),
	"prometheus": func(_ context.Context, o Options) (sdkmetric.Reader, error) {
		return prometheus.New(prometheus.WithRegisterer(o.Registerer))
	},
}

// NewTracingExporter returns the span exporter registered under name.
// "none" and "" yield a nil exporter and no error.
func NewTracingExporter(ctx context.Context, name string, opts ...Option) (sdktrace.SpanExporter, error) {
	f, ok := spanFactories[name]
	if !ok {
		return nil, fmt.Errorf("%w: tracing %q", ErrUnknownExporter, name)
	}
	return f(ctx, resolve(opts))
}

// NewMetricsReader returns the metric reader registered under name.
// "none" and "" yield a nil reader and no error.
func NewMetricsReader(ctx context.Context, name string, opts ...Option) (sdkmetric.Reader, error) {
	f, ok := readerFactories[name]
	if !ok {
		return nil, fmt.Errorf("%w: metrics %q", ErrUnknownExporter, name)
	}
	return f(ctx, resolve(opts))
}

func nothing[T any](context.Context, Options) (T, error) {
	var zero T
	return zero, nil
}

// remote guards a network exporter behind the presence of one of keys.
func remote[T any](name string, keys []string, build func(context.Context) (T, error)) func(context.Context, Options) (T, error) {
	return func(ctx context.Context, _ Options) (T, error) {
		if lookup(keys...) == "" {
			var zero T
			return zero, fmt.Errorf("%w: %s requires one of %s", ErrEndpointNotConfigured, name, strings.Join(keys, ", "))
		}
		return build(ctx)
	}
}

// lookup returns the first non-blank value among the environment keys.
func lookup(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

// Known reports whether name is a registered tracing or metrics exporter.
func Known(signal Signal, name string) bool {
	switch signal {
	case Tracing:
		_, ok := spanFactories[name]
		return ok
	case Metrics:
		_, ok := readerFactories[name]
		return ok
	}
	return false
}

// Signal selects a telemetry signal for Known.
type Signal int

const (
	Tracing Signal = iota
	Metrics
)
