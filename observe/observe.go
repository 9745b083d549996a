package observe

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/memoize/observe/exporters"
)

// ScopeName names the instrumentation scope of every tracer and meter the
// Observer hands out.
const ScopeName = "github.com/jonwraymond/memoize"

// Config selects which telemetry signals a cache emits and where they go.
// The zero value of each sub-config disables that signal.
type Config struct {
	ServiceName string
	Version     string
	Tracing     TracingConfig
	Metrics     MetricsConfig
	Logging     LoggingConfig

	// Global installs the tracer and meter providers as the otel globals.
	Global bool

	// Output receives stdout exporter output. Default: os.Stdout.
	Output io.Writer
}

// TracingConfig configures span export for computations.
type TracingConfig struct {
	Enabled   bool
	Exporter  string  // otlp|jaeger|stdout|none
	SamplePct float64 // 0.0-1.0, applied to root spans only
}

// MetricsConfig configures the cache instruments.
type MetricsConfig struct {
	Enabled  bool
	Exporter string // otlp|prometheus|stdout|none
}

// LoggingConfig configures the JSON logger handed to cache workers.
type LoggingConfig struct {
	Enabled bool
	Level   string // debug|info|warn|error

	// Writer receives log lines. Default: os.Stderr.
	Writer io.Writer
}

// Validate reports the first invalid setting among the enabled signals.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}

	if c.Tracing.Enabled {
		if !exporters.Known(exporters.Tracing, c.Tracing.Exporter) {
			return fmt.Errorf("%w: %q", ErrInvalidTracingExporter, c.Tracing.Exporter)
		}
		if c.Tracing.SamplePct < MinSamplePct || c.Tracing.SamplePct > MaxSamplePct {
			return fmt.Errorf("%w: got %f", ErrInvalidSamplePct, c.Tracing.SamplePct)
		}
	}

	if c.Metrics.Enabled {
		if !exporters.Known(exporters.Metrics, c.Metrics.Exporter) {
			return fmt.Errorf("%w: %q", ErrInvalidMetricsExporter, c.Metrics.Exporter)
		}
	}

	if c.Logging.Enabled {
		if c.Logging.Level != "" && !slices.Contains(levelNames[:], c.Logging.Level) {
			return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
		}
	}

	return nil
}

// Observer hands out the telemetry primitives a cache reports through.
// Disabled signals are backed by no-op implementations, never nil.
//
// Shutdown flushes pending exports. Only the first call does any work;
// later calls return its result.
type Observer interface {
	Tracer() trace.Tracer
	Meter() metric.Meter
	Logger() Logger
	Shutdown(ctx context.Context) error
}

// Logger is the structured logger used by the eviction and refresh workers.
// Implementations are safe for concurrent use and never panic; a write
// failure is dropped.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)
	WithCall(meta CallMeta) Logger
}

// Field is one key/value pair attached to a log line.
type Field struct {
	Key   string
	Value any
}

type observer struct {
	tracer trace.Tracer
	meter  metric.Meter
	logger Logger

	// shutdowns run in registration order.
	shutdowns []func(context.Context) error

	once        sync.Once
	shutdownErr error
}

// NewObserver validates cfg and builds the providers for every enabled signal.
func NewObserver(ctx context.Context, cfg Config) (Observer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("observe: build resource: %w", err)
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	obs := &observer{
		tracer: tracenoop.NewTracerProvider().Tracer(ScopeName),
		meter:  noop.NewMeterProvider().Meter(ScopeName),
		logger: NoopLogger(),
	}

	if cfg.Tracing.Enabled {
		tp, err := newTracerProvider(ctx, cfg.Tracing, res, out)
		if err != nil {
			return nil, err
		}
		if cfg.Global {
			otel.SetTracerProvider(tp)
		}
		obs.tracer = tp.Tracer(ScopeName, trace.WithInstrumentationVersion(cfg.Version))
		obs.shutdowns = append(obs.shutdowns, wrapShutdown("tracer", tp.Shutdown))
	}

	if cfg.Metrics.Enabled {
		mp, err := newMeterProvider(ctx, cfg.Metrics, res, out)
		if err != nil {
			_ = obs.Shutdown(ctx)
			return nil, err
		}
		if cfg.Global {
			otel.SetMeterProvider(mp)
		}
		obs.meter = mp.Meter(ScopeName, metric.WithInstrumentationVersion(cfg.Version))
		obs.shutdowns = append(obs.shutdowns, wrapShutdown("meter", mp.Shutdown))
	}

	if cfg.Logging.Enabled {
		w := cfg.Logging.Writer
		if w == nil {
			w = os.Stderr
		}
		obs.logger = NewLoggerWithWriter(cfg.Logging.Level, w)
	}

	return obs, nil
}

func newTracerProvider(ctx context.Context, cfg TracingConfig, res *resource.Resource, out io.Writer) (*sdktrace.TracerProvider, error) {
	exp, err := exporters.NewTracingExporter(ctx, cfg.Exporter, exporters.WithWriter(out))
	if err != nil {
		return nil, fmt.Errorf("observe: tracing: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SamplePct)),
	}
	if exp != nil {
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

// sampler keeps a sampled parent's decision and samples roots at pct.
func sampler(pct float64) sdktrace.Sampler {
	switch {
	case pct >= MaxSamplePct:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case pct <= MinSamplePct:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(pct))
	}
}

func newMeterProvider(ctx context.Context, cfg MetricsConfig, res *resource.Resource, out io.Writer) (*sdkmetric.MeterProvider, error) {
	reader, err := exporters.NewMetricsReader(ctx, cfg.Exporter, exporters.WithWriter(out))
	if err != nil {
		return nil, fmt.Errorf("observe: metrics: %w", err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if reader != nil {
		opts = append(opts, sdkmetric.WithReader(reader))
	}
	return sdkmetric.NewMeterProvider(opts...), nil
}

func wrapShutdown(name string, fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return fmt.Errorf("%s shutdown: %w", name, err)
		}
		return nil
	}
}

func (o *observer) Tracer() trace.Tracer { return o.tracer }
func (o *observer) Meter() metric.Meter  { return o.meter }
func (o *observer) Logger() Logger       { return o.logger }

func (o *observer) Shutdown(ctx context.Context) error {
	o.once.Do(func() {
		var result *multierror.Error
		for _, fn := range o.shutdowns {
			result = multierror.Append(result, fn(ctx))
		}
		o.shutdownErr = result.ErrorOrNil()
	})
	return o.shutdownErr
}
