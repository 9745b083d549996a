package exporters

import (
	"bytes"
	"context"
	"errors"
	"testing"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewTracingExporter_UnknownName(t *testing.T) {
	_, err := NewTracingExporter(context.Background(), "invalid")
	if !errors.Is(err, ErrUnknownExporter) {
		t.Fatalf("err = %v, want ErrUnknownExporter", err)
	}
}

func TestNewMetricsReader_UnknownName(t *testing.T) {
	_, err := NewMetricsReader(context.Background(), "badvalue")
	if !errors.Is(err, ErrUnknownExporter) {
		t.Fatalf("err = %v, want ErrUnknownExporter", err)
	}
}

func TestNewTracingExporter_Stdout(t *testing.T) {
	exp, err := NewTracingExporter(context.Background(), "stdout")
	if err != nil {
		t.Fatalf("stdout tracing exporter: %v", err)
	}
	if exp == nil {
		t.Fatal("expected non-nil exporter")
	}
}

func TestNewMetricsReader_Stdout(t *testing.T) {
	reader, err := NewMetricsReader(context.Background(), "stdout")
	if err != nil {
		t.Fatalf("stdout metrics reader: %v", err)
	}
	if reader == nil {
		t.Fatal("expected non-nil reader")
	}
}

func TestNewTracingExporter_MissingEndpoint(t *testing.T) {
	tests := []struct {
		name string
		env  []string
	}{
		{"otlp", []string{"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"}},
		{"jaeger", []string{"OTEL_EXPORTER_JAEGER_ENDPOINT"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range tt.env {
				t.Setenv(k, "")
			}
			_, err := NewTracingExporter(context.Background(), tt.name)
			if !errors.Is(err, ErrEndpointNotConfigured) {
				t.Errorf("err = %v, want ErrEndpointNotConfigured", err)
			}
		})
	}
}

func TestNewMetricsReader_OtlpMissingEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")

	_, err := NewMetricsReader(context.Background(), "otlp")
	if !errors.Is(err, ErrEndpointNotConfigured) {
		t.Errorf("err = %v, want ErrEndpointNotConfigured", err)
	}
}

func TestNewTracingExporter_OtlpWithEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4317")

	exp, err := NewTracingExporter(context.Background(), "otlp")
	if err != nil {
		t.Fatalf("otlp exporter with endpoint: %v", err)
	}
	if exp == nil {
		t.Fatal("expected non-nil exporter")
	}
}

func TestNewMetricsReader_Prometheus(t *testing.T) {
	reader, err := NewMetricsReader(context.Background(), "prometheus", WithRegisterer(promclient.NewRegistry()))
	if err != nil {
		t.Fatalf("prometheus reader: %v", err)
	}
	if reader == nil {
		t.Fatal("expected non-nil reader")
	}
}

func TestNone_YieldsNil(t *testing.T) {
	for _, name := range []string{"none", ""} {
		exp, err := NewTracingExporter(context.Background(), name)
		if err != nil || exp != nil {
			t.Errorf("NewTracingExporter(%q) = %v, %v; want nil, nil", name, exp, err)
		}
		reader, err := NewMetricsReader(context.Background(), name)
		if err != nil || reader != nil {
			t.Errorf("NewMetricsReader(%q) = %v, %v; want nil, nil", name, reader, err)
		}
	}
}

func TestNewTracingExporter_StdoutWriter(t *testing.T) {
	var buf bytes.Buffer
	exp, err := NewTracingExporter(context.Background(), "stdout", WithWriter(&buf))
	if err != nil {
		t.Fatalf("stdout tracing exporter: %v", err)
	}

	spans := tracetest.SpanStubs{{Name: "memo.compute.Find"}}.Snapshots()
	if err := exp.ExportSpans(context.Background(), spans); err != nil {
		t.Fatalf("ExportSpans: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("memo.compute.Find")) {
		t.Errorf("writer output missing span name: %s", buf.String())
	}
}

func TestLookup_SkipsBlank(t *testing.T) {
	t.Setenv("MEMO_TEST_A", "  ")
	t.Setenv("MEMO_TEST_B", "collector:4317")
	if got := lookup("MEMO_TEST_A", "MEMO_TEST_B"); got != "collector:4317" {
		t.Errorf("lookup() = %q, want collector:4317", got)
	}
}

func TestKnown(t *testing.T) {
	tests := []struct {
		signal Signal
		name   string
		want   bool
	}{
		{Tracing, "jaeger", true},
		{Tracing, "prometheus", false},
		{Metrics, "prometheus", true},
		{Metrics, "jaeger", false},
		{Metrics, "", true},
		{Signal(9), "stdout", false},
	}
	for _, tt := range tests {
		if got := Known(tt.signal, tt.name); got != tt.want {
			t.Errorf("Known(%d, %q) = %v, want %v", tt.signal, tt.name, got, tt.want)
		}
	}
}
