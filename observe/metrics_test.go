package observe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name in ResourceMetrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumTotal(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	m := findMetric(rm, name)
	if m == nil {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: expected Sum[int64], got %T", name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_RecordCompute(t *testing.T) {
	m, reader := newTestMetrics(t)
	meta := CallMeta{Owner: "Repo", Callable: "Find"}

	m.RecordCompute(context.Background(), meta, 100*time.Millisecond, nil)
	m.RecordCompute(context.Background(), meta, 5*time.Millisecond, errors.New("boom"))

	rm := collect(t, reader)
	if got := sumTotal(t, rm, "memo.compute.total"); got != 2 {
		t.Errorf("memo.compute.total = %d, want 2", got)
	}
	if got := sumTotal(t, rm, "memo.compute.errors"); got != 1 {
		t.Errorf("memo.compute.errors = %d, want 1", got)
	}

	hist := findMetric(rm, "memo.compute.duration_ms")
	if hist == nil {
		t.Fatal("memo.compute.duration_ms not found")
	}
	h, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", hist.Data)
	}
	if len(h.DataPoints) == 0 || h.DataPoints[0].Count != 2 {
		t.Errorf("expected 2 duration samples, got %+v", h.DataPoints)
	}
}

func TestMetrics_RecordEventLabels(t *testing.T) {
	m, reader := newTestMetrics(t)
	meta := CallMeta{Owner: "Repo", Callable: "Find"}

	m.RecordEvent(context.Background(), meta, "hit", 2*time.Second)
	m.RecordEvent(context.Background(), meta, "hit", 0)
	m.RecordEvent(context.Background(), meta, "miss", 0)

	rm := collect(t, reader)
	events := findMetric(rm, "memo.events.total")
	if events == nil {
		t.Fatal("memo.events.total not found")
	}
	sum := events.Data.(metricdata.Sum[int64])

	byOutcome := map[string]int64{}
	for _, dp := range sum.DataPoints {
		outcome, ok := dp.Attributes.Value(attribute.Key("outcome"))
		if !ok {
			t.Fatalf("data point without outcome: %v", dp.Attributes)
		}
		if v, ok := dp.Attributes.Value(attribute.Key("call.callable")); !ok || v.AsString() != "Find" {
			t.Errorf("call.callable = %v, want Find", v)
		}
		byOutcome[outcome.AsString()] += dp.Value
	}
	if byOutcome["hit"] != 2 || byOutcome["miss"] != 1 {
		t.Errorf("outcomes = %v, want hit=2 miss=1", byOutcome)
	}

	age := findMetric(rm, "memo.entry.age_ms")
	if age == nil {
		t.Fatal("memo.entry.age_ms not found")
	}
	var count uint64
	for _, dp := range age.Data.(metricdata.Histogram[float64]).DataPoints {
		count += dp.Count
	}
	if count != 1 {
		t.Errorf("age samples = %d, want 1 (zero ages are skipped)", count)
	}
}

func TestMetrics_ConcurrentRecording(t *testing.T) {
	m, reader := newTestMetrics(t)
	meta := CallMeta{Callable: "Concurrent"}

	const numGoroutines = 50
	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordCompute(context.Background(), meta, time.Millisecond, nil)
			m.RecordEvent(context.Background(), meta, "miss", 0)
		}()
	}
	wg.Wait()

	rm := collect(t, reader)
	if got := sumTotal(t, rm, "memo.compute.total"); got != numGoroutines {
		t.Errorf("memo.compute.total = %d, want %d", got, numGoroutines)
	}
	if got := sumTotal(t, rm, "memo.events.total"); got != numGoroutines {
		t.Errorf("memo.events.total = %d, want %d", got, numGoroutines)
	}
}
