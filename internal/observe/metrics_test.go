package observe

import (
	"context"
	"slices"
	"testing"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collected indexes one collection by instrument name.
func collected(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		if sm.Scope.Name != scope {
			t.Errorf("scope = %q, want %q", sm.Scope.Name, scope)
		}
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

// sumWhere totals the int64 points of data whose attribute key equals
// value. An empty key matches every point.
func sumWhere(t *testing.T, data metricdata.Aggregation, key, value string) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("aggregation %T is not an int64 sum", data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if key == "" || attr(dp.Attributes, key) == value {
			total += dp.Value
		}
	}
	return total
}

func TestCounters(t *testing.T) {
	t.Parallel()
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCatalogLookup(ctx, "ok")
	m.RecordCatalogLookup(ctx, "ok")
	m.RecordCatalogLookup(ctx, "timeout")
	m.RecordCacheRequest(ctx, "hit")
	m.RecordCacheRequest(ctx, "miss")
	m.RecordCacheRequest(ctx, "miss")
	m.RecordLineItem(ctx, "CoffeeItem", "insertion")
	m.RecordLineItem(ctx, "BakeryItem", "question")
	m.RecordLineItem(ctx, "CoffeeItem", "modification")
	m.RecordProviderRequest(ctx, "openai", "ok")
	m.RecordProviderRequest(ctx, "ollama", "error")
	m.RecordBreakerTransition(ctx, "postgres", "open")
	m.RecordBreakerTransition(ctx, "postgres", "half-open")
	m.RecordBreakerTransition(ctx, "postgres", "open")
	m.UnrecognizedSegments.Add(ctx, 2)
	m.PartialReports.Add(ctx, 1)
	m.ActiveOrders.Add(ctx, 3)
	m.ActiveOrders.Add(ctx, -1)

	got := collected(t, reader)

	tests := []struct {
		name, key, value string
		want             int64
	}{
		{"beanhub.catalog.lookups", "status", "ok", 2},
		{"beanhub.catalog.lookups", "status", "timeout", 1},
		{"beanhub.cache.requests", "result", "miss", 2},
		{"beanhub.line_items", "kind", "CoffeeItem", 2},
		{"beanhub.line_items", "action", "question", 1},
		{"beanhub.provider.requests", "provider", "ollama", 1},
		{"beanhub.breaker.transitions", "to", "open", 2},
		{"beanhub.unrecognized_segments", "", "", 2},
		{"beanhub.partial_reports", "", "", 1},
		{"beanhub.active_orders", "", "", 2},
	}
	for _, tc := range tests {
		data, ok := got[tc.name]
		if !ok {
			t.Errorf("%s not collected", tc.name)
			continue
		}
		if n := sumWhere(t, data, tc.key, tc.value); n != tc.want {
			t.Errorf("%s{%s=%q} = %d, want %d", tc.name, tc.key, tc.value, n, tc.want)
		}
	}
}

func TestPipelineHistograms(t *testing.T) {
	t.Parallel()
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	hists := map[string]metric.Float64Histogram{
		"beanhub.order.duration":      m.OrderDuration,
		"beanhub.segment.duration":    m.SegmentDuration,
		"beanhub.enrichment.duration": m.EnrichmentDuration,
	}
	for _, h := range hists {
		h.Record(ctx, 0.012)
		h.Record(ctx, 3.1)
	}

	got := collected(t, reader)
	for name := range hists {
		hist, ok := got[name].(metricdata.Histogram[float64])
		if !ok || len(hist.DataPoints) != 1 {
			t.Errorf("%s: %T with unexpected points", name, got[name])
			continue
		}
		dp := hist.DataPoints[0]
		if dp.Count != 2 {
			t.Errorf("%s count = %d, want 2", name, dp.Count)
		}
		if !slices.Equal(dp.Bounds, pipelineBuckets) {
			t.Errorf("%s bounds = %v, want %v", name, dp.Bounds, pipelineBuckets)
		}
	}
}

func TestDefaultMetrics_Shared(t *testing.T) {
	t.Parallel()
	if DefaultMetrics() != DefaultMetrics() {
		t.Error("DefaultMetrics returned different instances")
	}
}
