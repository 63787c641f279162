// Package observe holds the service's telemetry plumbing: OpenTelemetry
// instruments, tracing helpers, context-aware logging and the HTTP
// middleware joining them.
//
// Instruments are created against any [metric.MeterProvider]. In production
// [InitProvider] installs a provider backed by a Prometheus collector; tests
// pass an SDK provider with a manual reader.
package observe

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics is the full instrument set. Instruments are safe for concurrent
// use.
type Metrics struct {
	OrderDuration      metric.Float64Histogram
	SegmentDuration    metric.Float64Histogram
	EnrichmentDuration metric.Float64Histogram

	// HTTPRequestDuration is keyed by method, route and status_class.
	HTTPRequestDuration metric.Float64Histogram

	// CatalogLookups is keyed by status: ok, not_found, error or timeout.
	CatalogLookups metric.Int64Counter

	// CacheRequests is keyed by result: hit, miss or error.
	CacheRequests metric.Int64Counter

	// LineItems is keyed by kind and action.
	LineItems metric.Int64Counter

	UnrecognizedSegments metric.Int64Counter
	PartialReports       metric.Int64Counter

	// ProviderRequests is keyed by provider and status.
	ProviderRequests metric.Int64Counter

	// BreakerTransitions is keyed by backend and the state entered.
	BreakerTransitions metric.Int64Counter

	ActiveOrders metric.Int64UpDownCounter
}

// pipelineBuckets span a cache hit up to a few enrichment timeouts.
var pipelineBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// NewMetrics creates every instrument on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(scope)
	m := &Metrics{}

	histograms := []struct {
		dst     *metric.Float64Histogram
		name    string
		desc    string
		buckets []float64
	}{
		{&m.OrderDuration, "beanhub.order.duration", "Time to turn one transcription into a report.", pipelineBuckets},
		{&m.SegmentDuration, "beanhub.segment.duration", "Time spent on one order segment.", pipelineBuckets},
		{&m.EnrichmentDuration, "beanhub.enrichment.duration", "Time spent enriching one line item.", pipelineBuckets},
		{&m.HTTPRequestDuration, "beanhub.http.request.duration", "HTTP request latency.", nil},
	}
	for _, h := range histograms {
		opts := []metric.Float64HistogramOption{metric.WithDescription(h.desc), metric.WithUnit("s")}
		if h.buckets != nil {
			opts = append(opts, metric.WithExplicitBucketBoundaries(h.buckets...))
		}
		inst, err := meter.Float64Histogram(h.name, opts...)
		if err != nil {
			return nil, fmt.Errorf("observe: %s: %w", h.name, err)
		}
		*h.dst = inst
	}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.CatalogLookups, "beanhub.catalog.lookups", "Catalog lookups by status."},
		{&m.CacheRequests, "beanhub.cache.requests", "Cache reads by result."},
		{&m.LineItems, "beanhub.line_items", "Line items by kind and cart action."},
		{&m.UnrecognizedSegments, "beanhub.unrecognized_segments", "Segments naming no menu item."},
		{&m.PartialReports, "beanhub.partial_reports", "Reports with at least one failed enrichment."},
		{&m.ProviderRequests, "beanhub.provider.requests", "Embeddings requests by provider and status."},
		{&m.BreakerTransitions, "beanhub.breaker.transitions", "Circuit breaker state changes by backend."},
	}
	for _, c := range counters {
		inst, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("observe: %s: %w", c.name, err)
		}
		*c.dst = inst
	}

	var err error
	m.ActiveOrders, err = meter.Int64UpDownCounter("beanhub.active_orders",
		metric.WithDescription("Orders in flight."))
	if err != nil {
		return nil, fmt.Errorf("observe: beanhub.active_orders: %w", err)
	}
	return m, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics lazily builds a [Metrics] on the global meter provider.
// Call it after [InitProvider]; instruments bind to whichever provider is
// global at first use.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic(err)
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

func (m *Metrics) RecordCatalogLookup(ctx context.Context, status string) {
	m.CatalogLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func (m *Metrics) RecordCacheRequest(ctx context.Context, result string) {
	m.CacheRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *Metrics) RecordLineItem(ctx context.Context, kind, action string) {
	m.LineItems.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("action", action),
	))
}

// RecordProviderRequest counts one embeddings call; status is "ok" or
// "error".
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, status string) {
	m.ProviderRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	))
}

// RecordBreakerTransition counts backend's breaker entering state to.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, backend, to string) {
	m.BreakerTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("to", to),
	))
}
