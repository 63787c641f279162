package order

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/lexicon"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/observe"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/parse"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/cache"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/catalog"
)

// DefaultEnrichmentTimeout bounds the wait for one line item's lookups.
const DefaultEnrichmentTimeout = 3 * time.Second

// Processor is the order-processing entry point. It is safe for concurrent
// use; every call to [Processor.Process] owns its own data.
type Processor struct {
	lex      *lexicon.Lexicon
	catalog  catalog.Lookup
	cache    cache.Cache
	timeout  time.Duration
	workers  int
	metrics  *observe.Metrics
	enricher *Enricher
}

// Option configures a [Processor].
type Option func(*Processor)

// WithCache caches catalog answers under "catalog:item:<name>".
func WithCache(c cache.Cache) Option {
	return func(p *Processor) { p.cache = c }
}

// WithEnrichmentTimeout bounds the wait for one line item's catalog lookups.
// Default: [DefaultEnrichmentTimeout]. Zero keeps the default.
func WithEnrichmentTimeout(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithSegmentWorkers caps the number of segments processed at once. Zero
// means runtime.GOMAXPROCS(0).
func WithSegmentWorkers(n int) Option {
	return func(p *Processor) { p.workers = n }
}

// WithMetrics sets the metric instruments. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// WithLexicon replaces the built-in vocabulary.
func WithLexicon(l *lexicon.Lexicon) Option {
	return func(p *Processor) { p.lex = l }
}

// NewProcessor returns a Processor that enriches line items through c.
func NewProcessor(c catalog.Lookup, opts ...Option) *Processor {
	p := &Processor{
		lex:     lexicon.Default(),
		catalog: c,
		timeout: DefaultEnrichmentTimeout,
	}
	for _, o := range opts {
		o(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	if p.workers <= 0 {
		p.workers = runtime.GOMAXPROCS(0)
	}
	p.enricher = NewEnricher(p.catalog, p.cache, p.timeout, p.metrics)
	return p
}

// Process segments transcription, runs the per-segment pipeline for every
// segment concurrently, and returns the report together with its flattened
// text. Only an empty transcription is an error ([ErrInvalidInput]); segment
// and slot failures are reported in the returned report.
func (p *Processor) Process(ctx context.Context, transcription string) (*OrderReport, string, error) {
	if strings.TrimSpace(transcription) == "" {
		return nil, "", fmt.Errorf("order: process: %w", ErrInvalidInput)
	}

	ctx, span := observe.StartSpan(ctx, "order.process")
	defer span.End()
	start := time.Now()
	p.metrics.ActiveOrders.Add(ctx, 1)
	defer p.metrics.ActiveOrders.Add(ctx, -1)

	segments := parse.Segment(p.lex, transcription)
	span.SetAttributes(attribute.Int("segments", len(segments)))

	results := p.Run(ctx, segments)
	report, text := BuildReport(results)

	span.SetAttributes(
		attribute.Int("items", len(report.Items)),
		attribute.Int("questions", len(report.Questions)),
		attribute.Bool("partial", report.Partial),
	)
	if report.Partial {
		p.metrics.PartialReports.Add(ctx, 1)
	}
	p.metrics.OrderDuration.Record(ctx, time.Since(start).Seconds())
	return report, text, nil
}

// Run processes segments with at most the configured number of workers and
// returns one result per segment at the segment's index.
func (p *Processor) Run(ctx context.Context, segments []string) []SegmentResult {
	results := make([]SegmentResult, len(segments))
	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, seg := range segments {
		g.Go(func() error {
			results[i] = p.processSegment(ctx, i, seg)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (p *Processor) processSegment(ctx context.Context, index int, segment string) SegmentResult {
	ctx, span := observe.StartSpan(ctx, "order.segment", trace.WithAttributes(
		attribute.Int("index", index),
		attribute.String("segment", segment),
	))
	defer span.End()
	start := time.Now()
	defer func() { p.metrics.SegmentDuration.Record(ctx, time.Since(start).Seconds()) }()

	log := observe.Logger(ctx)
	res := SegmentResult{Index: index, Segment: segment}

	ext := parse.Extract(p.lex, segment)
	res.Action = parse.Classify(segment)
	span.SetAttributes(attribute.String("action", string(res.Action)))

	item, err := Assemble(p.lex, ext, res.Action)
	if err != nil {
		log.Warn("unrecognized segment", "segment", segment, "index", index)
		p.metrics.UnrecognizedSegments.Add(ctx, 1)
		res.Err = err
		return res
	}

	res.CorrectedQuantities = parse.CorrectQuantities(p.lex, item.SlotNames(), segment)
	if resolved := magnitudes(item.Quantities); !slices.Equal(resolved, res.CorrectedQuantities) {
		log.Debug("quantity corrector disagrees with resolver",
			"segment", segment, "resolved", resolved, "corrected", res.CorrectedQuantities)
	}

	failures := p.enricher.Enrich(ctx, &item)
	for i := range failures {
		failures[i].Segment = index
	}
	res.Failures = failures
	res.Item = &item

	p.metrics.RecordLineItem(ctx, string(item.Kind), string(res.Action))
	return res
}

// magnitudes renders quantities the way the corrector does, unsigned.
func magnitudes(qs []int) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		if q < 0 {
			q = -q
		}
		out[i] = strconv.Itoa(q)
	}
	return out
}
