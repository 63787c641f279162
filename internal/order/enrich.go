package order

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/observe"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/parse"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/cache"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/catalog"
)

// itemCachePrefix prefixes catalog results stored in the cache.
const itemCachePrefix = "catalog:item:"

// Enricher resolves price, calorie, allergy, and stock data for every slot of
// a line item.
type Enricher struct {
	catalog catalog.Lookup
	cache   cache.Cache
	timeout time.Duration
	metrics *observe.Metrics
}

// NewEnricher returns an Enricher backed by c. cache may be nil. A timeout
// <= 0 waits for every lookup until ctx ends.
func NewEnricher(c catalog.Lookup, cch cache.Cache, timeout time.Duration, m *observe.Metrics) *Enricher {
	if m == nil {
		m = observe.DefaultMetrics()
	}
	return &Enricher{catalog: c, cache: cch, timeout: timeout, metrics: m}
}

type slotResult struct {
	slot int
	item catalog.Item
	err  error
}

// Enrich issues one concurrent catalog lookup per slot of item and fills the
// slot's price and calorie range in place. The base slot supplies Allergies.
// For [parse.Question] items the catalog stock replaces each slot's quantity.
//
// Slots not answered before the timeout or ctx end are reported with
// [ErrEnrichmentTimeout]; failed lookups with [ErrEnrichmentLookupFailed].
// Either way the slot keeps the unknown sentinel. The returned failures have
// Segment unset.
func (e *Enricher) Enrich(ctx context.Context, item *LineItem) []SlotFailure {
	names := item.SlotNames()
	ctx, span := observe.StartSpan(ctx, "order.enrich", trace.WithAttributes(
		attribute.String("item", item.Name),
		attribute.Int("slots", len(names)),
	))
	start := time.Now()

	if len(item.Prices) != len(names) {
		item.Prices = make([]float64, len(names))
	}
	if len(item.CalorieRanges) != len(names) {
		item.CalorieRanges = make([]catalog.CalorieRange, len(names))
	}

	lookupCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so abandoned lookups never block after the collector returns.
	results := make(chan slotResult, len(names))
	for i, name := range names {
		go func() {
			it, err := e.lookup(lookupCtx, name)
			results <- slotResult{slot: i, item: it, err: err}
		}()
	}

	var deadline <-chan time.Time
	if e.timeout > 0 {
		timer := time.NewTimer(e.timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	var failures []SlotFailure
	filled := make([]bool, len(names))
	log := observe.Logger(ctx)

collect:
	for range names {
		select {
		case r := <-results:
			filled[r.slot] = true
			if r.err != nil {
				err := fmt.Errorf("%w: %q: %w", ErrEnrichmentLookupFailed, names[r.slot], r.err)
				log.Warn("enrichment slot failed", "item", item.Name, "slot", r.slot, "err", err)
				failures = append(failures, SlotFailure{Item: item.Name, Slot: r.slot, Name: names[r.slot], Err: err})
				continue
			}
			apply(item, r.slot, r.item)
		case <-deadline:
			break collect
		case <-ctx.Done():
			break collect
		}
	}

	for slot, ok := range filled {
		if ok {
			continue
		}
		err := fmt.Errorf("%w: %q", ErrEnrichmentTimeout, names[slot])
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %q: %w", ErrEnrichmentTimeout, names[slot], ctx.Err())
		}
		log.Warn("enrichment slot failed", "item", item.Name, "slot", slot, "err", err)
		e.metrics.RecordCatalogLookup(ctx, "timeout")
		failures = append(failures, SlotFailure{Item: item.Name, Slot: slot, Name: names[slot], Err: err})
	}
	slices.SortFunc(failures, func(a, b SlotFailure) int { return cmp.Compare(a.Slot, b.Slot) })

	e.metrics.EnrichmentDuration.Record(ctx, time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("failures", len(failures)))
	span.End()
	return failures
}

func apply(item *LineItem, slot int, it catalog.Item) {
	item.Prices[slot] = it.Price
	item.CalorieRanges[slot] = it.Calories
	if slot == 0 {
		item.Allergies = it.Allergies
	}
	if item.CartAction == parse.Question && slot < len(item.Quantities) {
		item.Quantities[slot] = it.Stock
	}
}

// lookup consults the cache and falls through to the catalog on a miss or
// cache error. Only successful catalog answers are cached.
func (e *Enricher) lookup(ctx context.Context, name string) (catalog.Item, error) {
	key := itemCachePrefix + name
	if e.cache != nil {
		if it, ok := e.cached(ctx, key); ok {
			return it, nil
		}
	}

	it, err := e.catalog.Lookup(ctx, name)
	switch {
	case err == nil:
		e.metrics.RecordCatalogLookup(ctx, "ok")
	case errors.Is(err, catalog.ErrNotFound):
		e.metrics.RecordCatalogLookup(ctx, "not_found")
		return catalog.Item{}, err
	default:
		e.metrics.RecordCatalogLookup(ctx, "error")
		return catalog.Item{}, err
	}

	if e.cache != nil {
		if b, merr := json.Marshal(it); merr == nil {
			if serr := e.cache.Set(ctx, key, b); serr != nil {
				observe.Logger(ctx).Debug("catalog cache write failed", "key", key, "err", serr)
			}
		}
	}
	return it, nil
}

func (e *Enricher) cached(ctx context.Context, key string) (catalog.Item, bool) {
	b, err := e.cache.Get(ctx, key)
	switch {
	case err == nil:
	case errors.Is(err, cache.ErrMiss):
		e.metrics.RecordCacheRequest(ctx, "miss")
		return catalog.Item{}, false
	default:
		e.metrics.RecordCacheRequest(ctx, "error")
		observe.Logger(ctx).Debug("catalog cache read failed", "key", key, "err", err)
		return catalog.Item{}, false
	}

	var it catalog.Item
	if err := json.Unmarshal(b, &it); err != nil {
		e.metrics.RecordCacheRequest(ctx, "error")
		return catalog.Item{}, false
	}
	e.metrics.RecordCacheRequest(ctx, "hit")
	return it, true
}
