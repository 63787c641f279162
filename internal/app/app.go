// Package app wires all BeanHub subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP until its context is cancelled, and Shutdown
// tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithCatalog, WithCache, etc.). When an option is not provided, New creates
// real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/config"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/dispatch"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/health"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/observe"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/order"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/resilience"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/server"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/cache"
	cachememory "github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/cache/memory"
	cacheredis "github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/cache/redis"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/catalog"
	catalogmemory "github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/catalog/memory"
	catalogpg "github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/catalog/postgres"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/provider/embeddings"
)

// readHeaderTimeout bounds how long a client may take to send request headers.
const readHeaderTimeout = 10 * time.Second

// healthProbe is the item name looked up by the catalog readiness check.
const healthProbe = "coffee"

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	Embeddings embeddings.Provider
}

// App owns all subsystem lifetimes and serves the BeanHub HTTP API.
type App struct {
	cfg       *config.Config
	providers *Providers

	// Subsystems, initialised in New and torn down in Shutdown.
	cache     cache.Cache
	catalog   catalog.Lookup
	publisher server.Publisher
	processor *order.Processor
	server    *server.Server
	checkers  []health.Checker
	metrics   *observe.Metrics
	gatherer  prometheus.Gatherer
	http      *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithCatalog injects a catalog instead of creating one from config.
func WithCatalog(c catalog.Lookup) Option {
	return func(a *App) { a.catalog = c }
}

// WithCache injects a cache instead of creating one from config.
func WithCache(c cache.Cache) Option {
	return func(a *App) { a.cache = c }
}

// WithPublisher injects a report publisher instead of dialling AMQP.
func WithPublisher(p server.Publisher) Option {
	return func(a *App) { a.publisher = p }
}

// WithMetrics sets the instruments shared by the processor and HTTP layer.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithGatherer sets the Prometheus gatherer served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(a *App) { a.gatherer = g }
}

// New creates a new App by wiring all subsystems together. Any subsystem
// already provided via an Option is used as-is; otherwise it is created from
// cfg.
//
// New performs all initialisation synchronously: cache connection, catalog
// connection and optional seeding, AMQP dial, processor and HTTP server
// construction. On error every subsystem opened so far is closed.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// ── 1. Cache ─────────────────────────────────────────────────────────
	if err := a.initCache(ctx); err != nil {
		return nil, a.abort(fmt.Errorf("app: init cache: %w", err))
	}

	// ── 2. Catalog ───────────────────────────────────────────────────────
	if err := a.initCatalog(ctx); err != nil {
		return nil, a.abort(fmt.Errorf("app: init catalog: %w", err))
	}

	// ── 3. Dispatch ──────────────────────────────────────────────────────
	if err := a.initDispatch(); err != nil {
		return nil, a.abort(fmt.Errorf("app: init dispatch: %w", err))
	}

	// ── 4. Processor ─────────────────────────────────────────────────────
	a.processor = order.NewProcessor(a.catalog,
		order.WithCache(a.cache),
		order.WithEnrichmentTimeout(cfg.Pipeline.EnrichmentTimeout),
		order.WithSegmentWorkers(cfg.Pipeline.SegmentWorkers),
		order.WithMetrics(a.metrics),
	)

	// ── 5. HTTP server ───────────────────────────────────────────────────
	srvOpts := []server.Option{
		server.WithHealth(health.New(a.checkers)),
		server.WithMetrics(a.metrics),
	}
	if a.publisher != nil {
		srvOpts = append(srvOpts, server.WithPublisher(a.publisher))
	}
	if a.gatherer != nil {
		srvOpts = append(srvOpts, server.WithGatherer(a.gatherer))
	}
	a.server = server.New(a.processor, srvOpts...)
	a.http = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.server.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initCache connects to Redis when configured and falls back to the
// in-process cache otherwise.
func (a *App) initCache(ctx context.Context) error {
	if a.cache != nil {
		a.checkers = append(a.checkers, health.CacheChecker("cache", a.cache))
		return nil
	}

	cc := a.cfg.Cache
	if cc.RedisAddr == "" {
		a.cache = cachememory.New(cachememory.WithTTL(cc.TTL))
		a.checkers = append(a.checkers, health.CacheChecker("cache", a.cache))
		return nil
	}

	rc, err := cacheredis.New(ctx, cacheredis.Config{
		Addr:     cc.RedisAddr,
		Password: cc.RedisPassword,
		DB:       cc.RedisDB,
		TTL:      cc.TTL,
		Prefix:   "beanhub:",
	})
	if err != nil {
		return err
	}
	a.cache = rc
	a.closers = append(a.closers, rc.Close)
	a.checkers = append(a.checkers, health.Optional(health.PingChecker("redis", rc)))
	slog.Info("redis cache connected", "addr", cc.RedisAddr, "db", cc.RedisDB)
	return nil
}

// initCatalog loads the in-memory menu and, when a PostgreSQL DSN is
// configured, puts the pgvector catalog in front of it behind a circuit
// breaker.
func (a *App) initCatalog(ctx context.Context) error {
	if a.catalog != nil {
		a.checkers = append(a.checkers, health.CatalogChecker("catalog", a.catalog, healthProbe))
		return nil
	}

	cc := a.cfg.Catalog
	items := catalogmemory.DefaultMenu()
	if cc.MenuFile != "" {
		var err error
		if items, err = catalogmemory.LoadMenuFile(cc.MenuFile); err != nil {
			return err
		}
	}
	mem, err := catalogmemory.New(items)
	if err != nil {
		return err
	}
	slog.Info("menu loaded", "items", mem.Len(), "file", cc.MenuFile)

	if cc.PostgresDSN == "" {
		a.catalog = mem
		a.checkers = append(a.checkers, health.CatalogChecker("catalog", a.catalog, healthProbe))
		return nil
	}

	if a.providers.Embeddings == nil {
		return errors.New("postgres catalog requires an embeddings provider")
	}
	embedder := &meteredEmbeddings{
		Provider: a.providers.Embeddings,
		name:     a.cfg.Providers.Embeddings.Name,
		metrics:  a.metrics,
	}
	pg, err := catalogpg.New(ctx, cc.PostgresDSN, embedder,
		catalogpg.WithCache(a.cache),
		catalogpg.WithMaxDistance(cc.MaxDistance),
		catalogpg.WithDimensions(cc.EmbeddingDimensions),
	)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() error { pg.Close(); return nil })

	if cc.Seed {
		if err := pg.Seed(ctx, items); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		slog.Info("menu seeded into postgres", "items", len(items))
	}

	fb := resilience.NewCatalogFallback(pg, "postgres", resilience.BreakerConfig{
		MaxFailures:  cc.CircuitBreaker.MaxFailures,
		ResetTimeout: cc.CircuitBreaker.ResetTimeout,
		OnStateChange: func(name string, _, to resilience.State) {
			a.metrics.RecordBreakerTransition(context.Background(), name, to.String())
		},
	})
	fb.AddFallback("memory", mem)
	a.catalog = fb
	a.checkers = append(a.checkers,
		health.Optional(health.PingChecker("postgres", pg)),
		health.CatalogChecker("catalog", a.catalog, healthProbe),
	)
	return nil
}

// initDispatch dials the AMQP broker when configured.
func (a *App) initDispatch() error {
	if a.publisher != nil {
		return nil
	}
	dc := a.cfg.Dispatch
	if dc.AMQPURL == "" {
		return nil
	}
	pub, err := dispatch.Dial(dispatch.Config{
		URL:        dc.AMQPURL,
		Exchange:   dc.Exchange,
		RoutingKey: dc.RoutingKey,
	})
	if err != nil {
		return err
	}
	a.publisher = pub
	a.closers = append(a.closers, pub.Close)
	a.checkers = append(a.checkers, health.Optional(health.PingChecker("amqp", pub)))
	slog.Info("report dispatch enabled", "exchange", dc.Exchange, "routing_key", dc.RoutingKey)
	return nil
}

// abort closes everything opened so far and returns err.
func (a *App) abort(err error) error {
	for _, closer := range a.closers {
		if cerr := closer(); cerr != nil {
			slog.Warn("closer error during abort", "err", cerr)
		}
	}
	a.closers = nil
	return err
}

// ─── Lifecycle ───────────────────────────────────────────────────────────────

// Handler returns the routed HTTP handler.
func (a *App) Handler() http.Handler {
	return a.http.Handler
}

// Process runs one transcription through the pipeline without HTTP and
// publishes the result when dispatch is configured.
func (a *App) Process(ctx context.Context, transcription string) (*order.OrderReport, string, error) {
	report, text, err := a.processor.Process(ctx, transcription)
	if err != nil {
		return nil, "", err
	}
	if a.publisher != nil {
		if err := a.publisher.Publish(ctx, report, text); err != nil {
			slog.Warn("report dispatch failed", "err", err)
		}
	}
	return report, text, nil
}

// Run listens on the configured address and serves HTTP until ctx is
// cancelled. When ctx is done, Run returns context.Canceled (or the
// underlying cause). Call Shutdown afterwards to drain connections.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.http.Addr)
	if err != nil {
		return fmt.Errorf("app: listen %s: %w", a.http.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is like Run but accepts connections on ln.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.http.Serve(ln)
	}()
	slog.Info("app running", "addr", ln.Addr().String())

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	}
}

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		// Drain HTTP first so no request reaches a closed collaborator.
		if err := a.http.Shutdown(ctx); err != nil {
			slog.Warn("http shutdown error", "err", err)
			shutdownErr = err
			return
		}

		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
