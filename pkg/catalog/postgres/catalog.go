package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/cache"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/catalog"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/provider/embeddings"
)

// DefaultMaxDistance is the cosine distance above which the nearest menu
// entry is not considered a match.
const DefaultMaxDistance = 0.35

var _ catalog.Lookup = (*Catalog)(nil)

// Catalog is a pgvector-backed menu. All methods are safe for concurrent use.
type Catalog struct {
	pool        *pgxpool.Pool
	embedder    embeddings.Provider
	cache       cache.Cache
	maxDistance float64
	dimensions  int
}

// Option is a functional option for [New] and [NewFromPool].
type Option func(*Catalog)

// WithCache stores name embeddings in c so repeated lookups of the same
// spoken name skip the embeddings provider.
func WithCache(c cache.Cache) Option {
	return func(cat *Catalog) { cat.cache = c }
}

// WithMaxDistance sets the cosine distance cut-off. Default:
// [DefaultMaxDistance].
func WithMaxDistance(d float64) Option {
	return func(cat *Catalog) { cat.maxDistance = d }
}

// WithDimensions overrides the vector width used for the schema. Defaults to
// embedder.Dimensions().
func WithDimensions(n int) Option {
	return func(cat *Catalog) { cat.dimensions = n }
}

// New opens a pool to dsn, registers pgvector types on every connection and
// runs [Migrate].
func New(ctx context.Context, dsn string, embedder embeddings.Provider, opts ...Option) (*Catalog, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres catalog: parse dsn: %w", err)
	}
	if err := ensureExtension(ctx, dsn); err != nil {
		return nil, fmt.Errorf("postgres catalog: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres catalog: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres catalog: ping: %w", err)
	}

	c, err := NewFromPool(ctx, pool, embedder, opts...)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return c, nil
}

// ensureExtension installs pgvector over a plain connection. Pool connections
// register the vector type on connect, which fails until the extension exists.
func ensureExtension(ctx context.Context, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(ctx)
	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("create extension: %w", err)
	}
	return nil
}

// NewFromPool wraps an existing pool and runs [Migrate]. The pool must have
// pgvector types registered.
func NewFromPool(ctx context.Context, pool *pgxpool.Pool, embedder embeddings.Provider, opts ...Option) (*Catalog, error) {
	if embedder == nil {
		return nil, errors.New("postgres catalog: embeddings provider is required")
	}
	c := &Catalog{
		pool:        pool,
		embedder:    embedder,
		maxDistance: DefaultMaxDistance,
	}
	for _, o := range opts {
		o(c)
	}
	if c.dimensions == 0 {
		c.dimensions = embedder.Dimensions()
	}
	if err := Migrate(ctx, pool, c.dimensions); err != nil {
		return nil, fmt.Errorf("postgres catalog: %w", err)
	}
	return c, nil
}

// Lookup implements catalog.Lookup.
func (c *Catalog) Lookup(ctx context.Context, name string) (catalog.Item, error) {
	q := normalize(name)
	if q == "" {
		return catalog.Item{}, fmt.Errorf("postgres catalog: empty name: %w", catalog.ErrNotFound)
	}

	item, err := c.byName(ctx, q)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return catalog.Item{}, fmt.Errorf("postgres catalog: lookup %q: %w", q, err)
	}

	vec, err := c.embed(ctx, q)
	if err != nil {
		return catalog.Item{}, fmt.Errorf("postgres catalog: lookup %q: %w", q, err)
	}
	item, dist, err := c.nearest(ctx, vec)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Item{}, fmt.Errorf("postgres catalog: %q: %w", q, catalog.ErrNotFound)
	}
	if err != nil {
		return catalog.Item{}, fmt.Errorf("postgres catalog: lookup %q: %w", q, err)
	}
	if dist > c.maxDistance {
		slog.Debug("nearest menu item too far", "query", q, "nearest", item.Name, "distance", dist)
		return catalog.Item{}, fmt.Errorf("postgres catalog: %q (nearest %q at %.3f): %w", q, item.Name, dist, catalog.ErrNotFound)
	}
	return item, nil
}

const selectItem = `SELECT name, kind, stock, allergies, calories_min, calories_max, price FROM menu_items`

func (c *Catalog) byName(ctx context.Context, name string) (catalog.Item, error) {
	var it catalog.Item
	err := c.pool.QueryRow(ctx, selectItem+` WHERE name = $1`, name).Scan(
		&it.Name, &it.Kind, &it.Stock, &it.Allergies,
		&it.Calories.Min, &it.Calories.Max, &it.Price,
	)
	return it, err
}

func (c *Catalog) nearest(ctx context.Context, vec []float32) (catalog.Item, float64, error) {
	var (
		it   catalog.Item
		dist float64
	)
	err := c.pool.QueryRow(ctx, `
		SELECT name, kind, stock, allergies, calories_min, calories_max, price,
		       embedding <=> $1 AS distance
		FROM   menu_items
		WHERE  embedding IS NOT NULL
		ORDER  BY distance
		LIMIT  1`, pgvector.NewVector(vec)).Scan(
		&it.Name, &it.Kind, &it.Stock, &it.Allergies,
		&it.Calories.Min, &it.Calories.Max, &it.Price, &dist,
	)
	return it, dist, err
}

// Seed embeds every item name and upserts the menu in one batch.
func (c *Catalog) Seed(ctx context.Context, items []catalog.Item) error {
	if len(items) == 0 {
		return nil
	}
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = normalize(it.Name)
	}
	vecs, err := c.embedder.EmbedBatch(ctx, names)
	if err != nil {
		return fmt.Errorf("postgres catalog: seed: embed: %w", err)
	}
	if len(vecs) != len(items) {
		return fmt.Errorf("postgres catalog: seed: got %d embeddings for %d items", len(vecs), len(items))
	}

	const q = `
		INSERT INTO menu_items
		    (name, kind, stock, allergies, calories_min, calories_max, price, embedding, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (name) DO UPDATE SET
		    kind         = EXCLUDED.kind,
		    stock        = EXCLUDED.stock,
		    allergies    = EXCLUDED.allergies,
		    calories_min = EXCLUDED.calories_min,
		    calories_max = EXCLUDED.calories_max,
		    price        = EXCLUDED.price,
		    embedding    = EXCLUDED.embedding,
		    updated_at   = now()`

	batch := &pgx.Batch{}
	for i, it := range items {
		batch.Queue(q, names[i], it.Kind, it.Stock, it.Allergies,
			it.Calories.Min, it.Calories.Max, it.Price, pgvector.NewVector(vecs[i]))
		c.storeEmbedding(ctx, names[i], vecs[i])
	}
	if err := c.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres catalog: seed: %w", err)
	}
	return nil
}

// SetStock updates the stock level of one entry.
func (c *Catalog) SetStock(ctx context.Context, name string, stock int) error {
	tag, err := c.pool.Exec(ctx,
		`UPDATE menu_items SET stock = $2, updated_at = now() WHERE name = $1`,
		normalize(name), stock)
	if err != nil {
		return fmt.Errorf("postgres catalog: set stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres catalog: set stock %q: %w", name, catalog.ErrNotFound)
	}
	return nil
}

// Ping checks database connectivity. It is used by the readiness probe.
func (c *Catalog) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Close releases all pooled connections.
func (c *Catalog) Close() {
	c.pool.Close()
}

// embeddingKey is the cache key for the vector of name under the current
// model.
func (c *Catalog) embeddingKey(name string) string {
	return "catalog:embedding:" + c.embedder.ModelID() + ":" + name
}

// embed returns the vector for name, consulting the cache first. Cache
// failures are logged and never fail the lookup.
func (c *Catalog) embed(ctx context.Context, name string) ([]float32, error) {
	if c.cache != nil {
		b, err := c.cache.Get(ctx, c.embeddingKey(name))
		switch {
		case err == nil:
			var vec []float32
			if jerr := json.Unmarshal(b, &vec); jerr == nil && len(vec) > 0 {
				return vec, nil
			}
			slog.Warn("discarding corrupt cached embedding", "name", name)
		case !errors.Is(err, cache.ErrMiss):
			slog.Warn("embedding cache read failed", "name", name, "err", err)
		}
	}

	vec, err := c.embedder.Embed(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	c.storeEmbedding(ctx, name, vec)
	return vec, nil
}

func (c *Catalog) storeEmbedding(ctx context.Context, name string, vec []float32) {
	if c.cache == nil || len(vec) == 0 {
		return
	}
	b, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, c.embeddingKey(name), b); err != nil {
		slog.Warn("embedding cache write failed", "name", name, "err", err)
	}
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
