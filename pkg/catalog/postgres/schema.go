// Package postgres provides a PostgreSQL + pgvector implementation of
// catalog.Lookup.
//
// Menu entries live in a single menu_items table whose embedding column is
// indexed with HNSW for cosine distance. A lookup first tries an exact name
// match and otherwise embeds the spoken name and returns the nearest entry,
// provided it lies within the configured maximum distance.
//
// Usage:
//
//	c, err := postgres.New(ctx, dsn, embedder, postgres.WithCache(redisCache))
//	if err != nil { … }
//	defer c.Close()
//
//	_ = c.Seed(ctx, memory.DefaultMenu())
//	item, err := c.Lookup(ctx, "iced carmel latte")
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ddlMenuItems returns the menu DDL with the embedding dimension substituted.
// The vector dimension is baked into the column type at schema creation time.
func ddlMenuItems(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS menu_items (
    name          TEXT              PRIMARY KEY,
    kind          TEXT              NOT NULL DEFAULT '',
    stock         INTEGER           NOT NULL DEFAULT 0 CHECK (stock >= 0),
    allergies     TEXT              NOT NULL DEFAULT '',
    calories_min  INTEGER           NOT NULL DEFAULT 0,
    calories_max  INTEGER           NOT NULL DEFAULT 0,
    price         DOUBLE PRECISION  NOT NULL DEFAULT 0 CHECK (price >= 0),
    embedding     vector(%d),
    updated_at    TIMESTAMPTZ       NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_menu_items_kind
    ON menu_items (kind);

CREATE INDEX IF NOT EXISTS idx_menu_items_embedding
    ON menu_items USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates the vector extension, the menu_items table and its indexes.
// It is idempotent and safe to call on every application start.
//
// embeddingDimensions must match the embeddings provider (e.g., 1536 for
// OpenAI text-embedding-3-small, 768 for nomic-embed-text). Changing it after
// the first migration requires a manual schema update.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	if embeddingDimensions <= 0 {
		return fmt.Errorf("postgres migrate: embedding dimensions must be positive, got %d", embeddingDimensions)
	}
	if _, err := pool.Exec(ctx, ddlMenuItems(embeddingDimensions)); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}
