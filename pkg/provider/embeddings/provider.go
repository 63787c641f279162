// Package embeddings defines the text-embedding collaborator used by the
// vector catalog. Menu names and spoken item names are embedded into the same
// space so a loosely transcribed name resolves to its nearest menu entry.
package embeddings

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is returned when a backend answers with vectors whose
// width differs from the configured [Provider.Dimensions].
var ErrDimensionMismatch = errors.New("embeddings: dimension mismatch")

// Provider maps text to dense vectors. Implementations must be safe for
// concurrent use.
type Provider interface {
	// Embed returns the vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input, in input order. On error no
	// partial result is returned.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the width of every vector this provider returns.
	Dimensions() int

	// ModelID names the model. Vectors from different models never share a
	// cache key.
	ModelID() string
}
