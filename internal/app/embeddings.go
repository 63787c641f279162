package app

import (
	"context"

	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/observe"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/provider/embeddings"
)

// meteredEmbeddings counts and traces every call to the wrapped provider.
type meteredEmbeddings struct {
	embeddings.Provider
	name    string
	metrics *observe.Metrics
}

var _ embeddings.Provider = (*meteredEmbeddings)(nil)

func (m *meteredEmbeddings) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := observe.StartSpan(ctx, "embeddings.embed")
	vec, err := m.Provider.Embed(ctx, text)
	observe.EndSpan(span, err)
	m.record(ctx, err)
	return vec, err
}

func (m *meteredEmbeddings) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, span := observe.StartSpan(ctx, "embeddings.embed_batch")
	vecs, err := m.Provider.EmbedBatch(ctx, texts)
	observe.EndSpan(span, err)
	m.record(ctx, err)
	return vecs, err
}

func (m *meteredEmbeddings) record(ctx context.Context, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.metrics.RecordProviderRequest(ctx, m.name, status)
}
