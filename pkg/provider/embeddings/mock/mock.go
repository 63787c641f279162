// Package mock provides a recording embeddings.Provider for tests.
//
//	p := &mock.Provider{EmbedResult: []float32{1, 0, 0}, DimensionsValue: 3, ModelIDValue: "test"}
package mock

import (
	"context"
	"sync"

	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/provider/embeddings"
)

var _ embeddings.Provider = (*Provider)(nil)

// Provider answers from its exported fields and records every text it is
// asked to embed. Safe for concurrent use.
type Provider struct {
	mu sync.Mutex

	// EmbedFunc, when set, computes each vector and wins over EmbedResult.
	EmbedFunc func(text string) []float32

	// EmbedResult is returned for every text when EmbedFunc is nil.
	EmbedResult []float32

	// EmbedErr fails Embed and EmbedBatch.
	EmbedErr error

	DimensionsValue int
	ModelIDValue    string

	// EmbedCalls holds the text of every Embed call.
	EmbedCalls []string

	// BatchCalls holds a copy of the texts of every EmbedBatch call.
	BatchCalls [][]string
}

// Embed implements embeddings.Provider.
func (p *Provider) Embed(_ context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EmbedCalls = append(p.EmbedCalls, text)
	if p.EmbedErr != nil {
		return nil, p.EmbedErr
	}
	return p.vector(text), nil
}

// EmbedBatch implements embeddings.Provider.
func (p *Provider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.BatchCalls = append(p.BatchCalls, append([]string(nil), texts...))
	if p.EmbedErr != nil {
		return nil, p.EmbedErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = p.vector(t)
	}
	return out, nil
}

func (p *Provider) vector(text string) []float32 {
	if p.EmbedFunc != nil {
		return p.EmbedFunc(text)
	}
	return p.EmbedResult
}

// Dimensions implements embeddings.Provider.
func (p *Provider) Dimensions() int { return p.DimensionsValue }

// ModelID implements embeddings.Provider.
func (p *Provider) ModelID() string { return p.ModelIDValue }

// Calls returns how many texts have been embedded across both methods.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.EmbedCalls)
	for _, b := range p.BatchCalls {
		n += len(b)
	}
	return n
}
