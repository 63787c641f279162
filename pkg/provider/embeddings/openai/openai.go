// Package openai embeds text through the OpenAI embeddings API, or any server
// that speaks the same wire format.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/provider/embeddings"
)

const (
	// DefaultModel is used when New receives an empty model.
	DefaultModel = oai.EmbeddingModelTextEmbedding3Small

	// DefaultBatchSize caps the inputs sent in one request. The API accepts
	// up to 2048.
	DefaultBatchSize = 512
)

var _ embeddings.Provider = (*Provider)(nil)

// Provider implements embeddings.Provider.
type Provider struct {
	client    oai.Client
	model     string
	dims      int
	batchSize int
}

type settings struct {
	baseURL      string
	organization string
	timeout      time.Duration
	dims         int
	batchSize    int
	maxRetries   int
}

// Option configures a [Provider].
type Option func(*settings)

// WithBaseURL points the client at another endpoint.
func WithBaseURL(url string) Option {
	return func(s *settings) { s.baseURL = url }
}

// WithOrganization sets the organization header.
func WithOrganization(org string) Option {
	return func(s *settings) { s.organization = org }
}

// WithTimeout bounds every HTTP round trip.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// WithDimensions requests vectors of width n and rejects answers of any other
// width. Only text-embedding-3 models can shorten their output.
func WithDimensions(n int) Option {
	return func(s *settings) { s.dims = n }
}

// WithBatchSize caps the inputs per request. Default: [DefaultBatchSize].
func WithBatchSize(n int) Option {
	return func(s *settings) { s.batchSize = n }
}

// WithMaxRetries sets how often a failed request is retried. Default: the
// client library's default.
func WithMaxRetries(n int) Option {
	return func(s *settings) { s.maxRetries = n }
}

// New returns a Provider for model, or [DefaultModel] when model is empty.
func New(apiKey, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openai embeddings: api key is required")
	}
	s := settings{batchSize: DefaultBatchSize, maxRetries: -1}
	for _, o := range opts {
		o(&s)
	}
	if s.dims < 0 {
		return nil, fmt.Errorf("openai embeddings: negative dimensions %d", s.dims)
	}
	if s.batchSize <= 0 {
		return nil, fmt.Errorf("openai embeddings: batch size must be positive, got %d", s.batchSize)
	}
	if model == "" {
		model = DefaultModel
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if s.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(s.baseURL))
	}
	if s.organization != "" {
		reqOpts = append(reqOpts, option.WithOrganization(s.organization))
	}
	if s.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: s.timeout}))
	}
	if s.maxRetries >= 0 {
		reqOpts = append(reqOpts, option.WithMaxRetries(s.maxRetries))
	}

	return &Provider{
		client:    oai.NewClient(reqOpts...),
		model:     model,
		dims:      s.dims,
		batchSize: s.batchSize,
	}, nil
}

// Embed implements embeddings.Provider.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.request(ctx, oai.EmbeddingNewParamsInputUnion{OfString: param.NewOpt(text)}, 1)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: embed: %w", err)
	}
	return vecs[0], nil
}

// EmbedBatch implements embeddings.Provider. Inputs beyond the batch size are
// sent in consecutive requests.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += p.batchSize {
		chunk := texts[start:min(start+p.batchSize, len(texts))]
		vecs, err := p.request(ctx, oai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: chunk}, len(chunk))
		if err != nil {
			return nil, fmt.Errorf("openai embeddings: embed batch at %d: %w", start, err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// request sends one embeddings call and returns want vectors ordered by the
// index the server reports.
func (p *Provider) request(ctx context.Context, input oai.EmbeddingNewParamsInputUnion, want int) ([][]float32, error) {
	params := oai.EmbeddingNewParams{Model: p.model, Input: input}
	if p.dims > 0 {
		params.Dimensions = param.NewOpt(int64(p.dims))
	}
	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != want {
		return nil, fmt.Errorf("want %d vectors, got %d", want, len(resp.Data))
	}

	vecs := make([][]float32, want)
	for _, d := range resp.Data {
		i := int(d.Index)
		if i < 0 || i >= want || vecs[i] != nil {
			return nil, fmt.Errorf("bad vector index %d", d.Index)
		}
		if p.dims > 0 && len(d.Embedding) != p.dims {
			return nil, fmt.Errorf("%w: want %d, got %d", embeddings.ErrDimensionMismatch, p.dims, len(d.Embedding))
		}
		vecs[i] = toFloat32(d.Embedding)
	}
	return vecs, nil
}

// Dimensions implements embeddings.Provider.
func (p *Provider) Dimensions() int {
	if p.dims > 0 {
		return p.dims
	}
	if strings.Contains(strings.ToLower(p.model), "3-large") {
		return 3072
	}
	return 1536
}

// ModelID implements embeddings.Provider.
func (p *Provider) ModelID() string { return p.model }

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
