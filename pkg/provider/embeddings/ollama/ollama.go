// Package ollama embeds text with a local Ollama server through its
// OpenAI-compatible /v1/embeddings endpoint.
//
//	p, err := ollama.New("", "nomic-embed-text") // http://localhost:11434
//	vec, err := p.Embed(ctx, "caramel macchiato")
package ollama

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/provider/embeddings"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/provider/embeddings/openai"
)

// DefaultBaseURL is where a local Ollama listens by default.
const DefaultBaseURL = "http://localhost:11434"

// knownDimensions lists the output width of common Ollama embedding models.
var knownDimensions = map[string]int{
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
	"snowflake-arctic-embed": 1024,
	"bge-m3":                 1024,
}

var _ embeddings.Provider = (*Provider)(nil)

// Provider implements embeddings.Provider.
//
// The vector width comes from [WithDimensions], then the known-model table,
// then a single probe request whose answer is kept for the provider's life.
type Provider struct {
	api   *openai.Provider
	model string
	dims  int

	probeOnce sync.Once
	probed    int
	probeErr  error
}

type settings struct {
	timeout time.Duration
	dims    int
}

// Option configures a [Provider].
type Option func(*settings)

// WithTimeout bounds every HTTP round trip.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// WithDimensions fixes the vector width and skips the probe.
func WithDimensions(n int) Option {
	return func(s *settings) { s.dims = n }
}

// New returns a Provider for model served at baseURL, or [DefaultBaseURL]
// when baseURL is empty.
func New(baseURL, model string, opts ...Option) (*Provider, error) {
	if model == "" {
		return nil, errors.New("ollama embeddings: model is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	var s settings
	for _, o := range opts {
		o(&s)
	}
	if s.dims < 0 {
		return nil, fmt.Errorf("ollama embeddings: negative dimensions %d", s.dims)
	}

	apiOpts := []openai.Option{
		openai.WithBaseURL(strings.TrimRight(baseURL, "/") + "/v1/"),
		openai.WithMaxRetries(0),
	}
	if s.timeout > 0 {
		apiOpts = append(apiOpts, openai.WithTimeout(s.timeout))
	}
	// Ollama ignores the key but the client refuses to start without one.
	api, err := openai.New("ollama", model, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings: %w", err)
	}

	dims := s.dims
	if dims == 0 {
		dims = knownDimensions[strings.SplitN(model, ":", 2)[0]]
	}
	return &Provider{api: api, model: model, dims: dims}, nil
}

// Embed implements embeddings.Provider.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := p.api.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings: %w", err)
	}
	if err := p.check(vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedBatch implements embeddings.Provider.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := p.api.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings: %w", err)
	}
	for _, v := range vecs {
		if err := p.check(v); err != nil {
			return nil, err
		}
	}
	return vecs, nil
}

// check rejects a vector whose width disagrees with a known width.
func (p *Provider) check(vec []float32) error {
	if p.dims > 0 && len(vec) != p.dims {
		return fmt.Errorf("ollama embeddings: %w: want %d, got %d", embeddings.ErrDimensionMismatch, p.dims, len(vec))
	}
	return nil
}

// Dimensions implements embeddings.Provider. For an unknown model without
// [WithDimensions] the first call probes the server; 0 means the probe failed.
func (p *Provider) Dimensions() int {
	n, _ := p.Probe(context.Background())
	return n
}

// Probe resolves the vector width, embedding a fixed string at most once.
// Call it at startup with a bounded ctx to surface an unreachable server.
func (p *Provider) Probe(ctx context.Context) (int, error) {
	if p.dims > 0 {
		return p.dims, nil
	}
	p.probeOnce.Do(func() {
		vec, err := p.api.Embed(ctx, "probe")
		if err != nil {
			p.probeErr = fmt.Errorf("ollama embeddings: probe: %w", err)
			return
		}
		p.probed = len(vec)
	})
	return p.probed, p.probeErr
}

// ModelID implements embeddings.Provider.
func (p *Provider) ModelID() string { return p.model }
