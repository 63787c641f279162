package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists the built-in provider names per kind. Other
// names only produce a warning, since a binary may register its own.
var ValidProviderNames = map[string][]string{
	"embeddings": {"openai", "ollama"},
}

// Load opens path and hands it to [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes strict YAML from r, then applies defaults and
// validates. Unknown keys are errors. An empty document is the default
// configuration.
func LoadFromReader(r io.Reader) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// problems accumulates validation failures keyed by their YAML path.
type problems []error

func (p *problems) addf(key, format string, args ...any) {
	*p = append(*p, fmt.Errorf("%s: "+format, append([]any{key}, args...)...))
}

func (p *problems) negative(key string, v int) {
	if v < 0 {
		p.addf(key, "%d must not be negative", v)
	}
}

// Validate reports every problem in cfg at once, joined.
func Validate(cfg *Config) error {
	var p problems

	s := cfg.Server
	if s.LogLevel != "" && !s.LogLevel.IsValid() {
		p.addf("server.log_level", "%q is invalid; valid values: debug, info, warn, error", s.LogLevel)
	}
	if s.LogFormat != "" && s.LogFormat != "text" && s.LogFormat != "json" {
		p.addf("server.log_format", "%q is invalid; valid values: text, json", s.LogFormat)
	}
	if s.TraceSampleRatio < 0 || s.TraceSampleRatio > 1 {
		p.addf("server.trace_sample_ratio", "%.2f is out of range [0, 1]", s.TraceSampleRatio)
	}

	p.negative("pipeline.segment_workers", cfg.Pipeline.SegmentWorkers)
	if cfg.Pipeline.EnrichmentTimeout < 0 {
		p.addf("pipeline.enrichment_timeout", "%s must not be negative", cfg.Pipeline.EnrichmentTimeout)
	}

	c := cfg.Catalog
	if c.MaxDistance < 0 || c.MaxDistance > 2 {
		p.addf("catalog.max_distance", "%.2f is out of range [0, 2]", c.MaxDistance)
	}
	p.negative("catalog.embedding_dimensions", c.EmbeddingDimensions)
	p.negative("catalog.circuit_breaker.max_failures", c.CircuitBreaker.MaxFailures)
	if c.PostgresDSN != "" && cfg.Providers.Embeddings.Name == "" {
		p.addf("catalog.postgres_dsn", "requires an embeddings provider but providers.embeddings is not configured")
	}
	if c.Seed && c.PostgresDSN == "" {
		slog.Warn("catalog.seed has no effect without catalog.postgres_dsn")
	}

	if cfg.Cache.TTL < 0 {
		p.addf("cache.ttl", "%s must not be negative", cfg.Cache.TTL)
	}
	p.negative("cache.redis_db", cfg.Cache.RedisDB)

	if cfg.Dispatch.AMQPURL != "" && cfg.Dispatch.Exchange == "" {
		p.addf("dispatch.exchange", "is required when dispatch.amqp_url is set")
	}

	warnUnknownProvider("embeddings", cfg.Providers.Embeddings.Name)

	return errors.Join(p...)
}

func warnUnknownProvider(kind, name string) {
	known, ok := ValidProviderNames[kind]
	if name == "" || !ok || slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or a custom registration",
		"kind", kind, "name", name, "known", known)
}
