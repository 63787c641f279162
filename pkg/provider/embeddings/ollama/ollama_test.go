package ollama_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/provider/embeddings"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/provider/embeddings/ollama"
)

// compatServer answers /v1/embeddings with vectors of width dims and counts
// requests.
func compatServer(t *testing.T, dims int, hits *atomic.Int32) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("path = %q, want /v1/embeddings", r.URL.Path)
		}
		hits.Add(1)
		var req struct {
			Model string `json:"model"`
			Input any    `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		n := 1
		if in, ok := req.Input.([]any); ok {
			n = len(in)
		}
		data := make([]map[string]any, n)
		for i := range data {
			vec := make([]float64, dims)
			vec[0] = float64(i + 1)
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": vec}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "model": req.Model, "data": data})
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()
	if _, err := ollama.New("", ""); err == nil {
		t.Error("empty model accepted")
	}
	if _, err := ollama.New("", "nomic-embed-text", ollama.WithDimensions(-1)); err == nil {
		t.Error("negative dimensions accepted")
	}
	p, err := ollama.New("", "nomic-embed-text", ollama.WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.ModelID() != "nomic-embed-text" {
		t.Errorf("ModelID = %q", p.ModelID())
	}
}

func TestDimensions_KnownModels(t *testing.T) {
	t.Parallel()
	tests := map[string]int{
		"nomic-embed-text":        768,
		"nomic-embed-text:latest": 768,
		"mxbai-embed-large":       1024,
		"all-minilm":              384,
	}
	for model, want := range tests {
		// An unreachable URL proves no probe is issued.
		p, err := ollama.New("http://127.0.0.1:1", model)
		if err != nil {
			t.Fatalf("New(%q): %v", model, err)
		}
		if got := p.Dimensions(); got != want {
			t.Errorf("Dimensions(%q) = %d, want %d", model, got, want)
		}
	}
}

func TestDimensions_ProbesOnce(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	url := compatServer(t, 5, &hits)
	p, err := ollama.New(url+"/", "custom-embedder")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for range 3 {
		if got := p.Dimensions(); got != 5 {
			t.Fatalf("Dimensions = %d, want 5", got)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("probe requests = %d, want 1", hits.Load())
	}
}

func TestProbe_ReportsFailure(t *testing.T) {
	t.Parallel()
	p, err := ollama.New("http://127.0.0.1:1", "custom-embedder", ollama.WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if n, err := p.Probe(ctx); err == nil || n != 0 {
		t.Errorf("Probe = (%d, %v), want (0, error)", n, err)
	}
	if p.Dimensions() != 0 {
		t.Error("Dimensions after failed probe != 0")
	}
}

func TestEmbedAndBatch(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	url := compatServer(t, 4, &hits)
	p, err := ollama.New(url, "custom-embedder", ollama.WithDimensions(4))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	vec, err := p.Embed(context.Background(), "latte")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 4 {
		t.Errorf("len(vec) = %d, want 4", len(vec))
	}

	vecs, err := p.EmbedBatch(context.Background(), []string{"latte", "scone", "bagel"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	for i, v := range vecs {
		if v[0] != float32(i+1) {
			t.Errorf("vecs[%d][0] = %v, want %d", i, v[0], i+1)
		}
	}
}

func TestEmbed_DimensionMismatch(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	url := compatServer(t, 3, &hits)
	p, _ := ollama.New(url, "nomic-embed-text")

	if _, err := p.Embed(context.Background(), "latte"); !errors.Is(err, embeddings.ErrDimensionMismatch) {
		t.Errorf("Embed err = %v, want ErrDimensionMismatch", err)
	}
	if _, err := p.EmbedBatch(context.Background(), []string{"a", "b"}); !errors.Is(err, embeddings.ErrDimensionMismatch) {
		t.Errorf("EmbedBatch err = %v, want ErrDimensionMismatch", err)
	}
}

func TestEmbed_ContextCancelled(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	p, _ := ollama.New(srv.URL, "nomic-embed-text")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := p.Embed(ctx, "latte"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}
