// Command beanhub is the entry point for the BeanHub order transcription
// service.
//
// With -transcription it processes one utterance, prints the flattened report
// to stdout and exits. Otherwise it serves the HTTP API until SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/app"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/config"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/observe"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/provider/embeddings"
	ollamaembed "github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/provider/embeddings/ollama"
	oaembed "github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/provider/embeddings/openai"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "", "path to the YAML configuration file (empty uses built-in defaults)")
	transcription := flag.String("transcription", "", "process one transcription, print the report and exit")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := loadConfig(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "beanhub: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "beanhub: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	slog.SetDefault(observe.NewLogger(os.Stderr, string(cfg.Server.LogLevel), cfg.Server.LogFormat))

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: version,
		Registerer:     promReg,
		SampleRatio:    cfg.Server.TraceSampleRatio,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg, cfg.Catalog.EmbeddingDimensions)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	application, err := app.New(ctx, cfg, providers, app.WithGatherer(promReg))
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	shutdown := func() int {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := application.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "err", err)
			return 1
		}
		return 0
	}

	// ── One-shot mode ─────────────────────────────────────────────────────────
	if *transcription != "" {
		_, text, err := application.Process(ctx, *transcription)
		if err != nil {
			slog.Error("process error", "err", err)
			shutdown()
			return 1
		}
		fmt.Println(text)
		return shutdown()
	}

	slog.Info("beanhub starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		shutdown()
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping")
	if code := shutdown(); code != 0 {
		return code
	}
	slog.Info("goodbye")
	return 0
}

// loadConfig reads path, or returns the validated defaults when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := &config.Config{}
		config.ApplyDefaults(cfg)
		return cfg, nil
	}
	return config.Load(path)
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires the embeddings factories into reg. dims is
// forwarded so the provider reports the width the catalog column expects.
func registerBuiltinProviders(reg *config.Registry, dims int) {
	reg.Embeddings.Register("openai", func(entry config.ProviderEntry) (embeddings.Provider, error) {
		var opts []oaembed.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaembed.WithBaseURL(entry.BaseURL))
		}
		if org := optString(entry.Options, "organization"); org != "" {
			opts = append(opts, oaembed.WithOrganization(org))
		}
		if dims > 0 {
			opts = append(opts, oaembed.WithDimensions(dims))
		}
		return oaembed.New(entry.APIKey, entry.Model, opts...)
	})

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.Embeddings.Register("ollama", func(entry config.ProviderEntry) (embeddings.Provider, error) {
		var opts []ollamaembed.Option
		if dims > 0 {
			opts = append(opts, ollamaembed.WithDimensions(dims))
		}
		return ollamaembed.New(entry.BaseURL, entry.Model, opts...)
	})

	for _, name := range reg.Embeddings.Names() {
		slog.Debug("registered provider", "kind", "embeddings", "name", name)
	}
}

// buildProviders instantiates the providers named in cfg using the registry.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	if name := cfg.Providers.Embeddings.Name; name != "" {
		p, err := reg.Embeddings.Create(cfg.Providers.Embeddings)
		if err != nil {
			return nil, fmt.Errorf("create embeddings provider %q: %w", name, err)
		}
		ps.Embeddings = p
		slog.Info("provider created", "kind", "embeddings", "name", name, "model", cfg.Providers.Embeddings.Model)
	}

	return ps, nil
}

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	s, _ := opts[key].(string)
	return s
}
