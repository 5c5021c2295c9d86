package embed

import (
	"fmt"
	"log/slog"

	"github.com/grantsight/grantsight/internal/config"
)

// Provider identifies an embedding backend.
type Provider string

const (
	// ProviderAPI is the hosted, keyed, per-token-priced backend.
	ProviderAPI Provider = "api"
	// ProviderLocal is the free Ollama-compatible backend.
	ProviderLocal Provider = "local"
)

// New creates the configured embedding backend wrapped in an LRU cache.
// Backend selection happens here, at construction time; callers only
// see the Embedder interface.
func New(cfg config.EmbeddingConfig) (Embedder, error) {
	retry := RetryConfig{MaxRetries: cfg.MaxRetries, Delay: cfg.RetryDelay}

	var inner Embedder
	var err error
	switch Provider(cfg.Provider) {
	case ProviderAPI:
		inner, err = NewAPIEmbedder(APIConfig{
			BaseURL:    cfg.APIBase,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    cfg.Timeout,
			Retry:      retry,
		})
	case ProviderLocal:
		inner, err = NewLocalEmbedder(LocalConfig{
			Host:       cfg.LocalHost,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    cfg.Timeout,
			Retry:      retry,
		})
	default:
		return nil, fmt.Errorf("embed: unknown provider %q (want %s or %s)",
			cfg.Provider, ProviderAPI, ProviderLocal)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("embedding backend ready",
		slog.String("provider", cfg.Provider),
		slog.String("model", inner.ModelName()),
		slog.Int("dimensions", inner.Dimensions()))

	return NewCachedEmbedder(inner, cfg.CacheSize)
}
