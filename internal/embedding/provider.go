package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"changelens/internal/config"
	"changelens/internal/storage"
)

// Provider embeds a batch of texts. Implementations return exactly one
// vector per input, all of the same dimension, in input order.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Model identifies the vector space; cache entries are keyed by it.
	Model() string
}

// New builds the provider selected by cfg. When the cache is enabled and
// db is non-nil the provider is wrapped in Cached.
func New(cfg config.EmbeddingConfig, db *storage.DB, logger *slog.Logger) (Provider, error) {
	var (
		p   Provider
		err error
	)

	switch cfg.Provider {
	case config.ProviderLocal, "":
		p = NewLocal(cfg.Dimensions)
	case config.ProviderOllama, config.ProviderOpenAI:
		p, err = NewRemote(RemoteOptions{
			Backend:           cfg.Provider,
			Model:             cfg.Model,
			BaseURL:           cfg.BaseURL,
			APIKey:            cfg.APIKey(),
			BatchSize:         cfg.BatchSize,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}, logger)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	if cfg.Cache.Enabled && db != nil {
		ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
		p = NewCached(p, storage.NewEmbeddingCache(db), ttl, logger)
	}

	logger.Debug("Embedding provider ready",
		"provider", cfg.Provider,
		"model", p.Model(),
		"cache", cfg.Cache.Enabled && db != nil,
	)
	return p, nil
}
