package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"changelens/internal/config"
)

// Default models per backend when none is configured
const (
	DefaultOllamaModel = "nomic-embed-text"
	DefaultOpenAIModel = "text-embedding-3-small"
	defaultOllamaURL   = "http://localhost:11434"
	defaultBatchSize   = 32
)

// RemoteOptions configures a network-backed provider
type RemoteOptions struct {
	Backend           string // config.ProviderOllama or config.ProviderOpenAI
	Model             string
	BaseURL           string
	APIKey            string
	BatchSize         int
	RequestsPerSecond float64 // 0 disables rate limiting
}

// Remote embeds through an Ollama or OpenAI compatible endpoint. Requests
// are batched by langchaingo and each batch waits on a shared rate limiter.
// Remote does not retry.
type Remote struct {
	embedder embeddings.Embedder
	model    string
	backend  string
	logger   *slog.Logger
}

// NewRemote creates a remote provider.
func NewRemote(opts RemoteOptions, logger *slog.Logger) (*Remote, error) {
	model := opts.Model

	var client embeddings.EmbedderClient
	switch opts.Backend {
	case config.ProviderOllama:
		if model == "" {
			model = DefaultOllamaModel
		}
		baseURL := opts.BaseURL
		if baseURL == "" {
			baseURL = defaultOllamaURL
		}
		llm, err := ollama.New(
			ollama.WithServerURL(baseURL),
			ollama.WithModel(model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		client = llm

	case config.ProviderOpenAI:
		if model == "" {
			model = DefaultOpenAIModel
		}
		if opts.APIKey == "" {
			return nil, fmt.Errorf("openai embeddings require an API key")
		}
		clientOpts := []openai.Option{
			openai.WithToken(opts.APIKey),
			openai.WithEmbeddingModel(model),
		}
		if opts.BaseURL != "" {
			clientOpts = append(clientOpts, openai.WithBaseURL(opts.BaseURL))
		}
		llm, err := openai.New(clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		client = llm

	default:
		return nil, fmt.Errorf("unsupported remote embedding backend %q", opts.Backend)
	}

	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		client = &limitedClient{
			next:    client,
			limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst),
		}
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(batchSize),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return &Remote{
		embedder: embedder,
		model:    model,
		backend:  opts.Backend,
		logger:   logger,
	}, nil
}

// Model implements Provider.
func (r *Remote) Model() string {
	return r.backend + ":" + r.model
}

// Embed implements Provider.
func (r *Remote) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	start := time.Now()
	vectors, err := r.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		r.logger.Warn("Embedding request failed",
			"backend", r.backend,
			"model", r.model,
			"texts", len(texts),
			"error", err,
		)
		return nil, err
	}

	r.logger.Debug("Embedded texts",
		"backend", r.backend,
		"texts", len(texts),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return vectors, nil
}

// limitedClient waits on a limiter before every batch request.
type limitedClient struct {
	next    embeddings.EmbedderClient
	limiter *rate.Limiter
}

func (c *limitedClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.next.CreateEmbedding(ctx, texts)
}
