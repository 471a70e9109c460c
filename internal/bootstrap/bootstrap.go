// Package bootstrap builds the shared dependencies of the server and the
// worker from a config.Config.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/tabula/backend/internal/catalog"
	"github.com/OFFIS-RIT/tabula/backend/internal/config"
	"github.com/OFFIS-RIT/tabula/backend/internal/report"
	"github.com/OFFIS-RIT/tabula/backend/internal/storage"
	"github.com/OFFIS-RIT/tabula/backend/pkg/ai"
	oai "github.com/OFFIS-RIT/tabula/backend/pkg/ai/ollama"
	gai "github.com/OFFIS-RIT/tabula/backend/pkg/ai/openai"
	"github.com/OFFIS-RIT/tabula/backend/pkg/leaselock"
	"github.com/OFFIS-RIT/tabula/backend/pkg/logger"
	"github.com/OFFIS-RIT/tabula/backend/pkg/profile"
)

func NewStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, error) {
	if cfg.Storage.Backend == "local" {
		return storage.NewLocalStore(
			cfg.Storage.LocalDir,
			cfg.Storage.Bucket,
			fmt.Sprintf("http://localhost:%s/download", cfg.Port),
		)
	}

	store, err := storage.NewS3Store(ctx, storage.S3Params{
		Endpoint:       cfg.Storage.Endpoint,
		PublicEndpoint: cfg.Storage.PublicEndpoint,
		Region:         cfg.Storage.Region,
		AccessKey:      cfg.Storage.AccessKey,
		SecretKey:      cfg.Storage.SecretKey,
		Bucket:         cfg.Storage.Bucket,
		Secure:         cfg.Storage.Secure,
	})
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// NewAIClient returns nil when neither chat nor embeddings are configured.
func NewAIClient(cfg *config.Config) (ai.Client, error) {
	if !cfg.LLMEnabled() && !cfg.EmbeddingsEnabled() {
		return nil, nil
	}

	switch cfg.AI.Adapter {
	case "ollama":
		client, err := oai.NewOllamaClient(oai.NewOllamaClientParams{
			ChatModel:      cfg.AI.ChatModel,
			EmbeddingModel: cfg.AI.EmbedModel,
			EmbeddingDim:   cfg.AI.EmbedDim,

			BaseURL: cfg.AI.ChatURL,
			ApiKey:  cfg.AI.ChatKey,

			MaxConcurrentRequests: cfg.AI.ParallelRequests,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create Ollama client: %w", err)
		}
		return client, nil
	default:
		chatURL := cfg.AI.ChatURL
		if chatURL == "" {
			chatURL = gai.GroqBaseURL
		}
		return gai.NewOpenAIClient(gai.NewOpenAIClientParams{
			ChatModel:      cfg.AI.ChatModel,
			EmbeddingModel: cfg.AI.EmbedModel,
			EmbeddingDim:   cfg.AI.EmbedDim,

			ChatURL:      chatURL,
			ChatKey:      cfg.AI.ChatKey,
			EmbeddingURL: cfg.AI.EmbedURL,
			EmbeddingKey: cfg.AI.EmbedKey,

			MaxConcurrentRequests: cfg.AI.ParallelRequests,
		}), nil
	}
}

// OpenCatalog migrates and connects to the database. It returns nil when
// no database is configured.
func OpenCatalog(ctx context.Context, cfg *config.Config) (*catalog.Store, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, dataset catalog disabled")
		return nil, nil
	}
	if err := catalog.Migrate(cfg.DatabaseURL); err != nil {
		return nil, err
	}
	return catalog.Connect(ctx, cfg.DatabaseURL)
}

// Components are the services built by NewComponents.
type Components struct {
	Generator ai.TextGenerator
	Embedder  ai.Embedder
	Pipeline  *report.Pipeline
}

// generateOptions turns the summary model overrides into request options.
func generateOptions(cfg *config.Config) []ai.GenerateOption {
	var opts []ai.GenerateOption
	if cfg.AI.SummaryModel != "" {
		opts = append(opts, ai.WithModel(cfg.AI.SummaryModel))
	}
	if cfg.AI.Thinking != "" {
		opts = append(opts, ai.WithThinking(cfg.AI.Thinking))
	}
	return opts
}

// summaryLeaseTTL bounds how long a crashed process blocks a dataset.
const summaryLeaseTTL = 2 * time.Minute

// NewComponents wires the summary pipeline. client and cat may be nil.
// holder prefixes the lease holder ids written by this process.
func NewComponents(cfg *config.Config, store storage.ObjectStore, client ai.Client, cat *catalog.Store, holder string) (*Components, error) {
	mode, err := profile.ParseMode(cfg.Summary.Mode)
	if err != nil {
		return nil, err
	}

	c := &Components{}
	if client != nil && cfg.LLMEnabled() {
		c.Generator = client
	}
	if client != nil && cfg.EmbeddingsEnabled() {
		c.Embedder = client
	}
	if mode == profile.ModeLLM && c.Generator == nil {
		logger.Warn("No chat model configured, falling back to default summaries")
		mode = profile.ModeDefault
	}

	params := report.PipelineParams{
		Store:      store,
		Summarizer: profile.NewSummarizer(c.Generator, cfg.AI.Timeout, generateOptions(cfg)...),
		Embedder:   c.Embedder,
		Defaults:   report.Options{Mode: mode, Samples: cfg.Summary.Samples},
	}
	if cat != nil {
		params.Catalog = cat
		params.Lock = leaselock.New(cat.Pool(), leaselock.Options{
			TTL:          summaryLeaseTTL,
			Wait:         true,
			WaitInterval: time.Second,
			WaitJitter:   250 * time.Millisecond,
			HolderPrefix: holder + "-",
		})
	}
	c.Pipeline = report.NewPipeline(params)
	return c, nil
}
