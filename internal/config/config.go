// Package config collects every environment setting of the service into a
// single struct. Only the entry points read it; everything below them gets
// the values it needs passed in.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/OFFIS-RIT/tabula/backend/internal/util"

	"github.com/go-playground/validator"
)

type Storage struct {
	Backend        string `validate:"oneof=s3 local"`
	LocalDir       string
	Endpoint       string
	PublicEndpoint string
	Region         string
	AccessKey      string
	SecretKey      string
	Bucket         string `validate:"required"`
	Secure         bool
}

type AI struct {
	Adapter          string `validate:"oneof=openai ollama"`
	ChatURL          string
	ChatKey          string
	ChatModel        string
	EmbedURL         string
	EmbedKey         string
	EmbedModel       string
	EmbedDim         int   `validate:"gte=0"`
	ParallelRequests int64 `validate:"gte=1"`
	Timeout          time.Duration

	// SummaryModel overrides ChatModel for dataset annotation.
	SummaryModel string
	Thinking     string `validate:"omitempty,oneof=low medium high"`
}

type Summary struct {
	Mode    string `validate:"oneof=default columns llm"`
	Samples int    `validate:"gte=1,lte=50"`
}

type Config struct {
	Port          string `validate:"required,numeric"`
	Debug         bool
	MaxUploadSize string `validate:"required"`

	Storage Storage
	AI      AI
	Summary Summary

	DatabaseURL string
	RabbitMQURL string
}

// Load reads the configuration from the environment. Call util.LoadEnv
// first to pick up a .env file.
func Load() (*Config, error) {
	cfg := &Config{
		Port:          util.GetEnvString("PORT", "8080"),
		Debug:         util.GetEnvBool("DEBUG", false),
		MaxUploadSize: util.GetEnvString("MAX_UPLOAD_SIZE", "100M"),

		Storage: Storage{
			Backend:        strings.ToLower(util.GetEnvString("STORAGE_BACKEND", "s3")),
			LocalDir:       util.GetEnvString("LOCAL_STORAGE_DIR", "./data"),
			Endpoint:       util.GetEnv("AWS_ENDPOINT"),
			PublicEndpoint: util.GetEnv("AWS_PUBLIC_ENDPOINT"),
			Region:         util.GetEnvString("AWS_REGION", "us-east-1"),
			AccessKey:      util.GetEnv("AWS_ACCESS_KEY"),
			SecretKey:      util.GetEnv("AWS_SECRET_KEY"),
			Bucket:         util.GetEnvString("AWS_BUCKET", "parquet-files"),
			Secure:         util.GetEnvBool("AWS_SECURE", false),
		},

		AI: AI{
			Adapter:          strings.ToLower(util.GetEnvString("AI_ADAPTER", "openai")),
			ChatURL:          util.GetEnv("AI_CHAT_URL"),
			ChatKey:          util.GetEnv("AI_CHAT_KEY"),
			ChatModel:        util.GetEnv("AI_CHAT_MODEL"),
			EmbedURL:         util.GetEnv("AI_EMBED_URL"),
			EmbedKey:         util.GetEnv("AI_EMBED_KEY"),
			EmbedModel:       util.GetEnv("AI_EMBED_MODEL"),
			EmbedDim:         util.GetEnvInt("AI_EMBED_DIM", 1024),
			ParallelRequests: int64(util.GetEnvInt("AI_PARALLEL_REQ", 4)),
			Timeout:          util.GetEnvDuration("AI_TIMEOUT", 0),
			SummaryModel:     util.GetEnv("AI_SUMMARY_MODEL"),
			Thinking:         strings.ToLower(util.GetEnv("AI_THINKING")),
		},

		Summary: Summary{
			Mode:    strings.ToLower(util.GetEnvString("SUMMARY_MODE", "llm")),
			Samples: util.GetEnvInt("SUMMARY_SAMPLES", 3),
		},

		DatabaseURL: util.GetEnv("DATABASE_URL"),
		RabbitMQURL: util.GetEnv("RABBITMQ_URL"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Storage.Backend == "s3" && cfg.Storage.Endpoint == "" && cfg.Storage.AccessKey == "" {
		return nil, fmt.Errorf("invalid configuration: AWS_ENDPOINT or AWS_ACCESS_KEY is required for the s3 backend")
	}
	return cfg, nil
}

// LLMEnabled reports whether a chat endpoint is configured.
func (c *Config) LLMEnabled() bool {
	if c.AI.Adapter == "ollama" {
		return c.AI.ChatModel != ""
	}
	return c.AI.ChatKey != ""
}

// EmbeddingsEnabled reports whether description embeddings can be computed.
func (c *Config) EmbeddingsEnabled() bool {
	if c.AI.EmbedModel == "" {
		return false
	}
	return c.AI.Adapter == "ollama" || c.AI.EmbedKey != ""
}
