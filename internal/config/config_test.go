package config

import (
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORAGE_BACKEND", "local")
	t.Setenv("LOCAL_STORAGE_DIR", t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "8080" || cfg.MaxUploadSize != "100M" {
		t.Fatalf("unexpected server defaults %+v", cfg)
	}
	if cfg.Storage.Bucket != "parquet-files" || cfg.Storage.Region != "us-east-1" {
		t.Fatalf("unexpected storage defaults %+v", cfg.Storage)
	}
	if cfg.Summary.Mode != "llm" || cfg.Summary.Samples != 3 {
		t.Fatalf("unexpected summary defaults %+v", cfg.Summary)
	}
	if cfg.AI.Timeout != 0 {
		t.Fatalf("AI timeout should default to none, got %v", cfg.AI.Timeout)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("AI_ADAPTER", "Ollama")
	t.Setenv("AI_CHAT_MODEL", "llama3.1")
	t.Setenv("AI_TIMEOUT", "45s")
	t.Setenv("AI_SUMMARY_MODEL", "qwen3")
	t.Setenv("AI_THINKING", "Low")
	t.Setenv("SUMMARY_MODE", "columns")
	t.Setenv("SUMMARY_SAMPLES", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "9000" || cfg.AI.Adapter != "ollama" || cfg.AI.Timeout != 45*time.Second {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.AI.SummaryModel != "qwen3" || cfg.AI.Thinking != "low" {
		t.Fatalf("summary model overrides not applied: %+v", cfg.AI)
	}
	if !cfg.LLMEnabled() {
		t.Fatal("LLMEnabled() = false, want true for ollama with a model")
	}
	if cfg.EmbeddingsEnabled() {
		t.Fatal("EmbeddingsEnabled() = true without an embedding model")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad backend", "STORAGE_BACKEND", "ftp"},
		{"bad mode", "SUMMARY_MODE", "fancy"},
		{"too many samples", "SUMMARY_SAMPLES", "500"},
		{"bad port", "PORT", "http"},
		{"bad adapter", "AI_ADAPTER", "bard"},
		{"bad thinking", "AI_THINKING", "deep"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() expected error for %s=%s", tt.key, tt.val)
			}
		})
	}
}

func TestLoad_S3NeedsEndpointOrKeys(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("AWS_ENDPOINT", "")
	t.Setenv("AWS_ACCESS_KEY", "")
	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for s3 without endpoint or credentials")
	}
}
