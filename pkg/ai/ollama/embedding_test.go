package ollama

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerateEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"model":"nomic-embed-text","embeddings":[[0.1,0.2,0.3]],"prompt_eval_count":5,"total_duration":2000000}`)
	}))
	defer srv.Close()

	client, err := NewOllamaClient(NewOllamaClientParams{
		EmbeddingModel: "nomic-embed-text",
		EmbeddingDim:   2,
		BaseURL:        srv.URL,
		ApiKey:         "secret",
	})
	if err != nil {
		t.Fatalf("NewOllamaClient() error = %v", err)
	}

	vec, err := client.GenerateEmbedding(context.Background(), []byte("dataset of invoices"))
	if err != nil {
		t.Fatalf("GenerateEmbedding() error = %v", err)
	}
	if len(vec) != 2 {
		t.Fatalf("GenerateEmbedding() len = %d, want 2", len(vec))
	}

	m := client.GetMetrics()
	if m.InputTokens != 5 || m.DurationMs != 2 {
		t.Fatalf("metrics = %+v", m)
	}
}

func TestGenerateEmbedding_BlankInput(t *testing.T) {
	client, err := NewOllamaClient(NewOllamaClientParams{BaseURL: "http://127.0.0.1:1", EmbeddingDim: 3})
	if err != nil {
		t.Fatalf("NewOllamaClient() error = %v", err)
	}
	vec, err := client.GenerateEmbedding(context.Background(), nil)
	if err != nil {
		t.Fatalf("GenerateEmbedding() error = %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("GenerateEmbedding() len = %d, want 3", len(vec))
	}
}

func TestNewOllamaClient_BadURL(t *testing.T) {
	if _, err := NewOllamaClient(NewOllamaClientParams{BaseURL: "://bad"}); err == nil {
		t.Fatal("NewOllamaClient() expected error for malformed url")
	}
}
