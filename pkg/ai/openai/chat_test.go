package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/tabula/backend/pkg/ai"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewOpenAIClient(NewOpenAIClientParams{
		ChatURL:      srv.URL + "/v1/",
		ChatKey:      "test-key",
		EmbeddingURL: srv.URL + "/v1/",
		EmbeddingKey: "test-key",
		EmbeddingDim: 4,
	})
}

func TestGenerateCompletion(t *testing.T) {
	var got map[string]any
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token")
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "llama-3.1-8b-instant",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"name\":\"sales\"}"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
		}`)
	})

	out, err := client.GenerateCompletion(context.Background(), "annotate", ai.WithSystemPrompts("be brief"))
	if err != nil {
		t.Fatalf("GenerateCompletion() error = %v", err)
	}
	if out != `{"name":"sales"}` {
		t.Fatalf("GenerateCompletion() = %q", out)
	}

	if got["model"] != DefaultChatModel {
		t.Fatalf("request model = %v, want %s", got["model"], DefaultChatModel)
	}
	if got["temperature"] != float64(0) {
		t.Fatalf("request temperature = %v, want 0", got["temperature"])
	}
	msgs, _ := got["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("request messages = %v, want system + user", got["messages"])
	}

	m := client.GetMetrics()
	if m.InputTokens != 12 || m.OutputTokens != 4 || m.TotalTokens != 16 {
		t.Fatalf("metrics = %+v", m)
	}
	client.ResetMetrics()
	if client.GetMetrics().TotalTokens != 0 {
		t.Fatal("ResetMetrics() did not clear totals")
	}
}

func TestGenerateCompletion_NoChoices(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[],
			"usage":{"prompt_tokens":1,"completion_tokens":0,"total_tokens":1}}`)
	})

	if _, err := client.GenerateCompletion(context.Background(), "annotate"); err == nil {
		t.Fatal("GenerateCompletion() expected error for empty choices")
	}
}

func TestGenerateCompletion_NotConfigured(t *testing.T) {
	client := NewOpenAIClient(NewOpenAIClientParams{})
	if _, err := client.GenerateCompletion(context.Background(), "annotate"); err == nil {
		t.Fatal("GenerateCompletion() expected error without chat key")
	}
}

func TestGenerateEmbedding(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"object": "list",
			"model": "embed",
			"data": [{"object": "embedding", "index": 0, "embedding": [0.5, 0.25]}],
			"usage": {"prompt_tokens": 3, "total_tokens": 3}
		}`)
	})

	vec, err := client.GenerateEmbedding(context.Background(), []byte("monthly sales"))
	if err != nil {
		t.Fatalf("GenerateEmbedding() error = %v", err)
	}
	if len(vec) != 4 || vec[0] != 0.5 || vec[3] != 0 {
		t.Fatalf("GenerateEmbedding() = %v, want padded to 4", vec)
	}

	blank, err := client.GenerateEmbedding(context.Background(), []byte("   "))
	if err != nil || len(blank) != 4 {
		t.Fatalf("GenerateEmbedding(blank) = %v, %v", blank, err)
	}
}
