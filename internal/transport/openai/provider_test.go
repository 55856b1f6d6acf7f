package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/campus-assistant/internal/domain"
	"github.com/kailas-cloud/campus-assistant/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

func newTestProvider(url string) *Provider {
	return New(&Config{
		APIKey:      "test-key",
		BaseURL:     url,
		ChatModel:   "test-chat",
		EmbedModel:  "test-embed",
		Dimensions:  4,
		Temperature: 0.1,
		MaxTokens:   1000,
		Logger:      zap.NewNop(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-chat" || len(req.Messages) != 2 {
			t.Errorf("unexpected request: %+v", req)
		}
		if req.Messages[0].Role != "system" || req.Messages[0].Content != "fix spelling" {
			t.Errorf("unexpected system message: %+v", req.Messages[0])
		}
		if req.Messages[1].Role != "user" || req.Messages[1].Content != "hostle fees" {
			t.Errorf("unexpected user message: %+v", req.Messages[1])
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"id":      "c1",
			"object":  "chat.completion",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": "  hostel fees\n"}}},
			"usage":   map[string]any{"prompt_tokens": 9, "completion_tokens": 3, "total_tokens": 12},
		})
	}))
	defer server.Close()

	got, err := newTestProvider(server.URL).Complete(context.Background(), "hostle fees", "fix spelling")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got.Text != "hostel fees" {
		t.Errorf("Text = %q, want trimmed completion", got.Text)
	}
	if got.TotalTokens != 12 {
		t.Errorf("TotalTokens = %d, want 12", got.TotalTokens)
	}
}

func TestProvider_CompleteEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": "   "}}},
		})
	}))
	defer server.Close()

	_, err := newTestProvider(server.URL).Complete(context.Background(), "p", "i")
	if !errors.Is(err, domain.ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}

func TestProvider_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error": map[string]any{"message": "Rate limit reached", "type": "requests", "code": "rate_limit_exceeded"},
		})
	}))
	defer server.Close()

	_, err := newTestProvider(server.URL).Complete(context.Background(), "p", "i")
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	_, err = newTestProvider(server.URL).Embed(context.Background(), "x")
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited from Embed, got %v", err)
	}
}

func TestProvider_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": map[string]any{"message": "boom", "type": "server_error"},
		})
	}))
	defer server.Close()

	_, err := newTestProvider(server.URL).Complete(context.Background(), "p", "i")
	if !errors.Is(err, domain.ErrTextServiceFailure) {
		t.Fatalf("expected ErrTextServiceFailure, got %v", err)
	}
	if errors.Is(err, domain.ErrRateLimited) {
		t.Fatal("500 must not be treated as rate limiting")
	}
}

func TestProvider_Embed(t *testing.T) {
	expectedVec := []float32{0.1, 0.2, 0.3, 0.4}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"object": "list",
			"model":  "test-embed",
			"data":   []map[string]any{{"object": "embedding", "embedding": expectedVec, "index": 0}},
			"usage":  map[string]any{"prompt_tokens": 42, "total_tokens": 42},
		})
	}))
	defer server.Close()

	result, err := newTestProvider(server.URL).Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(result.Embedding) != len(expectedVec) {
		t.Fatalf("expected %d dimensions, got %d", len(expectedVec), len(result.Embedding))
	}
	for i, v := range result.Embedding {
		if v != expectedVec[i] {
			t.Errorf("vec[%d] = %f, expected %f", i, v, expectedVec[i])
		}
	}
	if result.TotalTokens != 42 || result.PromptTokens != 42 {
		t.Errorf("usage = (%d, %d), want (42, 42)", result.PromptTokens, result.TotalTokens)
	}
}

func TestProvider_EmbedEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": []any{}})
	}))
	defer server.Close()

	_, err := newTestProvider(server.URL).Embed(context.Background(), "x")
	if !errors.Is(err, domain.ErrEmptyEmbedding) {
		t.Fatalf("expected ErrEmptyEmbedding, got %v", err)
	}
}

func TestProvider_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": []any{}})
	}))
	defer server.Close()

	if err := newTestProvider(server.URL).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
}

func TestExtractDetail(t *testing.T) {
	if got := extractDetail([]byte(`{"detail":"quota exceeded"}`)); got != "quota exceeded" {
		t.Errorf("extractDetail = %q", got)
	}
	if got := extractDetail([]byte(`not json`)); got != "" {
		t.Errorf("extractDetail on garbage = %q", got)
	}
}
