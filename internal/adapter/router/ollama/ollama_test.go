package ollama

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/thushan/ollabridge/internal/adapter/cache"
	"github.com/thushan/ollabridge/internal/core/domain"
)

func testCacheConfig() cache.Config {
	return cache.Config{
		PromptCacheMaxEntries: 10,
		PromptCacheTTL:        time.Minute,
		ToolCacheMaxEntries:   10,
		ToolCacheTTL:          time.Minute,
		PromptElisionOn:       true,
		ToolCompressionOn:     true,
	}
}

type fakePool struct{}

func (fakePool) Acquire(ctx context.Context, baseURL, apiKey string, timeoutMs int64, compression bool) (*http.Client, error) {
	return http.DefaultClient, nil
}
func (fakePool) Release(baseURL, apiKey string, compression bool) {}
func (fakePool) CloseAll()                                        {}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandle_NonStreamGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("expected /api/generate, got %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"llama3","response":"hi","done":true}`))
	}))
	defer srv.Close()

	endpoint := domain.NewBackendEndpoint("local", "local", srv.URL, "", "ollama", domain.BackendTypeOllama, 5000, false, nil, nil)
	router := New(fakePool{}, endpoint, discardLogger(), testCacheConfig())

	result, stream, err := router.Handle(context.Background(), "llama3", map[string]any{"prompt": "hi"}, false, false)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if stream != nil {
		t.Fatal("expected a non-stream result")
	}
	if result.Body["response"] != "hi" {
		t.Errorf("expected response=hi, got %v", result.Body)
	}
}

func TestHandle_ChatShapeRoutesToChatCompletions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("expected /v1/chat/completions, got %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {}\n\n"))
	}))
	defer srv.Close()

	endpoint := domain.NewBackendEndpoint("local", "local", srv.URL, "", "ollama", domain.BackendTypeOllama, 5000, false, nil, nil)
	router := New(fakePool{}, endpoint, discardLogger(), testCacheConfig())

	_, stream, err := router.Handle(context.Background(), "llama3", map[string]any{"messages": []any{}}, true, false)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if stream == nil {
		t.Fatal("expected a stream result")
	}
	defer stream.Body.Close()
	if stream.MediaType != "text/event-stream" {
		t.Errorf("expected SSE media type, got %s", stream.MediaType)
	}
	time.Sleep(10 * time.Millisecond)
}
