package openai

import (
	"context"
	"errors"
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
	return &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond}, nil
}
func (fakePool) Release(baseURL, apiKey string, compression bool) {}
func (fakePool) CloseAll()                                        {}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// With sdkStatus already forced unavailable, Handle should go straight to
// the HTTP fallback path and hit the upstream's /chat/completions route.
func TestHandle_FallsBackToHTTPWhenSDKUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected /chat/completions, got %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hi"}}]}`))
	}))
	defer srv.Close()

	endpoint := domain.NewBackendEndpoint("primary", "coding", srv.URL, "sk-test", "openai", domain.BackendTypeOpenAI, 5000, false, nil, nil)
	router := New(fakePool{}, endpoint, discardLogger(), testCacheConfig())
	router.sdkStatus = sdkUnavailable
	router.lastSDKCheck = time.Now()

	result, stream, err := router.Handle(context.Background(), "gpt-4", map[string]any{"messages": []any{}}, false, false)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if stream != nil {
		t.Fatal("expected non-stream result")
	}
	choices, ok := result.Body["choices"].([]any)
	if !ok || len(choices) == 0 {
		t.Fatalf("expected choices in response, got %v", result.Body)
	}
}

func TestClassifySDKFailure_AuthenticationMarksUnavailable(t *testing.T) {
	router := New(fakePool{}, domain.NewBackendEndpoint("p", "g", "http://example.com", "k", "openai", domain.BackendTypeOpenAI, 1000, false, nil, nil), discardLogger(), testCacheConfig())
	router.classifySDKFailure(errors.New("Error: invalid_api_key provided"))
	if router.sdkStatus != sdkUnavailable {
		t.Errorf("expected sdkUnavailable, got %v", router.sdkStatus)
	}
}

func TestInjectReasoningContent_AddsEmptyFieldToAssistantMessages(t *testing.T) {
	body := map[string]any{
		"messages": []any{
			map[string]any{"role": "user", "content": "hi"},
			map[string]any{"role": "assistant", "content": "hello"},
		},
	}
	injectReasoningContent(body)
	messages := body["messages"].([]any)
	assistant := messages[1].(map[string]any)
	if assistant["reasoning_content"] != "" {
		t.Errorf("expected reasoning_content to be injected, got %v", assistant["reasoning_content"])
	}
	user := messages[0].(map[string]any)
	if _, has := user["reasoning_content"]; has {
		t.Error("did not expect reasoning_content on a non-assistant message")
	}
}

func TestBuildSDKRequest_DropsUnwhitelistedFields(t *testing.T) {
	body := map[string]any{
		"messages":    []any{map[string]any{"role": "user", "content": "hi"}},
		"temperature": 0.5,
		"max_retries": 3,
		"cache":       true,
	}
	req := buildSDKRequest(body, "gpt-4", false)
	if req.Model != "gpt-4" {
		t.Errorf("expected model=gpt-4, got %s", req.Model)
	}
	if len(req.Messages) != 1 {
		t.Errorf("expected 1 message, got %d", len(req.Messages))
	}
}
