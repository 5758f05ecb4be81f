package mock

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/thushan/ollabridge/internal/adapter/cache"
)

func TestHandle_NonStreamGenerate(t *testing.T) {
	router := New(testCacheConfig())
	result, stream, err := router.Handle(context.Background(), "llama3", map[string]any{"prompt": "hi"}, false, false)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if stream != nil {
		t.Fatal("expected no stream result")
	}
	if result.Body["done"] != true {
		t.Errorf("expected done=true, got %v", result.Body)
	}
}

func TestHandle_NonStreamChat(t *testing.T) {
	router := New(testCacheConfig())
	result, _, err := router.Handle(context.Background(), "llama3", map[string]any{"messages": []any{}}, false, false)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if result.Body["object"] != "chat.completion" {
		t.Errorf("expected object=chat.completion, got %v", result.Body)
	}
}

func TestHandle_StreamGenerateEmitsNDJSON(t *testing.T) {
	router := New(testCacheConfig())
	_, stream, err := router.Handle(context.Background(), "llama3", map[string]any{"prompt": "hi"}, true, false)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	defer stream.Body.Close()
	raw, err := io.ReadAll(stream.Body)
	if err != nil {
		t.Fatalf("reading stream: %v", err)
	}
	if len(raw) == 0 {
		t.Fatal("expected non-empty stream output")
	}
}

func TestHandle_StreamChatEmitsSSETerminatedByDone(t *testing.T) {
	router := New(testCacheConfig())
	_, stream, err := router.Handle(context.Background(), "llama3", map[string]any{"messages": []any{}}, true, false)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	defer stream.Body.Close()
	raw, err := io.ReadAll(stream.Body)
	if err != nil {
		t.Fatalf("reading stream: %v", err)
	}
	if string(raw[len(raw)-len("data: [DONE]\n\n"):]) != "data: [DONE]\n\n" {
		t.Errorf("expected stream to terminate with [DONE], got tail %q", raw[max(0, len(raw)-30):])
	}
}

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
