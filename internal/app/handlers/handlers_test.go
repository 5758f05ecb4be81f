package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/thushan/ollabridge/internal/config"
	"github.com/thushan/ollabridge/internal/core/domain"
	"github.com/thushan/ollabridge/internal/core/ports"
	"github.com/thushan/ollabridge/internal/dispatch"
	"github.com/thushan/ollabridge/internal/logger"
)

// mockStyledLogger discards every call, following the teacher's
// internal/app/middleware logging_test.go pattern for satisfying
// StyledLogger without a real sink.
type mockStyledLogger struct{}

func (m *mockStyledLogger) Debug(msg string, args ...any) {}
func (m *mockStyledLogger) Info(msg string, args ...any)  {}
func (m *mockStyledLogger) Warn(msg string, args ...any)  {}
func (m *mockStyledLogger) Error(msg string, args ...any) {}

func (m *mockStyledLogger) InfoWithCount(msg string, count int, args ...any)          {}
func (m *mockStyledLogger) InfoWithEndpoint(msg string, endpoint string, args ...any) {}
func (m *mockStyledLogger) WarnWithEndpoint(msg string, endpoint string, args ...any) {}
func (m *mockStyledLogger) ErrorWithEndpoint(msg string, endpoint string, args ...any) {
}
func (m *mockStyledLogger) InfoWithNumbers(msg string, numbers ...int64) {}

func (m *mockStyledLogger) InfoWithContext(msg string, endpoint string, ctx logger.LogContext)  {}
func (m *mockStyledLogger) WarnWithContext(msg string, endpoint string, ctx logger.LogContext)  {}
func (m *mockStyledLogger) ErrorWithContext(msg string, endpoint string, ctx logger.LogContext) {}

func (m *mockStyledLogger) ProbeUp(name string)                {}
func (m *mockStyledLogger) ProbeDown(name, reason string)      {}
func (m *mockStyledLogger) GetUnderlying() *slog.Logger        { return slog.Default() }
func (m *mockStyledLogger) WithRequestID(id string) logger.StyledLogger { return m }
func (m *mockStyledLogger) WithAttrs(attrs ...slog.Attr) logger.StyledLogger { return m }
func (m *mockStyledLogger) With(args ...any) logger.StyledLogger { return m }

// fakeDispatcher lets each test script a single canned Dispatch outcome.
type fakeDispatcher struct {
	result *dispatch.Result
	err    error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, model string, body map[string]any, stream bool) (*dispatch.Result, error) {
	return f.result, f.err
}

// fakeResolver is the modelResolver fake: Resolve returns a canned model,
// Groups returns a canned group set for the tags/show handlers.
type fakeResolver struct {
	resolved *domain.ResolvedModel
	err      error
	groups   map[string]*domain.ModelGroup
}

func (f *fakeResolver) Resolve(model string) (*domain.ResolvedModel, error) { return f.resolved, f.err }
func (f *fakeResolver) Candidates(resolved *domain.ResolvedModel, inputModel string) ([]domain.Candidate, error) {
	return nil, nil
}
func (f *fakeResolver) InvalidateCache()                             {}
func (f *fakeResolver) Groups() map[string]*domain.ModelGroup { return f.groups }

type fakeProbe struct{ up bool }

func (f *fakeProbe) IsUp(ctx context.Context) bool { return f.up }

// fakePool hands back whatever client the test supplies; tests that need a
// local daemon point cfg.LocalOllama.BaseURL at an httptest.Server.
type fakePool struct {
	client *http.Client
	err    error
}

func (f *fakePool) Acquire(ctx context.Context, baseURL, apiKey string, timeoutMs int64, compression bool) (*http.Client, error) {
	return f.client, f.err
}
func (f *fakePool) Release(baseURL, apiKey string, compression bool) {}
func (f *fakePool) CloseAll()                                        {}

// fakeRouter is a minimal ports.BackendRouter for dispatch.Result.Router.
type fakeRouter struct {
	name domain.BackendType
}

func (f *fakeRouter) Handle(ctx context.Context, actualModel string, body map[string]any, stream bool, supportThinking bool) (*ports.HandleResult, *ports.StreamResult, error) {
	return nil, nil, nil
}
func (f *fakeRouter) ToOllama(body map[string]any, virtualModel string) map[string]any {
	return map[string]any{"response": body["content"], "done": true}
}
func (f *fakeRouter) Name() domain.BackendType { return f.name }

func TestHandleChatCompletions_NonStream(t *testing.T) {
	result := &dispatch.Result{
		HandleResult: &ports.HandleResult{Body: map[string]any{"id": "chatcmpl-1", "choices": []any{}}},
		Router:       &fakeRouter{name: domain.BackendTypeOpenAI},
		RouterType:   domain.BackendTypeOpenAI,
	}
	app := &Application{
		cfg:        config.DefaultConfig(),
		dispatcher: &fakeDispatcher{result: result},
		resolver:   &fakeResolver{},
		logger:     slog.Default(),
		styled:     &mockStyledLogger{},
	}

	body, _ := json.Marshal(map[string]any{"model": "gpt-4", "messages": []any{}})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(body))
	w := httptest.NewRecorder()

	app.HandleChatCompletions(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var decoded map[string]any
	if err := json.NewDecoder(w.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if decoded["id"] != "chatcmpl-1" {
		t.Errorf("expected response body forwarded unchanged, got %v", decoded)
	}
}

func TestHandleGenerate_TranslatesToOllamaShape(t *testing.T) {
	group := &domain.ModelGroup{Name: "coding", AvailableModels: map[string]domain.ModelDetails{
		"deepseek-chat": {ActualModel: "deepseek-chat"},
	}}
	resolved := &domain.ResolvedModel{Group: group, VirtualName: "deepseek-chat"}

	result := &dispatch.Result{
		HandleResult: &ports.HandleResult{Body: map[string]any{"content": "hi"}},
		Router:       &fakeRouter{name: domain.BackendTypeOpenAI},
		RouterType:   domain.BackendTypeOpenAI,
	}
	app := &Application{
		cfg:        config.DefaultConfig(),
		dispatcher: &fakeDispatcher{result: result},
		resolver:   &fakeResolver{resolved: resolved},
		logger:     slog.Default(),
		styled:     &mockStyledLogger{},
	}

	body, _ := json.Marshal(map[string]any{"model": "coding/deepseek-chat", "prompt": "hello"})
	req := httptest.NewRequest(http.MethodPost, "/api/generate", bytes.NewReader(body))
	w := httptest.NewRecorder()

	app.HandleGenerate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var decoded map[string]any
	if err := json.NewDecoder(w.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if decoded["response"] != "hi" || decoded["done"] != true {
		t.Errorf("expected translated ollama shape, got %v", decoded)
	}
}

func TestHandleGenerate_LocalGroupSkipsTranslation(t *testing.T) {
	group := &domain.ModelGroup{Name: domain.LocalGroupName}
	resolved := &domain.ResolvedModel{Group: group, VirtualName: "llama3"}

	result := &dispatch.Result{
		HandleResult: &ports.HandleResult{Body: map[string]any{"response": "hi", "done": true}},
		Router:       &fakeRouter{name: domain.BackendTypeOllama},
		RouterType:   domain.BackendTypeOllama,
	}
	app := &Application{
		cfg:        config.DefaultConfig(),
		dispatcher: &fakeDispatcher{result: result},
		resolver:   &fakeResolver{resolved: resolved},
		logger:     slog.Default(),
		styled:     &mockStyledLogger{},
	}

	body, _ := json.Marshal(map[string]any{"model": "llama3", "prompt": "hello"})
	req := httptest.NewRequest(http.MethodPost, "/api/generate", bytes.NewReader(body))
	w := httptest.NewRecorder()

	app.HandleGenerate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestHandleGenerate_ResolveFailureReturnsNotFound(t *testing.T) {
	app := &Application{
		cfg:        config.DefaultConfig(),
		dispatcher: &fakeDispatcher{},
		resolver:   &fakeResolver{err: &domain.NotFoundError{Model: "missing"}},
		logger:     slog.Default(),
		styled:     &mockStyledLogger{},
	}

	body, _ := json.Marshal(map[string]any{"model": "missing"})
	req := httptest.NewRequest(http.MethodPost, "/api/generate", bytes.NewReader(body))
	w := httptest.NewRecorder()

	app.HandleGenerate(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestHandleGenerate_StreamingForwardsChunks(t *testing.T) {
	chunks := "line one\nline two\n"
	result := &dispatch.Result{
		StreamResult: &ports.StreamResult{Body: io.NopCloser(bytes.NewReader([]byte(chunks))), MediaType: "application/x-ndjson"},
		Router:       &fakeRouter{name: domain.BackendTypeMock},
		RouterType:   domain.BackendTypeMock,
	}
	group := &domain.ModelGroup{Name: domain.LocalGroupName}
	app := &Application{
		cfg:        config.DefaultConfig(),
		dispatcher: &fakeDispatcher{result: result},
		resolver:   &fakeResolver{resolved: &domain.ResolvedModel{Group: group, VirtualName: "llama3"}},
		logger:     slog.Default(),
		styled:     &mockStyledLogger{},
	}

	body, _ := json.Marshal(map[string]any{"model": "llama3", "prompt": "hello", "stream": true})
	req := httptest.NewRequest(http.MethodPost, "/api/generate", bytes.NewReader(body))
	w := httptest.NewRecorder()

	app.HandleGenerate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != chunks {
		t.Errorf("expected chunks forwarded verbatim, got %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("expected media type preserved, got %q", ct)
	}
}

func TestHandleTags_CombinesLocalAndVirtual(t *testing.T) {
	localSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"models": []map[string]any{{"name": "llama3"}}})
	}))
	defer localSrv.Close()

	group := &domain.ModelGroup{
		Name: "coding",
		AvailableModels: map[string]domain.ModelDetails{
			"deepseek-chat": {ActualModel: "deepseek-chat"},
		},
	}
	cfg := config.DefaultConfig()
	cfg.LocalOllama.BaseURL = localSrv.URL

	app := &Application{
		cfg:      cfg,
		resolver: &fakeResolver{groups: map[string]*domain.ModelGroup{"coding": group}},
		probe:    &fakeProbe{up: true},
		pool:     &fakePool{client: localSrv.Client()},
		logger:   slog.Default(),
		styled:   &mockStyledLogger{},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/tags", nil)
	w := httptest.NewRecorder()

	app.HandleTags(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var decoded struct {
		Models []map[string]any `json:"models"`
	}
	if err := json.NewDecoder(w.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(decoded.Models) != 2 {
		t.Fatalf("expected 2 models (1 local + 1 virtual), got %d: %v", len(decoded.Models), decoded.Models)
	}
}

func TestHandleTags_LocalDownOmitsLocalModels(t *testing.T) {
	group := &domain.ModelGroup{
		Name:            "coding",
		AvailableModels: map[string]domain.ModelDetails{"deepseek-chat": {ActualModel: "deepseek-chat"}},
	}
	app := &Application{
		cfg:      config.DefaultConfig(),
		resolver: &fakeResolver{groups: map[string]*domain.ModelGroup{"coding": group}},
		probe:    &fakeProbe{up: false},
		logger:   slog.Default(),
		styled:   &mockStyledLogger{},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/tags", nil)
	w := httptest.NewRecorder()

	app.HandleTags(w, req)

	var decoded struct {
		Models []map[string]any `json:"models"`
	}
	_ = json.NewDecoder(w.Body).Decode(&decoded)
	if len(decoded.Models) != 1 {
		t.Fatalf("expected only the virtual model, got %d: %v", len(decoded.Models), decoded.Models)
	}
}

func TestHandleShow_NonLocalReturnsSyntheticDescriptor(t *testing.T) {
	group := &domain.ModelGroup{
		Name:            "coding",
		AvailableModels: map[string]domain.ModelDetails{"deepseek-chat": {ActualModel: "deepseek-chat", Capabilities: []string{"tools"}}},
		Endpoints:       []*domain.BackendEndpoint{{BaseURL: "https://api.deepseek.com", ModelMapping: map[string]string{}}},
	}
	resolved := &domain.ResolvedModel{Group: group, VirtualName: "deepseek-chat"}
	app := &Application{
		cfg:      config.DefaultConfig(),
		resolver: &fakeResolver{resolved: resolved},
		logger:   slog.Default(),
		styled:   &mockStyledLogger{},
	}

	body, _ := json.Marshal(map[string]any{"model": "coding/deepseek-chat"})
	req := httptest.NewRequest(http.MethodPost, "/api/show", bytes.NewReader(body))
	w := httptest.NewRecorder()

	app.HandleShow(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var decoded map[string]any
	_ = json.NewDecoder(w.Body).Decode(&decoded)
	if decoded["name"] != "coding/deepseek-chat" {
		t.Errorf("expected synthetic name, got %v", decoded["name"])
	}
}

func TestHandleVersion_FallsBackWhenLocalUnreachable(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LocalOllama.BaseURL = "http://127.0.0.1:1" // nothing listening
	app := &Application{
		cfg:    cfg,
		pool:   &fakePool{client: &http.Client{Timeout: 50 * time.Millisecond}},
		logger: slog.Default(),
		styled: &mockStyledLogger{},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	w := httptest.NewRecorder()

	app.HandleVersion(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var decoded map[string]any
	_ = json.NewDecoder(w.Body).Decode(&decoded)
	if decoded["mock"] != true {
		t.Errorf("expected canned fallback response, got %v", decoded)
	}
}

func TestHandlePassthrough_CannedResponseWhenLocalDown(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LocalOllama.BaseURL = "http://127.0.0.1:1"
	app := &Application{
		cfg:    cfg,
		pool:   &fakePool{client: &http.Client{Timeout: 50 * time.Millisecond}},
		logger: slog.Default(),
		styled: &mockStyledLogger{},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/pull", bytes.NewReader([]byte(`{"model":"llama3"}`)))
	w := httptest.NewRecorder()

	app.HandlePassthrough(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var decoded map[string]any
	_ = json.NewDecoder(w.Body).Decode(&decoded)
	if decoded["status"] != "success" {
		t.Errorf("expected canned success, got %v", decoded)
	}
}

func TestHandlePassthrough_UnknownVerbReturnsBadGateway(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LocalOllama.BaseURL = "http://127.0.0.1:1"
	app := &Application{
		cfg:    cfg,
		pool:   &fakePool{client: &http.Client{Timeout: 50 * time.Millisecond}},
		logger: slog.Default(),
		styled: &mockStyledLogger{},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/create", nil)
	w := httptest.NewRecorder()

	app.HandlePassthrough(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
}
