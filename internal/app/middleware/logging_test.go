package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/thushan/ollabridge/internal/logger"
)

func TestEnhancedLoggingMiddleware(t *testing.T) {
	mockLogger := &mockStyledLogger{}

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxLogger := GetLogger(r.Context())
		if ctxLogger == nil {
			t.Error("Expected context logger to be available")
			return
		}

		requestID := GetRequestID(r.Context())
		if requestID == "" {
			t.Error("Expected request ID to be available")
			return
		}

		ctxLogger.Info("test handler executed", "request_id", requestID)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("test response"))
	})

	mw := EnhancedLoggingMiddleware(mockLogger)
	handler := mw(testHandler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Request-ID", "test-request-123")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	if got := rr.Header().Get("X-Request-ID"); got != "test-request-123" {
		t.Errorf("expected X-Request-ID header to be 'test-request-123', got '%s'", got)
	}

	if rr.Body.String() != "test response" {
		t.Errorf("expected body %q, got %q", "test response", rr.Body.String())
	}
}

func TestAccessLoggingMiddleware(t *testing.T) {
	mockLogger := &mockStyledLogger{}

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("access log test"))
	})

	mw := AccessLoggingMiddleware(mockLogger)
	handler := mw(testHandler)

	req := httptest.NewRequest(http.MethodPost, "/api/test?param=value", strings.NewReader("test body"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent")
	req.ContentLength = 9

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if rr.Body.String() != "access log test" {
		t.Errorf("expected body %q, got %q", "access log test", rr.Body.String())
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0B"},
		{500, "500B"},
		{1024, "1.0KB"},
		{1536, "1.5KB"},
		{1048576, "1.0MB"},
		{1073741824, "1.0GB"},
		{1099511627776, "1.0TB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.input); got != tt.expected {
			t.Errorf("formatBytes(%d) = %s, want %s", tt.input, got, tt.expected)
		}
	}
}

func TestIsAPIRequest(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/api/generate", true},
		{"/api/tags", true},
		{"/v1/chat/completions", true},
		{"/", false},
		{"/version", false},
	}

	for _, tt := range tests {
		if got := isAPIRequest(tt.path); got != tt.expected {
			t.Errorf("isAPIRequest(%q) = %v, want %v", tt.path, got, tt.expected)
		}
	}
}

func TestGetLoggerWithoutContext(t *testing.T) {
	if GetLogger(context.Background()) == nil {
		t.Error("expected default logger when no logger in context")
	}
}

func TestGetRequestIDWithoutContext(t *testing.T) {
	if requestID := GetRequestID(context.Background()); requestID != "" {
		t.Errorf("expected empty request ID when not in context, got %s", requestID)
	}
}

// mockStyledLogger discards every call, following the teacher's logging_test.go pattern.
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

func (m *mockStyledLogger) ProbeUp(name string)                          {}
func (m *mockStyledLogger) ProbeDown(name, reason string)                {}
func (m *mockStyledLogger) GetUnderlying() *slog.Logger                  { return slog.Default() }
func (m *mockStyledLogger) WithRequestID(id string) logger.StyledLogger  { return m }
func (m *mockStyledLogger) WithAttrs(attrs ...slog.Attr) logger.StyledLogger {
	return m
}
func (m *mockStyledLogger) With(args ...any) logger.StyledLogger { return m }
