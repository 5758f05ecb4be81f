package router

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/thushan/ollabridge/internal/logger"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...any) {}
func (nopLogger) Info(msg string, args ...any)  {}
func (nopLogger) Warn(msg string, args ...any)  {}
func (nopLogger) Error(msg string, args ...any) {}

func (nopLogger) InfoWithCount(msg string, count int, args ...any)           {}
func (nopLogger) InfoWithEndpoint(msg string, endpoint string, args ...any)  {}
func (nopLogger) WarnWithEndpoint(msg string, endpoint string, args ...any)  {}
func (nopLogger) ErrorWithEndpoint(msg string, endpoint string, args ...any) {}
func (nopLogger) InfoWithNumbers(msg string, numbers ...int64)              {}

func (nopLogger) InfoWithContext(msg string, endpoint string, ctx logger.LogContext)  {}
func (nopLogger) WarnWithContext(msg string, endpoint string, ctx logger.LogContext)  {}
func (nopLogger) ErrorWithContext(msg string, endpoint string, ctx logger.LogContext) {}

func (nopLogger) ProbeUp(name string)           {}
func (nopLogger) ProbeDown(name, reason string) {}
func (n nopLogger) GetUnderlying() *slog.Logger { return slog.Default() }
func (n nopLogger) WithRequestID(id string) logger.StyledLogger           { return n }
func (n nopLogger) WithAttrs(attrs ...slog.Attr) logger.StyledLogger { return n }
func (n nopLogger) With(args ...any) logger.StyledLogger             { return n }

func TestRouteRegistry_WireUpRegistersMethodAndBareRoutes(t *testing.T) {
	reg := NewRouteRegistry(nopLogger{})

	reg.Register("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, "list models")

	reg.RegisterWithMethod("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}, "generate", http.MethodPost)

	reg.RegisterAny("/api/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}, "passthrough catch-all")

	mux := http.NewServeMux()
	reg.WireUp(mux)

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/tags", http.StatusOK},
		{http.MethodPost, "/api/generate", http.StatusCreated},
		{http.MethodDelete, "/api/pull", http.StatusTeapot},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Errorf("%s %s: expected %d, got %d", tc.method, tc.path, tc.want, w.Code)
		}
	}
}

func TestRouteRegistry_PreservesRegistrationOrder(t *testing.T) {
	reg := NewRouteRegistry(nopLogger{})
	reg.Register("/c", func(w http.ResponseWriter, r *http.Request) {}, "third")
	reg.Register("/a", func(w http.ResponseWriter, r *http.Request) {}, "first")
	reg.Register("/b", func(w http.ResponseWriter, r *http.Request) {}, "second")

	routes := reg.GetRoutes()
	if len(routes) != 3 {
		t.Fatalf("expected 3 routes, got %d", len(routes))
	}
	if routes["GET /c"].Order != 0 || routes["GET /a"].Order != 1 || routes["GET /b"].Order != 2 {
		t.Errorf("expected orders to reflect registration sequence, got %+v", routes)
	}
}
