// Package ports declares the interfaces that connect the dispatch engine
// (C7) to its collaborators, so each can be faked in tests without an
// import of its concrete adapter package.
package ports

import (
	"context"
	"io"
	"net/http"

	"github.com/thushan/ollabridge/internal/core/domain"
)

// StreamResult is what a BackendRouter returns for a streaming request: a
// lazy, finite, non-restartable sequence of byte chunks plus the media type
// to set on the downstream response.
type StreamResult struct {
	Body      io.ReadCloser
	MediaType string
}

// HandleResult is the outcome of BackendRouter.Handle for a non-stream
// request: a single decoded JSON object.
type HandleResult struct {
	Body map[string]any
}

// BackendRouter is the common contract every backend driver (openai,
// ollama, mock) satisfies. Spec §4.4.
type BackendRouter interface {
	// Handle applies this router's own request caches to body and then
	// issues the upstream call. For stream requests it returns a StreamResult whose
	// Body must be forwarded byte-for-byte; for non-stream requests it
	// returns a HandleResult.
	Handle(ctx context.Context, actualModel string, body map[string]any, stream bool, supportThinking bool) (*HandleResult, *StreamResult, error)

	// ToOllama translates a non-stream HandleResult's body from this
	// router's native shape into the Ollama generate shape. The generate
	// handler calls it on every non-stream result; a router whose native
	// shape is already Ollama returns body unchanged.
	ToOllama(body map[string]any, virtualModel string) map[string]any

	// Name is the router's native backend type, used for logging.
	Name() domain.BackendType
}

// ClientPool is the HTTP client pool contract (C1).
type ClientPool interface {
	Acquire(ctx context.Context, baseURL, apiKey string, timeoutMs int64, compression bool) (*http.Client, error)
	Release(baseURL, apiKey string, compression bool)
	CloseAll()
}

// LocalProbe is the cached liveness check for the local Ollama daemon (C9).
type LocalProbe interface {
	IsUp(ctx context.Context) bool
}

// Resolver is the config/resolver view contract (C6).
type Resolver interface {
	Resolve(model string) (*domain.ResolvedModel, error)
	Candidates(resolved *domain.ResolvedModel, inputModel string) ([]domain.Candidate, error)
	InvalidateCache()
}

// RouterRegistry is the router registry/factory contract (C5).
type RouterRegistry interface {
	Get(name string) (BackendRouter, bool)
	RouterNameFor(ep *domain.BackendEndpoint) string
	LocalRouterName(ctx context.Context) string
}
