// Package ollama implements the ports.BackendRouter for an Ollama-shaped
// backend (spec §4.4.2): the local daemon itself, or any other endpoint
// speaking Ollama's /api/generate and /v1/chat/completions surface.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/thushan/ollabridge/internal/adapter/cache"
	"github.com/thushan/ollabridge/internal/adapter/router/common"
	"github.com/thushan/ollabridge/internal/core/constants"
	"github.com/thushan/ollabridge/internal/core/domain"
	"github.com/thushan/ollabridge/internal/core/ports"
)

// Router owns its own prompt/tools cache pair (spec.md: "BackendRouter
// ... exclusively owns its caches"), the way base_router.py's __init__
// instantiates self._prompt_cache/self._tools_cache per router instance
// rather than sharing one pair across every backend.
type Router struct {
	pool     ports.ClientPool
	endpoint *domain.BackendEndpoint
	logger   *slog.Logger

	promptCache *cache.PromptCache
	toolsCache  *cache.ToolsCache
	elisionOn   bool
	dedupOn     bool
}

func New(pool ports.ClientPool, endpoint *domain.BackendEndpoint, logger *slog.Logger, caches cache.Config) *Router {
	return &Router{
		pool:        pool,
		endpoint:    endpoint,
		logger:      logger,
		promptCache: cache.NewPromptCache(caches.PromptCacheMaxEntries, caches.PromptCacheTTL),
		toolsCache:  cache.NewToolsCache(caches.ToolCacheMaxEntries, caches.ToolCacheTTL),
		elisionOn:   caches.PromptElisionOn,
		dedupOn:     caches.ToolCompressionOn,
	}
}

func (r *Router) Name() domain.BackendType { return domain.BackendTypeOllama }

// ToOllama is a no-op: this router's native shape already is the Ollama
// shape.
func (r *Router) ToOllama(body map[string]any, virtualModel string) map[string]any {
	return body
}

func (r *Router) Handle(ctx context.Context, actualModel string, body map[string]any, stream bool, supportThinking bool) (*ports.HandleResult, *ports.StreamResult, error) {
	client, err := r.pool.Acquire(ctx, r.endpoint.BaseURL, r.endpoint.APIKey, r.endpoint.Timeout, r.endpoint.CompressionEnabled)
	if err != nil {
		return nil, nil, &domain.ClientInitError{Err: err, BaseURL: r.endpoint.BaseURL}
	}

	outBody := make(map[string]any, len(body)+1)
	for k, v := range body {
		outBody[k] = v
	}
	outBody["model"] = actualModel
	outBody["stream"] = stream
	outBody = common.ApplyCaches(outBody, r.promptCache, r.toolsCache, r.elisionOn, r.dedupOn)

	_, chat := body["messages"]
	path := constants.UpstreamGenerate
	framing := common.FramingNDJSON
	mediaType := constants.ContentTypeNDJSON
	if chat {
		// Ollama's BaseURL is the bare daemon host (no /v1 prefix), unlike an
		// OpenAI-compatible BaseURL which already includes it.
		path = constants.PathV1ChatCompletions
		framing = common.FramingSSE
		mediaType = constants.ContentTypeEventSSE
	}

	payload, err := common.MarshalCompact(outBody)
	if err != nil {
		return nil, nil, &domain.DecodeError{Err: err, Reason: "encoding ollama request body"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, &domain.TransportError{Err: err, RouterName: string(domain.BackendTypeOllama)}
	}
	for k, v := range r.endpoint.Headers {
		req.Header.Set(k, v)
	}

	if stream {
		result, err := common.Stream(ctx, client, req, framing, mediaType, string(domain.BackendTypeOllama), r.logger)
		if err != nil {
			return nil, nil, &domain.TransportError{Err: err, RouterName: string(domain.BackendTypeOllama)}
		}
		return nil, result, nil
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, &domain.TransportError{Err: err, RouterName: string(domain.BackendTypeOllama)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &domain.TransportError{Err: err, RouterName: string(domain.BackendTypeOllama)}
	}
	if resp.StatusCode >= 300 {
		return nil, nil, &domain.UpstreamError{StatusCode: resp.StatusCode, Text: string(raw), RouterName: string(domain.BackendTypeOllama)}
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, nil, &domain.DecodeError{Err: err, Reason: "decoding ollama response"}
	}
	return &ports.HandleResult{Body: decoded}, nil, nil
}
