// Package openai implements the ports.BackendRouter for any OpenAI-shaped
// backend (spec §4.4.1): the real OpenAI API or an OpenAI-compatible one
// (OpenRouter, DeepSeek, a local vLLM, etc). It prefers the SDK path
// (github.com/sashabaranov/go-openai) and falls back to a raw HTTP POST when
// the SDK looks unusable for this endpoint, caching that verdict for
// sdkRecheckInterval so a misbehaving endpoint isn't retried on every call.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/thushan/ollabridge/internal/adapter/cache"
	"github.com/thushan/ollabridge/internal/adapter/converter"
	"github.com/thushan/ollabridge/internal/adapter/router/common"
	"github.com/thushan/ollabridge/internal/core/constants"
	"github.com/thushan/ollabridge/internal/core/domain"
	"github.com/thushan/ollabridge/internal/core/ports"
)

type sdkState int

const (
	sdkUnknown sdkState = iota
	sdkAvailable
	sdkUnavailable
)

const sdkRecheckInterval = 300 * time.Second

// sdkWhitelist mirrors spec §4.4.1's whitelisted SDK parameter set. Anything
// else present on the request body (max_retries, cache, timeout, or any
// config leakage) is dropped rather than forwarded to the SDK.
var sdkWhitelist = []string{
	"messages", "temperature", "max_tokens", "max_completion_tokens", "top_p",
	"frequency_penalty", "presence_penalty", "stop", "tools", "tool_choice",
	"parallel_tool_calls", "functions", "function_call", "response_format",
	"seed", "logprobs", "top_logprobs", "user", "logit_bias", "n", "stream_options",
}

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

	mu           sync.Mutex
	sdkStatus    sdkState
	lastSDKCheck time.Time
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

func (r *Router) Name() domain.BackendType { return domain.BackendTypeOpenAI }

func (r *Router) ToOllama(body map[string]any, virtualModel string) map[string]any {
	return converter.ToOllamaShape(body, virtualModel)
}

func (r *Router) Handle(ctx context.Context, actualModel string, body map[string]any, stream bool, supportThinking bool) (*ports.HandleResult, *ports.StreamResult, error) {
	body = common.ApplyCaches(body, r.promptCache, r.toolsCache, r.elisionOn, r.dedupOn)

	if r.shouldTrySDK() {
		result, streamResult, err := r.handleSDK(ctx, actualModel, body, stream, supportThinking)
		if err == nil {
			r.markAvailable()
			return result, streamResult, nil
		}
		r.classifySDKFailure(err)
		r.logger.Warn("openai SDK path failed, falling back to HTTP", "endpoint", r.endpoint.Name, "error", err)
	}
	return r.handleHTTP(ctx, actualModel, body, stream, supportThinking)
}

func (r *Router) shouldTrySDK() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sdkStatus == sdkUnavailable && time.Since(r.lastSDKCheck) < sdkRecheckInterval {
		return false
	}
	return true
}

func (r *Router) markAvailable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sdkStatus = sdkAvailable
}

// classifySDKFailure implements spec §4.4.1 step 3: an authentication-shaped
// error or a non-API (transport-level) error marks the SDK unavailable for
// sdkRecheckInterval; any other API-shaped error leaves status unchanged.
func (r *Router) classifySDKFailure(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "invalid_api_key") || strings.Contains(msg, "authentication") {
		r.sdkStatus = sdkUnavailable
		r.lastSDKCheck = time.Now()
		return
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return
	}

	r.sdkStatus = sdkUnavailable
	r.lastSDKCheck = time.Now()
}

func (r *Router) handleSDK(ctx context.Context, actualModel string, body map[string]any, stream bool, supportThinking bool) (*ports.HandleResult, *ports.StreamResult, error) {
	client, err := r.sdkClient(ctx, supportThinking)
	if err != nil {
		return nil, nil, err
	}
	req := buildSDKRequest(body, actualModel, stream)

	if !stream {
		resp, err := client.CreateChatCompletion(ctx, req)
		if err != nil {
			return nil, nil, err
		}
		raw, err := json.Marshal(resp)
		if err != nil {
			return nil, nil, err
		}
		var decoded map[string]any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, nil, err
		}
		return &ports.HandleResult{Body: decoded}, nil, nil
	}

	sdkStream, err := client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	return nil, &ports.StreamResult{Body: newSDKStreamReader(sdkStream), MediaType: constants.ContentTypeEventSSE}, nil
}

// sdkClient builds a go-openai client bound to this endpoint's pooled HTTP
// client. When supportThinking is set, spec §4.4.1 asks for a `reasoning:
// true` entry inside the SDK call's extra_headers rather than a top-level
// request field; go-openai has no per-call header hook, so this is done with
// a request-scoped RoundTripper wrapping the pooled transport.
func (r *Router) sdkClient(ctx context.Context, supportThinking bool) (*openai.Client, error) {
	httpClient, err := r.pool.Acquire(ctx, r.endpoint.BaseURL, r.endpoint.APIKey, r.endpoint.Timeout, r.endpoint.CompressionEnabled)
	if err != nil {
		return nil, &domain.ClientInitError{Err: err, BaseURL: r.endpoint.BaseURL}
	}

	cfg := openai.DefaultConfig(r.endpoint.APIKey)
	cfg.BaseURL = r.endpoint.BaseURL

	if supportThinking {
		cfg.HTTPClient = &http.Client{
			Transport: reasoningHeaderTransport{base: httpClient.Transport},
			Timeout:   httpClient.Timeout,
		}
	} else {
		cfg.HTTPClient = httpClient
	}

	return openai.NewClientWithConfig(cfg), nil
}

type reasoningHeaderTransport struct {
	base http.RoundTripper
}

func (t reasoningHeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("reasoning", "true")
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// buildSDKRequest copies only the whitelisted fields, round-tripping through
// JSON so go-openai's tagged struct fields pick up the right types without
// a hand-written switch over every field's dynamic type.
func buildSDKRequest(body map[string]any, actualModel string, stream bool) openai.ChatCompletionRequest {
	filtered := make(map[string]any, len(sdkWhitelist)+2)
	for _, field := range sdkWhitelist {
		if v, ok := body[field]; ok && v != nil {
			filtered[field] = v
		}
	}
	filtered["model"] = actualModel
	filtered["stream"] = stream

	raw, _ := json.Marshal(filtered)
	var req openai.ChatCompletionRequest
	_ = json.Unmarshal(raw, &req)
	return req
}

// sdkStreamReader wraps an *openai.ChatCompletionStream as an io.ReadCloser,
// SSE-framing each chunk and terminating with the standard `[DONE]` sentinel
// (spec §4.4.1).
type sdkStreamReader struct {
	stream *openai.ChatCompletionStream
	buf    *bytes.Reader
	done   bool
}

func newSDKStreamReader(stream *openai.ChatCompletionStream) *sdkStreamReader {
	return &sdkStreamReader{stream: stream}
}

func (s *sdkStreamReader) Read(p []byte) (int, error) {
	if s.buf != nil && s.buf.Len() > 0 {
		return s.buf.Read(p)
	}
	if s.done {
		return 0, io.EOF
	}

	chunk, err := s.stream.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.done = true
			s.buf = bytes.NewReader([]byte("data: [DONE]\n\n"))
			return s.buf.Read(p)
		}
		return 0, err
	}

	payload, err := json.Marshal(chunk)
	if err != nil {
		return 0, err
	}
	s.buf = bytes.NewReader([]byte(fmt.Sprintf("data: %s\n\n", payload)))
	return s.buf.Read(p)
}

func (s *sdkStreamReader) Close() error {
	s.stream.Close()
	return nil
}

func (r *Router) handleHTTP(ctx context.Context, actualModel string, body map[string]any, stream bool, supportThinking bool) (*ports.HandleResult, *ports.StreamResult, error) {
	client, err := r.pool.Acquire(ctx, r.endpoint.BaseURL, r.endpoint.APIKey, r.endpoint.Timeout, r.endpoint.CompressionEnabled)
	if err != nil {
		return nil, nil, &domain.ClientInitError{Err: err, BaseURL: r.endpoint.BaseURL}
	}

	outBody := make(map[string]any, len(body)+2)
	for k, v := range body {
		outBody[k] = v
	}
	outBody["model"] = actualModel
	outBody["stream"] = stream

	if supportThinking {
		outBody["reasoning"] = true
		injectReasoningContent(outBody)
	}

	payload, err := common.MarshalCompact(outBody)
	if err != nil {
		return nil, nil, &domain.DecodeError{Err: err, Reason: "encoding openai request body"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint.BaseURL+constants.UpstreamChatCompletions, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, &domain.TransportError{Err: err, RouterName: string(domain.BackendTypeOpenAI)}
	}
	for k, v := range r.endpoint.Headers {
		req.Header.Set(k, v)
	}

	if stream {
		result, err := common.Stream(ctx, client, req, common.FramingSSE, constants.ContentTypeEventSSE, string(domain.BackendTypeOpenAI), r.logger)
		if err != nil {
			return nil, nil, &domain.TransportError{Err: err, RouterName: string(domain.BackendTypeOpenAI)}
		}
		return nil, result, nil
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, &domain.TransportError{Err: err, RouterName: string(domain.BackendTypeOpenAI)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &domain.TransportError{Err: err, RouterName: string(domain.BackendTypeOpenAI)}
	}
	if resp.StatusCode >= 300 {
		return nil, nil, &domain.UpstreamError{StatusCode: resp.StatusCode, Text: string(raw), RouterName: string(domain.BackendTypeOpenAI)}
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, nil, &domain.DecodeError{Err: err, Reason: "decoding openai response"}
	}
	return &ports.HandleResult{Body: decoded}, nil, nil
}

// injectReasoningContent adds an empty reasoning_content field to any
// assistant message lacking one, per spec §4.4.1's HTTP path.
func injectReasoningContent(body map[string]any) {
	messages, ok := body["messages"].([]any)
	if !ok {
		return
	}
	for _, m := range messages {
		msg, ok := m.(map[string]any)
		if !ok || msg["role"] != "assistant" {
			continue
		}
		if _, has := msg["reasoning_content"]; !has {
			msg["reasoning_content"] = ""
		}
	}
}
