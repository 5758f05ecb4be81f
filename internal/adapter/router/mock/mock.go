// Package mock implements the ports.BackendRouter used whenever the local
// daemon probe (C9) reports the local daemon down, and is always present in
// the registry as an explicit router named "mock" (spec §4.4.3). It performs
// no network I/O: responses are canned, and streaming is paced at roughly
// 20 chunks per second purely to exercise the same downstream chunk-by-chunk
// forwarding path a real backend would.
package mock

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/thushan/ollabridge/internal/adapter/cache"
	"github.com/thushan/ollabridge/internal/adapter/router/common"
	"github.com/thushan/ollabridge/internal/core/constants"
	"github.com/thushan/ollabridge/internal/core/domain"
	"github.com/thushan/ollabridge/internal/core/ports"
)

const chunkInterval = 50 * time.Millisecond // ~20 chunks/sec

const canned = "This is a mock response generated because no live backend is available."

// Router owns its own prompt/tools cache pair, same as every other
// BackendRouter (spec.md: "BackendRouter ... exclusively owns its
// caches"), even though its canned responses don't depend on the
// (possibly now-elided/deduped) request body — the cache is still
// exercised so a session bounced between the mock and a live backend sees
// consistent per-router cache state rather than none at all.
type Router struct {
	promptCache *cache.PromptCache
	toolsCache  *cache.ToolsCache
	elisionOn   bool
	dedupOn     bool
}

func New(caches cache.Config) *Router {
	return &Router{
		promptCache: cache.NewPromptCache(caches.PromptCacheMaxEntries, caches.PromptCacheTTL),
		toolsCache:  cache.NewToolsCache(caches.ToolCacheMaxEntries, caches.ToolCacheTTL),
		elisionOn:   caches.PromptElisionOn,
		dedupOn:     caches.ToolCompressionOn,
	}
}

func (r *Router) Name() domain.BackendType { return domain.BackendTypeMock }

// ToOllama mirrors the openai router's translation since the mock's chat
// shape is an OpenAI chat.completion object.
func (r *Router) ToOllama(body map[string]any, virtualModel string) map[string]any {
	if _, ok := body["choices"]; !ok {
		return body
	}
	return map[string]any{
		"model":    virtualModel,
		"response": canned,
		"done":     true,
	}
}

func (r *Router) Handle(ctx context.Context, actualModel string, body map[string]any, stream bool, supportThinking bool) (*ports.HandleResult, *ports.StreamResult, error) {
	body = common.ApplyCaches(body, r.promptCache, r.toolsCache, r.elisionOn, r.dedupOn)
	_, chat := body["messages"]

	if !stream {
		if chat {
			return &ports.HandleResult{Body: chatCompletionObject(actualModel)}, nil, nil
		}
		return &ports.HandleResult{Body: generateObject(actualModel)}, nil, nil
	}

	if chat {
		return nil, &ports.StreamResult{Body: newChatStream(actualModel), MediaType: constants.ContentTypeEventSSE}, nil
	}
	return nil, &ports.StreamResult{Body: newGenerateStream(actualModel), MediaType: constants.ContentTypeNDJSON}, nil
}

func chatCompletionObject(model string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-mock",
		"object":  "chat.completion",
		"created": 0,
		"model":   model,
		"choices": []any{
			map[string]any{
				"index": 0,
				"message": map[string]any{
					"role":    "assistant",
					"content": canned,
				},
				"finish_reason": "stop",
			},
		},
	}
}

func generateObject(model string) map[string]any {
	return map[string]any{
		"model":    model,
		"response": canned,
		"done":     true,
	}
}

// chunkedReader paces fmt.Stringer-free JSON chunks onto an io.Reader at
// chunkInterval, blocking Read calls between chunks the way a real streaming
// upstream would.
type chunkedReader struct {
	chunks [][]byte
	idx    int
	buf    *bytes.Reader
	ticker *time.Ticker
	done   bool
}

func newChunkedReader(chunks [][]byte) *chunkedReader {
	return &chunkedReader{chunks: chunks, ticker: time.NewTicker(chunkInterval)}
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if c.buf != nil && c.buf.Len() > 0 {
		return c.buf.Read(p)
	}
	if c.idx >= len(c.chunks) {
		return 0, io.EOF
	}
	if c.idx > 0 {
		<-c.ticker.C
	}
	c.buf = bytes.NewReader(c.chunks[c.idx])
	c.idx++
	return c.buf.Read(p)
}

func (c *chunkedReader) Close() error {
	c.ticker.Stop()
	return nil
}

func newChatStream(model string) io.ReadCloser {
	words := strings.Split(canned, " ")
	chunks := make([][]byte, 0, len(words)+1)
	for i, w := range words {
		content := w
		if i < len(words)-1 {
			content += " "
		}
		payload, _ := json.Marshal(map[string]any{
			"id":      "chatcmpl-mock",
			"object":  "chat.completion.chunk",
			"model":   model,
			"choices": []any{map[string]any{"index": 0, "delta": map[string]any{"content": content}}},
		})
		chunks = append(chunks, []byte(fmt.Sprintf("data: %s\n\n", payload)))
	}
	chunks = append(chunks, []byte("data: [DONE]\n\n"))
	return newChunkedReader(chunks)
}

func newGenerateStream(model string) io.ReadCloser {
	words := strings.Split(canned, " ")
	chunks := make([][]byte, 0, len(words))
	for i, w := range words {
		response := w
		if i < len(words)-1 {
			response += " "
		}
		payload, _ := json.Marshal(map[string]any{
			"model":    model,
			"response": response,
			"done":     i == len(words)-1,
		})
		chunks = append(chunks, append(payload, '\n'))
	}
	return newChunkedReader(chunks)
}
