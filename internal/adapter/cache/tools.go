package cache

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"time"

	"github.com/thushan/ollabridge/internal/util"
)

const (
	toolNameMaxLen        = 50
	toolDescriptionMaxLen = 100
	toolRequiredMax       = 5
)

type toolsCacheValue struct {
	hash string
	data []any
}

// ToolsCache deduplicates the `tools` array on a request per session
// (spec §4.2). Tool schemas tend to be large and repeated verbatim across a
// conversation's turns, so caching the compressed form by content hash
// avoids re-shrinking and re-sending it every time.
type ToolsCache struct {
	cache *TTLCache[toolsCacheValue]
}

// NewToolsCache builds a ToolsCache with the given capacity and TTL.
func NewToolsCache(maxSize int, ttl time.Duration) *ToolsCache {
	return &ToolsCache{cache: New[toolsCacheValue](maxSize, ttl)}
}

// Dedup returns the compressed tools array to send upstream: the cached
// compressed form if this session already saw an identical tools array, or
// a freshly compressed (and now cached) one otherwise.
func (tc *ToolsCache) Dedup(sessionID string, tools []any) []any {
	if len(tools) == 0 {
		return tools
	}

	hash := hashTools(tools)
	cacheKey := fmt.Sprintf("tools:%s", sessionID)

	if cached, ok := tc.cache.Get(cacheKey); ok && cached.hash == hash {
		return cached.data
	}

	compressed := compressTools(tools)
	tc.cache.Set(cacheKey, toolsCacheValue{hash: hash, data: compressed})
	return compressed
}

// hashTools computes MD5(canonical_json(tools))[:12] (spec §4.2).
// encoding/json already sorts map keys when marshalling, which is what
// makes this hash stable across semantically-identical tool lists.
func hashTools(tools []any) string {
	raw, err := json.Marshal(tools)
	if err != nil {
		return ""
	}
	sum := md5.Sum(raw)
	return fmt.Sprintf("%x", sum)[:12]
}

// compressTools shrinks each tool to its structurally-necessary fields and
// drops duplicate entries (by name+parameters signature) within the list.
func compressTools(tools []any) []any {
	seen := make(map[string]bool, len(tools))
	out := make([]any, 0, len(tools))

	for _, raw := range tools {
		tool, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		compressed := compressTool(tool)

		sigBytes, _ := json.Marshal(map[string]any{
			"name":       util.GetString(functionOf(compressed), "name"),
			"parameters": functionOf(compressed)["parameters"],
		})
		sig := string(sigBytes)
		if seen[sig] {
			continue
		}
		seen[sig] = true
		out = append(out, compressed)
	}
	return out
}

func compressTool(tool map[string]any) map[string]any {
	out := map[string]any{"type": util.GetString(tool, "type")}

	fn, ok := tool["function"].(map[string]any)
	if !ok {
		return out
	}

	name := util.GetString(fn, "name")
	if len(name) > toolNameMaxLen {
		name = name[:toolNameMaxLen]
	}
	description := util.GetString(fn, "description")
	if len(description) > toolDescriptionMaxLen {
		description = description[:toolDescriptionMaxLen]
	}

	params := map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
	if rawParams, ok := fn["parameters"].(map[string]any); ok {
		if t := util.GetString(rawParams, "type"); t != "" {
			params["type"] = t
		}
		if required := util.GetStringArray(rawParams, "required"); len(required) > 0 {
			if len(required) > toolRequiredMax {
				required = required[:toolRequiredMax]
			}
			params["required"] = required
		}
	}

	out["function"] = map[string]any{
		"name":        name,
		"description": description,
		"parameters":  params,
	}
	return out
}

func functionOf(tool map[string]any) map[string]any {
	fn, _ := tool["function"].(map[string]any)
	return fn
}
