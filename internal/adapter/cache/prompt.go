package cache

import (
	"fmt"
	"time"
)

const prefixElisionThreshold = 50

// PromptCache implements prompt-prefix elision on the last user message's
// content (spec §4.2): once a session has sent a long prompt, later
// requests that repeat its opening text send only the delta, with the
// elided prefix marked so the backend (or a human reading logs) knows
// something was cut.
type PromptCache struct {
	cache *TTLCache[string] // session -> benchmark content
}

// NewPromptCache builds a PromptCache with the given capacity and TTL.
func NewPromptCache(maxSize int, ttl time.Duration) *PromptCache {
	return &PromptCache{cache: New[string](maxSize, ttl)}
}

// Elide returns the content to send upstream for this session: either the
// original content (no benchmark yet, or the shared prefix was too short
// to bother eliding) or a rewritten form with the repeated prefix replaced
// by a short marker.
func (pc *PromptCache) Elide(sessionID, content string) string {
	cacheKey := fmt.Sprintf("prompt:%s", sessionID)

	benchmark, ok := pc.cache.Get(cacheKey)
	if !ok {
		pc.cache.Set(cacheKey, content)
		return content
	}
	if benchmark == content {
		return content // touch already happened via Get
	}

	prefixRunes, prefixLen := commonPrefix(benchmark, content)
	if len(prefixRunes) < prefixElisionThreshold {
		pc.cache.Set(cacheKey, content)
		return content
	}

	head := string(prefixRunes[:30])
	tail := string(prefixRunes[len(prefixRunes)-30:])
	rest := string([]rune(content)[prefixLen:])
	return fmt.Sprintf("<开头%s....末尾%s>%s", head, tail, rest)
}

// commonPrefix compares a and b rune-by-rune so the elision marker never
// splits a multi-byte character, returning both the shared runes and their
// count (equal to the rune-index, not byte-index, of the split point).
func commonPrefix(a, b string) ([]rune, int) {
	ar, br := []rune(a), []rune(b)
	n := len(ar)
	if len(br) < n {
		n = len(br)
	}
	i := 0
	for i < n && ar[i] == br[i] {
		i++
	}
	return ar[:i], i
}
