package common

import (
	"github.com/thushan/ollabridge/internal/adapter/cache"
	"github.com/thushan/ollabridge/internal/util"
)

// ApplyCaches implements spec §4.2's per-session request shrinking against
// this router's own cache pair, the way base_router.py's __init__ gives
// every router its own self._prompt_cache/self._tools_cache rather than
// sharing one pair proxy-wide: the last message's content is elided
// against that session's benchmark when it's a user turn, and the tools
// array is deduped, each gated by its own config flag. A body with no
// "messages"/"tools" key (an Ollama-native /api/generate body bound for
// the local daemon) passes through untouched.
func ApplyCaches(body map[string]any, promptCache *cache.PromptCache, toolsCache *cache.ToolsCache, elisionOn, dedupOn bool) map[string]any {
	sessionID := cache.SessionKey(body)

	if elisionOn && promptCache != nil {
		if messages, ok := body["messages"].([]any); ok {
			if msg, ok := lastMessage(messages); ok && util.GetString(msg, "role") == "user" {
				content := util.GetString(msg, "content")
				msg["content"] = promptCache.Elide(sessionID, content)
			}
		}
	}

	if dedupOn && toolsCache != nil {
		if tools, ok := body["tools"].([]any); ok {
			body["tools"] = toolsCache.Dedup(sessionID, tools)
		}
	}

	return body
}

// lastMessage returns the literal last element of messages, not the
// nearest user-role message: routers.py's _optimize_prompt only ever
// inspects messages[-1] and skips elision entirely when that message isn't
// a user turn, so a trailing tool result or assistant message must not
// fall back to eliding an earlier, unrelated user turn.
func lastMessage(messages []any) (map[string]any, bool) {
	if len(messages) == 0 {
		return nil, false
	}
	msg, ok := messages[len(messages)-1].(map[string]any)
	return msg, ok
}
