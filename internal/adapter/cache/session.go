package cache

import (
	"crypto/md5"
	"fmt"

	"github.com/google/uuid"

	"github.com/thushan/ollabridge/internal/util"
)

// SessionKey derives the cache session identifier for a request body,
// following the three-tier fallback in spec §4.2: an explicit session_id
// wins; failing that, a hash of the first message's opening text; failing
// that, a fresh temporary id, so every request still lands in some session
// bucket even from a client that never sends one.
func SessionKey(body map[string]any) string {
	if sid := util.GetString(body, "session_id"); sid != "" {
		return sid
	}

	if firstText := firstMessageText(body); firstText != "" {
		prefix := firstText
		if len(prefix) > 100 {
			prefix = prefix[:100]
		}
		sum := md5.Sum([]byte(prefix))
		return fmt.Sprintf("session_%x", sum[:4])
	}

	return "temp_" + uuid.NewString()
}

func firstMessageText(body map[string]any) string {
	raw, ok := body["messages"]
	if !ok {
		return ""
	}
	messages, ok := raw.([]any)
	if !ok || len(messages) == 0 {
		return ""
	}
	first, ok := messages[0].(map[string]any)
	if !ok {
		return ""
	}
	return util.GetString(first, "content")
}
