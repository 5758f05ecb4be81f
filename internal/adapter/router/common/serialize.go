package common

import (
	"encoding/json"

	"github.com/thushan/ollabridge/internal/util"
)

// MarshalCompact serializes body compactly (encoding/json never adds
// indentation by default, so this is just Marshal) and, if that fails
// because the body contains invalid UTF-8 somewhere in a string field,
// sanitizes every string value recursively and retries exactly once
// (spec §4.4.4 step 1).
func MarshalCompact(body map[string]any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err == nil {
		return raw, nil
	}
	return json.Marshal(sanitizeValue(body))
}

func sanitizeValue(v any) any {
	switch t := v.(type) {
	case string:
		return string(util.SanitizeUTF8([]byte(t)))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = sanitizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = sanitizeValue(val)
		}
		return out
	default:
		return v
	}
}
