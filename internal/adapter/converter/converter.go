// Package converter normalises non-stream backend responses to
// map[string]any (spec §4.3) and translates an OpenAI chat-completion
// shape into the Ollama `/api/generate` shape when the inbound dialect
// requires it.
package converter

import (
	"encoding/json"
	"fmt"

	"github.com/thushan/ollabridge/internal/util"
)

// Normalize accepts whatever a backend router decoded a non-stream
// response into — already a map, a JSON string/[]byte, or any Go value
// that marshals to a JSON object — and returns it as map[string]any. This
// is the Go-native equivalent of the original's willingness to accept SDK
// response objects via model_dump/to_dict/dict/vars: anything that can
// become a JSON object is accepted.
func Normalize(input any) (map[string]any, error) {
	switch v := input.(type) {
	case map[string]any:
		return v, nil
	case []byte:
		return decodeJSONObject(v)
	case string:
		return decodeJSONObject([]byte(v))
	case nil:
		return nil, fmt.Errorf("cannot normalise a nil response")
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("normalising response: %w", err)
		}
		return decodeJSONObject(raw)
	}
}

func decodeJSONObject(raw []byte) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding response body: %w", err)
	}
	return out, nil
}

// ToOllamaShape converts an OpenAI-shaped chat-completion body into the
// Ollama generate shape (spec §4.3). If the body has no "choices" field it
// is assumed to already be Ollama-shaped and is returned unchanged.
func ToOllamaShape(body map[string]any, virtualModel string) map[string]any {
	choices, ok := body["choices"].([]any)
	if !ok || len(choices) == 0 {
		return body
	}
	choice, ok := choices[0].(map[string]any)
	if !ok {
		return body
	}
	message, _ := choice["message"].(map[string]any)
	content := util.GetString(message, "content")

	var totalDuration int64
	if usage, ok := body["usage"].(map[string]any); ok {
		if tokens, ok := util.GetFloat64(usage, "total_tokens"); ok {
			totalDuration = tokens * 50_000_000
		}
	}

	return map[string]any{
		"model":          virtualModel,
		"response":       content,
		"done":           true,
		"total_duration": totalDuration,
	}
}
