package util

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// SanitizeUTF8 makes a best-effort, lossy repair of a request body that
// failed strict JSON decoding because it contains invalid UTF-8 (a
// misbehaving client, or a copy-pasted prompt with stray byte sequences).
// Invalid sequences are replaced with U+FFFD rather than rejected outright,
// matching the "never drop a request for this" posture in spec §8.
func SanitizeUTF8(body []byte) []byte {
	if utf8.Valid(body) {
		return body
	}
	out, _, err := transform.Bytes(unicode.UTF8.NewDecoder(), body)
	if err != nil {
		return []byte(string(body)) // Go's string() conversion itself replaces invalid runes with U+FFFD
	}
	return out
}
