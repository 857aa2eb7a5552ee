package shelf

import (
	"unicode"
	"unicode/utf8"
)

// MaxIDLength bounds the length of an item id accepted from a request path.
const MaxIDLength = 128

// IsValidID reports whether id can be used as an item key.
// Ids are opaque, but they travel in URL paths, Redis keys and file names,
// so the following are rejected:
//   - the empty string, "." and ".."
//   - anything longer than MaxIDLength bytes
//   - invalid UTF-8
//   - slashes, backslashes, control characters and whitespace
func IsValidID(id string) bool {
	if id == "" || id == "." || id == ".." || len(id) > MaxIDLength {
		return false
	}

	if !utf8.ValidString(id) {
		return false
	}

	for _, r := range id {
		if r == '/' || r == '\\' || r < 0x20 || r == 0x7f || unicode.IsSpace(r) {
			return false
		}
	}

	return true
}
