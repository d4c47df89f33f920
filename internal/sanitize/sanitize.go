// Package sanitize strips HTML from user-supplied text.
//
// Captions, bios and comments are stored as plain text. Sanitization must be
// idempotent: running Clean over already-clean content returns it unchanged,
// so a stored caption reads back exactly as written.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = bluemonday.StrictPolicy()

// maxPasses bounds the fixpoint loop. Each pass strips one layer of
// (possibly entity-escaped) markup; real input converges in two or three.
const maxPasses = 10

// Clean reduces the input to plain text: entities are decoded, tags are
// stripped, surrounding whitespace is trimmed. The pass repeats until the
// text stops changing, so entity-escaped markup ("&lt;b&gt;") is decoded
// and then removed instead of surviving as live HTML, and
// Clean(Clean(s)) == Clean(s).
func Clean(s string) string {
	for i := 0; i < maxPasses; i++ {
		next := strings.TrimSpace(html.UnescapeString(policy.Sanitize(s)))
		if next == s {
			return s
		}
		s = next
	}
	return s
}
