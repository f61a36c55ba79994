package llm

import (
	"regexp"
	"strings"
)

var (
	controlTokenRe = regexp.MustCompile(`\[/?[A-Z_]+\]`)
	eosMarkerRe    = regexp.MustCompile(`</s>`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// CleanResponse strips bracketed uppercase control tokens (e.g. [INST],
// [/SYS]) and end-of-sequence markers from raw model output, then collapses
// whitespace runs to single spaces.
func CleanResponse(raw string) string {
	cleaned := controlTokenRe.ReplaceAllString(raw, "")
	cleaned = eosMarkerRe.ReplaceAllString(cleaned, "")
	cleaned = whitespaceRe.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}
