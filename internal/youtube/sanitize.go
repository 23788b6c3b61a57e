package youtube

import (
	"regexp"
	"strings"
)

var spaceRunRe = regexp.MustCompile(`\s+`)

// DecodeAndClean unescapes the five XML entities caption payloads carry,
// turns literal "\n" sequences into spaces, collapses whitespace runs and
// trims the ends. Idempotent.
//
// The entity passes are sequential with &amp; first: double-escaped input
// like "&amp;lt;" decodes fully in one application, so re-applying the
// function never changes the result again.
func DecodeAndClean(s string) string {
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&#39;", "'")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, `\n`, " ")
	s = spaceRunRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
