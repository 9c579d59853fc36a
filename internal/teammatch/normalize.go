// Package teammatch is the unified team-name matching service: exact,
// alias, nickname, then fuzzy (Jaro-Winkler) cascading match against a
// sport's canonical roster, with a confidence score attached to
// whichever strategy resolved the match. It is served as a multi-sport
// RPC over the bus, which signalproc calls; the shard runs a Matcher
// in-process and discovery uses Normalize directly.
package teammatch

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases, strips diacritics, and collapses whitespace.
// Alias resolution happens separately in Match so the normalized form
// is still available for the nickname/fuzzy stages.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = stripDiacritics(s)
	s = strings.ToLower(strings.TrimSpace(s))
	return collapseWhitespace(s)
}

func stripDiacritics(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		if !unicode.Is(unicode.Mn, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
