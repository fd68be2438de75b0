package registry

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// accentStripper decomposes to NFD, drops combining marks, and recomposes.
// "Nódulo" and "nodulo" normalize identically so that transcription noise in
// diacritics never defeats a pattern match.
var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases s, strips accents and punctuation, and collapses
// whitespace runs to single spaces. It is applied identically to stored
// patterns (at load time) and to incoming transcripts (at match time) so
// comparisons are on equal footing.
func Normalize(s string) string {
	folded, _, err := transform.String(accentStripper, s)
	if err != nil {
		// Malformed UTF-8; fall back to the raw string rather than failing
		// the whole match pass.
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
		// Punctuation and symbols are dropped.
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
