package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldDiacritics decomposes to NFD, strips combining marks, and recomposes.
var foldDiacritics = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// NormalizeText produces the matching form of chunk text: diacritics
// folded, lowercased, whitespace collapsed. Queries and chunk text must go
// through the same normalization so substring and edit-distance matching
// line up.
func NormalizeText(s string) string {
	// ß has no combining-mark decomposition, fold it by hand.
	s = strings.ReplaceAll(s, "ß", "ss")
	folded, _, err := transform.String(foldDiacritics, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
