// Package address normalizes US street addresses and computes the fuzzy
// match scores cached by the verification engine.
package address

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// abbreviations maps common street-address tokens to their canonical form so
// "123 Main St" and "123 MAIN STREET" normalize identically. Unit markers all
// collapse to "unit": the unit designator acts as a separator, not a
// distinguishing token.
var abbreviations = map[string]string{
	"st":   "street",
	"str":  "street",
	"rd":   "road",
	"ave":  "avenue",
	"av":   "avenue",
	"blvd": "boulevard",
	"dr":   "drive",
	"ln":   "lane",
	"ct":   "court",
	"pl":   "place",
	"sq":   "square",
	"ter":  "terrace",
	"cir":  "circle",
	"hwy":  "highway",
	"pkwy": "parkway",
	"expy": "expressway",
	"n":    "north",
	"s":    "south",
	"e":    "east",
	"w":    "west",
	"ne":   "northeast",
	"nw":   "northwest",
	"se":   "southeast",
	"sw":   "southwest",

	"apt":   "unit",
	"ste":   "unit",
	"suite": "unit",
	"unit":  "unit",
	"bldg":  "unit",
	"rm":    "unit",
}

// deaccent strips combining marks so accented and plain spellings compare
// equal ("José" == "Jose").
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize canonicalizes one address line: case-fold, strip diacritics and
// punctuation, expand abbreviations, collapse whitespace. Deterministic;
// returns "" for input with no address content.
func Normalize(line string) string {
	s := strings.ToLower(strings.TrimSpace(line))
	if s == "" {
		return ""
	}

	if folded, _, err := transform.String(deaccent, s); err == nil {
		s = folded
	}

	// "#4" is a unit designator, not punctuation noise.
	s = strings.ReplaceAll(s, "#", " unit ")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	tokens := strings.Fields(b.String())
	for i, tok := range tokens {
		if full, ok := abbreviations[tok]; ok {
			tokens[i] = full
		}
	}

	return strings.Join(tokens, " ")
}

// NormalizeCityStateZip canonicalizes the city/state/zip parts into a single
// comparable line.
func NormalizeCityStateZip(city, state, zip string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{city, state, zip} {
		if n := Normalize(p); n != "" {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, " ")
}
