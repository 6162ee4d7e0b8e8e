package schema

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DistrictID identifies one administrative district across every table.
// Values are always in canonical form; build them with NewDistrictID.
type DistrictID string

// NewDistrictID canonicalizes a raw district name: diacritics are stripped,
// letters are upper-cased and runs of whitespace collapse to a single space.
// "  Breña " and "BRENA" yield the same DistrictID.
func NewDistrictID(raw string) DistrictID {
	// transform.Chain is stateful, so build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	upper := strings.ToUpper(raw)
	stripped, _, err := transform.String(t, upper)
	if err != nil {
		stripped = upper
	}
	return DistrictID(strings.Join(strings.Fields(stripped), " "))
}

// String returns the canonical name.
func (d DistrictID) String() string {
	return string(d)
}
