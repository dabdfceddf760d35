package detect

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Kočka" -> "Kocka").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeLabel folds a model-supplied subject label into a stable form:
// lowercase ASCII where possible, dashes and underscores as spaces, single
// spaces between words.
func NormalizeLabel(label string) string {
	label = RemoveDiacritics(label)
	label = strings.ToLower(label)
	label = strings.NewReplacer("-", " ", "_", " ").Replace(label)
	return strings.Join(strings.Fields(label), " ")
}
