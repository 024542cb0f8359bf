package facematch

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeIdentity turns a label into the identity written to the ledger:
// no diacritics, upper case, single spaces. Dashes and underscores are kept,
// so "jan-novak" and "jan novak" are different identities.
func NormalizeIdentity(label string) string {
	label = RemoveDiacritics(label)
	label = strings.Join(strings.Fields(label), " ")
	return strings.ToUpper(label)
}

// IdentityFromFilename derives an identity from a reference image file name
// ("jan-novak.jpg" -> "JAN-NOVAK").
func IdentityFromFilename(name string) string {
	base := filepath.Base(name)
	return NormalizeIdentity(strings.TrimSuffix(base, filepath.Ext(base)))
}
