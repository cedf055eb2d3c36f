package catalog

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripAccents removes combining marks so that "Šembije" and "Sembije"
// fold to the same key.
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

// NormalizeName folds a cadastral-municipality name for index lookup:
// uppercase, accents stripped, punctuation dropped, whitespace collapsed.
// The fold is not injective; distinct canonical names may share a key.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	folded, _, err := transform.String(stripAccents, name)
	if err == nil {
		name = folded
	}
	name = strings.ToUpper(name)

	name = strings.NewReplacer(
		",", " ",
		".", " ",
		"-", " ",
		"'", "",
		"\"", "",
	).Replace(name)

	name = multiSpaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// NormalizeCode strips leading zeros from a catalog code. Source files pad
// codes inconsistently ("0964" vs "964").
func NormalizeCode(code string) string {
	code = strings.TrimSpace(code)
	trimmed := strings.TrimLeft(code, "0")
	if trimmed == "" && code != "" {
		return "0"
	}
	return trimmed
}

// significantTokens returns the tokens of a normalized name that are long
// enough to be discriminating. Short tokens ("PRI", "V") match too widely
// to prefilter fuzzy candidates.
func significantTokens(normalized string) []string {
	var out []string
	for _, tok := range strings.Fields(normalized) {
		if len(tok) >= 4 {
			out = append(out, tok)
		}
	}
	return out
}
