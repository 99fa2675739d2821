package detect

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeSpaces collapses every whitespace run (spaces, tabs,
// newlines) into a single space and trims the ends. OCR output splits
// names across line breaks; this is the canonical form bindings are
// keyed on.
func NormalizeSpaces(s string) string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
}

// Fold returns the comparison form of a name-class value: lowercased
// with diacritics stripped. Headers write names in bare uppercase while
// running text carries accents ("ADRIAN" vs "Adrián"), and both must
// resolve to the same binding.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return folded
}

// minVariantLen drops fragments too short to substitute safely: a
// 4-character surname matches too much unrelated text.
const minVariantLen = 5

// NameVariants expands a full name into the word-order and partial
// forms that appear in practice. Ecuadorian administrative documents
// write names surnames-first in headers ("SANTOS ORELLANA ADRIAN
// ALEXANDER") and given-names-first in running text ("Adrián Alexander
// Santos"), so one binding must catch both.
//
// 4+ words: first two are taken as surnames, the rest as given names;
// the given-names-plus-first-surname form is generated too.
// 3 words: both plausible splits (2+1 and 1+2) are generated.
// 2 words: both orderings.
//
// The input is space-normalized first. The result preserves generation
// order, deduplicated, with variants shorter than 5 characters dropped;
// the original full form is always first.
func NameVariants(name string) []string {
	clean := NormalizeSpaces(name)
	variants := []string{clean}

	words := strings.Fields(clean)

	switch {
	case len(words) >= 4:
		surnames := words[:2]
		given := words[2:]

		// Running text usually drops the second surname ("Adrián
		// Alexander Santos"), so that form is a variant of its own.
		variants = append(variants,
			strings.Join(append(append([]string{}, given...), surnames...), " "), // given first
			strings.Join(append(append([]string{}, given...), surnames[0]), " "), // given + first surname
			strings.Join(surnames, " "),
			strings.Join(given, " "),
			surnames[0],
			given[0],
		)

	case len(words) == 3:
		// Two surnames + one given name
		variants = append(variants,
			words[2]+" "+words[0]+" "+words[1],
			words[0]+" "+words[1],
		)
		// One surname + two given names
		variants = append(variants,
			words[1]+" "+words[2]+" "+words[0],
			words[1]+" "+words[2],
		)

	case len(words) == 2:
		variants = append(variants, words[1]+" "+words[0])
	}

	seen := make(map[string]struct{}, len(variants))
	out := make([]string, 0, len(variants))
	for _, v := range variants {
		if len([]rune(v)) < minVariantLen {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
