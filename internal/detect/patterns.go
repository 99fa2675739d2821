package detect

import (
	"context"
	"regexp"
)

// Layer 1: deterministic patterns for structured identifiers. These are
// exact by construction; anything they claim is withheld from the
// statistical layers.
var structuredPatterns = []struct {
	entityType EntityType
	re         *regexp.Regexp
}{
	{TypeRUC, regexp.MustCompile(`\b\d{13}\b`)},
	{TypeCedula, regexp.MustCompile(`\b\d{10}\b`)},
	{TypeEmail, regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)},
	{TypeTelefono, regexp.MustCompile(`\b(?:\+593\s?)?0[2-9][0-9]{6,8}(?:\s?/\s?[0-9]{7,10})?\b`)},
	{TypeDireccion, regexp.MustCompile(`\b[A-Z0-9]+\s+Y\s+[A-Z0-9]+,\s+(?:CASA|EDIFICIO|PISO|DEPARTAMENTO|LOCAL)\s+[A-Z0-9\-]+\b`)},
}

// splitDigits matches two digit runs separated by a single space or
// tab. OCR frequently splits a cedula or RUC this way.
var splitDigits = regexp.MustCompile(`\b(\d{1,12})[ \t](\d{1,12})\b`)

// RejoinSplitDigits merges digit runs broken by a single whitespace
// when the joined length is a plausible identifier (10-13 digits).
// "1724733066 001" becomes "1724733066001". The engine applies this to
// the working text before any detection, so substitution sees the
// joined form.
func RejoinSplitDigits(text string) string {
	return splitDigits.ReplaceAllStringFunc(text, func(match string) string {
		sub := splitDigits.FindStringSubmatch(match)
		joined := sub[1] + sub[2]
		if n := len(joined); n >= 10 && n <= 13 {
			return joined
		}
		return match
	})
}

// patternDetector implements layer 1.
type patternDetector struct{}

// NewPatternDetector returns the deterministic-pattern layer.
func NewPatternDetector() Detector {
	return patternDetector{}
}

func (patternDetector) Name() Layer { return LayerRegex }

func (patternDetector) Detect(_ context.Context, text string, claimed *ClaimedSet) ([]Detection, error) {
	var out []Detection

	for _, p := range structuredPatterns {
		for _, match := range p.re.FindAllString(text, -1) {
			if claimed.Has(p.entityType, match) {
				continue
			}
			if IsException(match) {
				continue
			}
			claimed.Claim(p.entityType, match)
			out = append(out, Detection{
				Type:  p.entityType,
				Value: match,
				Layer: LayerRegex,
			})
		}
	}

	return out, nil
}
