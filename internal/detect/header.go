package detect

import (
	"context"
	"regexp"
	"strings"
)

// Layer 1.5: header-context extraction. The first part of every
// sanction document is a labelled block naming the provider, its legal
// representative, address, and phone. Labels are reliable anchors, so
// this layer catches exactly the names the statistical layer is most
// likely to mangle (all-uppercase corporate names).

// headerWindow bounds the scan to the document header.
const headerWindow = 1500

// minHeaderNameLen rejects truncated captures ("S.A.") that would
// over-substitute.
const minHeaderNameLen = 10

// stopTokens terminates a capture at the next known label. Tokens are
// word-bounded so a label prefix inside address text ("CIUDADELA",
// "PROVINCIA DEL GUAYAS") does not end the capture early.
const stopTokens = `\s*(?:\b(?:PRESTADOR|POSEEDOR|REPRESENTANTE|RUC|C[EÉ]DULA|DIRECCI[OÓ]N|TEL[EÉ]FONO|CORREO|EMAIL)\b|$)`

// nameClass admits real corporate names: letters including accents and
// enye, digits, hyphen, dot, ampersand, comma, slash.
const nameClass = `[0-9A-ZÁÉÍÓÚÜÑ\-\.&,/ ]`

var headerFields = []struct {
	entityType EntityType
	re         *regexp.Regexp
	expand     bool // apply name-variant expansion
}{
	{
		TypeNombre,
		regexp.MustCompile(`(?i)\b(?:PRESTADOR\s+O\s+CONCESIONARIO|POSEEDOR\s+O\s+NO\s+DE\s+T[IÍ]TULO\s+HABILITANTE)\b\s*:?\s*(` + nameClass + `+?)` + stopTokens),
		true,
	},
	{
		TypeNombre,
		regexp.MustCompile(`(?i)\bREPRESENTANTE\s+LEGAL\b\s*:?\s*(` + nameClass + `+?)` + stopTokens),
		true,
	},
	{
		TypeDireccion,
		regexp.MustCompile(`(?i)\bDIRECCI[OÓ]N\b\s*:?\s*(` + nameClass + `+?)` + stopTokens),
		false,
	},
	{
		// Header phones are written without the leading 0
		TypeTelefono,
		regexp.MustCompile(`(?i)\bTEL[EÉ]FONO[S]?\b\s*:?\s*([0-9][0-9 /\-]{5,14})`),
		false,
	},
}

type headerDetector struct{}

// NewHeaderDetector returns the header-context layer.
func NewHeaderDetector() Detector {
	return headerDetector{}
}

func (headerDetector) Name() Layer { return LayerHeader }

func (headerDetector) Detect(_ context.Context, text string, claimed *ClaimedSet) ([]Detection, error) {
	header := text
	if len(header) > headerWindow {
		header = header[:headerWindow]
	}
	// Collapse newlines so a label and its value always sit on one line
	header = NormalizeSpaces(header)

	var out []Detection

	for _, field := range headerFields {
		match := field.re.FindStringSubmatch(header)
		if match == nil {
			continue
		}

		value := NormalizeSpaces(match[1])
		// The capture consumes the separator before the next label, so
		// trailing punctuation is never part of the value; inner dots
		// ("S.A.") and inner punctuation stay.
		value = strings.TrimRight(value, " .,;:&/-")
		if value == "" {
			continue
		}
		if field.expand && len([]rune(value)) < minHeaderNameLen {
			continue
		}
		if claimed.Has(field.entityType, value) || IsException(value) {
			continue
		}

		d := Detection{
			Type:  field.entityType,
			Value: value,
			Layer: LayerHeader,
		}
		claimed.Claim(field.entityType, value)
		if field.expand {
			d.Variants = NameVariants(value)
			// Claim the variants too: a later layer seeing the
			// given-names-first form must not mint a second binding
			for _, v := range d.Variants {
				claimed.Claim(field.entityType, v)
			}
		}

		out = append(out, d)
	}

	return out, nil
}
