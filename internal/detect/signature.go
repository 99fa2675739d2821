package detect

import (
	"context"
	"regexp"
)

// Layer 3: signature-block extraction. Sanction documents end with an
// approval trail ("Elaborado por: Ing. ...") naming the officials who
// drafted, reviewed and approved the document. These names sit outside
// the header and are frequently missed by the statistical layer, so
// they get their own anchored pass over the document tail.

// signatureWindow bounds the scan to the end of the document.
const signatureWindow = 2000

// minSignatureNameLen rejects fragments left when a signature line is
// cut mid-name by the page footer.
const minSignatureNameLen = 5

// signatureName captures a run of capitalized words after a role label
// or professional title. The capture ends at the next title, label, or
// end of line, consumed in the terminator alternation since Go regexp
// has no lookahead; each pattern is searched independently so the
// consumed text is still seen by the others.
const signatureTerminator = `\s*(?:\b(?:Elaborado|Revisado|Aprobado|Ing|Econ|Dr|Dra|Mgs|Ab|Lic)\b|[\n\r]|$)`

var signaturePatterns = []*regexp.Regexp{
	// Role labels: Elaborado por: Ing. ADRIAN SANTOS
	regexp.MustCompile(`(?i)\b(?:Elaborado|Revisado|Aprobado)\s+por\s*:?\s*(?:(?:Ing|Econ|Dr|Dra|Mgs|Ab|Lic)\.?\s+)?([A-ZÁÉÍÓÚÑ][A-Za-zÁÉÍÓÚÜÑáéíóúüñ\. ]+?)` + signatureTerminator),
	// Bare titles: Mgs. VERONICA PILCO
	regexp.MustCompile(`\b(?:Ing|Econ|Dr|Dra|Mgs|Ab|Lic)\.\s+([A-ZÁÉÍÓÚÑ][A-Za-zÁÉÍÓÚÜÑáéíóúüñ\. ]+?)` + signatureTerminator),
}

type signatureDetector struct{}

// NewSignatureDetector returns the signature-block layer.
func NewSignatureDetector() Detector {
	return signatureDetector{}
}

func (signatureDetector) Name() Layer { return LayerSignature }

func (signatureDetector) Detect(_ context.Context, text string, claimed *ClaimedSet) ([]Detection, error) {
	tail := text
	if len(tail) > signatureWindow {
		tail = tail[len(tail)-signatureWindow:]
	}

	var out []Detection

	for _, re := range signaturePatterns {
		for _, match := range re.FindAllStringSubmatch(tail, -1) {
			value := NormalizeSpaces(match[1])
			for len(value) > 0 && (value[len(value)-1] == '.' || value[len(value)-1] == ',') {
				value = NormalizeSpaces(value[:len(value)-1])
			}

			if len([]rune(value)) < minSignatureNameLen {
				continue
			}
			if claimed.Has(TypeNombre, value) || IsException(value) {
				continue
			}

			// Signature names substitute exactly as written; no variant
			// expansion, the same official may also be caught upstream.
			claimed.Claim(TypeNombre, value)
			out = append(out, Detection{
				Type:  TypeNombre,
				Value: value,
				Layer: LayerSignature,
			})
		}
	}

	return out, nil
}
