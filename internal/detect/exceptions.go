package detect

import "strings"

// Institutional names, place names, and legal boilerplate that must
// never be tokenised even when a detector claims them.
var exceptionValues = map[string]struct{}{
	"ARCOTEL": {}, "CAFI": {}, "CTDG": {}, "CCON": {}, "DEDA": {},
	"CTRP": {}, "CADF": {},
	"QUITO": {}, "GUAYAQUIL": {}, "CUENCA": {}, "AMBATO": {},
	"RIOBAMBA": {}, "LOJA": {}, "MACHALA": {}, "PORTOVIEJO": {},
	"MANTA": {}, "SANTO DOMINGO": {}, "ESMERALDAS": {}, "IBARRA": {},
	"PICHINCHA": {}, "GUAYAS": {}, "AZUAY": {}, "TUNGURAHUA": {},
	"CHIMBORAZO": {}, "MANABÍ": {}, "EL ORO": {}, "IMBABURA": {},
}

// Legal phrases that mark a candidate as institutional text.
var exceptionPhrases = []string{
	"ley orgánica de telecomunicaciones",
	"código orgánico administrativo",
	"registro oficial",
	"agencia de regulación y control",
	"sistema de gestión documental",
}

// Words whose presence anywhere in a candidate marks it institutional.
var institutionalMarkers = []string{
	"ARCOTEL", "Dirección", "Coordinación", "Unidad",
	"Reglamento", "Ley", "Código", "Estatuto",
	"Ministerio", "Secretaría", "Agencia",
}

// IsException reports whether a detected value belongs to the
// institutional-exception set and must be preserved verbatim.
func IsException(value string) bool {
	clean := strings.TrimSpace(value)

	if _, ok := exceptionValues[strings.ToUpper(clean)]; ok {
		return true
	}

	lower := strings.ToLower(clean)
	for _, phrase := range exceptionPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}

	for _, marker := range institutionalMarkers {
		if strings.Contains(clean, marker) {
			return true
		}
	}

	return false
}
