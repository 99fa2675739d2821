// Package consent enforces the operator confirmation required before
// any text leaves for the external extraction service. Ecuador's data
// protection law (LOPDP) puts the burden on the controller: the
// operator must confirm that a pseudonymized preview was reviewed
// before the transfer happens.
package consent

import "fmt"

// RequiredSteps is the checklist returned to a caller that has not
// confirmed. Order matters; it is rendered as-is in clients.
var RequiredSteps = []string{
	"Genere la vista previa pseudonimizada del documento (POST /api/v1/preview).",
	"Verifique que ningún dato personal permanece visible en la vista previa.",
	"Reenvíe la solicitud con confirmed=true y el session_id de la vista previa.",
}

// LegalBasis cites the LOPDP articles that ground the confirmation
// requirement.
var LegalBasis = []string{
	"LOPDP Art. 8: consentimiento como base de legitimación del tratamiento",
	"LOPDP Art. 10 lit. e: tratamiento legítimo bajo responsabilidad proactiva",
	"LOPDP Art. 33: obligación de seudonimización como medida de seguridad",
	"LOPDP Art. 37: evaluación de impacto previa a transferencias de riesgo",
	"LOPDP Art. 68: responsabilidad del encargado frente a terceros receptores",
}

// Error is returned when the gate blocks a transfer. It carries the
// remediation steps and legal grounding for the 403 body.
type Error struct {
	Reason     string   `json:"reason"`
	Steps      []string `json:"required_steps"`
	LegalBasis []string `json:"legal_basis"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("consent gate: %s", e.Reason)
}

// Gate validates transfer preconditions. Zero value is ready to use.
type Gate struct{}

// Check admits a transfer only when the operator confirmed the preview
// for an existing session. It never inspects the text itself; by the
// time Check runs the text must already be pseudonymized.
func (Gate) Check(sessionID string, confirmed bool) error {
	switch {
	case !confirmed:
		return &Error{
			Reason:     "la transferencia requiere confirmación explícita del operador",
			Steps:      RequiredSteps,
			LegalBasis: LegalBasis,
		}
	case sessionID == "":
		return &Error{
			Reason:     "confirmed=true sin session_id: la confirmación debe referirse a una vista previa existente",
			Steps:      RequiredSteps,
			LegalBasis: LegalBasis,
		}
	default:
		return nil
	}
}
