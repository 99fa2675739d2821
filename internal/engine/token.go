package engine

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/regulens/pseudonymd/internal/detect"
)

// Tokens are <TYPE>_<HEX8>: the entity type keeps extracted documents
// readable downstream, the hex suffix comes from crypto/rand so tokens
// carry no information about the value they replace.

// TokenPattern matches any well-formed token of a known type. Used by
// depseudonymization and by the preview renderer to find tokens in
// text.
var TokenPattern = regexp.MustCompile(
	`\b(?:RUC|CEDULA|EMAIL|TELEFONO|DIRECCION|NOMBRE)_[0-9A-F]{8}\b`)

// MintToken returns a fresh random token for the given entity type.
func MintToken(t detect.EntityType) (string, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("minting token: %w", err)
	}
	return fmt.Sprintf("%s_%02X%02X%02X%02X", t, buf[0], buf[1], buf[2], buf[3]), nil
}

// NewSessionID returns a fresh session identifier. The timestamp makes
// ids sortable in Redis inspection; the uuid fragment makes them
// unguessable enough for key prefixing (sessions are not a security
// boundary, the bearer token is).
func NewSessionID() string {
	return fmt.Sprintf("pseudosession_%s_%s",
		time.Now().Format("20060102_150405"), uuid.NewString()[:8])
}
