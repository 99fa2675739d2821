// Package detect implements the layered detection pipeline that finds
// personal data in administrative-sanction documents.
//
// Four detectors run in a fixed order over the same text:
//
//	layer 1   deterministic patterns (ids, emails, phones, addresses)
//	layer 1.5 header-context extraction (labelled fields)
//	layer 2   statistical person recognition
//	layer 3   signature-block extraction
//
// Later layers skip values already claimed by earlier ones. Detectors
// share one input/output contract; there is no detector hierarchy.
package detect

import (
	"context"
)

// EntityType classifies a detected value. The set is closed and part of
// the external contract: tokens are minted as <TYPE>_<HEX8>.
type EntityType string

const (
	TypeRUC       EntityType = "RUC"       // 13-digit tax id
	TypeCedula    EntityType = "CEDULA"    // 10-digit national id
	TypeEmail     EntityType = "EMAIL"     //
	TypeTelefono  EntityType = "TELEFONO"  // phone number
	TypeDireccion EntityType = "DIRECCION" // postal address
	TypeNombre    EntityType = "NOMBRE"    // person or legal-entity name
)

// CaseInsensitive reports whether dedup and substitution for this type
// fold case. Identifiers match exactly; names and addresses do not.
func (t EntityType) CaseInsensitive() bool {
	switch t {
	case TypeNombre, TypeDireccion:
		return true
	default:
		return false
	}
}

// Layer identifies which pipeline stage produced a detection.
type Layer string

const (
	LayerRegex     Layer = "regex"
	LayerHeader    Layer = "header"
	LayerNER       Layer = "ner"
	LayerSignature Layer = "signature"
)

// Detection is a candidate span produced by a detector.
type Detection struct {
	// Type from the closed entity-type set
	Type EntityType

	// Value is the canonical detected text (space-normalized for
	// name-class types)
	Value string

	// Layer that produced the detection
	Layer Layer

	// Variants are the substitution forms for name-class values,
	// including Value itself. Empty means substitute Value only.
	Variants []string
}

// Detector is the common contract of all pipeline stages.
type Detector interface {
	// Name identifies the layer for stats and logging.
	Name() Layer

	// Detect scans text and returns candidate detections, skipping
	// values already present in claimed.
	Detect(ctx context.Context, text string, claimed *ClaimedSet) ([]Detection, error)
}

// ClaimedSet tracks values already claimed within one pipeline run (or
// already bound in the session). Lookups fold case and diacritics for
// name-class types, so "Adrián" cannot be claimed separately from
// "ADRIAN".
type ClaimedSet struct {
	values map[string]struct{}
}

// NewClaimedSet returns an empty claimed set.
func NewClaimedSet() *ClaimedSet {
	return &ClaimedSet{values: make(map[string]struct{})}
}

func claimKey(t EntityType, value string) string {
	if t.CaseInsensitive() {
		value = Fold(value)
	}
	return string(t) + "\x00" + value
}

// Claim records a value as taken.
func (s *ClaimedSet) Claim(t EntityType, value string) {
	s.values[claimKey(t, value)] = struct{}{}
}

// Has reports whether a value is already claimed for its type.
func (s *ClaimedSet) Has(t EntityType, value string) bool {
	_, ok := s.values[claimKey(t, value)]
	return ok
}

// Len returns the number of claimed values.
func (s *ClaimedSet) Len() int {
	return len(s.values)
}
