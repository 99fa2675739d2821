package detect

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const sampleDocument = `INFORME DE SUSTANCIACIÓN SGD-2024-0117
PRESTADOR O CONCESIONARIO: TELCONET S.A. RUC: 1791251237001
REPRESENTANTE LEGAL: SANTOS ORELLANA ADRIAN ALEXANDER CÉDULA: 1724733066
DIRECCIÓN: AV. AMAZONAS N26-45 Y SANTA MARÍA TELÉFONO: 022345678
CORREO: legal@telconet.ec

La ARCOTEL, mediante el presente expediente administrativo
sancionador, resuelve imponer al prestador la sanción prevista en la
Ley Orgánica de Telecomunicaciones.

Elaborado por: Ing. VERONICA PILCO YUGCHA
`

func TestPipelineLayerOrdering(t *testing.T) {
	p := NewPipeline(NewRuleRecognizer())
	result, err := p.Detect(context.Background(), sampleDocument)
	if err != nil {
		t.Fatal(err)
	}
	if result.Degraded {
		t.Error("pipeline degraded with a working recognizer")
	}

	// Layer 1 claims the identifiers
	if !findDetection(result.Detections, TypeRUC, "1791251237001") {
		t.Error("RUC missing")
	}
	if !findDetection(result.Detections, TypeCedula, "1724733066") {
		t.Error("cedula missing")
	}
	if !findDetection(result.Detections, TypeEmail, "legal@telconet.ec") {
		t.Error("email missing")
	}

	// Layer 1.5 claims the header names
	if !findDetection(result.Detections, TypeNombre, "SANTOS ORELLANA ADRIAN ALEXANDER") {
		t.Error("representante missing")
	}

	// The statistical layer (title-cased) or the signature layer
	// (verbatim) claims the signing official; either way one binding
	// covers both spellings since names fold case.
	official := false
	for _, d := range result.Detections {
		if d.Type == TypeNombre && strings.EqualFold(d.Value, "VERONICA PILCO YUGCHA") {
			official = true
		}
	}
	if !official {
		t.Error("signing official missing")
	}

	// Institutional text stays out
	for _, d := range result.Detections {
		if d.Value == "ARCOTEL" {
			t.Error("exception value detected")
		}
	}
}

func TestPipelineNoDuplicateClaims(t *testing.T) {
	p := NewPipeline(NewRuleRecognizer())
	result, err := p.Detect(context.Background(), sampleDocument)
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[string]struct{})
	for _, d := range result.Detections {
		key := claimKey(d.Type, d.Value)
		if _, dup := seen[key]; dup {
			t.Errorf("duplicate detection %s %q", d.Type, d.Value)
		}
		seen[key] = struct{}{}
	}
}

func TestPipelinePerLayerCounts(t *testing.T) {
	p := NewPipeline(nil)
	result, err := p.Detect(context.Background(), sampleDocument)
	if err != nil {
		t.Fatal(err)
	}

	total := 0
	for _, n := range result.ByLayer {
		total += n
	}
	if total != len(result.Detections) {
		t.Errorf("layer counts sum to %d, detections are %d", total, len(result.Detections))
	}
	if result.ByLayer[LayerRegex] == 0 {
		t.Error("regex layer reported zero detections")
	}
}

func TestPipelineDegradesWithoutRecognizer(t *testing.T) {
	p := NewPipeline(nil)
	result, err := p.Detect(context.Background(), sampleDocument)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Degraded {
		t.Error("pipeline not marked degraded with nil recognizer")
	}
	// The deterministic layers still run
	if !findDetection(result.Detections, TypeRUC, "1791251237001") {
		t.Error("regex layer did not run in degraded mode")
	}
	if !findDetection(result.Detections, TypeNombre, "SANTOS ORELLANA ADRIAN ALEXANDER") {
		t.Error("header layer did not run in degraded mode")
	}
}

type failingDetector struct{ err error }

func (f failingDetector) Name() Layer { return Layer("failing") }
func (f failingDetector) Detect(context.Context, string, *ClaimedSet) ([]Detection, error) {
	return nil, f.err
}

func TestPipelineAbortsOnHardError(t *testing.T) {
	boom := errors.New("boom")
	p := NewPipelineWithLayers(failingDetector{err: boom})
	_, err := p.Detect(context.Background(), "text")
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
}

func TestPipelineTreatsModelUnavailableAsDegraded(t *testing.T) {
	p := NewPipelineWithLayers(
		NewPatternDetector(),
		failingDetector{err: ErrModelUnavailable},
	)
	result, err := p.Detect(context.Background(), "cédula 1724733066")
	if err != nil {
		t.Fatal(err)
	}
	if !result.Degraded {
		t.Error("ErrModelUnavailable did not degrade the run")
	}
	if len(result.Detections) != 1 {
		t.Errorf("got %d detections, want 1", len(result.Detections))
	}
}
