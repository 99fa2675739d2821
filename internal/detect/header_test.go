package detect

import (
	"context"
	"strings"
	"testing"
)

const sampleHeader = `INFORME DE SUSTANCIACIÓN SGD-2024-0117
PRESTADOR O CONCESIONARIO: TELCONET S.A. RUC: 1791251237001
REPRESENTANTE LEGAL: SANTOS ORELLANA ADRIAN ALEXANDER CÉDULA: 1724733066
DIRECCIÓN: AV. AMAZONAS N26-45 Y SANTA MARÍA TELÉFONO: 022345678
CORREO: legal@telconet.ec
`

func TestHeaderDetectorFields(t *testing.T) {
	ds := detectWith(t, NewHeaderDetector(), sampleHeader)

	if !findDetection(ds, TypeNombre, "TELCONET S.A") {
		t.Errorf("prestador not detected: %v", ds)
	}
	if !findDetection(ds, TypeNombre, "SANTOS ORELLANA ADRIAN ALEXANDER") {
		t.Errorf("representante not detected: %v", ds)
	}
	if !findDetection(ds, TypeDireccion, "AV. AMAZONAS N26-45 Y SANTA MARÍA") {
		t.Errorf("dirección not detected: %v", ds)
	}
}

func TestHeaderDetectorNameVariants(t *testing.T) {
	ds := detectWith(t, NewHeaderDetector(), sampleHeader)
	for _, d := range ds {
		if d.Value != "SANTOS ORELLANA ADRIAN ALEXANDER" {
			continue
		}
		found := false
		for _, v := range d.Variants {
			if v == "ADRIAN ALEXANDER SANTOS ORELLANA" {
				found = true
			}
		}
		if !found {
			t.Errorf("given-first variant missing: %v", d.Variants)
		}
		return
	}
	t.Fatal("representante detection not found")
}

func TestHeaderDetectorPoseedorLabel(t *testing.T) {
	text := "Poseedor o no de Título Habilitante: RADIO CENTRO FM S.A. RUC: 0991234567001"
	ds := detectWith(t, NewHeaderDetector(), text)
	if !findDetection(ds, TypeNombre, "RADIO CENTRO FM S.A") {
		t.Errorf("poseedor field not detected: %v", ds)
	}
}

func TestHeaderDetectorWindowLimit(t *testing.T) {
	padding := strings.Repeat("relato del expediente administrativo. ", 50)
	text := padding + "REPRESENTANTE LEGAL: SANTOS ORELLANA ADRIAN ALEXANDER"
	if len(padding) < headerWindow {
		t.Fatalf("padding too short for the test: %d", len(padding))
	}

	ds := detectWith(t, NewHeaderDetector(), text)
	if findDetection(ds, TypeNombre, "SANTOS ORELLANA ADRIAN ALEXANDER") {
		t.Error("label outside the header window was matched")
	}
}

func TestHeaderDetectorRejectsShortNames(t *testing.T) {
	ds := detectWith(t, NewHeaderDetector(), "PRESTADOR O CONCESIONARIO: S.A. RUC: 123")
	for _, d := range ds {
		if d.Type == TypeNombre {
			t.Errorf("truncated name accepted: %q", d.Value)
		}
	}
}

func TestHeaderDetectorTrimsTrailingPunctuation(t *testing.T) {
	text := "DIRECCIÓN: AV. AMAZONAS Y COLON, TELÉFONO: 2234567"
	ds := detectWith(t, NewHeaderDetector(), text)
	if !findDetection(ds, TypeDireccion, "AV. AMAZONAS Y COLON") {
		t.Errorf("address captured with trailing punctuation: %v", ds)
	}
}

func TestHeaderDetectorClaimsVariants(t *testing.T) {
	claimed := NewClaimedSet()
	_, err := NewHeaderDetector().Detect(context.Background(), sampleHeader, claimed)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !claimed.Has(TypeNombre, "ADRIAN ALEXANDER SANTOS") {
		t.Error("given-names-first partial form not claimed")
	}
	if !claimed.Has(TypeNombre, "Adrián Alexander Santos") {
		t.Error("accented running-text form not claimed")
	}
}

func TestHeaderDetectorMultilineValue(t *testing.T) {
	text := "REPRESENTANTE LEGAL: SANTOS ORELLANA\nADRIAN ALEXANDER\nCÉDULA: 1724733066"
	ds := detectWith(t, NewHeaderDetector(), text)
	if !findDetection(ds, TypeNombre, "SANTOS ORELLANA ADRIAN ALEXANDER") {
		t.Errorf("line-broken name not normalized: %v", ds)
	}
}
