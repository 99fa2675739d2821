package detect

import (
	"context"
	"strings"
	"testing"
)

const sampleSignatureBlock = `
Particular que comunico para los fines pertinentes.

Elaborado por: Ing. ADRIAN SANTOS ORELLANA
Revisado por: Econ. VERONICA PILCO
Aprobado por: Mgs. CARLOS JIMENEZ TORRES
`

func TestSignatureDetectorRoleLabels(t *testing.T) {
	ds := detectWith(t, NewSignatureDetector(), sampleSignatureBlock)

	for _, want := range []string{
		"ADRIAN SANTOS ORELLANA",
		"VERONICA PILCO",
		"CARLOS JIMENEZ TORRES",
	} {
		if !findDetection(ds, TypeNombre, want) {
			t.Errorf("signature name %q not detected: %v", want, ds)
		}
	}
}

func TestSignatureDetectorBareTitle(t *testing.T) {
	ds := detectWith(t, NewSignatureDetector(), "Atentamente,\nDra. MARIA FERNANDA LOPEZ\nDirectora")
	if !findDetection(ds, TypeNombre, "MARIA FERNANDA LOPEZ") {
		t.Errorf("title-anchored name not detected: %v", ds)
	}
}

func TestSignatureDetectorNoVariants(t *testing.T) {
	ds := detectWith(t, NewSignatureDetector(), sampleSignatureBlock)
	for _, d := range ds {
		if len(d.Variants) != 0 {
			t.Errorf("signature detection %q carries variants: %v", d.Value, d.Variants)
		}
	}
}

func TestSignatureDetectorWindowLimit(t *testing.T) {
	head := "Elaborado por: Ing. ADRIAN SANTOS ORELLANA\n"
	padding := strings.Repeat("texto del expediente administrativo sin firmas. ", 50)
	if len(padding) < signatureWindow {
		t.Fatalf("padding too short for the test: %d", len(padding))
	}

	ds := detectWith(t, NewSignatureDetector(), head+padding)
	if findDetection(ds, TypeNombre, "ADRIAN SANTOS ORELLANA") {
		t.Error("signature outside the tail window was matched")
	}
}

func TestSignatureDetectorRejectsShortFragments(t *testing.T) {
	ds := detectWith(t, NewSignatureDetector(), "Elaborado por: Ing. AB\n")
	if len(ds) != 0 {
		t.Errorf("short fragment accepted: %v", ds)
	}
}

func TestSignatureDetectorSkipsClaimed(t *testing.T) {
	claimed := NewClaimedSet()
	claimed.Claim(TypeNombre, "ADRIAN SANTOS ORELLANA")

	ds, err := NewSignatureDetector().Detect(context.Background(), sampleSignatureBlock, claimed)
	if err != nil {
		t.Fatal(err)
	}
	if findDetection(ds, TypeNombre, "ADRIAN SANTOS ORELLANA") {
		t.Error("claimed signature name re-detected")
	}
}
