package detect

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestNormalizeUppercase(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"ADRIAN SANTOS presenta", "Adrian Santos presenta"},
		{"la agencia ARCOTEL resolvió", "la agencia ARCOTEL resolvió"},
		{"RUC 1724733066001", "RUC 1724733066001"},
		{"EL PRESTADOR.", "EL Prestador."},
		// Two-letter uppercase words are left alone
		{"EL Y LA", "EL Y LA"},
	}
	for _, c := range cases {
		if got := NormalizeUppercase(c.in); got != c.want {
			t.Errorf("NormalizeUppercase(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestIsLikelyPersonName(t *testing.T) {
	accept := []string{
		"Adrian Santos",
		"Veronica Pilco Yugcha",
		"Ing. Maria Torres",
		"Juan de la Cruz",
	}
	reject := []string{
		"Dirección Técnica de Control",            // institutional
		"Certifico Que El",                        // verb
		"Ana",                                     // single word, too short
		"Uno Dos Tres Cuatro Cinco Seis",          // too many words
		"Li Po",                                   // under 10 chars
		"Nombreslargos Nombreslargos Nombreslargos Nombreslargos Final", // over 60 chars
		"Adrian → Santos",                         // forbidden rune
		"Adrian X. Santos Jr",                     // short non-whitelisted word
		"Remisión De Actuaciones",                 // institutional
		"Provincia Del Guayas",                    // institutional
	}

	for _, s := range accept {
		if !IsLikelyPersonName(s) {
			t.Errorf("IsLikelyPersonName(%q) = false, want true", s)
		}
	}
	for _, s := range reject {
		if IsLikelyPersonName(s) {
			t.Errorf("IsLikelyPersonName(%q) = true, want false", s)
		}
	}
}

type stubRecognizer struct {
	entities []Entity
	err      error
}

func (s stubRecognizer) Recognize(context.Context, string) ([]Entity, error) {
	return s.entities, s.err
}

func TestNERDetectorFiltersAndExpands(t *testing.T) {
	rec := stubRecognizer{entities: []Entity{
		{Text: "Adrian Santos", Label: "PER"},
		{Text: "Dirección Técnica de Control", Label: "PER"},
		{Text: "Quito", Label: "LOC"},
	}}

	ds := detectWith(t, NewNERDetector(rec), "whatever")

	if len(ds) != 1 {
		t.Fatalf("got %d detections, want 1: %v", len(ds), ds)
	}
	d := ds[0]
	if d.Value != "Adrian Santos" || d.Type != TypeNombre || d.Layer != LayerNER {
		t.Errorf("unexpected detection: %+v", d)
	}
	if len(d.Variants) < 2 {
		t.Errorf("variants not expanded: %v", d.Variants)
	}
}

func TestNERDetectorSkipsClaimed(t *testing.T) {
	rec := stubRecognizer{entities: []Entity{{Text: "Adrian Santos", Label: "PER"}}}
	claimed := NewClaimedSet()
	claimed.Claim(TypeNombre, "ADRIAN SANTOS") // case-folded claim

	ds, err := NewNERDetector(rec).Detect(context.Background(), "x", claimed)
	if err != nil {
		t.Fatal(err)
	}
	if len(ds) != 0 {
		t.Errorf("claimed name re-detected: %v", ds)
	}
}

func TestNERDetectorNilRecognizer(t *testing.T) {
	_, err := NewNERDetector(nil).Detect(context.Background(), "x", NewClaimedSet())
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("err = %v, want ErrModelUnavailable", err)
	}
}

func TestNERDetectorRecognizerError(t *testing.T) {
	rec := stubRecognizer{err: errors.New("boom")}
	_, err := NewNERDetector(rec).Detect(context.Background(), "x", NewClaimedSet())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestRuleRecognizerFindsTitleCaseNames(t *testing.T) {
	entities, err := NewRuleRecognizer().Recognize(context.Background(),
		"Mediante oficio, Adrian Alexander Santos Orellana solicitó la baja.")
	if err != nil {
		t.Fatal(err)
	}

	found := false
	for _, e := range entities {
		if e.Label == LabelPerson && strings.Contains(e.Text, "Santos") {
			found = true
		}
	}
	if !found {
		t.Errorf("person candidate not found: %v", entities)
	}
}

func TestRuleRecognizerStripsTitles(t *testing.T) {
	entities, err := NewRuleRecognizer().Recognize(context.Background(),
		"Atentamente, Ing. Veronica Pilco Yugcha")
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entities {
		if strings.HasPrefix(e.Text, "Ing") {
			t.Errorf("title not stripped: %q", e.Text)
		}
	}
}
