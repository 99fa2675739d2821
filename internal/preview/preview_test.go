package preview

import (
	"strings"
	"testing"

	"github.com/regulens/pseudonymd/internal/engine"
)

func TestRenderHighlightsTokens(t *testing.T) {
	res := &engine.PseudonymizeResult{
		SessionID: "pseudosession_1_abcd1234",
		Text:      "El prestador NOMBRE_AB12CD34 con RUC_00FF00FF fue notificado.",
		Stats: engine.Stats{
			TotalUnique:        2,
			TotalSubstitutions: 2,
		},
	}

	page, err := Render(res)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		`<span class="tok tok-nombre">NOMBRE_AB12CD34</span>`,
		`<span class="tok tok-ruc">RUC_00FF00FF</span>`,
		"pseudosession_1_abcd1234",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestRenderEscapesDocumentText(t *testing.T) {
	res := &engine.PseudonymizeResult{
		SessionID: "s1",
		Text:      `<script>alert("x")</script> NOMBRE_AB12CD34`,
	}

	page, err := Render(res)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(page, "<script>alert") {
		t.Error("document markup not escaped")
	}
	if !strings.Contains(page, "&lt;script&gt;") {
		t.Error("escaped form missing")
	}
}

func TestRenderDegradedWarning(t *testing.T) {
	res := &engine.PseudonymizeResult{
		SessionID: "s1",
		Text:      "texto",
		Stats:     engine.Stats{Degraded: true},
	}

	page, err := Render(res)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(page, "degradada") {
		t.Error("degraded warning missing")
	}
}
