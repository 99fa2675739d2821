// Package preview renders a pseudonymized document as HTML for the
// operator review that the consent gate requires. Tokens are
// highlighted per entity type so a missed name stands out against the
// surrounding text.
package preview

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/regulens/pseudonymd/internal/engine"
)

// Data feeds the page template.
type Data struct {
	SessionID string
	Body      template.HTML
	Stats     engine.Stats
}

var pageTemplate = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>Vista previa pseudonimizada</title>
<style>
body { font-family: sans-serif; margin: 2rem; max-width: 60rem; }
pre { white-space: pre-wrap; background: #f6f6f6; padding: 1rem; border-radius: 4px; }
.tok { padding: 0 .2em; border-radius: 3px; font-weight: bold; }
.tok-ruc, .tok-cedula { background: #ffe0e0; }
.tok-email, .tok-telefono { background: #e0ecff; }
.tok-direccion { background: #e6ffe0; }
.tok-nombre { background: #fff3c4; }
.meta { color: #555; font-size: .9rem; }
</style>
</head>
<body>
<h1>Vista previa pseudonimizada</h1>
<p class="meta">Sesión: <code>{{.SessionID}}</code> ·
Entidades: {{.Stats.TotalUnique}} ·
Sustituciones: {{.Stats.TotalSubstitutions}}{{if .Stats.Degraded}} ·
<strong>detección degradada: revise con especial cuidado</strong>{{end}}</p>
<p>Verifique que ningún dato personal permanece visible antes de
confirmar la transferencia.</p>
<pre>{{.Body}}</pre>
</body>
</html>
`))

// Render produces the review page for a pseudonymization result.
func Render(res *engine.PseudonymizeResult) (string, error) {
	var page strings.Builder
	err := pageTemplate.Execute(&page, Data{
		SessionID: res.SessionID,
		Body:      highlight(res.Text),
		Stats:     res.Stats,
	})
	if err != nil {
		return "", fmt.Errorf("rendering preview: %w", err)
	}
	return page.String(), nil
}

// highlight escapes the document text and wraps each token in a span
// classed by entity type. Escaping happens before wrapping so document
// content can never inject markup.
func highlight(text string) template.HTML {
	var b strings.Builder
	last := 0

	for _, span := range engine.TokenPattern.FindAllStringIndex(text, -1) {
		b.WriteString(template.HTMLEscapeString(text[last:span[0]]))

		token := text[span[0]:span[1]]
		class := strings.ToLower(token[:strings.IndexByte(token, '_')])
		b.WriteString(`<span class="tok tok-` + class + `">`)
		b.WriteString(template.HTMLEscapeString(token))
		b.WriteString(`</span>`)

		last = span[1]
	}
	b.WriteString(template.HTMLEscapeString(text[last:]))

	return template.HTML(b.String())
}
