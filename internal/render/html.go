package render

import (
	"bytes"
	"fmt"
	"html/template"

	"clinicore/internal/dataset"
	"clinicore/internal/shared/clock"
)

var htmlPage = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; color: #222; }
h1 { border-bottom: 2px solid #444; padding-bottom: .3rem; }
.generated { color: #666; font-size: .85rem; }
ul.summary li { margin: .2rem 0; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="generated">Gerado em {{.Generated}}</p>
<ul class="summary">
{{- range .Summary}}
<li><strong>{{index . 0}}:</strong> {{index . 1}}</li>
{{- end}}
</ul>
</body>
</html>
`))

// HTMLRenderer produces the minimal markup artifact: title, timestamp and
// the scalar summary entries only. Detail rows are not rendered.
type HTMLRenderer struct {
	clock clock.Clock
}

// NewHTMLRenderer creates the markup renderer.
func NewHTMLRenderer(c clock.Clock) *HTMLRenderer {
	if c == nil {
		c = clock.System()
	}
	return &HTMLRenderer{clock: c}
}

func (r *HTMLRenderer) Format() string { return FormatHTML }

// Render implements Renderer.
func (r *HTMLRenderer) Render(ds *dataset.Dataset, title string, fields []string) (*Artifact, error) {
	data := struct {
		Title     string
		Generated string
		Summary   [][2]string
	}{
		Title:     title,
		Generated: r.clock.Now().Format("02/01/2006 15:04"),
		Summary:   scalarSummary(ds.Summary),
	}

	var buf bytes.Buffer
	if err := htmlPage.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return &Artifact{
		Bytes:       buf.Bytes(),
		ContentType: "text/html; charset=utf-8",
		Extension:   "html",
	}, nil
}

// DefaultRegistry wires every format renderer into a registry.
func DefaultRegistry(c clock.Clock) *Registry {
	r := NewRegistry()
	r.Register(NewPDFRenderer(c))
	r.Register(NewExcelRenderer(c))
	r.Register(NewCSVRenderer())
	r.Register(NewHTMLRenderer(c))
	return r
}
