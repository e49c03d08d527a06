// Package render turns a dataset into a downloadable artifact. One renderer
// per output format, selected from a registry; an unsupported format is a
// request-time rejection, never a silent fallback.
package render

import (
	"fmt"
	"sort"

	"clinicore/internal/dataset"
)

// Output formats. The set is closed.
const (
	FormatPDF   = "pdf"
	FormatExcel = "excel"
	FormatCSV   = "csv"
	FormatHTML  = "html"
)

// Formats lists the supported formats in display order.
func Formats() []string {
	return []string{FormatPDF, FormatExcel, FormatCSV, FormatHTML}
}

// Artifact is a rendered report ready for storage or streaming.
type Artifact struct {
	Bytes       []byte
	ContentType string
	Extension   string
}

// Size returns the artifact byte count.
func (a *Artifact) Size() int64 {
	return int64(len(a.Bytes))
}

// Renderer produces an artifact from a dataset. fields optionally restricts
// and orders the detail columns by key (template field lists); empty means
// every column the fetcher produced.
type Renderer interface {
	Format() string
	Render(ds *dataset.Dataset, title string, fields []string) (*Artifact, error)
}

// Registry dispatches formats to renderers by lookup.
type Registry struct {
	renderers map[string]Renderer
}

// NewRegistry creates an empty renderer registry.
func NewRegistry() *Registry {
	return &Registry{renderers: make(map[string]Renderer)}
}

// Register adds a renderer, replacing any previous one for the format.
func (r *Registry) Register(rd Renderer) {
	r.renderers[rd.Format()] = rd
}

// Supported reports whether the format has a registered renderer.
func (r *Registry) Supported(format string) bool {
	_, ok := r.renderers[format]
	return ok
}

// Lookup returns the renderer for format.
func (r *Registry) Lookup(format string) (Renderer, error) {
	rd, ok := r.renderers[format]
	if !ok {
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
	return rd, nil
}

// columns resolves the effective column set for rendering.
func columns(ds *dataset.Dataset, fields []string) []dataset.Column {
	if len(fields) == 0 {
		return ds.Columns
	}
	byKey := make(map[string]dataset.Column, len(ds.Columns))
	for _, c := range ds.Columns {
		byKey[c.Key] = c
	}
	out := make([]dataset.Column, 0, len(fields))
	for _, f := range fields {
		if c, ok := byKey[f]; ok {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return ds.Columns
	}
	return out
}

// tabulate projects the dataset detail onto (headers, rows) of formatted
// strings. The Excel and CSV renderers both consume this projection, which
// keeps the CSV output a strict serialization variant of the spreadsheet.
func tabulate(ds *dataset.Dataset, fields []string) ([]string, [][]string) {
	cols := columns(ds, fields)
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.Header
	}
	rows := make([][]string, 0, len(ds.Detail))
	for _, row := range ds.Detail {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = formatValue(row[c.Key])
		}
		rows = append(rows, cells)
	}
	return headers, rows
}

// formatValue renders a scalar cell. Floats get exactly 2 decimals so values
// like 13.4 appear as 13.40 across every tabular format.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.2f", t)
	case float32:
		return fmt.Sprintf("%.2f", t)
	case bool:
		if t {
			return "sim"
		}
		return "não"
	default:
		return fmt.Sprintf("%v", t)
	}
}

// scalarSummary extracts the scalar summary entries in sorted key order.
// Nested maps, slices and structs are skipped.
func scalarSummary(summary map[string]any) [][2]string {
	keys := make([]string, 0, len(summary))
	for k, v := range summary {
		if isScalar(v) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]string{k, formatValue(summary[k])})
	}
	return out
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}
