package render

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"clinicore/internal/dataset"
)

// CSVRenderer produces the delimited-text artifact. It serializes exactly
// the (headers, rows) projection the spreadsheet renderer consumes.
type CSVRenderer struct{}

// NewCSVRenderer creates the delimited-text renderer.
func NewCSVRenderer() *CSVRenderer {
	return &CSVRenderer{}
}

func (r *CSVRenderer) Format() string { return FormatCSV }

// Render implements Renderer.
func (r *CSVRenderer) Render(ds *dataset.Dataset, title string, fields []string) (*Artifact, error) {
	headers, rows := tabulate(ds, fields)

	var buf bytes.Buffer
	// UTF-8 BOM so Excel opens accented headers correctly.
	buf.Write([]byte{0xEF, 0xBB, 0xBF})

	w := csv.NewWriter(&buf)
	if err := w.Write(headers); err != nil {
		return nil, fmt.Errorf("write headers: %w", err)
	}
	for i, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write record %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return &Artifact{
		Bytes:       buf.Bytes(),
		ContentType: "text/csv; charset=utf-8",
		Extension:   "csv",
	}, nil
}
