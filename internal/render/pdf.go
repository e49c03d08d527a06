package render

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"clinicore/internal/dataset"
	"clinicore/internal/shared/clock"
)

// noDataPlaceholder is printed instead of an empty table.
const noDataPlaceholder = "Nenhum registro encontrado para este relatório."

// summaryLabels maps summary keys to display labels for the categories with
// a curated layout. Everything else falls back to a raw key/value listing.
var summaryLabels = map[string][][2]string{
	dataset.CategoryAppointments: {
		{"total", "Total de Consultas"},
	},
	dataset.CategoryPatients: {
		{"total", "Total de Pacientes"},
		{"active", "Pacientes Ativos"},
		{"new_this_month", "Novos no Mês"},
	},
	dataset.CategoryDiagnoses: {
		{"total", "Total de Diagnósticos"},
		{"distinct_codes", "Códigos Distintos"},
	},
	dataset.CategoryRevenue: {
		{"revenue", "Receita Total (R$)"},
		{"expenses", "Despesas Totais (R$)"},
		{"profit", "Lucro (R$)"},
		{"consultations", "Consultas"},
		{"average_ticket", "Ticket Médio (R$)"},
	},
}

// PDFRenderer produces the paginated document artifact.
type PDFRenderer struct {
	clock clock.Clock
}

// NewPDFRenderer creates the document renderer.
func NewPDFRenderer(c clock.Clock) *PDFRenderer {
	if c == nil {
		c = clock.System()
	}
	return &PDFRenderer{clock: c}
}

func (r *PDFRenderer) Format() string { return FormatPDF }

// Render implements Renderer.
func (r *PDFRenderer) Render(ds *dataset.Dataset, title string, fields []string) (*Artifact, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	// Content streams stay uncompressed; artifacts remain text-searchable.
	pdf.SetCompression(false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("Página %d/{nb}", pdf.PageNo())), "", 0, "C", false, 0, "")
	})
	pdf.AliasNbPages("")
	pdf.AddPage()

	// Title block with generation timestamp.
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(title), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	generated := r.clock.Now().Format("02/01/2006 15:04")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Gerado em %s", generated)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	r.writeSummary(pdf, tr, ds)
	r.writeTable(pdf, tr, ds, fields)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf output: %w", err)
	}
	return &Artifact{
		Bytes:       buf.Bytes(),
		ContentType: "application/pdf",
		Extension:   "pdf",
	}, nil
}

func (r *PDFRenderer) writeSummary(pdf *fpdf.Fpdf, tr func(string) string, ds *dataset.Dataset) {
	lines := curatedSummary(ds)
	if len(lines) == 0 {
		return
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, tr("Resumo"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, kv := range lines {
		pdf.CellFormat(60, 6, tr(kv[0]), "1", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(kv[1]), "1", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

// curatedSummary returns labelled summary lines for the curated categories
// and the generic scalar listing otherwise.
func curatedSummary(ds *dataset.Dataset) [][2]string {
	labels, curated := summaryLabels[ds.Category]
	if !curated {
		return scalarSummary(ds.Summary)
	}
	out := make([][2]string, 0, len(labels))
	for _, l := range labels {
		if v, ok := ds.Summary[l[0]]; ok {
			out = append(out, [2]string{l[1], formatValue(v)})
		}
	}
	return out
}

func (r *PDFRenderer) writeTable(pdf *fpdf.Fpdf, tr func(string) string, ds *dataset.Dataset, fields []string) {
	headers, rows := tabulate(ds, fields)
	if len(rows) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, 8, tr(noDataPlaceholder), "", 1, "L", false, 0, "")
		return
	}

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageWidth - left - right
	colWidth := usable / float64(len(headers))

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	for _, h := range headers {
		pdf.CellFormat(colWidth, 7, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, row := range rows {
		for _, cell := range row {
			pdf.CellFormat(colWidth, 6, tr(truncate(cell, 40)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
