package render

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"clinicore/internal/dataset"
	"clinicore/internal/shared/clock"
)

func fixedClock() clock.Clock {
	return clock.Fixed(time.Date(2026, 7, 1, 14, 30, 0, 0, time.UTC))
}

func sampleDataset() *dataset.Dataset {
	return &dataset.Dataset{
		Category: dataset.CategoryRevenue,
		Summary: map[string]any{
			"revenue":        90550.0,
			"expenses":       55400.0,
			"profit":         35150.0,
			"consultations":  347,
			"average_ticket": 260.95,
		},
		Columns: []dataset.Column{
			{Key: "month", Header: "Mês"},
			{Key: "revenue", Header: "Receita (R$)"},
			{Key: "consultations", Header: "Consultas"},
		},
		Detail: []dataset.Row{
			{"month": "2025-01", "revenue": 45200.0, "consultations": 182},
			{"month": "2025-02", "revenue": 45350.0, "consultations": 165},
		},
	}
}

func emptyDataset() *dataset.Dataset {
	return &dataset.Dataset{
		Category: dataset.CategoryAppointments,
		Summary:  map[string]any{"total": 0},
		Columns:  []dataset.Column{{Key: "patient", Header: "Paciente"}},
		Detail:   []dataset.Row{},
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := DefaultRegistry(fixedClock())

	for _, f := range Formats() {
		assert.True(t, reg.Supported(f), f)
		rd, err := reg.Lookup(f)
		require.NoError(t, err)
		assert.Equal(t, f, rd.Format())
	}

	assert.False(t, reg.Supported("docx"))
	_, err := reg.Lookup("docx")
	assert.Error(t, err)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", formatValue(nil))
	assert.Equal(t, "13.40", formatValue(13.4))
	assert.Equal(t, "abc", formatValue("abc"))
	assert.Equal(t, "7", formatValue(7))
	assert.Equal(t, "sim", formatValue(true))
	assert.Equal(t, "não", formatValue(false))
}

func TestTabulateFieldSelection(t *testing.T) {
	ds := sampleDataset()

	headers, rows := tabulate(ds, []string{"consultations", "month"})
	assert.Equal(t, []string{"Consultas", "Mês"}, headers)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"182", "2025-01"}, rows[0])

	// Unknown fields fall back to the full column set.
	headers, _ = tabulate(ds, []string{"nope"})
	assert.Len(t, headers, 3)
}

func TestCSVRender(t *testing.T) {
	art, err := NewCSVRenderer().Render(sampleDataset(), "Relatório Financeiro", nil)
	require.NoError(t, err)

	assert.Equal(t, "text/csv; charset=utf-8", art.ContentType)
	assert.Equal(t, "csv", art.Extension)
	assert.True(t, bytes.HasPrefix(art.Bytes, []byte{0xEF, 0xBB, 0xBF}), "missing UTF-8 BOM")

	records, err := csv.NewReader(bytes.NewReader(art.Bytes[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Mês", "Receita (R$)", "Consultas"}, records[0])
	assert.Equal(t, []string{"2025-01", "45200.00", "182"}, records[1])
}

func TestPDFRender(t *testing.T) {
	art, err := NewPDFRenderer(fixedClock()).Render(sampleDataset(), "Relatório Financeiro", nil)
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", art.ContentType)
	assert.Equal(t, "pdf", art.Extension)
	assert.True(t, bytes.HasPrefix(art.Bytes, []byte("%PDF")), "missing PDF magic")

	// Uncompressed content streams keep the cp1252-encoded title visible.
	assert.Contains(t, string(art.Bytes), "Relat\xf3rio Financeiro")
	assert.Contains(t, string(art.Bytes), "Gerado em 01/07/2026 14:30")
}

func TestPDFRenderEmptyDatasetShowsPlaceholder(t *testing.T) {
	art, err := NewPDFRenderer(fixedClock()).Render(emptyDataset(), "Relatório de Consultas", nil)
	require.NoError(t, err)

	assert.Contains(t, string(art.Bytes), "Nenhum registro encontrado para este relat\xf3rio.")
}

func TestExcelRenderRoundTrip(t *testing.T) {
	art, err := NewExcelRenderer(fixedClock()).Render(sampleDataset(), "Relatório Financeiro", nil)
	require.NoError(t, err)

	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", art.ContentType)
	assert.Equal(t, "xlsx", art.Extension)

	f, err := excelize.OpenReader(bytes.NewReader(art.Bytes))
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{"Relatório"}, f.GetSheetList())

	title, err := f.GetCellValue("Relatório", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Relatório Financeiro", title)

	header, err := f.GetCellValue("Relatório", "A4")
	require.NoError(t, err)
	assert.Equal(t, "Mês", header)

	month, err := f.GetCellValue("Relatório", "A5")
	require.NoError(t, err)
	assert.Equal(t, "2025-01", month)
}

func TestCSVMatchesSpreadsheetProjection(t *testing.T) {
	ds := sampleDataset()
	fields := []string{"month", "revenue"}

	csvArt, err := NewCSVRenderer().Render(ds, "x", fields)
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(csvArt.Bytes[3:])).ReadAll()
	require.NoError(t, err)

	xlsxArt, err := NewExcelRenderer(fixedClock()).Render(ds, "x", fields)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(xlsxArt.Bytes))
	require.NoError(t, err)
	defer f.Close()

	for ri, record := range records {
		for ci, want := range record {
			cell, err := excelize.CoordinatesToCellName(ci+1, 4+ri)
			require.NoError(t, err)
			got, err := f.GetCellValue("Relatório", cell)
			require.NoError(t, err)
			assert.Equal(t, want, got, "row %d col %d", ri, ci)
		}
	}
}

func TestHTMLRender(t *testing.T) {
	art, err := NewHTMLRenderer(fixedClock()).Render(sampleDataset(), "Relatório Financeiro", nil)
	require.NoError(t, err)

	assert.Equal(t, "text/html; charset=utf-8", art.ContentType)
	assert.Equal(t, "html", art.Extension)

	html := string(art.Bytes)
	assert.Contains(t, html, "<title>Relatório Financeiro</title>")
	assert.Contains(t, html, "Gerado em 01/07/2026 14:30")
	// Scalar summary entries in sorted key order.
	assert.Less(t, strings.Index(html, "average_ticket"), strings.Index(html, "revenue"))
}

func TestHTMLRenderEscapesMarkup(t *testing.T) {
	ds := sampleDataset()
	art, err := NewHTMLRenderer(fixedClock()).Render(ds, `<script>alert(1)</script>`, nil)
	require.NoError(t, err)
	assert.NotContains(t, string(art.Bytes), "<script>alert(1)</script>")
}
