package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicore/internal/clinical"
	"clinicore/internal/dataset"
	"clinicore/internal/render"
	"clinicore/internal/report"
	"clinicore/internal/shared/clock"
)

func testService(t *testing.T) *Service {
	t.Helper()
	mem := clinical.SampleData()
	clk := clock.Fixed(time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fetchers := dataset.DefaultRegistry(mem, mem, mem, mem, clinical.SampleLedger(), clk, logger)
	return NewService(fetchers, render.DefaultRegistry(clk), report.NewStaticTemplates(report.SeedTemplates()...), clk, logger)
}

func TestExportDiagnosesCSV(t *testing.T) {
	s := testService(t)

	res, err := s.Export(context.Background(), Request{
		Category: dataset.CategoryDiagnoses,
		Format:   render.FormatCSV,
		Filters:  dataset.Filters{DateFrom: "2026-01-01", DateTo: "2026-06-30"},
	})
	require.NoError(t, err)

	assert.Equal(t, "text/csv; charset=utf-8", res.ContentType)
	assert.Equal(t, "relatorio_de_diagnosticos_20260630_120000.csv", res.Filename)

	records, err := csv.NewReader(bytes.NewReader(res.Data[3:])).ReadAll()
	require.NoError(t, err)
	// Header plus one row per distinct code.
	assert.Len(t, records, 6)
}

func TestExportRevenuePDF(t *testing.T) {
	s := testService(t)

	res, err := s.Export(context.Background(), Request{
		Category: dataset.CategoryRevenue,
		Format:   render.FormatPDF,
		Filters:  dataset.Filters{DateFrom: "2025-01-01", DateTo: "2025-06-30"},
	})
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", res.ContentType)
	assert.True(t, bytes.HasPrefix(res.Data, []byte("%PDF")))
	assert.Contains(t, string(res.Data), "Relat\xf3rio Financeiro")
}

func TestExportWithTemplate(t *testing.T) {
	s := testService(t)

	// The template supplies category, display name and the field selection.
	res, err := s.Export(context.Background(), Request{
		Format:     render.FormatCSV,
		TemplateID: "tpl-revenue-monthly",
		Filters:    dataset.Filters{DateFrom: "2025-01-01", DateTo: "2025-03-31"},
	})
	require.NoError(t, err)

	assert.Equal(t, "relatorio_financeiro_20260630_120000.csv", res.Filename)

	records, err := csv.NewReader(bytes.NewReader(res.Data[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "Mês", records[0][0])
}

func TestExportUnknownTemplate(t *testing.T) {
	s := testService(t)

	_, err := s.Export(context.Background(), Request{
		Format:     render.FormatCSV,
		TemplateID: "tpl-nope",
	})

	var ve *report.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "template_id", ve.Field)
}

func TestExportUnsupportedFormat(t *testing.T) {
	s := testService(t)

	_, err := s.Export(context.Background(), Request{
		Category: dataset.CategoryPatients,
		Format:   "docx",
	})

	var ve *report.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "format", ve.Field)
}

func TestExportInvalidFilters(t *testing.T) {
	s := testService(t)

	_, err := s.Export(context.Background(), Request{
		Category: dataset.CategoryAppointments,
		Format:   render.FormatCSV,
		Filters:  dataset.Filters{DateFrom: "2026-06-01", DateTo: "2026-05-01"},
	})

	var ve *report.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "date_to", ve.Field)
}

func TestExportUnknownCategoryYieldsEmptyArtifact(t *testing.T) {
	s := testService(t)

	res, err := s.Export(context.Background(), Request{
		Category: "imaging",
		Format:   render.FormatHTML,
	})
	require.NoError(t, err)
	assert.Equal(t, "relatorio_20260630_120000.html", res.Filename)
	assert.NotEmpty(t, res.Data)
}
