package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestArtifactPath(t *testing.T) {
	createdAt := time.Date(2026, 7, 1, 14, 30, 5, 0, time.UTC)

	got := ArtifactPath("rep-123", createdAt, "pdf")
	assert.Equal(t, "reports/2026/07/rep-123_20260701T143005Z.pdf", got)
}

func TestArtifactPathNormalizesToUTC(t *testing.T) {
	saoPaulo := time.FixedZone("America/Sao_Paulo", -3*3600)
	createdAt := time.Date(2026, 1, 31, 22, 0, 0, 0, saoPaulo)

	// 22:00 -03:00 is already February in UTC; the path must agree.
	got := ArtifactPath("rep-456", createdAt, "csv")
	assert.Equal(t, "reports/2026/02/rep-456_20260201T010000Z.csv", got)
}

func TestArtifactPathIsDeterministic(t *testing.T) {
	createdAt := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

	first := ArtifactPath("rep-789", createdAt, "xlsx")
	second := ArtifactPath("rep-789", createdAt, "xlsx")
	assert.Equal(t, first, second)
}

func TestDownloadFilename(t *testing.T) {
	at := time.Date(2026, 7, 1, 14, 30, 5, 0, time.UTC)

	tests := []struct {
		name string
		want string
	}{
		{"Relatório Financeiro", "relatorio_financeiro_20260701_143005.pdf"},
		{"Consultas do Período", "consultas_do_periodo_20260701_143005.pdf"},
		{"Frequência de Diagnósticos", "frequencia_de_diagnosticos_20260701_143005.pdf"},
		{"  weird / name? ", "weird_name_20260701_143005.pdf"},
		{"", "relatorio_20260701_143005.pdf"},
		{"!!!", "relatorio_20260701_143005.pdf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DownloadFilename(tt.name, at, "pdf"), tt.name)
	}
}

func TestStripAccents(t *testing.T) {
	assert.Equal(t, "Relatorio de Prescricoes", stripAccents("Relatório de Prescrições"))
	assert.Equal(t, "CONSULTAS MEDICAS", stripAccents("CONSULTAS MÉDICAS"))
	assert.Equal(t, "plain ascii", stripAccents("plain ascii"))
}
