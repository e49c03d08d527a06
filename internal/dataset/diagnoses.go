package dataset

import (
	"context"

	"clinicore/internal/clinical"
)

// DiagnosesFetcher builds the diagnosis frequency dataset. Detail rows are
// one per distinct code, not one per diagnosis.
type DiagnosesFetcher struct {
	diagnoses clinical.DiagnosisReader
}

// NewDiagnosesFetcher creates the diagnoses fetcher.
func NewDiagnosesFetcher(r clinical.DiagnosisReader) *DiagnosesFetcher {
	return &DiagnosesFetcher{diagnoses: r}
}

func (f *DiagnosesFetcher) Category() string { return CategoryDiagnoses }

// Fetch implements Fetcher.
func (f *DiagnosesFetcher) Fetch(ctx context.Context, filters Filters) (*Dataset, error) {
	period := clinical.Period{
		From: parseDate(filters.DateFrom),
		To:   endOfDay(parseDate(filters.DateTo)),
	}

	rows, err := f.diagnoses.ListDiagnoses(ctx, period)
	if err != nil {
		return nil, err
	}

	codes := make([]string, 0, len(rows))
	descriptions := make(map[string]string, len(rows))
	byType := make(map[string]int)
	for _, d := range rows {
		codes = append(codes, d.Code)
		if _, ok := descriptions[d.Code]; !ok {
			descriptions[d.Code] = d.Description
		}
		byType[d.Type]++
	}

	freq := FrequencyTable(codes)
	detail := make([]Row, 0, len(freq))
	for _, e := range freq {
		detail = append(detail, Row{
			"code":        e.Key,
			"description": descriptions[e.Key],
			"frequency":   e.Count,
			"percentage":  e.Percent,
		})
	}

	return &Dataset{
		Category: CategoryDiagnoses,
		Summary: map[string]any{
			"total":          len(rows),
			"distinct_codes": len(freq),
			"top_10":         TopN(freq, 10),
			"by_type":        byType,
		},
		Columns: []Column{
			{Key: "code", Header: "Código"},
			{Key: "description", Header: "Descrição"},
			{Key: "frequency", Header: "Frequência"},
			{Key: "percentage", Header: "Percentual (%)"},
		},
		Detail: detail,
	}, nil
}
