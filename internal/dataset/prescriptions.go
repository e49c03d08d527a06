package dataset

import (
	"context"

	"clinicore/internal/clinical"
)

// PrescriptionsFetcher builds the prescription dataset.
type PrescriptionsFetcher struct {
	prescriptions clinical.PrescriptionReader
}

// NewPrescriptionsFetcher creates the prescriptions fetcher.
func NewPrescriptionsFetcher(r clinical.PrescriptionReader) *PrescriptionsFetcher {
	return &PrescriptionsFetcher{prescriptions: r}
}

func (f *PrescriptionsFetcher) Category() string { return CategoryPrescriptions }

// Fetch implements Fetcher.
func (f *PrescriptionsFetcher) Fetch(ctx context.Context, filters Filters) (*Dataset, error) {
	period := clinical.Period{
		From: parseDate(filters.DateFrom),
		To:   endOfDay(parseDate(filters.DateTo)),
	}

	rows, err := f.prescriptions.ListPrescriptions(ctx, period)
	if err != nil {
		return nil, err
	}

	medications := make([]string, 0, len(rows))
	detail := make([]Row, 0, len(rows))
	for _, p := range rows {
		medications = append(medications, p.Medication)
		detail = append(detail, Row{
			"patient":      p.PatientName,
			"medication":   p.Medication,
			"dosage":       p.Dosage,
			"frequency":    p.Frequency,
			"duration":     p.Duration,
			"instructions": p.Instructions,
			"date":         p.PrescribedAt.Format(DateLayout),
		})
	}

	freq := FrequencyTable(medications)

	return &Dataset{
		Category: CategoryPrescriptions,
		Summary: map[string]any{
			"total":                len(rows),
			"distinct_medications": len(freq),
			"top_10":               TopN(freq, 10),
		},
		Columns: []Column{
			{Key: "patient", Header: "Paciente"},
			{Key: "medication", Header: "Medicamento"},
			{Key: "dosage", Header: "Dosagem"},
			{Key: "frequency", Header: "Frequência"},
			{Key: "duration", Header: "Duração"},
			{Key: "instructions", Header: "Instruções"},
			{Key: "date", Header: "Data"},
		},
		Detail: detail,
	}, nil
}
