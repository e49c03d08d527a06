package dataset

import (
	"context"

	"clinicore/internal/clinical"
)

// AppointmentsFetcher builds the consultation activity dataset.
type AppointmentsFetcher struct {
	consultations clinical.ConsultationReader
}

// NewAppointmentsFetcher creates the appointments fetcher.
func NewAppointmentsFetcher(r clinical.ConsultationReader) *AppointmentsFetcher {
	return &AppointmentsFetcher{consultations: r}
}

func (f *AppointmentsFetcher) Category() string { return CategoryAppointments }

// Fetch implements Fetcher.
func (f *AppointmentsFetcher) Fetch(ctx context.Context, filters Filters) (*Dataset, error) {
	q := clinical.ConsultationQuery{
		Period: clinical.Period{
			From: parseDate(filters.DateFrom),
			To:   endOfDay(parseDate(filters.DateTo)),
		},
		DoctorID: filters.DoctorID,
		Type:     filters.ConsultationType,
	}

	rows, err := f.consultations.ListConsultations(ctx, q)
	if err != nil {
		return nil, err
	}

	byType := make(map[string]int)
	byStatus := make(map[string]int)
	detail := make([]Row, 0, len(rows))
	for _, c := range rows {
		byType[c.Type]++
		byStatus[c.Status]++
		detail = append(detail, Row{
			"patient":         c.PatientName,
			"record":          c.PatientRecord,
			"doctor":          c.DoctorName,
			"date":            c.Date.Format(DateLayout),
			"time":            c.Date.Format("15:04"),
			"type":            c.Type,
			"status":          c.Status,
			"chief_complaint": c.ChiefComplaint,
			"diagnoses":       c.DiagnosisCount,
			"prescriptions":   c.PrescriptionCount,
		})
	}

	return &Dataset{
		Category: CategoryAppointments,
		Summary: map[string]any{
			"total":     len(rows),
			"by_type":   byType,
			"by_status": byStatus,
			"period": map[string]any{
				"from": filters.DateFrom,
				"to":   filters.DateTo,
			},
		},
		Columns: []Column{
			{Key: "patient", Header: "Paciente"},
			{Key: "record", Header: "Prontuário"},
			{Key: "doctor", Header: "Médico"},
			{Key: "date", Header: "Data"},
			{Key: "time", Header: "Hora"},
			{Key: "type", Header: "Tipo"},
			{Key: "status", Header: "Status"},
			{Key: "chief_complaint", Header: "Queixa Principal"},
			{Key: "diagnoses", Header: "Diagnósticos"},
			{Key: "prescriptions", Header: "Prescrições"},
		},
		Detail: detail,
	}, nil
}
