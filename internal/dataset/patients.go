package dataset

import (
	"context"
	"time"

	"clinicore/internal/clinical"
	"clinicore/internal/shared/clock"
)

// PatientsFetcher builds the patient demographics dataset.
type PatientsFetcher struct {
	patients clinical.PatientReader
	clock    clock.Clock
}

// NewPatientsFetcher creates the patients fetcher.
func NewPatientsFetcher(r clinical.PatientReader, c clock.Clock) *PatientsFetcher {
	if c == nil {
		c = clock.System()
	}
	return &PatientsFetcher{patients: r, clock: c}
}

func (f *PatientsFetcher) Category() string { return CategoryPatients }

// Fetch implements Fetcher.
func (f *PatientsFetcher) Fetch(ctx context.Context, filters Filters) (*Dataset, error) {
	q := clinical.PatientQuery{
		RegisteredFrom: parseDate(filters.RegistrationFrom),
		RegisteredTo:   endOfDay(parseDate(filters.RegistrationTo)),
		ActiveOnly:     filters.ActiveOnly,
	}

	rows, err := f.patients.ListPatients(ctx, q)
	if err != nil {
		return nil, err
	}

	now := f.clock.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var (
		births       []time.Time
		active       int
		newThisMonth int
		detail       = make([]Row, 0, len(rows))
	)
	for _, p := range rows {
		age := AgeYears(p.BirthDate, now)
		if filters.AgeMin != nil && age < *filters.AgeMin {
			continue
		}
		if filters.AgeMax != nil && age > *filters.AgeMax {
			continue
		}

		births = append(births, p.BirthDate)
		if p.ConsultationCount > 0 {
			active++
		}
		if !p.RegisteredAt.Before(monthStart) {
			newThisMonth++
		}

		last := ""
		if p.LastConsultation != nil {
			last = p.LastConsultation.Format(DateLayout)
		}
		detail = append(detail, Row{
			"name":              p.Name,
			"record":            p.Record,
			"birth_date":        p.BirthDate.Format(DateLayout),
			"age":               age,
			"gender":            p.Gender,
			"phone":             p.Phone,
			"city":              p.City,
			"consultations":     p.ConsultationCount,
			"last_consultation": last,
		})
	}

	return &Dataset{
		Category: CategoryPatients,
		Summary: map[string]any{
			"total":            len(detail),
			"active":           active,
			"new_this_month":   newThisMonth,
			"age_distribution": AgeDistribution(births, now),
		},
		Columns: []Column{
			{Key: "name", Header: "Nome"},
			{Key: "record", Header: "Prontuário"},
			{Key: "birth_date", Header: "Nascimento"},
			{Key: "age", Header: "Idade"},
			{Key: "gender", Header: "Sexo"},
			{Key: "phone", Header: "Telefone"},
			{Key: "city", Header: "Cidade"},
			{Key: "consultations", Header: "Consultas"},
			{Key: "last_consultation", Header: "Última Consulta"},
		},
		Detail: detail,
	}, nil
}
