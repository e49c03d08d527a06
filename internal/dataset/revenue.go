package dataset

import (
	"context"
	"log/slog"

	"clinicore/internal/clinical"
	"clinicore/internal/shared/clock"
)

// RevenueFetcher delegates to the external financial ledger and reshapes its
// monthly breakdown. Whether the ledger is live or illustrative is the
// caller's wiring decision.
type RevenueFetcher struct {
	ledger clinical.FinancialLedger
}

// NewRevenueFetcher creates the revenue fetcher.
func NewRevenueFetcher(l clinical.FinancialLedger) *RevenueFetcher {
	return &RevenueFetcher{ledger: l}
}

func (f *RevenueFetcher) Category() string { return CategoryRevenue }

// Fetch implements Fetcher.
func (f *RevenueFetcher) Fetch(ctx context.Context, filters Filters) (*Dataset, error) {
	period := clinical.Period{
		From: parseDate(filters.DateFrom),
		To:   endOfDay(parseDate(filters.DateTo)),
	}

	months, totals, err := f.ledger.MonthlyBreakdown(ctx, period)
	if err != nil {
		return nil, err
	}

	detail := make([]Row, 0, len(months))
	for _, m := range months {
		detail = append(detail, Row{
			"month":         m.Month,
			"revenue":       m.Revenue,
			"expenses":      m.Expenses,
			"profit":        m.Profit,
			"consultations": m.Consultations,
		})
	}

	return &Dataset{
		Category: CategoryRevenue,
		Summary: map[string]any{
			"revenue":        totals.Revenue,
			"expenses":       totals.Expenses,
			"profit":         totals.Profit,
			"consultations":  totals.Consultations,
			"average_ticket": round2(totals.AverageTicket),
		},
		Columns: []Column{
			{Key: "month", Header: "Mês"},
			{Key: "revenue", Header: "Receita (R$)"},
			{Key: "expenses", Header: "Despesas (R$)"},
			{Key: "profit", Header: "Lucro (R$)"},
			{Key: "consultations", Header: "Consultas"},
		},
		Detail: detail,
	}, nil
}

// DefaultRegistry wires every category fetcher into a registry.
func DefaultRegistry(
	consultations clinical.ConsultationReader,
	patients clinical.PatientReader,
	diagnoses clinical.DiagnosisReader,
	prescriptions clinical.PrescriptionReader,
	ledger clinical.FinancialLedger,
	c clock.Clock,
	logger *slog.Logger,
) *Registry {
	r := NewRegistry(logger)
	r.Register(NewAppointmentsFetcher(consultations))
	r.Register(NewPatientsFetcher(patients, c))
	r.Register(NewDiagnosesFetcher(diagnoses))
	r.Register(NewPrescriptionsFetcher(prescriptions))
	r.Register(NewRevenueFetcher(ledger))
	return r
}
