package clinical

import "context"

// StaticLedger is a FinancialLedger over a fixed breakdown. The production
// ledger integration is still pending, so deployments currently feed this
// with illustrative figures; reports only depend on the breakdown's shape.
type StaticLedger struct {
	Months []RevenueMonth
}

// SampleLedger returns a ledger with a six-month illustrative breakdown.
func SampleLedger() *StaticLedger {
	return &StaticLedger{
		Months: []RevenueMonth{
			{Month: "2025-01", Revenue: 45200.00, Expenses: 28300.00, Profit: 16900.00, Consultations: 182},
			{Month: "2025-02", Revenue: 41850.00, Expenses: 27100.00, Profit: 14750.00, Consultations: 165},
			{Month: "2025-03", Revenue: 48700.00, Expenses: 29650.00, Profit: 19050.00, Consultations: 201},
			{Month: "2025-04", Revenue: 46300.00, Expenses: 28900.00, Profit: 17400.00, Consultations: 188},
			{Month: "2025-05", Revenue: 50120.00, Expenses: 30200.00, Profit: 19920.00, Consultations: 210},
			{Month: "2025-06", Revenue: 47450.00, Expenses: 29400.00, Profit: 18050.00, Consultations: 195},
		},
	}
}

// MonthlyBreakdown implements FinancialLedger. Months outside the period are
// filtered by their "YYYY-MM" label; an open period returns everything.
func (l *StaticLedger) MonthlyBreakdown(ctx context.Context, p Period) ([]RevenueMonth, RevenueTotals, error) {
	var (
		months []RevenueMonth
		totals RevenueTotals
	)
	for _, m := range l.Months {
		if !p.From.IsZero() && m.Month < p.From.Format("2006-01") {
			continue
		}
		if !p.To.IsZero() && m.Month > p.To.Format("2006-01") {
			continue
		}
		months = append(months, m)
		totals.Revenue += m.Revenue
		totals.Expenses += m.Expenses
		totals.Profit += m.Profit
		totals.Consultations += m.Consultations
	}
	if totals.Consultations > 0 {
		totals.AverageTicket = totals.Revenue / float64(totals.Consultations)
	}
	return months, totals, nil
}
