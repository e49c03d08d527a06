package dataset

// DefaultTitle returns the display title for a category's report.
func DefaultTitle(category string) string {
	switch category {
	case CategoryAppointments:
		return "Relatório de Consultas"
	case CategoryPatients:
		return "Relatório de Pacientes"
	case CategoryDiagnoses:
		return "Relatório de Diagnósticos"
	case CategoryPrescriptions:
		return "Relatório de Prescrições"
	case CategoryRevenue:
		return "Relatório Financeiro"
	default:
		return "Relatório"
	}
}
