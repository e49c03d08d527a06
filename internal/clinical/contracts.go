// Package clinical defines the read contracts the report engine consumes.
// Persistence and querying of the underlying clinical entities live outside
// the engine; the engine only sees flat rows shaped for aggregation.
package clinical

import (
	"context"
	"time"
)

// Consultation statuses as stored by the scheduling system.
const (
	ConsultationScheduled = "agendada"
	ConsultationCompleted = "realizada"
	ConsultationCancelled = "cancelada"
	ConsultationNoShow    = "falta"
)

// ConsultationRow is one consultation joined with its patient and doctor.
type ConsultationRow struct {
	ID                string
	PatientID         string
	PatientName       string
	PatientRecord     string // chart number
	DoctorID          string
	DoctorName        string
	Date              time.Time
	Type              string
	Status            string
	ChiefComplaint    string
	DiagnosisCount    int
	PrescriptionCount int
}

// PatientRow is one patient with consultation usage counters attached.
type PatientRow struct {
	ID                string
	Name              string
	Record            string
	BirthDate         time.Time
	Gender            string
	Phone             string
	City              string
	RegisteredAt      time.Time
	ConsultationCount int
	LastConsultation  *time.Time
}

// DiagnosisRow is one diagnosis joined to its owning consultation.
type DiagnosisRow struct {
	ID             string
	ConsultationID string
	PatientID      string
	PatientName    string
	Code           string // ICD-style code
	Description    string
	Type           string // principal / secundario
	DiagnosedAt    time.Time
}

// PrescriptionRow is one prescription joined to its owning consultation.
type PrescriptionRow struct {
	ID             string
	ConsultationID string
	PatientID      string
	PatientName    string
	Medication     string
	Dosage         string
	Frequency      string
	Duration       string
	Instructions   string
	PrescribedAt   time.Time
}

// Period bounds a query by date. Zero values leave the bound open.
type Period struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	if !p.From.IsZero() && t.Before(p.From) {
		return false
	}
	if !p.To.IsZero() && t.After(p.To) {
		return false
	}
	return true
}

// ConsultationQuery filters consultation listings.
type ConsultationQuery struct {
	Period   Period
	DoctorID string
	Type     string
}

// PatientQuery filters patient listings.
type PatientQuery struct {
	RegisteredFrom time.Time
	RegisteredTo   time.Time
	ActiveOnly     bool // at least one consultation on record
}

// ConsultationReader lists consultations for reporting.
type ConsultationReader interface {
	ListConsultations(ctx context.Context, q ConsultationQuery) ([]ConsultationRow, error)
}

// PatientReader lists patients for reporting.
type PatientReader interface {
	ListPatients(ctx context.Context, q PatientQuery) ([]PatientRow, error)
}

// DiagnosisReader lists diagnoses for reporting.
type DiagnosisReader interface {
	ListDiagnoses(ctx context.Context, p Period) ([]DiagnosisRow, error)
}

// PrescriptionReader lists prescriptions for reporting.
type PrescriptionReader interface {
	ListPrescriptions(ctx context.Context, p Period) ([]PrescriptionRow, error)
}

// RevenueMonth is one month of the financial breakdown.
type RevenueMonth struct {
	Month         string // "2025-01"
	Revenue       float64
	Expenses      float64
	Profit        float64
	Consultations int
}

// RevenueTotals aggregates the whole breakdown.
type RevenueTotals struct {
	Revenue       float64
	Expenses      float64
	Profit        float64
	Consultations int
	AverageTicket float64
}

// FinancialLedger is the external financial-data contract. The engine never
// computes revenue itself; it consumes whatever breakdown the ledger returns.
type FinancialLedger interface {
	MonthlyBreakdown(ctx context.Context, p Period) ([]RevenueMonth, RevenueTotals, error)
}
