package clinical

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-memory implementation of every read contract. It backs
// tests and the standalone demo server; a deployment plugs real repositories
// in instead.
type Memory struct {
	mu            sync.RWMutex
	consultations []ConsultationRow
	patients      []PatientRow
	diagnoses     []DiagnosisRow
	prescriptions []PrescriptionRow
}

// NewMemory creates an empty in-memory directory.
func NewMemory() *Memory {
	return &Memory{}
}

// AddConsultations appends consultation rows.
func (m *Memory) AddConsultations(rows ...ConsultationRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consultations = append(m.consultations, rows...)
}

// AddPatients appends patient rows.
func (m *Memory) AddPatients(rows ...PatientRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patients = append(m.patients, rows...)
}

// AddDiagnoses appends diagnosis rows.
func (m *Memory) AddDiagnoses(rows ...DiagnosisRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.diagnoses = append(m.diagnoses, rows...)
}

// AddPrescriptions appends prescription rows.
func (m *Memory) AddPrescriptions(rows ...PrescriptionRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prescriptions = append(m.prescriptions, rows...)
}

// ListConsultations implements ConsultationReader.
func (m *Memory) ListConsultations(ctx context.Context, q ConsultationQuery) ([]ConsultationRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ConsultationRow
	for _, row := range m.consultations {
		if !q.Period.Contains(row.Date) {
			continue
		}
		if q.DoctorID != "" && row.DoctorID != q.DoctorID {
			continue
		}
		if q.Type != "" && row.Type != q.Type {
			continue
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// ListPatients implements PatientReader.
func (m *Memory) ListPatients(ctx context.Context, q PatientQuery) ([]PatientRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []PatientRow
	for _, row := range m.patients {
		if !q.RegisteredFrom.IsZero() && row.RegisteredAt.Before(q.RegisteredFrom) {
			continue
		}
		if !q.RegisteredTo.IsZero() && row.RegisteredAt.After(q.RegisteredTo) {
			continue
		}
		if q.ActiveOnly && row.ConsultationCount == 0 {
			continue
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListDiagnoses implements DiagnosisReader.
func (m *Memory) ListDiagnoses(ctx context.Context, p Period) ([]DiagnosisRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []DiagnosisRow
	for _, row := range m.diagnoses {
		if !p.Contains(row.DiagnosedAt) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// ListPrescriptions implements PrescriptionReader.
func (m *Memory) ListPrescriptions(ctx context.Context, p Period) ([]PrescriptionRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []PrescriptionRow
	for _, row := range m.prescriptions {
		if !p.Contains(row.PrescribedAt) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}
