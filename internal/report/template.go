package report

import (
	"context"
	"errors"
	"sort"
	"sync"

	"clinicore/internal/dataset"
)

// ErrTemplateNotFound is returned by Resolve for an unknown template id.
var ErrTemplateNotFound = errors.New("report template not found")

// Template is read-only metadata suggesting default filters and a field list
// for a category. The engine does not own template authoring.
type Template struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	Category       string          `json:"category"`
	Description    string          `json:"description"`
	Fields         []string        `json:"fields"`
	DefaultFilters dataset.Filters `json:"default_filters"`
	Active         bool            `json:"active"`
	SystemDefined  bool            `json:"system_defined"`
}

// TemplateRegistry resolves template metadata.
type TemplateRegistry interface {
	Resolve(ctx context.Context, id string) (*Template, error)
	ListActive(ctx context.Context) ([]*Template, error)
}

// StaticTemplates is an in-memory TemplateRegistry.
type StaticTemplates struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewStaticTemplates creates a registry holding the given templates.
func NewStaticTemplates(templates ...*Template) *StaticTemplates {
	s := &StaticTemplates{templates: make(map[string]*Template, len(templates))}
	for _, t := range templates {
		s.templates[t.ID] = t
	}
	return s
}

// Resolve implements TemplateRegistry.
func (s *StaticTemplates) Resolve(ctx context.Context, id string) (*Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	cp := *t
	return &cp, nil
}

// ListActive implements TemplateRegistry.
func (s *StaticTemplates) ListActive(ctx context.Context) ([]*Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Template
	for _, t := range s.templates {
		if t.Active {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Add registers a template. Used by seeding and tests.
func (s *StaticTemplates) Add(t *Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.ID] = t
}

// SeedTemplates returns the system-defined template per category.
func SeedTemplates() []*Template {
	return []*Template{
		{
			ID:            "tpl-appointments-monthly",
			Name:          "Consultas do Período",
			Type:          TypeMedical,
			Category:      dataset.CategoryAppointments,
			Description:   "Consultas realizadas no período com diagnósticos e prescrições vinculados.",
			Fields:        []string{"patient", "doctor", "date", "type", "status"},
			Active:        true,
			SystemDefined: true,
		},
		{
			ID:            "tpl-patients-registry",
			Name:          "Cadastro de Pacientes",
			Type:          TypeStatistical,
			Category:      dataset.CategoryPatients,
			Description:   "Pacientes cadastrados com distribuição etária e atividade.",
			Fields:        []string{"name", "record", "age", "gender", "city", "consultations"},
			Active:        true,
			SystemDefined: true,
		},
		{
			ID:            "tpl-diagnoses-frequency",
			Name:          "Frequência de Diagnósticos",
			Type:          TypeMedical,
			Category:      dataset.CategoryDiagnoses,
			Description:   "Diagnósticos por código com frequência e percentual.",
			Fields:        []string{"code", "description", "frequency", "percentage"},
			Active:        true,
			SystemDefined: true,
		},
		{
			ID:            "tpl-prescriptions-period",
			Name:          "Prescrições do Período",
			Type:          TypeMedical,
			Category:      dataset.CategoryPrescriptions,
			Description:   "Prescrições emitidas no período com posologia.",
			Fields:        []string{"patient", "medication", "dosage", "frequency", "date"},
			Active:        true,
			SystemDefined: true,
		},
		{
			ID:            "tpl-revenue-monthly",
			Name:          "Relatório Financeiro",
			Type:          TypeFinancial,
			Category:      dataset.CategoryRevenue,
			Description:   "Receitas, despesas e lucro por mês.",
			Fields:        []string{"month", "revenue", "expenses", "profit", "consultations"},
			Active:        true,
			SystemDefined: true,
		},
	}
}
