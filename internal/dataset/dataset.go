// Package dataset turns clinical rows into the transient summary/detail
// structure the renderers consume. One fetcher per report category; fetchers
// are pure functions of their filters and are shared by the durable report
// path and the synchronous export path.
package dataset

import (
	"context"
	"log/slog"
	"time"
)

// Report categories. The set is closed; anything else yields an empty
// dataset rather than an error (documented boundary behavior).
const (
	CategoryAppointments  = "appointments"
	CategoryPatients      = "patients"
	CategoryDiagnoses     = "diagnoses"
	CategoryPrescriptions = "prescriptions"
	CategoryRevenue       = "revenue"
)

// Categories lists the supported categories in display order.
func Categories() []string {
	return []string{
		CategoryAppointments,
		CategoryPatients,
		CategoryDiagnoses,
		CategoryPrescriptions,
		CategoryRevenue,
	}
}

// DateLayout is the wire format for filter dates.
const DateLayout = "2006-01-02"

// Filters are the named scalar parameters a report accepts. Cross-field
// rules (date_to >= date_from, age_max >= age_min) are enforced by the
// report validator before a fetcher ever sees them.
type Filters struct {
	DateFrom         string `json:"date_from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DateTo           string `json:"date_to,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DoctorID         string `json:"doctor_id,omitempty"`
	ConsultationType string `json:"consultation_type,omitempty"`
	RegistrationFrom string `json:"registration_from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	RegistrationTo   string `json:"registration_to,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ActiveOnly       bool   `json:"active_only,omitempty"`
	AgeMin           *int   `json:"age_min,omitempty" validate:"omitempty,gte=0,lte=150"`
	AgeMax           *int   `json:"age_max,omitempty" validate:"omitempty,gte=0,lte=150"`
}

// Merge overlays non-zero values of other onto a copy of f. Used to apply
// template default filters underneath request filters.
func (f Filters) Merge(defaults Filters) Filters {
	out := f
	if out.DateFrom == "" {
		out.DateFrom = defaults.DateFrom
	}
	if out.DateTo == "" {
		out.DateTo = defaults.DateTo
	}
	if out.DoctorID == "" {
		out.DoctorID = defaults.DoctorID
	}
	if out.ConsultationType == "" {
		out.ConsultationType = defaults.ConsultationType
	}
	if out.RegistrationFrom == "" {
		out.RegistrationFrom = defaults.RegistrationFrom
	}
	if out.RegistrationTo == "" {
		out.RegistrationTo = defaults.RegistrationTo
	}
	if !out.ActiveOnly {
		out.ActiveOnly = defaults.ActiveOnly
	}
	if out.AgeMin == nil {
		out.AgeMin = defaults.AgeMin
	}
	if out.AgeMax == nil {
		out.AgeMax = defaults.AgeMax
	}
	return out
}

// parseDate returns the zero time for an empty string. Filter strings are
// validated upstream, so a parse failure here is treated as unset.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// endOfDay pushes a date bound to the last instant of that day so that a
// date_to of "2025-03-31" includes the whole day.
func endOfDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.Add(24*time.Hour - time.Nanosecond)
}

// Row is one flat detail record keyed by column.
type Row map[string]any

// Column binds a row key to its display header.
type Column struct {
	Key    string `json:"key"`
	Header string `json:"header"`
}

// Dataset is the transient result of fetching one category under a filter
// set. It is built fresh per generation and discarded after rendering.
type Dataset struct {
	Category string         `json:"category"`
	Summary  map[string]any `json:"summary"`
	Columns  []Column       `json:"columns"`
	Detail   []Row          `json:"detail"`
}

// Empty returns the dataset produced for an unrecognized category.
func Empty(category string) *Dataset {
	return &Dataset{Category: category, Summary: map[string]any{}, Detail: []Row{}}
}

// Fetcher produces a dataset for one category.
type Fetcher interface {
	Category() string
	Fetch(ctx context.Context, f Filters) (*Dataset, error)
}

// Registry dispatches categories to fetchers by lookup, replacing the
// duplicated per-category branching of the legacy code paths.
type Registry struct {
	fetchers map[string]Fetcher
	logger   *slog.Logger
}

// NewRegistry creates an empty fetcher registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		fetchers: make(map[string]Fetcher),
		logger:   logger.With(slog.String("component", "dataset.registry")),
	}
}

// Register adds a fetcher, replacing any previous one for the category.
func (r *Registry) Register(f Fetcher) {
	r.fetchers[f.Category()] = f
}

// Supported reports whether the category has a registered fetcher.
func (r *Registry) Supported(category string) bool {
	_, ok := r.fetchers[category]
	return ok
}

// Fetch runs the fetcher for category. An unrecognized category returns an
// empty dataset and no error; the report still completes with a "no data"
// artifact.
func (r *Registry) Fetch(ctx context.Context, category string, f Filters) (*Dataset, error) {
	fetcher, ok := r.fetchers[category]
	if !ok {
		r.logger.WarnContext(ctx, "unrecognized report category, returning empty dataset",
			slog.String("category", category))
		return Empty(category), nil
	}
	return fetcher.Fetch(ctx, f)
}
