package report

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"clinicore/internal/dataset"
	"clinicore/internal/render"
)

// CreateRequest is the payload to submit a durable report.
type CreateRequest struct {
	Title      string          `json:"title" validate:"omitempty,max=255"`
	Type       string          `json:"type" validate:"required"`
	Category   string          `json:"category" validate:"required"`
	Format     string          `json:"format" validate:"required"`
	Filters    dataset.Filters `json:"filters"`
	TemplateID string          `json:"template_id,omitempty"`
}

// Validator enforces the closed enumerations and the cross-field filter
// invariants before any record is written.
type Validator struct {
	validate         *validator.Validate
	supportedFormats func(string) bool
}

// NewValidator creates a request validator. supportedFormats is typically
// the renderer registry's Supported method, so the format enum and the
// renderer dispatch can never drift apart.
func NewValidator(supportedFormats func(string) bool) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report validation failures under the wire field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{
		validate:         v,
		supportedFormats: supportedFormats,
	}
}

// ValidateCreate checks a create request. Unknown categories are accepted
// (they produce an empty dataset downstream); unknown formats and types are
// rejected.
func (v *Validator) ValidateCreate(req *CreateRequest) error {
	if err := v.validate.Struct(req); err != nil {
		return translateValidator(err)
	}
	if !validType(req.Type) {
		return NewValidationError("type", fmt.Sprintf("must be one of: %s", strings.Join(Types(), ", ")))
	}
	if !v.supportedFormats(req.Format) {
		return NewValidationError("format", fmt.Sprintf("unsupported format %q; must be one of: %s", req.Format, strings.Join(render.Formats(), ", ")))
	}
	return v.ValidateFilters(&req.Filters)
}

// ValidateFilters checks the per-field formats and the cross-field rules.
func (v *Validator) ValidateFilters(f *dataset.Filters) error {
	if err := v.validate.Struct(f); err != nil {
		return translateValidator(err)
	}
	if f.DateFrom != "" && f.DateTo != "" && f.DateTo < f.DateFrom {
		return NewValidationError("date_to", "must not be before date_from")
	}
	if f.RegistrationFrom != "" && f.RegistrationTo != "" && f.RegistrationTo < f.RegistrationFrom {
		return NewValidationError("registration_to", "must not be before registration_from")
	}
	if f.AgeMin != nil && f.AgeMax != nil && *f.AgeMax < *f.AgeMin {
		return NewValidationError("age_max", "must not be less than age_min")
	}
	return nil
}

func validType(t string) bool {
	for _, known := range Types() {
		if t == known {
			return true
		}
	}
	return false
}

// translateValidator converts validator.v10 failures into the engine's
// ValidationError, keeping the first offending field.
func translateValidator(err error) error {
	var verrs validator.ValidationErrors
	if ok := errors.As(err, &verrs); ok && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			return NewValidationError(field, "is required")
		case "datetime":
			return NewValidationError(field, "must be a date in YYYY-MM-DD format")
		case "max":
			return NewValidationError(field, fmt.Sprintf("must be at most %s characters", fe.Param()))
		case "gte", "lte":
			return NewValidationError(field, "is out of range")
		default:
			return NewValidationError(field, fmt.Sprintf("failed %s validation", fe.Tag()))
		}
	}
	return NewValidationError("", err.Error())
}
