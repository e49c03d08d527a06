package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"clinicore/internal/report"
	"clinicore/internal/storage"
)

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Extensions map[string]interface{} `json:"-"`
}

// Render writes the problem as application/problem+json. Written directly
// rather than through render.Respond, which would stamp application/json.
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(pd.Status)
	return json.NewEncoder(w).Encode(pd)
}

// MarshalJSON flattens the extension fields into the response object.
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{})
	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status
	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}
	for k, v := range pd.Extensions {
		data[k] = v
	}
	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error.
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field.
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// MapReportError maps report engine errors to HTTP problem details. The
// not-downloadable mapping is deliberately undifferentiated: the response
// never says whether the report failed, expired, was deleted or has no
// artifact.
func MapReportError(err error, instance, traceID string) *ProblemDetails {
	var verr *report.ValidationError
	if errors.As(err, &verr) {
		problem := NewProblemDetails(
			http.StatusBadRequest,
			TypeValidation,
			"Validation Failed",
			verr.Message,
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "VALIDATION_FAILED")
		if verr.Field != "" {
			problem.WithExtension("field", verr.Field)
		}
		return problem
	}

	switch {
	case errors.Is(err, report.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return NewProblemDetails(
			http.StatusNotFound,
			TypeReportNotFound,
			"Report Not Found",
			"The requested report does not exist.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "REPORT_NOT_FOUND")

	case errors.Is(err, report.ErrAccessDenied):
		return NewProblemDetails(
			http.StatusForbidden,
			TypeForbidden,
			"Forbidden",
			"You do not have access to this report.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "FORBIDDEN")

	case errors.Is(err, report.ErrNotDownloadable):
		return NewProblemDetails(
			http.StatusGone,
			TypeNotDownloadable,
			"Report Not Available",
			"This report is not available for download.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "NOT_DOWNLOADABLE")

	case errors.Is(err, report.ErrTemplateNotFound):
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeValidation,
			"Validation Failed",
			"The referenced template does not exist.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "VALIDATION_FAILED").
			WithExtension("field", "template_id")

	case errors.Is(err, report.ErrQueueFull):
		return NewProblemDetails(
			http.StatusServiceUnavailable,
			TypeServiceDown,
			"Service Unavailable",
			"The report queue is full. Please try again later.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "QUEUE_FULL").
			WithExtension("retry_after", 30)

	default:
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeInternal,
			"Internal Server Error",
			"An unexpected error occurred while processing your request.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INTERNAL_ERROR")
	}
}
