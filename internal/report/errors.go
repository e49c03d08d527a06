package report

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced to the transport layer.
var (
	// ErrNotFound covers an unknown or soft-deleted report id.
	ErrNotFound = errors.New("report not found")

	// ErrAccessDenied is returned for any non-owner access, regardless of
	// the report's state.
	ErrAccessDenied = errors.New("access denied")

	// ErrNotDownloadable covers wrong state, expiry and a missing stored
	// artifact without revealing which condition failed.
	ErrNotDownloadable = errors.New("report is not available for download")

	// ErrQueueFull is returned when the generation queue cannot accept
	// another job.
	ErrQueueFull = errors.New("report queue is full")
)

// ValidationError rejects a malformed request before any record is written.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NewValidationError creates a field-scoped validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// GenerationError records which stage of generation failed. It is logged and
// folded into status=failed; it is never surfaced verbatim to the caller of
// Create, who already received the pending acknowledgment.
type GenerationError struct {
	Stage string // fetch, render, store, timeout
	Cause error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("report generation failed during %s: %v", e.Stage, e.Cause)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

func newGenerationError(stage string, cause error) *GenerationError {
	return &GenerationError{Stage: stage, Cause: cause}
}
