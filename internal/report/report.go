// Package report owns the durable Report record and its lifecycle: creation
// and validation, asynchronous generation through the fetch/render
// registries, artifact storage, download gating and soft deletion.
package report

import (
	"time"

	"clinicore/internal/dataset"
)

// Status is the report lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Broad report classifications.
const (
	TypeMedical     = "medical"
	TypeFinancial   = "financial"
	TypeStatistical = "statistical"
	TypeCustom      = "custom"
)

// Types lists the supported report types.
func Types() []string {
	return []string{TypeMedical, TypeFinancial, TypeStatistical, TypeCustom}
}

// ExpiryPeriod is how long a completed artifact stays downloadable.
const ExpiryPeriod = 30 * 24 * time.Hour

// Report is the durable record of one requested report.
type Report struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Type         string          `json:"type"`
	Category     string          `json:"category"`
	Format       string          `json:"format"`
	Filters      dataset.Filters `json:"filters"`
	Status       Status          `json:"status"`
	ArtifactRef  *string         `json:"artifact_ref,omitempty"`
	ArtifactSize *int64          `json:"artifact_size,omitempty"`
	GeneratedAt  *time.Time      `json:"generated_at,omitempty"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty"`
	OwnerID      string          `json:"owner_id"`
	TemplateID   *string         `json:"template_id,omitempty"`
	FailureCause string          `json:"-"` // logged, never serialized to callers
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DeletedAt    *time.Time      `json:"deleted_at,omitempty"`
}

// Terminal reports whether the record reached a final generation state.
func (r *Report) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// Deleted reports whether the record is soft-deleted.
func (r *Report) Deleted() bool {
	return r.DeletedAt != nil
}

// Downloadable combines completion, non-expiry and non-deletion. Artifact
// existence in storage is checked separately by the manager.
func (r *Report) Downloadable(now time.Time) bool {
	if r.Status != StatusCompleted || r.Deleted() {
		return false
	}
	if r.ArtifactRef == nil || r.ExpiresAt == nil {
		return false
	}
	return now.Before(*r.ExpiresAt)
}

// OwnerStats summarizes one owner's reports.
type OwnerStats struct {
	Total        int            `json:"total"`
	ByStatus     map[Status]int `json:"by_status"`
	ThisMonth    int            `json:"this_month"`
	StorageBytes int64          `json:"storage_bytes"`
	StorageHuman string         `json:"storage_human"`
}
