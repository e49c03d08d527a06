package report

import (
	"context"
	"time"
)

// ListFilter narrows report listings. Owner scoping is mandatory.
type ListFilter struct {
	OwnerID string
	Status  Status
	Limit   int
	Offset  int
}

// Store persists Report records. Finalize methods are compare-and-set on
// status so a retried or concurrent generation can reach a terminal state at
// most once; the bool result reports whether this call won the transition.
type Store interface {
	Create(ctx context.Context, r *Report) error
	Get(ctx context.Context, id string) (*Report, error)
	List(ctx context.Context, f ListFilter) ([]*Report, error)

	// MarkGenerating transitions pending -> generating.
	MarkGenerating(ctx context.Context, id string, now time.Time) (bool, error)

	// FinalizeCompleted transitions generating -> completed with artifact
	// accounting. expires = generated + ExpiryPeriod, computed by the caller.
	FinalizeCompleted(ctx context.Context, id, artifactRef string, size int64, generated, expires time.Time) (bool, error)

	// FinalizeFailed transitions generating -> failed. cause is retained for
	// operators, never returned to report consumers.
	FinalizeFailed(ctx context.Context, id, cause string, generated time.Time) (bool, error)

	// MarkDeleted soft-deletes the record, keeping the row.
	MarkDeleted(ctx context.Context, id string, now time.Time) error

	// Stats aggregates one owner's reports.
	Stats(ctx context.Context, ownerID string, now time.Time) (*OwnerStats, error)

	// ListExpired returns completed, non-deleted reports whose expiry has
	// passed and whose artifact reference is still set.
	ListExpired(ctx context.Context, now time.Time) ([]*Report, error)

	// ClearArtifact drops the artifact reference after an expiry sweep has
	// removed the stored blob.
	ClearArtifact(ctx context.Context, id string, now time.Time) error
}
