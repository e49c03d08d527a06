package report

import (
	"context"
	"sort"
	"sync"
	"time"

	"clinicore/internal/dataset"
)

// MemoryStore is an in-memory Store for tests and development. CAS semantics
// match the SQLite implementation.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]*Report
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string]*Report)}
}

func (s *MemoryStore) clone(r *Report) *Report {
	cp := *r
	return &cp
}

// Create implements Store.
func (s *MemoryStore) Create(ctx context.Context, r *Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.ID] = s.clone(r)
	return nil
}

// Get implements Store. Soft-deleted reports are still returned; callers
// decide how deletion affects the operation.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.clone(r), nil
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context, f ListFilter) ([]*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Report
	for _, r := range s.reports {
		if r.OwnerID != f.OwnerID || r.Deleted() {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		out = append(out, s.clone(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// MarkGenerating implements Store.
func (s *MemoryStore) MarkGenerating(ctx context.Context, id string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return false, ErrNotFound
	}
	if r.Status != StatusPending || r.Deleted() {
		return false, nil
	}
	r.Status = StatusGenerating
	r.UpdatedAt = now
	return true, nil
}

// FinalizeCompleted implements Store.
func (s *MemoryStore) FinalizeCompleted(ctx context.Context, id, artifactRef string, size int64, generated, expires time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return false, ErrNotFound
	}
	if r.Status != StatusGenerating || r.Deleted() {
		return false, nil
	}
	r.Status = StatusCompleted
	r.ArtifactRef = &artifactRef
	r.ArtifactSize = &size
	r.GeneratedAt = &generated
	r.ExpiresAt = &expires
	r.UpdatedAt = generated
	return true, nil
}

// FinalizeFailed implements Store.
func (s *MemoryStore) FinalizeFailed(ctx context.Context, id, cause string, generated time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return false, ErrNotFound
	}
	if r.Status != StatusGenerating || r.Deleted() {
		return false, nil
	}
	r.Status = StatusFailed
	r.FailureCause = cause
	r.GeneratedAt = &generated
	r.UpdatedAt = generated
	return true, nil
}

// MarkDeleted implements Store.
func (s *MemoryStore) MarkDeleted(ctx context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return ErrNotFound
	}
	if !r.Deleted() {
		r.DeletedAt = &now
		r.UpdatedAt = now
	}
	return nil
}

// Stats implements Store.
func (s *MemoryStore) Stats(ctx context.Context, ownerID string, now time.Time) (*OwnerStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	stats := &OwnerStats{ByStatus: make(map[Status]int)}
	for _, r := range s.reports {
		if r.OwnerID != ownerID || r.Deleted() {
			continue
		}
		stats.Total++
		stats.ByStatus[r.Status]++
		if !r.CreatedAt.Before(monthStart) {
			stats.ThisMonth++
		}
		if r.ArtifactSize != nil {
			stats.StorageBytes += *r.ArtifactSize
		}
	}
	stats.StorageHuman = dataset.HumanizeBytes(stats.StorageBytes)
	return stats, nil
}

// ListExpired implements Store.
func (s *MemoryStore) ListExpired(ctx context.Context, now time.Time) ([]*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Report
	for _, r := range s.reports {
		if r.Deleted() || r.Status != StatusCompleted || r.ArtifactRef == nil {
			continue
		}
		if r.ExpiresAt != nil && !now.Before(*r.ExpiresAt) {
			out = append(out, s.clone(r))
		}
	}
	return out, nil
}

// ClearArtifact implements Store.
func (s *MemoryStore) ClearArtifact(ctx context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return ErrNotFound
	}
	r.ArtifactRef = nil
	r.ArtifactSize = nil
	r.UpdatedAt = now
	return nil
}
