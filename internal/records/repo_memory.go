package records

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores cases in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu      sync.RWMutex
	byID    map[string]PatientCase
	byBatch map[string][]string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:    make(map[string]PatientCase),
		byBatch: make(map[string][]string),
	}
}

// SaveCase stores the case.
func (r *MemoryRepo) SaveCase(ctx context.Context, c PatientCase) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[c.ID]; !exists && c.BatchID != "" {
		r.byBatch[c.BatchID] = append(r.byBatch[c.BatchID], c.ID)
	}
	r.byID[c.ID] = c
	return nil
}

// GetCase returns a case by its id.
func (r *MemoryRepo) GetCase(ctx context.Context, id string) (PatientCase, error) {
	if err := ctx.Err(); err != nil {
		return PatientCase{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return PatientCase{}, ErrNotFound
	}
	return c, nil
}

// ListByBatch returns all cases for a batch ordered by insertion time.
func (r *MemoryRepo) ListByBatch(ctx context.Context, batchID string) ([]PatientCase, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byBatch[batchID]
	cases := make([]PatientCase, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.byID[id]; ok {
			cases = append(cases, c)
		}
	}
	sort.SliceStable(cases, func(i, j int) bool {
		return cases[i].CreatedAt.Before(cases[j].CreatedAt)
	})
	return cases, nil
}

var _ Repo = (*MemoryRepo)(nil)
