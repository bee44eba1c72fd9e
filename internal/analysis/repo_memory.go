package analysis

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores analyses in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu        sync.RWMutex
	byPatient map[string][]ClinicalAnalysis
	byBatch   map[string][]ClinicalAnalysis
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byPatient: make(map[string][]ClinicalAnalysis),
		byBatch:   make(map[string][]ClinicalAnalysis),
	}
}

// Save stores the analysis.
func (r *MemoryRepo) Save(ctx context.Context, a ClinicalAnalysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byPatient[a.PatientID] = append(r.byPatient[a.PatientID], a)
	if a.BatchID != "" {
		r.byBatch[a.BatchID] = append(r.byBatch[a.BatchID], a)
	}
	return nil
}

// GetByPatient returns the most recent analysis for a patient.
func (r *MemoryRepo) GetByPatient(ctx context.Context, patientID string) (ClinicalAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return ClinicalAnalysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.byPatient[patientID]
	if len(list) == 0 {
		return ClinicalAnalysis{}, ErrNotFound
	}
	latest := list[0]
	for _, a := range list[1:] {
		if a.AnalysisDate.After(latest.AnalysisDate) {
			latest = a
		}
	}
	return latest, nil
}

// ListByBatch returns all analyses for a batch ordered by completion.
func (r *MemoryRepo) ListByBatch(ctx context.Context, batchID string) ([]ClinicalAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ClinicalAnalysis, len(r.byBatch[batchID]))
	copy(out, r.byBatch[batchID])
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AnalysisDate.Before(out[j].AnalysisDate)
	})
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
