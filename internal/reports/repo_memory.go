package reports

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores reports in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu        sync.RWMutex
	byID      map[string]DoctorReport
	byPatient map[string][]string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:      make(map[string]DoctorReport),
		byPatient: make(map[string][]string),
	}
}

// Save stores the report.
func (r *MemoryRepo) Save(ctx context.Context, report DoctorReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[report.ReportID]; !exists {
		r.byPatient[report.PatientID] = append(r.byPatient[report.PatientID], report.ReportID)
	}
	r.byID[report.ReportID] = report
	return nil
}

// Get returns a report by id.
func (r *MemoryRepo) Get(ctx context.Context, reportID string) (DoctorReport, error) {
	if err := ctx.Err(); err != nil {
		return DoctorReport{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	report, ok := r.byID[reportID]
	if !ok {
		return DoctorReport{}, ErrNotFound
	}
	return report, nil
}

// ListByPatient returns all reports for a patient, newest first.
func (r *MemoryRepo) ListByPatient(ctx context.Context, patientID string) ([]DoctorReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []DoctorReport
	for _, id := range r.byPatient[patientID] {
		out = append(out, r.byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].GeneratedDate.After(out[j].GeneratedDate)
	})
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
