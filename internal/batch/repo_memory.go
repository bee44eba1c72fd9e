package batch

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo stores batches in memory and is safe for concurrent use.
// All counter updates happen under one lock, so increments serialize.
type MemoryRepo struct {
	mu       sync.RWMutex
	jobs     map[string]*BatchJob
	outcomes map[string][]CaseOutcome
	seen     map[string]map[string]bool
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		jobs:     make(map[string]*BatchJob),
		outcomes: make(map[string][]CaseOutcome),
		seen:     make(map[string]map[string]bool),
	}
}

// CreateBatch stores a new job.
func (r *MemoryRepo) CreateBatch(ctx context.Context, job BatchJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := job
	if stored.Errors == nil {
		stored.Errors = []string{}
	}
	r.jobs[job.BatchID] = &stored
	r.seen[job.BatchID] = make(map[string]bool)
	return nil
}

// GetBatch returns a copy of the job.
func (r *MemoryRepo) GetBatch(ctx context.Context, batchID string) (BatchJob, error) {
	if err := ctx.Err(); err != nil {
		return BatchJob{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[batchID]
	if !ok {
		return BatchJob{}, ErrNotFound
	}
	return copyJob(job), nil
}

// RecordOutcome registers the outcome once; duplicates apply nothing.
func (r *MemoryRepo) RecordOutcome(ctx context.Context, batchID string, o CaseOutcome) (BatchJob, bool, error) {
	if err := ctx.Err(); err != nil {
		return BatchJob{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[batchID]
	if !ok {
		return BatchJob{}, false, ErrNotFound
	}
	if r.seen[batchID][o.CaseID] {
		return copyJob(job), false, nil
	}
	r.seen[batchID][o.CaseID] = true
	r.outcomes[batchID] = append(r.outcomes[batchID], o)

	job.ProcessedRecords++
	if o.Error != "" {
		job.Errors = append(job.Errors, o.Error)
	}
	if job.ProcessedRecords >= job.TotalRecords && job.Status == StatusProcessing {
		job.Status = StatusCompleted
		now := time.Now().UTC()
		job.CompletedAt = &now
	}
	return copyJob(job), true, nil
}

// ListOutcomes returns all recorded outcomes for a batch.
func (r *MemoryRepo) ListOutcomes(ctx context.Context, batchID string) ([]CaseOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]CaseOutcome, len(r.outcomes[batchID]))
	copy(out, r.outcomes[batchID])
	return out, nil
}

// MarkFailed moves the job to failed and appends a diagnostic.
func (r *MemoryRepo) MarkFailed(ctx context.Context, batchID, diagnostic string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[batchID]
	if !ok {
		return ErrNotFound
	}
	job.Status = StatusFailed
	job.Errors = append(job.Errors, diagnostic)
	now := time.Now().UTC()
	job.CompletedAt = &now
	return nil
}

// SetSummary stores the computed summary on the job.
func (r *MemoryRepo) SetSummary(ctx context.Context, batchID string, s BatchSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[batchID]
	if !ok {
		return ErrNotFound
	}
	summary := s
	job.Summary = &summary
	return nil
}

func copyJob(job *BatchJob) BatchJob {
	out := *job
	out.Errors = append([]string(nil), job.Errors...)
	if out.Errors == nil {
		out.Errors = []string{}
	}
	if job.Summary != nil {
		s := *job.Summary
		out.Summary = &s
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

var _ Repo = (*MemoryRepo)(nil)
