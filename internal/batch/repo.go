package batch

import "context"

// Repo persists batch jobs and their case outcomes. Outcome recording
// must be idempotent per (batch, case) and must serialize the progress
// counter update.
type Repo interface {
	// CreateBatch stores a new job.
	CreateBatch(ctx context.Context, job BatchJob) error
	// GetBatch returns a job by id.
	GetBatch(ctx context.Context, batchID string) (BatchJob, error)
	// RecordOutcome registers the outcome exactly once. The applied
	// return is false when this (batch, case) pair was already
	// recorded; in that case no counter moves. On a failed outcome the
	// error string is appended to the job's error list. The job moves
	// to completed when the counter reaches the total.
	RecordOutcome(ctx context.Context, batchID string, o CaseOutcome) (job BatchJob, applied bool, err error)
	// ListOutcomes returns all recorded outcomes for a batch.
	ListOutcomes(ctx context.Context, batchID string) ([]CaseOutcome, error)
	// MarkFailed moves the job to failed and appends a diagnostic.
	MarkFailed(ctx context.Context, batchID, diagnostic string) error
	// SetSummary stores the computed summary on the job.
	SetSummary(ctx context.Context, batchID string, s BatchSummary) error
}
