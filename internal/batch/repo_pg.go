package batch

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// CreateBatch stores a new job.
func (r *PGRepo) CreateBatch(ctx context.Context, job BatchJob) error {
	const query = `
INSERT INTO batches (batch_id, total_records, processed_records, status, errors, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	errsPayload, err := json.Marshal(ensureStrings(job.Errors))
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		job.BatchID,
		job.TotalRecords,
		job.ProcessedRecords,
		job.Status,
		errsPayload,
		job.CreatedAt,
	)
	return err
}

// GetBatch returns a job by id.
func (r *PGRepo) GetBatch(ctx context.Context, batchID string) (BatchJob, error) {
	const query = `
SELECT batch_id, total_records, processed_records, status, errors, summary, created_at, completed_at
FROM batches
WHERE batch_id = $1
LIMIT 1`
	job, err := scanBatch(r.DB.QueryRowContext(ctx, query, batchID))
	if errors.Is(err, sql.ErrNoRows) {
		return BatchJob{}, ErrNotFound
	}
	return job, err
}

// RecordOutcome inserts the outcome and advances the counter in one
// transaction. The outcome table's primary key absorbs duplicate
// deliveries: a conflicting insert applies nothing.
func (r *PGRepo) RecordOutcome(ctx context.Context, batchID string, o CaseOutcome) (BatchJob, bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return BatchJob{}, false, err
	}
	defer tx.Rollback()

	const insertOutcome = `
INSERT INTO batch_outcomes (batch_id, case_id, status, error, analysis_id, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (batch_id, case_id) DO NOTHING`
	res, err := tx.ExecContext(ctx, insertOutcome,
		batchID,
		o.CaseID,
		o.Status,
		nullString(o.Error),
		nullString(o.AnalysisID),
		o.RecordedAt,
	)
	if err != nil {
		return BatchJob{}, false, fmt.Errorf("insert outcome: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return BatchJob{}, false, err
	}

	if inserted == 0 {
		job, err := getBatchTx(ctx, tx, batchID)
		if err != nil {
			return BatchJob{}, false, err
		}
		if err := tx.Commit(); err != nil {
			return BatchJob{}, false, err
		}
		return job, false, nil
	}

	const advance = `
UPDATE batches
SET processed_records = processed_records + 1,
    errors = CASE WHEN $2 <> '' THEN errors || to_jsonb($2::text) ELSE errors END,
    status = CASE WHEN processed_records + 1 >= total_records AND status = 'processing' THEN 'completed' ELSE status END,
    completed_at = CASE WHEN processed_records + 1 >= total_records AND status = 'processing' THEN now() ELSE completed_at END
WHERE batch_id = $1`
	if _, err := tx.ExecContext(ctx, advance, batchID, o.Error); err != nil {
		return BatchJob{}, false, fmt.Errorf("advance batch: %w", err)
	}

	job, err := getBatchTx(ctx, tx, batchID)
	if err != nil {
		return BatchJob{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return BatchJob{}, false, err
	}
	return job, true, nil
}

// ListOutcomes returns all recorded outcomes for a batch.
func (r *PGRepo) ListOutcomes(ctx context.Context, batchID string) ([]CaseOutcome, error) {
	const query = `
SELECT case_id, status, error, analysis_id, recorded_at
FROM batch_outcomes
WHERE batch_id = $1
ORDER BY recorded_at`
	rows, err := r.DB.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []CaseOutcome
	for rows.Next() {
		var o CaseOutcome
		var errMsg, analysisID sql.NullString
		if err := rows.Scan(&o.CaseID, &o.Status, &errMsg, &analysisID, &o.RecordedAt); err != nil {
			return nil, err
		}
		o.Error = errMsg.String
		o.AnalysisID = analysisID.String
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// MarkFailed moves the job to failed and appends a diagnostic.
func (r *PGRepo) MarkFailed(ctx context.Context, batchID, diagnostic string) error {
	const query = `
UPDATE batches
SET status = 'failed',
    errors = errors || to_jsonb($2::text),
    completed_at = now()
WHERE batch_id = $1`
	res, err := r.DB.ExecContext(ctx, query, batchID, diagnostic)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetSummary stores the computed summary on the job.
func (r *PGRepo) SetSummary(ctx context.Context, batchID string, s BatchSummary) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `UPDATE batches SET summary = $2 WHERE batch_id = $1`, batchID, payload)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func getBatchTx(ctx context.Context, tx *sql.Tx, batchID string) (BatchJob, error) {
	const query = `
SELECT batch_id, total_records, processed_records, status, errors, summary, created_at, completed_at
FROM batches
WHERE batch_id = $1
LIMIT 1`
	job, err := scanBatch(tx.QueryRowContext(ctx, query, batchID))
	if errors.Is(err, sql.ErrNoRows) {
		return BatchJob{}, ErrNotFound
	}
	return job, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(row rowScanner) (BatchJob, error) {
	var job BatchJob
	var errsPayload, summaryPayload []byte
	var completedAt sql.NullTime

	if err := row.Scan(
		&job.BatchID, &job.TotalRecords, &job.ProcessedRecords, &job.Status,
		&errsPayload, &summaryPayload, &job.CreatedAt, &completedAt,
	); err != nil {
		return BatchJob{}, err
	}
	if err := json.Unmarshal(errsPayload, &job.Errors); err != nil {
		return BatchJob{}, err
	}
	if job.Errors == nil {
		job.Errors = []string{}
	}
	if len(summaryPayload) > 0 && string(summaryPayload) != "{}" {
		var s BatchSummary
		if err := json.Unmarshal(summaryPayload, &s); err != nil {
			return BatchJob{}, err
		}
		job.Summary = &s
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	return job, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func ensureStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var _ Repo = (*PGRepo)(nil)
