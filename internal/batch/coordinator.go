package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"medrecords-backend/internal/analysis"
	"medrecords-backend/internal/records"
	"medrecords-backend/internal/shared/metrics"
	"medrecords-backend/internal/shared/telemetry"
	"medrecords-backend/internal/tabular"
)

// Dispatcher hands a case to an external at-least-once queue instead of
// processing it in this process.
type Dispatcher interface {
	DispatchCase(ctx context.Context, batchID, caseID, requestID string) error
}

// Config tunes the coordinator's direct processing path.
type Config struct {
	// ChunkSize bounds concurrent gateway calls per chunk.
	ChunkSize int
	// Pause is the delay between chunks, as backpressure against the
	// upstream rate limit.
	Pause time.Duration
	// Dispatcher, when set, routes cases to a queue instead of the
	// in-process pool.
	Dispatcher Dispatcher
}

// Coordinator owns batch lifecycle: conversion, dispatch, outcome
// recording, and summary aggregation.
type Coordinator struct {
	records    records.Repo
	analyses   analysis.Repo
	batches    Repo
	orch       *analysis.Orchestrator
	dispatcher Dispatcher
	chunkSize  int
	pause      time.Duration
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(recordsRepo records.Repo, analysesRepo analysis.Repo, batchesRepo Repo, orch *analysis.Orchestrator, cfg Config) *Coordinator {
	chunkSize := cfg.ChunkSize
	if chunkSize < 1 {
		chunkSize = 5
	}
	return &Coordinator{
		records:    recordsRepo,
		analyses:   analysesRepo,
		batches:    batchesRepo,
		orch:       orch,
		dispatcher: cfg.Dispatcher,
		chunkSize:  chunkSize,
		pause:      cfg.Pause,
	}
}

// Submit converts the parsed table into cases and starts processing.
// Rows that fail conversion are recorded as failed outcomes
// immediately; they count toward the batch total. When no row converts
// a failed batch is stored and a *NoValidCasesError returned.
func (c *Coordinator) Submit(ctx context.Context, table tabular.Table, requestID string) (SubmitResult, error) {
	batchID := uuid.NewString()
	now := time.Now().UTC()

	var cases []records.PatientCase
	var conversionErrors []string
	type rejectedRow struct {
		index int
		err   string
	}
	var rejected []rejectedRow

	for i, row := range table.Rows {
		pc, err := records.BuildCase(row, i)
		if err != nil {
			msg := fmt.Sprintf("Row %d: %s", i, err.Error())
			conversionErrors = append(conversionErrors, msg)
			rejected = append(rejected, rejectedRow{index: i, err: msg})
			telemetry.Warn("batch.row_rejected", map[string]any{
				"batchId": batchID,
				"row":     i,
				"error":   err.Error(),
			})
			continue
		}
		pc.ID = uuid.NewString()
		pc.BatchID = batchID
		pc.CreatedAt = now
		cases = append(cases, pc)
	}

	if len(cases) == 0 {
		failedJob := BatchJob{
			BatchID:      batchID,
			TotalRecords: len(table.Rows),
			Status:       StatusFailed,
			Errors:       ensureStrings(conversionErrors),
			CreatedAt:    now,
		}
		if err := c.batches.CreateBatch(ctx, failedJob); err != nil {
			return SubmitResult{}, err
		}
		metrics.IncBatchFailed()
		return SubmitResult{}, &NoValidCasesError{Errors: conversionErrors}
	}

	job := BatchJob{
		BatchID:      batchID,
		TotalRecords: len(table.Rows),
		Status:       StatusProcessing,
		Errors:       []string{},
		CreatedAt:    now,
	}
	if err := c.batches.CreateBatch(ctx, job); err != nil {
		return SubmitResult{}, err
	}
	metrics.IncBatchStarted()

	for _, rr := range rejected {
		outcome := CaseOutcome{
			CaseID:     fmt.Sprintf("row_%d", rr.index),
			Status:     OutcomeFailed,
			Error:      rr.err,
			RecordedAt: time.Now().UTC(),
		}
		if err := c.RecordOutcome(ctx, batchID, outcome); err != nil {
			return SubmitResult{}, c.abortSubmit(ctx, batchID, fmt.Sprintf("record conversion outcome: %v", err), err)
		}
	}

	for _, pc := range cases {
		if err := c.records.SaveCase(ctx, pc); err != nil {
			return SubmitResult{}, c.abortSubmit(ctx, batchID, fmt.Sprintf("store case %s: %v", pc.ID, err), err)
		}
	}

	if c.dispatcher != nil {
		for _, pc := range cases {
			if err := c.dispatcher.DispatchCase(ctx, batchID, pc.ID, requestID); err != nil {
				outcome := CaseOutcome{
					CaseID:     pc.ID,
					PatientID:  pc.Patient.PatientID,
					Status:     OutcomeFailed,
					Error:      fmt.Sprintf("Record %s: dispatch failed: %v", pc.Patient.PatientID, err),
					RecordedAt: time.Now().UTC(),
				}
				if rerr := c.RecordOutcome(ctx, batchID, outcome); rerr != nil {
					return SubmitResult{}, c.abortSubmit(ctx, batchID, fmt.Sprintf("record dispatch outcome: %v", rerr), rerr)
				}
			}
		}
	} else {
		// Detached from the request context: the upload response
		// returns immediately while analysis continues.
		go c.processBatch(context.Background(), batchID, cases)
	}

	return SubmitResult{
		BatchID:          batchID,
		TotalRecords:     len(table.Rows),
		ValidRecords:     len(cases),
		ConversionErrors: len(conversionErrors),
		Errors:           conversionErrors,
		Status:           StatusProcessing,
	}, nil
}

// abortSubmit marks a freshly created job as failed when setup work
// after CreateBatch cannot complete, so the batch never lingers in
// processing without a diagnostic.
func (c *Coordinator) abortSubmit(ctx context.Context, batchID, diagnostic string, cause error) error {
	if err := c.batches.MarkFailed(ctx, batchID, diagnostic); err != nil {
		telemetry.Error("batch.abort_failed", map[string]any{
			"batchId": batchID,
			"error":   err.Error(),
		})
	}
	metrics.IncBatchFailed()
	return cause
}

// processBatch runs the direct bounded-concurrency path: chunks of
// chunkSize concurrent analyses with a pause between chunks.
func (c *Coordinator) processBatch(ctx context.Context, batchID string, cases []records.PatientCase) {
	defer func() {
		if rec := recover(); rec != nil {
			diagnostic := fmt.Sprintf("batch processing aborted: %v", rec)
			telemetry.Error("batch.aborted", map[string]any{"batchId": batchID, "panic": fmt.Sprint(rec)})
			if err := c.batches.MarkFailed(ctx, batchID, diagnostic); err != nil {
				telemetry.Error("batch.mark_failed", map[string]any{"batchId": batchID, "error": err.Error()})
			}
			metrics.IncBatchFailed()
		}
	}()

	for start := 0; start < len(cases); start += c.chunkSize {
		end := start + c.chunkSize
		if end > len(cases) {
			end = len(cases)
		}
		chunk := cases[start:end]

		var wg sync.WaitGroup
		var mu sync.Mutex
		var panics []string

		for _, pc := range chunk {
			wg.Add(1)
			go func(pc records.PatientCase) {
				defer wg.Done()
				defer func() {
					if rec := recover(); rec != nil {
						mu.Lock()
						panics = append(panics, fmt.Sprintf("case %s: %v", pc.ID, rec))
						mu.Unlock()
					}
				}()
				c.processCase(ctx, batchID, pc)
			}(pc)
		}
		wg.Wait()

		if len(panics) > 0 {
			diagnostic := fmt.Sprintf("batch processing aborted: %s", panics[0])
			if err := c.batches.MarkFailed(ctx, batchID, diagnostic); err != nil {
				telemetry.Error("batch.mark_failed", map[string]any{"batchId": batchID, "error": err.Error()})
			}
			metrics.IncBatchFailed()
			return
		}

		if end < len(cases) && c.pause > 0 {
			select {
			case <-time.After(c.pause):
			case <-ctx.Done():
				return
			}
		}
	}
}

// ProcessCase loads a stored case and resolves it. Used by queue
// workers; duplicate deliveries are absorbed by outcome recording.
func (c *Coordinator) ProcessCase(ctx context.Context, batchID, caseID string) error {
	pc, err := c.records.GetCase(ctx, caseID)
	if err != nil {
		return err
	}
	c.processCase(ctx, batchID, pc)
	return nil
}

func (c *Coordinator) processCase(ctx context.Context, batchID string, pc records.PatientCase) {
	a, err := c.orch.Analyze(ctx, pc)
	if err != nil {
		outcome := CaseOutcome{
			CaseID:     pc.ID,
			PatientID:  pc.Patient.PatientID,
			Status:     OutcomeFailed,
			Error:      fmt.Sprintf("Record %s: %v", pc.Patient.PatientID, err),
			RecordedAt: time.Now().UTC(),
		}
		if rerr := c.RecordOutcome(ctx, batchID, outcome); rerr != nil {
			telemetry.Error("batch.record_outcome", map[string]any{"batchId": batchID, "caseId": pc.ID, "error": rerr.Error()})
		}
		return
	}

	a.ID = uuid.NewString()
	if err := c.analyses.Save(ctx, a); err != nil {
		outcome := CaseOutcome{
			CaseID:     pc.ID,
			PatientID:  pc.Patient.PatientID,
			Status:     OutcomeFailed,
			Error:      fmt.Sprintf("Record %s: store analysis: %v", pc.Patient.PatientID, err),
			RecordedAt: time.Now().UTC(),
		}
		if rerr := c.RecordOutcome(ctx, batchID, outcome); rerr != nil {
			telemetry.Error("batch.record_outcome", map[string]any{"batchId": batchID, "caseId": pc.ID, "error": rerr.Error()})
		}
		return
	}

	outcome := CaseOutcome{
		CaseID:     pc.ID,
		PatientID:  pc.Patient.PatientID,
		Status:     OutcomeSuccess,
		AnalysisID: a.ID,
		RecordedAt: time.Now().UTC(),
	}
	if err := c.RecordOutcome(ctx, batchID, outcome); err != nil {
		telemetry.Error("batch.record_outcome", map[string]any{"batchId": batchID, "caseId": pc.ID, "error": err.Error()})
	}
}

// RecordOutcome registers an outcome idempotently and finalizes the
// batch when the counter reaches the total.
func (c *Coordinator) RecordOutcome(ctx context.Context, batchID string, o CaseOutcome) error {
	job, applied, err := c.batches.RecordOutcome(ctx, batchID, o)
	if err != nil {
		return err
	}
	if !applied {
		telemetry.Info("batch.outcome_duplicate", map[string]any{"batchId": batchID, "caseId": o.CaseID})
		return nil
	}
	if job.Status == StatusCompleted {
		c.finalize(ctx, job)
	}
	return nil
}

// GetStatus returns the job for a batch.
func (c *Coordinator) GetStatus(ctx context.Context, batchID string) (BatchJob, error) {
	return c.batches.GetBatch(ctx, batchID)
}

// Results returns the job plus all outcomes, each joined with its
// stored analysis.
func (c *Coordinator) Results(ctx context.Context, batchID string) (BatchJob, []CaseOutcome, error) {
	job, err := c.batches.GetBatch(ctx, batchID)
	if err != nil {
		return BatchJob{}, nil, err
	}
	outcomes, err := c.outcomesWithAnalyses(ctx, batchID)
	if err != nil {
		return BatchJob{}, nil, err
	}
	return job, outcomes, nil
}

func (c *Coordinator) outcomesWithAnalyses(ctx context.Context, batchID string) ([]CaseOutcome, error) {
	outcomes, err := c.batches.ListOutcomes(ctx, batchID)
	if err != nil {
		return nil, err
	}
	analyses, err := c.analyses.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]analysis.ClinicalAnalysis, len(analyses))
	for _, a := range analyses {
		byID[a.ID] = a
	}
	for i := range outcomes {
		if a, ok := byID[outcomes[i].AnalysisID]; ok {
			cp := a
			outcomes[i].Analysis = &cp
			outcomes[i].PatientID = a.PatientID
		}
	}
	return outcomes, nil
}

func (c *Coordinator) finalize(ctx context.Context, job BatchJob) {
	outcomes, err := c.outcomesWithAnalyses(ctx, job.BatchID)
	if err != nil {
		telemetry.Error("batch.finalize", map[string]any{"batchId": job.BatchID, "error": err.Error()})
		return
	}
	summary := Summarize(outcomes)
	if err := c.batches.SetSummary(ctx, job.BatchID, summary); err != nil {
		telemetry.Error("batch.finalize", map[string]any{"batchId": job.BatchID, "error": err.Error()})
		return
	}
	metrics.IncBatchCompleted()
	telemetry.Info("batch.completed", map[string]any{
		"batchId":    job.BatchID,
		"total":      job.TotalRecords,
		"successful": summary.SuccessfulAnalyses,
		"failed":     summary.FailedAnalyses,
	})
}
