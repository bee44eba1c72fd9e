package analysis

import "context"

// Repo persists finished analyses.
type Repo interface {
	// Save stores an analysis.
	Save(ctx context.Context, a ClinicalAnalysis) error
	// GetByPatient returns the most recent analysis for a patient.
	GetByPatient(ctx context.Context, patientID string) (ClinicalAnalysis, error)
	// ListByBatch returns all analyses belonging to a batch.
	ListByBatch(ctx context.Context, batchID string) ([]ClinicalAnalysis, error)
}
