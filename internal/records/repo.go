package records

import "context"

// Repo persists patients and their submitted cases.
type Repo interface {
	// SaveCase upserts the patient row and inserts the case.
	SaveCase(ctx context.Context, c PatientCase) error
	// GetCase returns a case by its storage id.
	GetCase(ctx context.Context, id string) (PatientCase, error)
	// ListByBatch returns all cases belonging to a batch.
	ListByBatch(ctx context.Context, batchID string) ([]PatientCase, error)
}
