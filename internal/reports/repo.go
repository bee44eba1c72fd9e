package reports

import "context"

// Repo persists doctor reports.
type Repo interface {
	Save(ctx context.Context, report DoctorReport) error
	Get(ctx context.Context, reportID string) (DoctorReport, error)
	ListByPatient(ctx context.Context, patientID string) ([]DoctorReport, error)
}
