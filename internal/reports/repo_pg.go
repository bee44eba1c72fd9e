package reports

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Save inserts the report.
func (r *PGRepo) Save(ctx context.Context, report DoctorReport) error {
	const query = `
INSERT INTO doctor_reports (
	report_id, display_id, patient_id, doctor_id, analysis_summary,
	medications_prescribed, follow_up_recommendations, generated_date
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	medications, err := json.Marshal(report.MedicationsPrescribed)
	if err != nil {
		return err
	}
	followUps, err := json.Marshal(report.FollowUpRecommendations)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(ctx, query,
		report.ReportID,
		report.DisplayID,
		report.PatientID,
		report.DoctorID,
		report.AnalysisSummary,
		medications,
		followUps,
		report.GeneratedDate,
	)
	return err
}

// Get returns a report by its storage id.
func (r *PGRepo) Get(ctx context.Context, reportID string) (DoctorReport, error) {
	const query = selectReport + `
WHERE report_id = $1`
	report, err := scanReport(r.DB.QueryRowContext(ctx, query, reportID))
	if errors.Is(err, sql.ErrNoRows) {
		return DoctorReport{}, ErrNotFound
	}
	return report, err
}

// ListByPatient returns all reports for a patient, newest first.
func (r *PGRepo) ListByPatient(ctx context.Context, patientID string) ([]DoctorReport, error) {
	const query = selectReport + `
WHERE patient_id = $1
ORDER BY generated_date DESC`
	rows, err := r.DB.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DoctorReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, report)
	}
	return out, rows.Err()
}

const selectReport = `
SELECT report_id, display_id, patient_id, doctor_id, analysis_summary,
       medications_prescribed, follow_up_recommendations, generated_date
FROM doctor_reports`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (DoctorReport, error) {
	var report DoctorReport
	var medications, followUps []byte

	if err := row.Scan(
		&report.ReportID, &report.DisplayID, &report.PatientID, &report.DoctorID,
		&report.AnalysisSummary, &medications, &followUps, &report.GeneratedDate,
	); err != nil {
		return DoctorReport{}, err
	}

	if err := json.Unmarshal(medications, &report.MedicationsPrescribed); err != nil {
		return DoctorReport{}, err
	}
	if err := json.Unmarshal(followUps, &report.FollowUpRecommendations); err != nil {
		return DoctorReport{}, err
	}
	return report, nil
}

var _ Repo = (*PGRepo)(nil)
