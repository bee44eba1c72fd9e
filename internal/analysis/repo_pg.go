package analysis

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

// Save inserts the analysis.
func (r *PGRepo) Save(ctx context.Context, a ClinicalAnalysis) error {
	const query = `
INSERT INTO analyses (
	id, record_id, patient_id, batch_id, suspected_conditions, recommended_medications,
	additional_tests, risk_factors, treatment_notes, confidence_level, degraded, analysis_date
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	conditions, err := json.Marshal(a.SuspectedConditions)
	if err != nil {
		return err
	}
	medications, err := json.Marshal(a.RecommendedMedications)
	if err != nil {
		return err
	}
	tests, err := json.Marshal(a.AdditionalTests)
	if err != nil {
		return err
	}
	risks, err := json.Marshal(a.RiskFactors)
	if err != nil {
		return err
	}

	var batchID sql.NullString
	if a.BatchID != "" {
		batchID = sql.NullString{String: a.BatchID, Valid: true}
	}

	_, err = r.DB.ExecContext(ctx, query,
		a.ID,
		a.RecordID,
		a.PatientID,
		batchID,
		conditions,
		medications,
		tests,
		risks,
		a.TreatmentNotes,
		a.ConfidenceLevel,
		a.Degraded,
		a.AnalysisDate,
	)
	return err
}

// GetByPatient returns the most recent analysis for a patient.
func (r *PGRepo) GetByPatient(ctx context.Context, patientID string) (ClinicalAnalysis, error) {
	const query = selectAnalysis + `
WHERE patient_id = $1
ORDER BY analysis_date DESC
LIMIT 1`
	a, err := scanAnalysis(r.DB.QueryRowContext(ctx, query, patientID))
	if errors.Is(err, sql.ErrNoRows) {
		return ClinicalAnalysis{}, ErrNotFound
	}
	return a, err
}

// ListByBatch returns all analyses for a batch ordered by completion.
func (r *PGRepo) ListByBatch(ctx context.Context, batchID string) ([]ClinicalAnalysis, error) {
	const query = selectAnalysis + `
WHERE batch_id = $1
ORDER BY analysis_date`
	rows, err := r.DB.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ClinicalAnalysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const selectAnalysis = `
SELECT id, record_id, patient_id, batch_id, suspected_conditions, recommended_medications,
       additional_tests, risk_factors, treatment_notes, confidence_level, degraded, analysis_date
FROM analyses`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (ClinicalAnalysis, error) {
	var a ClinicalAnalysis
	var batchID sql.NullString
	var conditions, medications, tests, risks []byte

	if err := row.Scan(
		&a.ID, &a.RecordID, &a.PatientID, &batchID, &conditions, &medications,
		&tests, &risks, &a.TreatmentNotes, &a.ConfidenceLevel, &a.Degraded, &a.AnalysisDate,
	); err != nil {
		return ClinicalAnalysis{}, err
	}
	a.BatchID = batchID.String

	if err := json.Unmarshal(conditions, &a.SuspectedConditions); err != nil {
		return ClinicalAnalysis{}, err
	}
	if err := json.Unmarshal(medications, &a.RecommendedMedications); err != nil {
		return ClinicalAnalysis{}, err
	}
	if err := json.Unmarshal(tests, &a.AdditionalTests); err != nil {
		return ClinicalAnalysis{}, err
	}
	if err := json.Unmarshal(risks, &a.RiskFactors); err != nil {
		return ClinicalAnalysis{}, err
	}
	return a, nil
}

var _ Repo = (*PGRepo)(nil)
