package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// SaveCase upserts the patient and inserts the medical record in one
// transaction.
func (r *PGRepo) SaveCase(ctx context.Context, c PatientCase) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	history, err := marshalJSONB(c.Patient.MedicalHistory)
	if err != nil {
		return err
	}
	allergies, err := marshalJSONB(c.Patient.Allergies)
	if err != nil {
		return err
	}
	meds, err := marshalJSONB(c.Patient.CurrentMedications)
	if err != nil {
		return err
	}

	const upsertPatient = `
INSERT INTO patients (patient_id, name, age, gender, weight, height, medical_history, allergies, current_medications, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
ON CONFLICT (patient_id) DO UPDATE SET
	name = EXCLUDED.name,
	age = EXCLUDED.age,
	gender = EXCLUDED.gender,
	weight = EXCLUDED.weight,
	height = EXCLUDED.height,
	medical_history = EXCLUDED.medical_history,
	allergies = EXCLUDED.allergies,
	current_medications = EXCLUDED.current_medications,
	updated_at = now()`
	if _, err := tx.ExecContext(ctx, upsertPatient,
		c.Patient.PatientID,
		c.Patient.Name,
		c.Patient.Age,
		c.Patient.Gender,
		nullFloatValue(c.Patient.WeightKg),
		nullFloatValue(c.Patient.HeightCm),
		history,
		allergies,
		meds,
	); err != nil {
		return fmt.Errorf("upsert patient: %w", err)
	}

	primary, err := marshalJSONB(c.Symptoms.Primary)
	if err != nil {
		return err
	}
	secondary, err := marshalJSONB(c.Symptoms.Secondary)
	if err != nil {
		return err
	}
	labs, err := marshalJSONB(c.LabResults)
	if err != nil {
		return err
	}

	var temperature, oxygen sql.NullFloat64
	var heartRate, respRate sql.NullInt64
	var bloodPressure sql.NullString
	if v := c.Vitals; v != nil {
		temperature = nullFloatValue(v.Temperature)
		oxygen = nullFloatValue(v.OxygenSaturation)
		heartRate = nullIntValue(v.HeartRate)
		respRate = nullIntValue(v.RespiratoryRate)
		if v.BloodPressure != "" {
			bloodPressure = sql.NullString{String: v.BloodPressure, Valid: true}
		}
	}

	const insertRecord = `
INSERT INTO medical_records (
	id, patient_id, batch_id, primary_symptoms, secondary_symptoms, symptom_duration, severity,
	temperature, blood_pressure, heart_rate, respiratory_rate, oxygen_saturation,
	lab_results, additional_notes, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	if _, err := tx.ExecContext(ctx, insertRecord,
		c.ID,
		c.Patient.PatientID,
		nullString(c.BatchID),
		primary,
		secondary,
		nullString(c.Symptoms.Duration),
		nullString(c.Symptoms.Severity),
		temperature,
		bloodPressure,
		heartRate,
		respRate,
		oxygen,
		labs,
		nullString(c.AdditionalNotes),
		c.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert medical record: %w", err)
	}

	return tx.Commit()
}

// GetCase returns a case by id.
func (r *PGRepo) GetCase(ctx context.Context, id string) (PatientCase, error) {
	const query = selectCase + ` WHERE mr.id = $1 LIMIT 1`
	row := r.DB.QueryRowContext(ctx, query, id)
	c, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return PatientCase{}, ErrNotFound
	}
	return c, err
}

// ListByBatch returns all cases for a batch ordered by insertion time.
func (r *PGRepo) ListByBatch(ctx context.Context, batchID string) ([]PatientCase, error) {
	const query = selectCase + ` WHERE mr.batch_id = $1 ORDER BY mr.created_at`
	rows, err := r.DB.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cases []PatientCase
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

const selectCase = `
SELECT mr.id, mr.patient_id, mr.batch_id, mr.primary_symptoms, mr.secondary_symptoms,
       mr.symptom_duration, mr.severity, mr.temperature, mr.blood_pressure, mr.heart_rate,
       mr.respiratory_rate, mr.oxygen_saturation, mr.lab_results, mr.additional_notes, mr.created_at,
       p.name, p.age, p.gender, p.weight, p.height, p.medical_history, p.allergies, p.current_medications
FROM medical_records mr
JOIN patients p ON p.patient_id = mr.patient_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (PatientCase, error) {
	var c PatientCase
	var batchID, duration, severity, bloodPressure, notes sql.NullString
	var temperature, oxygen, weight, height sql.NullFloat64
	var heartRate, respRate sql.NullInt64
	var primary, secondary, labs, history, allergies, meds []byte
	var createdAt time.Time

	if err := row.Scan(
		&c.ID, &c.Patient.PatientID, &batchID, &primary, &secondary,
		&duration, &severity, &temperature, &bloodPressure, &heartRate,
		&respRate, &oxygen, &labs, &notes, &createdAt,
		&c.Patient.Name, &c.Patient.Age, &c.Patient.Gender, &weight, &height,
		&history, &allergies, &meds,
	); err != nil {
		return PatientCase{}, err
	}

	c.BatchID = batchID.String
	c.Symptoms.Duration = duration.String
	c.Symptoms.Severity = severity.String
	c.AdditionalNotes = notes.String
	c.CreatedAt = createdAt
	c.Patient.WeightKg = floatPtr(weight)
	c.Patient.HeightCm = floatPtr(height)

	if err := unmarshalJSONB(primary, &c.Symptoms.Primary); err != nil {
		return PatientCase{}, err
	}
	if err := unmarshalJSONB(secondary, &c.Symptoms.Secondary); err != nil {
		return PatientCase{}, err
	}
	if err := unmarshalJSONB(labs, &c.LabResults); err != nil {
		return PatientCase{}, err
	}
	if err := unmarshalJSONB(history, &c.Patient.MedicalHistory); err != nil {
		return PatientCase{}, err
	}
	if err := unmarshalJSONB(allergies, &c.Patient.Allergies); err != nil {
		return PatientCase{}, err
	}
	if err := unmarshalJSONB(meds, &c.Patient.CurrentMedications); err != nil {
		return PatientCase{}, err
	}

	if temperature.Valid || bloodPressure.Valid || heartRate.Valid || respRate.Valid || oxygen.Valid {
		c.Vitals = &VitalSigns{
			Temperature:      floatPtr(temperature),
			BloodPressure:    bloodPressure.String,
			HeartRate:        intPtr(heartRate),
			RespiratoryRate:  intPtr(respRate),
			OxygenSaturation: floatPtr(oxygen),
		}
	}
	return c, nil
}

func marshalJSONB(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func unmarshalJSONB(data []byte, dst any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloatValue(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func nullIntValue(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

var _ Repo = (*PGRepo)(nil)
