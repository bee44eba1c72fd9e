package records

import (
	"fmt"
	"strconv"
	"strings"

	"medrecords-backend/internal/tabular"
)

// RowShape identifies which known column layout a row uses.
type RowShape int

const (
	// ShapeTraditional is the clinical intake layout.
	ShapeTraditional RowShape = iota
	// ShapeWearable is the wearable-device telemetry export layout.
	ShapeWearable
)

// wearable exports carry a device identifier column that clinical
// intake sheets never have.
const wearableDiscriminator = "device_id"

// DetectShape classifies a row by its discriminating column.
func DetectShape(row tabular.Row) RowShape {
	if _, ok := row[wearableDiscriminator]; ok {
		return ShapeWearable
	}
	return ShapeTraditional
}

// BuildCase converts one parsed row into a PatientCase. rowIndex is used
// for generated patient ids and error reporting. The storage id is
// assigned at persistence time so identical rows build identical cases.
// Fails with *ValidationError when age or gender is absent or unparseable.
func BuildCase(row tabular.Row, rowIndex int) (PatientCase, error) {
	age, err := requiredInt(row, "age", rowIndex)
	if err != nil {
		return PatientCase{}, err
	}
	gender := row.Get("gender")
	if gender == "" {
		return PatientCase{}, &ValidationError{Row: rowIndex, Field: "gender", Reason: "missing value"}
	}

	patientID := row.Get("patient_id")
	if patientID == "" {
		patientID = fmt.Sprintf("patient_%d", rowIndex)
	}
	name := row.Get("name")
	if name == "" {
		name = "Patient_" + patientID
	}

	c := PatientCase{
		Patient: Patient{
			PatientID:          patientID,
			Name:               name,
			Age:                age,
			Gender:             gender,
			WeightKg:           optionalFloat(row, "weight"),
			HeightCm:           optionalFloat(row, "height"),
			MedicalHistory:     splitList(row.Get("medical_history")),
			Allergies:          splitList(row.Get("allergies")),
			CurrentMedications: splitList(row.Get("current_medications")),
		},
		AdditionalNotes: row.Get("additional_notes"),
	}

	switch DetectShape(row) {
	case ShapeWearable:
		mapWearable(row, &c)
	default:
		mapTraditional(row, &c)
	}

	if len(c.Symptoms.Primary) == 0 {
		c.Symptoms.Primary = []string{"General consultation"}
	}
	if c.Symptoms.Secondary == nil {
		c.Symptoms.Secondary = []string{}
	}
	if c.Symptoms.Severity == "" {
		c.Symptoms.Severity = "moderate"
	}
	if c.Symptoms.Duration == "" {
		c.Symptoms.Duration = "Not specified"
	}
	return c, nil
}

// mapTraditional reads the clinical intake layout.
func mapTraditional(row tabular.Row, c *PatientCase) {
	c.Symptoms.Primary = splitList(row.Get("symptoms"))
	c.Symptoms.Duration = row.Get("symptom_duration")
	c.Symptoms.Severity = row.Get("severity")

	if hasAny(row, "temperature", "blood_pressure", "heart_rate", "respiratory_rate", "oxygen_saturation") {
		c.Vitals = &VitalSigns{
			Temperature:      optionalFloat(row, "temperature"),
			BloodPressure:    row.Get("blood_pressure"),
			HeartRate:        optionalInt(row, "heart_rate"),
			RespiratoryRate:  optionalInt(row, "respiratory_rate"),
			OxygenSaturation: optionalFloat(row, "oxygen_saturation"),
		}
	}
}

// mapWearable reads the device telemetry layout. Device alerts surface
// as secondary symptoms so the analysis prompt sees them.
func mapWearable(row tabular.Row, c *PatientCase) {
	c.Symptoms.Primary = splitList(row.Get("symptoms"))
	c.Symptoms.Secondary = splitList(row.Get("alerts"))
	c.Symptoms.Severity = row.Get("severity")

	vitals := &VitalSigns{
		Temperature:      optionalFloat(row, "body_temperature"),
		HeartRate:        optionalInt(row, "heart_rate"),
		OxygenSaturation: optionalFloat(row, "spo2"),
	}
	if sys, dia := row.Get("blood_pressure_systolic"), row.Get("blood_pressure_diastolic"); sys != "" && dia != "" {
		vitals.BloodPressure = sys + "/" + dia
	} else {
		vitals.BloodPressure = row.Get("blood_pressure")
	}
	c.Vitals = vitals
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func hasAny(row tabular.Row, columns ...string) bool {
	for _, col := range columns {
		if _, ok := row[col]; ok {
			return true
		}
	}
	return false
}

func requiredInt(row tabular.Row, column string, rowIndex int) (int, error) {
	raw := row.Get(column)
	if raw == "" {
		return 0, &ValidationError{Row: rowIndex, Field: column, Reason: "missing value"}
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		// Some exports write integers as floats ("45.0").
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return 0, &ValidationError{Row: rowIndex, Field: column, Reason: fmt.Sprintf("not a number: %q", raw)}
		}
		v = int(f)
	}
	return v, nil
}

func optionalInt(row tabular.Row, column string) *int {
	raw := row.Get(column)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return nil
		}
		v = int(f)
	}
	return &v
}

func optionalFloat(row tabular.Row, column string) *float64 {
	raw := row.Get(column)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}
