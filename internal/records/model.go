package records

import "time"

// Patient holds the demographic section of a case.
type Patient struct {
	PatientID          string   `json:"patient_id"`
	Name               string   `json:"name"`
	Age                int      `json:"age"`
	Gender             string   `json:"gender"`
	WeightKg           *float64 `json:"weight,omitempty"`
	HeightCm           *float64 `json:"height,omitempty"`
	MedicalHistory     []string `json:"medical_history"`
	Allergies          []string `json:"allergies"`
	CurrentMedications []string `json:"current_medications"`
}

// Symptoms holds the reported symptom section of a case.
type Symptoms struct {
	Primary   []string `json:"primary_symptoms"`
	Secondary []string `json:"secondary_symptoms"`
	Duration  string   `json:"symptom_duration,omitempty"`
	Severity  string   `json:"severity,omitempty"`
}

// VitalSigns holds measured vitals. Nil pointer fields mean "not recorded".
type VitalSigns struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	BloodPressure    string   `json:"blood_pressure,omitempty"`
	HeartRate        *int     `json:"heart_rate,omitempty"`
	RespiratoryRate  *int     `json:"respiratory_rate,omitempty"`
	OxygenSaturation *float64 `json:"oxygen_saturation,omitempty"`
}

// PatientCase is one patient record submitted for analysis.
type PatientCase struct {
	ID              string            `json:"id"`
	BatchID         string            `json:"batch_id,omitempty"`
	Patient         Patient           `json:"patient_info"`
	Symptoms        Symptoms          `json:"symptoms"`
	Vitals          *VitalSigns       `json:"vital_signs,omitempty"`
	LabResults      map[string]string `json:"lab_results,omitempty"`
	AdditionalNotes string            `json:"additional_notes,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}
