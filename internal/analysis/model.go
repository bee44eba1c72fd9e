package analysis

import "time"

// Confidence levels reported on an analysis.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// MedicationRecommendation is one recommended medication with dosing
// details. ConfidenceScore is clamped to [0,1] during normalization.
type MedicationRecommendation struct {
	MedicationName    string   `json:"medication_name"`
	Dosage            string   `json:"dosage"`
	Frequency         string   `json:"frequency"`
	Duration          string   `json:"duration,omitempty"`
	Instructions      string   `json:"instructions,omitempty"`
	Contraindications []string `json:"contraindications"`
	SideEffects       []string `json:"side_effects"`
	ConfidenceScore   float64  `json:"confidence_score"`
}

// ClinicalAnalysis is the validated analysis for one case.
type ClinicalAnalysis struct {
	ID                     string                     `json:"id,omitempty"`
	RecordID               string                     `json:"record_id,omitempty"`
	PatientID              string                     `json:"patient_id"`
	BatchID                string                     `json:"batch_id,omitempty"`
	SuspectedConditions    []string                   `json:"suspected_conditions"`
	RecommendedMedications []MedicationRecommendation `json:"recommended_medications"`
	AdditionalTests        []string                   `json:"additional_tests"`
	RiskFactors            []string                   `json:"risk_factors"`
	TreatmentNotes         string                     `json:"treatment_notes"`
	ConfidenceLevel        string                     `json:"confidence_level"`
	Degraded               bool                       `json:"degraded,omitempty"`
	AnalysisDate           time.Time                  `json:"analysis_date"`
}
