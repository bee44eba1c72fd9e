package reports

import (
	"time"

	"medrecords-backend/internal/analysis"
)

// DoctorReport is a physician-facing summary of a patient's latest
// analysis. DisplayID is the human-readable identifier shown on the
// rendered report; ReportID is the storage key.
type DoctorReport struct {
	ReportID                string                              `json:"report_id"`
	DisplayID               string                              `json:"display_id"`
	PatientID               string                              `json:"patient_id"`
	DoctorID                string                              `json:"doctor_id"`
	AnalysisSummary         string                              `json:"analysis_summary"`
	MedicationsPrescribed   []analysis.MedicationRecommendation `json:"medications_prescribed"`
	FollowUpRecommendations []string                            `json:"follow_up_recommendations"`
	GeneratedDate           time.Time                           `json:"generated_date"`
}
