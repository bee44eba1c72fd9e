package batch

import (
	"time"

	"medrecords-backend/internal/analysis"
)

// Batch states. A batch never moves to failed because of individual
// case failures; failed is reserved for setup catastrophes.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Outcome states per case.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// BatchJob tracks one bulk submission.
type BatchJob struct {
	BatchID          string        `json:"batch_id"`
	TotalRecords     int           `json:"total_records"`
	ProcessedRecords int           `json:"processed_records"`
	Status           string        `json:"status"`
	Errors           []string      `json:"errors"`
	Summary          *BatchSummary `json:"summary,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
}

// CaseOutcome is the resolution of one case within a batch.
type CaseOutcome struct {
	CaseID     string                     `json:"case_id"`
	PatientID  string                     `json:"patient_id"`
	Status     string                     `json:"status"`
	Error      string                     `json:"error,omitempty"`
	AnalysisID string                     `json:"analysis_id,omitempty"`
	Analysis   *analysis.ClinicalAnalysis `json:"analysis,omitempty"`
	RecordedAt time.Time                  `json:"recorded_at"`
}

// RankedItem is one entry in a frequency ranking.
type RankedItem struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// BatchSummary aggregates a finished batch.
type BatchSummary struct {
	TotalConditionsFound      int          `json:"total_conditions_found"`
	MostCommonConditions      []RankedItem `json:"most_common_conditions"`
	MostPrescribedMedications []RankedItem `json:"most_prescribed_medications"`
	AverageConfidence         float64      `json:"average_confidence"`
	SuccessfulAnalyses        int          `json:"total_successful_analyses"`
	FailedAnalyses            int          `json:"total_failed_analyses"`
	Recommendations           []string     `json:"recommendations"`
}

// SubmitResult reports what a bulk upload produced.
type SubmitResult struct {
	BatchID          string   `json:"batch_id"`
	TotalRecords     int      `json:"total_records"`
	ValidRecords     int      `json:"valid_records"`
	ConversionErrors int      `json:"conversion_errors"`
	Errors           []string `json:"errors,omitempty"`
	Status           string   `json:"status"`
}
