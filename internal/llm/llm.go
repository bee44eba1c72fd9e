package llm

import (
	"context"
	"errors"
	"fmt"
)

// Client abstracts chat-completion providers for clinical case analysis.
type Client interface {
	// AnalyzeCase sends the case to the model and returns the raw response text.
	// The response is NOT guaranteed to be valid JSON; callers normalize it.
	AnalyzeCase(ctx context.Context, input CaseInput) (string, error)
	// Summarize produces a short physician-facing summary of a finished analysis.
	Summarize(ctx context.Context, input SummaryInput) (string, error)
}

// CaseInput captures the patient data embedded into the analysis prompt.
type CaseInput struct {
	PatientID          string
	Age                int
	Gender             string
	WeightKg           float64
	MedicalHistory     []string
	Allergies          []string
	CurrentMedications []string
	PrimarySymptoms    []string
	SecondarySymptoms  []string
	SymptomDuration    string
	Severity           string
	Vitals             *VitalsInput
	LabResults         map[string]string
}

// VitalsInput holds the vital signs section of the prompt.
type VitalsInput struct {
	BloodPressure    string
	HeartRate        int
	TemperatureC     float64
	RespiratoryRate  int
	OxygenSaturation float64
}

// SummaryInput captures the fields embedded into the report-summary prompt.
type SummaryInput struct {
	PatientID           string
	SuspectedConditions []string
	MedicationCount     int
	ConfidenceLevel     string
}

// StatusError reports a non-2xx response from the provider.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm provider http status %d: %s", e.Code, e.Body)
}

// ErrEmptyResponse is returned when the provider answers with no content.
var ErrEmptyResponse = errors.New("llm response empty content")
