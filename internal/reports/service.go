package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"medrecords-backend/internal/analysis"
	"medrecords-backend/internal/llm"
	"medrecords-backend/internal/shared/telemetry"
)

// Service generates and stores doctor reports from completed analyses.
type Service struct {
	Analyses analysis.Repo
	Reports  Repo
	Client   llm.Client
}

// NewService constructs a Service.
func NewService(analyses analysis.Repo, reportsRepo Repo, client llm.Client) *Service {
	return &Service{Analyses: analyses, Reports: reportsRepo, Client: client}
}

// Generate builds a doctor report from the patient's latest analysis.
// The narrative summary comes from the language model; when that call
// fails the report falls back to a templated summary rather than
// failing the request.
func (s *Service) Generate(ctx context.Context, patientID, doctorID string) (DoctorReport, error) {
	a, err := s.Analyses.GetByPatient(ctx, patientID)
	if err != nil {
		return DoctorReport{}, err
	}

	summary := s.summarize(ctx, a)

	now := time.Now().UTC()
	report := DoctorReport{
		ReportID:                uuid.NewString(),
		DisplayID:               fmt.Sprintf("RPT_%s_%s", patientID, now.Format("20060102_150405")),
		PatientID:               patientID,
		DoctorID:                doctorID,
		AnalysisSummary:         summary,
		MedicationsPrescribed:   a.RecommendedMedications,
		FollowUpRecommendations: a.AdditionalTests,
		GeneratedDate:           now,
	}
	if report.MedicationsPrescribed == nil {
		report.MedicationsPrescribed = []analysis.MedicationRecommendation{}
	}
	if report.FollowUpRecommendations == nil {
		report.FollowUpRecommendations = []string{}
	}

	if err := s.Reports.Save(ctx, report); err != nil {
		return DoctorReport{}, err
	}

	telemetry.Info("reports.generated", map[string]any{
		"reportId":  report.ReportID,
		"patientId": patientID,
		"doctorId":  doctorID,
	})
	return report, nil
}

func (s *Service) summarize(ctx context.Context, a analysis.ClinicalAnalysis) string {
	summary, err := s.Client.Summarize(ctx, llm.SummaryInput{
		PatientID:           a.PatientID,
		SuspectedConditions: a.SuspectedConditions,
		MedicationCount:     len(a.RecommendedMedications),
		ConfidenceLevel:     a.ConfidenceLevel,
	})
	if err != nil || strings.TrimSpace(summary) == "" {
		if err != nil {
			telemetry.Warn("reports.summary_fallback", map[string]any{
				"patientId": a.PatientID,
				"error":     err.Error(),
			})
		}
		return fmt.Sprintf("Analysis completed for patient %s with %s confidence level.", a.PatientID, a.ConfidenceLevel)
	}
	return summary
}

// Get returns a stored report by id.
func (s *Service) Get(ctx context.Context, reportID string) (DoctorReport, error) {
	return s.Reports.Get(ctx, reportID)
}
