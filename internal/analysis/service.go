package analysis

import (
	"context"
	"time"

	"github.com/google/uuid"

	"medrecords-backend/internal/records"
	"medrecords-backend/internal/shared/telemetry"
)

// Service coordinates single-case analysis: persist the record, run the
// orchestrator, persist the result.
type Service struct {
	Records  records.Repo
	Analyses Repo
	Orch     *Orchestrator
}

// NewService constructs a Service.
func NewService(recordsRepo records.Repo, analysesRepo Repo, orch *Orchestrator) *Service {
	return &Service{Records: recordsRepo, Analyses: analysesRepo, Orch: orch}
}

// SubmitSingleCase stores the case, analyzes it synchronously and
// returns the stored analysis. A *GatewayError is returned when every
// gateway attempt failed.
func (s *Service) SubmitSingleCase(ctx context.Context, c records.PatientCase) (ClinicalAnalysis, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	if err := s.Records.SaveCase(ctx, c); err != nil {
		return ClinicalAnalysis{}, err
	}

	a, err := s.Orch.Analyze(ctx, c)
	if err != nil {
		return ClinicalAnalysis{}, err
	}
	a.ID = uuid.NewString()

	if err := s.Analyses.Save(ctx, a); err != nil {
		return ClinicalAnalysis{}, err
	}

	telemetry.Info("analysis.completed", map[string]any{
		"patientId":  a.PatientID,
		"analysisId": a.ID,
		"confidence": a.ConfidenceLevel,
		"degraded":   a.Degraded,
	})
	return a, nil
}

// GetResult returns the latest analysis for a patient.
func (s *Service) GetResult(ctx context.Context, patientID string) (ClinicalAnalysis, error) {
	return s.Analyses.GetByPatient(ctx, patientID)
}
