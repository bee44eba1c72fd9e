package analysis

import (
	"context"
	"time"

	"medrecords-backend/internal/llm"
	"medrecords-backend/internal/records"
	"medrecords-backend/internal/shared/metrics"
	"medrecords-backend/internal/shared/telemetry"
)

// RetryPolicy governs retries against the LLM gateway. Backoff returns
// the delay before the given attempt (1-based).
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

// FixedBackoff builds a policy with a constant delay between attempts.
func FixedBackoff(maxAttempts int, delay time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Backoff:     func(int) time.Duration { return delay },
	}
}

// Orchestrator runs one case through the gateway and normalizer.
type Orchestrator struct {
	client llm.Client
	policy RetryPolicy
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(client llm.Client, policy RetryPolicy) *Orchestrator {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Orchestrator{client: client, policy: policy}
}

// Analyze sends the case to the gateway, retrying per policy, and
// normalizes the raw response. Any transport, timeout, or HTTP error is
// retried; after the final failed attempt a *GatewayError is returned.
// A successful round trip always yields a usable analysis because
// Normalize never fails.
func (o *Orchestrator) Analyze(ctx context.Context, c records.PatientCase) (ClinicalAnalysis, error) {
	metrics.IncCaseAnalysisStarted()
	start := time.Now()

	input := toCaseInput(c)

	var lastErr error
	for attempt := 1; attempt <= o.policy.MaxAttempts; attempt++ {
		raw, err := o.client.AnalyzeCase(ctx, input)
		if err == nil {
			a := Normalize(raw)
			a.RecordID = c.ID
			a.PatientID = c.Patient.PatientID
			a.BatchID = c.BatchID
			a.AnalysisDate = time.Now().UTC()
			if a.Degraded {
				metrics.IncCaseAnalysisFallback()
				telemetry.Warn("analysis.parsing_degraded", map[string]any{
					"patientId":  c.Patient.PatientID,
					"rawPreview": preview(raw, 120),
				})
			}
			metrics.IncCaseAnalysisCompleted()
			metrics.ObserveAnalysisDurationMs(float64(time.Since(start).Milliseconds()))
			return a, nil
		}

		lastErr = err
		telemetry.Error("analysis.gateway_attempt_failed", map[string]any{
			"patientId": c.Patient.PatientID,
			"attempt":   attempt,
			"error":     err.Error(),
		})

		if attempt == o.policy.MaxAttempts {
			break
		}
		metrics.IncGatewayRetry()
		if err := o.wait(ctx, attempt); err != nil {
			metrics.IncCaseAnalysisFailed()
			return ClinicalAnalysis{}, &GatewayError{Attempts: attempt, Last: err}
		}
	}

	metrics.IncCaseAnalysisFailed()
	return ClinicalAnalysis{}, &GatewayError{Attempts: o.policy.MaxAttempts, Last: lastErr}
}

func (o *Orchestrator) wait(ctx context.Context, attempt int) error {
	delay := time.Duration(0)
	if o.policy.Backoff != nil {
		delay = o.policy.Backoff(attempt)
	}
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func toCaseInput(c records.PatientCase) llm.CaseInput {
	input := llm.CaseInput{
		PatientID:          c.Patient.PatientID,
		Age:                c.Patient.Age,
		Gender:             c.Patient.Gender,
		MedicalHistory:     c.Patient.MedicalHistory,
		Allergies:          c.Patient.Allergies,
		CurrentMedications: c.Patient.CurrentMedications,
		PrimarySymptoms:    c.Symptoms.Primary,
		SecondarySymptoms:  c.Symptoms.Secondary,
		SymptomDuration:    c.Symptoms.Duration,
		Severity:           c.Symptoms.Severity,
		LabResults:         c.LabResults,
	}
	if c.Patient.WeightKg != nil {
		input.WeightKg = *c.Patient.WeightKg
	}
	if v := c.Vitals; v != nil {
		vi := &llm.VitalsInput{BloodPressure: v.BloodPressure}
		if v.HeartRate != nil {
			vi.HeartRate = *v.HeartRate
		}
		if v.Temperature != nil {
			vi.TemperatureC = *v.Temperature
		}
		if v.RespiratoryRate != nil {
			vi.RespiratoryRate = *v.RespiratoryRate
		}
		if v.OxygenSaturation != nil {
			vi.OxygenSaturation = *v.OxygenSaturation
		}
		input.Vitals = vi
	}
	return input
}

// preview truncates s to at most n runes, never splitting a UTF-8
// sequence mid-character.
func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
