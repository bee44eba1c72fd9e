package openrouter

import (
	"fmt"
	"sort"
	"strings"

	"medrecords-backend/internal/llm"
)

const systemPrompt = `You are a medical AI assistant. You MUST respond with ONLY a valid JSON object in the exact format specified below. Do not include any markdown formatting, explanations, or additional text.

CRITICAL: Your response must be ONLY valid JSON that can be parsed directly. No markdown, no explanations, no reasoning - just the JSON object.

Required JSON format:
{
    "suspected_conditions": ["condition1", "condition2"],
    "recommended_medications": [
        {
            "medication_name": "medication name",
            "dosage": "dosage amount",
            "frequency": "frequency",
            "duration": "duration",
            "instructions": "instructions",
            "contraindications": ["contraindication1", "contraindication2"],
            "side_effects": ["side_effect1", "side_effect2"],
            "confidence_score": 0.85
        }
    ],
    "additional_tests": ["test1", "test2"],
    "risk_factors": ["risk1", "risk2"],
    "treatment_notes": "detailed treatment notes",
    "confidence_level": "high"
}

IMPORTANT DISCLAIMERS TO INCLUDE IN TREATMENT NOTES:
- This is for educational/research purposes only
- Not for actual medical diagnosis or treatment
- Always recommend consulting healthcare professionals
- Base recommendations on medical guidelines

Respond with ONLY the JSON object, nothing else.`

const summarySystemPrompt = "Generate professional medical report summaries for educational purposes only."

// BuildCasePrompt renders the user message for a case analysis request.
func BuildCasePrompt(input llm.CaseInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze this patient medical record and respond with ONLY valid JSON:\n\n")
	fmt.Fprintf(&b, "Patient: %dyr %s\n", input.Age, input.Gender)
	if input.WeightKg > 0 {
		fmt.Fprintf(&b, "Weight: %.1fkg\n", input.WeightKg)
	}
	fmt.Fprintf(&b, "Medical History: %s\n", joinOrNone(input.MedicalHistory))
	fmt.Fprintf(&b, "Allergies: %s\n", joinOrNone(input.Allergies))
	fmt.Fprintf(&b, "Current Medications: %s\n", joinOrNone(input.CurrentMedications))

	b.WriteString("\nSymptoms:\n")
	fmt.Fprintf(&b, "Primary: %s\n", strings.Join(input.PrimarySymptoms, ", "))
	fmt.Fprintf(&b, "Secondary: %s\n", strings.Join(input.SecondarySymptoms, ", "))
	fmt.Fprintf(&b, "Duration: %s\n", orDefault(input.SymptomDuration, "Not specified"))
	fmt.Fprintf(&b, "Severity: %s\n", orDefault(input.Severity, "Not specified"))

	b.WriteString("\nVital Signs:\n")
	if v := input.Vitals; v != nil {
		if v.BloodPressure != "" {
			fmt.Fprintf(&b, "BP: %s\n", v.BloodPressure)
		} else {
			b.WriteString("BP: Not recorded\n")
		}
		if v.HeartRate > 0 {
			fmt.Fprintf(&b, "HR: %d bpm\n", v.HeartRate)
		} else {
			b.WriteString("HR: Not recorded\n")
		}
		if v.TemperatureC > 0 {
			fmt.Fprintf(&b, "Temp: %.1f°C\n", v.TemperatureC)
		} else {
			b.WriteString("Temp: Not recorded\n")
		}
		if v.RespiratoryRate > 0 {
			fmt.Fprintf(&b, "Respiratory Rate: %d\n", v.RespiratoryRate)
		}
		if v.OxygenSaturation > 0 {
			fmt.Fprintf(&b, "SpO2: %.1f%%\n", v.OxygenSaturation)
		}
	} else {
		b.WriteString("BP: Not recorded\nHR: Not recorded\nTemp: Not recorded\n")
	}

	fmt.Fprintf(&b, "\nLab Results: %s\n", labResultsLine(input.LabResults))
	b.WriteString("\nRespond with ONLY the JSON object - no other text, explanations, or formatting.")
	return b.String()
}

// BuildSummaryPrompt renders the user message for a doctor-report summary.
func BuildSummaryPrompt(input llm.SummaryInput) string {
	var b strings.Builder
	b.WriteString("Generate a professional medical report summary for:\n")
	fmt.Fprintf(&b, "Patient ID: %s\n", input.PatientID)
	fmt.Fprintf(&b, "Suspected Conditions: %s\n", strings.Join(input.SuspectedConditions, ", "))
	fmt.Fprintf(&b, "Recommended Medications: %d medications\n", input.MedicationCount)
	fmt.Fprintf(&b, "Confidence Level: %s\n", input.ConfidenceLevel)
	b.WriteString("\nProvide a concise professional summary for the attending physician.")
	return b.String()
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "None"
	}
	return strings.Join(values, ", ")
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func labResultsLine(labs map[string]string) string {
	if len(labs) == 0 {
		return "None"
	}
	keys := make([]string, 0, len(labs))
	for k := range labs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, labs[k]))
	}
	return strings.Join(parts, "; ")
}
