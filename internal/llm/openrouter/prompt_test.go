package openrouter

import (
	"strings"
	"testing"

	"medrecords-backend/internal/llm"
)

func TestBuildCasePromptIncludesPatientSections(t *testing.T) {
	input := llm.CaseInput{
		PatientID:          "patient_1",
		Age:                58,
		Gender:             "male",
		WeightKg:           82,
		MedicalHistory:     []string{"hypertension", "type 2 diabetes"},
		Allergies:          []string{"penicillin"},
		CurrentMedications: []string{"metformin"},
		PrimarySymptoms:    []string{"chest pain", "shortness of breath"},
		SymptomDuration:    "2 hours",
		Severity:           "severe",
		Vitals: &llm.VitalsInput{
			BloodPressure: "160/95",
			HeartRate:     102,
			TemperatureC:  37.2,
		},
		LabResults: map[string]string{"troponin": "elevated"},
	}

	prompt := BuildCasePrompt(input)

	for _, want := range []string{
		"Patient: 58yr male",
		"Medical History: hypertension, type 2 diabetes",
		"Allergies: penicillin",
		"Primary: chest pain, shortness of breath",
		"Duration: 2 hours",
		"Severity: severe",
		"BP: 160/95",
		"HR: 102 bpm",
		"troponin: elevated",
		"ONLY valid JSON",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q\nprompt:\n%s", want, prompt)
		}
	}
}

func TestBuildCasePromptDefaults(t *testing.T) {
	input := llm.CaseInput{
		Age:             40,
		Gender:          "female",
		PrimarySymptoms: []string{"headache"},
	}

	prompt := BuildCasePrompt(input)

	for _, want := range []string{
		"Medical History: None",
		"Allergies: None",
		"Current Medications: None",
		"Duration: Not specified",
		"Severity: Not specified",
		"BP: Not recorded",
		"HR: Not recorded",
		"Temp: Not recorded",
		"Lab Results: None",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildCasePromptStableLabOrder(t *testing.T) {
	input := llm.CaseInput{
		Age:             30,
		Gender:          "male",
		PrimarySymptoms: []string{"fever"},
		LabResults: map[string]string{
			"wbc":      "12.1",
			"crp":      "40",
			"troponin": "normal",
		},
	}

	first := BuildCasePrompt(input)
	for i := 0; i < 10; i++ {
		if got := BuildCasePrompt(input); got != first {
			t.Fatal("prompt text not deterministic across runs")
		}
	}
	if !strings.Contains(first, "crp: 40; troponin: normal; wbc: 12.1") {
		t.Errorf("lab results not sorted: %s", first)
	}
}

func TestBuildSummaryPrompt(t *testing.T) {
	prompt := BuildSummaryPrompt(llm.SummaryInput{
		PatientID:           "P123",
		SuspectedConditions: []string{"Angina", "Hypertension"},
		MedicationCount:     2,
		ConfidenceLevel:     "high",
	})

	for _, want := range []string{
		"Patient ID: P123",
		"Suspected Conditions: Angina, Hypertension",
		"Recommended Medications: 2 medications",
		"Confidence Level: high",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("summary prompt missing %q", want)
		}
	}
}
