package analysis

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

const validResponse = `{
	"suspected_conditions": ["Unstable angina", "Hypertensive crisis"],
	"recommended_medications": [{
		"medication_name": "Nitroglycerin",
		"dosage": "0.4mg sublingual",
		"frequency": "Every 5 minutes as needed",
		"duration": "Up to 3 doses",
		"instructions": "Sit down before taking",
		"contraindications": ["Hypotension"],
		"side_effects": ["Headache"],
		"confidence_score": 0.82
	}],
	"additional_tests": ["ECG", "Troponin"],
	"risk_factors": ["Hypertension", "Smoking"],
	"treatment_notes": "Immediate evaluation advised. Educational use only.",
	"confidence_level": "high"
}`

func TestNormalizeDirectJSON(t *testing.T) {
	a := Normalize(validResponse)

	if a.Degraded {
		t.Error("valid JSON should not be degraded")
	}
	if len(a.SuspectedConditions) != 2 || a.SuspectedConditions[0] != "Unstable angina" {
		t.Errorf("conditions = %v", a.SuspectedConditions)
	}
	if a.ConfidenceLevel != ConfidenceHigh {
		t.Errorf("confidence = %q, want high", a.ConfidenceLevel)
	}
	if len(a.RecommendedMedications) != 1 || a.RecommendedMedications[0].ConfidenceScore != 0.82 {
		t.Errorf("medications = %+v", a.RecommendedMedications)
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	first := Normalize(validResponse)

	serialized, err := json.Marshal(payload{
		SuspectedConditions:    first.SuspectedConditions,
		RecommendedMedications: first.RecommendedMedications,
		AdditionalTests:        first.AdditionalTests,
		RiskFactors:            first.RiskFactors,
		TreatmentNotes:         first.TreatmentNotes,
		ConfidenceLevel:        first.ConfidenceLevel,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	second := Normalize(string(serialized))
	if !reflect.DeepEqual(first, second) {
		t.Errorf("round trip mismatch:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestNormalizeFencedBlock(t *testing.T) {
	raw := "The model reasoned about the case first.\n\n```json\n" + validResponse + "\n```\n\nThat is my answer."

	a := Normalize(raw)
	if a.Degraded {
		t.Fatal("fenced JSON should normalize cleanly")
	}
	if a.SuspectedConditions[0] != "Unstable angina" {
		t.Errorf("conditions = %v", a.SuspectedConditions)
	}
}

func TestNormalizeEmbeddedBraces(t *testing.T) {
	raw := "Reasoning: patient presents with chest pain {severe}. Final answer: " + validResponse + " end of output"

	a := Normalize(raw)
	if a.Degraded {
		t.Fatal("embedded JSON should be found by the brace scanner")
	}
	if len(a.RecommendedMedications) != 1 {
		t.Errorf("medications = %+v", a.RecommendedMedications)
	}
}

func TestScanBalancedJSONStringAware(t *testing.T) {
	raw := `prefix {"note": "brace } inside string", "suspected_conditions": ["X"], "recommended_medications": []} suffix`

	candidates := scanBalancedJSON(raw)
	if len(candidates) == 0 {
		t.Fatal("expected at least one candidate")
	}
	var p payload
	if err := json.Unmarshal([]byte(candidates[0]), &p); err != nil {
		t.Fatalf("candidate not valid JSON: %v\ncandidate: %s", err, candidates[0])
	}
	if len(p.SuspectedConditions) != 1 || p.SuspectedConditions[0] != "X" {
		t.Errorf("payload = %+v", p)
	}
}

func TestNormalizeHeuristicProse(t *testing.T) {
	raw := `Based on the presentation, here is my assessment.

Suspected Conditions:
1. **Acute coronary syndrome**
2. Hypertensive emergency

The patient should receive an ECG and troponin blood test. Given the
hypertension history, labetalol may be indicated.

Treatment: monitor closely and escalate to emergency care. Confidence is high.`

	a := Normalize(raw)
	if a.Degraded {
		t.Fatal("structured prose should not fall through to fallback")
	}
	if len(a.SuspectedConditions) != 2 {
		t.Fatalf("conditions = %v", a.SuspectedConditions)
	}
	if a.SuspectedConditions[0] != "Acute coronary syndrome" {
		t.Errorf("first condition = %q", a.SuspectedConditions[0])
	}
	if len(a.RecommendedMedications) == 0 || a.RecommendedMedications[0].MedicationName != "Labetalol" {
		t.Errorf("medications = %+v", a.RecommendedMedications)
	}
	found := map[string]bool{}
	for _, test := range a.AdditionalTests {
		found[test] = true
	}
	if !found["ECG"] || !found["troponin"] {
		t.Errorf("tests = %v", a.AdditionalTests)
	}
	if a.ConfidenceLevel != ConfidenceHigh {
		t.Errorf("confidence = %q, want high", a.ConfidenceLevel)
	}
}

func TestNormalizeHeuristicQuotedFields(t *testing.T) {
	raw := `I would recommend medication_name: "Metoprolol" with dosage: "25mg" and frequency: "twice daily" for this patient.`

	a := Normalize(raw)
	if len(a.RecommendedMedications) != 1 {
		t.Fatalf("medications = %+v", a.RecommendedMedications)
	}
	med := a.RecommendedMedications[0]
	if med.MedicationName != "Metoprolol" || med.Dosage != "25mg" || med.Frequency != "twice daily" {
		t.Errorf("medication = %+v", med)
	}
	if med.ConfidenceScore != 0.7 {
		t.Errorf("score = %v, want 0.7", med.ConfidenceScore)
	}
}

func TestNormalizeFallback(t *testing.T) {
	raw := "complete nonsense with no medical structure whatsoever"

	a := Normalize(raw)
	if !a.Degraded {
		t.Fatal("expected degraded fallback")
	}
	if len(a.SuspectedConditions) == 0 || a.SuspectedConditions[0] != "Medical evaluation required" {
		t.Errorf("conditions = %v", a.SuspectedConditions)
	}
	if a.ConfidenceLevel != ConfidenceLow {
		t.Errorf("confidence = %q, want low", a.ConfidenceLevel)
	}
	if len(a.RecommendedMedications) != 1 {
		t.Fatalf("medications = %+v", a.RecommendedMedications)
	}
	med := a.RecommendedMedications[0]
	if med.MedicationName != "Immediate Medical Consultation Required" || med.ConfidenceScore != 0 {
		t.Errorf("medication = %+v", med)
	}
	if !strings.Contains(a.TreatmentNotes, "Response preview: complete nonsense") {
		t.Errorf("treatment notes = %q", a.TreatmentNotes)
	}
}

func TestNormalizeFallbackKeywordConditions(t *testing.T) {
	a := Normalize("gibberish mentioning hypertension and an emergency situation")
	want := []string{
		"Medical evaluation required",
		"Hypertension",
		"Medical emergency - immediate attention required",
	}
	if !reflect.DeepEqual(a.SuspectedConditions, want) {
		t.Errorf("conditions = %v, want %v", a.SuspectedConditions, want)
	}
}

func TestNormalizeTotality(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"{",
		`{"suspected_conditions": }`,
		`{"suspected_conditions": [], "recommended_medications": []}`,
		"```json\nnot json\n```",
		strings.Repeat("a", 10000),
		"{{{{{}}}}",
		`{"recommended_medications": [{"medication_name": "Aspirin", "dosage": "75mg", "frequency": "daily"}]}`,
	}

	for _, raw := range inputs {
		a := Normalize(raw)
		if len(a.SuspectedConditions) == 0 {
			t.Errorf("input %.30q: empty conditions", raw)
		}
		switch a.ConfidenceLevel {
		case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		default:
			t.Errorf("input %.30q: confidence %q out of range", raw, a.ConfidenceLevel)
		}
		if a.SuspectedConditions == nil || a.RecommendedMedications == nil ||
			a.AdditionalTests == nil || a.RiskFactors == nil {
			t.Errorf("input %.30q: nil list in result", raw)
		}
	}
}

func TestNormalizeMedicationsOnlyGetsDefaultCondition(t *testing.T) {
	raw := `{"recommended_medications": [{"medication_name": "Aspirin", "dosage": "75mg", "frequency": "daily"}]}`

	a := Normalize(raw)
	if !reflect.DeepEqual(a.SuspectedConditions, []string{"Medical evaluation required"}) {
		t.Errorf("conditions = %v, want default condition", a.SuspectedConditions)
	}
	if len(a.RecommendedMedications) != 1 || a.RecommendedMedications[0].MedicationName != "Aspirin" {
		t.Errorf("medications = %+v", a.RecommendedMedications)
	}
}

func TestPreviewKeepsRunesIntact(t *testing.T) {
	raw := strings.Repeat("ü", fallbackPreviewLen+50)

	a := Normalize(raw)
	if !utf8.ValidString(a.TreatmentNotes) {
		t.Errorf("treatment notes contain a split rune: %q", a.TreatmentNotes)
	}
	if got := preview(raw, fallbackPreviewLen); utf8.RuneCountInString(got) != fallbackPreviewLen {
		t.Errorf("preview length = %d runes, want %d", utf8.RuneCountInString(got), fallbackPreviewLen)
	}
	if preview("short", 10) != "short" {
		t.Error("short strings should pass through unchanged")
	}
}

func TestNormalizeClampsConfidenceScores(t *testing.T) {
	raw := `{
		"suspected_conditions": ["X"],
		"recommended_medications": [
			{"medication_name": "A", "dosage": "1", "frequency": "daily", "confidence_score": 1.7},
			{"medication_name": "B", "dosage": "2", "frequency": "daily", "confidence_score": -0.4}
		],
		"confidence_level": "certain"
	}`

	a := Normalize(raw)
	if a.RecommendedMedications[0].ConfidenceScore != 1 {
		t.Errorf("score = %v, want clamped to 1", a.RecommendedMedications[0].ConfidenceScore)
	}
	if a.RecommendedMedications[1].ConfidenceScore != 0 {
		t.Errorf("score = %v, want clamped to 0", a.RecommendedMedications[1].ConfidenceScore)
	}
	if a.ConfidenceLevel != ConfidenceMedium {
		t.Errorf("unknown confidence level should default to medium, got %q", a.ConfidenceLevel)
	}
}

func TestExtractFencedBlock(t *testing.T) {
	block, ok := extractFencedBlock("before\n```JSON\n{\"a\": 1}\n```\nafter")
	if !ok {
		t.Fatal("expected fence match")
	}
	if block != `{"a": 1}` {
		t.Errorf("block = %q", block)
	}

	if _, ok := extractFencedBlock("no fences here"); ok {
		t.Error("expected no match")
	}
}
