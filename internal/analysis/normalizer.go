package analysis

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Normalize converts raw model output into a ClinicalAnalysis. It is
// total: whatever the input, it returns a structurally valid analysis.
// Extraction layers are tried in order of decreasing structure
// assumption; when none yields usable data the deterministic fallback
// is returned with Degraded set.
func Normalize(raw string) ClinicalAnalysis {
	if a, ok := parseDirect(raw); ok {
		return a
	}
	if block, ok := extractFencedBlock(raw); ok {
		if a, ok := parseDirect(block); ok {
			return a
		}
	}
	for _, candidate := range scanBalancedJSON(raw) {
		if a, ok := parseDirect(candidate); ok {
			return a
		}
	}
	if a, ok := extractHeuristic(raw); ok {
		return a
	}
	return fallbackAnalysis(raw)
}

// payload mirrors the contract JSON shape.
type payload struct {
	SuspectedConditions    []string                   `json:"suspected_conditions"`
	RecommendedMedications []MedicationRecommendation `json:"recommended_medications"`
	AdditionalTests        []string                   `json:"additional_tests"`
	RiskFactors            []string                   `json:"risk_factors"`
	TreatmentNotes         string                     `json:"treatment_notes"`
	ConfidenceLevel        string                     `json:"confidence_level"`
}

// parseDirect attempts a strict JSON parse of the target shape. The
// result is usable only when it carries at least one condition or
// medication.
func parseDirect(raw string) (ClinicalAnalysis, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ClinicalAnalysis{}, false
	}
	var p payload
	if err := json.Unmarshal([]byte(trimmed), &p); err != nil {
		return ClinicalAnalysis{}, false
	}
	if len(p.SuspectedConditions) == 0 && len(p.RecommendedMedications) == 0 {
		return ClinicalAnalysis{}, false
	}
	a := ClinicalAnalysis{
		SuspectedConditions:    p.SuspectedConditions,
		RecommendedMedications: p.RecommendedMedications,
		AdditionalTests:        p.AdditionalTests,
		RiskFactors:            p.RiskFactors,
		TreatmentNotes:         p.TreatmentNotes,
		ConfidenceLevel:        p.ConfidenceLevel,
	}
	sanitize(&a)
	return a, true
}

var fencedBlockRe = regexp.MustCompile("(?is)```json\\s*(.*?)\\s*```")

// extractFencedBlock returns the contents of the first json-tagged
// markdown fence.
func extractFencedBlock(raw string) (string, bool) {
	m := fencedBlockRe.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// scanBalancedJSON returns every balanced brace-delimited substring in
// order of appearance. The scanner is string-aware so braces inside
// quoted values do not break nesting depth.
func scanBalancedJSON(raw string) []string {
	var candidates []string
	runes := []rune(raw)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '{' {
			continue
		}
		if end, ok := matchBalanced(runes, i); ok {
			candidates = append(candidates, string(runes[i:end+1]))
			i = end
		}
	}
	return candidates
}

func matchBalanced(runes []rune, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(runes); i++ {
		r := runes[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

var (
	conditionsSectionRe = regexp.MustCompile(`(?is)Suspected Conditions[:\s]*(.*?)(?:Recommended|Additional|Risk|Treatment|$)`)
	listItemRe          = regexp.MustCompile(`(?:\d+\.\s*\*{0,2}|[-•]\s*\*{0,2})([^\n\r]+)`)
	medicationNameRe    = regexp.MustCompile(`(?i)medication_name[:\s]*['"]([^'"]+)['"]`)
	dosageRe            = regexp.MustCompile(`(?i)dosage[:\s]*['"]([^'"]+)['"]`)
	frequencyRe         = regexp.MustCompile(`(?i)frequency[:\s]*['"]([^'"]+)['"]`)
	treatmentNotesRe    = regexp.MustCompile(`(?is)(?:Treatment|Notes?|Summary)[:\s]*(.+?)(?:\n\n|\n[A-Z]|$)`)
)

var commonMedications = []string{"nitroglycerin", "labetalol", "metoprolol", "lisinopril", "amlodipine", "atenolol"}

var testKeywords = []string{"ECG", "blood test", "cardiac enzymes", "troponin", "CT scan", "MRI", "chest X-ray"}

var riskKeywords = []string{"hypertension", "diabetes", "age", "gender", "smoking", "obesity"}

// extractHeuristic mines structured sections and keyword mentions out
// of unstructured prose. Usable only when it finds at least one
// condition or medication.
func extractHeuristic(raw string) (ClinicalAnalysis, bool) {
	lower := strings.ToLower(raw)

	a := ClinicalAnalysis{
		SuspectedConditions:    []string{},
		RecommendedMedications: []MedicationRecommendation{},
		AdditionalTests:        []string{},
		RiskFactors:            []string{},
		ConfidenceLevel:        ConfidenceMedium,
	}

	if m := conditionsSectionRe.FindStringSubmatch(raw); m != nil {
		for _, item := range listItemRe.FindAllStringSubmatch(m[1], -1) {
			cond := strings.TrimSpace(strings.Trim(strings.TrimSpace(item[1]), "*"))
			if cond != "" {
				a.SuspectedConditions = append(a.SuspectedConditions, cond)
			}
		}
	}

	medNames := captureAll(medicationNameRe, raw)
	dosages := captureAll(dosageRe, raw)
	frequencies := captureAll(frequencyRe, raw)
	for i, name := range medNames {
		med := MedicationRecommendation{
			MedicationName:    name,
			Dosage:            "As prescribed",
			Frequency:         "As directed",
			Duration:          "As prescribed",
			Instructions:      "Follow healthcare provider instructions",
			Contraindications: []string{},
			SideEffects:       []string{},
			ConfidenceScore:   0.7,
		}
		if i < len(dosages) {
			med.Dosage = dosages[i]
		}
		if i < len(frequencies) {
			med.Frequency = frequencies[i]
		}
		a.RecommendedMedications = append(a.RecommendedMedications, med)
	}

	if len(a.RecommendedMedications) == 0 {
		for _, med := range commonMedications {
			if strings.Contains(lower, med) {
				a.RecommendedMedications = append(a.RecommendedMedications, MedicationRecommendation{
					MedicationName:    titleWord(med),
					Dosage:            "As prescribed by healthcare provider",
					Frequency:         "As directed",
					Duration:          "As prescribed",
					Instructions:      "Consult healthcare professional for proper dosing",
					Contraindications: []string{"Consult healthcare provider"},
					SideEffects:       []string{"Monitor for adverse effects"},
					ConfidenceScore:   0.6,
				})
			}
		}
	}

	for _, test := range testKeywords {
		if strings.Contains(lower, strings.ToLower(test)) {
			a.AdditionalTests = append(a.AdditionalTests, test)
		}
	}
	for _, risk := range riskKeywords {
		if strings.Contains(lower, risk) {
			a.RiskFactors = append(a.RiskFactors, titleWord(risk))
		}
	}

	if m := treatmentNotesRe.FindStringSubmatch(raw); m != nil {
		a.TreatmentNotes = preview(strings.TrimSpace(m[1]), 500)
	} else {
		a.TreatmentNotes = "Comprehensive medical evaluation recommended. Follow healthcare provider guidance."
	}

	if strings.Contains(lower, "confidence") {
		if strings.Contains(lower, "high") {
			a.ConfidenceLevel = ConfidenceHigh
		} else if strings.Contains(lower, "low") {
			a.ConfidenceLevel = ConfidenceLow
		}
	}

	if len(a.SuspectedConditions) == 0 && len(a.RecommendedMedications) == 0 {
		return ClinicalAnalysis{}, false
	}
	sanitize(&a)
	return a, true
}

const fallbackPreviewLen = 200

// fallbackAnalysis is the guaranteed-valid degraded output. It always
// directs the patient toward professional evaluation.
func fallbackAnalysis(raw string) ClinicalAnalysis {
	lower := strings.ToLower(raw)

	conditions := []string{"Medical evaluation required"}
	if strings.Contains(lower, "hypertension") {
		conditions = append(conditions, "Hypertension")
	}
	if strings.Contains(lower, "emergency") {
		conditions = append(conditions, "Medical emergency - immediate attention required")
	}

	return ClinicalAnalysis{
		SuspectedConditions: conditions,
		RecommendedMedications: []MedicationRecommendation{{
			MedicationName:    "Immediate Medical Consultation Required",
			Dosage:            "N/A",
			Frequency:         "Immediate",
			Duration:          "Until properly evaluated",
			Instructions:      "Seek immediate medical attention. This system encountered an error parsing the AI response, so professional medical evaluation is essential.",
			Contraindications: []string{},
			SideEffects:       []string{},
			ConfidenceScore:   0.0,
		}},
		AdditionalTests: []string{"Complete medical evaluation", "Professional medical assessment"},
		RiskFactors:     []string{"Unable to assess from current data"},
		TreatmentNotes:  "AI response parsing failed but medical attention is advised. Response preview: " + preview(raw, fallbackPreviewLen) + "...",
		ConfidenceLevel: ConfidenceLow,
		Degraded:        true,
	}
}

// sanitize enforces structural validity: a non-empty condition list,
// non-nil lists, a known confidence level, and medication scores
// clamped to [0,1].
func sanitize(a *ClinicalAnalysis) {
	a.SuspectedConditions = ensureList(a.SuspectedConditions)
	if len(a.SuspectedConditions) == 0 {
		a.SuspectedConditions = []string{"Medical evaluation required"}
	}
	a.AdditionalTests = ensureList(a.AdditionalTests)
	a.RiskFactors = ensureList(a.RiskFactors)
	if a.RecommendedMedications == nil {
		a.RecommendedMedications = []MedicationRecommendation{}
	}
	for i := range a.RecommendedMedications {
		med := &a.RecommendedMedications[i]
		med.Contraindications = ensureList(med.Contraindications)
		med.SideEffects = ensureList(med.SideEffects)
		med.ConfidenceScore = clamp01(med.ConfidenceScore)
	}
	switch a.ConfidenceLevel {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
	default:
		a.ConfidenceLevel = ConfidenceMedium
	}
}

func ensureList(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func titleWord(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func captureAll(re *regexp.Regexp, s string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}
