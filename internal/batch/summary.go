package batch

import "sort"

const topRankSize = 10

// Summarize aggregates case outcomes into a BatchSummary. It is pure
// and total: empty or all-failed input yields zeroed aggregates.
func Summarize(outcomes []CaseOutcome) BatchSummary {
	summary := BatchSummary{
		MostCommonConditions:      []RankedItem{},
		MostPrescribedMedications: []RankedItem{},
	}

	conditionCounts := newCounter()
	medicationCounts := newCounter()
	var confidenceScores []float64

	for _, o := range outcomes {
		if o.Status != OutcomeSuccess || o.Analysis == nil {
			summary.FailedAnalyses++
			continue
		}
		summary.SuccessfulAnalyses++

		for _, cond := range o.Analysis.SuspectedConditions {
			conditionCounts.add(cond)
			summary.TotalConditionsFound++
		}
		for _, med := range o.Analysis.RecommendedMedications {
			name := med.MedicationName
			if name == "" {
				name = "Unknown"
			}
			medicationCounts.add(name)
			if med.ConfidenceScore > 0 {
				confidenceScores = append(confidenceScores, med.ConfidenceScore)
			}
		}
	}

	summary.MostCommonConditions = conditionCounts.topN(topRankSize)
	summary.MostPrescribedMedications = medicationCounts.topN(topRankSize)

	if len(confidenceScores) > 0 {
		var sum float64
		for _, s := range confidenceScores {
			sum += s
		}
		summary.AverageConfidence = sum / float64(len(confidenceScores))
	}

	summary.Recommendations = batchRecommendations(summary.MostCommonConditions)
	return summary
}

// batchRecommendations derives the fixed operator guidance attached to
// every summary, naming the top-ranked condition when one exists.
func batchRecommendations(conditions []RankedItem) []string {
	mostCommon := "None"
	if len(conditions) > 0 {
		mostCommon = conditions[0].Name
	}
	return []string{
		"Review failed analyses for data quality issues",
		"Consider additional tests for patients with low confidence scores",
		"Most common condition: " + mostCommon,
		"Ensure proper medical supervision for all recommendations",
	}
}

// counter tracks frequencies while remembering first-seen order so
// ranking ties break deterministically.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(key string) {
	if _, seen := c.counts[key]; !seen {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

func (c *counter) topN(n int) []RankedItem {
	items := make([]RankedItem, 0, len(c.order))
	for _, key := range c.order {
		items = append(items, RankedItem{Name: key, Count: c.counts[key]})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Count > items[j].Count
	})
	if len(items) > n {
		items = items[:n]
	}
	return items
}
