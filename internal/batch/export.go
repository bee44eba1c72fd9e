package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

var exportHeader = []string{
	"case_id",
	"patient_id",
	"status",
	"suspected_conditions",
	"recommended_medications",
	"confidence_level",
	"error",
}

// WriteResultsCSV renders batch outcomes as CSV. List fields are
// joined with "; " so each outcome stays on one row.
func WriteResultsCSV(w io.Writer, outcomes []CaseOutcome) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, o := range outcomes {
		row := []string{o.CaseID, o.PatientID, o.Status, "", "", "", o.Error}
		if o.Analysis != nil {
			row[3] = strings.Join(o.Analysis.SuspectedConditions, "; ")
			meds := make([]string, 0, len(o.Analysis.RecommendedMedications))
			for _, m := range o.Analysis.RecommendedMedications {
				meds = append(meds, m.MedicationName)
			}
			row[4] = strings.Join(meds, "; ")
			row[5] = o.Analysis.ConfidenceLevel
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
