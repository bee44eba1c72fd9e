package reports

import (
	"bytes"
	"fmt"

	"github.com/signintech/gopdf"
)

const pdfTextWidth = 500

// Common font locations across Debian and Alpine base images.
var fontPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
}

// RenderPDF renders the report as a PDF document.
func RenderPDF(report DoctorReport) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	var fontErr error
	fontLoaded := false
	for _, path := range fontPaths {
		if err := pdf.AddTTFFont("DejaVu", path); err == nil {
			fontLoaded = true
			break
		} else {
			fontErr = err
		}
	}
	if !fontLoaded {
		return nil, fmt.Errorf("load pdf font: %w", fontErr)
	}

	if err := pdf.SetFont("DejaVu", "", 20); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Medical Analysis Report")
	pdf.Br(30)

	if err := pdf.SetFont("DejaVu", "", 12); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Report: %s", report.DisplayID))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Patient ID: %s", report.PatientID))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Doctor ID: %s", report.DoctorID))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Generated: %s", report.GeneratedDate.Format("2006-01-02 15:04 UTC")))
	pdf.Br(25)

	if err := writeSection(&pdf, "Analysis Summary"); err != nil {
		return nil, err
	}
	if err := writeParagraph(&pdf, report.AnalysisSummary); err != nil {
		return nil, err
	}
	pdf.Br(15)

	if err := writeSection(&pdf, "Medications Prescribed"); err != nil {
		return nil, err
	}
	if len(report.MedicationsPrescribed) == 0 {
		if err := writeParagraph(&pdf, "- None."); err != nil {
			return nil, err
		}
	}
	for _, med := range report.MedicationsPrescribed {
		line := fmt.Sprintf("- %s: %s, %s (%s)", med.MedicationName, med.Dosage, med.Frequency, med.Duration)
		if err := writeParagraph(&pdf, line); err != nil {
			return nil, err
		}
	}
	pdf.Br(15)

	if err := writeSection(&pdf, "Follow-up Recommendations"); err != nil {
		return nil, err
	}
	if len(report.FollowUpRecommendations) == 0 {
		if err := writeParagraph(&pdf, "- None."); err != nil {
			return nil, err
		}
	}
	for _, rec := range report.FollowUpRecommendations {
		if err := writeParagraph(&pdf, "- "+rec); err != nil {
			return nil, err
		}
	}

	pdf.SetY(800)
	if err := pdf.SetFont("DejaVu", "", 9); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "For educational purposes only. Not a substitute for professional medical advice.")

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSection(pdf *gopdf.GoPdf, title string) error {
	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return err
	}
	pdf.Cell(nil, title)
	pdf.Br(15)
	return pdf.SetFont("DejaVu", "", 11)
}

func writeParagraph(pdf *gopdf.GoPdf, text string) error {
	lines, err := pdf.SplitText(text, pdfTextWidth)
	if err != nil {
		lines = []string{text}
	}
	for _, line := range lines {
		pdf.Cell(nil, line)
		pdf.Br(12)
	}
	return nil
}
