package export

import (
	"fmt"
	"io"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/yigit/noteverse/internal/app/models"
)

// ReportData is the content of the admin summary PDF
type ReportData struct {
	GeneratedAt    time.Time
	TotalUsers     int64
	TotalResources int64
	TotalDownloads int64
	TotalComments  int64
	TopResources   []models.Resource
	MostReported   []models.ReportedResource
}

// WriteReportPDF renders the summary report as an A4 PDF.
func WriteReportPDF(w io.Writer, data ReportData) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Noteverse activity report", true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, "Noteverse activity report", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, "Generated "+data.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 13)
	pdf.Cell(0, 8, "Totals")
	pdf.Ln(9)
	pdf.SetFont("Arial", "", 11)
	for _, line := range [][2]string{
		{"Users", fmt.Sprint(data.TotalUsers)},
		{"Resources", fmt.Sprint(data.TotalResources)},
		{"Downloads", fmt.Sprint(data.TotalDownloads)},
		{"Comments", fmt.Sprint(data.TotalComments)},
	} {
		pdf.CellFormat(50, 7, line[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, line[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 13)
	pdf.Cell(0, 8, "Top resources")
	pdf.Ln(9)
	tableHeader(pdf, []string{"ID", "File", "Type", "Up", "Down", "Downloads"}, []float64{15, 85, 30, 15, 15, 25})
	pdf.SetFont("Arial", "", 9)
	for _, r := range data.TopResources {
		cells := []string{
			fmt.Sprint(r.ID), truncate(tr(r.FileName), 48), string(r.ResourceType),
			fmt.Sprint(r.Upvotes), fmt.Sprint(r.Downvotes), fmt.Sprint(r.Downloads),
		}
		tableRow(pdf, cells, []float64{15, 85, 30, 15, 15, 25})
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 13)
	pdf.Cell(0, 8, "Most reported")
	pdf.Ln(9)
	if len(data.MostReported) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.Cell(0, 7, "No reports.")
		pdf.Ln(8)
	} else {
		tableHeader(pdf, []string{"ID", "File", "Reports", "Latest reason"}, []float64{15, 70, 20, 80})
		pdf.SetFont("Arial", "", 9)
		for _, rr := range data.MostReported {
			reason := ""
			if len(rr.Reports) > 0 {
				reason = rr.Reports[0].Reason
			}
			tableRow(pdf, []string{
				fmt.Sprint(rr.Resource.ID), truncate(tr(rr.Resource.FileName), 40),
				fmt.Sprint(len(rr.Reports)), truncate(tr(reason), 45),
			}, []float64{15, 70, 20, 80})
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func tableHeader(pdf *gofpdf.Fpdf, cols []string, widths []float64) {
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, c := range cols {
		pdf.CellFormat(widths[i], 7, c, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
}

func tableRow(pdf *gofpdf.Fpdf, cells []string, widths []float64) {
	for i, c := range cells {
		pdf.CellFormat(widths[i], 6, c, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
