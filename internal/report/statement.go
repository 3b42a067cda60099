package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/joshua-takyi/tourdesk/internal/dashboard"
	"github.com/phpdave11/gofpdf"
)

// RevenueStatement renders the revenue summary and per-template totals of v
// as a one-page PDF.
func RevenueStatement(v *dashboard.View, companyName string, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}
	if companyName == "" {
		companyName = v.OperatorID
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Revenue Statement", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "REVENUE STATEMENT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, "Operator  : "+companyName)
	pdf.Ln(7)
	pdf.Cell(0, 7, "Generated : "+v.GeneratedAt.In(loc).Format("2006-01-02 15:04 MST"))
	pdf.Ln(10)

	s := v.Summary
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Summary")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	for _, line := range [][2]string{
		{"Today (net)", money(s.TodayNet)},
		{"This week (net)", money(s.WeekNet)},
		{"Pending (net)", money(s.PendingNet)},
		{"Total (net)", money(s.TotalNet)},
		{"Average booking", money(s.AvgBooking)},
		{"Critical requests", fmt.Sprintf("%d", s.CriticalCount)},
	} {
		pdf.CellFormat(70, 6, line[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, line[1], "", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(80, 7, "Template", "B", 0, "L", false, 0, "")
	pdf.CellFormat(30, 7, "Bookings", "B", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, "Pending", "B", 0, "R", false, 0, "")
	pdf.CellFormat(40, 7, "Revenue", "B", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	for _, g := range v.Tree.Ordered() {
		pdf.CellFormat(80, 6, g.Name, "", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", g.TotalBookings), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", g.PendingCount), "", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, money(g.Revenue), "", 1, "R", false, 0, "")
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.MultiCell(0, 5, "Net amounts exclude platform commission. Only confirmed and completed bookings count as revenue.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render statement: %w", err)
	}
	return buf.Bytes(), nil
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
