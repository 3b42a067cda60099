// Package report renders a dashboard as downloadable files.
package report

import (
	"fmt"
	"time"

	"github.com/joshua-takyi/tourdesk/internal/dashboard"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "Summary"
	bookingsSheet = "Bookings"
)

var bookingHeaders = []string{
	"Template", "Tour", "Date", "Time", "Booking ID", "Customer", "Email", "Phone",
	"Status", "Priority", "Urgent", "Adults", "Children", "Net", "Commission", "Total", "Booked At",
}

// BookingsWorkbook writes the summary and every booking of v, in tree order,
// to an .xlsx file.
func BookingsWorkbook(v *dashboard.View, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if err := writeSummary(f, v, loc); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(bookingsSheet); err != nil {
		return nil, fmt.Errorf("failed to add bookings sheet: %w", err)
	}
	for i, header := range bookingHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(bookingsSheet, cell, header)
	}

	row := 2
	for _, g := range v.Tree.Ordered() {
		for _, inst := range g.OrderedInstances() {
			for _, n := range inst.Bookings {
				b := n.Booking
				values := []interface{}{
					g.Name, inst.Tour.Name, inst.Tour.TourDate, inst.Tour.TimeSlot,
					b.ID, b.CustomerName, b.CustomerEmail, b.CustomerPhone,
					string(b.Status), string(n.Tier), n.Urgent, b.Adults, b.Children,
					dashboard.NetRevenue(b), b.CommissionAmount, b.TotalAmount,
					b.CreatedAt.In(loc).Format("2006-01-02 15:04"),
				}
				for col, val := range values {
					cell, _ := excelize.CoordinatesToCellName(col+1, row)
					f.SetCellValue(bookingsSheet, cell, val)
				}
				row++
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, v *dashboard.View, loc *time.Location) error {
	s := v.Summary
	rows := [][]interface{}{
		{"Operator", v.OperatorID},
		{"Generated", v.GeneratedAt.In(loc).Format("2006-01-02 15:04 MST")},
		{"Today (net)", s.TodayNet},
		{"This week (net)", s.WeekNet},
		{"Pending (net)", s.PendingNet},
		{"Total (net)", s.TotalNet},
		{"Average booking", s.AvgBooking},
		{"Critical requests", s.CriticalCount},
		{"Urgent requests", v.UrgentCount()},
	}
	for i, r := range rows {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &r); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}
	return nil
}

// Filename is the download name for an operator's export.
func Filename(operatorID, ext string, at time.Time) string {
	return fmt.Sprintf("tourdesk-%s-%s.%s", operatorID, at.Format("20060102"), ext)
}
