package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/joshua-takyi/tourdesk/internal/dashboard"
	"github.com/joshua-takyi/tourdesk/internal/models"
	"github.com/xuri/excelize/v2"
)

func testView() *dashboard.View {
	now := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	catalog := models.Catalog{Tours: []models.Tour{
		{ID: "t1", Name: "Kayak", TourType: "water", TourDate: "2025-03-12", TimeSlot: "09:00"},
		{ID: "t2", Name: "Walk", TourType: "city", TourDate: "2025-03-13", TimeSlot: "10:00"},
	}}
	bookings := []models.Booking{
		{ID: "b1", TourID: "t1", Status: models.BookingConfirmed, CustomerName: "Ama", Subtotal: 100, CommissionAmount: 10, TotalAmount: 110, Adults: 2},
		{ID: "b2", TourID: "t1", Status: models.BookingPending, CustomerName: "Kofi", Subtotal: 50, Adults: 1},
		{ID: "b3", TourID: "t2", Status: models.BookingCompleted, CustomerName: "Esi", Subtotal: 70},
	}
	return dashboard.Build("op-1", bookings, catalog, dashboard.WindowsFor(now, time.UTC), now)
}

func TestBookingsWorkbook(t *testing.T) {
	data, err := BookingsWorkbook(testView(), nil)
	if err != nil {
		t.Fatalf("BookingsWorkbook: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(bookingsSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 bookings, got %d rows", len(rows))
	}
	if rows[0][4] != "Booking ID" {
		t.Errorf("unexpected header %v", rows[0])
	}
	seen := map[string]bool{}
	for _, r := range rows[1:] {
		seen[r[4]] = true
	}
	for _, id := range []string{"b1", "b2", "b3"} {
		if !seen[id] {
			t.Errorf("booking %s missing from export", id)
		}
	}

	total, err := f.GetCellValue(summarySheet, "B6")
	if err != nil || total != "170" {
		t.Errorf("total net cell = %q, %v", total, err)
	}
}

func TestRevenueStatement(t *testing.T) {
	data, err := RevenueStatement(testView(), "Coast Tours", nil)
	if err != nil {
		t.Fatalf("RevenueStatement: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("output is not a PDF")
	}
}

func TestFilename(t *testing.T) {
	got := Filename("op-1", "xlsx", time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC))
	if got != "tourdesk-op-1-20250312.xlsx" {
		t.Errorf("Filename = %q", got)
	}
}
