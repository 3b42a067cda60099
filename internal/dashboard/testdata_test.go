package dashboard

import (
	"time"

	"github.com/joshua-takyi/tourdesk/internal/models"
)

var testNow = time.Date(2025, time.March, 12, 10, 0, 0, 0, time.UTC) // a Wednesday

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func tourWithDeadline(d time.Duration) *models.Tour {
	return &models.Tour{ID: "tour-1", Name: "Sunset Kayak", TourType: "water", BookingDeadline: timePtr(testNow.Add(d))}
}

func booking(id string, status models.BookingStatus, subtotal float64) models.Booking {
	return models.Booking{
		ID:               id,
		Status:           status,
		Subtotal:         subtotal,
		CommissionAmount: subtotal * 0.1,
		TotalAmount:      subtotal * 1.1,
		Adults:           2,
	}
}
