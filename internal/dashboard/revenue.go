package dashboard

import (
	"time"

	"github.com/joshua-takyi/tourdesk/internal/models"
)

// NetRevenue is what the operator keeps from a booking. Every sum in
// RevenueSummary goes through it.
func NetRevenue(b models.Booking) float64 {
	return b.Subtotal
}

// Windows are the half-open [start, end) ranges used for the today and
// this-week sums. They are compared against the tour date, not the booking's
// creation time.
type Windows struct {
	TodayStart time.Time
	TodayEnd   time.Time
	WeekStart  time.Time
	WeekEnd    time.Time
	Location   *time.Location
}

// WindowsFor builds the windows around now in loc. Weeks start on Sunday.
func WindowsFor(now time.Time, loc *time.Location) Windows {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	startOfDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	startOfWeek := startOfDay.AddDate(0, 0, -int(local.Weekday()))
	return Windows{
		TodayStart: startOfDay,
		TodayEnd:   startOfDay.AddDate(0, 0, 1),
		WeekStart:  startOfWeek,
		WeekEnd:    startOfWeek.AddDate(0, 0, 7),
		Location:   loc,
	}
}

func (w Windows) IsZero() bool {
	return w.TodayStart.IsZero() && w.WeekStart.IsZero()
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

type RevenueSummary struct {
	TodayNet      float64 `json:"today_net"`
	WeekNet       float64 `json:"week_net"`
	PendingNet    float64 `json:"pending_net"`
	CriticalCount int     `json:"critical_count"`
	AvgBooking    float64 `json:"avg_booking"`
	TotalNet      float64 `json:"total_net"`
	// RevenueBookings is the divisor behind AvgBooking.
	RevenueBookings int `json:"revenue_bookings"`
}

// Summarize computes the revenue rollup. A zero Windows means "UTC windows
// around now".
func Summarize(bookings []models.Booking, w Windows, now time.Time) RevenueSummary {
	if w.IsZero() {
		w = WindowsFor(now, time.UTC)
	}

	var sum RevenueSummary
	for _, b := range bookings {
		net := NetRevenue(b)

		if b.Status == models.BookingPending {
			sum.PendingNet += net
			if Classify(b, now).Tier == TierCritical {
				sum.CriticalCount++
			}
			continue
		}
		if !b.Status.IsRevenueGenerating() {
			continue
		}

		sum.TotalNet += net
		sum.RevenueBookings++

		if b.Tour == nil {
			continue
		}
		date, ok := b.Tour.Date(w.Location)
		if !ok {
			continue
		}
		if within(date, w.TodayStart, w.TodayEnd) {
			sum.TodayNet += net
		}
		if within(date, w.WeekStart, w.WeekEnd) {
			sum.WeekNet += net
		}
	}

	if sum.RevenueBookings > 0 {
		sum.AvgBooking = sum.TotalNet / float64(sum.RevenueBookings)
	}
	return sum
}
