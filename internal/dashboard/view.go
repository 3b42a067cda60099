package dashboard

import (
	"time"

	"github.com/joshua-takyi/tourdesk/internal/models"
)

// View is one complete dashboard computation.
type View struct {
	OperatorID  string         `json:"operator_id"`
	Summary     RevenueSummary `json:"summary"`
	Tree        *Tree          `json:"tree"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// UrgentCount totals the urgent bookings across all groups.
func (v *View) UrgentCount() int {
	n := 0
	for _, g := range v.Tree.Templates {
		n += g.UrgentCount
	}
	return n
}

// AttachTours returns copies of bookings with the catalog tour embedded where
// the row came back without one. The input slice is left untouched.
func AttachTours(bookings []models.Booking, catalog models.Catalog) []models.Booking {
	tours := make(map[string]models.Tour, len(catalog.Tours))
	for _, t := range catalog.Tours {
		tours[t.ID] = t
	}
	out := make([]models.Booking, len(bookings))
	for i, b := range bookings {
		if b.Tour == nil {
			if t, ok := tours[b.TourID]; ok {
				b.Tour = &t
			}
		}
		out[i] = b
	}
	return out
}

// Build runs the whole pipeline: tours are attached, then bookings are
// classified, summed and grouped.
func Build(operatorID string, bookings []models.Booking, catalog models.Catalog, w Windows, now time.Time) *View {
	bookings = AttachTours(bookings, catalog)
	return &View{
		OperatorID:  operatorID,
		Summary:     Summarize(bookings, w, now),
		Tree:        Group(bookings, catalog, now),
		GeneratedAt: now,
	}
}
