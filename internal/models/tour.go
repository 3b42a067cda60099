package models

import (
	"time"
)

const tourDateLayout = "2006-01-02"

type Tour struct {
	ID               string     `db:"id" json:"id"`
	OperatorID       string     `db:"operator_id" json:"operator_id"`
	Name             string     `db:"name" json:"name"`
	TourType         string     `db:"tour_type" json:"tour_type"`
	TourDate         string     `db:"tour_date" json:"tour_date"` // YYYY-MM-DD
	TimeSlot         string     `db:"time_slot" json:"time_slot"` // HH:MM
	MeetingPoint     string     `db:"meeting_point" json:"meeting_point,omitempty"`
	MaxCapacity      *int       `db:"max_capacity" json:"max_capacity,omitempty"`
	AvailableSpots   int        `db:"available_spots" json:"available_spots"`
	BookingDeadline  *time.Time `db:"booking_deadline" json:"booking_deadline,omitempty"`
	ParentTemplateID *string    `db:"parent_template_id" json:"parent_template_id,omitempty"`
	IsTemplate       bool       `db:"is_template" json:"is_template"`
	Images           []string   `db:"images" json:"images,omitempty"`
}

// Date parses TourDate in loc. ok is false when the column is empty or malformed.
func (t Tour) Date(loc *time.Location) (time.Time, bool) {
	if t.TourDate == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(tourDateLayout, t.TourDate, loc)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// Template is a recurring activity definition. Instances point at it through
// parent_template_id when the data has that link.
type Template struct {
	ID         string `json:"id"`
	OperatorID string `json:"operator_id"`
	Name       string `json:"name"`
	TourType   string `json:"tour_type"`
}

// Catalog is everything an operator offers: bookable instances plus templates.
type Catalog struct {
	Tours     []Tour     `json:"tours"`
	Templates []Template `json:"templates"`
}

// SplitCatalog separates template rows from bookable instances.
func SplitCatalog(rows []Tour) Catalog {
	cat := Catalog{
		Tours:     make([]Tour, 0, len(rows)),
		Templates: []Template{},
	}
	for _, r := range rows {
		if r.IsTemplate {
			cat.Templates = append(cat.Templates, Template{
				ID:         r.ID,
				OperatorID: r.OperatorID,
				Name:       r.Name,
				TourType:   r.TourType,
			})
			continue
		}
		cat.Tours = append(cat.Tours, r)
	}
	return cat
}

func (c Catalog) TourByID(id string) (Tour, bool) {
	for _, t := range c.Tours {
		if t.ID == id {
			return t, true
		}
	}
	return Tour{}, false
}

func (c Catalog) TemplateByID(id string) (Template, bool) {
	for _, t := range c.Templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}
