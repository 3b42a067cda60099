// Package dashboard turns raw booking and tour rows into the operator
// dashboard: a priority tier per booking, revenue rollups, and the
// template → instance → booking tree.
//
// Everything here is a pure function of its arguments. Callers pass the
// current time in, nothing reads the clock or performs I/O.
package dashboard

import (
	"time"

	"github.com/joshua-takyi/tourdesk/internal/models"
)

// Tier is the display priority of a booking. Pending bookings get critical,
// high or medium; every other booking's tier is its status.
type Tier string

const (
	TierCritical Tier = "critical"
	TierHigh     Tier = "high"
	TierMedium   Tier = "medium"
)

const (
	criticalWindow = 8 * time.Hour
	highWindow     = 16 * time.Hour
)

type Classification struct {
	Tier   Tier `json:"tier"`
	Urgent bool `json:"urgent"`
	// Expired marks a pending booking whose tour deadline has already passed.
	// The tier stays medium; the flag is for display only.
	Expired bool `json:"expired,omitempty"`
}

// Classify assigns b its tier relative to now.
func Classify(b models.Booking, now time.Time) Classification {
	if b.Status != models.BookingPending {
		return Classification{Tier: Tier(b.Status)}
	}

	deadline := deadlineOf(b)
	if deadline == nil {
		return Classification{Tier: TierMedium}
	}

	until := deadline.Sub(now)
	switch {
	case until <= 0:
		return Classification{Tier: TierMedium, Expired: true}
	case until <= criticalWindow:
		return Classification{Tier: TierCritical, Urgent: true}
	case until <= highWindow:
		return Classification{Tier: TierHigh, Urgent: true}
	default:
		return Classification{Tier: TierMedium}
	}
}

func deadlineOf(b models.Booking) *time.Time {
	if b.Tour == nil {
		return nil
	}
	return b.Tour.BookingDeadline
}
