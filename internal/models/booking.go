package models

import (
	"time"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingDeclined  BookingStatus = "declined"
	BookingCancelled BookingStatus = "cancelled"
)

// IsRevenueGenerating reports whether the operator earns from a booking in this status.
func (s BookingStatus) IsRevenueGenerating() bool {
	return s == BookingConfirmed || s == BookingCompleted
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCompleted, BookingDeclined, BookingCancelled:
		return true
	}
	return false
}

// OperatorSummary is the operator columns embedded into a booking select.
type OperatorSummary struct {
	CompanyName string `json:"company_name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Whatsapp    string `json:"whatsapp,omitempty"`
}

type Booking struct {
	ID            string        `db:"id" json:"id"`
	Status        BookingStatus `db:"booking_status" json:"booking_status"`
	CustomerName  string        `db:"customer_name" json:"customer_name"`
	CustomerEmail string        `db:"customer_email" json:"customer_email"`
	CustomerPhone string        `db:"customer_phone" json:"customer_phone"`
	Adults        int           `db:"adults" json:"adults"`
	Children      int           `db:"children" json:"children"`

	// Money, in the operator's currency
	Subtotal              float64 `db:"subtotal" json:"subtotal"`
	CommissionAmount      float64 `db:"commission_amount" json:"commission_amount"`
	TotalAmount           float64 `db:"total_amount" json:"total_amount"`
	AppliedCommissionRate float64 `db:"applied_commission_rate" json:"applied_commission_rate"`
	PaymentIntentID       *string `db:"payment_intent_id" json:"payment_intent_id,omitempty"`

	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	ConfirmedAt       *time.Time `db:"confirmed_at" json:"confirmed_at,omitempty"`
	CancelledAt       *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	PaymentCapturedAt *time.Time `db:"payment_captured_at" json:"payment_captured_at,omitempty"`

	TourID     string           `db:"tour_id" json:"tour_id"`
	OperatorID string           `db:"operator_id" json:"operator_id"`
	Tour       *Tour            `json:"tour,omitempty"`
	Operator   *OperatorSummary `json:"operator,omitempty"`

	// HasUnread is filled in from the messages table, it is not a column.
	HasUnread bool `json:"has_unread,omitempty"`
}

// Participants is the number of seats the booking holds.
func (b Booking) Participants() int {
	return b.Adults + b.Children
}
