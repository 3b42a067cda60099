package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"
)

// bookingSelect embeds the tour and operator summaries PostgREST can join.
const bookingSelect = "*,tour:tours(*),operator:operators(company_name,email,phone,whatsapp)"

type BookingRepo interface {
	ListBookingsByOperator(ctx context.Context, operatorID string, accessToken string) ([]Booking, error)
	ListBookingsByContact(ctx context.Context, email, phone string) ([]Booking, error)
	GetBooking(ctx context.Context, id string, accessToken string) (*Booking, error)
	UpdateBooking(ctx context.Context, id string, fields map[string]interface{}, accessToken string) (*Booking, error)
	UnreadBookingIDs(ctx context.Context, bookingIDs []string, reader SenderType, accessToken string) (map[string]bool, error)
}

func (su *SupabaseRepo) ListBookingsByOperator(ctx context.Context, operatorID string, accessToken string) ([]Booking, error) {
	if strings.TrimSpace(operatorID) == "" {
		return nil, ValidationError{Field: "operator_id", Msg: "operator id is required"}
	}
	client, err := su.clientFor(accessToken)
	if err != nil {
		return nil, err
	}

	raw, _, err := client.From(BookingsTable).
		Select(bookingSelect, "exact", false).
		Eq("operator_id", operatorID).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Execute()
	if err != nil {
		return nil, postgrestError("list bookings", err)
	}
	return decodeRows[Booking](raw, "booking")
}

// ListBookingsByContact finds a tourist's bookings by email or phone. Either
// may be empty but not both.
func (su *SupabaseRepo) ListBookingsByContact(ctx context.Context, email, phone string) ([]Booking, error) {
	filter := contactFilter(email, phone)
	if filter == "" {
		return nil, ValidationError{Msg: "email or phone is required"}
	}

	raw, _, err := su.supabaseClient.From(BookingsTable).
		Select(bookingSelect, "exact", false).
		Or(filter, "").
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Execute()
	if err != nil {
		return nil, postgrestError("look up bookings", err)
	}
	return decodeRows[Booking](raw, "booking")
}

// contactFilter builds the or=() expression for a contact lookup. Values are
// double quoted so commas, dots and parentheses stay inside the value.
func contactFilter(email, phone string) string {
	var filters []string
	if email != "" {
		filters = append(filters, "customer_email.eq."+quoteFilterValue(email))
	}
	if phone != "" {
		filters = append(filters, "customer_phone.eq."+quoteFilterValue(phone))
	}
	return strings.Join(filters, ",")
}

func quoteFilterValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

func (su *SupabaseRepo) GetBooking(ctx context.Context, id string, accessToken string) (*Booking, error) {
	client, err := su.clientFor(accessToken)
	if err != nil {
		return nil, err
	}

	raw, _, err := client.From(BookingsTable).
		Select(bookingSelect, "", false).
		Eq("id", id).
		Execute()
	if err != nil {
		return nil, postgrestError("get booking", err)
	}

	bookings, err := decodeRows[Booking](raw, "booking")
	if err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return nil, NotFoundError{Resource: "booking"}
	}
	if len(bookings) > 1 {
		return nil, fmt.Errorf("multiple bookings found for ID %s", id)
	}
	return &bookings[0], nil
}

// UpdateBooking patches a booking row. A zero-row result means the backend
// rejected the change (RLS or a transition trigger) and is reported as a conflict.
func (su *SupabaseRepo) UpdateBooking(ctx context.Context, id string, fields map[string]interface{}, accessToken string) (*Booking, error) {
	if len(fields) == 0 {
		return nil, ValidationError{Msg: "no fields to update"}
	}
	client, err := su.clientFor(accessToken)
	if err != nil {
		return nil, err
	}

	raw, count, err := client.From(BookingsTable).
		Update(fields, "", "exact").
		Eq("id", id).
		Execute()
	if err != nil {
		return nil, postgrestError("update booking", err)
	}

	rows, err := decodeRows[Booking](raw, "booking")
	if err != nil {
		return nil, err
	}
	if count == 0 || len(rows) == 0 {
		return nil, ConflictError{Resource: "booking", Msg: "update was not applied"}
	}

	// the update response has no embedded relations, re-read to get them
	return su.GetBooking(ctx, id, accessToken)
}

func (su *SupabaseRepo) UnreadBookingIDs(ctx context.Context, bookingIDs []string, reader SenderType, accessToken string) (map[string]bool, error) {
	unread := make(map[string]bool)
	if len(bookingIDs) == 0 {
		return unread, nil
	}
	client, err := su.clientFor(accessToken)
	if err != nil {
		return nil, err
	}

	raw, _, err := client.From(MessagesTable).
		Select("booking_id", "", false).
		In("booking_id", bookingIDs).
		Eq("is_read", "false").
		Neq("sender_type", string(reader)).
		Execute()
	if err != nil {
		return nil, postgrestError("load unread messages", err)
	}

	type row struct {
		BookingID string `json:"booking_id"`
	}
	rows, err := decodeRows[row](raw, "message")
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		unread[r.BookingID] = true
	}
	return unread, nil
}

// StatusFields builds the patch for a status change, stamping the matching
// timestamp column.
func StatusFields(target BookingStatus, now time.Time) map[string]interface{} {
	fields := map[string]interface{}{
		"booking_status": target,
		"updated_at":     now,
	}
	switch target {
	case BookingConfirmed:
		fields["confirmed_at"] = now
	case BookingCancelled, BookingDeclined:
		fields["cancelled_at"] = now
	}
	return fields
}
