package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/joshua-takyi/tourdesk/internal/helpers"
	"github.com/joshua-takyi/tourdesk/internal/models"
)

// Action is an operator request to move a booking along its lifecycle.
type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionDecline  Action = "decline"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

// Target is the status an action asks for.
func (a Action) Target() (models.BookingStatus, bool) {
	switch a {
	case ActionConfirm:
		return models.BookingConfirmed, true
	case ActionDecline:
		return models.BookingDeclined, true
	case ActionComplete:
		return models.BookingCompleted, true
	case ActionCancel:
		return models.BookingCancelled, true
	}
	return "", false
}

type BookingService struct {
	repo        models.BookingRepo
	phoneRegion string
	clock       Clock
}

func NewBookingService(repo models.BookingRepo, phoneRegion string) *BookingService {
	return &BookingService{
		repo:        repo,
		phoneRegion: phoneRegion,
		clock:       realClock{},
	}
}

func (bs *BookingService) ListForOperator(ctx context.Context, operatorID, accessToken string) ([]models.Booking, error) {
	bookings, err := bs.repo.ListBookingsByOperator(ctx, operatorID, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// LookupByContact finds a tourist's bookings by email or phone. The phone is
// normalised to E.164 since that is how bookings store it.
func (bs *BookingService) LookupByContact(ctx context.Context, email, phone string) ([]models.Booking, error) {
	email = strings.ToLower(helpers.StringTrim(email))
	phone = helpers.StringTrim(phone)
	if email == "" && phone == "" {
		return nil, models.ValidationError{Msg: "email or phone is required"}
	}
	if email != "" {
		if err := models.Validate.Var(email, "email"); err != nil {
			return nil, models.ValidationError{Field: "email", Msg: "invalid email format", Err: err}
		}
	}
	if phone != "" {
		normalized, err := helpers.NormalizePhone(phone, bs.phoneRegion)
		if err != nil {
			return nil, models.ValidationError{Field: "phone", Msg: err.Error(), Err: err}
		}
		phone = normalized
	}

	bookings, err := bs.repo.ListBookingsByContact(ctx, email, phone)
	if err != nil {
		return nil, fmt.Errorf("failed to look up bookings: %w", err)
	}
	return bookings, nil
}

func (bs *BookingService) Get(ctx context.Context, bookingID, accessToken string) (*models.Booking, error) {
	if err := models.Validate.Var(bookingID, "required,uuid"); err != nil {
		return nil, models.ValidationError{Field: "booking_id", Msg: "invalid booking id", Err: err}
	}
	return bs.repo.GetBooking(ctx, bookingID, accessToken)
}

// Transition asks the backend to apply action. Whether the move is legal is
// the backend's call; a refused update comes back as a ConflictError.
func (bs *BookingService) Transition(ctx context.Context, bookingID string, action Action, accessToken string) (*models.Booking, error) {
	target, ok := action.Target()
	if !ok {
		return nil, models.ValidationError{Field: "action", Msg: fmt.Sprintf("unknown action %q", action)}
	}
	if err := models.Validate.Var(bookingID, "required,uuid"); err != nil {
		return nil, models.ValidationError{Field: "booking_id", Msg: "invalid booking id", Err: err}
	}

	updated, err := bs.repo.UpdateBooking(ctx, bookingID, models.StatusFields(target, bs.clock.Now()), accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to %s booking: %w", action, err)
	}
	return updated, nil
}
