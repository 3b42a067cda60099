package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joshua-takyi/tourdesk/internal/models"
)

// PaymentOutcome is the processor's answer plus the booking as it now stands.
type PaymentOutcome struct {
	Booking *models.Booking       `json:"booking"`
	Result  *models.PaymentResult `json:"result"`
}

type PaymentService struct {
	functions models.FunctionInvoker
	bookings  models.BookingRepo
	logger    *slog.Logger
}

func NewPaymentService(functions models.FunctionInvoker, bookings models.BookingRepo, logger *slog.Logger) *PaymentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentService{
		functions: functions,
		bookings:  bookings,
		logger:    logger,
	}
}

// Capture charges the authorised payment of a confirmed booking.
func (ps *PaymentService) Capture(ctx context.Context, bookingID, accessToken string) (*PaymentOutcome, error) {
	booking, err := ps.bookings.GetBooking(ctx, bookingID, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if booking.Status != models.BookingConfirmed && booking.Status != models.BookingCompleted {
		return nil, models.ConflictError{Resource: "payment", Msg: "only confirmed bookings can be captured"}
	}
	if booking.PaymentIntentID == nil || *booking.PaymentIntentID == "" {
		return nil, models.ConflictError{Resource: "payment", Msg: "booking has no payment to capture"}
	}
	if booking.PaymentCapturedAt != nil {
		return nil, models.ConflictError{Resource: "payment", Msg: "payment was already captured"}
	}

	raw, err := ps.functions.InvokeFunction(ctx, models.CapturePaymentFunction, models.CaptureRequest{
		BookingID:       booking.ID,
		PaymentIntentID: *booking.PaymentIntentID,
		Amount:          booking.TotalAmount,
	}, accessToken)
	if err != nil {
		return nil, err
	}
	result, err := models.DecodePaymentResult(raw)
	if err != nil {
		ps.logger.Warn("Payment capture refused", "booking_id", booking.ID, "error", err)
		return nil, err
	}
	ps.logger.Info("Payment captured",
		"booking_id", booking.ID,
		"amount", result.CapturedAmount,
		"charge_id", result.ChargeID,
	)
	return ps.outcome(ctx, booking, result, accessToken), nil
}

// Refund returns money on a captured payment. A zero amount refunds in full.
func (ps *PaymentService) Refund(ctx context.Context, bookingID string, amount float64, reason, accessToken string) (*PaymentOutcome, error) {
	if amount < 0 {
		return nil, models.ValidationError{Field: "amount", Msg: "amount must not be negative"}
	}
	booking, err := ps.bookings.GetBooking(ctx, bookingID, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if booking.PaymentIntentID == nil || booking.PaymentCapturedAt == nil {
		return nil, models.ConflictError{Resource: "payment", Msg: "booking has no captured payment to refund"}
	}
	if amount == 0 {
		amount = booking.TotalAmount
	}
	if amount > booking.TotalAmount {
		return nil, models.ValidationError{Field: "amount", Msg: "refund exceeds the amount paid"}
	}

	raw, err := ps.functions.InvokeFunction(ctx, models.RefundPaymentFunction, models.RefundRequest{
		BookingID:       booking.ID,
		PaymentIntentID: *booking.PaymentIntentID,
		Amount:          amount,
		Reason:          reason,
	}, accessToken)
	if err != nil {
		return nil, err
	}
	result, err := models.DecodePaymentResult(raw)
	if err != nil {
		ps.logger.Warn("Refund refused", "booking_id", booking.ID, "error", err)
		return nil, err
	}
	ps.logger.Info("Payment refunded",
		"booking_id", booking.ID,
		"amount", result.RefundedAmount,
		"refund_id", result.RefundID,
	)
	return ps.outcome(ctx, booking, result, accessToken), nil
}

// outcome re-reads the booking the function just changed. The payment went
// through either way, so a failed re-read falls back to the old row.
func (ps *PaymentService) outcome(ctx context.Context, before *models.Booking, result *models.PaymentResult, accessToken string) *PaymentOutcome {
	after, err := ps.bookings.GetBooking(ctx, before.ID, accessToken)
	if err != nil {
		ps.logger.Warn("Failed to reload booking after payment", "booking_id", before.ID, "error", err)
		after = before
	}
	return &PaymentOutcome{Booking: after, Result: result}
}
