package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/joshua-takyi/tourdesk/internal/chat"
	"github.com/joshua-takyi/tourdesk/internal/models"
)

type ChatService struct {
	messages models.MessageRepo
	bookings models.BookingRepo
	clock    Clock
}

func NewChatService(messages models.MessageRepo, bookings models.BookingRepo) *ChatService {
	return &ChatService{
		messages: messages,
		bookings: bookings,
		clock:    realClock{},
	}
}

// Send stores a message on a booking's thread. Threads open once the booking
// is confirmed and stay open after completion.
func (cs *ChatService) Send(ctx context.Context, bookingID string, from models.SenderType, senderID, text, accessToken string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.ValidationError{Field: "message", Msg: "message is empty"}
	}
	booking, err := cs.bookings.GetBooking(ctx, bookingID, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if booking.Status != models.BookingConfirmed && booking.Status != models.BookingCompleted {
		return nil, models.ConflictError{
			Resource: "chat",
			Msg:      fmt.Sprintf("messages cannot be sent on a %s booking", booking.Status),
		}
	}

	msg := &models.Message{
		BookingID:  bookingID,
		SenderType: from,
		SenderID:   senderID,
		Text:       text,
		CreatedAt:  cs.clock.Now(),
	}
	stored, err := cs.messages.InsertMessage(ctx, msg, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	return stored, nil
}

func (cs *ChatService) List(ctx context.Context, bookingID, accessToken string) ([]models.Message, error) {
	msgs, err := cs.messages.ListMessages(ctx, bookingID, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}

// MarkRead marks as read every message the reader did not send.
func (cs *ChatService) MarkRead(ctx context.Context, bookingID string, reader models.SenderType, accessToken string) (int64, error) {
	n, err := cs.messages.MarkThreadRead(ctx, bookingID, reader, accessToken)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	return n, nil
}

// For binds an access token so the service can back a chat.Thread.
func (cs *ChatService) For(accessToken string) chat.Sender {
	return tokenSender{cs: cs, token: accessToken}
}

type tokenSender struct {
	cs    *ChatService
	token string
}

func (t tokenSender) SendMessage(ctx context.Context, bookingID string, from models.SenderType, senderID, text string) (*models.Message, error) {
	return t.cs.Send(ctx, bookingID, from, senderID, text, t.token)
}
