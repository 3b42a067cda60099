package services

import (
	"context"
	"testing"

	"github.com/joshua-takyi/tourdesk/internal/chat"
	"github.com/joshua-takyi/tourdesk/internal/models"
)

func TestChatSend_RequiresOpenBooking(t *testing.T) {
	bookings := newFakeBookingRepo(
		models.Booking{ID: "pending", Status: models.BookingPending},
		models.Booking{ID: "confirmed", Status: models.BookingConfirmed},
		models.Booking{ID: "completed", Status: models.BookingCompleted},
		models.Booking{ID: "declined", Status: models.BookingDeclined},
	)
	svc := NewChatService(&fakeMessageRepo{}, bookings)
	ctx := context.Background()

	for _, id := range []string{"confirmed", "completed"} {
		msg, err := svc.Send(ctx, id, models.SenderOperator, "u1", "hello", "tok")
		if err != nil {
			t.Errorf("%s: unexpected error %v", id, err)
			continue
		}
		if msg.ID == "" || msg.BookingID != id {
			t.Errorf("%s: unexpected stored message %+v", id, msg)
		}
	}
	for _, id := range []string{"pending", "declined"} {
		if _, err := svc.Send(ctx, id, models.SenderOperator, "u1", "hello", "tok"); !models.IsConflict(err) {
			t.Errorf("%s: expected ConflictError, got %v", id, err)
		}
	}
	if _, err := svc.Send(ctx, "confirmed", models.SenderOperator, "u1", "   ", "tok"); !models.IsValidation(err) {
		t.Errorf("empty text: expected ValidationError, got %v", err)
	}
	if _, err := svc.Send(ctx, "missing", models.SenderOperator, "u1", "hi", "tok"); !models.IsNotFound(err) {
		t.Errorf("missing booking: expected NotFoundError, got %v", err)
	}
}

func TestChatMarkRead(t *testing.T) {
	messages := &fakeMessageRepo{messages: []models.Message{
		{ID: "1", BookingID: "bk", SenderType: models.SenderTourist},
		{ID: "2", BookingID: "bk", SenderType: models.SenderTourist},
		{ID: "3", BookingID: "bk", SenderType: models.SenderOperator},
		{ID: "4", BookingID: "other", SenderType: models.SenderTourist},
	}}
	svc := NewChatService(messages, newFakeBookingRepo())

	n, err := svc.MarkRead(context.Background(), "bk", models.SenderOperator, "tok")
	if err != nil || n != 2 {
		t.Fatalf("MarkRead = %d, %v", n, err)
	}
	for _, m := range messages.messages {
		wantRead := m.BookingID == "bk" && m.SenderType == models.SenderTourist
		if m.IsRead != wantRead {
			t.Errorf("message %s read = %v, want %v", m.ID, m.IsRead, wantRead)
		}
	}
}

func TestChatService_BacksThread(t *testing.T) {
	bookings := newFakeBookingRepo(models.Booking{ID: "bk", Status: models.BookingConfirmed})
	svc := NewChatService(&fakeMessageRepo{}, bookings)

	th := chat.NewThread("bk", models.SenderOperator, "u1", svc.For("tok"))
	th.SetDraft("see you at nine")
	if err := th.Send(context.Background()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	entries := th.Entries()
	if len(entries) != 1 || entries[0].Tentative || entries[0].Message.ID == "" {
		t.Errorf("expected one confirmed entry, got %+v", entries)
	}

	listed, err := svc.List(context.Background(), "bk", "tok")
	if err != nil || len(listed) != 1 {
		t.Errorf("List = %v, %v", listed, err)
	}
}
