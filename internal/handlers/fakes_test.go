package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/joshua-takyi/tourdesk/internal/models"
)

var errBackend = errors.New("backend unavailable")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubBookings struct {
	mu       sync.Mutex
	rows     []models.Booking
	listErr  error
	lastPost map[string]interface{}
}

func (s *stubBookings) ListBookingsByOperator(ctx context.Context, operatorID, accessToken string) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.Booking
	for _, b := range s.rows {
		if b.OperatorID == operatorID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *stubBookings) ListBookingsByContact(ctx context.Context, email, phone string) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Booking
	for _, b := range s.rows {
		if (email != "" && b.CustomerEmail == email) || (phone != "" && b.CustomerPhone == phone) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *stubBookings) GetBooking(ctx context.Context, id, accessToken string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.rows {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, models.NotFoundError{Resource: "booking"}
}

func (s *stubBookings) UpdateBooking(ctx context.Context, id string, fields map[string]interface{}, accessToken string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPost = fields
	for i, b := range s.rows {
		if b.ID != id {
			continue
		}
		if st, ok := fields["booking_status"].(models.BookingStatus); ok {
			s.rows[i].Status = st
		}
		out := s.rows[i]
		return &out, nil
	}
	return nil, models.ConflictError{Resource: "booking", Msg: "update was not applied"}
}

func (s *stubBookings) UnreadBookingIDs(ctx context.Context, ids []string, reader models.SenderType, accessToken string) (map[string]bool, error) {
	return map[string]bool{}, nil
}

func (s *stubBookings) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listErr = err
}

type stubTours struct {
	rows []models.Tour
}

func (s *stubTours) ListTours(ctx context.Context, operatorID, accessToken string) ([]models.Tour, error) {
	var out []models.Tour
	for _, t := range s.rows {
		if t.OperatorID == operatorID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *stubTours) GetTour(ctx context.Context, id, accessToken string) (*models.Tour, error) {
	for _, t := range s.rows {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, models.NotFoundError{Resource: "tour"}
}

func (s *stubTours) UpdateTourImages(ctx context.Context, id string, images []string, accessToken string) (*models.Tour, error) {
	for i, t := range s.rows {
		if t.ID == id {
			s.rows[i].Images = images
			out := s.rows[i]
			return &out, nil
		}
	}
	return nil, models.NotFoundError{Resource: "tour"}
}

type stubMessages struct {
	mu   sync.Mutex
	rows []models.Message
}

func (s *stubMessages) InsertMessage(ctx context.Context, msg *models.Message, accessToken string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *msg
	stored.ID = "m" + strconv.Itoa(len(s.rows)+1)
	s.rows = append(s.rows, stored)
	return &stored, nil
}

func (s *stubMessages) ListMessages(ctx context.Context, bookingID, accessToken string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	for _, m := range s.rows {
		if m.BookingID == bookingID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *stubMessages) MarkThreadRead(ctx context.Context, bookingID string, reader models.SenderType, accessToken string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i, m := range s.rows {
		if m.BookingID == bookingID && m.SenderType != reader && !m.IsRead {
			s.rows[i].IsRead = true
			n++
		}
	}
	return n, nil
}
