package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/joshua-takyi/tourdesk/internal/models"
	"github.com/supabase-community/gotrue-go/types"
)

// mockClock is a controllable clock for testing.
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var errBackend = errors.New("backend unavailable")

type fakeBookingRepo struct {
	mu         sync.Mutex
	bookings   map[string]models.Booking
	order      []string
	listErr    error
	unread     map[string]bool
	unreadErr  error
	updateErr  error
	listCalls  int
	lastFields map[string]interface{}
	lastEmail  string
	lastPhone  string
	gate       *listGate
}

// listGate parks the next ListBookingsByOperator after it has read its rows.
type listGate struct {
	entered chan struct{}
	release chan struct{}
}

func newFakeBookingRepo(bookings ...models.Booking) *fakeBookingRepo {
	r := &fakeBookingRepo{bookings: map[string]models.Booking{}, unread: map[string]bool{}}
	for _, b := range bookings {
		r.bookings[b.ID] = b
		r.order = append(r.order, b.ID)
	}
	return r
}

func (r *fakeBookingRepo) ListBookingsByOperator(ctx context.Context, operatorID, accessToken string) ([]models.Booking, error) {
	r.mu.Lock()
	r.listCalls++
	if r.listErr != nil {
		r.mu.Unlock()
		return nil, r.listErr
	}
	var out []models.Booking
	for _, id := range r.order {
		if b := r.bookings[id]; b.OperatorID == operatorID {
			out = append(out, b)
		}
	}
	gate := r.gate
	r.gate = nil
	r.mu.Unlock()

	if gate != nil {
		close(gate.entered)
		<-gate.release
	}
	return out, nil
}

func (r *fakeBookingRepo) hold() *listGate {
	g := &listGate{entered: make(chan struct{}), release: make(chan struct{})}
	r.mu.Lock()
	r.gate = g
	r.mu.Unlock()
	return g
}

func (r *fakeBookingRepo) ListBookingsByContact(ctx context.Context, email, phone string) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastEmail, r.lastPhone = email, phone
	var out []models.Booking
	for _, id := range r.order {
		b := r.bookings[id]
		if (email != "" && b.CustomerEmail == email) || (phone != "" && b.CustomerPhone == phone) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) GetBooking(ctx context.Context, id, accessToken string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, models.NotFoundError{Resource: "booking"}
	}
	return &b, nil
}

func (r *fakeBookingRepo) UpdateBooking(ctx context.Context, id string, fields map[string]interface{}, accessToken string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFields = fields
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	b, ok := r.bookings[id]
	if !ok {
		return nil, models.ConflictError{Resource: "booking", Msg: "update was not applied"}
	}
	if s, ok := fields["booking_status"].(models.BookingStatus); ok {
		b.Status = s
	}
	r.bookings[id] = b
	return &b, nil
}

func (r *fakeBookingRepo) UnreadBookingIDs(ctx context.Context, ids []string, reader models.SenderType, accessToken string) (map[string]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unreadErr != nil {
		return nil, r.unreadErr
	}
	out := map[string]bool{}
	for _, id := range ids {
		if r.unread[id] {
			out[id] = true
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) set(b models.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[b.ID]; !ok {
		r.order = append(r.order, b.ID)
	}
	r.bookings[b.ID] = b
}

func (r *fakeBookingRepo) failList(err error) {
	r.mu.Lock()
	r.listErr = err
	r.mu.Unlock()
}

func (r *fakeBookingRepo) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listCalls
}

type fakeTourRepo struct {
	tours     []models.Tour
	listErr   error
	updateErr error
	updated   []string
}

func (r *fakeTourRepo) ListTours(ctx context.Context, operatorID, accessToken string) ([]models.Tour, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []models.Tour
	for _, t := range r.tours {
		if t.OperatorID == operatorID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTourRepo) GetTour(ctx context.Context, id, accessToken string) (*models.Tour, error) {
	for _, t := range r.tours {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, models.NotFoundError{Resource: "tour"}
}

func (r *fakeTourRepo) UpdateTourImages(ctx context.Context, id string, images []string, accessToken string) (*models.Tour, error) {
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	r.updated = images
	for i, t := range r.tours {
		if t.ID == id {
			r.tours[i].Images = images
			t.Images = images
			return &t, nil
		}
	}
	return nil, models.NotFoundError{Resource: "tour"}
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []models.Message
	err      error
	next     int
}

func (r *fakeMessageRepo) InsertMessage(ctx context.Context, msg *models.Message, accessToken string) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.next++
	stored := *msg
	stored.ID = "msg-" + strconv.Itoa(r.next)
	r.messages = append(r.messages, stored)
	return &stored, nil
}

func (r *fakeMessageRepo) ListMessages(ctx context.Context, bookingID, accessToken string) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Message
	for _, m := range r.messages {
		if m.BookingID == bookingID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) MarkThreadRead(ctx context.Context, bookingID string, reader models.SenderType, accessToken string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i, m := range r.messages {
		if m.BookingID == bookingID && m.SenderType != reader && !m.IsRead {
			r.messages[i].IsRead = true
			n++
		}
	}
	return n, nil
}

type fakeSnapshotRepo struct {
	mu    sync.Mutex
	saved []*models.DashboardSnapshot
	ttl   time.Duration
}

func (r *fakeSnapshotRepo) SaveSnapshot(ctx context.Context, snap *models.DashboardSnapshot, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, snap)
	r.ttl = ttl
	return true, nil
}

func (r *fakeSnapshotRepo) ListSnapshots(ctx context.Context, operatorID string, limit int) ([]*models.DashboardSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.DashboardSnapshot
	for i := len(r.saved) - 1; i >= 0 && len(out) < limit; i-- {
		if r.saved[i].OperatorID == operatorID {
			out = append(out, r.saved[i])
		}
	}
	return out, nil
}

func (r *fakeSnapshotRepo) EnsureIndexes(ctx context.Context) error { return nil }

type fakeFunctions struct {
	reply   string
	err     error
	name    string
	payload interface{}
}

func (f *fakeFunctions) InvokeFunction(ctx context.Context, name string, payload interface{}, accessToken string) ([]byte, error) {
	f.name = name
	f.payload = payload
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.reply), nil
}

type fakeOperatorRepo struct {
	token     *types.TokenResponse
	authErr   error
	operators map[string]models.Operator
}

func (r *fakeOperatorRepo) AuthenticateUser(ctx context.Context, email, password string) (*types.TokenResponse, error) {
	return r.token, r.authErr
}

func (r *fakeOperatorRepo) RefreshToken(ctx context.Context, refreshToken string) (*types.TokenResponse, error) {
	return r.token, r.authErr
}

func (r *fakeOperatorRepo) GetProfile(ctx context.Context, userID, accessToken string) (*models.Profile, error) {
	return &models.Profile{ID: userID, Role: models.RoleOperator}, nil
}

func (r *fakeOperatorRepo) GetOperatorByUser(ctx context.Context, userID, accessToken string) (*models.Operator, error) {
	for _, op := range r.operators {
		if op.UserID == userID {
			return &op, nil
		}
	}
	return nil, models.NotFoundError{Resource: "operator"}
}

func (r *fakeOperatorRepo) GetOperator(ctx context.Context, id, accessToken string) (*models.Operator, error) {
	if op, ok := r.operators[id]; ok {
		return &op, nil
	}
	return nil, models.NotFoundError{Resource: "operator"}
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func intPtr(v int) *int { return &v }
