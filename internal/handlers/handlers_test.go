package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/tourdesk/internal/helpers"
	"github.com/joshua-takyi/tourdesk/internal/models"
	"github.com/joshua-takyi/tourdesk/internal/realtime"
	"github.com/joshua-takyi/tourdesk/internal/services"
)

const (
	confirmedID = "3f2b8c1e-7d4a-4b6e-9a1f-2c3d4e5f6a7b"
	pendingID   = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router   *gin.Engine
	bookings *stubBookings
	messages *stubMessages
	uploaded [][]string
}

func strPtr(s string) *string { return &s }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	deadline := time.Now().Add(4 * time.Hour)
	capacity := 10
	tours := &stubTours{rows: []models.Tour{
		{ID: "tpl-1", OperatorID: "op-1", Name: "Kakum Canopy", TourType: "nature", IsTemplate: true},
		{
			ID: "tour-1", OperatorID: "op-1", Name: "Kakum Canopy", TourType: "nature",
			TourDate: "2025-03-14", TimeSlot: "09:00", MaxCapacity: &capacity,
			BookingDeadline: &deadline, ParentTemplateID: strPtr("tpl-1"),
		},
		{ID: "tour-2", OperatorID: "op-1", Name: "Elmina Castle", TourType: "history", TourDate: "2025-03-15", TimeSlot: "14:00"},
	}}
	bookings := &stubBookings{rows: []models.Booking{
		{ID: confirmedID, OperatorID: "op-1", TourID: "tour-1", Status: models.BookingConfirmed, Subtotal: 100, Adults: 2, CustomerEmail: "kofi@example.com"},
		{ID: pendingID, OperatorID: "op-1", TourID: "tour-1", Status: models.BookingPending, Subtotal: 60, Adults: 1, CustomerEmail: "kofi@example.com"},
		{ID: "other-op", OperatorID: "op-2", TourID: "tour-9", Status: models.BookingConfirmed, Subtotal: 999},
	}}
	messages := &stubMessages{}

	ds := services.NewDashboardService(bookings, tours, nil, services.DashboardOptions{
		DebounceWindow: time.Minute,
		Logger:         discardLogger(),
	})
	bs := services.NewBookingService(bookings, "GH")
	cs := services.NewChatService(messages, bookings)
	env := &testEnv{bookings: bookings, messages: messages}
	ts := services.NewTourService(tours, func(ctx context.Context, paths []string, folder string) ([]string, error) {
		env.uploaded = append(env.uploaded, paths)
		return []string{"https://res.cloudinary.com/demo/" + folder + "/1.jpg"}, nil
	})

	r := gin.New()
	r.GET("/bookings/lookup", LookupBookings(bs))

	authed := r.Group("/")
	authed.Use(fakeAuth())
	authed.GET("/dashboard", GetDashboard(ds))
	authed.GET("/dashboard/stream", StreamDashboard(ds, nil, discardLogger()))
	authed.GET("/dashboard/history", DashboardHistory(ds))
	authed.GET("/dashboard/export.xlsx", ExportBookings(ds, time.UTC))
	authed.GET("/bookings", ListBookings(bs))
	authed.POST("/bookings/:id/transition", TransitionBooking(bs, ds))
	authed.GET("/bookings/:id/messages", ListMessages(cs))
	authed.POST("/bookings/:id/messages", SendMessage(cs))
	authed.POST("/bookings/:id/messages/read", MarkMessagesRead(cs, ds))
	authed.GET("/tours", ListTours(ts))
	authed.POST("/tours/:id/images", UploadTourImages(ts))
	authed.GET("/me", Me())

	env.router = r
	return env
}

// fakeAuth stands in for AuthMiddleware; X-Test-Role picks the identity.
func fakeAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.GetHeader("X-Test-Role") {
		case models.RoleAdmin:
			c.Set("user", &helpers.EnhancedClaims{Role: models.RoleAdmin, UserID: "admin-1", AccessToken: "admin-token"})
		case models.RoleTourist:
			c.Set("user", &helpers.EnhancedClaims{Role: models.RoleTourist, UserID: "tourist-1"})
		default:
			c.Set("user", &helpers.EnhancedClaims{
				Role: models.RoleOperator, UserID: "user-1", OperatorID: "op-1",
				CompanyName: "Cape Coast Walks", AccessToken: "op-token",
			})
		}
		c.Next()
	}
}

func (e *testEnv) do(method, target, role, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if role != "" {
		req.Header.Set("X-Test-Role", role)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type dashboardBody struct {
	Success bool   `json:"success"`
	Stale   bool   `json:"stale"`
	Message string `json:"message"`
	Data    struct {
		Dashboard struct {
			OperatorID string `json:"operator_id"`
			Summary    struct {
				TotalNet      float64 `json:"total_net"`
				PendingNet    float64 `json:"pending_net"`
				CriticalCount int     `json:"critical_count"`
			} `json:"summary"`
		} `json:"dashboard"`
		Groups []struct {
			Key         string `json:"key"`
			UrgentCount int    `json:"urgent_count"`
		} `json:"groups"`
	} `json:"data"`
}

func decodeDashboard(t *testing.T, w *httptest.ResponseRecorder) dashboardBody {
	t.Helper()
	var body dashboardBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v\n%s", err, w.Body.String())
	}
	return body
}

func TestGetDashboard(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/dashboard?sort=priority", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeDashboard(t, w)
	if body.Stale {
		t.Error("fresh dashboard marked stale")
	}
	if body.Data.Dashboard.OperatorID != "op-1" {
		t.Errorf("expected op-1, got %q", body.Data.Dashboard.OperatorID)
	}
	if body.Data.Dashboard.Summary.TotalNet != 100 || body.Data.Dashboard.Summary.PendingNet != 60 {
		t.Errorf("unexpected summary: %+v", body.Data.Dashboard.Summary)
	}
	if body.Data.Dashboard.Summary.CriticalCount != 1 {
		t.Errorf("expected one critical booking, got %d", body.Data.Dashboard.Summary.CriticalCount)
	}
	if len(body.Data.Groups) != 2 {
		t.Fatalf("expected 2 template groups, got %d", len(body.Data.Groups))
	}
	if body.Data.Groups[0].Key != "tpl-1" || body.Data.Groups[0].UrgentCount != 1 {
		t.Errorf("urgent group should sort first, got %+v", body.Data.Groups[0])
	}
}

func TestGetDashboardServesStaleCopy(t *testing.T) {
	env := newTestEnv(t)
	if w := env.do(http.MethodGet, "/dashboard", "", ""); w.Code != http.StatusOK {
		t.Fatalf("warm-up failed: %d", w.Code)
	}

	env.bookings.fail(errBackend)
	w := env.do(http.MethodGet, "/dashboard?refresh=true", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected stale 200, got %d", w.Code)
	}
	body := decodeDashboard(t, w)
	if !body.Stale || body.Message == "" {
		t.Errorf("expected stale response with reason, got %+v", body)
	}
	if body.Data.Dashboard.Summary.TotalNet != 100 {
		t.Errorf("stale copy lost its data: %+v", body.Data.Dashboard.Summary)
	}
}

func TestGetDashboardFirstFailure(t *testing.T) {
	env := newTestEnv(t)
	env.bookings.fail(errBackend)
	w := env.do(http.MethodGet, "/dashboard", "", "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestDashboardOperatorResolution(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(http.MethodGet, "/dashboard", models.RoleAdmin, ""); w.Code != http.StatusForbidden {
		t.Errorf("admin without operator_id: expected 403, got %d", w.Code)
	}
	if w := env.do(http.MethodGet, "/dashboard", models.RoleTourist, ""); w.Code != http.StatusForbidden {
		t.Errorf("tourist: expected 403, got %d", w.Code)
	}

	w := env.do(http.MethodGet, "/dashboard?operator_id=op-2", models.RoleAdmin, "")
	if w.Code != http.StatusOK {
		t.Fatalf("admin acting for op-2: expected 200, got %d", w.Code)
	}
	if got := decodeDashboard(t, w).Data.Dashboard.Summary.TotalNet; got != 999 {
		t.Errorf("expected op-2 revenue 999, got %v", got)
	}

	// operators cannot borrow another operator's id
	w = env.do(http.MethodGet, "/dashboard?operator_id=op-2", "", "")
	if got := decodeDashboard(t, w).Data.Dashboard.OperatorID; got != "op-1" {
		t.Errorf("operator escaped its own scope: %q", got)
	}
}

func TestStreamDashboardWithoutRealtime(t *testing.T) {
	env := newTestEnv(t)
	if w := env.do(http.MethodGet, "/dashboard/stream", "", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestDashboardHistoryWithoutStore(t *testing.T) {
	env := newTestEnv(t)
	if w := env.do(http.MethodGet, "/dashboard/history?limit=abc", "", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: expected 400, got %d", w.Code)
	}
	if w := env.do(http.MethodGet, "/dashboard/history", "", ""); w.Code != http.StatusBadGateway {
		t.Errorf("no snapshot store: expected 502, got %d", w.Code)
	}
}

func TestExportBookings(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/dashboard/export.xlsx", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "tourdesk-op-1-") || !strings.HasSuffix(cd, `.xlsx"`) {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}
	// xlsx files are zip archives
	if !strings.HasPrefix(w.Body.String(), "PK") {
		t.Error("expected a zip payload")
	}
}

func TestListBookings(t *testing.T) {
	env := newTestEnv(t)

	var body struct {
		Total int              `json:"total"`
		Data  []models.Booking `json:"data"`
	}
	w := env.do(http.MethodGet, "/bookings?status=pending", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 1 || body.Data[0].ID != pendingID {
		t.Errorf("status filter not applied: %+v", body)
	}

	if w := env.do(http.MethodGet, "/bookings?status=bogus", "", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad filter: expected 400, got %d", w.Code)
	}
}

func TestLookupBookings(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/bookings/lookup?email=KOFI@example.com", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Total int `json:"total"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.Total != 2 {
		t.Errorf("expected 2 bookings for the email, got %d", body.Total)
	}

	if w := env.do(http.MethodGet, "/bookings/lookup", "", ""); w.Code != http.StatusBadRequest {
		t.Errorf("missing contact: expected 400, got %d", w.Code)
	}
}

func TestTransitionBooking(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		id   string
		body string
		want int
	}{
		{"confirm", pendingID, `{"action":"confirm"}`, http.StatusOK},
		{"missing action", pendingID, `{}`, http.StatusBadRequest},
		{"unknown action", pendingID, `{"action":"teleport"}`, http.StatusBadRequest},
		{"bad id", "not-a-uuid", `{"action":"confirm"}`, http.StatusBadRequest},
		{"zero rows", "0b1c2d3e-4f5a-4b6c-8d7e-9f0a1b2c3d4e", `{"action":"confirm"}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/bookings/"+tt.id+"/transition", "", tt.body)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
	if got := env.bookings.lastPost["booking_status"]; got != models.BookingConfirmed {
		t.Errorf("expected confirmed to be sent, got %v", got)
	}
}

func TestTransitionInvalidatesDashboard(t *testing.T) {
	env := newTestEnv(t)
	before := decodeDashboard(t, env.do(http.MethodGet, "/dashboard", "", "")).Data.Dashboard.Summary
	if before.PendingNet != 60 {
		t.Fatalf("unexpected starting summary %+v", before)
	}

	if w := env.do(http.MethodPost, "/bookings/"+pendingID+"/transition", "", `{"action":"confirm"}`); w.Code != http.StatusOK {
		t.Fatalf("transition failed: %d", w.Code)
	}

	after := decodeDashboard(t, env.do(http.MethodGet, "/dashboard", "", "")).Data.Dashboard.Summary
	if after.PendingNet != 0 || after.TotalNet != 160 {
		t.Errorf("dashboard not rebuilt after transition: %+v", after)
	}
}

func TestChatEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/bookings/"+pendingID+"/messages", "", `{"message":"hello"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("pending booking: expected 409, got %d", w.Code)
	}

	w = env.do(http.MethodPost, "/bookings/"+confirmedID+"/messages", "", `{"message":"See you at 9"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if got := env.messages.rows[0].SenderType; got != models.SenderOperator {
		t.Errorf("expected operator sender, got %q", got)
	}

	env.messages.rows = append(env.messages.rows, models.Message{
		ID: "m2", BookingID: confirmedID, SenderType: models.SenderTourist, SenderID: "t1", Text: "thanks",
	})
	w = env.do(http.MethodPost, "/bookings/"+confirmedID+"/messages/read", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"marked":1`) {
		t.Errorf("expected one message marked read, got %d %s", w.Code, w.Body.String())
	}

	w = env.do(http.MethodGet, "/bookings/"+confirmedID+"/messages", "", "")
	if !strings.Contains(w.Body.String(), `"total":2`) {
		t.Errorf("expected two messages in thread, got %s", w.Body.String())
	}

	if w := env.do(http.MethodPost, "/bookings/"+confirmedID+"/messages", "", `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("empty body: expected 400, got %d", w.Code)
	}
}

func TestListToursAndMe(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/tours", "", "")
	var body struct {
		Data models.Catalog `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Data.Tours) != 2 || len(body.Data.Templates) != 1 {
		t.Errorf("unexpected catalog: %+v", body.Data)
	}

	w = env.do(http.MethodGet, "/me", "", "")
	if !strings.Contains(w.Body.String(), `"company_name":"Cape Coast Walks"`) {
		t.Errorf("me did not include operator: %s", w.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.ValidationError{Msg: "x"}, http.StatusBadRequest},
		{models.NotFoundError{Resource: "booking"}, http.StatusNotFound},
		{models.ConflictError{Resource: "booking", Msg: "x"}, http.StatusConflict},
		{models.UpstreamError{Service: "capture-payment", Err: errBackend}, http.StatusBadGateway},
		{errBackend, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%T) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestUploadTourImages(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/tours/tour-2/images", "", `{"images":["https://example.com/elmina.jpg"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if len(env.uploaded) != 1 {
		t.Errorf("uploader called %d times", len(env.uploaded))
	}

	for _, src := range []string{"/proc/self/environ", ".env.local"} {
		w := env.do(http.MethodPost, "/tours/tour-2/images", "", `{"images":["`+src+`"]}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", src, w.Code)
		}
	}
	if len(env.uploaded) != 1 {
		t.Error("server-side paths must never reach the uploader")
	}
}

func TestDrainPending(t *testing.T) {
	events := make(chan realtime.Change, 8)
	for i := 0; i < 5; i++ {
		events <- realtime.Change{}
	}
	if !drainPending(events) {
		t.Fatal("open channel reported closed")
	}
	if len(events) != 0 {
		t.Errorf("%d changes left queued, burst should collapse into one rebuild", len(events))
	}

	events <- realtime.Change{}
	close(events)
	if drainPending(events) {
		t.Error("closed channel reported open")
	}
}
