package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-rentme-backend/internal/domain"
	"github.com/tbourn/go-rentme-backend/internal/http/middleware"
	"github.com/tbourn/go-rentme-backend/internal/repo"
	"github.com/tbourn/go-rentme-backend/internal/services"
)

func init() { gin.SetMode(gin.TestMode) }

// asUser stands in for RequireAuth.
func asUser(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.CtxUserID, id)
		c.Next()
	}
}

func newEngine(uid string) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), asUser(uid))
	return r
}

func call(r http.Handler, method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errBody(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return e
}

//
// Stubs
//

type stubBookings struct {
	created   services.CreateBookingInput
	createErr error
	target    domain.BookingStatus
	transErr  error
	role      string
	getErr    error
}

func (s *stubBookings) Create(_ context.Context, renterID string, in services.CreateBookingInput) (*domain.Booking, error) {
	s.created = in
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &domain.Booking{ID: "b-new", RenterID: renterID, ListingID: in.ListingID, Status: domain.BookingPending}, nil
}

func (s *stubBookings) TransitionStatus(_ context.Context, id, _ string, target domain.BookingStatus) (*domain.Booking, error) {
	s.target = target
	if s.transErr != nil {
		return nil, s.transErr
	}
	return &domain.Booking{ID: id, Status: target}, nil
}

func (s *stubBookings) Get(_ context.Context, id, _ string) (*domain.Booking, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &domain.Booking{ID: id, Status: domain.BookingPending}, nil
}

func (s *stubBookings) ListForRenter(context.Context, string, int, int) ([]domain.Booking, int64, error) {
	s.role = "renter"
	return []domain.Booking{{ID: "b1"}}, 1, nil
}

func (s *stubBookings) ListForOwner(context.Context, string, int, int) ([]domain.Booking, int64, error) {
	s.role = "owner"
	return []domain.Booking{}, 0, nil
}

type stubChats struct {
	view    *services.ChatView
	err     error
	sent    string
	sendErr error
}

func (s *stubChats) GetOrCreate(context.Context, string, string) (*services.ChatView, error) {
	return s.view, s.err
}

func (s *stubChats) SendMessage(_ context.Context, _, _, content string) (*domain.Message, error) {
	s.sent = content
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	return &domain.Message{ID: "m-new", Content: content, Sender: domain.SenderUser}, nil
}

func (s *stubChats) ListForUser(context.Context, string, int, int) ([]domain.Chat, int64, error) {
	return []domain.Chat{{ID: "c1", BookingID: "b1"}}, 1, nil
}

type stubNotifications struct {
	fp       string
	listed   int
	markErr  error
	allCount int64
}

func (s *stubNotifications) List(context.Context, string) ([]domain.Notification, error) {
	s.listed++
	return []domain.Notification{{ID: "n1", Title: "Booking Confirmed!"}}, nil
}
func (s *stubNotifications) UnreadCount(context.Context, string) (int64, error) { return 3, nil }
func (s *stubNotifications) MarkRead(context.Context, string, string) error     { return s.markErr }
func (s *stubNotifications) MarkAllRead(context.Context, string) (int64, error) {
	return s.allCount, nil
}
func (s *stubNotifications) Fingerprint(context.Context, string) (string, error) { return s.fp, nil }

type stubListings struct {
	query services.ListingQuery
	stamp string
}

func (s *stubListings) Create(_ context.Context, ownerID string, in services.ListingInput) (*domain.Listing, error) {
	if in.Title == nil {
		return nil, services.NewValidationError("title", "is required")
	}
	return &domain.Listing{ID: "l-new", OwnerID: ownerID, Title: *in.Title}, nil
}
func (s *stubListings) Get(_ context.Context, id string) (*domain.Listing, error) {
	if id == "missing" {
		return nil, services.ErrListingNotFound
	}
	return &domain.Listing{ID: id}, nil
}
func (s *stubListings) Update(_ context.Context, id, _ string, _ services.ListingInput) (*domain.Listing, error) {
	return nil, services.ErrForbidden
}
func (s *stubListings) Delete(context.Context, string, string) error { return nil }
func (s *stubListings) Search(_ context.Context, q services.ListingQuery) ([]domain.Listing, int64, error) {
	s.query = q
	return []domain.Listing{{ID: "l1"}}, 1, nil
}
func (s *stubListings) Stats(context.Context, repo.ListingFilter) (int64, string, error) {
	return 1, s.stamp, nil
}

type recordingIdem struct {
	userID, scope, key, resourceID string
	status                         int
}

func (r *recordingIdem) Save(_ context.Context, userID, scope, key, resourceID string, status int) error {
	*r = recordingIdem{userID, scope, key, resourceID, status}
	return nil
}
