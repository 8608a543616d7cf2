// Booking HTTP handlers.
//
//   - POST  /bookings              (create, Idempotency-Key aware)
//   - GET   /bookings?role=        (renter|owner, paginated)
//   - GET   /bookings/{id}         (parties only)
//   - PATCH /bookings/{id}/status  (listing owner only)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-rentme-backend/internal/domain"
	"github.com/tbourn/go-rentme-backend/internal/http/middleware"
	"github.com/tbourn/go-rentme-backend/internal/services"
	"github.com/tbourn/go-rentme-backend/internal/utils"
)

// CreateBookingRequest is the JSON payload for a booking request. Dates are
// RFC 3339 timestamps or YYYY-MM-DD.
type CreateBookingRequest struct {
	ListingID string `json:"listingId" binding:"required,max=64" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	StartDate string `json:"startDate" binding:"required"        example:"2024-01-01"`
	EndDate   string `json:"endDate"   binding:"required"        example:"2024-01-04"`
	Message   string `json:"message"   binding:"max=2000"        example:"Picking up Friday evening"`
}

// UpdateBookingStatusRequest is the JSON payload of a status transition.
type UpdateBookingStatusRequest struct {
	Status string `json:"status" binding:"required,booking_status" example:"CONFIRMED" enums:"CONFIRMED,CANCELLED,COMPLETED"`
}

// ListBookingsResponse wraps a page of bookings.
type ListBookingsResponse struct {
	Bookings   []domain.Booking `json:"bookings"`
	Pagination utils.Pagination `json:"pagination"`
}

// CreateBooking godoc
// @ID          createBooking
// @Summary     Request a booking
// @Description Creates a PENDING booking and notifies the listing owner. Retries carrying the same Idempotency-Key return the original booking.
// @Tags        Bookings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key  header  string                         false  "Client retry key"
// @Param       body             body    handlers.CreateBookingRequest  true   "Booking request"
// @Success     201  {object}  domain.Booking
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed or own listing"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "Listing not found"
// @Router      /bookings [post]
func (h *Handlers) CreateBooking(c *gin.Context) {
	ctx := c.Request.Context()
	uid := middleware.UserIDFrom(c)

	if rep, replay := middleware.ReplayFrom(c); replay {
		if b, err := h.bookings.Get(ctx, rep.ResourceID, uid); err == nil {
			c.Header("Idempotent-Replayed", "true")
			ok(c, rep.Status, b)
			return
		}
	}

	var req CreateBookingRequest
	if !bindJSON(c, &req) {
		return
	}
	fields := map[string]string{}
	start, err := parseDate(req.StartDate)
	if err != nil {
		fields["startDate"] = "must be a date (YYYY-MM-DD or RFC 3339)"
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		fields["endDate"] = "must be a date (YYYY-MM-DD or RFC 3339)"
	}
	if len(fields) > 0 {
		failFields(c, http.StatusBadRequest, ErrCodeValidation, "validation failed", fields)
		return
	}

	b, err := h.bookings.Create(ctx, uid, services.CreateBookingInput{
		ListingID: strings.TrimSpace(req.ListingID),
		StartDate: start,
		EndDate:   end,
		Message:   req.Message,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	h.remember(c, b.ID, http.StatusCreated)
	ok(c, http.StatusCreated, b)
}

// ListBookings godoc
// @ID          listBookings
// @Summary     List my bookings
// @Description role=renter (default) lists bookings I made; role=owner lists bookings on my listings.
// @Tags        Bookings
// @Produce     json
// @Security    BearerAuth
// @Param       role       query  string  false  "renter or owner"  Enums(renter, owner) default(renter)
// @Param       page       query  int     false  "Page number"      minimum(1) default(1)
// @Param       page_size  query  int     false  "Items per page"   minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListBookingsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad role"
// @Router      /bookings [get]
func (h *Handlers) ListBookings(c *gin.Context) {
	ctx := c.Request.Context()
	uid := middleware.UserIDFrom(c)
	page, pageSize := utils.ClampPage(c.Query("page"), c.Query("page_size"))

	var (
		items []domain.Booking
		total int64
		err   error
	)
	switch strings.ToLower(c.DefaultQuery("role", "renter")) {
	case "renter":
		items, total, err = h.bookings.ListForRenter(ctx, uid, page, pageSize)
	case "owner":
		items, total, err = h.bookings.ListForOwner(ctx, uid, page, pageSize)
	default:
		failFields(c, http.StatusBadRequest, ErrCodeValidation, "validation failed",
			map[string]string{"role": "must be one of renter owner"})
		return
	}
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, ListBookingsResponse{
		Bookings:   items,
		Pagination: utils.NewPagination(page, pageSize, total),
	})
}

// GetBooking godoc
// @ID          getBooking
// @Summary     Get a booking
// @Tags        Bookings
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Booking ID"
// @Success     200  {object}  domain.Booking
// @Failure     403  {object}  handlers.ErrorResponse  "Not a party"
// @Failure     404  {object}  handlers.ErrorResponse  "Booking not found"
// @Router      /bookings/{id} [get]
func (h *Handlers) GetBooking(c *gin.Context) {
	b, err := h.bookings.Get(c.Request.Context(), c.Param("id"), middleware.UserIDFrom(c))
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, b)
}

// UpdateBookingStatus godoc
// @ID          updateBookingStatus
// @Summary     Transition a booking
// @Description Only the listing owner may transition. CONFIRMED opens the booking chat; the renter is notified of every change.
// @Tags        Bookings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                               true  "Booking ID"
// @Param       body  body      handlers.UpdateBookingStatusRequest  true  "Target status"
// @Success     200   {object}  domain.Booking
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid status"
// @Failure     403   {object}  handlers.ErrorResponse  "Not the listing owner"
// @Failure     404   {object}  handlers.ErrorResponse  "Booking not found"
// @Router      /bookings/{id}/status [patch]
func (h *Handlers) UpdateBookingStatus(c *gin.Context) {
	var req UpdateBookingStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	target := domain.BookingStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	b, err := h.bookings.TransitionStatus(c.Request.Context(), c.Param("id"), middleware.UserIDFrom(c), target)
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, b)
}
