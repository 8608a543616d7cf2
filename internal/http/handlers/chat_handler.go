// Chat HTTP handlers.
//
//   - GET  /chats                         (my chats, paginated)
//   - GET  /chat/{bookingId}              (get-or-create, parties only)
//   - POST /chat/{bookingId}/messages     (send, Idempotency-Key aware)
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-rentme-backend/internal/domain"
	"github.com/tbourn/go-rentme-backend/internal/http/middleware"
	"github.com/tbourn/go-rentme-backend/internal/utils"
)

// SendMessageRequest is the JSON payload for a chat message.
type SendMessageRequest struct {
	Content string `json:"content" binding:"required" example:"Hi, is this still available?"`
}

// ChatResponse is a chat with its messages (oldest first) and the booking it
// belongs to, including listing and renter.
type ChatResponse struct {
	ID        string           `json:"id"`
	BookingID string           `json:"bookingId"`
	Messages  []domain.Message `json:"messages"`
	Booking   *domain.Booking  `json:"booking"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// ListChatsResponse wraps a page of chats.
type ListChatsResponse struct {
	Chats      []ChatSummary    `json:"chats"`
	Pagination utils.Pagination `json:"pagination"`
}

// ChatSummary is a chat row in the list view.
type ChatSummary struct {
	ID        string          `json:"id"`
	BookingID string          `json:"bookingId"`
	Booking   *domain.Booking `json:"booking,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// GetChat godoc
// @ID          getChat
// @Summary     Get (or open) the chat of a booking
// @Tags        Chats
// @Produce     json
// @Security    BearerAuth
// @Param       bookingId  path      string  true  "Booking ID"
// @Success     200        {object}  handlers.ChatResponse
// @Failure     403        {object}  handlers.ErrorResponse  "Not a party"
// @Failure     404        {object}  handlers.ErrorResponse  "Booking not found"
// @Router      /chat/{bookingId} [get]
func (h *Handlers) GetChat(c *gin.Context) {
	v, err := h.chats.GetOrCreate(c.Request.Context(), c.Param("bookingId"), middleware.UserIDFrom(c))
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, ChatResponse{
		ID:        v.Chat.ID,
		BookingID: v.Chat.BookingID,
		Messages:  v.Chat.Messages,
		Booking:   v.Booking,
		CreatedAt: v.Chat.CreatedAt,
		UpdatedAt: v.Chat.UpdatedAt,
	})
}

// SendMessage godoc
// @ID          sendMessage
// @Summary     Send a chat message
// @Description Appends a message; the sender role is "owner" for the listing owner and "user" for the renter. The other party is notified.
// @Tags        Chats
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       bookingId        path    string                       true   "Booking ID"
// @Param       Idempotency-Key  header  string                       false  "Client retry key"
// @Param       body             body    handlers.SendMessageRequest  true   "Message"
// @Success     201  {object}  domain.Message
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     403  {object}  handlers.ErrorResponse  "Not a party"
// @Failure     404  {object}  handlers.ErrorResponse  "Booking not found"
// @Router      /chat/{bookingId}/messages [post]
func (h *Handlers) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()
	bookingID := c.Param("bookingId")
	uid := middleware.UserIDFrom(c)

	if rep, replay := middleware.ReplayFrom(c); replay {
		if v, err := h.chats.GetOrCreate(ctx, bookingID, uid); err == nil {
			for i := range v.Chat.Messages {
				if v.Chat.Messages[i].ID == rep.ResourceID {
					c.Header("Idempotent-Replayed", "true")
					ok(c, rep.Status, v.Chat.Messages[i])
					return
				}
			}
		}
	}

	var req SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.chats.SendMessage(ctx, bookingID, uid, req.Content)
	if err != nil {
		handleError(c, err)
		return
	}
	h.remember(c, m.ID, http.StatusCreated)
	ok(c, http.StatusCreated, m)
}

// ListChats godoc
// @ID          listChats
// @Summary     List my chats (paginated)
// @Description Chats of bookings where I am the renter or the listing owner, most recently active first.
// @Tags        Chats
// @Produce     json
// @Security    BearerAuth
// @Param       page       query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListChatsResponse
// @Router      /chats [get]
func (h *Handlers) ListChats(c *gin.Context) {
	page, pageSize := utils.ClampPage(c.Query("page"), c.Query("page_size"))
	items, total, err := h.chats.ListForUser(c.Request.Context(), middleware.UserIDFrom(c), page, pageSize)
	if err != nil {
		handleError(c, err)
		return
	}
	out := make([]ChatSummary, 0, len(items))
	for _, ch := range items {
		out = append(out, ChatSummary{ID: ch.ID, BookingID: ch.BookingID, Booking: ch.Booking, UpdatedAt: ch.UpdatedAt})
	}
	ok(c, http.StatusOK, ListChatsResponse{
		Chats:      out,
		Pagination: utils.NewPagination(page, pageSize, total),
	})
}
