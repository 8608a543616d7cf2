// Notification HTTP handlers.
//
//   - GET   /notifications                 (50 newest, ETag)
//   - GET   /notifications/unread-count
//   - PATCH /notifications/{id}/read
//   - PATCH /notifications/mark-all-read
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-rentme-backend/internal/domain"
	"github.com/tbourn/go-rentme-backend/internal/http/middleware"
)

// ListNotificationsResponse wraps the newest notifications.
type ListNotificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
}

// UnreadCountResponse carries the unread counter.
type UnreadCountResponse struct {
	Count int64 `json:"count" example:"3"`
}

// MarkAllReadResponse reports how many notifications changed.
type MarkAllReadResponse struct {
	Updated int64 `json:"updated" example:"3"`
}

// ListNotifications godoc
// @ID          listNotifications
// @Summary     List my notifications
// @Description Returns the 50 newest notifications, newest first. Supports weak ETag via If-None-Match.
// @Tags        Notifications
// @Produce     json
// @Security    BearerAuth
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Success     200  {object}  handlers.ListNotificationsResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Router      /notifications [get]
func (h *Handlers) ListNotifications(c *gin.Context) {
	ctx := c.Request.Context()
	uid := middleware.UserIDFrom(c)

	if fp, err := h.notifications.Fingerprint(ctx, uid); err == nil {
		if notModified(c, weakETag("notifications", uid, fp)) {
			return
		}
	}

	items, err := h.notifications.List(ctx, uid)
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, ListNotificationsResponse{Notifications: items})
}

// UnreadCount godoc
// @ID          unreadNotificationCount
// @Summary     Count unread notifications
// @Tags        Notifications
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.UnreadCountResponse
// @Router      /notifications/unread-count [get]
func (h *Handlers) UnreadCount(c *gin.Context) {
	n, err := h.notifications.UnreadCount(c.Request.Context(), middleware.UserIDFrom(c))
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, UnreadCountResponse{Count: n})
}

// MarkNotificationRead godoc
// @ID          markNotificationRead
// @Summary     Mark one notification read
// @Tags        Notifications
// @Security    BearerAuth
// @Param       id   path    string  true  "Notification ID"
// @Success     204  {string} string "No Content"
// @Failure     403  {object} handlers.ErrorResponse  "Not yours"
// @Failure     404  {object} handlers.ErrorResponse  "Notification not found"
// @Router      /notifications/{id}/read [patch]
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	if err := h.notifications.MarkRead(c.Request.Context(), c.Param("id"), middleware.UserIDFrom(c)); err != nil {
		handleError(c, err)
		return
	}
	noContent(c)
}

// MarkAllNotificationsRead godoc
// @ID          markAllNotificationsRead
// @Summary     Mark all my notifications read
// @Tags        Notifications
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.MarkAllReadResponse
// @Router      /notifications/mark-all-read [patch]
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	n, err := h.notifications.MarkAllRead(c.Request.Context(), middleware.UserIDFrom(c))
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, MarkAllReadResponse{Updated: n})
}
