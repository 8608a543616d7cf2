package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-rentme-backend/internal/domain"
	"github.com/tbourn/go-rentme-backend/internal/http/middleware"
)

// CreateReviewRequest is the JSON payload for a review.
type CreateReviewRequest struct {
	Rating  int    `json:"rating"  binding:"required,gte=1,lte=5" example:"5"`
	Comment string `json:"comment" binding:"max=2000"             example:"Worked great"`
}

// ListReviewsResponse carries a listing's reviews and their average.
type ListReviewsResponse struct {
	Reviews       []domain.Review `json:"reviews"`
	Count         int64           `json:"count"`
	AverageRating float64         `json:"averageRating" example:"4.5"`
}

// CreateReview godoc
// @ID          createReview
// @Summary     Review a listing
// @Description One review per user and listing; owners cannot review their own listing.
// @Tags        Reviews
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                        true  "Listing ID"
// @Param       body  body      handlers.CreateReviewRequest  true  "Review"
// @Success     201   {object}  domain.Review
// @Failure     400   {object}  handlers.ErrorResponse  "Validation failed or own listing"
// @Failure     404   {object}  handlers.ErrorResponse  "Listing not found"
// @Failure     409   {object}  handlers.ErrorResponse  "Already reviewed"
// @Router      /listings/{id}/reviews [post]
func (h *Handlers) CreateReview(c *gin.Context) {
	var req CreateReviewRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.reviews.Create(c.Request.Context(), c.Param("id"), middleware.UserIDFrom(c), req.Rating, req.Comment)
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusCreated, r)
}

// ListReviews godoc
// @ID          listReviews
// @Summary     List a listing's reviews
// @Tags        Reviews
// @Produce     json
// @Param       id   path      string  true  "Listing ID"
// @Success     200  {object}  handlers.ListReviewsResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Listing not found"
// @Router      /listings/{id}/reviews [get]
func (h *Handlers) ListReviews(c *gin.Context) {
	sum, err := h.reviews.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, ListReviewsResponse{
		Reviews:       sum.Reviews,
		Count:         sum.Count,
		AverageRating: sum.AverageRating,
	})
}
