// Listing HTTP handlers.
//
//   - POST   /listings           (create, auth)
//   - GET    /listings           (search, paginated, ETag)
//   - GET    /listings/{id}
//   - PUT    /listings/{id}      (owner only)
//   - DELETE /listings/{id}      (owner only, cascades)
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/tbourn/go-rentme-backend/internal/domain"
	"github.com/tbourn/go-rentme-backend/internal/http/middleware"
	"github.com/tbourn/go-rentme-backend/internal/repo"
	"github.com/tbourn/go-rentme-backend/internal/services"
	"github.com/tbourn/go-rentme-backend/internal/utils"
)

// ListingRequest is the body of create and update. On update, omitted
// fields keep their stored value.
type ListingRequest struct {
	Title       *string          `json:"title"       binding:"omitempty,max=255"  example:"Cordless drill"`
	Description *string          `json:"description" binding:"omitempty,max=5000" example:"18V, two batteries"`
	PricePerDay *decimal.Decimal `json:"pricePerDay" swaggertype:"string"         example:"10.00"`
	Category    *string          `json:"category"    binding:"omitempty,max=64"   example:"tools"`
	Location    *string          `json:"location"    binding:"omitempty,max=255"  example:"Berlin"`
	Images      []string         `json:"images"      binding:"omitempty,max=20,dive,max=512"`
	Available   *bool            `json:"available"`
}

func (r ListingRequest) input() services.ListingInput {
	return services.ListingInput{
		Title:       r.Title,
		Description: r.Description,
		PricePerDay: r.PricePerDay,
		Category:    r.Category,
		Location:    r.Location,
		Images:      r.Images,
		Available:   r.Available,
	}
}

// ListListingsResponse wraps a page of listings.
type ListListingsResponse struct {
	Listings   []domain.Listing `json:"listings"`
	Pagination utils.Pagination `json:"pagination"`
}

// CreateListing godoc
// @ID          createListing
// @Summary     Create a listing
// @Tags        Listings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.ListingRequest  true  "Listing"
// @Success     201   {object}  domain.Listing
// @Failure     400   {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     401   {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /listings [post]
func (h *Handlers) CreateListing(c *gin.Context) {
	var req ListingRequest
	if !bindJSON(c, &req) {
		return
	}
	l, err := h.listings.Create(c.Request.Context(), middleware.UserIDFrom(c), req.input())
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusCreated, l)
}

// GetListing godoc
// @ID          getListing
// @Summary     Get a listing
// @Tags        Listings
// @Produce     json
// @Param       id   path      string  true  "Listing ID"
// @Success     200  {object}  domain.Listing
// @Failure     404  {object}  handlers.ErrorResponse  "Listing not found"
// @Router      /listings/{id} [get]
func (h *Handlers) GetListing(c *gin.Context) {
	l, err := h.listings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, l)
}

// UpdateListing godoc
// @ID          updateListing
// @Summary     Update a listing
// @Description Only the owner may update. Omitted fields are unchanged.
// @Tags        Listings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                   true  "Listing ID"
// @Param       body  body      handlers.ListingRequest  true  "Fields to change"
// @Success     200   {object}  domain.Listing
// @Failure     400   {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     403   {object}  handlers.ErrorResponse  "Not the owner"
// @Failure     404   {object}  handlers.ErrorResponse  "Listing not found"
// @Router      /listings/{id} [put]
func (h *Handlers) UpdateListing(c *gin.Context) {
	var req ListingRequest
	if !bindJSON(c, &req) {
		return
	}
	l, err := h.listings.Update(c.Request.Context(), c.Param("id"), middleware.UserIDFrom(c), req.input())
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, l)
}

// DeleteListing godoc
// @ID          deleteListing
// @Summary     Delete a listing
// @Description Removes the listing with its bookings, chats, messages and reviews.
// @Tags        Listings
// @Security    BearerAuth
// @Param       id   path    string  true  "Listing ID"
// @Success     204  {string} string "No Content"
// @Failure     403  {object} handlers.ErrorResponse  "Not the owner"
// @Failure     404  {object} handlers.ErrorResponse  "Listing not found"
// @Router      /listings/{id} [delete]
func (h *Handlers) DeleteListing(c *gin.Context) {
	if err := h.listings.Delete(c.Request.Context(), c.Param("id"), middleware.UserIDFrom(c)); err != nil {
		handleError(c, err)
		return
	}
	noContent(c)
}

// SearchListings godoc
// @ID          searchListings
// @Summary     Search listings (paginated)
// @Description With q, results are ordered by keyword relevance; otherwise newest first. Supports weak ETag via If-None-Match.
// @Tags        Listings
// @Produce     json
// @Param       q              query   string  false  "Keywords"
// @Param       category       query   string  false  "Category (case-insensitive)"
// @Param       location       query   string  false  "Location contains"
// @Param       min_price      query   string  false  "Minimum daily price"
// @Param       max_price      query   string  false  "Maximum daily price"
// @Param       available      query   bool    false  "Availability"
// @Param       owner_id       query   string  false  "Owner"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Success     200  {object}  handlers.ListListingsResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad filter"
// @Router      /listings [get]
func (h *Handlers) SearchListings(c *gin.Context) {
	ctx := c.Request.Context()
	f, fields := parseListingFilter(c)
	if len(fields) > 0 {
		failFields(c, http.StatusBadRequest, ErrCodeValidation, "validation failed", fields)
		return
	}
	page, pageSize := utils.ClampPage(c.Query("page"), c.Query("page_size"))
	text := strings.TrimSpace(c.Query("q"))

	if n, stamp, err := h.listings.Stats(ctx, f); err == nil {
		etag := weakETag("listings", c.Request.URL.RawQuery, strconv.FormatInt(n, 10), stamp)
		if notModified(c, etag) {
			return
		}
	}

	items, total, err := h.listings.Search(ctx, services.ListingQuery{
		Text: text, Filter: f, Page: page, PageSize: pageSize,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, ListListingsResponse{
		Listings:   items,
		Pagination: utils.NewPagination(page, pageSize, total),
	})
}

func parseListingFilter(c *gin.Context) (repo.ListingFilter, map[string]string) {
	f := repo.ListingFilter{
		Category: c.Query("category"),
		Location: c.Query("location"),
		OwnerID:  strings.TrimSpace(c.Query("owner_id")),
	}
	fields := map[string]string{}
	price := func(name string) *decimal.Decimal {
		raw := strings.TrimSpace(c.Query(name))
		if raw == "" {
			return nil
		}
		d, err := decimal.NewFromString(raw)
		if err != nil || d.IsNegative() {
			fields[name] = "must be a non-negative number"
			return nil
		}
		return &d
	}
	f.MinPrice = price("min_price")
	f.MaxPrice = price("max_price")
	if raw := c.Query("available"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			fields["available"] = "must be true or false"
		} else {
			f.Available = &b
		}
	}
	return f, fields
}
