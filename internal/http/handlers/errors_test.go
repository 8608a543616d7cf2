package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-rentme-backend/internal/services"
)

func TestHandleError_Taxonomy(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"validation", services.NewValidationError("endDate", "must be after startDate"), http.StatusBadRequest, ErrCodeValidation},
		{"own listing", services.ErrOwnListing, http.StatusBadRequest, ErrCodeInvalidOperation},
		{"forbidden", fmt.Errorf("x: %w", services.ErrForbidden), http.StatusForbidden, ErrCodeForbidden},
		{"not found", services.ErrBookingNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"duplicate review", services.ErrDuplicateReview, http.StatusConflict, ErrCodeConflict},
		{"unique violation", gorm.ErrDuplicatedKey, http.StatusConflict, ErrCodeConflict},
		{"unavailable", context.DeadlineExceeded, http.StatusServiceUnavailable, ErrCodeUnavailable},
		{"unhandled", errors.New("disk on fire"), http.StatusInternalServerError, ErrCodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newEngine("u1")
			r.GET("/", func(c *gin.Context) { handleError(c, tc.err) })
			w := call(r, http.MethodGet, "/", nil, nil)
			if w.Code != tc.want {
				t.Fatalf("status = %d; want %d", w.Code, tc.want)
			}
			e := errBody(t, w)
			if e.Code != tc.code || e.Error == "" || e.RequestID == "" {
				t.Fatalf("unexpected body: %+v", e)
			}
			if tc.code == ErrCodeValidation && e.Fields["endDate"] == "" {
				t.Fatalf("fields missing: %+v", e)
			}
		})
	}
}

func TestHandleError_ReleaseModeHidesDetail(t *testing.T) {
	r := newEngine("u1")
	r.GET("/", func(c *gin.Context) { handleError(c, errors.New("secret table name")) })

	w := call(r, http.MethodGet, "/", nil, nil)
	if e := errBody(t, w); e.Message != "secret table name" {
		t.Fatalf("test mode should expose detail, got %+v", e)
	}

	gin.SetMode(gin.ReleaseMode)
	t.Cleanup(func() { gin.SetMode(gin.TestMode) })
	w = call(r, http.MethodGet, "/", nil, nil)
	if e := errBody(t, w); e.Message != "" || e.Error != internalMessage {
		t.Fatalf("release mode leaked detail: %+v", e)
	}
}
