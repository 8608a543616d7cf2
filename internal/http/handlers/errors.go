// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and stable; clients branch on them instead of
// on the human-readable "error" text. Every error response carries exactly one
// of these codes.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "forbidden",
//	  "error": "forbidden"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-rentme-backend/internal/repo"
	"github.com/tbourn/go-rentme-backend/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeValidation       = "validation_failed"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeUnavailable      = "unavailable"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeInvalidOperation = "invalid_operation"
)

const internalMessage = "internal server error"

// handleError maps a service or store error onto the response taxonomy:
//
//	validation        -> 400 validation_failed (+fields)
//	invalid operation -> 400 invalid_operation
//	forbidden         -> 403
//	not found         -> 404
//	duplicate         -> 409
//	store unavailable -> 503
//	anything else     -> 500, detail hidden in release mode
func handleError(c *gin.Context, err error) {
	if ve, ok := services.IsValidation(err); ok {
		failFields(c, http.StatusBadRequest, ErrCodeValidation, "validation failed", ve.Fields)
		return
	}
	switch {
	case services.IsInvalidOperation(err):
		fail(c, http.StatusBadRequest, ErrCodeInvalidOperation, err.Error())
	case services.IsForbidden(err):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "forbidden")
	case services.IsNotFound(err):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrDuplicateReview):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case repo.IsUniqueViolation(err):
		fail(c, http.StatusConflict, ErrCodeConflict, "resource already exists")
	case repo.IsUnavailable(err):
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "service temporarily unavailable")
	default:
		_ = c.Error(err)
		failInternal(c, err)
	}
}

// failInternal writes a 500. Outside release mode the cause is echoed in
// "message" to ease local debugging.
func failInternal(c *gin.Context, err error) {
	resp := ErrorResponse{
		RequestID: requestID(c),
		Code:      ErrCodeInternal,
		Error:     internalMessage,
	}
	if gin.Mode() != gin.ReleaseMode && err != nil {
		resp.Message = err.Error()
	}
	logServerError(c, http.StatusInternalServerError, ErrCodeInternal, err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
}
