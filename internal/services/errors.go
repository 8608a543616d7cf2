// Package services defines the business logic of the marketplace: bookings,
// chats, notifications, listings, reviews and user profiles. This file
// centralizes service-level error values so that they can be consistently
// returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"
	"sort"
	"strings"
)

// Not-found errors.
var (
	// ErrListingNotFound indicates that the requested listing does not exist.
	ErrListingNotFound = errors.New("listing not found")

	// ErrBookingNotFound indicates that the requested booking does not exist.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrNotificationNotFound indicates that the requested notification does
	// not exist.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrUserNotFound indicates that the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// ErrForbidden is returned when the acting user exists but is not allowed to
// touch the resource (not a party to a booking, not the listing owner, not
// the notification's recipient).
var ErrForbidden = errors.New("forbidden")

// Invalid-operation errors: well-formed requests that break a business rule.
var (
	// ErrOwnListing is returned when a user tries to book their own listing.
	ErrOwnListing = errors.New("cannot book own listing")

	// ErrReviewOwnListing is returned when a user tries to review their own listing.
	ErrReviewOwnListing = errors.New("cannot review own listing")
)

// ErrDuplicateReview is returned when the author already reviewed the listing.
var ErrDuplicateReview = errors.New("review already exists")

// ValidationError carries per-field problems with the input of an operation.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrListingNotFound) ||
		errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrNotificationNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsForbidden reports whether err is an authorization failure.
func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }

// IsInvalidOperation reports whether err is a business-rule violation.
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrOwnListing) || errors.Is(err, ErrReviewOwnListing)
}

// IsValidation reports whether err is (or wraps) a *ValidationError and
// returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
