// Package services – BookingService
//
// This file implements the booking lifecycle: creating PENDING requests,
// transitioning them to CONFIRMED, CANCELLED or COMPLETED, and the side
// effects of each transition. Confirming a booking opens its chat inside the
// same transaction as the status write; notifications go out afterwards
// through a best-effort Notifier.
//
// Observability: public methods are OpenTelemetry-instrumented and every
// applied transition increments rentme_booking_transitions_total.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/go-rentme-backend/internal/domain"
	"github.com/tbourn/go-rentme-backend/internal/repo"
	"github.com/tbourn/go-rentme-backend/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const day = 24 * time.Hour

// CreateBookingInput is the renter-supplied part of a booking request.
type CreateBookingInput struct {
	ListingID string
	StartDate time.Time
	EndDate   time.Time
	Message   string
}

// BookingService governs bookings and their status transitions.
type BookingService struct {
	DB       *gorm.DB
	Notifier Notifier
}

// BookingCost returns the number of rental days, rounding any partial day
// up, and the resulting total for the given daily price.
func BookingCost(pricePerDay decimal.Decimal, start, end time.Time) (days int64, total decimal.Decimal) {
	span := end.Sub(start)
	days = int64(span / day)
	if span%day != 0 {
		days++
	}
	return days, pricePerDay.Mul(decimal.NewFromInt(days))
}

// Create records a PENDING booking of in.ListingID by renterID.
func (s *BookingService) Create(ctx context.Context, renterID string, in CreateBookingInput) (*domain.Booking, error) {
	tr := otel.Tracer("services/BookingService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("user.id", renterID),
			attribute.String("listing.id", in.ListingID),
		),
	)
	defer span.End()

	listing, err := repo.GetListing(ctx, s.DB, in.ListingID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	if listing.OwnerID == renterID {
		return nil, ErrOwnListing
	}
	if !in.EndDate.After(in.StartDate) {
		return nil, NewValidationError("endDate", "must be after startDate")
	}

	_, total := BookingCost(listing.PricePerDay, in.StartDate, in.EndDate)
	b := &domain.Booking{
		RenterID:  renterID,
		ListingID: listing.ID,
		StartDate: in.StartDate.UTC(),
		EndDate:   in.EndDate.UTC(),
		TotalCost: total,
		Message:   in.Message,
		Status:    domain.BookingPending,
	}
	if err := repo.CreateBooking(ctx, s.DB, b); err != nil {
		span.RecordError(err)
		return nil, err
	}
	b.Listing = listing

	s.notify(ctx, listing.OwnerID, domain.NotificationBookingRequest,
		"New Booking Request",
		fmt.Sprintf("You have a new booking request for \"%s\".", listing.Title),
		b.ID)

	return b, nil
}

// TransitionStatus moves bookingID to target on behalf of actorID, who must
// own the booked listing. Repeated transitions are applied as requested.
func (s *BookingService) TransitionStatus(ctx context.Context, bookingID, actorID string, target domain.BookingStatus) (*domain.Booking, error) {
	tr := otel.Tracer("services/BookingService")
	ctx, span := tr.Start(ctx, "TransitionStatus",
		trace.WithAttributes(
			attribute.String("booking.id", bookingID),
			attribute.String("user.id", actorID),
			attribute.String("booking.status", string(target)),
		),
	)
	defer span.End()

	if !target.IsTransitionTarget() {
		return nil, NewValidationError("status", "must be one of CONFIRMED, CANCELLED, COMPLETED")
	}

	var booking *domain.Booking
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := repo.GetBooking(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if b.Listing == nil || b.Listing.OwnerID != actorID {
			return ErrForbidden
		}
		if err := repo.UpdateBookingStatus(ctx, tx, b.ID, target); err != nil {
			return err
		}
		if target == domain.BookingConfirmed {
			if _, err := repo.EnsureChat(ctx, tx, b.ID); err != nil {
				return err
			}
		}
		b.Status = target
		booking = b
		return nil
	})
	if err != nil {
		if !IsNotFound(err) && !IsForbidden(err) {
			span.RecordError(err)
		}
		return nil, err
	}

	bookingTransitions.WithLabelValues(string(target)).Inc()
	zerolog.Ctx(ctx).Info().
		Str("booking_id", booking.ID).
		Str("status", string(target)).
		Msg("booking status changed")

	title, body := statusNotice(target, booking.Listing.Title)
	s.notify(ctx, booking.RenterID, domain.NotificationBookingStatus, title, body, booking.ID)

	return booking, nil
}

// Get returns a booking visible to actorID (its renter or the listing owner).
func (s *BookingService) Get(ctx context.Context, bookingID, actorID string) (*domain.Booking, error) {
	b, err := repo.GetBooking(ctx, s.DB, bookingID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if !isParty(b, actorID) {
		return nil, ErrForbidden
	}
	return b, nil
}

// ListForRenter returns a page of bookings made by renterID, newest first.
func (s *BookingService) ListForRenter(ctx context.Context, renterID string, page, pageSize int) ([]domain.Booking, int64, error) {
	_, pageSize, offset := normalizePage(page, pageSize)

	total, err := repo.CountBookingsByRenter(ctx, s.DB, renterID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Booking{}, 0, nil
	}
	items, err := repo.ListBookingsByRenter(ctx, s.DB, renterID, offset, pageSize)
	return items, total, err
}

// ListForOwner returns a page of bookings on ownerID's listings, newest first.
func (s *BookingService) ListForOwner(ctx context.Context, ownerID string, page, pageSize int) ([]domain.Booking, int64, error) {
	_, pageSize, offset := normalizePage(page, pageSize)

	total, err := repo.CountBookingsByOwner(ctx, s.DB, ownerID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Booking{}, 0, nil
	}
	items, err := repo.ListBookingsByOwner(ctx, s.DB, ownerID, offset, pageSize)
	return items, total, err
}

func (s *BookingService) notify(ctx context.Context, userID, typ, title, message, relatedID string) {
	if s.Notifier == nil {
		return
	}
	s.Notifier.Notify(ctx, userID, typ, title, message, &relatedID)
}

// statusNotice returns the renter-facing title and body for a transition.
func statusNotice(status domain.BookingStatus, listingTitle string) (title, body string) {
	switch status {
	case domain.BookingConfirmed:
		return "Booking Confirmed!",
			fmt.Sprintf("Your booking for \"%s\" has been confirmed. You can now chat with the owner.", listingTitle)
	case domain.BookingCancelled:
		return "Booking Cancelled",
			fmt.Sprintf("Your booking for \"%s\" has been cancelled.", listingTitle)
	default:
		return "Booking Completed",
			fmt.Sprintf("Your rental of \"%s\" is complete. Please leave a review!", listingTitle)
	}
}

// isParty reports whether userID is the renter or the listing owner of b.
// b.Listing must be loaded.
func isParty(b *domain.Booking, userID string) bool {
	if b.RenterID == userID {
		return true
	}
	return b.Listing != nil && b.Listing.OwnerID == userID
}

// normalizePage applies the HTTP layer's defaults and caps, so callers that
// bypass utils.ClampPage still get a non-negative offset.
func normalizePage(page, pageSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if page > utils.MaxPage {
		page = utils.MaxPage
	}
	if pageSize <= 0 {
		pageSize = utils.DefaultPageSize
	}
	if pageSize > utils.MaxPageSize {
		pageSize = utils.MaxPageSize
	}
	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}
	return page, pageSize, offset
}
