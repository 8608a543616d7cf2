// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Booking model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-rentme-backend/internal/domain"
)

// CreateBooking inserts b, assigning ID and timestamps when empty.
func CreateBooking(ctx context.Context, db *gorm.DB, b *domain.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	return db.WithContext(ctx).Create(b).Error
}

// GetBooking fetches a booking with its listing and renter preloaded.
func GetBooking(ctx context.Context, db *gorm.DB, id string) (*domain.Booking, error) {
	var b domain.Booking
	err := db.WithContext(ctx).
		Preload("Listing").
		Preload("Renter").
		Where("id = ?", id).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateBookingStatus sets the status column. Returns ErrNotFound when no row
// matched.
func UpdateBookingStatus(ctx context.Context, db *gorm.DB, id string, status domain.BookingStatus) error {
	res := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountBookingsByRenter returns how many bookings renterID has made.
func CountBookingsByRenter(ctx context.Context, db *gorm.DB, renterID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Booking{}).Where("renter_id = ?", renterID).Count(&total).Error
	return total, err
}

// ListBookingsByRenter returns a page of the renter's bookings, newest first.
func ListBookingsByRenter(ctx context.Context, db *gorm.DB, renterID string, offset, limit int) ([]domain.Booking, error) {
	var out []domain.Booking
	err := db.WithContext(ctx).
		Preload("Listing").
		Where("renter_id = ?", renterID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

func ownerBookings(db *gorm.DB, ownerID string) *gorm.DB {
	return db.Model(&domain.Booking{}).
		Joins("JOIN listings ON listings.id = bookings.listing_id").
		Where("listings.owner_id = ?", ownerID)
}

// CountBookingsByOwner returns how many bookings target listings of ownerID.
func CountBookingsByOwner(ctx context.Context, db *gorm.DB, ownerID string) (int64, error) {
	var total int64
	err := ownerBookings(db.WithContext(ctx), ownerID).Count(&total).Error
	return total, err
}

// ListBookingsByOwner returns a page of bookings on ownerID's listings,
// newest first.
func ListBookingsByOwner(ctx context.Context, db *gorm.DB, ownerID string, offset, limit int) ([]domain.Booking, error) {
	var out []domain.Booking
	err := ownerBookings(db.WithContext(ctx), ownerID).
		Preload("Listing").
		Preload("Renter").
		Order("bookings.created_at DESC, bookings.id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
