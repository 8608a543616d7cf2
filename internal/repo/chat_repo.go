// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Chat model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a chat is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Functions:
//
//   - EnsureChat(ctx, db, bookingID) -> *domain.Chat, error
//     Atomic get-or-create keyed by the unique booking_id.
//
//   - GetChatByBooking(ctx, db, bookingID) -> *domain.Chat, error
//     Fetches the chat of a booking with messages in ascending order.
//
//   - CountChatsForUser / ListChatsForUser(ctx, db, userID, offset, limit)
//     Chats of bookings where the user is the renter or the listing owner.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-rentme-backend/internal/domain"
)

// EnsureChat returns the chat of bookingID, creating it if absent. The insert
// is an ON CONFLICT DO NOTHING on the unique booking_id, so concurrent callers
// always read back the same row.
func EnsureChat(ctx context.Context, db *gorm.DB, bookingID string) (*domain.Chat, error) {
	now := time.Now().UTC()
	c := &domain.Chat{
		ID:        uuid.NewString(),
		BookingID: bookingID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "booking_id"}}, DoNothing: true}).
		Create(c).Error
	if err != nil {
		return nil, err
	}

	var out domain.Chat
	if err := db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// GetChatByBooking fetches the chat of a booking with its messages ordered
// deterministically (CreatedAt ASC, ID ASC). Returns ErrNotFound if the
// booking has no chat yet.
func GetChatByBooking(ctx context.Context, db *gorm.DB, bookingID string) (*domain.Chat, error) {
	var c domain.Chat
	err := db.WithContext(ctx).
		Preload("Messages", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC, id ASC")
		}).
		Where("booking_id = ?", bookingID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// TouchChat bumps updated_at so chat lists and ETags see new activity.
func TouchChat(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).
		Model(&domain.Chat{}).
		Where("id = ?", id).
		Update("updated_at", time.Now().UTC()).Error
}

func userChats(db *gorm.DB, userID string) *gorm.DB {
	return db.Model(&domain.Chat{}).
		Joins("JOIN bookings ON bookings.id = chats.booking_id").
		Joins("JOIN listings ON listings.id = bookings.listing_id").
		Where("bookings.renter_id = ? OR listings.owner_id = ?", userID, userID)
}

// CountChatsForUser returns the number of chats the user takes part in.
func CountChatsForUser(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := userChats(db.WithContext(ctx), userID).Count(&total).Error
	return total, err
}

// ListChatsForUser returns a page of the user's chats, most recently active
// first. Messages are not loaded; Booking and Booking.Listing are.
func ListChatsForUser(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Chat, error) {
	var out []domain.Chat
	err := userChats(db.WithContext(ctx), userID).
		Preload("Booking").
		Preload("Booking.Listing").
		Order("chats.updated_at DESC, chats.id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
