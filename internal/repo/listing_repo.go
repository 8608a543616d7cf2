// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Listing
// model, including filtered search and the cascading delete.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/go-rentme-backend/internal/domain"
)

// ListingFilter narrows a listing query. Zero values mean "no constraint".
type ListingFilter struct {
	Terms     []string // keyword terms matched against title/description (any)
	Category  string
	Location  string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	Available *bool
	OwnerID   string
}

// CreateListing inserts l, assigning ID and timestamps when empty.
func CreateListing(ctx context.Context, db *gorm.DB, l *domain.Listing) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now
	return db.WithContext(ctx).Create(l).Error
}

// GetListing fetches a listing by ID with its owner preloaded.
func GetListing(ctx context.Context, db *gorm.DB, id string) (*domain.Listing, error) {
	var l domain.Listing
	if err := db.WithContext(ctx).Preload("Owner").Where("id = ?", id).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// UpdateListing applies column updates to the listing identified by id.
func UpdateListing(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).Model(&domain.Listing{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func listingScope(db *gorm.DB, f ListingFilter) *gorm.DB {
	q := db.Model(&domain.Listing{})
	if len(f.Terms) > 0 {
		ors := make([]string, 0, len(f.Terms))
		args := make([]any, 0, 2*len(f.Terms))
		for _, t := range f.Terms {
			like := "%" + t + "%"
			ors = append(ors, "(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)")
			args = append(args, like, like)
		}
		q = q.Where(strings.Join(ors, " OR "), args...)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Location != "" {
		q = q.Where("LOWER(location) LIKE ?", "%"+strings.ToLower(f.Location)+"%")
	}
	if f.MinPrice != nil {
		q = q.Where("price_per_day >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price_per_day <= ?", *f.MaxPrice)
	}
	if f.Available != nil {
		q = q.Where("available = ?", *f.Available)
	}
	if f.OwnerID != "" {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	return q
}

// CountListings returns the number of listings matching f.
func CountListings(ctx context.Context, db *gorm.DB, f ListingFilter) (int64, error) {
	var total int64
	err := listingScope(db.WithContext(ctx), f).Count(&total).Error
	return total, err
}

// ListListingsPage returns a page of listings matching f, newest first.
func ListListingsPage(ctx context.Context, db *gorm.DB, f ListingFilter, offset, limit int) ([]domain.Listing, error) {
	var out []domain.Listing
	err := listingScope(db.WithContext(ctx), f).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListListings returns every listing matching f, newest first, up to max rows
// (max <= 0 means unbounded). Used as the candidate set for keyword ranking.
func ListListings(ctx context.Context, db *gorm.DB, f ListingFilter, max int) ([]domain.Listing, error) {
	var out []domain.Listing
	q := listingScope(db.WithContext(ctx), f).Order("created_at DESC, id DESC")
	if max > 0 {
		q = q.Limit(max)
	}
	err := q.Find(&out).Error
	return out, err
}

// DeleteListingCascade removes a listing together with its bookings, the chats
// of those bookings, their messages and the listing's reviews. Pass a
// transaction handle; the deletes are issued children first so the outcome
// does not depend on the driver enforcing foreign keys.
func DeleteListingCascade(ctx context.Context, tx *gorm.DB, id string) error {
	tx = tx.WithContext(ctx)

	bookingIDs := tx.Model(&domain.Booking{}).Select("id").Where("listing_id = ?", id)
	chatIDs := tx.Model(&domain.Chat{}).Select("id").Where("booking_id IN (?)", bookingIDs)

	if err := tx.Where("chat_id IN (?)", chatIDs).Delete(&domain.Message{}).Error; err != nil {
		return err
	}
	if err := tx.Where("booking_id IN (?)", bookingIDs).Delete(&domain.Chat{}).Error; err != nil {
		return err
	}
	if err := tx.Where("listing_id = ?", id).Delete(&domain.Booking{}).Error; err != nil {
		return err
	}
	if err := tx.Where("listing_id = ?", id).Delete(&domain.Review{}).Error; err != nil {
		return err
	}
	res := tx.Where("id = ?", id).Delete(&domain.Listing{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
