// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Review model.
//
// Duplicate reviews (same listing_id, author_id) rely on the database unique
// index and surface as a raw DB error; use IsUniqueViolation to detect them.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-rentme-backend/internal/domain"
)

// CreateReview inserts a review row.
func CreateReview(ctx context.Context, db *gorm.DB, listingID, authorID string, rating int, comment string) (*domain.Review, error) {
	now := time.Now().UTC()
	r := &domain.Review{
		ID:        uuid.NewString(),
		ListingID: listingID,
		AuthorID:  authorID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// ListReviews returns the reviews of a listing, newest first, with authors.
func ListReviews(ctx context.Context, db *gorm.DB, listingID string) ([]domain.Review, error) {
	var out []domain.Review
	err := db.WithContext(ctx).
		Preload("Author").
		Where("listing_id = ?", listingID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// ReviewStats returns the number of reviews and the mean rating of a listing.
// The average is 0 when there are no reviews.
func ReviewStats(ctx context.Context, db *gorm.DB, listingID string) (count int64, avg float64, err error) {
	var row struct {
		Count int64
		Avg   *float64
	}
	err = db.WithContext(ctx).
		Model(&domain.Review{}).
		Select("COUNT(*) AS count, AVG(rating) AS avg").
		Where("listing_id = ?", listingID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	if row.Avg != nil {
		avg = *row.Avg
	}
	return row.Count, avg, nil
}
