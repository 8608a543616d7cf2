// Package services – ReviewService
//
// Reviews are 1..5 ratings with an optional comment. A user may review a
// listing once and never their own listing.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-rentme-backend/internal/domain"
	"github.com/tbourn/go-rentme-backend/internal/repo"
)

// ReviewSummary is the list of a listing's reviews with aggregate figures.
type ReviewSummary struct {
	Reviews       []domain.Review
	Count         int64
	AverageRating float64
}

// ReviewService implements the review use-cases.
type ReviewService struct {
	DB *gorm.DB
}

// Create records authorID's review of listingID.
func (s *ReviewService) Create(ctx context.Context, listingID, authorID string, rating int, comment string) (*domain.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, NewValidationError("rating", "must be between 1 and 5")
	}

	var out *domain.Review
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l, err := repo.GetListing(ctx, tx, listingID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrListingNotFound
			}
			return err
		}
		if l.OwnerID == authorID {
			return ErrReviewOwnListing
		}
		r, err := repo.CreateReview(ctx, tx, listingID, authorID, rating, strings.TrimSpace(comment))
		if err != nil {
			if repo.IsUniqueViolation(err) {
				return ErrDuplicateReview
			}
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List returns the reviews of a listing with count and mean rating.
func (s *ReviewService) List(ctx context.Context, listingID string) (*ReviewSummary, error) {
	if _, err := repo.GetListing(ctx, s.DB, listingID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	items, err := repo.ListReviews(ctx, s.DB, listingID)
	if err != nil {
		return nil, err
	}
	n, avg, err := repo.ReviewStats(ctx, s.DB, listingID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Review{}
	}
	return &ReviewSummary{Reviews: items, Count: n, AverageRating: avg}, nil
}
