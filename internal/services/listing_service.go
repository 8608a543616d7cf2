// Package services – ListingService
//
// This file implements listing management and search. Titles are
// whitespace-normalized and categories case-folded before storage so that
// category filters match exactly. Keyword search narrows candidates in SQL and
// then orders them with the search.Ranker.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/go-rentme-backend/internal/domain"
	"github.com/tbourn/go-rentme-backend/internal/repo"
	"github.com/tbourn/go-rentme-backend/internal/search"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ListingInput carries listing fields. On update, nil pointers leave the
// stored value unchanged.
type ListingInput struct {
	Title       *string
	Description *string
	PricePerDay *decimal.Decimal
	Category    *string
	Location    *string
	Images      []string
	Available   *bool
}

// ListingQuery describes a listing search.
type ListingQuery struct {
	Text     string
	Filter   repo.ListingFilter
	Page     int
	PageSize int
}

// ListingService provides listing CRUD and search.
type ListingService struct {
	DB     *gorm.DB
	Ranker *search.Ranker

	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
	// MaxCandidates bounds how many SQL matches are ranked for a text query.
	MaxCandidates int
}

// NewListingService constructs a ListingService with defaults.
func NewListingService(db *gorm.DB) *ListingService {
	return &ListingService{
		DB:            db,
		Ranker:        search.NewRanker(),
		TitleMaxLen:   120,
		MaxCandidates: 500,
	}
}

// Create stores a new listing owned by ownerID.
func (s *ListingService) Create(ctx context.Context, ownerID string, in ListingInput) (*domain.Listing, error) {
	tr := otel.Tracer("services/ListingService")
	ctx, span := tr.Start(ctx, "Create", trace.WithAttributes(attribute.String("user.id", ownerID)))
	defer span.End()

	l := &domain.Listing{OwnerID: ownerID, Available: true}
	if err := s.apply(l, in, true); err != nil {
		return nil, err
	}
	if err := repo.CreateListing(ctx, s.DB, l); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return l, nil
}

// Get returns a listing with its owner.
func (s *ListingService) Get(ctx context.Context, id string) (*domain.Listing, error) {
	l, err := repo.GetListing(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return l, nil
}

// Update changes the listing's fields on behalf of its owner.
func (s *ListingService) Update(ctx context.Context, id, actorID string, in ListingInput) (*domain.Listing, error) {
	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.OwnerID != actorID {
		return nil, ErrForbidden
	}
	if err := s.apply(l, in, false); err != nil {
		return nil, err
	}
	fields := map[string]any{
		"title":         l.Title,
		"description":   l.Description,
		"price_per_day": l.PricePerDay,
		"category":      l.Category,
		"location":      l.Location,
		"images":        l.Images,
		"available":     l.Available,
	}
	if err := repo.UpdateListing(ctx, s.DB, id, fields); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a listing and everything hanging off it, in one transaction.
func (s *ListingService) Delete(ctx context.Context, id, actorID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l, err := repo.GetListing(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrListingNotFound
			}
			return err
		}
		if l.OwnerID != actorID {
			return ErrForbidden
		}
		return repo.DeleteListingCascade(ctx, tx, id)
	})
}

// Search returns a page of listings and the total match count. Without text
// the order is newest first; with text it is by relevance.
func (s *ListingService) Search(ctx context.Context, q ListingQuery) ([]domain.Listing, int64, error) {
	tr := otel.Tracer("services/ListingService")
	ctx, span := tr.Start(ctx, "Search",
		trace.WithAttributes(
			attribute.String("query", q.Text),
			attribute.Int("page", q.Page),
			attribute.Int("page_size", q.PageSize),
		),
	)
	defer span.End()

	_, pageSize, offset := normalizePage(q.Page, q.PageSize)
	f := s.NormalizeFilter(q.Filter)

	if strings.TrimSpace(q.Text) == "" {
		total, err := repo.CountListings(ctx, s.DB, f)
		if err != nil {
			return nil, 0, err
		}
		if total == 0 {
			return []domain.Listing{}, 0, nil
		}
		items, err := repo.ListListingsPage(ctx, s.DB, f, offset, pageSize)
		return items, total, err
	}

	f.Terms = s.Ranker.Terms(q.Text)
	if len(f.Terms) == 0 {
		return []domain.Listing{}, 0, nil
	}
	candidates, err := repo.ListListings(ctx, s.DB, f, s.MaxCandidates)
	if err != nil {
		return nil, 0, err
	}

	byID := make(map[string]domain.Listing, len(candidates))
	docs := make([]search.Document, 0, len(candidates))
	for _, l := range candidates {
		byID[l.ID] = l
		docs = append(docs, search.Document{ID: l.ID, Text: l.Title + "\n" + l.Description})
	}
	ranked := s.Ranker.Rank(q.Text, docs)
	total := int64(len(ranked))
	span.SetAttributes(attribute.Int("results", len(ranked)))

	if offset >= len(ranked) {
		return []domain.Listing{}, total, nil
	}
	end := offset + pageSize
	if end > len(ranked) {
		end = len(ranked)
	}
	out := make([]domain.Listing, 0, end-offset)
	for _, r := range ranked[offset:end] {
		out = append(out, byID[r.ID])
	}
	return out, total, nil
}

// Stats returns the count and last modification of the listings matching f,
// for conditional responses.
func (s *ListingService) Stats(ctx context.Context, f repo.ListingFilter) (int64, string, error) {
	n, latest, err := repo.ListingsStats(ctx, s.DB, s.NormalizeFilter(f))
	if err != nil || latest == nil {
		return n, "", err
	}
	return n, latest.UTC().Format("20060102T150405.000000000Z"), nil
}

// NormalizeFilter folds the category the same way Create stores it.
func (s *ListingService) NormalizeFilter(f repo.ListingFilter) repo.ListingFilter {
	f.Category = normalizeCategory(f.Category)
	f.Location = strings.TrimSpace(f.Location)
	return f
}

// apply validates in and copies it onto l. When create is true, title and
// price are required.
func (s *ListingService) apply(l *domain.Listing, in ListingInput, create bool) error {
	fields := map[string]string{}

	if in.Title != nil {
		t := normalizeTitle(*in.Title)
		switch {
		case t == "":
			fields["title"] = "is required"
		case s.TitleMaxLen > 0 && utf8.RuneCountInString(t) > s.TitleMaxLen:
			fields["title"] = "is too long"
		default:
			l.Title = t
		}
	} else if create {
		fields["title"] = "is required"
	}

	if in.PricePerDay != nil {
		if !in.PricePerDay.IsPositive() {
			fields["pricePerDay"] = "must be greater than 0"
		} else {
			l.PricePerDay = in.PricePerDay.Round(2)
		}
	} else if create {
		fields["pricePerDay"] = "is required"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}

	if in.Description != nil {
		l.Description = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		l.Category = normalizeCategory(*in.Category)
	}
	if in.Location != nil {
		l.Location = strings.TrimSpace(*in.Location)
	}
	if in.Images != nil {
		imgs := make([]string, 0, len(in.Images))
		for _, im := range in.Images {
			if im = strings.TrimSpace(im); im != "" {
				imgs = append(imgs, im)
			}
		}
		l.Images = imgs
	}
	if in.Available != nil {
		l.Available = *in.Available
	}
	return nil
}

// normalizeCategory trims, collapses whitespace and lower-cases a category.
// A Caser is stateful, so one is built per call.
func normalizeCategory(c string) string {
	return cases.Lower(language.Und).String(normalizeTitle(c))
}

// normalizeTitle trims whitespace and collapses multiple spaces to one.
func normalizeTitle(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
