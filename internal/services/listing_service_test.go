package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tbourn/go-rentme-backend/internal/domain"
	"github.com/tbourn/go-rentme-backend/internal/repo"
)

func strp(s string) *string { return &s }

func decp(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestListingCreate_NormalizesAndValidates(t *testing.T) {
	f := newFixture(t)
	svc := NewListingService(f.db)
	ctx := context.Background()

	l, err := svc.Create(ctx, f.owner.ID, ListingInput{
		Title:       strp("  Mountain   bike \n"),
		PricePerDay: decp("15.499"),
		Category:    strp("  Outdoor  GEAR "),
		Images:      []string{" a.jpg ", "", "b.jpg"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if l.Title != "Mountain bike" || l.Category != "outdoor gear" || !l.Available {
		t.Fatalf("unexpected listing: %+v", l)
	}
	if !l.PricePerDay.Equal(decimal.RequireFromString("15.5")) {
		t.Fatalf("price = %s; want 15.5", l.PricePerDay)
	}
	if len(l.Images) != 2 || l.Images[0] != "a.jpg" {
		t.Fatalf("images = %v", l.Images)
	}

	_, err = svc.Create(ctx, f.owner.ID, ListingInput{Title: strp("   "), PricePerDay: decp("0")})
	ve, ok := IsValidation(err)
	if !ok || ve.Fields["title"] == "" || ve.Fields["pricePerDay"] == "" {
		t.Fatalf("expected title+price validation errors, got %v", err)
	}
	if _, err := svc.Create(ctx, f.owner.ID, ListingInput{}); err == nil {
		t.Fatalf("missing required fields should fail")
	}
}

func TestListingUpdateDelete_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	svc := NewListingService(f.db)
	ctx := context.Background()
	b := f.pendingBooking(t)
	if _, err := repo.EnsureChat(ctx, f.db, b.ID); err != nil {
		t.Fatalf("EnsureChat: %v", err)
	}

	if _, err := svc.Update(ctx, f.listing.ID, f.renter.ID, ListingInput{Title: strp("Hijacked")}); !IsForbidden(err) {
		t.Fatalf("non-owner update: expected ErrForbidden, got %v", err)
	}
	no := false
	got, err := svc.Update(ctx, f.listing.ID, f.owner.ID, ListingInput{Title: strp("Hammer drill"), Available: &no})
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if got.Title != "Hammer drill" || got.Available || !got.PricePerDay.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected update result: %+v", got)
	}
	if _, err := svc.Update(ctx, "missing", f.owner.ID, ListingInput{}); !errors.Is(err, ErrListingNotFound) {
		t.Fatalf("missing update: %v", err)
	}

	if err := svc.Delete(ctx, f.listing.ID, f.renter.ID); !IsForbidden(err) {
		t.Fatalf("non-owner delete: expected ErrForbidden, got %v", err)
	}
	if err := svc.Delete(ctx, f.listing.ID, f.owner.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := svc.Get(ctx, f.listing.ID); !errors.Is(err, ErrListingNotFound) {
		t.Fatalf("listing should be gone: %v", err)
	}
	var n int64
	f.db.Model(&domain.Chat{}).Count(&n)
	if n != 0 {
		t.Fatalf("chat should be cascaded, got %d", n)
	}
	if err := svc.Delete(ctx, f.listing.ID, f.owner.ID); !errors.Is(err, ErrListingNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}

func TestListingSearch_FiltersAndRanking(t *testing.T) {
	f := newFixture(t)
	svc := NewListingService(f.db)
	ctx := context.Background()

	mk := func(title, desc, cat string, price string) {
		if _, err := svc.Create(ctx, f.owner.ID, ListingInput{
			Title: strp(title), Description: strp(desc), Category: strp(cat), PricePerDay: decp(price),
		}); err != nil {
			t.Fatalf("Create %q: %v", title, err)
		}
	}
	mk("Camping tent", "Two person tent", "Camping", "20")
	mk("Tent pegs", "Spare pegs", "camping", "2")
	mk("Kayak", "Sit-on-top kayak", "Water", "45")

	all, total, err := svc.Search(ctx, ListingQuery{})
	if err != nil || total != 4 || len(all) != 4 {
		t.Fatalf("all = %d/%d, %v", len(all), total, err)
	}

	camping, total, err := svc.Search(ctx, ListingQuery{Filter: repo.ListingFilter{Category: " CAMPING "}})
	if err != nil || total != 2 || len(camping) != 2 {
		t.Fatalf("category = %d/%d, %v", len(camping), total, err)
	}

	ranked, total, err := svc.Search(ctx, ListingQuery{Text: "camping tent"})
	if err != nil || total != 2 {
		t.Fatalf("text = %d, %v", total, err)
	}
	if ranked[0].Title != "Camping tent" {
		t.Fatalf("best match should be first, got %q", ranked[0].Title)
	}

	ceiling := decimal.NewFromInt(10)
	cheap, total, err := svc.Search(ctx, ListingQuery{Text: "tent", Filter: repo.ListingFilter{MaxPrice: &ceiling}})
	if err != nil || total != 1 || cheap[0].Title != "Tent pegs" {
		t.Fatalf("text+price = %+v/%d, %v", cheap, total, err)
	}

	page2, total, err := svc.Search(ctx, ListingQuery{Text: "tent", Page: 2, PageSize: 1})
	if err != nil || total != 2 || len(page2) != 1 {
		t.Fatalf("page 2 = %d/%d, %v", len(page2), total, err)
	}
	beyond, _, err := svc.Search(ctx, ListingQuery{Text: "tent", Page: 5, PageSize: 10})
	if err != nil || len(beyond) != 0 {
		t.Fatalf("beyond = %d, %v", len(beyond), err)
	}
	none, total, err := svc.Search(ctx, ListingQuery{Text: "the and"})
	if err != nil || total != 0 || len(none) != 0 {
		t.Fatalf("stop words only = %d/%d, %v", len(none), total, err)
	}
}

func TestListingSearch_HugePageIsEmptyNotPanic(t *testing.T) {
	f := newFixture(t)
	svc := NewListingService(f.db)
	ctx := context.Background()

	for _, q := range []ListingQuery{
		{Text: "drill", Page: math.MaxInt, PageSize: 20},
		{Page: math.MaxInt, PageSize: 20},
		{Text: "drill", Page: math.MaxInt / 20, PageSize: 100},
	} {
		items, total, err := svc.Search(ctx, q)
		if err != nil {
			t.Fatalf("Search(%+v): %v", q, err)
		}
		if total != 1 || len(items) != 0 {
			t.Fatalf("Search(%+v) = %d items, total %d; want an empty far page", q, len(items), total)
		}
	}
}

func TestListingStats(t *testing.T) {
	f := newFixture(t)
	svc := NewListingService(f.db)

	n, stamp, err := svc.Stats(context.Background(), repo.ListingFilter{})
	if err != nil || n != 1 || stamp == "" {
		t.Fatalf("Stats = %d, %q, %v", n, stamp, err)
	}
	n, stamp, err = svc.Stats(context.Background(), repo.ListingFilter{Category: "nothing"})
	if err != nil || n != 0 || stamp != "" {
		t.Fatalf("empty Stats = %d, %q, %v", n, stamp, err)
	}
}
