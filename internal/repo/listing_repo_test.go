package repo

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/go-rentme-backend/internal/domain"
)

func TestListingFilters(t *testing.T) {
	db := newFullDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	drill := seedListing(t, db, alice.ID, "Cordless drill", 10)
	tent := &domain.Listing{OwnerID: bob.ID, Title: "Family tent", Description: "sleeps four",
		PricePerDay: decimal.NewFromInt(25), Category: "camping", Location: "Munich", Available: true}
	if err := CreateListing(ctx, db, tent); err != nil {
		t.Fatalf("CreateListing: %v", err)
	}
	saw := seedListing(t, db, bob.ID, "Circular saw", 40)
	if err := UpdateListing(ctx, db, saw.ID, map[string]any{"available": false}); err != nil {
		t.Fatalf("UpdateListing: %v", err)
	}

	yes, no := true, false
	lo, hi := decimal.NewFromInt(20), decimal.NewFromInt(30)
	cases := []struct {
		name string
		f    ListingFilter
		want int64
	}{
		{"all", ListingFilter{}, 3},
		{"category", ListingFilter{Category: "camping"}, 1},
		{"location ci", ListingFilter{Location: "berl"}, 2},
		{"min price", ListingFilter{MinPrice: &lo}, 2},
		{"price band", ListingFilter{MinPrice: &lo, MaxPrice: &hi}, 1},
		{"available", ListingFilter{Available: &yes}, 2},
		{"unavailable", ListingFilter{Available: &no}, 1},
		{"owner", ListingFilter{OwnerID: bob.ID}, 2},
		{"terms any", ListingFilter{Terms: []string{"drill", "tent"}}, 2},
		{"terms description", ListingFilter{Terms: []string{"sleeps"}}, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			n, err := CountListings(ctx, db, c.f)
			if err != nil {
				t.Fatalf("CountListings: %v", err)
			}
			if n != c.want {
				t.Fatalf("count = %d; want %d", n, c.want)
			}
			page, err := ListListingsPage(ctx, db, c.f, 0, 10)
			if err != nil || int64(len(page)) != c.want {
				t.Fatalf("page len = %d, %v; want %d", len(page), err, c.want)
			}
		})
	}

	all, err := ListListings(ctx, db, ListingFilter{}, 2)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListListings max=2: %d, %v", len(all), err)
	}

	got, err := GetListing(ctx, db, drill.ID)
	if err != nil || got.Owner == nil || got.Owner.ID != alice.ID {
		t.Fatalf("GetListing owner preload: %+v, %v", got, err)
	}
}

func TestUpdateListing_NotFound(t *testing.T) {
	db := newFullDB(t)
	if err := UpdateListing(context.Background(), db, "nope", map[string]any{"title": "x"}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := UpdateListing(context.Background(), db, "nope", nil); err != nil {
		t.Fatalf("empty update should be a no-op, got %v", err)
	}
}

func TestDeleteListingCascade(t *testing.T) {
	db := newFullDB(t)
	ctx := context.Background()
	owner := seedUser(t, db, "owner")
	renter := seedUser(t, db, "renter")
	l := seedListing(t, db, owner.ID, "Camera", 50)
	keep := seedListing(t, db, owner.ID, "Tripod", 5)
	b := seedBooking(t, db, renter.ID, l.ID)
	kb := seedBooking(t, db, renter.ID, keep.ID)
	ch, err := EnsureChat(ctx, db, b.ID)
	if err != nil {
		t.Fatalf("EnsureChat: %v", err)
	}
	if _, err := CreateMessage(ctx, db, ch.ID, renter.ID, domain.SenderUser, "hi"); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if _, err := CreateReview(ctx, db, l.ID, renter.ID, 4, "nice"); err != nil {
		t.Fatalf("CreateReview: %v", err)
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		return DeleteListingCascade(ctx, tx, l.ID)
	}); err != nil {
		t.Fatalf("DeleteListingCascade: %v", err)
	}

	counts := map[string]any{
		"listings": &domain.Listing{},
		"bookings": &domain.Booking{},
		"chats":    &domain.Chat{},
		"messages": &domain.Message{},
		"reviews":  &domain.Review{},
	}
	want := map[string]int64{"listings": 1, "bookings": 1, "chats": 0, "messages": 0, "reviews": 0}
	for name, model := range counts {
		var n int64
		if err := db.Model(model).Count(&n).Error; err != nil {
			t.Fatalf("count %s: %v", name, err)
		}
		if n != want[name] {
			t.Fatalf("%s count = %d; want %d", name, n, want[name])
		}
	}
	if _, err := GetBooking(ctx, db, kb.ID); err != nil {
		t.Fatalf("unrelated booking should survive: %v", err)
	}

	if err := DeleteListingCascade(ctx, db, l.ID); err != ErrNotFound {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}
}
