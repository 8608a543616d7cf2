package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-rentme-backend/internal/domain"
)

// newRepoDB opens a private in-memory database. With no models it stays empty
// so "missing table" error paths can be exercised.
func newRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Use a unique in-memory database per test to avoid schema leakage across tests.
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func newFullDB(t *testing.T) *gorm.DB {
	t.Helper()
	return newRepoDB(t, domain.All()...)
}

func seedUser(t *testing.T, db *gorm.DB, subject string) *domain.User {
	t.Helper()
	u, err := EnsureUser(context.Background(), db, subject, subject+"@example.com")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedListing(t *testing.T, db *gorm.DB, ownerID, title string, price int64) *domain.Listing {
	t.Helper()
	l := &domain.Listing{
		OwnerID:     ownerID,
		Title:       title,
		Description: title + " for rent",
		PricePerDay: decimal.NewFromInt(price),
		Category:    "tools",
		Location:    "Berlin",
		Available:   true,
	}
	if err := CreateListing(context.Background(), db, l); err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	return l
}

func seedBooking(t *testing.T, db *gorm.DB, renterID, listingID string) *domain.Booking {
	t.Helper()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	b := &domain.Booking{
		RenterID:  renterID,
		ListingID: listingID,
		StartDate: start,
		EndDate:   start.Add(48 * time.Hour),
		TotalCost: decimal.NewFromInt(20),
		Status:    domain.BookingPending,
	}
	if err := CreateBooking(context.Background(), db, b); err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return b
}
