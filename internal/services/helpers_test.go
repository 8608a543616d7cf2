package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-rentme-backend/internal/domain"
	"github.com/tbourn/go-rentme-backend/internal/repo"
)

// newServiceDB opens a migrated private in-memory database. A single pooled
// connection serializes concurrent transactions the way a real database
// would lock them.
func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

type fixture struct {
	db       *gorm.DB
	owner    *domain.User
	renter   *domain.User
	stranger *domain.User
	listing  *domain.Listing
}

// newFixture seeds owner A with a $10/day listing, renter B and an unrelated
// user C.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	return seedFixture(t, newServiceDB(t))
}

// newPooledFixture seeds the same data into a file database opened the way
// the server opens it, with the full connection pool.
func newPooledFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "rentme.db"))
	if err != nil {
		t.Fatalf("open pooled sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close(db) })
	db.Logger = logger.Default.LogMode(logger.Silent)
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return seedFixture(t, db)
}

func seedFixture(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()
	ctx := context.Background()

	mk := func(sub, first string) *domain.User {
		u, err := repo.EnsureUser(ctx, db, sub, sub+"@example.com")
		if err != nil {
			t.Fatalf("seed user: %v", err)
		}
		_ = repo.UpdateUserProfile(ctx, db, u.ID, map[string]any{"first_name": first})
		u.FirstName = first
		return u
	}
	f := &fixture{db: db}
	f.owner = mk("sub-a", "Alice")
	f.renter = mk("sub-b", "Bob")
	f.stranger = mk("sub-c", "Carol")

	f.listing = &domain.Listing{
		OwnerID:     f.owner.ID,
		Title:       "Cordless drill",
		Description: "18V drill with two batteries",
		PricePerDay: decimal.NewFromInt(10),
		Category:    "tools",
		Location:    "Berlin",
		Available:   true,
	}
	if err := repo.CreateListing(ctx, db, f.listing); err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	return f
}

// pendingBooking inserts a PENDING booking of the fixture listing by the renter.
func (f *fixture) pendingBooking(t *testing.T) *domain.Booking {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := &domain.Booking{
		RenterID:  f.renter.ID,
		ListingID: f.listing.ID,
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 3),
		TotalCost: decimal.NewFromInt(30),
		Status:    domain.BookingPending,
	}
	if err := repo.CreateBooking(context.Background(), f.db, b); err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return b
}

// ----- Notifier / Dispatcher stubs -----

type sentNotice struct {
	UserID, Type, Title, Message string
	RelatedID                    *string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotice
}

func (r *recordingNotifier) Notify(_ context.Context, userID, typ, title, message string, relatedID *string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotice{userID, typ, title, message, relatedID})
}

func (r *recordingNotifier) all() []sentNotice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentNotice(nil), r.sent...)
}

type failingDispatcher struct{ calls int }

func (d *failingDispatcher) Dispatch(context.Context, string, string, string, string, *string) (*domain.Notification, error) {
	d.calls++
	return nil, errors.New("inbox unavailable")
}
