// Package handlers contains the transport-thin HTTP endpoints. Each handler
// validates input, calls one service method and maps the result (or error)
// to a response. Business rules live in the services package.
package handlers

import (
	"context"

	"github.com/tbourn/go-rentme-backend/internal/domain"
	"github.com/tbourn/go-rentme-backend/internal/repo"
	"github.com/tbourn/go-rentme-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// ListingService is the listing surface consumed by handlers.
type ListingService interface {
	Create(ctx context.Context, ownerID string, in services.ListingInput) (*domain.Listing, error)
	Get(ctx context.Context, id string) (*domain.Listing, error)
	Update(ctx context.Context, id, actorID string, in services.ListingInput) (*domain.Listing, error)
	Delete(ctx context.Context, id, actorID string) error
	Search(ctx context.Context, q services.ListingQuery) ([]domain.Listing, int64, error)
	Stats(ctx context.Context, f repo.ListingFilter) (int64, string, error)
}

// BookingService is the booking lifecycle surface.
type BookingService interface {
	Create(ctx context.Context, renterID string, in services.CreateBookingInput) (*domain.Booking, error)
	TransitionStatus(ctx context.Context, bookingID, actorID string, target domain.BookingStatus) (*domain.Booking, error)
	Get(ctx context.Context, bookingID, actorID string) (*domain.Booking, error)
	ListForRenter(ctx context.Context, renterID string, page, pageSize int) ([]domain.Booking, int64, error)
	ListForOwner(ctx context.Context, ownerID string, page, pageSize int) ([]domain.Booking, int64, error)
}

// ChatService is the per-booking chat surface.
type ChatService interface {
	GetOrCreate(ctx context.Context, bookingID, actorID string) (*services.ChatView, error)
	SendMessage(ctx context.Context, bookingID, actorID, content string) (*domain.Message, error)
	ListForUser(ctx context.Context, userID string, page, pageSize int) ([]domain.Chat, int64, error)
}

// NotificationService is the inbox surface.
type NotificationService interface {
	List(ctx context.Context, userID string) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Fingerprint(ctx context.Context, userID string) (string, error)
}

// ReviewService creates and lists reviews.
type ReviewService interface {
	Create(ctx context.Context, listingID, authorID string, rating int, comment string) (*domain.Review, error)
	List(ctx context.Context, listingID string) (*services.ReviewSummary, error)
}

// UserService reads and edits the caller's profile.
type UserService interface {
	Get(ctx context.Context, id string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, in services.ProfileInput) (*domain.User, error)
}

// IdempotencyRecorder remembers the outcome of a keyed request so a retry
// can be answered with the same resource.
type IdempotencyRecorder interface {
	Save(ctx context.Context, userID, scope, key, resourceID string, status int) error
}

//
// Handler wiring
//

// Deps are the collaborators of Handlers. Idempotency may be nil.
type Deps struct {
	Listings      ListingService
	Bookings      BookingService
	Chats         ChatService
	Notifications NotificationService
	Reviews       ReviewService
	Users         UserService
	Idempotency   IdempotencyRecorder
}

// Handlers groups every HTTP endpoint of the API.
type Handlers struct {
	listings      ListingService
	bookings      BookingService
	chats         ChatService
	notifications NotificationService
	reviews       ReviewService
	users         UserService
	idem          IdempotencyRecorder
}

// New constructs Handlers bound to the given services.
func New(d Deps) *Handlers {
	SetupValidator()
	return &Handlers{
		listings:      d.Listings,
		bookings:      d.Bookings,
		chats:         d.Chats,
		notifications: d.Notifications,
		reviews:       d.Reviews,
		users:         d.Users,
		idem:          d.Idempotency,
	}
}
