// Package domain defines the persistence models of the marketplace: users,
// listings, bookings, chats, messages, notifications and reviews. These types
// are mapped with GORM and form the core data layer shared by the repository,
// service and HTTP layers.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// User is a marketplace member. Subject is the identity-provider subject id;
// the row is created the first time a verified subject calls the API.
type User struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	Subject   string    `json:"-"         gorm:"type:varchar(128);not null;uniqueIndex:ux_users_subject"`
	Email     string    `json:"email"     gorm:"type:varchar(255)"`
	FirstName string    `json:"firstName" gorm:"type:varchar(100)"`
	LastName  string    `json:"lastName"  gorm:"type:varchar(100)"`
	AvatarURL string    `json:"avatarUrl" gorm:"type:varchar(512)"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// DisplayName joins the name parts, falling back to the e-mail address.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}

// Listing is an item offered for rent. It is mutable only by its owner.
//
// Fields:
//   - PricePerDay: decimal daily price used to compute booking totals.
//   - Category: normalized lower-case free text (e.g. "tools", "camping").
//   - Images: ordered list of image references (URLs or storage keys).
//   - Available: owner-controlled availability flag.
type Listing struct {
	ID          string                      `json:"id"          gorm:"type:char(36);primaryKey"`
	OwnerID     string                      `json:"ownerId"     gorm:"type:char(36);not null;index:idx_listing_owner"`
	Title       string                      `json:"title"       gorm:"type:varchar(255);not null"`
	Description string                      `json:"description" gorm:"type:text"`
	PricePerDay decimal.Decimal             `json:"pricePerDay" gorm:"type:decimal(12,2);not null"`
	Category    string                      `json:"category"    gorm:"type:varchar(64);index:idx_listing_category"`
	Location    string                      `json:"location"    gorm:"type:varchar(255)"`
	Images      datatypes.JSONSlice[string] `json:"images"`
	Available   bool                        `json:"available"   gorm:"not null;default:true"`
	CreatedAt   time.Time                   `json:"createdAt"   gorm:"index:idx_listing_created"`
	UpdatedAt   time.Time                   `json:"updatedAt"`

	Owner *User `json:"owner,omitempty" gorm:"foreignKey:OwnerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Listing.
func (Listing) TableName() string { return "listings" }

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

// Booking states. PENDING is the only initial state.
const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingCompleted BookingStatus = "COMPLETED"
)

// IsTransitionTarget reports whether s may be requested as a new status.
// PENDING is excluded because it is only ever assigned on creation.
func (s BookingStatus) IsTransitionTarget() bool {
	switch s {
	case BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// Booking is a renter's request to rent a listing for a date range.
type Booking struct {
	ID        string          `json:"id"        gorm:"type:char(36);primaryKey"`
	RenterID  string          `json:"renterId"  gorm:"type:char(36);not null;index:idx_booking_renter"`
	ListingID string          `json:"listingId" gorm:"type:char(36);not null;index:idx_booking_listing"`
	StartDate time.Time       `json:"startDate" gorm:"not null"`
	EndDate   time.Time       `json:"endDate"   gorm:"not null"`
	TotalCost decimal.Decimal `json:"totalCost" gorm:"type:decimal(12,2);not null"`
	Message   string          `json:"message"   gorm:"type:text"`
	Status    BookingStatus   `json:"status"    gorm:"type:varchar(16);not null;default:'PENDING';check:status IN ('PENDING','CONFIRMED','CANCELLED','COMPLETED')"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`

	Listing *Listing `json:"listing,omitempty" gorm:"foreignKey:ListingID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Renter  *User    `json:"renter,omitempty"  gorm:"foreignKey:RenterID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Booking.
func (Booking) TableName() string { return "bookings" }

// Chat is the single message thread of a booking. BookingID is unique, which
// is what makes chat creation an idempotent upsert.
type Chat struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	BookingID string    `json:"bookingId" gorm:"type:char(36);not null;uniqueIndex:ux_chats_booking"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Messages []Message `json:"messages" gorm:"foreignKey:ChatID;references:ID"`
	Booking  *Booking  `json:"-"        gorm:"foreignKey:BookingID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Chat.
func (Chat) TableName() string { return "chats" }

// Sender roles recorded on messages.
const (
	SenderOwner = "owner"
	SenderUser  = "user"
)

// Message is an immutable chat entry.
type Message struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	ChatID    string    `json:"chatId"    gorm:"type:char(36);not null;index:idx_chat_msgs,priority:1"`
	SenderID  string    `json:"senderId"  gorm:"type:char(36);not null"`
	Sender    string    `json:"sender"    gorm:"type:varchar(16);not null;check:sender IN ('owner','user')"`
	Content   string    `json:"content"   gorm:"type:text;not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"index:idx_chat_msgs,priority:2"`

	Chat *Chat `json:"-" gorm:"foreignKey:ChatID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// Notification types.
const (
	NotificationBookingStatus  = "booking_status"
	NotificationBookingRequest = "booking_request"
	NotificationChatMessage    = "chat_message"
)

// Notification is an in-app inbox entry. Only Read ever changes after insert.
type Notification struct {
	ID        string    `json:"id"                  gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"userId"              gorm:"type:char(36);not null;index:idx_notif_user,priority:1"`
	Type      string    `json:"type"                gorm:"type:varchar(32);not null"`
	Title     string    `json:"title"               gorm:"type:varchar(255);not null"`
	Message   string    `json:"message"             gorm:"type:text"`
	RelatedID *string   `json:"relatedId,omitempty" gorm:"type:char(36)"`
	Read      bool      `json:"read"                gorm:"not null;default:false;index:idx_notif_user,priority:2"`
	CreatedAt time.Time `json:"createdAt"           gorm:"index"`

	User *User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string { return "notifications" }

// Review is a 1..5 rating left by a user on someone else's listing. A user
// reviews a listing at most once (unique index).
type Review struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	ListingID string    `json:"listingId" gorm:"type:char(36);not null;index;uniqueIndex:ux_review_listing_author"`
	AuthorID  string    `json:"authorId"  gorm:"type:char(36);not null;uniqueIndex:ux_review_listing_author"`
	Rating    int       `json:"rating"    gorm:"not null;check:rating BETWEEN 1 AND 5"`
	Comment   string    `json:"comment"   gorm:"type:text"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Listing *Listing `json:"-"                gorm:"foreignKey:ListingID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Author  *User    `json:"author,omitempty" gorm:"foreignKey:AuthorID;references:ID"`
}

// TableName returns the database table name for Review.
func (Review) TableName() string { return "reviews" }

// All returns every model in dependency order, for migrations.
func All() []any {
	return []any{
		&User{},
		&Listing{},
		&Booking{},
		&Chat{},
		&Message{},
		&Notification{},
		&Review{},
		&Idempotency{},
	}
}
