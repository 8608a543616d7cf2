// Package services – ChatService
//
// This file implements the per-booking chat. A chat is opened lazily: by the
// booking confirmation, on first access, or on the first message, whichever
// happens first. All three paths go through the same atomic upsert keyed by
// the booking id, so a booking never ends up with two chats.
//
// Only the two parties of a booking (the renter and the listing owner) may
// read or write its chat.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-rentme-backend/internal/domain"
	"github.com/tbourn/go-rentme-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultMaxMessageRunes caps chat message length.
	DefaultMaxMessageRunes = 2000
	// previewRunes is the length of the message excerpt in notifications.
	previewRunes = 100
)

// ChatView is a chat with its ordered messages and the booking it belongs to
// (listing and renter loaded).
type ChatView struct {
	Chat    *domain.Chat
	Booking *domain.Booking
}

// ChatService coordinates chat access, messages and their notifications.
type ChatService struct {
	DB       *gorm.DB
	Notifier Notifier

	// MaxMessageRunes caps message content; <= 0 uses DefaultMaxMessageRunes.
	MaxMessageRunes int
}

// GetOrCreate returns the chat of bookingID, creating it if absent.
func (s *ChatService) GetOrCreate(ctx context.Context, bookingID, actorID string) (*ChatView, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "GetOrCreate",
		trace.WithAttributes(
			attribute.String("booking.id", bookingID),
			attribute.String("user.id", actorID),
		),
	)
	defer span.End()

	b, err := s.authorize(ctx, bookingID, actorID)
	if err != nil {
		return nil, err
	}
	if _, err := repo.EnsureChat(ctx, s.DB, b.ID); err != nil {
		span.RecordError(err)
		return nil, err
	}
	chat, err := repo.GetChatByBooking(ctx, s.DB, b.ID)
	if err != nil {
		return nil, err
	}
	if chat.Messages == nil {
		chat.Messages = []domain.Message{}
	}
	return &ChatView{Chat: chat, Booking: b}, nil
}

// SendMessage appends a message from actorID to the chat of bookingID and
// notifies the other party.
func (s *ChatService) SendMessage(ctx context.Context, bookingID, actorID, content string) (*domain.Message, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "SendMessage",
		trace.WithAttributes(
			attribute.String("booking.id", bookingID),
			attribute.String("user.id", actorID),
		),
	)
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, NewValidationError("content", "is required")
	}
	if utf8.RuneCountInString(content) > s.maxRunes() {
		return nil, NewValidationError("content", "is too long")
	}

	b, err := s.authorize(ctx, bookingID, actorID)
	if err != nil {
		return nil, err
	}

	chat, err := repo.EnsureChat(ctx, s.DB, b.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	sender, recipient := domain.SenderUser, b.Listing.OwnerID
	if actorID == b.Listing.OwnerID {
		sender, recipient = domain.SenderOwner, b.RenterID
	}

	msg, err := repo.CreateMessage(ctx, s.DB, chat.ID, actorID, sender, content)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := repo.TouchChat(ctx, s.DB, chat.ID); err != nil {
		zerolog.Ctx(ctx).Warn().
			Err(err).
			Str("chat_id", chat.ID).
			Msg("chat activity timestamp not updated")
	}

	if s.Notifier != nil {
		title := "New message from renter"
		if sender == domain.SenderOwner {
			title = "New message from owner"
		}
		related := b.ID
		s.Notifier.Notify(ctx, recipient, domain.NotificationChatMessage, title, Preview(content, previewRunes), &related)
	}
	return msg, nil
}

// ListForUser returns a page of chats the user takes part in.
func (s *ChatService) ListForUser(ctx context.Context, userID string, page, pageSize int) ([]domain.Chat, int64, error) {
	_, pageSize, offset := normalizePage(page, pageSize)

	total, err := repo.CountChatsForUser(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Chat{}, 0, nil
	}
	items, err := repo.ListChatsForUser(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

// authorize loads the booking and checks that actorID is one of its parties.
func (s *ChatService) authorize(ctx context.Context, bookingID, actorID string) (*domain.Booking, error) {
	b, err := repo.GetBooking(ctx, s.DB, bookingID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if !isParty(b, actorID) {
		return nil, ErrForbidden
	}
	return b, nil
}

func (s *ChatService) maxRunes() int {
	if s.MaxMessageRunes > 0 {
		return s.MaxMessageRunes
	}
	return DefaultMaxMessageRunes
}

// Preview returns the first n runes of s, with "..." appended when s was cut.
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
