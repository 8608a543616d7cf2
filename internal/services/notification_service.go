// Package services – NotificationService
//
// This file implements the in-app notification inbox: dispatching new rows,
// listing the newest ones, counting unread, and marking them read. It also
// provides BestEffortNotifier, the side-effect wrapper used by the booking
// and chat flows, which never lets a notification failure fail the primary
// operation.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-rentme-backend/internal/domain"
	"github.com/tbourn/go-rentme-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// NotificationListLimit caps how many notifications List returns.
const NotificationListLimit = 50

// Dispatcher persists a notification and reports failure to the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, userID, typ, title, message string, relatedID *string) (*domain.Notification, error)
}

// Notifier is a fire-and-forget notification side effect.
type Notifier interface {
	Notify(ctx context.Context, userID, typ, title, message string, relatedID *string)
}

// NotificationService owns the notification inbox.
type NotificationService struct {
	DB *gorm.DB
}

// Dispatch inserts exactly one unread notification for userID.
func (s *NotificationService) Dispatch(ctx context.Context, userID, typ, title, message string, relatedID *string) (*domain.Notification, error) {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "Dispatch",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("notification.type", typ),
		),
	)
	defer span.End()

	n, err := repo.CreateNotification(ctx, s.DB, userID, typ, title, message, relatedID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return n, nil
}

// List returns the newest notifications of userID.
func (s *NotificationService) List(ctx context.Context, userID string) ([]domain.Notification, error) {
	items, err := repo.ListNotifications(ctx, s.DB, userID, NotificationListLimit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Notification{}
	}
	return items, nil
}

// UnreadCount returns how many notifications of userID are unread.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return repo.CountUnread(ctx, s.DB, userID)
}

// MarkRead marks one notification read. It fails with ErrNotificationNotFound
// when the row is missing and ErrForbidden when it belongs to someone else.
// Re-marking is a no-op success.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	n, err := repo.GetNotification(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotificationNotFound
		}
		return err
	}
	if n.UserID != userID {
		return ErrForbidden
	}
	if n.Read {
		return nil
	}
	return repo.MarkNotificationRead(ctx, s.DB, id)
}

// MarkAllRead marks every unread notification of userID and returns how many
// rows changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return repo.MarkAllNotificationsRead(ctx, s.DB, userID)
}

// Fingerprint summarizes the inbox of userID for conditional responses. It
// changes whenever a notification is added or its read flag flips.
func (s *NotificationService) Fingerprint(ctx context.Context, userID string) (string, error) {
	count, unread, latest, err := repo.NotificationsStats(ctx, s.DB, userID)
	if err != nil {
		return "", err
	}
	var ts int64
	if latest != nil {
		ts = latest.UnixNano()
	}
	return fmt.Sprintf("%d:%d:%d", count, unread, ts), nil
}

// BestEffortNotifier adapts a Dispatcher into a Notifier: failures are logged
// and counted, never returned.
type BestEffortNotifier struct {
	Dispatcher Dispatcher
}

// Notify dispatches and swallows any error.
func (n BestEffortNotifier) Notify(ctx context.Context, userID, typ, title, message string, relatedID *string) {
	if n.Dispatcher == nil {
		return
	}
	if _, err := n.Dispatcher.Dispatch(ctx, userID, typ, title, message, relatedID); err != nil {
		notificationsDispatched.WithLabelValues(typ, "error").Inc()
		zerolog.Ctx(ctx).Warn().
			Err(err).
			Str("user_id", userID).
			Str("type", typ).
			Msg("notification dispatch failed")
		return
	}
	notificationsDispatched.WithLabelValues(typ, "ok").Inc()
}
