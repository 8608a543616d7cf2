package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/go-rentme-backend/internal/domain"
	"github.com/tbourn/go-rentme-backend/internal/repo"
)

// ProfileInput holds profile fields; nil leaves a field unchanged.
type ProfileInput struct {
	FirstName *string
	LastName  *string
	AvatarURL *string
}

// UserService resolves identities to users and edits profiles.
type UserService struct {
	DB *gorm.DB
}

// Resolve returns the user for an identity-provider subject, creating the
// row on first sight.
func (s *UserService) Resolve(ctx context.Context, subject, email string) (*domain.User, error) {
	return repo.EnsureUser(ctx, s.DB, subject, email)
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := repo.GetUser(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// UpdateProfile applies in to the user's profile and returns the result.
func (s *UserService) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*domain.User, error) {
	fields := map[string]any{}
	bad := map[string]string{}

	set := func(col, name string, v *string, max int) {
		if v == nil {
			return
		}
		t := strings.TrimSpace(*v)
		if utf8.RuneCountInString(t) > max {
			bad[name] = "is too long"
			return
		}
		fields[col] = t
	}
	set("first_name", "firstName", in.FirstName, 100)
	set("last_name", "lastName", in.LastName, 100)
	set("avatar_url", "avatarUrl", in.AvatarURL, 512)

	if len(bad) > 0 {
		return nil, &ValidationError{Fields: bad}
	}
	if err := repo.UpdateUserProfile(ctx, s.DB, id, fields); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.Get(ctx, id)
}
