package repo

import (
	"context"
	"testing"

	"github.com/tbourn/go-rentme-backend/internal/domain"
)

func TestEnsureUser_GetOrCreate(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	ctx := context.Background()

	u1, err := EnsureUser(ctx, db, "sub-1", "a@example.com")
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	u2, err := EnsureUser(ctx, db, "sub-1", "ignored@example.com")
	if err != nil {
		t.Fatalf("EnsureUser again: %v", err)
	}
	if u1.ID != u2.ID || u2.Email != "a@example.com" {
		t.Fatalf("expected the first row back, got %+v vs %+v", u1, u2)
	}

	var n int64
	db.Model(&domain.User{}).Count(&n)
	if n != 1 {
		t.Fatalf("expected 1 user, got %d", n)
	}
}

func TestUpdateUserProfile(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	ctx := context.Background()
	u, _ := EnsureUser(ctx, db, "sub", "")

	if err := UpdateUserProfile(ctx, db, u.ID, map[string]any{"first_name": "Ada", "last_name": "L"}); err != nil {
		t.Fatalf("UpdateUserProfile: %v", err)
	}
	got, err := GetUser(ctx, db, u.ID)
	if err != nil || got.FirstName != "Ada" || got.LastName != "L" {
		t.Fatalf("unexpected user %+v, %v", got, err)
	}
	if err := UpdateUserProfile(ctx, db, "missing", map[string]any{"first_name": "x"}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := GetUserBySubject(ctx, db, "nobody"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
