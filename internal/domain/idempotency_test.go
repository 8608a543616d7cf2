package domain

import (
	"testing"
	"time"
)

func TestIdempotency_UniquePerUserScopeKey(t *testing.T) {
	db := newDomainDB(t)
	now := time.Now().UTC()

	rec := func(id, user, scope, key string) *Idempotency {
		return &Idempotency{
			ID: id, UserID: user, Scope: scope, Key: key,
			ResourceID: "r-" + id, Status: 201, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
		}
	}

	if err := db.Create(rec("1", "u1", "POST /bookings", "k")).Error; err != nil {
		t.Fatalf("first insert: %v", err)
	}
	// Same key, different scope or user: allowed.
	if err := db.Create(rec("2", "u1", "POST /chat/b1/messages", "k")).Error; err != nil {
		t.Fatalf("other scope: %v", err)
	}
	if err := db.Create(rec("3", "u2", "POST /bookings", "k")).Error; err != nil {
		t.Fatalf("other user: %v", err)
	}
	// Exact duplicate tuple: rejected.
	if err := db.Create(rec("4", "u1", "POST /bookings", "k")).Error; err == nil {
		t.Fatalf("expected unique violation for duplicate (user, scope, key)")
	}

	var got Idempotency
	if err := db.First(&got, "id = ?", "1").Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ResourceID != "r-1" || got.Status != 201 || !got.ExpiresAt.After(got.CreatedAt) {
		t.Fatalf("unexpected record: %+v", got)
	}
}
