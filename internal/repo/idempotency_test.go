package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-rentme-backend/internal/domain"
)

func TestGetIdempotency_BlankScopeOrKey_ReturnsNotFound(t *testing.T) {
	db := newRepoDB(t, &domain.Idempotency{})
	now := time.Now().UTC()

	if rec, err := GetIdempotency(context.Background(), db, "u1", "   ", "k1", now); rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for blank scope, got (%v, %v)", rec, err)
	}
	if rec, err := GetIdempotency(context.Background(), db, "u1", "POST /bookings", "", now); rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for blank key, got (%v, %v)", rec, err)
	}
}

func TestIdempotency_CreateGetDuplicateExpire(t *testing.T) {
	db := newRepoDB(t, &domain.Idempotency{})
	ctx := context.Background()
	scope := "POST /bookings"

	rec, err := CreateIdempotency(ctx, db, "u1", scope, "k1", "b-1", 201, time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.ResourceID != "b-1" || rec.Status != 201 || !rec.ExpiresAt.After(rec.CreatedAt) {
		t.Fatalf("unexpected record: %+v", rec)
	}

	if _, err := CreateIdempotency(ctx, db, "u1", scope, "k1", "b-2", 201, time.Hour); err != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	got, err := GetIdempotency(ctx, db, "u1", scope, "k1", time.Now().UTC())
	if err != nil || got.ResourceID != "b-1" {
		t.Fatalf("GetIdempotency = %+v, %v", got, err)
	}

	// Looked up past its expiry it is gone.
	if _, err := GetIdempotency(ctx, db, "u1", scope, "k1", time.Now().UTC().Add(2*time.Hour)); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestPurgeExpiredIdempotency(t *testing.T) {
	db := newRepoDB(t, &domain.Idempotency{})
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "u1", "s", "old", "r1", 201, time.Millisecond); err != nil {
		t.Fatalf("create old: %v", err)
	}
	if _, err := CreateIdempotency(ctx, db, "u1", "s", "fresh", "r2", 201, time.Hour); err != nil {
		t.Fatalf("create fresh: %v", err)
	}

	n, err := PurgeExpiredIdempotency(ctx, db, time.Now().UTC().Add(time.Second))
	if err != nil || n != 1 {
		t.Fatalf("PurgeExpiredIdempotency = %d, %v; want 1", n, err)
	}
	// The slot is free again.
	if _, err := CreateIdempotency(ctx, db, "u1", "s", "old", "r3", 201, time.Hour); err != nil {
		t.Fatalf("re-create after purge: %v", err)
	}
}

func TestIdempotency_NoTable(t *testing.T) {
	db := newRepoDB(t)
	if _, err := CreateIdempotency(context.Background(), db, "u", "s", "k", "r", 201, time.Hour); err == nil || err == ErrDuplicate {
		t.Fatalf("expected raw DB error without table, got %v", err)
	}
	if _, err := PurgeExpiredIdempotency(context.Background(), db, time.Now()); err == nil {
		t.Fatalf("expected purge error without table")
	}
}
