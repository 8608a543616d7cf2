package maintenance

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-rentme-backend/internal/domain"
	"github.com/tbourn/go-rentme-backend/internal/repo"
)

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:maint_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seed(t *testing.T, db *gorm.DB, key string, ttl time.Duration) {
	t.Helper()
	if _, err := repo.CreateIdempotency(context.Background(), db, "u1", "POST /bookings", key, "b-"+key, 201, ttl); err != nil {
		t.Fatalf("seed %s: %v", key, err)
	}
}

func count(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	db.Model(&domain.Idempotency{}).Count(&n)
	return n
}

func TestRunOnce_PurgesOnlyExpired(t *testing.T) {
	db := newDB(t)
	seed(t, db, "old", -time.Minute)
	seed(t, db, "fresh", time.Hour)

	s := New(db, "@every 1h", zerolog.Nop())
	n, err := s.RunOnce(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("RunOnce = %d, %v; want 1", n, err)
	}
	if got := count(t, db); got != 1 {
		t.Fatalf("remaining = %d; want 1", got)
	}

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	s.tick()
	if got := count(t, db); got != 0 {
		t.Fatalf("tick should purge the rest, remaining = %d", got)
	}
}

func TestRunOnce_DatabaseError(t *testing.T) {
	db := newDB(t)
	if err := db.Migrator().DropTable(&domain.Idempotency{}); err != nil {
		t.Fatalf("drop: %v", err)
	}
	s := New(db, "", zerolog.Nop())
	if _, err := s.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected error on missing table")
	}
	s.tick()
}

func TestStartStop(t *testing.T) {
	db := newDB(t)

	if err := New(db, "not a schedule", zerolog.Nop()).Start(); err == nil {
		t.Fatalf("invalid schedule should fail")
	}

	disabled := New(db, "", zerolog.Nop())
	if err := disabled.Start(); err != nil {
		t.Fatalf("empty schedule: %v", err)
	}
	if err := disabled.Stop(context.Background()); err != nil {
		t.Fatalf("stop of disabled scheduler: %v", err)
	}

	s := New(db, "@every 1h", zerolog.Nop())
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}
