package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-rentme-backend/internal/http/middleware"
	"github.com/tbourn/go-rentme-backend/internal/repo"
)

// IdempotencyStore persists Idempotency-Key outcomes in the database. It
// provides both the middleware lookup and the handler-side recorder.
type IdempotencyStore struct {
	DB  *gorm.DB
	TTL time.Duration
}

// Lookup implements middleware.IdempotencyLookup.
func (s *IdempotencyStore) Lookup(ctx context.Context, userID, scope, key string, now time.Time) (middleware.Replay, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, userID, scope, key, now)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return middleware.Replay{}, false, nil
		}
		return middleware.Replay{}, false, err
	}
	return middleware.Replay{ResourceID: rec.ResourceID, Status: rec.Status}, true, nil
}

// Save records the outcome. A concurrent request with the same key that won
// the race is not an error.
func (s *IdempotencyStore) Save(ctx context.Context, userID, scope, key, resourceID string, status int) error {
	_, err := repo.CreateIdempotency(ctx, s.DB, userID, scope, key, resourceID, status, s.TTL)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// remember records a successful keyed request; failures are logged only.
func (h *Handlers) remember(c *gin.Context, resourceID string, status int) {
	key, scope, ok := middleware.IdempotencyKey(c)
	if !ok || h.idem == nil {
		return
	}
	if err := h.idem.Save(c.Request.Context(), middleware.UserIDFrom(c), scope, key, resourceID, status); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Str("key", key).Msg("idempotency record not saved")
	}
}
