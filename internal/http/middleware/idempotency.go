package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header carrying a client-chosen key for
// unsafe operations (POST /bookings, POST /chat/:bookingId/messages).
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemScope  = "idem.scope"
	ctxKeyIdemReplay = "idem.replay" // Replay
	ctxKeyRateBypass = "rate.bypass"
)

var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// Replay describes a previously completed request with the same key.
type Replay struct {
	ResourceID string
	Status     int
}

// IdempotencyLookup finds a still-valid record for (userID, scope, key).
// found=false with a nil error means "first time".
type IdempotencyLookup func(ctx context.Context, userID, scope, key string, now time.Time) (Replay, bool, error)

// IdempotencyOptions configures header validation. TTL is enforced by the
// lookup, not here.
type IdempotencyOptions struct {
	MaxLen  int            // default 200
	Pattern *regexp.Regexp // default ^[A-Za-z0-9._~\-:]+$
}

// IdempotencyValidator validates the Idempotency-Key header when present,
// stashes the key and its scope (method + request path) and, when lookup finds
// a prior result, marks the request as a replay so the handler can return the
// stored resource and the rate limiter lets it through.
//
// Must run after RequireAuth: records are per user.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultKeyPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			abortJSON(c, http.StatusBadRequest, "bad_idempotency_key", "invalid Idempotency-Key")
			return
		}

		scope := c.Request.Method + " " + c.Request.URL.Path
		c.Set(ctxKeyIdemKey, key)
		c.Set(ctxKeyIdemScope, scope)

		if lookup != nil {
			rep, found, err := lookup(c.Request.Context(), UserIDFrom(c), scope, key, time.Now().UTC())
			switch {
			case err != nil:
				LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
			case found:
				c.Set(ctxKeyIdemReplay, rep)
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Next()
	}
}

// IdempotencyKey returns the validated key and its scope.
func IdempotencyKey(c *gin.Context) (key, scope string, ok bool) {
	key = asString(c.Value(ctxKeyIdemKey))
	scope = asString(c.Value(ctxKeyIdemScope))
	return key, scope, key != ""
}

// ReplayFrom returns the prior result when this request is a replay.
func ReplayFrom(c *gin.Context) (Replay, bool) {
	r, ok := c.Value(ctxKeyIdemReplay).(Replay)
	return r, ok
}
