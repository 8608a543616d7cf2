package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-rentme-backend/internal/auth"
	"github.com/tbourn/go-rentme-backend/internal/domain"
	"github.com/tbourn/go-rentme-backend/internal/repo"
)

// UserResolver maps a verified subject to a local user, creating it on first
// sight.
type UserResolver interface {
	Resolve(ctx context.Context, subject, email string) (*domain.User, error)
}

// RequireAuth verifies the bearer token, resolves the caller to a User and
// stores its id under CtxUserID. Missing or invalid tokens get 401.
func RequireAuth(v auth.Verifier, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.Header("WWW-Authenticate", `Bearer realm="rentme"`)
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		id, err := v.Verify(c.Request.Context(), token)
		if err != nil {
			LoggerFrom(c).Debug().Err(err).Msg("token rejected")
			c.Header("WWW-Authenticate", `Bearer realm="rentme", error="invalid_token"`)
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		u, err := users.Resolve(c.Request.Context(), id.Subject, id.Email)
		if err != nil {
			LoggerFrom(c).Error().Err(err).Str("subject", id.Subject).Msg("resolve user")
			if repo.IsUnavailable(err) {
				abortJSON(c, http.StatusServiceUnavailable, "unavailable", "service temporarily unavailable")
				return
			}
			abortJSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}

		c.Set(CtxUserID, u.ID)
		SetLogger(c, LoggerFrom(c).With().Str("user_id", u.ID).Logger())
		c.Next()
	}
}
