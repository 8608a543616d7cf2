// Package auth verifies bearer tokens and yields the caller's identity.
//
// The HTTP layer depends only on Verifier. Two implementations ship:
// MockVerifier for local development and HMACVerifier for HS256 JWTs.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized is returned for missing, malformed, expired or otherwise
// unacceptable tokens.
var ErrUnauthorized = errors.New("unauthorized")

// Identity is the authenticated principal.
type Identity struct {
	Subject string
	Email   string
}

// Verifier turns a raw bearer token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// BearerToken extracts the token from an Authorization header value.
// It returns "" when the header is empty or uses a different scheme.
func BearerToken(header string) string {
	h := strings.TrimSpace(header)
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// MockVerifier accepts any non-empty token and maps it to a fixed subject.
// It exists for development only.
type MockVerifier struct {
	Subject string
	Email   string
}

func (m MockVerifier) Verify(_ context.Context, token string) (Identity, error) {
	if strings.TrimSpace(token) == "" {
		return Identity{}, ErrUnauthorized
	}
	sub := m.Subject
	if sub == "" {
		sub = "dev-user"
	}
	return Identity{Subject: sub, Email: m.Email}, nil
}

// HMACVerifier validates HS256-signed JWTs. The subject comes from "sub"
// and the optional "email" claim is passed through.
type HMACVerifier struct {
	secret []byte
}

// NewHMACVerifier returns a verifier for the given shared secret.
func NewHMACVerifier(secret string) (*HMACVerifier, error) {
	if secret == "" {
		return nil, errors.New("auth: empty HMAC secret")
	}
	return &HMACVerifier{secret: []byte(secret)}, nil
}

type claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func (v *HMACVerifier) Verify(_ context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrUnauthorized
	}
	var c claims
	tok, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if strings.TrimSpace(c.Subject) == "" {
		return Identity{}, fmt.Errorf("%w: missing sub claim", ErrUnauthorized)
	}
	return Identity{Subject: c.Subject, Email: c.Email}, nil
}

// Sign issues an HS256 token for sub. Used by tests and local tooling.
func (v *HMACVerifier) Sign(sub, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.secret)
}
