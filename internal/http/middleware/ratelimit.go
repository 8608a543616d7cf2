package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"
)

// Limiter decides whether one more request for key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// KeyFunc maps a request to a rate-limit bucket identity.
type KeyFunc func(*gin.Context) string

// KeyByUserOrIP keys by the authenticated user when known, else by client IP.
func KeyByUserOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if uid := UserIDFrom(c); uid != "" {
			return "user:" + uid
		}
		return "ip:" + c.ClientIP()
	}
}

// RateLimit enforces l per key. Idempotent replays are not limited. Limiter
// errors fail open: the request proceeds and a warning is logged.
func RateLimit(l Limiter, keyFn KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			rateLimited.WithLabelValues("bypass").Inc()
			c.Next()
			return
		}
		allowed, err := l.Allow(c.Request.Context(), keyFn(c))
		if err != nil {
			rateLimited.WithLabelValues("error").Inc()
			LoggerFrom(c).Warn().Err(err).Msg("rate limiter unavailable, allowing request")
			c.Next()
			return
		}
		if !allowed {
			rateLimited.WithLabelValues("rejected").Inc()
			c.Header("Retry-After", "1")
			abortJSON(c, http.StatusTooManyRequests, "too_many_requests", "rate limit exceeded")
			return
		}
		c.Next()
	}
}

// IsRateBypass reports whether IdempotencyValidator flagged this request as a
// replay that should not consume tokens.
func IsRateBypass(c *gin.Context) bool {
	b, _ := c.Value(ctxKeyRateBypass).(bool)
	return b
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter is a process-local token bucket per key. Idle buckets are
// evicted opportunistically every gcEvery lookups.
type MemoryLimiter struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	visitors map[string]*visitor
	ttl      time.Duration
	lookups  uint64
	gcEvery  uint64
}

// NewMemoryLimiter returns a token bucket limiter refilling rps tokens per
// second with the given burst (coerced to at least 1).
func NewMemoryLimiter(rps float64, burst int) *MemoryLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &MemoryLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute,
		gcEvery:  5000,
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	return m.bucket(key).Allow(), nil
}

// Len reports the number of live buckets.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.visitors)
}

func (m *MemoryLimiter) bucket(key string) *rate.Limiter {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	// Sweep before touching key so a stale bucket for key is also dropped.
	m.lookups++
	if m.lookups >= m.gcEvery {
		for k, v := range m.visitors {
			if now.Sub(v.lastSeen) >= m.ttl {
				delete(m.visitors, k)
			}
		}
		m.lookups = 0
	}

	if v, ok := m.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(m.rps, m.burst)
	m.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// RedisLimiter is a fixed-window counter shared by every replica: at most
// Limit requests per key per Window.
type RedisLimiter struct {
	Client redis.Cmdable
	Limit  int64
	Window time.Duration
	Prefix string

	now func() time.Time
}

// NewRedisLimiter sizes the window limit from the token-bucket settings so
// both backends admit roughly the same traffic.
func NewRedisLimiter(client redis.Cmdable, rps float64, burst int) *RedisLimiter {
	limit := int64(burst)
	if r := int64(rps + 0.999); r > limit {
		limit = r
	}
	if limit < 1 {
		limit = 1
	}
	return &RedisLimiter{Client: client, Limit: limit, Window: time.Second, Prefix: "rentme:rl:", now: time.Now}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	slot := now().UnixNano() / int64(r.Window)
	k := r.Prefix + key + ":" + strconv.FormatInt(slot, 10)

	n, err := r.Client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("redis incr: %w", err)
	}
	if n == 1 {
		if err := r.Client.Expire(ctx, k, 2*r.Window).Err(); err != nil {
			return false, fmt.Errorf("redis expire: %w", err)
		}
	}
	return n <= r.Limit, nil
}
