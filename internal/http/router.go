// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, authentication, idempotency, and rate limiting.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-rentme-backend/docs"
	"github.com/tbourn/go-rentme-backend/internal/auth"
	"github.com/tbourn/go-rentme-backend/internal/config"
	"github.com/tbourn/go-rentme-backend/internal/http/handlers"
	"github.com/tbourn/go-rentme-backend/internal/http/middleware"
	"github.com/tbourn/go-rentme-backend/internal/services"
)

// MaxBodyBytes caps every request body.
const MaxBodyBytes = 1 << 20

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the API under cfg.Server.APIBasePath. A nil limiter falls
// back to an in-process token bucket sized from cfg.Rate.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Compression, CORS and security headers
//
// Per route group: RequireAuth, then the Idempotency-Key validator on the two
// replayable POSTs, then the rate limiter (which lets replays through).
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config, verifier auth.Verifier, limiter middleware.Limiter) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))
	r.Use(middleware.Recovery())
	r.Use(middleware.BodyLimit(MaxBodyBytes))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", "/swagger"})))
	r.Use(cors.New(corsConfig(cfg.CORS.AllowedOrigins)))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.Server.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.Server.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Services share one notifier; dispatch failures never fail the caller.
	notifications := &services.NotificationService{DB: db}
	notifier := services.BestEffortNotifier{Dispatcher: notifications}
	users := &services.UserService{DB: db}
	store := &handlers.IdempotencyStore{DB: db, TTL: cfg.IdempotencyTTL}

	h := handlers.New(handlers.Deps{
		Listings:      services.NewListingService(db),
		Bookings:      &services.BookingService{DB: db, Notifier: notifier},
		Chats:         &services.ChatService{DB: db, Notifier: notifier},
		Notifications: notifications,
		Reviews:       &services.ReviewService{DB: db},
		Users:         users,
		Idempotency:   store,
	})

	if limiter == nil {
		limiter = middleware.NewMemoryLimiter(cfg.Rate.RPS, cfg.Rate.Burst)
	}
	rateLimit := middleware.RateLimit(limiter, middleware.KeyByUserOrIP())
	idempotent := middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, store.Lookup)

	api := groupWithPrefix(r, cfg.Server.APIBasePath)

	public := api.Group("", rateLimit)
	{
		public.GET("/listings", h.SearchListings)
		public.GET("/listings/:id", h.GetListing)
		public.GET("/listings/:id/reviews", h.ListReviews)
	}

	authed := api.Group("", middleware.RequireAuth(verifier, users))
	{
		authed.POST("/bookings", idempotent, rateLimit, h.CreateBooking)
		authed.POST("/chat/:bookingId/messages", idempotent, rateLimit, h.SendMessage)
	}

	limited := authed.Group("", rateLimit)
	{
		// Profile
		limited.GET("/me", h.GetMe)
		limited.PUT("/me", h.UpdateMe)

		// Listings and reviews
		limited.POST("/listings", h.CreateListing)
		limited.PUT("/listings/:id", h.UpdateListing)
		limited.DELETE("/listings/:id", h.DeleteListing)
		limited.POST("/listings/:id/reviews", h.CreateReview)

		// Bookings
		limited.GET("/bookings", h.ListBookings)
		limited.GET("/bookings/:id", h.GetBooking)
		limited.PATCH("/bookings/:id/status", h.UpdateBookingStatus)

		// Chat
		limited.GET("/chats", h.ListChats)
		limited.GET("/chat/:bookingId", h.GetChat)

		// Notifications
		limited.GET("/notifications", h.ListNotifications)
		limited.GET("/notifications/unread-count", h.UnreadCount)
		limited.PATCH("/notifications/mark-all-read", h.MarkAllNotificationsRead)
		limited.PATCH("/notifications/:id/read", h.MarkNotificationRead)
	}
}

// corsConfig allows every origin when none are configured. Credentials stay
// off either way; the API authenticates with bearer tokens.
func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
			"If-None-Match", middleware.HeaderIdempotencyKey,
		},
		ExposeHeaders: []string{"X-Request-ID", "ETag", "Retry-After", "Idempotent-Replayed", "Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
