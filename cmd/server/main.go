// Command server runs the RentMe HTTP API.
//
//	@title						RentMe API
//	@version					1.0
//	@description				Peer-to-peer rental marketplace: listings, bookings, booking chats and notifications.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-rentme-backend/internal/auth"
	"github.com/tbourn/go-rentme-backend/internal/config"
	httpapi "github.com/tbourn/go-rentme-backend/internal/http"
	"github.com/tbourn/go-rentme-backend/internal/http/middleware"
	"github.com/tbourn/go-rentme-backend/internal/maintenance"
	"github.com/tbourn/go-rentme-backend/internal/observability"
	"github.com/tbourn/go-rentme-backend/internal/repo"
	"github.com/tbourn/go-rentme-backend/internal/sysutil"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

func main() {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = os.Stderr.WriteString("warning: .env not loaded: " + err.Error() + "\n")
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(2)
	}
	log := sysutil.SetupLogger(cfg.Log.Level, cfg.Log.Pretty, os.Stdout)
	version = sysutil.FirstNonEmpty(os.Getenv("VERSION"), version)
	gin.SetMode(cfg.Server.GinMode)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", version).Str("db_driver", cfg.DB.Driver).Msg("starting rentme")

	shutdownTracing, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}

	db, err := openDB(cfg.DB)
	if err != nil {
		_ = shutdownTracing(context.Background())
		return err
	}

	verifier, err := newVerifier(cfg.Auth, log)
	if err != nil {
		_ = repo.Close(db)
		_ = shutdownTracing(context.Background())
		return err
	}

	limiter, closeLimiter := newLimiter(ctx, cfg.Rate, log)

	jobs := maintenance.New(db, cfg.MaintenanceSchedule, log)
	if err := jobs.Start(); err != nil {
		log.Error().Err(err).Msg("maintenance not started")
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, db, cfg, verifier, limiter)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("base_path", cfg.Server.APIBasePath).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			log.Error().Err(err).Msg("http server failed")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	// Shutdown order: stop taking requests, stop background jobs, flush
	// traces, then release the limiter backend and the DB pool.
	shCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := jobs.Stop(shCtx); err != nil {
		log.Error().Err(err).Msg("maintenance shutdown")
	}
	if err := shutdownTracing(shCtx); err != nil {
		log.Error().Err(err).Msg("tracer shutdown")
	}
	closeLimiter()
	if err := repo.Close(db); err != nil {
		log.Error().Err(err).Msg("db close")
	}
	log.Info().Msg("stopped")
	return nil
}

func openDB(cfg config.DBConfig) (*gorm.DB, error) {
	db, err := repo.Open(cfg.Driver, cfg.Path, cfg.URL)
	if err != nil {
		return nil, err
	}
	if err := observability.InstrumentDB(db); err != nil {
		_ = repo.Close(db)
		return nil, err
	}
	if err := repo.AutoMigrate(db); err != nil {
		_ = repo.Close(db)
		return nil, err
	}
	return db, nil
}

func newVerifier(cfg config.AuthConfig, log zerolog.Logger) (auth.Verifier, error) {
	if cfg.Mode == "hmac" {
		return auth.NewHMACVerifier(cfg.JWTSecret)
	}
	log.Warn().
		Str("subject", cfg.MockSubject).
		Msg("AUTH_MODE=mock: every bearer token is accepted as the same user; do not use in production")
	return auth.MockVerifier{Subject: cfg.MockSubject}, nil
}

// newLimiter builds the configured limiter. An unreachable Redis is only
// reported; the limiter fails open per request until it comes back.
func newLimiter(ctx context.Context, cfg config.RateConfig, log zerolog.Logger) (middleware.Limiter, func()) {
	if cfg.Backend != "redis" {
		return middleware.NewMemoryLimiter(cfg.RPS, cfg.Burst), func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis rate-limit backend unreachable")
	}
	return middleware.NewRedisLimiter(client, cfg.RPS, cfg.Burst), func() { _ = client.Close() }
}
