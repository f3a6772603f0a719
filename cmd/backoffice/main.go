// Command backoffice runs the hospitality back-office API.
//
// @title                      Hospitality Back-Office API
// @version                    1.0
// @description                Back-office document and role API behind a bearer-token, rate-limit and role gate.
// @BasePath                   /api/v1
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tbourn/hospitality-backoffice/internal/config"
	httpapi "github.com/tbourn/hospitality-backoffice/internal/http"
	"github.com/tbourn/hospitality-backoffice/internal/identity"
	"github.com/tbourn/hospitality-backoffice/internal/observability"
	"github.com/tbourn/hospitality-backoffice/internal/ratelimit"
	"github.com/tbourn/hospitality-backoffice/internal/repo"
	"github.com/tbourn/hospitality-backoffice/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is fine; the environment wins.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	ver := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)
	sysutil.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName, ver)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, ver); err != nil {
		log.Fatal().Err(err).Msg("backoffice stopped")
	}
}

func run(ctx context.Context, cfg config.Config, ver string) error {
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.Open(repo.Options{
		Driver:  cfg.DB.Driver,
		Path:    cfg.DB.Path,
		DSN:     cfg.DB.URL,
		Tracing: cfg.OTEL.Enabled,
		Logger:  gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	store, closeStore, err := initStore(ctx, cfg, db)
	if err != nil {
		return fmt.Errorf("rate store: %w", err)
	}
	defer closeStore()
	limiter := ratelimit.NewLimiter(store,
		ratelimit.WithTimeout(cfg.Rate.StoreTimeout),
		ratelimit.WithName(storeName(cfg)),
	)

	verifier, err := identity.NewJWTVerifier(identity.JWTConfig{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		Leeway:   cfg.Auth.Leeway,
	})
	if err != nil {
		return fmt.Errorf("verifier: %w", err)
	}
	resolver := identity.NewResolver(verifier,
		identity.WithRoleClaim(cfg.Auth.RoleClaim),
		identity.WithVerifyTimeout(cfg.Auth.VerifyTimeout),
	)

	if id := cfg.Auth.BootstrapAdminID; id != "" {
		if err := httpapi.NewUserService(db).Bootstrap(ctx, id); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		log.Info().Str("user_id", id).Msg("bootstrap admin ensured")
	}

	r := gin.New()
	if err := httpapi.RegisterRoutes(r, httpapi.Deps{DB: db, Resolver: resolver, Limiter: limiter}, cfg); err != nil {
		return fmt.Errorf("routes: %w", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("db", cfg.DB.Driver).
			Str("rate_store", cfg.Rate.Store).
			Str("key_by", cfg.Rate.KeyBy).
			Strs("trusted_proxies", cfg.TrustedProxies).
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

// initStore builds the configured rate-limit store and starts its expiry
// loop. The returned func releases the store's resources.
func initStore(ctx context.Context, cfg config.Config, db *gorm.DB) (ratelimit.Store, func(), error) {
	switch cfg.Rate.Store {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		// Keys expire through PEXPIRE; no sweeper needed.
		return ratelimit.NewRedisStore(rdb), func() { _ = rdb.Close() }, nil

	case "memory":
		s := ratelimit.NewMemoryStore()
		s.Start(ctx, cfg.Rate.SweepInterval)
		return s, func() {}, nil

	default:
		repo.NewSweeper(db, cfg.Rate.SweepInterval, cfg.Rate.SweepBatch).Start(ctx)
		return repo.NewRateLimitStore(db), func() {}, nil
	}
}

// storeName labels the store in metrics.
func storeName(cfg config.Config) string {
	if cfg.Rate.Store == "db" {
		return cfg.DB.Driver
	}
	return cfg.Rate.Store
}
