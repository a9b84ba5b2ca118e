package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/studyshare/backend/internal/accounts"
	"github.com/studyshare/backend/internal/auth"
	"github.com/studyshare/backend/internal/config"
	"github.com/studyshare/backend/internal/db"
	"github.com/studyshare/backend/internal/friends"
	"github.com/studyshare/backend/internal/handlers"
	"github.com/studyshare/backend/internal/mail"
	"github.com/studyshare/backend/internal/materials"
	"github.com/studyshare/backend/internal/middleware"
	"github.com/studyshare/backend/internal/repositories"
	"github.com/studyshare/backend/internal/storage"
)

const rateLimiterIdleTTL = 10 * time.Minute

// buildDependencies wires together concrete implementations used by the HTTP handlers.
// The returned cleanup releases connections opened here; the pool is owned by the caller.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, func(context.Context) error, error) {
	users := repositories.NewPostgresUserRepository(pool)
	materialRepo := repositories.NewPostgresMaterialRepository(pool)

	sessionStore, closeSessions, err := buildSessionStore(pool, cfg)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}
	sessions := auth.NewManager(cfg.SessionTTL, sessionStore)

	objectStore, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		_ = closeSessions(ctx)
		return handlers.Dependencies{}, nil, fmt.Errorf("configure object storage: %w", err)
	}
	uploader := storage.NewUploader(objectStore, cfg.MaxUploadBytes, cfg.ObjectStore.KeyPrefix)

	accountService := accounts.NewService(users, sessions, mail.NewSMTPSender(cfg.Mail), accounts.Config{
		AdminEmail:      cfg.AdminEmail,
		VerifyURL:       cfg.PublicBaseURL + "/api/v1/auth/verify",
		VerificationTTL: cfg.VerificationTTL,
	})

	deps := handlers.Dependencies{
		Accounts:       accountService,
		Sessions:       sessions,
		Friends:        friends.NewService(users, users),
		Materials:      materials.NewService(users, users, materialRepo, uploader),
		AuthLimiter:    middleware.NewIPRateLimiter(cfg.AuthRateLimit, cfg.AuthRateLimitWindow, cfg.AuthRateLimit, rateLimiterIdleTTL),
		CookieSecure:   cfg.CookieSecure,
		MaxUploadBytes: uploader.MaxBytes(),
	}
	if pinger, ok := pool.(handlers.Pinger); ok {
		deps.Database = pinger
	}

	return deps, closeSessions, nil
}

func buildSessionStore(pool db.Pool, cfg config.Config) (auth.SessionStore, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	switch cfg.SessionBackend {
	case config.SessionBackendPostgres, "":
		return repositories.NewPostgresSessionStore(pool), noop, nil
	case config.SessionBackendMemory:
		return auth.NewInMemorySessionStore(), noop, nil
	case config.SessionBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return repositories.NewRedisSessionStore(client), func(context.Context) error { return client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}
