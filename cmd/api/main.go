package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SoftwareFuze/ScrapBook/internal/auth/cleanup"
	authhttp "github.com/SoftwareFuze/ScrapBook/internal/auth/http"
	authrepo "github.com/SoftwareFuze/ScrapBook/internal/auth/repository"
	authservice "github.com/SoftwareFuze/ScrapBook/internal/auth/service"
	"github.com/SoftwareFuze/ScrapBook/internal/common/bootstrap"
	"github.com/SoftwareFuze/ScrapBook/internal/common/constants"
	commoncrypto "github.com/SoftwareFuze/ScrapBook/internal/common/crypto"
	commonhttp "github.com/SoftwareFuze/ScrapBook/internal/common/http"
	srv "github.com/SoftwareFuze/ScrapBook/internal/common/server"
	communitycache "github.com/SoftwareFuze/ScrapBook/internal/community/cache"
	communityhttp "github.com/SoftwareFuze/ScrapBook/internal/community/http"
	communityrepo "github.com/SoftwareFuze/ScrapBook/internal/community/repository"
	communityservice "github.com/SoftwareFuze/ScrapBook/internal/community/service"
	"github.com/SoftwareFuze/ScrapBook/internal/feed"
	"github.com/SoftwareFuze/ScrapBook/internal/migrations"
	posthttp "github.com/SoftwareFuze/ScrapBook/internal/post/http"
	postrepo "github.com/SoftwareFuze/ScrapBook/internal/post/repository"
	postservice "github.com/SoftwareFuze/ScrapBook/internal/post/service"
	userrepo "github.com/SoftwareFuze/ScrapBook/internal/user/repository"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.NewAPIApp(ctx, "api")
	if err != nil {
		return fmt.Errorf("failed to start api: %w", err)
	}
	defer app.Close()

	log := app.Log
	cfg := app.Config

	if cfg.MigrateOnStart {
		if err := migrations.Run(ctx, cfg.DatabaseURL, "up"); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		log.Info("migrations applied")
	}

	userRepo := userrepo.NewPgRepository(app.Pool)
	refreshTokenRepo := authrepo.NewPgRefreshTokenRepository(app.Pool)
	revokedTokenRepo := authrepo.NewPgRevokedTokenRepository(app.Pool)

	issuer := authservice.NewTokenIssuer(cfg.JWTSecret, app.IDs, cfg.AccessTokenTTL, app.Clock)
	revocations := authservice.NewRevocationList(revokedTokenRepo, app.CircuitBreaker, cfg.AccessTokenTTL)
	rotator := authservice.NewRefreshTokenRotator(
		refreshTokenRepo,
		userRepo,
		issuer,
		app.CircuitBreaker,
		app.IDs,
		cfg.RefreshTokenTTL,
		cfg.MaxRefreshTokensPerUser,
		app.Clock,
		log,
	)
	verifier := authservice.NewVerifier(issuer, rotator, revocations, userRepo, app.CircuitBreaker, log)
	authService := authservice.NewAuthService(
		userRepo,
		refreshTokenRepo,
		rotator,
		issuer,
		revocations,
		commoncrypto.NewBcryptHasher(),
		app.IDs,
		app.CircuitBreaker,
		app.Clock,
		log,
	)

	var (
		aggregateCache communitycache.Cache = communitycache.NoopCache{}
		redisClient    *redis.Client
	)
	if cfg.RedisURL != "" {
		redisClient, err = communitycache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		aggregateCache = communitycache.NewRedisCache(redisClient, cfg.CacheTTL)
		log.Info("community cache backed by redis")
	}

	hub := feed.NewHub(log)
	go hub.Run(ctx)

	communityRepo := communityrepo.NewPgRepository(app.Pool, log)
	communityService := communityservice.NewService(
		communityRepo,
		aggregateCache,
		communitycache.NewTitleIndex(cfg.CacheTTL),
		hub,
		app.IDs,
		app.Clock,
		log,
	)
	postService := postservice.NewService(
		communityRepo,
		postrepo.NewPgStore(app.Pool),
		communityService,
		app.IDs,
		app.Clock,
		log,
	)

	go cleanup.Start(ctx, constants.TokenCleanupInterval, log,
		cleanup.RefreshTokens(refreshTokenRepo),
		cleanup.RevokedTokens(revokedTokenRepo),
	)

	limiter := commonhttp.NewStrictRateLimiter()
	defer limiter.Stop()

	mux := http.NewServeMux()
	authhttp.NewHandler(authService, verifier, cfg.RequestTimeout, log).Mount(mux, limiter)
	communityhttp.NewHandler(communityService, verifier, cfg.RequestTimeout, log).Mount(mux, limiter)
	posthttp.NewHandler(postService, verifier, cfg.RequestTimeout, log).Mount(mux, limiter)
	feed.NewHandler(hub, communityService, cfg.CORSOrigin, log).Mount(mux)

	checks := []commonhttp.HealthCheck{{Name: "postgres", Check: app.Pool.Ping}}
	if redisClient != nil {
		checks = append(checks, commonhttp.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}
	mux.HandleFunc("/health", commonhttp.HealthHandler(log, checks...))
	mux.Handle("/metrics", promhttp.Handler())

	server := srv.New(srv.DefaultConfig(cfg.HTTPPort), commonhttp.BuildBaseHandler(log, cfg.CORSOrigin, mux))

	return srv.StartWithGracefulShutdown(server, log, "api",
		func(ctx context.Context) error {
			log.Info("api service: stopping background workers and feed subscribers")
			cancel()
			return nil
		},
		func(ctx context.Context) error {
			if redisClient == nil {
				return nil
			}
			return redisClient.Close()
		},
	)
}
