package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"temanagement/api/internal/cache"
	"temanagement/api/internal/config"
	"temanagement/api/internal/database"
	"temanagement/api/internal/handlers"
	"temanagement/api/internal/jobs"
	"temanagement/api/internal/lockout"
	"temanagement/api/internal/log"
	"temanagement/api/internal/middleware"
	"temanagement/api/internal/queue"
	"temanagement/api/internal/repository"
	"temanagement/api/internal/security"
	"temanagement/api/internal/server"
	"temanagement/api/internal/service"
	"temanagement/api/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	if cfg.Postgres.AutoMigrate {
		if err := database.Migrate(ctx, dbPool); err != nil {
			logger.Fatal().Err(err).Msg("migrations failed")
		}
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	producer := queue.NewProducer(redisClient, cfg.Redis.Stream)

	tokens, err := security.NewTokenService(security.TokenConfig{
		AccessSecret:  cfg.Security.JWTAccessSecret,
		RefreshSecret: cfg.Security.JWTRefreshSecret,
		AccessTTL:     cfg.Security.AccessTTL,
		RefreshTTL:    cfg.Security.RefreshTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init token service")
	}

	users := repository.NewUserRepository(dbPool)
	profiles := repository.NewProfileRepository(dbPool)

	opts := []service.Option{
		service.WithLockoutPolicy(lockout.Policy{
			Threshold: cfg.Lockout.Threshold,
			Duration:  cfg.Lockout.Duration,
		}),
		service.WithEventPublisher(producer),
	}

	avatars, err := storage.NewAvatarStore(cfg.Storage)
	if err != nil {
		logger.Warn().Err(err).Msg("avatar store disabled")
	} else {
		if err := avatars.EnsureBucket(ctx); err != nil {
			logger.Warn().Err(err).Msg("ensure avatar bucket failed")
		}
		opts = append(opts, service.WithAvatarResolver(avatars))
	}

	authService := service.NewAuthService(
		users,
		profiles,
		security.NewBcryptHasher(cfg.Security.BcryptCost),
		tokens,
		logger,
		opts...,
	)
	guard := middleware.NewGuard(tokens, users, logger)

	handlerSet := handlers.NewHandlerSet(logger, cfg, authService, guard,
		handlers.Probe{Name: "database", Check: dbPool.Ping},
		handlers.Probe{Name: "redis", Check: func(ctx context.Context) error {
			return cache.Ping(ctx, redisClient)
		}},
	)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	var scheduler *jobs.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler = jobs.NewScheduler(producer, cfg.Scheduler.CleanupSpec, logger)
		if err := scheduler.Start(); err != nil {
			logger.Error().Err(err).Msg("scheduler start failed")
		}
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	if scheduler != nil {
		select {
		case <-scheduler.Stop().Done():
		case <-shutdownCtx.Done():
			logger.Warn().Msg("scheduler jobs still running at exit")
		}
	}

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
