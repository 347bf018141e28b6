package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"persona-board/internal/config"
	"persona-board/internal/db"
	"persona-board/internal/email"
	"persona-board/internal/feed"
	apihttp "persona-board/internal/http"
	"persona-board/internal/repository"
	"persona-board/internal/service"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)
	postRepo := repository.NewPgPostRepository(pool)
	ratingRepo := repository.NewPgRatingRepository(pool)
	aggregateRepo := repository.NewPgAggregateRepository(pool)

	var broker feed.Broker = feed.NewMemoryBroker()
	var tokenStore service.RefreshTokenStore
	var resendLimiter service.RateLimiter
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-process fallbacks", zap.Error(err))
		} else {
			broker = feed.NewRedisBroker(redisClient, cfg.FeedChannel, logger)
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
			resendLimiter = service.NewRedisRateLimiter(redisClient, time.Minute, 3)
		}
		cancel()
	}

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}
	jwtSvc := service.NewJWTService(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
		tokenStore,
	)

	authSvc := service.NewAuthService(logger, userRepo, emailSender, resendLimiter, cfg.RequireConfirmation)
	postSvc := service.NewPostService(logger, postRepo, broker)
	ratingSvc := service.NewRatingService(logger, postRepo, ratingRepo, aggregateRepo)

	authHandler := apihttp.NewAuthHandler(logger, authSvc, jwtSvc)
	postHandler := apihttp.NewPostHandler(logger, postSvc)
	ratingHandler := apihttp.NewRatingHandler(logger, ratingSvc)
	feedHandler := apihttp.NewFeedStreamHandler(logger, postRepo, broker)
	router := apihttp.NewRouter(logger, authHandler, postHandler, ratingHandler, feedHandler, jwtSvc)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
