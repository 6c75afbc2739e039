package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"admin-dash/internal/config"
	"admin-dash/internal/db"
	"admin-dash/internal/email"
	apihttp "admin-dash/internal/http"
	"admin-dash/internal/repository"
	"admin-dash/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
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

	if err := db.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	accountRepo := repository.NewPgAccountRepository(pool)
	sessionRepo := repository.NewPgSessionRepository(pool)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	throttleWindow := time.Duration(cfg.AuthThrottleWindowMinutes) * time.Minute
	throttle := service.NewLoginRateLimiter(throttleWindow, cfg.AuthThrottleMax)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			throttle = service.NewRedisLoginRateLimiter(redisClient, throttleWindow, cfg.AuthThrottleMax)
		}
		cancel()
	}

	tokenSvc := service.NewTokenService(cfg.JWTSecret, time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute)
	authSvc := service.NewAuthService(logger, accountRepo, sessionRepo, tokenSvc, emailSender, service.AuthConfig{
		LockoutThreshold: cfg.LockoutThreshold,
		LockoutWindow:    time.Duration(cfg.LockoutWindowMinutes) * time.Minute,
		ResetTokenTTL:    time.Duration(cfg.ResetTokenTTLMinutes) * time.Minute,
		VerifyTokenTTL:   time.Duration(cfg.VerifyTokenTTLHours) * time.Hour,
		FrontendURL:      cfg.FrontendURL,
	})

	authHandler := apihttp.NewAuthHandler(logger, authSvc)
	accountHandler := apihttp.NewAccountHandler(logger, authSvc)
	router := apihttp.NewRouter(logger, authHandler, accountHandler, tokenSvc, accountRepo, sessionRepo, throttle)

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
