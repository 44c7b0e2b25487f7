package main

import (
	"context"   // Server lifetime
	"errors"    // Shutdown error matching
	"net/http"  // HTTP server
	"os"        // Signals
	"os/signal" // Graceful shutdown
	"syscall"   // SIGTERM
	"time"      // Timeouts

	"ajosave/internal/api"        // HTTP handlers and router
	"ajosave/internal/config"     // Configuration
	"ajosave/internal/db"         // Database connection
	"ajosave/internal/middleware" // Rate limiter
	"ajosave/internal/realtime"   // Change notifications
	"ajosave/internal/rpc"        // Settlement procedures
	"ajosave/internal/service"    // Business services
	"ajosave/internal/store"      // Persistence
	"ajosave/internal/utils"      // Redis cache

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration
	if err := cfg.Validate(); err != nil {
		logrus.Fatal(err)
	}

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		gin.SetMode(gin.ReleaseMode) // Set Mode to Release if in production
	}

	gdb, err := db.Open(cfg.DSN(), !cfg.IsProd)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo := store.New(gdb)
	cache := utils.NewRedisCache(redisClient)
	bus := realtime.NewRedisBus(redisClient)

	// Events from every instance arrive through Redis; the hub drops the
	// affected cache entries and fans out to connected streams
	hub := realtime.NewHub(0, func(ev realtime.ChangeEvent) {
		service.Invalidate(ctx, cache, ev)
	})
	go hub.Run(ctx)
	go func() {
		if err := bus.Forward(ctx, hub); err != nil {
			logrus.WithError(err).Error("Change event subscription ended")
		}
	}()

	opts := service.Options{Repo: repo, Cache: cache, Events: bus, CacheTTL: cfg.CacheTTL}
	router, err := api.NewRouter(api.Deps{
		Wallet:         service.NewWallet(opts),
		Plans:          service.NewPlans(opts),
		Loans:          service.NewLoans(opts),
		Accounts:       service.NewAccounts(opts, cfg.JWTSecret),
		Admin:          service.NewAdmin(opts, rpc.NewCaller(gdb)),
		Users:          repo,
		Hub:            hub,
		AuthLimiter:    middleware.NewRateLimiter(cfg.AuthRatePerSec, cfg.AuthRateBurst),
		JWTSecret:      cfg.JWTSecret,
		TrustedProxies: []string{"127.0.0.1"},
	})
	if err != nil {
		logrus.Fatalf("failed to build router: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("Server shutdown")
		}
	}()

	logrus.Info("Server running on " + cfg.AppPort) // Log server start
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.Fatalf("server failed: %v", err)
	}
	<-hub.Done()
}
