package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"footwear-wholesale/internal/auth"
	"footwear-wholesale/internal/cache"
	"footwear-wholesale/internal/config"
	"footwear-wholesale/internal/database"
	"footwear-wholesale/internal/handlers"
	"footwear-wholesale/internal/metrics"
	"footwear-wholesale/internal/middleware"
	"footwear-wholesale/internal/repository"
	"footwear-wholesale/internal/routes"
	"footwear-wholesale/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("starting wholesale API", slog.String("port", cfg.Port))

	ctx := context.Background()
	client, err := database.Connect(ctx, cfg.MongoURI)
	if err != nil {
		logger.Error("failed to connect to MongoDB", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.MongoDB)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		logger.Error("failed to ensure indexes", slog.String("error", err.Error()))
		os.Exit(1)
	}

	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)

	tokens := auth.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.JWTTTLMinutes)*time.Minute)
	authService := service.NewAuthService(userRepo, tokens, logger)
	orderService := service.NewOrderService(productRepo, orderRepo, userRepo,
		cfg.TaxRateBasisPoints, cfg.ShippingFlatCents, cfg.DeliveryLeadDays, logger)

	responseCache := cache.New(time.Duration(cfg.CacheTTLSeconds)*time.Second, cfg.CacheMaxEntries)
	defer responseCache.Stop()

	limiter := middleware.NewLimiter(cfg.RateLimitPerMinute, time.Minute)
	defer limiter.Stop()

	router := gin.New()
	router.Use(gin.Recovery(), metrics.HTTPMiddleware())
	routes.RegisterRoutes(router, routes.Deps{
		Products:   handlers.NewProductHandler(productRepo, responseCache, logger),
		Orders:     handlers.NewOrderHandler(orderService, responseCache, logger),
		Users:      handlers.NewUserHandler(authService, logger),
		Categories: handlers.NewCategoryHandler(categoryRepo, responseCache, logger),
		Tokens:     tokens,
		Limiter:    limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()
	logger.Info("server running", slog.String("addr", srv.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", slog.String("error", err.Error()))
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}
