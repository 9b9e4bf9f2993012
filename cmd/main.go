package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/ticket-overlays/broadcast"
	"github.com/Dosada05/ticket-overlays/config"
	"github.com/Dosada05/ticket-overlays/db"
	"github.com/Dosada05/ticket-overlays/handlers"
	"github.com/Dosada05/ticket-overlays/rates"
	"github.com/Dosada05/ticket-overlays/repositories"
	api "github.com/Dosada05/ticket-overlays/routes"
	"github.com/Dosada05/ticket-overlays/services"
	"github.com/Dosada05/ticket-overlays/storage"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	err = db.Migrate(migrateCtx, dbConn)
	cancelMigrate()
	if err != nil {
		logger.Error("failed to apply database schema", slog.Any("error", err))
		os.Exit(1)
	}

	// Кэш курсов: Redis, если доступен, иначе память процесса.
	var rateCache rates.Cache
	rateCacheTag := "memory"
	if redisClient := rates.NewRedisClient(rates.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}); redisClient != nil {
		defer redisClient.Close()
		rateCache = rates.NewRedisCache(redisClient, logger)
		rateCacheTag = "redis"
	} else {
		logger.Warn("redis unavailable, using in-memory rate cache", slog.String("addr", cfg.RedisAddr))
		rateCache = rates.NewMemoryCache()
	}
	logger.Info("rate cache initialized", slog.String("backend", rateCacheTag))

	// Иконки в Cloudflare R2 (необязательно)
	var iconUploader storage.FileUploader
	r2Cfg := storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	}
	iconUploader, err = storage.NewCloudflareR2Uploader(context.Background(), r2Cfg)
	switch {
	case errors.Is(err, storage.ErrR2NotConfigured):
		iconUploader = nil
		logger.Info("R2 not configured, hospitality icons disabled")
	case err != nil:
		logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
		os.Exit(1)
	default:
		logger.Info("Cloudflare R2 uploader initialized")
	}

	// WebSocket Hub для уведомлений об изменениях
	wsHub := broadcast.NewHub(logger)
	go wsHub.Run()
	defer wsHub.Stop()

	// Репозитории
	ruleRepo := repositories.NewPostgresMarkupRuleRepository(dbConn)
	hospitalityRepo := repositories.NewPostgresHospitalityRepository(dbConn)
	assignmentRepo := repositories.NewPostgresHospitalityAssignmentRepository(dbConn)
	legacyRepo := repositories.NewPostgresLegacyRepository(dbConn)
	currencyRepo := repositories.NewPostgresCurrencyRepository(dbConn)
	logger.Info("repositories initialized")

	// Сервисы
	rateClient := rates.NewHTTPClient(rates.ClientConfig{
		BaseURL: cfg.ExchangeRateBaseURL,
		Timeout: cfg.ExchangeRateTimeout,
	}, logger)

	markupService := services.NewMarkupService(legacyRepo, ruleRepo, logger)
	hospitalityService := services.NewHospitalityService(assignmentRepo, legacyRepo, iconUploader, logger)
	currencyService := services.NewCurrencyService(currencyRepo, rateClient, rateCache, cfg.ExchangeRateTTL, logger)
	resolutionService := services.NewResolutionService(markupService, hospitalityService, currencyService,
		services.ResolutionConfig{
			Concurrency: cfg.ResolveConcurrency,
			MaxTickets:  cfg.MaxTicketsPerRequest,
		}, logger)
	adminService := services.NewAdminService(ruleRepo, hospitalityRepo, assignmentRepo, iconUploader, wsHub, logger)
	dashboardService := services.NewDashboardService(ruleRepo, assignmentRepo, hospitalityRepo, legacyRepo)
	logger.Info("services initialized")

	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	if cfg.RateWarmupInterval > 0 {
		go runRateWarmup(schedulerCtx, currencyService, cfg.RateWarmupInterval, logger)
	}

	// Маршруты
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Overlay:   handlers.NewOverlayHandler(resolutionService),
		Legacy:    handlers.NewLegacyHandler(markupService, hospitalityService),
		Currency:  handlers.NewCurrencyHandler(currencyService),
		Admin:     handlers.NewAdminHandler(adminService),
		WebSocket: handlers.NewWebSocketHandler(wsHub, cfg.CORSAllowedOrigins, logger),
		Health:    handlers.NewHealthHandler(dbConn, rateCacheTag),
		Dashboard: handlers.NewDashboardHandler(dashboardService),
	}, api.Options{
		JWTSecret:      cfg.JWTSecretKey,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		stopScheduler()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}

// runRateWarmup keeps USD -> display currency rates warm so listings rarely
// wait on the live rate API. Runs once at start, then every interval.
func runRateWarmup(ctx context.Context, currencies services.CurrencyService, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logger.Info("rate warm-up scheduler started", slog.Duration("interval", interval))

	if err := currencies.WarmUp(ctx); err != nil {
		logger.Error("rate warm-up: initial run failed", slog.Any("error", err))
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("rate warm-up scheduler stopped")
			return
		case <-ticker.C:
			if err := currencies.WarmUp(ctx); err != nil {
				logger.Error("rate warm-up: periodic run failed", slog.Any("error", err))
			}
		}
	}
}
