package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/SAP-F-2025/result-review-service/internal/cache"
	"github.com/SAP-F-2025/result-review-service/internal/config"
	"github.com/SAP-F-2025/result-review-service/internal/grading"
	"github.com/SAP-F-2025/result-review-service/internal/handlers"
	"github.com/SAP-F-2025/result-review-service/internal/repositories"
	"github.com/SAP-F-2025/result-review-service/internal/repositories/memory"
	"github.com/SAP-F-2025/result-review-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/result-review-service/internal/services"
	"github.com/SAP-F-2025/result-review-service/internal/utils"
	"github.com/SAP-F-2025/result-review-service/internal/validator"
	"github.com/SAP-F-2025/result-review-service/pkg"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "result-review-service: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := utils.NewLogger(cfg.Environment)
	slogger := utils.ToSlogLogger(logger)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	healthChecks := make(map[string]handlers.HealthCheck)

	// 1. Store
	var repo repositories.Repository
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("Using in-memory store, data is lost on restart")
		repo = memory.NewRepository()
	default:
		db, err := pkg.InitDatabase(cfg)
		if err != nil {
			return err
		}
		if err := pkg.Migrate(db); err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access database pool: %w", err)
		}
		defer sqlDB.Close()
		healthChecks["database"] = sqlDB.PingContext
		repo = postgres.NewRepository(db)
	}

	// 2. Student results cache
	cacheService := cache.NewNoopCache()
	if cfg.CacheEnabled {
		client, err := pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, student results are not cached", "error", err)
		} else {
			defer client.Close()
			healthChecks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
			cacheService = cache.NewRedisCache(client, logger)
		}
	}

	// 3. Events
	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		return fmt.Errorf("failed to create event publisher: %w", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close event publisher", "error", err)
		}
	}()

	// 4. Auth
	authenticator, err := cfg.Auth.CreateAuthenticator(slogger)
	if err != nil {
		return fmt.Errorf("failed to create authenticator: %w", err)
	}

	// 5. Services
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	v := validator.New()
	serviceManager := services.NewServiceManager(services.Dependencies{
		Repo:           repo,
		Cache:          cacheService,
		EventPublisher: publisher,
		Engine: grading.NewClient(grading.Config{
			BaseURL:    cfg.GradingEngineURL,
			Timeout:    cfg.GradingEngineTimeout,
			MaxRetries: 2,
			Logger:     slogger,
		}),
		Validator:  v,
		Registerer: registry,
		Logger:     slogger,
		Config: services.ServiceConfig{
			BulkConcurrency:      cfg.BulkConcurrency,
			RecentActivityWindow: cfg.RecentActivityWindow,
			StudentCacheTTL:      cfg.StudentCacheTTL,
		},
		Grading: services.GradingJobConfig{
			Workers:        cfg.GradingWorkers,
			QueueSize:      cfg.GradingQueueSize,
			EngineTimeout:  cfg.GradingEngineTimeout,
			MaxUploadBytes: cfg.MaxUploadBytes,
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serviceManager.GradingJobs().Start(ctx); err != nil {
		return err
	}

	// 6. HTTP
	handlerManager := handlers.NewHandlerManager(serviceManager, v, logger, handlers.RouterConfig{
		Authenticator:  authenticator,
		Registerer:     registry,
		Gatherer:       registry,
		MaxUploadBytes: cfg.MaxUploadBytes,
		HealthChecks:   healthChecks,
	})
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handlerManager.NewRouter(),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Result review service listening", "port", cfg.Port, "store", cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down result review service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	if err := serviceManager.GradingJobs().Shutdown(shutdownCtx); err != nil {
		logger.Error("Grading workers did not drain in time", "error", err)
	}

	logger.Info("Result review service stopped")
	return nil
}
