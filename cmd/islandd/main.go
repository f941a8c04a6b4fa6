package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mroshb/islands/internal/cache"
	"github.com/mroshb/islands/internal/config"
	"github.com/mroshb/islands/internal/database"
	"github.com/mroshb/islands/internal/dispatch"
	"github.com/mroshb/islands/internal/island"
	"github.com/mroshb/islands/internal/middleware"
	"github.com/mroshb/islands/internal/persistence"
	"github.com/mroshb/islands/internal/services"
	"github.com/mroshb/islands/internal/world"
	"github.com/mroshb/islands/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	logger.InitWithLevel(os.Getenv("LOG_LEVEL"), os.Getenv("APP_ENV") == "development")
	defer logger.Sync()

	logger.Info("Starting island service...")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", err)
	}

	if cfg.AppEnv == "production" {
		if err := cfg.ValidateProductionSecurity(); err != nil {
			logger.Fatal("Production security validation failed", err)
		}
		logger.Info("Production security validation passed")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", err)
	}
	if db != nil {
		if err := database.AutoMigrate(db); err != nil {
			logger.Fatal("Failed to run migrations", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	pool := dispatch.NewPool(cfg.WorkerPoolSize, 0)
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerPlayer, cfg.RateLimitWindow())

	svc := services.NewIslandService(
		cache.New(),
		persistence.NewStore(db),
		world.NewGridManager(cfg.IslandWorld, cfg.IslandSpacing, float64(cfg.SpawnY)),
		services.Options{
			Rules: island.Rules{
				StarterSize:    cfg.StarterSize,
				DeleteCooldown: cfg.DeleteCooldown(),
			},
			InviteTTL:    cfg.InviteTTL(),
			InviteSecret: cfg.JWTSecret,
			Limiter:      limiter,
			Pool:         pool,
		},
	)
	svc.RegisterMetrics(registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.LoadAll(ctx); err != nil {
		logger.Fatal("Failed to warm island cache", err)
	}
	logger.Info("Island cache ready", "stats", svc.CacheStats())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server stopped", "error", err)
		}
	}()

	go logCacheStats(ctx, svc, cfg.CacheStatsInterval())

	logger.Info("Island service started", "env", cfg.AppEnv, "metrics_addr", cfg.MetricsAddr, "online", db != nil)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Metrics server shutdown failed", "error", err)
	}

	pool.Stop()
	limiter.Stop()

	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	logger.Info("Island service stopped", "stats", svc.CacheStats())
}

func logCacheStats(ctx context.Context, svc *services.IslandService, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Info("Island cache stats", "stats", svc.CacheStats())
		}
	}
}
