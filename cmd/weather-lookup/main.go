package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	_ "modernc.org/sqlite"

	httpapi "github.com/weatherdash/weather-lookup/internal/api/http"
	"github.com/weatherdash/weather-lookup/internal/cities"
	"github.com/weatherdash/weather-lookup/internal/config"
	"github.com/weatherdash/weather-lookup/internal/scheduler"
	"github.com/weatherdash/weather-lookup/internal/store"
	"github.com/weatherdash/weather-lookup/internal/weather"
)

func main() {
	// Load configuration. The weather API key is validated here so a
	// misconfigured deployment fails at startup, not on first request.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if dir := filepath.Dir(cfg.CacheDBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("create cache directory: %v", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.CacheDBPath)
	if err != nil {
		log.Fatalf("open cache database: %v", err)
	}
	defer db.Close()
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	cache := store.New(db)
	if err := cache.Migrate(); err != nil {
		log.Fatalf("migrate cache: %v", err)
	}

	// Shared HTTP client for outbound calls. Timeouts are the client's;
	// no per-call retry policy on top.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	weatherClient := weather.NewClient(httpClient, cfg.WeatherAPIKey)
	weatherService := weather.NewService(weatherClient)
	enricher := weather.NewSummaryFetcher(weatherService, cfg.EnrichBatchSize)
	directory := cities.NewOpenDataSoftDirectory(httpClient)

	// Periodic cache pruning.
	sched := scheduler.New(cache, cfg.CachePruneInterval, cfg.CacheMaxAge)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-lookup",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-lookup",
		})
	})

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Weather:   weatherService,
		Directory: directory,
		Enricher:  enricher,
		Cache:     cache,
		PageSize:  cfg.CitiesPageSize,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
