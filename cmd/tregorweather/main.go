package main

import (
	"context"
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

	httpapi "github.com/pmorvan/tregorweather/internal/api/http"
	"github.com/pmorvan/tregorweather/internal/config"
	"github.com/pmorvan/tregorweather/internal/docstore"
	"github.com/pmorvan/tregorweather/internal/forecast"
	"github.com/pmorvan/tregorweather/internal/forecast/providers"
	"github.com/pmorvan/tregorweather/internal/markers"
	"github.com/pmorvan/tregorweather/internal/scheduler"
	"github.com/pmorvan/tregorweather/internal/spots"
	"github.com/pmorvan/tregorweather/internal/view"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("failed to create data directory: %v", err)
		}
	}

	// Document store backing the weather cache and the spot collection.
	docs, err := docstore.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open document store: %v", err)
	}
	defer docs.Close()

	// Shared HTTP client for outbound forecast calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	provider := providers.NewOpenMeteoProvider(httpClient)

	forecasts := forecast.NewStore(provider, docs, forecast.Options{
		PerLocationTimeout: cfg.LocationTimeout,
		BatchTimeout:       cfg.BatchTimeout,
		CacheMaxAge:        cfg.CacheMaxAge,
		Offline:            func() bool { return cfg.Offline },
	})

	spotStore, err := spots.NewStore(docs)
	if err != nil {
		log.Fatalf("failed to load spot collection: %v", err)
	}

	engine := markers.NewEngine(markers.Profile{Mobile: cfg.Mobile})

	// The coordinator and all handlers get their collaborators injected
	// explicitly; nothing hangs off package globals.
	coordinator := view.NewCoordinator(forecasts, engine, nil)
	defer coordinator.Close()

	// Scheduler keeping the bundle fresh.
	sched := scheduler.New(cfg.FetchInterval, cfg.BatchTimeout+5*time.Second, func(ctx context.Context) error {
		if err := forecasts.Refresh(ctx); err != nil {
			return err
		}
		coordinator.DataArrived()
		return nil
	})
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "tregorweather",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
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

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "tregorweather",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Forecasts:   forecasts,
		Coordinator: coordinator,
		Engine:      engine,
		Spots:       spotStore,
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
