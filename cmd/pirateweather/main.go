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

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/pirateweather/internal/api/http"
	"github.com/i474232898/pirateweather/internal/config"
	"github.com/i474232898/pirateweather/internal/entry"
	"github.com/i474232898/pirateweather/internal/host"
	"github.com/i474232898/pirateweather/internal/integration"
	"github.com/i474232898/pirateweather/internal/platform"
	"github.com/i474232898/pirateweather/internal/registry"
	"github.com/i474232898/pirateweather/internal/scheduler"
	"github.com/i474232898/pirateweather/internal/store"
	"github.com/i474232898/pirateweather/internal/weather"
	"github.com/i474232898/pirateweather/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := cfg.NewLogger()

	homeLat, homeLon, err := cfg.HomeLocation()
	if err != nil {
		logger.Error("failed to resolve home location", "err", err)
		os.Exit(1)
	}

	// Shared HTTP client for outbound Pirate Weather calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	provider := providers.NewPirateWeatherProvider(httpClient, cfg.PirateWeatherBaseURL)

	// In-memory snapshot history with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	sched := scheduler.New(logger, cfg.RefreshTimeout)
	sched.Start()
	defer sched.Stop()

	reg := registry.New()
	h := host.New(homeLat, homeLon, logger)

	newCoordinator := func(apiKey string, loc weather.Location, interval time.Duration) *weather.Coordinator {
		return weather.NewCoordinator(provider, memStore, logger, apiKey, loc, interval)
	}
	h.SetHandler(integration.New(h, reg, newCoordinator, sched, logger))
	h.RegisterPlatform(entry.PlatformSensor, platform.NewSensorPlatform(reg, logger))
	h.RegisterPlatform(entry.PlatformWeather, platform.NewWeatherPlatform(reg))

	if err := loadEntries(h, cfg.EntriesFile); err != nil {
		logger.Error("failed to load entries", "file", cfg.EntriesFile, "err", err)
		// os.Exit skips deferred calls.
		sched.Stop()
		os.Exit(1)
	}
	logger.Info("entries loaded", "entries", len(h.Entries()), "locations", reg.Keys())

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "pirateweather",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Entry setup blocks on a forecast refresh.
		WriteTimeout: cfg.HTTPTimeout + 10*time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "pirateweather",
		})
	})

	httpapi.RegisterRoutes(app, h, memStore)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Warn("fiber server stopped", "err", err)
		}
	}()
	logger.Info("listening", "port", cfg.Port)

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", "err", err)
	}
	for _, status := range h.Entries() {
		if status.State != host.StateLoaded {
			continue
		}
		if _, err := h.Unload(shutdownCtx, status.Entry.ID); err != nil {
			logger.Warn("failed to unload entry", "entry", status.Entry.ID, "err", err)
		}
	}
}

// loadEntries adds every entry declared in path. A missing file is not an
// error; entries can still be created over HTTP.
func loadEntries(h *host.Host, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	entries, err := entry.LoadFile(path)
	if err != nil {
		return err
	}
	for _, e := range entries {
		// Setup failures are recorded on the entry and retried on reload.
		if err := h.Add(context.Background(), e); err != nil && !errors.Is(err, host.ErrSetupFailed) {
			return err
		}
	}
	return nil
}
