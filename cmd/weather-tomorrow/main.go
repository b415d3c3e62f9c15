package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/liondevhq/weather-tomorrow/internal/api/http"
	"github.com/liondevhq/weather-tomorrow/internal/config"
	"github.com/liondevhq/weather-tomorrow/internal/logger"
	"github.com/liondevhq/weather-tomorrow/internal/metrics"
	"github.com/liondevhq/weather-tomorrow/internal/scheduler"
	"github.com/liondevhq/weather-tomorrow/internal/store"
	"github.com/liondevhq/weather-tomorrow/internal/weather"
	"github.com/liondevhq/weather-tomorrow/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	// Shared HTTP client for outbound forecast calls.
	httpClient := providers.NewHTTPClient(providers.TimeoutConfig{
		Connect: cfg.HTTPConnectTimeout,
		Read:    cfg.HTTPReadTimeout,
	})

	// Fetcher with resilience (optional retries + circuit breaker), then rate limiting.
	var fetcher weather.RawSeriesFetcher = providers.NewOpenWeatherFetcher(httpClient, providers.OpenWeatherConfig{
		APIKey:  cfg.OpenWeatherAPIKey,
		BaseURL: cfg.OpenWeatherBaseURL,
		Backoff: providers.BackoffConfig{
			MaxRetries:      cfg.FetchMaxRetries,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
	})
	if cfg.RateLimitRPS > 0 {
		fetcher = providers.NewRateLimitedFetcher(fetcher, cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	recorder := metrics.NewPrometheusRecorder()
	orch := weather.NewOrchestrator(fetcher, providers.OpenWeatherParser{}, weather.OrchestratorConfig{
		Workers:      cfg.FetchWorkers,
		FetchTimeout: cfg.FetchTimeout,
		Recorder:     recorder,
	})

	// Tracked cities and settings survive restarts; run history is in memory.
	db, err := store.NewSQLite(cfg.DBPath, cfg.Units)
	if err != nil {
		logger.Fatalf("failed to open city store: %v", err)
	}
	defer db.Close()
	runs := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	service := weather.NewService(db, db, runs, orch)
	if err := service.SeedCities(context.Background(), cfg.Locations); err != nil {
		logger.Fatalf("failed to seed cities: %v", err)
	}

	// Scheduler that periodically refreshes every tracked city.
	sched := scheduler.New(cfg.FetchInterval, cfg.RefreshTimeout, service)
	if err := sched.Start(); err != nil {
		logger.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-tomorrow",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Refresh requests wait for a whole run.
		WriteTimeout: cfg.RefreshTimeout + 10*time.Second,
		ErrorHandler: httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-tomorrow",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(recorder.Handler()))

	// API routes.
	httpapi.RegisterRoutes(app, service, cfg.RefreshTimeout)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Errorf("fiber server stopped: %v", err)
		}
	}()
	logger.Infof("listening on :%s", cfg.Port)

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Errorf("error during shutdown: %v", err)
	}
}
