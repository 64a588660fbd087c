package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vulnradar/vulnradar/internal/api"
	"github.com/vulnradar/vulnradar/internal/config"
	"github.com/vulnradar/vulnradar/internal/feed"
	"github.com/vulnradar/vulnradar/internal/identity"
	"github.com/vulnradar/vulnradar/internal/observability"
	"github.com/vulnradar/vulnradar/internal/rating"
	"github.com/vulnradar/vulnradar/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel)
	logger.Info("starting vulnradar",
		"sqlite_path", cfg.Store.SQLitePath,
		"log_level", cfg.Observability.LogLevel)

	_ = observability.GetMetrics()

	healthChecker := observability.NewHealthChecker(logger)
	healthChecker.RegisterComponent("config")
	healthChecker.RegisterComponent("database")
	healthChecker.RegisterComponent("identity")
	healthChecker.RegisterComponent("feed")
	healthChecker.UpdateComponentHealth("config", observability.StatusHealthy, "")

	obsServer := observability.NewServer(
		cfg.Observability.MetricsPort,
		cfg.Observability.HealthCheckPort,
		logger,
		healthChecker,
	)
	go func() {
		if err := obsServer.Start(ctx); err != nil {
			logger.Error("observability server error",
				"error", err.Error())
		}
	}()
	logger.Debug("observability server started",
		"metrics_port", cfg.Observability.MetricsPort,
		"health_port", cfg.Observability.HealthCheckPort)

	st, err := store.NewStore(cfg.Store.SQLitePath)
	if err != nil {
		healthChecker.UpdateComponentHealth("database", observability.StatusUnhealthy, err.Error())
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()
	healthChecker.UpdateComponentHealth("database", observability.StatusHealthy, "")
	observability.RegisterStoreCollector(st, logger)
	logger.Debug("store initialized")

	logger.Debug("seeding vendor catalog",
		"path", cfg.VendorSeedPath)
	seed, err := config.ParseVendorSeed(cfg.VendorSeedPath)
	if err != nil {
		return fmt.Errorf("failed to parse vendor seed: %w", err)
	}
	if err := st.SeedVendors(ctx, seed.ToVendors()); err != nil {
		return fmt.Errorf("failed to seed vendors: %w", err)
	}
	if len(seed.Vendors) == 0 {
		logger.Warn("vendor seed file missing or empty, catalog not updated",
			"path", cfg.VendorSeedPath)
	} else {
		logger.Info("vendor catalog seeded",
			"vendors", len(seed.Vendors))
	}

	var verifier identity.Verifier = identity.NewGoogleVerifier(cfg.Identity)
	if cfg.Identity.AllowTestTokens {
		logger.Warn("test tokens enabled, do not use in production")
		verifier = identity.NewTestTokenVerifier(verifier)
	}
	healthChecker.UpdateComponentHealth("identity", observability.StatusHealthy, "")

	feedClient := feed.NewClient(cfg.Feed)
	downloader := feed.NewDownloader(feedClient, cfg.Feed.RequestDelay, logger)
	healthChecker.UpdateComponentHealth("feed", observability.StatusHealthy, "")
	logger.Debug("feed downloader initialized",
		"base_url", cfg.Feed.BaseURL,
		"request_delay", cfg.Feed.RequestDelay)

	rater, err := rating.NewEngine(logger, cfg.Rating.ThresholdExpression)
	if err != nil {
		return fmt.Errorf("failed to initialize rating engine: %w", err)
	}
	logger.Debug("rating engine initialized",
		"threshold", cfg.Rating.ThresholdExpression)

	apiServer := api.NewAPIServer(cfg, st, verifier, downloader, rater, logger)

	go healthChecker.StartPeriodicChecks(ctx, 30*time.Second, map[string]observability.HealthCheckFunc{
		"database": st.Ping,
	})

	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("API server error: %w", err)
	}

	logger.Info("vulnradar stopped")
	return nil
}
