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

	"github.com/gin-gonic/gin"

	"github.com/kurihiro0119/worktime-metrics/internal/aggregator"
	"github.com/kurihiro0119/worktime-metrics/internal/api"
	"github.com/kurihiro0119/worktime-metrics/internal/config"
	"github.com/kurihiro0119/worktime-metrics/internal/logging"
	"github.com/kurihiro0119/worktime-metrics/internal/payroll"
	"github.com/kurihiro0119/worktime-metrics/internal/storage"
	"github.com/kurihiro0119/worktime-metrics/internal/storage/postgres"
	"github.com/kurihiro0119/worktime-metrics/internal/storage/sqlite"
	"github.com/kurihiro0119/worktime-metrics/internal/telemetry"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, os.Stdout, true)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("fatal error", "error", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	// Initialize storage
	var store storage.Storage
	switch cfg.StorageType {
	case "postgres":
		store, err = postgres.NewPostgresStorage(cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("initialize PostgreSQL storage: %w", err)
		}
	default:
		store, err = sqlite.NewSQLiteStorageWithDriver(cfg.SQLiteDriver, cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("initialize SQLite storage: %w", err)
		}
	}
	defer store.Close()

	agg := aggregator.NewAggregator(store,
		aggregator.WithLocation(loc),
		aggregator.WithLogger(logger),
	)
	calc := payroll.NewCalculator(store, agg, payroll.WithCalculatorLogger(logger))
	handler := api.NewHandler(store, agg, calc, logger)

	gin.SetMode(gin.ReleaseMode)
	router := api.SetupRoutes(handler, logger, cfg.APIToken)

	addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting API server",
			"addr", addr,
			"version", version,
			"storage", cfg.StorageType,
			"timezone", loc.String(),
			"auth", cfg.APIToken != "",
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
