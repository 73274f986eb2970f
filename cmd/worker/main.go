// Package main is the entry point for the productory worker.
// The worker claims queued jobs, calls the speech-to-text provider and records outcomes.
// It owns concurrency, timeouts and retries.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"productory/internal/config"
	"productory/internal/jobqueue"
	"productory/internal/logger"
	"productory/internal/objectstore"
	"productory/internal/observability"
	"productory/internal/storagepath"
	"productory/internal/store/postgres"
	"productory/internal/worker"
	"productory/internal/worker/provider"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file (e.g. productory.yaml)")
	metricsAddr := flag.String("metrics-addr", ":6162", "Address for the worker metrics endpoint")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg := logger.New(cfg.LogLevel)
	if err := run(cfg, logg, *metricsAddr); err != nil {
		logg.Error("worker exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *slog.Logger, metricsAddr string) error {
	if cfg.StoreBackend != config.BackendPostgres {
		return fmt.Errorf("the standalone worker needs the postgres backend; run the controller with --worker for %q", cfg.StoreBackend)
	}
	if cfg.MinIOEndpoint == "" {
		return fmt.Errorf("MINIO_ENDPOINT is required for the standalone worker")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to DB: %w", err)
	}
	defer pg.Close()

	paths, err := storagepath.New(cfg.Storage(), logg)
	if err != nil {
		return fmt.Errorf("invalid storage configuration: %s: %w", storagepath.UserFriendlyErrorMessage(err), err)
	}

	objects, err := objectstore.NewMinIO(cfg.ObjectStore(), logg)
	if err != nil {
		return fmt.Errorf("failed to create object store client: %w", err)
	}

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, cfg.Tracer("productory-worker"))
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logg.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		return fmt.Errorf("failed to init metrics: %w", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			logg.Error("failed to shutdown metrics", "error", err)
		}
	}()

	agent := worker.New(
		jobqueue.NewService(pg, pg, logg),
		provider.NewClient(cfg.ProviderURL, cfg.ProviderAPIKey, cfg.ProviderTimeout),
		objects,
		paths,
		worker.AgentConfig{
			ID:            cfg.WorkerID,
			Concurrency:   cfg.WorkerConcurrency,
			PollInterval:  cfg.WorkerPollInterval,
			MaxBackoff:    cfg.WorkerMaxBackoff,
			JobTimeout:    cfg.WorkerJobTimeout,
			RetryBackoff:  cfg.WorkerRetryBackoff,
			SweepInterval: cfg.WorkerSweepInterval,
			StaleAfter:    cfg.WorkerStaleAfter,
			URLExpiry:     cfg.PresignExpiry,
		},
		logg,
	)

	logg.Info("worker started", "concurrency", cfg.WorkerConcurrency)
	go agent.Run(ctx)

	// Dedicated metrics server
	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsHandler)
	metricsSrv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logg.Info("worker metrics listening", "addr", metricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Error("metrics server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info("shutting down worker")
	cancel()

	<-agent.Done()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	return metricsSrv.Shutdown(shutdownCtx)
}
