// Package main is the entry point for the productory controller.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"productory/internal/config"
	"productory/internal/controller"
	"productory/internal/controller/handlers"
	"productory/internal/jobqueue"
	"productory/internal/logger"
	"productory/internal/objectstore"
	"productory/internal/observability"
	"productory/internal/storagepath"
	"productory/internal/store"
	"productory/internal/store/memory"
	"productory/internal/store/postgres"
	"productory/internal/worker"
	"productory/internal/worker/provider"
)

// backend is everything the controller and an embedded worker need from persistence.
type backend interface {
	store.UserStore
	store.JobStore
	store.WorkerQueue
}

func main() {
	// Parse flags
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	embeddedWorker := flag.Bool("worker", false, "Run a worker agent in-process (required for the memory backend)")
	configPath := flag.String("config", "", "Path to config file (e.g. productory.yaml)")
	flag.Parse()

	// Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg := logger.New(cfg.LogLevel)
	if err := run(cfg, logg, *migrateFlag, *embeddedWorker); err != nil {
		logg.Error("controller exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *slog.Logger, migrate, embeddedWorker bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Persistence
	var (
		st     backend
		pinger handlers.Pinger
	)
	switch cfg.StoreBackend {
	case config.BackendMemory:
		logg.Warn("using in-memory store; data is lost on restart")
		st = memory.New()
	default:
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to DB: %w", err)
		}
		defer pg.Close()

		if migrate {
			logg.Info("running database migrations")
			if err := postgres.Migrate(pg.DB(), logg); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
		}
		st, pinger = pg, pg
	}

	paths, err := storagepath.New(cfg.Storage(), logg)
	if err != nil {
		return fmt.Errorf("invalid storage configuration: %s: %w", storagepath.UserFriendlyErrorMessage(err), err)
	}

	objects, err := openObjectStore(ctx, cfg, logg)
	if err != nil {
		return err
	}

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, cfg.Tracer("productory-controller"))
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

	// Queue depth is sampled only when scraped.
	if _, err := observability.RegisterQueueDepth(func(ctx context.Context) (map[string]int64, error) {
		counts, err := st.CountByStatus(ctx)
		if err != nil {
			logg.Warn("failed to count jobs", "error", err)
			return nil, nil // Don't crash metrics scrape on DB error
		}
		out := make(map[string]int64, len(counts))
		for status, n := range counts {
			out[string(status)] = n
		}
		return out, nil
	}); err != nil {
		logg.Warn("failed to register queue depth metric", "error", err)
	}

	h := handlers.New(handlers.Dependencies{
		Jobs:    jobqueue.New(st, logg),
		Users:   st,
		Objects: objects,
		Paths:   paths,
		Pinger:  pinger,
		Logger:  logg,
	}, handlers.HandlerConfig{
		UploadMaxBytes:   cfg.UploadMaxBytes,
		PresignExpiry:    cfg.PresignExpiry,
		DefaultRateLimit: cfg.DefaultRateLimit,
		DefaultRateBurst: cfg.DefaultRateBurst,
	})

	var agent *worker.Agent
	if embeddedWorker {
		agent = worker.New(
			jobqueue.NewService(st, st, logg),
			provider.NewClient(cfg.ProviderURL, cfg.ProviderAPIKey, cfg.ProviderTimeout),
			objects,
			paths,
			agentConfig(cfg),
			logg,
		)
		go agent.Run(ctx)
		logg.Info("embedded worker started", "concurrency", cfg.WorkerConcurrency)
	} else if cfg.StoreBackend == config.BackendMemory {
		logg.Warn("memory backend without --worker: jobs will stay pending")
	}

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	if cfg.AdminToken == "" {
		logg.Warn("ADMIN_TOKEN is not set; POST /users is unauthenticated")
	}
	srv := controller.New(controller.Config{
		Addr:       addr,
		AdminToken: cfg.AdminToken,
		Metrics:    metricsHandler,
		Logger:     logg,
	}, h, st)

	logg.Info("productory controller starting", "addr", addr, "store", cfg.StoreBackend)
	err = srv.Run(ctx)

	// Run also returns on listen errors; stop the embedded worker either way.
	cancel()
	if agent != nil {
		<-agent.Done()
	}
	if err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	logg.Info("server exited properly")
	return nil
}

// openObjectStore connects to MinIO, or falls back to process memory when no endpoint is set.
func openObjectStore(ctx context.Context, cfg *config.Config, logg *slog.Logger) (objectstore.Store, error) {
	if cfg.MinIOEndpoint == "" {
		logg.Warn("MINIO_ENDPOINT is not set; uploads are kept in memory")
		return objectstore.NewMemory(cfg.StorageBaseURL), nil
	}

	m, err := objectstore.NewMinIO(cfg.ObjectStore(), logg)
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := m.EnsureBucket(ensureCtx, cfg.StorageBucket); err != nil {
		return nil, fmt.Errorf("failed to prepare bucket %s: %w", cfg.StorageBucket, err)
	}
	return m, nil
}

func agentConfig(cfg *config.Config) worker.AgentConfig {
	return worker.AgentConfig{
		ID:            cfg.WorkerID,
		Concurrency:   cfg.WorkerConcurrency,
		PollInterval:  cfg.WorkerPollInterval,
		MaxBackoff:    cfg.WorkerMaxBackoff,
		JobTimeout:    cfg.WorkerJobTimeout,
		RetryBackoff:  cfg.WorkerRetryBackoff,
		SweepInterval: cfg.WorkerSweepInterval,
		StaleAfter:    cfg.WorkerStaleAfter,
		URLExpiry:     cfg.PresignExpiry,
	}
}
