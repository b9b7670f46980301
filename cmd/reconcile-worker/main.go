package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/khainghsuthwe/ReserveMyTable/internal/di"
	"github.com/khainghsuthwe/ReserveMyTable/internal/metrics"
	"github.com/khainghsuthwe/ReserveMyTable/internal/worker"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/config"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/logger"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/telemetry"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(di.LoggerConfig(cfg, "reconcile-worker")); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting reconcile worker...")

	// a standalone worker only sees shared backends
	if cfg.Storage.StoreBackend != config.BackendRedis || cfg.Storage.LedgerBackend != config.BackendPostgres {
		appLog.Fatal("Reconcile worker requires STORE_BACKEND=redis and LEDGER_BACKEND=postgres",
			zap.String("store", cfg.Storage.StoreBackend),
			zap.String("ledger", cfg.Storage.LedgerBackend),
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tcfg := di.TelemetryConfig(cfg)
	tcfg.ServiceName = "reconcile-worker"
	if _, err := telemetry.Init(ctx, tcfg); err != nil {
		appLog.Warn("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetry.Shutdown(context.Background())
	if err := metrics.Init(); err != nil {
		appLog.Warn("Failed to register metrics", zap.Error(err))
	}

	container, err := di.Build(ctx, cfg, appLog)
	if err != nil {
		appLog.Fatal("Failed to build container", zap.Error(err))
	}
	defer container.Close()

	w := worker.NewReconcileWorker(&worker.ReconcileWorkerConfig{
		Interval:    cfg.Reconcile.Interval,
		Concurrency: cfg.Reconcile.Concurrency,
		Seeder:      container.AvailabilityService,
		Schedule:    container.Fixture.Slots,
	}, container.Store, container.AvailabilityService, appLog)

	appLog.Info("Reconcile worker running",
		zap.Duration("interval", cfg.Reconcile.Interval),
		zap.Int("concurrency", cfg.Reconcile.Concurrency),
	)
	w.Start(ctx)

	appLog.Info("Reconcile worker exited gracefully")
}
