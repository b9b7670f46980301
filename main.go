package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/khainghsuthwe/ReserveMyTable/internal/auth"
	"github.com/khainghsuthwe/ReserveMyTable/internal/di"
	"github.com/khainghsuthwe/ReserveMyTable/internal/handler"
	"github.com/khainghsuthwe/ReserveMyTable/internal/metrics"
	"github.com/khainghsuthwe/ReserveMyTable/internal/worker"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/config"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/logger"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/middleware"
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
	if err := logger.Init(di.LoggerConfig(cfg, cfg.App.Name)); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting reservation service...", zap.String("version", cfg.App.Version))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing and metrics
	if _, err := telemetry.Init(ctx, di.TelemetryConfig(cfg)); err != nil {
		appLog.Warn("Failed to initialize telemetry", zap.Error(err))
	}
	meter := telemetry.InitMeterProvider()
	if err := metrics.Init(); err != nil {
		appLog.Warn("Failed to register metrics", zap.Error(err))
	}

	container, err := di.Build(ctx, cfg, appLog)
	if err != nil {
		appLog.Fatal("Failed to build container", zap.Error(err))
	}
	defer container.Close()

	// Seed availability from the catalog schedule; existing slots keep their counters
	created, err := container.AvailabilityService.Seed(ctx, container.Fixture.Slots(time.Now()))
	if err != nil {
		appLog.Fatal("Failed to seed availability", zap.Error(err))
	}
	appLog.Info("Availability seeded", zap.Int("created_slots", created))

	// Roll the seeded window forward and reconcile counters in-process;
	// cmd/reconcile-worker runs the same loop standalone
	if cfg.Reconcile.Interval > 0 {
		w := worker.NewReconcileWorker(&worker.ReconcileWorkerConfig{
			Interval:    cfg.Reconcile.Interval,
			Concurrency: cfg.Reconcile.Concurrency,
			Seeder:      container.AvailabilityService,
			Schedule:    container.Fixture.Slots,
		}, container.Store, container.AvailabilityService, appLog)
		go w.Start(ctx)
	}

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(appLog))
	router.Use(telemetry.TracingMiddleware(cfg.OTel.ServiceName))
	if len(cfg.CORS.AllowedOrigins) > 0 {
		router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	}

	// Health check endpoints
	router.GET("/health", container.Handlers.Health.Health)
	router.GET("/ready", container.Handlers.Health.Ready)
	router.GET("/metrics", handler.NewMetricsHandler(meter, container.DB).Metrics)

	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)

	v1 := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RPS,
			Burst:             cfg.RateLimit.Burst,
		})
		go cleanupLimiter(ctx, limiter)
		v1.Use(limiter.Middleware())
	}
	v1.Use(auth.Authenticate(tokens))

	// Replay retried reservation writes when Redis is available
	var writeMiddleware []gin.HandlerFunc
	if container.Redis != nil {
		idempotencyCfg := middleware.DefaultIdempotencyConfig(container.Redis)
		idempotencyCfg.Subject = func(c *gin.Context) string {
			if p := auth.Principal(c); p != nil {
				return p.ID
			}
			return ""
		}
		writeMiddleware = append(writeMiddleware, middleware.Idempotency(idempotencyCfg))
	}
	handler.RegisterRoutes(v1, container.Handlers, writeMiddleware...)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start server in goroutine
	go func() {
		appLog.Info("Reservation service listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	<-ctx.Done()
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := meter.Shutdown(shutdownCtx); err != nil {
		appLog.Warn("Failed to shut down meter provider", zap.Error(err))
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		appLog.Warn("Failed to shut down tracer provider", zap.Error(err))
	}

	appLog.Info("Server exited gracefully")
}

// cleanupLimiter drops idle per-client limiters
func cleanupLimiter(ctx context.Context, limiter *middleware.RateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Cleanup(); n > 0 {
				logger.Get().Debug("Rate limiter entries evicted", zap.Int("count", n))
			}
		}
	}
}
