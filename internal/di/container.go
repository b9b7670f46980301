package di

import (
	"context"
	"fmt"

	"github.com/khainghsuthwe/ReserveMyTable/internal/handler"
	"github.com/khainghsuthwe/ReserveMyTable/internal/repository"
	"github.com/khainghsuthwe/ReserveMyTable/internal/service"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/config"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/database"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/logger"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/redis"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/telemetry"
	"go.uber.org/zap"
)

// Container holds all dependencies of the reservation service
type Container struct {
	// Infrastructure, nil when the matching backend is memory
	DB    *database.PostgresDB
	Redis *redis.Client

	// Repositories
	Store        repository.AvailabilityRepository
	Reservations repository.ReservationRepository
	Reviews      repository.ReviewRepository
	Restaurants  repository.RestaurantRepository
	Fixture      *repository.Fixture

	// Publishers
	EventPublisher service.EventPublisher

	// Services
	CatalogService      service.CatalogService
	AvailabilityService service.AvailabilityService
	ReservationService  service.ReservationService
	ReviewService       service.ReviewService

	// Handlers
	Handlers *handler.Handlers
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB             *database.PostgresDB
	Redis          *redis.Client
	Store          repository.AvailabilityRepository
	Reservations   repository.ReservationRepository
	Reviews        repository.ReviewRepository
	Fixture        *repository.Fixture
	EventPublisher service.EventPublisher
	ServiceConfig  *service.AvailabilityServiceConfig
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:             cfg.DB,
		Redis:          cfg.Redis,
		Store:          cfg.Store,
		Reservations:   cfg.Reservations,
		Reviews:        cfg.Reviews,
		Fixture:        cfg.Fixture,
		Restaurants:    repository.NewFixtureRestaurantRepository(cfg.Fixture),
		EventPublisher: cfg.EventPublisher,
	}
	if c.EventPublisher == nil {
		c.EventPublisher = service.NewNoOpEventPublisher()
	}

	// Initialize services
	c.CatalogService = service.NewCatalogService(c.Restaurants)
	c.AvailabilityService = service.NewAvailabilityService(
		c.Store,
		c.Reservations,
		c.CatalogService,
		c.EventPublisher,
		cfg.ServiceConfig,
	)
	c.ReservationService = service.NewReservationService(
		c.Reservations,
		c.Store,
		c.CatalogService,
		c.EventPublisher,
	)
	c.ReviewService = service.NewReviewService(c.Reviews, c.CatalogService, c.EventPublisher)

	// Initialize handlers
	c.Handlers = &handler.Handlers{
		Health:       handler.NewHealthHandler(c.DB, c.Redis),
		Restaurant:   handler.NewRestaurantHandler(c.CatalogService, c.ReviewService),
		Availability: handler.NewAvailabilityHandler(c.AvailabilityService),
		Reservation:  handler.NewReservationHandler(c.ReservationService),
		Review:       handler.NewReviewHandler(c.ReviewService),
	}

	return c
}

// Build connects the configured backends, loads the catalog and assembles the container.
// Call Close when done.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	fx, err := repository.LoadFixture(cfg.Storage.FixturePath)
	if err != nil {
		return nil, err
	}

	cc := &ContainerConfig{Fixture: fx}
	closeOnErr := func() {
		if cc.DB != nil {
			cc.DB.Close()
		}
		if cc.Redis != nil {
			_ = cc.Redis.Close()
		}
	}

	switch cfg.Storage.StoreBackend {
	case config.BackendRedis:
		rdb, err := connectRedis(ctx, cfg)
		if err != nil {
			return nil, err
		}
		cc.Redis = rdb
		store := repository.NewRedisAvailabilityRepository(rdb)
		if err := store.LoadScripts(ctx); err != nil {
			log.Warn("Failed to pre-load Lua scripts", zap.Error(err))
		} else {
			log.Info("Lua scripts pre-loaded into Redis")
		}
		cc.Store = store
	default:
		cc.Store = repository.NewMemoryAvailabilityRepository()
	}

	switch cfg.Storage.LedgerBackend {
	case config.BackendPostgres:
		db, err := connectPostgres(ctx, cfg)
		if err != nil {
			closeOnErr()
			return nil, err
		}
		cc.DB = db
		if err := db.Migrate(ctx, repository.Schema...); err != nil {
			closeOnErr()
			return nil, fmt.Errorf("failed to migrate schema: %w", err)
		}
		cc.Reservations = repository.NewPostgresReservationRepository(db.Pool())
		cc.Reviews = repository.NewPostgresReviewRepository(db.Pool())
	default:
		cc.Reservations = repository.NewMemoryReservationRepository()
		cc.Reviews = repository.NewMemoryReviewRepository()
	}

	if cfg.Kafka.Enabled() {
		pub, err := service.NewKafkaEventPublisher(ctx, &service.EventPublisherConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.Topic,
			ServiceName: cfg.App.Name,
			ClientID:    cfg.Kafka.ClientID,
		})
		if err != nil {
			log.Warn("Kafka connection failed, using no-op publisher", zap.Error(err))
		} else {
			log.Info("Kafka event publisher connected", zap.Strings("brokers", cfg.Kafka.Brokers))
			cc.EventPublisher = pub
		}
	}

	log.Info("Backends ready",
		zap.String("store", cfg.Storage.StoreBackend),
		zap.String("ledger", cfg.Storage.LedgerBackend),
		zap.Int("restaurants", len(fx.Restaurants)),
	)
	return NewContainer(cc), nil
}

// Close releases publishers and connections
func (c *Container) Close() {
	if c.EventPublisher != nil {
		_ = c.EventPublisher.Close()
	}
	if c.DB != nil {
		c.DB.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}

func connectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rcfg := redis.DefaultConfig()
	rcfg.Host = cfg.Redis.Host
	rcfg.Port = cfg.Redis.Port
	rcfg.Password = cfg.Redis.Password
	rcfg.DB = cfg.Redis.DB
	rcfg.PoolSize = cfg.Redis.PoolSize
	rcfg.MinIdleConns = cfg.Redis.MinIdleConns
	rcfg.DialTimeout = cfg.Redis.DialTimeout
	rcfg.ReadTimeout = cfg.Redis.ReadTimeout
	rcfg.WriteTimeout = cfg.Redis.WriteTimeout

	rdb, err := redis.NewClient(ctx, rcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

func connectPostgres(ctx context.Context, cfg *config.Config) (*database.PostgresDB, error) {
	dbcfg := database.DefaultPostgresConfig()
	dbcfg.Host = cfg.Database.Host
	dbcfg.Port = cfg.Database.Port
	dbcfg.User = cfg.Database.User
	dbcfg.Password = cfg.Database.Password
	dbcfg.Database = cfg.Database.DBName
	dbcfg.SSLMode = cfg.Database.SSLMode
	dbcfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	dbcfg.MinConns = int32(cfg.Database.MaxIdleConns)
	dbcfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	dbcfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	dbcfg.EnableTracing = cfg.OTel.Enabled

	db, err := database.NewPostgres(ctx, dbcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// TelemetryConfig maps application config onto the tracer config
func TelemetryConfig(cfg *config.Config) *telemetry.Config {
	return &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}
}

// LoggerConfig maps application config onto the logger config
func LoggerConfig(cfg *config.Config, serviceName string) *logger.Config {
	level := "info"
	if cfg.App.Debug {
		level = "debug"
	}
	return &logger.Config{
		Level:       level,
		ServiceName: serviceName,
		Development: cfg.IsDevelopment(),
	}
}
