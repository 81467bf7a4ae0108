package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	credApp "github.com/felixgeelhaar/subscriptions/internal/credentials/application"
	"github.com/felixgeelhaar/subscriptions/internal/credentials/infrastructure/securestore"
	"github.com/felixgeelhaar/subscriptions/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/subscriptions/internal/shared/infrastructure/database/postgres" // Register PostgreSQL driver
	_ "github.com/felixgeelhaar/subscriptions/internal/shared/infrastructure/database/sqlite"   // Register SQLite driver
	"github.com/felixgeelhaar/subscriptions/internal/shared/infrastructure/eventbus"
	subApp "github.com/felixgeelhaar/subscriptions/internal/subscriptions/application"
	subSubscribers "github.com/felixgeelhaar/subscriptions/internal/subscriptions/application/subscribers"
	subDomain "github.com/felixgeelhaar/subscriptions/internal/subscriptions/domain"
	"github.com/felixgeelhaar/subscriptions/internal/subscriptions/infrastructure/billing"
	"github.com/felixgeelhaar/subscriptions/pkg/config"
	"github.com/felixgeelhaar/subscriptions/pkg/observability"
)

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.InMemoryMetrics
	Health  *observability.HealthRegistry

	// Storage, populated for the backends that need them
	DBConn      database.Connection
	RedisClient *redis.Client

	// Events
	EventPublisher eventbus.Publisher
	InProcessBus   *eventbus.InProcessEventBus
	EventConsumer  *eventbus.RabbitMQConsumer

	// Credentials
	Tokens *credApp.TokenStore

	// Subscriptions
	Store         *subApp.StateStore
	Billing       subDomain.Billing
	Authenticator subDomain.Authenticator
	Sandbox       *billing.Sandbox
	Service       *subApp.Service

	closers []func() error
}

// NewContainer creates and wires all dependencies.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewInMemoryMetrics(),
		Health:  observability.NewHealthRegistry(),
	}
	if err := c.wire(ctx); err != nil {
		return nil, errors.Join(err, c.Close())
	}
	return c, nil
}

func (c *Container) wire(ctx context.Context) error {
	cfg, logger := c.Config, c.Logger
	if err := c.initTokenStore(ctx); err != nil {
		return err
	}
	if err := c.initEvents(); err != nil {
		return err
	}

	c.Store = subApp.NewStateStore(
		subApp.WithStoreLogger(logger.With("component", "state_store")),
		subApp.WithStoreMetrics(c.Metrics),
	)

	if err := c.initBilling(ctx); err != nil {
		return err
	}

	c.Service = subApp.NewService(c.Store, c.Billing, c.Authenticator, c.Tokens, subApp.ServiceConfig{
		ProductID:        cfg.BillingProductID,
		CommandQueueSize: cfg.CommandQueueSize,
	}, logger, c.Metrics)

	subscriber := subSubscribers.NewBillingSubscriber(c.Store, c.Service, cfg.BillingProductID, logger)
	if c.InProcessBus != nil {
		c.InProcessBus.RegisterConsumer(subscriber)
	}
	if c.EventConsumer != nil {
		c.EventConsumer.RegisterConsumer(subscriber)
	}

	c.Health.Register("token_store", func(ctx context.Context) observability.HealthCheckResult {
		if c.Tokens.CanUseEncryption(ctx) {
			return observability.HealthCheckResult{Status: observability.HealthStatusHealthy, Message: "encrypted"}
		}
		return observability.HealthCheckResult{Status: observability.HealthStatusDegraded, Message: "encryption unavailable"}
	})

	logger.Info("container ready",
		"token_store", cfg.TokenStoreBackend,
		"event_bus", cfg.EventBus,
		"billing", cfg.BillingMode,
	)
	return nil
}

func (c *Container) initTokenStore(ctx context.Context) error {
	cfg := c.Config
	var backend securestore.Backend

	switch cfg.TokenStoreBackend {
	case config.BackendFile:
		backend = securestore.NewFileBackend(cfg.TokenStoreDir)
	case config.BackendMemory:
		backend = securestore.NewMemoryBackend()
	case config.BackendSQLite, config.BackendPostgres:
		dbCfg := database.Config{Driver: database.DriverSQLite, SQLitePath: cfg.SQLitePath}
		if cfg.TokenStoreBackend == config.BackendPostgres {
			dbCfg = database.Config{Driver: database.DriverPostgres, URL: cfg.DatabaseURL}
		}
		conn, err := database.NewConnection(ctx, dbCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		c.DBConn = conn
		c.closers = append(c.closers, conn.Close)
		c.Health.Register("database", observability.PingChecker("database", observability.HealthStatusUnhealthy, conn.Ping))
		backend = securestore.NewSQLBackend(conn)
	case config.BackendRedis:
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		client := redis.NewClient(opt)
		c.RedisClient = client
		c.closers = append(c.closers, client.Close)
		c.Health.Register("redis", observability.PingChecker("redis", observability.HealthStatusUnhealthy, func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}))
		backend = securestore.NewRedisBackend(client)
	default:
		return fmt.Errorf("unknown token store backend %q", cfg.TokenStoreBackend)
	}

	opts := []credApp.TokenStoreOption{
		credApp.WithStoreName(cfg.StoreName),
		credApp.WithLogger(c.Logger.With("component", "token_store")),
		credApp.WithMetrics(c.Metrics),
	}
	if cfg.TokenPlaintextFallback {
		fallback, err := backend.Open(ctx, cfg.StoreName+".plaintext")
		if err != nil {
			c.Logger.Warn("plaintext fallback unavailable", "error", err)
		} else {
			opts = append(opts, credApp.WithFallback(fallback))
		}
	}

	provider := securestore.NewProviderFromKey(backend, cfg.EncryptionKey, c.Logger)
	c.Tokens = credApp.NewTokenStore(provider, opts...)
	return nil
}

func (c *Container) initEvents() error {
	cfg := c.Config
	switch cfg.EventBus {
	case config.EventBusRabbitMQ:
		publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, c.Logger, c.Metrics)
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		c.EventPublisher = publisher
		c.closers = append(c.closers, publisher.Close)
		c.Health.Register("rabbitmq", observability.PingChecker("rabbitmq", observability.HealthStatusUnhealthy, publisher.Ping))

		consumer, err := eventbus.NewRabbitMQConsumer(eventbus.RabbitMQConsumerConfig{
			URL:     cfg.RabbitMQURL,
			Logger:  c.Logger,
			Metrics: c.Metrics,
		}, eventbus.NewConsumerRegistry(c.Logger))
		if err != nil {
			return fmt.Errorf("failed to start RabbitMQ consumer: %w", err)
		}
		c.EventConsumer = consumer
		c.closers = append(c.closers, consumer.Close)
	default:
		bus := eventbus.NewInProcessEventBus(c.Logger, c.Metrics)
		c.InProcessBus = bus
		c.EventPublisher = bus
		c.closers = append(c.closers, bus.Close)
	}
	return nil
}

func (c *Container) initBilling(ctx context.Context) error {
	cfg := c.Config
	switch cfg.BillingMode {
	case config.BillingHTTP:
		client, err := billing.NewHTTPClient(billing.HTTPConfig{
			BaseURL: cfg.BillingAPIURL,
			Timeout: cfg.BillingTimeout,
			Breaker: billing.BreakerConfig{
				MaxRequests:      cfg.BreakerMaxRequests,
				Interval:         cfg.BreakerInterval,
				Timeout:          cfg.BreakerTimeout,
				FailureThreshold: cfg.BreakerFailureThreshold,
			},
		}, credApp.TokenSource(ctx, c.Tokens), c.EventPublisher, c.Logger.With("component", "billing"), c.Metrics)
		if err != nil {
			return err
		}
		c.Billing = client
		c.Authenticator = client
	default:
		fixture := billing.Fixture{Catalog: billing.DefaultCatalog()}
		if cfg.BillingCatalogPath != "" {
			loaded, err := billing.LoadFixture(cfg.BillingCatalogPath)
			if err != nil {
				return err
			}
			fixture = loaded
		}
		sandbox := billing.NewSandbox(fixture, c.EventPublisher, c.Logger.With("component", "billing"))
		c.Sandbox = sandbox
		c.Billing = sandbox
		c.Authenticator = sandbox
	}
	return nil
}

// Start begins consuming broker events in the background. It is a no-op
// for the in-process bus.
func (c *Container) Start(ctx context.Context) {
	if c.EventConsumer == nil {
		return
	}
	go func() {
		if err := c.EventConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			c.Logger.Error("event consumer stopped", "error", err)
		}
	}()
}

// Close releases every resource in reverse order of acquisition.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
