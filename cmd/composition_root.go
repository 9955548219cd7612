package cmd

import (
	"context"
	"errors"
	"fmt"

	httpadapter "dispatch/internal/adapters/in/http"
	kafkain "dispatch/internal/adapters/in/kafka"
	kafkaout "dispatch/internal/adapters/out/kafka"
	"dispatch/internal/adapters/out/logbus"
	"dispatch/internal/adapters/out/memory"
	"dispatch/internal/adapters/out/postgres"
	"dispatch/internal/adapters/out/redis"
	"dispatch/internal/adapters/out/servicebus"
	"dispatch/internal/core/application/dispatch"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/jobs"
	"dispatch/internal/metrics"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// CompositionRoot wires adapters to the dispatch service. gormDB may be nil
// when the memory storage driver is configured.
type CompositionRoot struct {
	cfg        Config
	logger     zerolog.Logger
	registry   *prometheus.Registry
	uowFactory ports.UnitOfWorkFactory
	publisher  ports.EventPublisher
	service    *dispatch.Service
	closers    []func() error
}

func NewCompositionRoot(cfg Config, gormDB *gorm.DB, logger zerolog.Logger) (*CompositionRoot, error) {
	c := &CompositionRoot{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	c.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var strategy kernel.DistanceStrategy = kernel.LinearDistance{}

	switch cfg.StorageDriver {
	case StoragePostgres:
		if gormDB == nil {
			return nil, errors.New("postgres storage needs a database connection")
		}
		c.uowFactory = postgres.NewGormUnitOfWorkFactory(gormDB, strategy)
	case StorageMemory:
		c.uowFactory = memory.NewUnitOfWorkFactory(memory.NewStore(strategy))
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	publisher, err := c.createPublisher()
	if err != nil {
		return nil, err
	}
	c.publisher = publisher

	estimator, err := services.NewEstimator(cfg.Dispatch.Pricing, strategy)
	if err != nil {
		return nil, err
	}
	defaultPickup, err := cfg.Dispatch.DefaultPickupLocation()
	if err != nil {
		return nil, err
	}

	var f dispatch.UoWFactory = FuncUoWFactory(func() dispatch.UoW {
		return c.uowFactory.Create()
	})
	c.service = dispatch.NewService(f, c.publisher, estimator, dispatch.Config{
		SearchRadiusKm:   cfg.Dispatch.SearchRadiusKm,
		DefaultPickup:    defaultPickup,
		PendingBatchSize: cfg.Dispatch.PendingBatchSize,
	},
		dispatch.WithLogger(logger),
		dispatch.WithRecorder(metrics.NewDispatch(c.registry)),
	)
	return c, nil
}

func (c *CompositionRoot) createPublisher() (ports.EventPublisher, error) {
	switch c.cfg.EventsDriver {
	case EventsKafka:
		producer, err := kafkaout.NewProducer(c.cfg.Kafka.Brokers, c.cfg.Kafka.ClientID)
		if err != nil {
			return nil, err
		}
		p := kafkaout.NewPublisher(producer, c.cfg.Kafka.TopicPrefix, c.logger)
		c.closers = append(c.closers, p.Close)
		return p, nil
	case EventsServiceBus:
		p, err := servicebus.NewPublisher(servicebus.Config{
			ConnectionString: c.cfg.ServiceBus.ConnectionString,
			Entity:           c.cfg.ServiceBus.Entity,
		})
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, func() error { return p.Close(context.Background()) })
		return p, nil
	case EventsLog:
		return logbus.NewPublisher(c.logger), nil
	default:
		return nil, fmt.Errorf("unknown events driver %q", c.cfg.EventsDriver)
	}
}

func (c *CompositionRoot) DispatchService() *dispatch.Service {
	return c.service
}

func (c *CompositionRoot) Registry() *prometheus.Registry {
	return c.registry
}

// CreateRouter builds the HTTP API.
func (c *CompositionRoot) CreateRouter() (*echo.Echo, error) {
	server := httpadapter.NewServer(c.service, c.logger)
	return httpadapter.NewRouter(server, httpadapter.RouterConfig{
		Gatherer:    c.registry,
		HTTPMetrics: metrics.NewHTTP(c.registry),
		Logger:      c.logger,
	})
}

// CreateOrderConsumer returns nil when the consumer is disabled.
func (c *CompositionRoot) CreateOrderConsumer() (*kafkain.Consumer, error) {
	if !c.cfg.Kafka.ConsumerEnabled {
		return nil, nil
	}

	guard, err := redis.NewIdempotencyGuard(c.cfg.Redis)
	if err != nil {
		c.logger.Warn().Err(err).Msg("redis unavailable, consuming without idempotency markers")
		guard, _ = redis.NewIdempotencyGuard(redis.Config{Enabled: false})
	}
	c.closers = append(c.closers, guard.Close)

	consumer, err := kafkain.NewConsumer(kafkain.Config{
		Brokers: c.cfg.Kafka.Brokers,
		GroupID: c.cfg.Kafka.ConsumerGroup,
		Topic:   c.cfg.Kafka.OrderConfirmedTopic,
	}, c.service, guard, c.logger)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, consumer.Close)
	return consumer, nil
}

func (c *CompositionRoot) CreateJobManager() *jobs.JobManager {
	return jobs.NewJobManager(c.service, c.service, jobs.Schedules{
		PendingAssignment: c.cfg.Jobs.PendingAssignment,
		Overdue:           c.cfg.Jobs.Overdue,
	}, c.logger)
}

// Close releases adapters in reverse creation order.
func (c *CompositionRoot) Close() error {
	var err error
	for i := len(c.closers) - 1; i >= 0; i-- {
		err = errors.Join(err, c.closers[i]())
	}
	c.closers = nil
	return err
}

// FuncUoWFactory adapts a function to dispatch.UoWFactory.
type FuncUoWFactory func() dispatch.UoW

func (f FuncUoWFactory) Create() dispatch.UoW {
	return f()
}
