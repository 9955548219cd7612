package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"dispatch/internal/adapters/out/redis"
	"dispatch/internal/core/application/dispatch"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/services"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "DISPATCH"

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	EventsLog        = "log"
	EventsKafka      = "kafka"
	EventsServiceBus = "servicebus"
)

type Config struct {
	HTTPPort  string
	LogLevel  string
	LogFormat string

	StorageDriver string
	DB            DBConfig

	EventsDriver string
	Kafka        KafkaConfig
	ServiceBus   ServiceBusConfig
	Redis        redis.Config

	Dispatch DispatchConfig
	Jobs     JobsConfig
}

type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SslMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN renders the connection string for the gorm postgres driver.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SslMode)
}

type KafkaConfig struct {
	Brokers             []string
	ClientID            string
	TopicPrefix         string
	ConsumerEnabled     bool
	ConsumerGroup       string
	OrderConfirmedTopic string
}

type ServiceBusConfig struct {
	ConnectionString string
	Entity           string
}

type DispatchConfig struct {
	SearchRadiusKm   float64
	PendingBatchSize int
	Pricing          services.Pricing
	DefaultPickup    dispatch.Address
}

type JobsConfig struct {
	Enabled           bool
	PendingAssignment string
	Overdue           string
}

// RegisterFlags declares the command-line overrides. Flag names match the
// configuration keys, so --http.port overrides DISPATCH_HTTP_PORT.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("http.port", "8080", "HTTP listen port")
	flags.String("log.level", "info", "log level (debug, info, warn, error)")
	flags.String("log.format", "json", "log format (json, console)")
	flags.String("storage.driver", StoragePostgres, "storage backend (postgres, memory)")
	flags.String("events.driver", EventsLog, "event transport (log, kafka, servicebus)")
}

// LoadConfig merges, from lowest to highest precedence, defaults, a .env
// file, DISPATCH_* environment variables and flags.
func LoadConfig(flags *pflag.FlagSet) (Config, error) {
	// A missing .env file is fine: the environment may already be set.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	cfg := Config{
		HTTPPort:      v.GetString("http.port"),
		LogLevel:      v.GetString("log.level"),
		LogFormat:     v.GetString("log.format"),
		StorageDriver: v.GetString("storage.driver"),
		DB: DBConfig{
			Host:            v.GetString("db.host"),
			Port:            v.GetString("db.port"),
			User:            v.GetString("db.user"),
			Password:        v.GetString("db.password"),
			Name:            v.GetString("db.name"),
			SslMode:         v.GetString("db.sslmode"),
			MaxOpenConns:    v.GetInt("db.max_open_conns"),
			MaxIdleConns:    v.GetInt("db.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("db.conn_max_lifetime"),
		},
		EventsDriver: v.GetString("events.driver"),
		Kafka: KafkaConfig{
			Brokers:             splitList(v.GetString("kafka.brokers")),
			ClientID:            v.GetString("kafka.client_id"),
			TopicPrefix:         v.GetString("kafka.topic_prefix"),
			ConsumerEnabled:     v.GetBool("kafka.consumer_enabled"),
			ConsumerGroup:       v.GetString("kafka.consumer_group"),
			OrderConfirmedTopic: v.GetString("kafka.order_confirmed_topic"),
		},
		ServiceBus: ServiceBusConfig{
			ConnectionString: v.GetString("servicebus.connection_string"),
			Entity:           v.GetString("servicebus.entity"),
		},
		Redis: redis.Config{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      v.GetDuration("redis.ttl"),
		},
		Dispatch: DispatchConfig{
			SearchRadiusKm:   v.GetFloat64("dispatch.search_radius_km"),
			PendingBatchSize: v.GetInt("dispatch.pending_batch_size"),
			Pricing: services.Pricing{
				AvgSpeedKmh: v.GetFloat64("dispatch.avg_speed_kmh"),
				PrepMinutes: v.GetFloat64("dispatch.prep_minutes"),
				BaseFee:     v.GetFloat64("dispatch.base_fee"),
				PerKmRate:   v.GetFloat64("dispatch.per_km_rate"),
			},
			DefaultPickup: dispatch.Address{
				Street:     v.GetString("dispatch.pickup.street"),
				Number:     v.GetString("dispatch.pickup.number"),
				District:   v.GetString("dispatch.pickup.district"),
				City:       v.GetString("dispatch.pickup.city"),
				Region:     v.GetString("dispatch.pickup.region"),
				PostalCode: v.GetString("dispatch.pickup.postal_code"),
				Latitude:   optionalFloat(v, "dispatch.pickup.latitude"),
				Longitude:  optionalFloat(v, "dispatch.pickup.longitude"),
			},
		},
		Jobs: JobsConfig{
			Enabled:           v.GetBool("jobs.enabled"),
			PendingAssignment: v.GetString("jobs.pending_assignment"),
			Overdue:           v.GetString("jobs.overdue"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("storage.driver", StoragePostgres)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "dispatch")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")

	v.SetDefault("events.driver", EventsLog)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.client_id", "dispatch")
	v.SetDefault("kafka.topic_prefix", "dispatch.")
	v.SetDefault("kafka.consumer_enabled", false)
	v.SetDefault("kafka.consumer_group", "dispatch")
	v.SetDefault("kafka.order_confirmed_topic", "orders.confirmed")
	v.SetDefault("servicebus.entity", "dispatch-events")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", redis.DefaultTTL)

	v.SetDefault("dispatch.search_radius_km", dispatch.DefaultSearchRadiusKm)
	v.SetDefault("dispatch.pending_batch_size", dispatch.DefaultPendingBatchSize)
	v.SetDefault("dispatch.avg_speed_kmh", 30.0)
	v.SetDefault("dispatch.prep_minutes", 10.0)
	v.SetDefault("dispatch.base_fee", 2.00)
	v.SetDefault("dispatch.per_km_rate", 1.50)
	v.SetDefault("dispatch.pickup.street", "")
	v.SetDefault("dispatch.pickup.city", "")

	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.pending_assignment", "*/15 * * * * *")
	v.SetDefault("jobs.overdue", "0 * * * * *")
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	var err error
	switch c.StorageDriver {
	case StorageMemory, StoragePostgres:
	default:
		err = errors.Join(err, fmt.Errorf("unknown storage driver %q", c.StorageDriver))
	}
	switch c.EventsDriver {
	case EventsLog:
	case EventsKafka:
		if len(c.Kafka.Brokers) == 0 {
			err = errors.Join(err, errors.New("kafka.brokers is required for the kafka event driver"))
		}
	case EventsServiceBus:
		if c.ServiceBus.ConnectionString == "" {
			err = errors.Join(err, errors.New("servicebus.connection_string is required for the servicebus event driver"))
		}
	default:
		err = errors.Join(err, fmt.Errorf("unknown events driver %q", c.EventsDriver))
	}
	if c.Kafka.ConsumerEnabled && len(c.Kafka.Brokers) == 0 {
		err = errors.Join(err, errors.New("kafka.brokers is required when the consumer is enabled"))
	}
	if c.Dispatch.SearchRadiusKm <= 0 {
		err = errors.Join(err, errors.New("dispatch.search_radius_km must be positive"))
	}
	if pErr := c.Dispatch.Pricing.Validate(); pErr != nil {
		err = errors.Join(err, pErr)
	}
	if _, pErr := c.Dispatch.DefaultPickupLocation(); pErr != nil {
		err = errors.Join(err, fmt.Errorf("dispatch.pickup: %w", pErr))
	}
	return err
}

// DefaultPickupLocation returns nil when no default pickup is configured.
func (c DispatchConfig) DefaultPickupLocation() (*kernel.AddressLocation, error) {
	if c.DefaultPickup.Street == "" && c.DefaultPickup.City == "" {
		return nil, nil
	}
	loc, err := c.DefaultPickup.ToLocation()
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

func optionalFloat(v *viper.Viper, key string) *float64 {
	if !v.IsSet(key) || v.GetString(key) == "" {
		return nil
	}
	f := v.GetFloat64(key)
	return &f
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
