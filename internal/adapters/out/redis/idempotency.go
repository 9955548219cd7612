// Package redis keeps processed-message markers for inbound events.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

const DefaultTTL = 24 * time.Hour

// Config mirrors the redis section of the service configuration.
type Config struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

// Client is the subset of redis.Cmdable used by IdempotencyGuard.
type Client interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// IdempotencyGuard marks inbound messages as processed for TTL. A disabled
// guard reports nothing as processed and remembers nothing.
type IdempotencyGuard struct {
	client  Client
	closer  func() error
	enabled bool
	prefix  string
	ttl     time.Duration
}

// NewIdempotencyGuard connects to redis and checks the connection.
func NewIdempotencyGuard(cfg Config) (*IdempotencyGuard, error) {
	if !cfg.Enabled {
		return &IdempotencyGuard{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	g := NewIdempotencyGuardWithClient(client, cfg.TTL)
	g.closer = client.Close
	return g, nil
}

// NewIdempotencyGuardWithClient builds an enabled guard on top of client.
func NewIdempotencyGuardWithClient(client Client, ttl time.Duration) *IdempotencyGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &IdempotencyGuard{
		client:  client,
		enabled: true,
		prefix:  "dispatch:processed:",
		ttl:     ttl,
	}
}

func (g *IdempotencyGuard) IsProcessed(ctx context.Context, key string) (bool, error) {
	if !g.enabled {
		return false, nil
	}

	n, err := g.client.Exists(ctx, g.prefix+key).Result()
	if err != nil {
		return false, errors.Wrap(err, "failed to check processed marker")
	}
	return n > 0, nil
}

func (g *IdempotencyGuard) MarkProcessed(ctx context.Context, key string) error {
	if !g.enabled {
		return nil
	}

	// SetNX keeps the first marker's expiry when a message is redelivered.
	if err := g.client.SetNX(ctx, g.prefix+key, time.Now().UTC().Unix(), g.ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to set processed marker")
	}
	return nil
}

func (g *IdempotencyGuard) Close() error {
	if g.closer == nil {
		return nil
	}
	return g.closer()
}
