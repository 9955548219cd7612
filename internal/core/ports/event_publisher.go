package ports

import (
	"context"

	"dispatch/internal/core/domain/events"
)

// EventPublisher delivers outbound events to the configured transport.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// IdempotencyGuard remembers processed inbound messages.
type IdempotencyGuard interface {
	IsProcessed(ctx context.Context, key string) (bool, error)
	MarkProcessed(ctx context.Context, key string) error
}
