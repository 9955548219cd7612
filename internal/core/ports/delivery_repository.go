package ports

import (
	"context"
	"errors"
	"time"

	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"
)

var (
	// ErrDeliveryNotFound is the cause attached to not-found errors for deliveries.
	ErrDeliveryNotFound = errors.New("delivery not found")

	// ErrAlreadyAssigned is returned when a delivery has been accepted by
	// another driver in the meantime.
	ErrAlreadyAssigned = errors.New("delivery already assigned")

	// ErrConcurrentUpdate is returned when an aggregate changed between
	// being loaded and being stored.
	ErrConcurrentUpdate = errors.New("modified concurrently")

	// ErrDuplicateOrder is returned by Add when a delivery for the same order exists.
	ErrDuplicateOrder = errors.New("delivery for order already exists")
)

// DeliveryRepository is the delivery ledger.
type DeliveryRepository interface {
	Add(ctx context.Context, d *delivery.Delivery) error

	// Update stores d unconditionally.
	Update(ctx context.Context, d *delivery.Delivery) error

	// CompareAndSwap stores d only if the stored status still equals expected.
	// It reports false, without error, when the condition did not hold.
	CompareAndSwap(ctx context.Context, d *delivery.Delivery, expected delivery.Status) (bool, error)

	Get(ctx context.Context, id kernel.UUID) (*delivery.Delivery, error)
	GetByOrderID(ctx context.Context, orderID string) (*delivery.Delivery, error)

	// FindByStatus returns up to limit deliveries in status, oldest first.
	// A limit of zero means no limit.
	FindByStatus(ctx context.Context, status delivery.Status, limit int) ([]*delivery.Delivery, error)

	// FindOverdue returns in-transit-like deliveries whose estimated completion is before now.
	FindOverdue(ctx context.Context, now time.Time) ([]*delivery.Delivery, error)
}
