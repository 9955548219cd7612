package ports

import (
	"context"
	"errors"

	"dispatch/internal/core/domain/model/driver"
	"dispatch/internal/core/domain/model/kernel"
)

// ErrDriverNotFound is the cause attached to not-found errors for drivers.
var ErrDriverNotFound = errors.New("driver not found")

// AvailabilityQuery selects available drivers. A nil Near disables the
// proximity filter, as does an infinite RadiusKm.
type AvailabilityQuery struct {
	Near     *kernel.AddressLocation
	RadiusKm float64
}

// DriverRepository is the driver directory.
type DriverRepository interface {
	Add(ctx context.Context, d *driver.Driver) error
	Update(ctx context.Context, d *driver.Driver) error

	// CompareAndSwap stores d only if the stored availability still equals expected.
	CompareAndSwap(ctx context.Context, d *driver.Driver, expected driver.Availability) (bool, error)

	Get(ctx context.Context, id kernel.UUID) (*driver.Driver, error)

	// FindAvailable returns Active and Available drivers matching q.
	FindAvailable(ctx context.Context, q AvailabilityQuery) ([]*driver.Driver, error)
}
