package driverrepo

import (
	"context"
	"errors"

	"dispatch/internal/core/domain/model/driver"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"

	"gorm.io/gorm"
)

// GormDriverRepository implements ports.DriverRepository using GORM. Radius
// filtering runs in process with the configured distance strategy.
type GormDriverRepository struct {
	db       *gorm.DB
	strategy kernel.DistanceStrategy
}

// NewGormDriverRepository binds the repository to db, which may be a
// transaction. A nil strategy means kernel.LinearDistance.
func NewGormDriverRepository(db *gorm.DB, strategy kernel.DistanceStrategy) *GormDriverRepository {
	if strategy == nil {
		strategy = kernel.LinearDistance{}
	}
	return &GormDriverRepository{db: db, strategy: strategy}
}

// Add inserts a newly registered driver.
func (r *GormDriverRepository) Add(ctx context.Context, aggregate *driver.Driver) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	return r.db.WithContext(ctx).Create(&dto).Error
}

// Update overwrites every mutable column of an existing driver without any
// condition on its stored state. Use CompareAndSwap for availability changes.
//
// Returns:
//   - nil when the row was written
//   - an ObjectNotFoundError matching ports.ErrDriverNotFound for an unknown id
//   - the validation error of an unconstructed aggregate
func (r *GormDriverRepository) Update(ctx context.Context, aggregate *driver.Driver) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	result := r.db.WithContext(ctx).
		Model(&DriverDTO{}).
		Where("id = ?", dto.ID).
		Select("*").
		Omit("ID").
		Updates(&dto)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound(aggregate.ID())
	}
	return nil
}

// CompareAndSwap stores the driver only while its stored availability still
// equals expected, so one driver cannot be bound to two deliveries.
func (r *GormDriverRepository) CompareAndSwap(
	ctx context.Context,
	aggregate *driver.Driver,
	expected driver.Availability,
) (bool, error) {
	if err := aggregate.Validate(); err != nil {
		return false, err
	}

	dto := fromDomain(aggregate)
	result := r.db.WithContext(ctx).
		Model(&DriverDTO{}).
		Where("id = ? AND availability = ?", dto.ID, int(expected)).
		Select("*").
		Omit("ID").
		Updates(&dto)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 1 {
		return true, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&DriverDTO{}).Where("id = ?", dto.ID).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, notFound(aggregate.ID())
	}
	return false, nil
}

// Get loads one driver. An unknown id yields an ObjectNotFoundError matching
// ports.ErrDriverNotFound.
func (r *GormDriverRepository) Get(ctx context.Context, id kernel.UUID) (*driver.Driver, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto DriverDTO
	if err := r.db.WithContext(ctx).First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(id)
		}
		return nil, err
	}
	return toDomain(dto)
}

// FindAvailable loads Active and Available drivers ordered by id and keeps
// those within q.RadiusKm of q.Near.
func (r *GormDriverRepository) FindAvailable(ctx context.Context, q ports.AvailabilityQuery) ([]*driver.Driver, error) {
	var dtos []DriverDTO
	if err := r.db.WithContext(ctx).
		Where("status = ? AND availability = ?", int(driver.Active), int(driver.Available)).
		Order("id").
		Find(&dtos).Error; err != nil {
		return nil, err
	}

	drivers := make([]*driver.Driver, 0, len(dtos))
	for _, dto := range dtos {
		d, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, d)
	}

	if q.Near == nil {
		return drivers, nil
	}
	return services.WithinRadius(drivers, *q.Near, q.RadiusKm, r.strategy), nil
}

func notFound(id kernel.UUID) error {
	return errs.NewObjectNotFoundErrorWithCause("driver", id.String(), ports.ErrDriverNotFound)
}
