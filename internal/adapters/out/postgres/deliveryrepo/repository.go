package deliveryrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// immutableColumns are never rewritten by Update or CompareAndSwap.
var immutableColumns = []string{"ID", "OrderID", "CreatedAt"}

// GormDeliveryRepository implements ports.DeliveryRepository using GORM.
type GormDeliveryRepository struct {
	db *gorm.DB
}

// NewGormDeliveryRepository binds the repository to db, which may be a transaction.
func NewGormDeliveryRepository(db *gorm.DB) *GormDeliveryRepository {
	return &GormDeliveryRepository{db: db}
}

// Add inserts a new delivery. A second delivery for the same order fails with
// ports.ErrDuplicateOrder.
func (r *GormDeliveryRepository) Add(ctx context.Context, aggregate *delivery.Delivery) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	if err := r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: order %s", ports.ErrDuplicateOrder, aggregate.OrderID())
		}
		return err
	}
	return nil
}

// Update overwrites the mutable columns of an existing delivery without any
// condition on its stored status.
//
// Returns:
//   - nil when the row was written
//   - an ObjectNotFoundError matching ports.ErrDeliveryNotFound for an unknown id
//   - the validation error of an unconstructed aggregate
func (r *GormDeliveryRepository) Update(ctx context.Context, aggregate *delivery.Delivery) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	result := r.db.WithContext(ctx).
		Model(&DeliveryDTO{}).
		Where("id = ?", dto.ID).
		Select("*").
		Omit(immutableColumns...).
		Updates(&dto)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound(aggregate.ID())
	}
	return nil
}

// CompareAndSwap issues a single conditional UPDATE ... WHERE status = expected.
// Concurrent writers serialize on the row lock and every one after the first
// matches zero rows.
func (r *GormDeliveryRepository) CompareAndSwap(
	ctx context.Context,
	aggregate *delivery.Delivery,
	expected delivery.Status,
) (bool, error) {
	if err := aggregate.Validate(); err != nil {
		return false, err
	}

	dto := fromDomain(aggregate)
	result := r.db.WithContext(ctx).
		Model(&DeliveryDTO{}).
		Where("id = ? AND status = ?", dto.ID, int(expected)).
		Select("*").
		Omit(immutableColumns...).
		Updates(&dto)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 1 {
		return true, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&DeliveryDTO{}).Where("id = ?", dto.ID).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, notFound(aggregate.ID())
	}
	return false, nil
}

// Get loads one delivery by id.
func (r *GormDeliveryRepository) Get(ctx context.Context, id kernel.UUID) (*delivery.Delivery, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto DeliveryDTO
	if err := r.db.WithContext(ctx).First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(id)
		}
		return nil, err
	}
	return toDomain(dto)
}

// GetByOrderID loads the delivery created for orderID.
func (r *GormDeliveryRepository) GetByOrderID(ctx context.Context, orderID string) (*delivery.Delivery, error) {
	var dto DeliveryDTO
	if err := r.db.WithContext(ctx).First(&dto, "order_id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundErrorWithCause("orderId", orderID, ports.ErrDeliveryNotFound)
		}
		return nil, err
	}
	return toDomain(dto)
}

// FindByStatus returns the oldest deliveries in status first. A limit of zero
// or less returns all of them.
func (r *GormDeliveryRepository) FindByStatus(ctx context.Context, status delivery.Status, limit int) ([]*delivery.Delivery, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", int(status)).
		Order("created_at, id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	return r.find(query)
}

// FindOverdue returns moving deliveries whose estimated completion is before
// now, most overdue first.
func (r *GormDeliveryRepository) FindOverdue(ctx context.Context, now time.Time) ([]*delivery.Delivery, error) {
	moving := []int{int(delivery.EnRouteToPickup), int(delivery.PickedUp), int(delivery.InTransit)}
	query := r.db.WithContext(ctx).
		Where("status IN ? AND estimated_completion_at < ?", moving, now.UTC()).
		Order("estimated_completion_at, id")
	return r.find(query)
}

func (r *GormDeliveryRepository) find(query *gorm.DB) ([]*delivery.Delivery, error) {
	var dtos []DeliveryDTO
	if err := query.Find(&dtos).Error; err != nil {
		return nil, err
	}

	deliveries := make([]*delivery.Delivery, 0, len(dtos))
	for _, dto := range dtos {
		d, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, nil
}

func notFound(id kernel.UUID) error {
	return errs.NewObjectNotFoundErrorWithCause("delivery", id.String(), ports.ErrDeliveryNotFound)
}
