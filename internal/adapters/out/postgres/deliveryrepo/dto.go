// Package deliveryrepo persists the delivery ledger with GORM.
package deliveryrepo

import (
	"time"

	"dispatch/internal/adapters/out/postgres/addresscol"
	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"

	"github.com/google/uuid"
)

// DeliveryDTO is one row of the deliveries table. order_id is unique so that a
// redelivered OrderConfirmed event cannot create a second delivery.
type DeliveryDTO struct {
	ID                    uuid.UUID             `gorm:"type:uuid;primaryKey"`
	OrderID               string                `gorm:"type:varchar(255);not null;uniqueIndex"`
	DriverID              *uuid.UUID            `gorm:"type:uuid;index"`
	DeliveredBy           *uuid.UUID            `gorm:"type:uuid"`
	Pickup                addresscol.AddressDTO `gorm:"embedded;embeddedPrefix:pickup_"`
	Dropoff               addresscol.AddressDTO `gorm:"embedded;embeddedPrefix:dropoff_"`
	Status                int                   `gorm:"type:smallint;not null;index"`
	Fee                   float64               `gorm:"type:numeric(12,2);not null"`
	EstimatedCompletionAt time.Time             `gorm:"not null;index"`
	Notes                 string                `gorm:"type:text"`
	CancelReason          string                `gorm:"type:text"`
	CreatedAt             time.Time             `gorm:"not null"`
}

func (DeliveryDTO) TableName() string {
	return "deliveries"
}

func fromDomain(d *delivery.Delivery) DeliveryDTO {
	return DeliveryDTO{
		ID:                    d.ID().Bytes(),
		OrderID:               d.OrderID(),
		DriverID:              rawID(d.DriverID()),
		DeliveredBy:           rawID(d.DeliveredBy()),
		Pickup:                addresscol.FromDomain(d.Pickup()),
		Dropoff:               addresscol.FromDomain(d.Dropoff()),
		Status:                int(d.Status()),
		Fee:                   d.Fee(),
		EstimatedCompletionAt: d.EstimatedCompletionAt().UTC(),
		Notes:                 d.Notes(),
		CancelReason:          d.CancelReason(),
		CreatedAt:             d.CreatedAt().UTC(),
	}
}

func toDomain(dto DeliveryDTO) (*delivery.Delivery, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	driverID, err := domainID(dto.DriverID)
	if err != nil {
		return nil, err
	}
	deliveredBy, err := domainID(dto.DeliveredBy)
	if err != nil {
		return nil, err
	}
	pickup, err := dto.Pickup.ToDomain()
	if err != nil {
		return nil, err
	}
	dropoff, err := dto.Dropoff.ToDomain()
	if err != nil {
		return nil, err
	}

	return delivery.RestoreDelivery(delivery.RestoreParams{
		ID:                    id,
		OrderID:               dto.OrderID,
		DriverID:              driverID,
		DeliveredBy:           deliveredBy,
		Pickup:                pickup,
		Dropoff:               dropoff,
		Status:                delivery.Status(dto.Status),
		Fee:                   dto.Fee,
		EstimatedCompletionAt: dto.EstimatedCompletionAt.UTC(),
		Notes:                 dto.Notes,
		CancelReason:          dto.CancelReason,
		CreatedAt:             dto.CreatedAt.UTC(),
	})
}

func rawID(id *kernel.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	raw := id.Bytes()
	return &raw
}

func domainID(raw *uuid.UUID) (*kernel.UUID, error) {
	if raw == nil {
		return nil, nil
	}
	id, err := kernel.UUIDFromBytes(raw[:])
	if err != nil {
		return nil, err
	}
	return &id, nil
}
