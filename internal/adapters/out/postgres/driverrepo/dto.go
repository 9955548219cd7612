// Package driverrepo persists the driver directory with GORM.
package driverrepo

import (
	"time"

	"dispatch/internal/adapters/out/postgres/addresscol"
	"dispatch/internal/core/domain/model/driver"
	"dispatch/internal/core/domain/model/kernel"

	"github.com/google/uuid"
)

type DriverDTO struct {
	ID                  uuid.UUID             `gorm:"type:uuid;primaryKey"`
	Name                string                `gorm:"type:varchar(255);not null"`
	Contact             string                `gorm:"type:varchar(255);not null"`
	Vehicle             string                `gorm:"type:varchar(255)"`
	Status              int                   `gorm:"type:smallint;not null;index:idx_drivers_available,priority:1"`
	Availability        int                   `gorm:"type:smallint;not null;index:idx_drivers_available,priority:2"`
	Rating              float64               `gorm:"type:double precision;not null"`
	RatingsCount        int                   `gorm:"not null"`
	CompletedDeliveries int                   `gorm:"not null"`
	Cancellations       int                   `gorm:"not null"`
	Location            addresscol.AddressDTO `gorm:"embedded;embeddedPrefix:location_"`
	UpdatedAt           time.Time
}

func (DriverDTO) TableName() string {
	return "drivers"
}

func fromDomain(d *driver.Driver) DriverDTO {
	stats := d.Stats()
	dto := DriverDTO{
		ID:                  d.ID().Bytes(),
		Name:                d.Name(),
		Contact:             d.Contact(),
		Vehicle:             d.Vehicle(),
		Status:              int(d.Status()),
		Availability:        int(d.Availability()),
		Rating:              stats.Rating,
		RatingsCount:        stats.RatingsCount,
		CompletedDeliveries: stats.CompletedDeliveries,
		Cancellations:       stats.Cancellations,
	}
	if loc, ok := d.Location(); ok {
		dto.Location = addresscol.FromDomain(loc)
	}
	return dto
}

func toDomain(dto DriverDTO) (*driver.Driver, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	location, err := dto.Location.ToOptional()
	if err != nil {
		return nil, err
	}

	return driver.RestoreDriver(
		id,
		dto.Name,
		dto.Contact,
		dto.Vehicle,
		driver.Status(dto.Status),
		driver.Availability(dto.Availability),
		driver.Stats{
			Rating:              dto.Rating,
			RatingsCount:        dto.RatingsCount,
			CompletedDeliveries: dto.CompletedDeliveries,
			Cancellations:       dto.Cancellations,
		},
		location,
	)
}
