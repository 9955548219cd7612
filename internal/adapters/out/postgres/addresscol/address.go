// Package addresscol maps kernel.AddressLocation onto embedded table columns
// shared by the delivery and driver tables.
package addresscol

import (
	"dispatch/internal/core/domain/model/kernel"
)

// AddressDTO is embedded with a prefix, e.g. pickup_street, dropoff_city.
// An empty Street marks an absent address.
type AddressDTO struct {
	Street     string   `gorm:"type:varchar(255)"`
	Number     string   `gorm:"type:varchar(32)"`
	District   string   `gorm:"type:varchar(255)"`
	City       string   `gorm:"type:varchar(255)"`
	Region     string   `gorm:"type:varchar(64)"`
	PostalCode string   `gorm:"type:varchar(32)"`
	Latitude   *float64 `gorm:"type:double precision"`
	Longitude  *float64 `gorm:"type:double precision"`
}

func FromDomain(a kernel.AddressLocation) AddressDTO {
	dto := AddressDTO{
		Street:     a.Street(),
		Number:     a.Number(),
		District:   a.District(),
		City:       a.City(),
		Region:     a.Region(),
		PostalCode: a.PostalCode(),
	}
	if c, ok := a.Coordinates(); ok {
		lat, lng := c.Lat(), c.Lng()
		dto.Latitude, dto.Longitude = &lat, &lng
	}
	return dto
}

// FromOptional maps a nil address to the zero AddressDTO.
func FromOptional(a *kernel.AddressLocation) AddressDTO {
	if a == nil {
		return AddressDTO{}
	}
	return FromDomain(*a)
}

func (dto AddressDTO) IsZero() bool {
	return dto.Street == ""
}

func (dto AddressDTO) ToDomain() (kernel.AddressLocation, error) {
	parts := kernel.AddressParts{
		Street:     dto.Street,
		Number:     dto.Number,
		District:   dto.District,
		City:       dto.City,
		Region:     dto.Region,
		PostalCode: dto.PostalCode,
	}
	if dto.Latitude != nil && dto.Longitude != nil {
		c, err := kernel.NewCoordinates(*dto.Latitude, *dto.Longitude)
		if err != nil {
			return kernel.AddressLocation{}, err
		}
		parts.Coordinates = &c
	}
	return kernel.NewAddressLocation(parts)
}

// ToOptional returns nil for the zero AddressDTO.
func (dto AddressDTO) ToOptional() (*kernel.AddressLocation, error) {
	if dto.IsZero() {
		return nil, nil
	}
	a, err := dto.ToDomain()
	if err != nil {
		return nil, err
	}
	return &a, nil
}
