package kernel_test

import (
	"testing"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCoordinates(t *testing.T, lat, lng float64) *kernel.Coordinates {
	t.Helper()
	c, err := kernel.NewCoordinates(lat, lng)
	require.NoError(t, err)
	return &c
}

func mustAddress(t *testing.T, street string, coords *kernel.Coordinates) kernel.AddressLocation {
	t.Helper()
	a, err := kernel.NewAddressLocation(kernel.AddressParts{
		Street:      street,
		Number:      "100",
		District:    "Downtown",
		City:        "Springfield",
		Region:      "IL",
		PostalCode:  "62701",
		Coordinates: coords,
	})
	require.NoError(t, err)
	return a
}

func TestNewCoordinates(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lng     float64
		wantErr bool
	}{
		{name: "origin", lat: 0, lng: 0},
		{name: "bounds", lat: kernel.LatitudeMax, lng: kernel.LongitudeMin},
		{name: "latitude too large", lat: 90.5, lng: 0, wantErr: true},
		{name: "longitude too small", lat: 0, lng: -180.1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := kernel.NewCoordinates(tt.lat, tt.lng)
			if tt.wantErr {
				require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
				return
			}
			require.NoError(t, err)
			require.NoError(t, c.Validate())
			assert.InDelta(t, tt.lat, c.Lat(), 1e-9)
			assert.InDelta(t, tt.lng, c.Lng(), 1e-9)
		})
	}
}

func TestNewAddressLocation(t *testing.T) {
	t.Run("street and city are required", func(t *testing.T) {
		_, err := kernel.NewAddressLocation(kernel.AddressParts{Street: "  ", City: ""})

		require.ErrorIs(t, err, errs.ErrValueIsRequired)
		assert.Contains(t, err.Error(), "street")
		assert.Contains(t, err.Error(), "city")
	})

	t.Run("unconstructed coordinates are rejected", func(t *testing.T) {
		_, err := kernel.NewAddressLocation(kernel.AddressParts{
			Street: "Main St", City: "Springfield", Coordinates: &kernel.Coordinates{},
		})

		require.ErrorIs(t, err, kernel.ErrCoordinatesIsNotConstructed)
	})

	t.Run("zero value is not constructed", func(t *testing.T) {
		var a kernel.AddressLocation

		require.Error(t, a.Validate())
	})
}

func TestAddressLocation_Equality(t *testing.T) {
	a := mustAddress(t, "Main St", mustCoordinates(t, 1, 2))
	b := mustAddress(t, "Main St", mustCoordinates(t, 1, 2))
	c := mustAddress(t, "Main St", nil)

	assert.True(t, a.IsEqual(b))
	assert.Equal(t, a, b)
	assert.False(t, a.IsEqual(c))
}

func TestAddressLocation_String(t *testing.T) {
	full := mustAddress(t, "Main St", nil)
	assert.Equal(t, "Main St, 100 - Downtown, Springfield/IL, 62701", full.String())

	minimal, err := kernel.NewAddressLocation(kernel.AddressParts{Street: "Elm St", City: "Shelbyville"})
	require.NoError(t, err)
	assert.Equal(t, "Elm St, Shelbyville", minimal.String())
}

func TestAddressLocation_Distance(t *testing.T) {
	t.Run("linear distance from coordinates", func(t *testing.T) {
		from := mustAddress(t, "A", mustCoordinates(t, 0, 0))
		to := mustAddress(t, "B", mustCoordinates(t, 0.03, 0.04))

		assert.InDelta(t, 0.05*kernel.KilometersPerDegree, from.Distance(to), 1e-9)
		assert.InDelta(t, from.Distance(to), to.Distance(from), 1e-9)
	})

	t.Run("placeholder when coordinates are missing", func(t *testing.T) {
		from := mustAddress(t, "A", nil)
		to := mustAddress(t, "B", mustCoordinates(t, 10, 10))

		assert.InDelta(t, kernel.PlaceholderDistanceKm, from.Distance(to), 1e-9)
		assert.InDelta(t, 7.5, from.DistanceWith(to, kernel.LinearDistance{PlaceholderKm: 7.5}), 1e-9)
	})

	t.Run("custom strategy", func(t *testing.T) {
		from := mustAddress(t, "A", nil)
		to := mustAddress(t, "B", nil)
		fixed := kernel.DistanceFunc(func(_, _ kernel.AddressLocation) float64 { return 42 })

		assert.InDelta(t, 42.0, from.DistanceWith(to, fixed), 1e-9)
	})
}
