package kernel

import (
	"errors"
	"math"
	"strings"

	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

const (
	LatitudeMin  = -90.0
	LatitudeMax  = 90.0
	LongitudeMin = -180.0
	LongitudeMax = 180.0

	// KilometersPerDegree converts coordinate deltas to kilometers in the
	// linear distance approximation.
	KilometersPerDegree = 111.32

	// PlaceholderDistanceKm is reported when either address has no coordinates.
	PlaceholderDistanceKm = 5.0
)

var (
	ErrCoordinatesIsNotConstructed     = errs.NewValueIsRequiredError("coordinates must be created via NewCoordinates")
	ErrAddressLocationIsNotConstructed = errs.NewValueIsRequiredError("address must be created via NewAddressLocation")
)

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	lat   float64
	lng   float64
	guard guard.ConstructorGuard
}

func NewCoordinates(lat, lng float64) (Coordinates, error) {
	var err error
	if lat < LatitudeMin || lat > LatitudeMax || math.IsNaN(lat) {
		err = errors.Join(err, errs.NewValueIsOutOfRangeError("latitude", lat, LatitudeMin, LatitudeMax))
	}
	if lng < LongitudeMin || lng > LongitudeMax || math.IsNaN(lng) {
		err = errors.Join(err, errs.NewValueIsOutOfRangeError("longitude", lng, LongitudeMin, LongitudeMax))
	}
	if err != nil {
		return Coordinates{}, err
	}

	return Coordinates{lat: lat, lng: lng, guard: guard.NewConstructorGuard()}, nil
}

func (c Coordinates) Lat() float64 { return c.lat }
func (c Coordinates) Lng() float64 { return c.lng }

func (c Coordinates) Validate() error {
	return c.guard.Validate(ErrCoordinatesIsNotConstructed)
}

// AddressParts collects the inputs of NewAddressLocation.
type AddressParts struct {
	Street      string
	Number      string
	District    string
	City        string
	Region      string
	PostalCode  string
	Coordinates *Coordinates
}

// AddressLocation is an immutable postal address with optional coordinates.
// Two addresses are equal when all of their parts are equal, so == and
// IsEqual can be used interchangeably.
type AddressLocation struct {
	street      string
	number      string
	district    string
	city        string
	region      string
	postalCode  string
	coordinates Coordinates
	hasCoords   bool
	guard       guard.ConstructorGuard
}

// NewAddressLocation validates and builds an address. Street and city are
// required; every other part is optional.
func NewAddressLocation(p AddressParts) (AddressLocation, error) {
	a := AddressLocation{
		street:     strings.TrimSpace(p.Street),
		number:     strings.TrimSpace(p.Number),
		district:   strings.TrimSpace(p.District),
		city:       strings.TrimSpace(p.City),
		region:     strings.TrimSpace(p.Region),
		postalCode: strings.TrimSpace(p.PostalCode),
		guard:      guard.NewConstructorGuard(),
	}

	var err error
	if a.street == "" {
		err = errors.Join(err, errs.NewValueIsRequiredError("street"))
	}
	if a.city == "" {
		err = errors.Join(err, errs.NewValueIsRequiredError("city"))
	}
	if p.Coordinates != nil {
		if cErr := p.Coordinates.Validate(); cErr != nil {
			err = errors.Join(err, cErr)
		}
		a.coordinates = *p.Coordinates
		a.hasCoords = true
	}
	if err != nil {
		return AddressLocation{}, err
	}

	return a, nil
}

func (a AddressLocation) Validate() error {
	return a.guard.Validate(ErrAddressLocationIsNotConstructed)
}

func (a AddressLocation) Street() string { return a.street }
func (a AddressLocation) Number() string { return a.number }
func (a AddressLocation) District() string { return a.district }
func (a AddressLocation) City() string { return a.city }
func (a AddressLocation) Region() string { return a.region }
func (a AddressLocation) PostalCode() string { return a.postalCode }

// Coordinates returns the coordinates and whether the address has any.
func (a AddressLocation) Coordinates() (Coordinates, bool) {
	return a.coordinates, a.hasCoords
}

func (a AddressLocation) IsEqual(other AddressLocation) bool {
	return a == other
}

// Distance estimates the distance in kilometers using LinearDistance.
func (a AddressLocation) Distance(other AddressLocation) float64 {
	return a.DistanceWith(other, LinearDistance{})
}

func (a AddressLocation) DistanceWith(other AddressLocation, strategy DistanceStrategy) float64 {
	return strategy.Distance(a, other)
}

// String renders the address for display, e.g.
// "Main St, 100 - Downtown, Springfield/IL, 62701".
func (a AddressLocation) String() string {
	var b strings.Builder
	b.WriteString(a.street)
	if a.number != "" {
		b.WriteString(", ")
		b.WriteString(a.number)
	}
	if a.district != "" {
		b.WriteString(" - ")
		b.WriteString(a.district)
	}
	b.WriteString(", ")
	b.WriteString(a.city)
	if a.region != "" {
		b.WriteString("/")
		b.WriteString(a.region)
	}
	if a.postalCode != "" {
		b.WriteString(", ")
		b.WriteString(a.postalCode)
	}
	return b.String()
}

// DistanceStrategy estimates the distance in kilometers between two addresses.
type DistanceStrategy interface {
	Distance(from, to AddressLocation) float64
}

// DistanceFunc adapts a plain function to DistanceStrategy.
type DistanceFunc func(from, to AddressLocation) float64

func (f DistanceFunc) Distance(from, to AddressLocation) float64 {
	return f(from, to)
}

// LinearDistance treats degrees as a flat grid: the euclidean distance between
// the coordinate pairs scaled by KilometersPerDegree. When either side lacks
// coordinates it reports PlaceholderKm (PlaceholderDistanceKm if unset).
type LinearDistance struct {
	PlaceholderKm float64
}

func (l LinearDistance) Distance(from, to AddressLocation) float64 {
	fc, okFrom := from.Coordinates()
	tc, okTo := to.Coordinates()
	if !okFrom || !okTo {
		if l.PlaceholderKm > 0 {
			return l.PlaceholderKm
		}
		return PlaceholderDistanceKm
	}

	dLat := fc.lat - tc.lat
	dLng := fc.lng - tc.lng
	return math.Sqrt(dLat*dLat+dLng*dLng) * KilometersPerDegree
}
