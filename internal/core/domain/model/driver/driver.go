package driver

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

// Ratings are averaged on a 0 to 5 scale.
const (
	MinRating = 0.0
	MaxRating = 5.0
)

var (
	ErrNameIsRequired    = errs.NewValueIsRequiredError("name")
	ErrContactIsRequired = errs.NewValueIsRequiredError("contact")

	// ErrDriverIsNotConstructed is returned by Validate for a zero-value Driver.
	ErrDriverIsNotConstructed = errors.New("Driver must be created via NewDriver or RestoreDriver")

	// ErrDriverUnavailable is returned when a driver is asked to take a delivery
	// while not Active and Available.
	ErrDriverUnavailable = errors.New("driver unavailable")

	// ErrDriverOnDelivery is returned by lifecycle changes that would strand an
	// in-progress delivery.
	ErrDriverOnDelivery = errors.New("driver is on a delivery")
)

// Stats are the performance counters used to rank drivers.
type Stats struct {
	Rating              float64
	RatingsCount        int
	CompletedDeliveries int
	Cancellations       int
}

// CancellationRate is cancellations / max(1, completed + cancellations).
func (s Stats) CancellationRate() float64 {
	total := s.CompletedDeliveries + s.Cancellations
	if total < 1 {
		total = 1
	}
	return float64(s.Cancellations) / float64(total)
}

// Driver is the aggregate root for a delivery driver. Status and availability
// are independent axes joined by one rule: Available and OnDelivery require
// status Active.
type Driver struct {
	id           kernel.UUID
	name         string
	contact      string
	vehicle      string
	status       Status
	availability Availability
	stats        Stats
	location     *kernel.AddressLocation
	guard        guard.ConstructorGuard
}

// NewDriver registers an Active driver that is not yet taking work.
//
// Parameters:
//   - id: identifier of the driver (must be a valid UUID)
//   - name, contact: required, trimmed
//   - vehicle: optional description, trimmed
//
// Returns:
//   - *Driver: an Active, Unavailable driver with empty stats and no location
//   - error: the joined validation errors
//
// Example:
//
//	d, err := driver.NewDriver(kernel.NewUUID(), "Ann", "+1 555 0100", "bike")
//	if err != nil {
//	    return err
//	}
//	_ = d.GoOnline() // now IsAvailable
func NewDriver(id kernel.UUID, name, contact, vehicle string) (*Driver, error) {
	d := &Driver{
		vehicle:      strings.TrimSpace(vehicle),
		status:       Active,
		availability: Unavailable,
		guard:        guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		d.setID(id),
		d.setName(name),
		d.setContact(contact),
	); err != nil {
		return nil, err
	}

	return d, nil
}

// RestoreDriver rebuilds a driver from persistence, re-checking every invariant.
func RestoreDriver(
	id kernel.UUID,
	name, contact, vehicle string,
	status Status,
	availability Availability,
	stats Stats,
	location *kernel.AddressLocation,
) (*Driver, error) {
	d := &Driver{
		vehicle:      strings.TrimSpace(vehicle),
		status:       status,
		availability: availability,
		location:     location,
		guard:        guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		d.setID(id),
		d.setName(name),
		d.setContact(contact),
		status.Validate(),
		availability.Validate(),
		validatePair(status, availability),
		d.setStats(stats),
	); err != nil {
		return nil, err
	}

	return d, nil
}

// Validate reports ErrDriverIsNotConstructed for a Driver that bypassed the constructors.
func (d *Driver) Validate() error {
	if d == nil {
		return ErrDriverIsNotConstructed
	}
	return d.guard.Validate(ErrDriverIsNotConstructed)
}

// IsEqual compares drivers by identifier. A nil other is never equal.
func (d *Driver) IsEqual(other *Driver) bool {
	return other != nil && d.id.IsEqual(other.id)
}

// ID returns the driver's unique identifier.
func (d *Driver) ID() kernel.UUID { return d.id }

func (d *Driver) Name() string { return d.name }
func (d *Driver) Contact() string { return d.contact }
func (d *Driver) Vehicle() string { return d.vehicle }

// Status returns the account status.
func (d *Driver) Status() Status { return d.status }

// Availability returns whether the driver is taking, or already on, a delivery.
func (d *Driver) Availability() Availability { return d.availability }

// Stats returns a copy of the ranking counters.
func (d *Driver) Stats() Stats { return d.stats }

// Rating returns the running average of every score received.
func (d *Driver) Rating() float64 { return d.stats.Rating }

// CancellationRate is a shortcut for Stats().CancellationRate().
func (d *Driver) CancellationRate() float64 { return d.stats.CancellationRate() }

// Location returns the last known base address and false when none was recorded.
func (d *Driver) Location() (kernel.AddressLocation, bool) {
	if d.location == nil {
		return kernel.AddressLocation{}, false
	}
	return *d.location, true
}

// IsAvailable reports whether the driver can take a new delivery.
func (d *Driver) IsAvailable() bool {
	return d.status == Active && d.availability == Available
}

// ActivateForDelivery marks an available driver OnDelivery.
//
// Returns:
//   - nil on success
//   - ErrDriverUnavailable, wrapped with the current status and availability,
//     when IsAvailable is false
func (d *Driver) ActivateForDelivery() error {
	if !d.IsAvailable() {
		return fmt.Errorf("%w: driver %s is %s/%s", ErrDriverUnavailable, d.id, d.status, d.availability)
	}
	d.availability = OnDelivery
	return nil
}

// ReleaseAfterDelivery frees the driver and records the outcome. A driver that
// was deactivated or suspended meanwhile becomes Unavailable instead.
func (d *Driver) ReleaseAfterDelivery(wasCancelled bool) {
	d.Release()

	if wasCancelled {
		d.stats.Cancellations++
	} else {
		d.stats.CompletedDeliveries++
	}
}

// Release frees the driver without touching the counters, as when a delivery
// is handed to someone else.
func (d *Driver) Release() {
	if d.status == Active {
		d.availability = Available
	} else {
		d.availability = Unavailable
	}
}

// AddRating folds score into the running average:
//
//	newAvg = (avg*count + score) / (count + 1)
//
// Parameters:
//   - score: between MinRating and MaxRating inclusive
//
// Returns:
//   - nil on success
//   - a ValueIsOutOfRangeError for a score outside the scale (the stats are unchanged)
func (d *Driver) AddRating(score float64) error {
	if score < MinRating || score > MaxRating || math.IsNaN(score) {
		return errs.NewValueIsOutOfRangeError("score", score, MinRating, MaxRating)
	}

	count := float64(d.stats.RatingsCount)
	d.stats.Rating = (d.stats.Rating*count + score) / (count + 1)
	d.stats.RatingsCount++
	return nil
}

// GoOnline makes an Active driver Available.
func (d *Driver) GoOnline() error {
	if d.status != Active {
		return fmt.Errorf("%w: driver %s is %s", ErrDriverUnavailable, d.id, d.status)
	}
	if d.availability == OnDelivery {
		return ErrDriverOnDelivery
	}
	d.availability = Available
	return nil
}

// GoOffline stops the driver from receiving new work.
func (d *Driver) GoOffline() error {
	if d.availability == OnDelivery {
		return ErrDriverOnDelivery
	}
	d.availability = Unavailable
	return nil
}

// Activate restores an Inactive or Suspended driver to Active. The driver
// stays Unavailable until GoOnline.
func (d *Driver) Activate() {
	if d.status != Active {
		d.status = Active
		d.availability = Unavailable
	}
}

// Deactivate makes the driver Inactive and Unavailable. It fails with
// ErrDriverOnDelivery while a delivery is in progress.
func (d *Driver) Deactivate() error {
	return d.leaveActive(Inactive)
}

// Suspend makes the driver Suspended and Unavailable. It fails with
// ErrDriverOnDelivery while a delivery is in progress.
func (d *Driver) Suspend() error {
	return d.leaveActive(Suspended)
}

func (d *Driver) leaveActive(target Status) error {
	if d.availability == OnDelivery {
		return ErrDriverOnDelivery
	}
	d.status = target
	d.availability = Unavailable
	return nil
}

// UpdateLocation records the driver's current base address.
func (d *Driver) UpdateLocation(location kernel.AddressLocation) error {
	if err := location.Validate(); err != nil {
		return err
	}
	d.location = &location
	return nil
}

// Clone returns an independent copy, used by stores that hand out aggregates.
func (d *Driver) Clone() *Driver {
	c := *d
	if d.location != nil {
		loc := *d.location
		c.location = &loc
	}
	return &c
}

func (d *Driver) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	d.id = id
	return nil
}

func (d *Driver) setName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameIsRequired
	}
	d.name = name
	return nil
}

func (d *Driver) setContact(contact string) error {
	contact = strings.TrimSpace(contact)
	if contact == "" {
		return ErrContactIsRequired
	}
	d.contact = contact
	return nil
}

func (d *Driver) setStats(s Stats) error {
	var err error
	if s.Rating < MinRating || s.Rating > MaxRating {
		err = errors.Join(err, errs.NewValueIsOutOfRangeError("rating", s.Rating, MinRating, MaxRating))
	}
	if s.RatingsCount < 0 || s.CompletedDeliveries < 0 || s.Cancellations < 0 {
		err = errors.Join(err, errs.NewValueIsInvalidErrorWithCause("stats", errors.New("counters cannot be negative")))
	}
	if err != nil {
		return err
	}
	d.stats = s
	return nil
}
