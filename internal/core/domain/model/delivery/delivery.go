package delivery

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

var (
	// ErrOrderIDIsRequired is returned when the order reference is blank.
	ErrOrderIDIsRequired = errs.NewValueIsRequiredError("orderId")

	// ErrFeeIsNegative is returned for a fee below zero.
	ErrFeeIsNegative = errs.NewValueIsInvalidErrorWithCause("fee", errors.New("fee cannot be negative"))

	// ErrDeliveryIsNotConstructed is returned by Validate for a zero-value Delivery.
	ErrDeliveryIsNotConstructed = errors.New("Delivery must be created via NewDelivery or RestoreDelivery")
)

// Delivery is the aggregate root binding one order to at most one driver.
//
// Invariants:
//   - driverID is set if and only if Status().HasDriver()
//   - nothing leaves Delivered
//   - Cancelled clears the driver
type Delivery struct {
	id                    kernel.UUID
	orderID               string
	driverID              *kernel.UUID
	deliveredBy           *kernel.UUID
	pickup                kernel.AddressLocation
	dropoff               kernel.AddressLocation
	status                Status
	fee                   float64
	estimatedCompletionAt time.Time
	notes                 string
	cancelReason          string
	createdAt             time.Time
	guard                 guard.ConstructorGuard
}

// NewDelivery creates a delivery in AwaitingAcceptance with no driver bound.
//
// Parameters:
//   - id: identifier of the delivery (must be a valid UUID)
//   - orderID: the confirmed order this delivery fulfils (required)
//   - pickup, dropoff: constructed addresses
//   - fee: quoted fee, never negative
//   - createdAt, estimatedCompletionAt: creation time and the quoted ETA
//   - notes: free text for the driver, trimmed
//
// Returns:
//   - *Delivery: the new delivery when every value is valid
//   - error: the joined validation errors otherwise
//
// Example:
//
//	quote := estimator.Estimate(pickup, dropoff)
//	d, err := delivery.NewDelivery(kernel.NewUUID(), "order-42", pickup, dropoff,
//	    quote.Fee, now, now.Add(time.Duration(quote.ETAMinutes)*time.Minute), "")
//	if err != nil {
//	    // reject the order
//	}
func NewDelivery(
	id kernel.UUID,
	orderID string,
	pickup, dropoff kernel.AddressLocation,
	fee float64,
	createdAt, estimatedCompletionAt time.Time,
	notes string,
) (*Delivery, error) {
	d := &Delivery{
		status:                AwaitingAcceptance,
		createdAt:             createdAt,
		estimatedCompletionAt: estimatedCompletionAt,
		notes:                 strings.TrimSpace(notes),
		guard:                 guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		d.setID(id),
		d.setOrderID(orderID),
		d.setAddresses(pickup, dropoff),
		d.setFee(fee),
	); err != nil {
		return nil, err
	}

	return d, nil
}

// RestoreParams carries persisted state into RestoreDelivery.
type RestoreParams struct {
	ID                    kernel.UUID
	OrderID               string
	DriverID              *kernel.UUID
	DeliveredBy           *kernel.UUID
	Pickup                kernel.AddressLocation
	Dropoff               kernel.AddressLocation
	Status                Status
	Fee                   float64
	EstimatedCompletionAt time.Time
	Notes                 string
	CancelReason          string
	CreatedAt             time.Time
}

// RestoreDelivery rebuilds a delivery from persistence, re-checking every invariant.
func RestoreDelivery(p RestoreParams) (*Delivery, error) {
	d := &Delivery{
		driverID:              p.DriverID,
		deliveredBy:           p.DeliveredBy,
		status:                p.Status,
		estimatedCompletionAt: p.EstimatedCompletionAt,
		notes:                 p.Notes,
		cancelReason:          p.CancelReason,
		createdAt:             p.CreatedAt,
		guard:                 guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		d.setID(p.ID),
		d.setOrderID(p.OrderID),
		d.setAddresses(p.Pickup, p.Dropoff),
		d.setFee(p.Fee),
		p.Status.Validate(),
		d.validateDriverBinding(),
	); err != nil {
		return nil, err
	}

	return d, nil
}

// Validate reports ErrDeliveryIsNotConstructed for a Delivery that bypassed
// NewDelivery and RestoreDelivery.
func (d *Delivery) Validate() error {
	if d == nil {
		return ErrDeliveryIsNotConstructed
	}
	return d.guard.Validate(ErrDeliveryIsNotConstructed)
}

// IsEqual compares deliveries by identifier. A nil other is never equal.
func (d *Delivery) IsEqual(other *Delivery) bool {
	return other != nil && d.id.IsEqual(other.id)
}

// ID returns the delivery's unique identifier.
func (d *Delivery) ID() kernel.UUID { return d.id }

// OrderID returns the order the delivery fulfils.
func (d *Delivery) OrderID() string { return d.orderID }

// Pickup returns where the driver collects the goods.
func (d *Delivery) Pickup() kernel.AddressLocation { return d.pickup }

// Dropoff returns where the goods are delivered.
func (d *Delivery) Dropoff() kernel.AddressLocation { return d.dropoff }

// Status returns the current lifecycle state.
func (d *Delivery) Status() Status { return d.status }

// Fee returns the quoted delivery fee.
func (d *Delivery) Fee() float64 { return d.fee }

// EstimatedCompletionAt returns when the delivery is expected to be Delivered.
func (d *Delivery) EstimatedCompletionAt() time.Time { return d.estimatedCompletionAt }

func (d *Delivery) Notes() string { return d.notes }

// CancelReason is empty unless the delivery was cancelled with a reason.
func (d *Delivery) CancelReason() string { return d.cancelReason }

func (d *Delivery) CreatedAt() time.Time { return d.createdAt }

// DriverID returns the bound driver, or nil outside the driver-bound statuses.
func (d *Delivery) DriverID() *kernel.UUID {
	if d.driverID == nil {
		return nil
	}
	id := *d.driverID
	return &id
}

// DeliveredBy returns the driver that completed the delivery, if it was delivered.
func (d *Delivery) DeliveredBy() *kernel.UUID {
	if d.deliveredBy == nil {
		return nil
	}
	id := *d.deliveredBy
	return &id
}

// IsAssignedTo reports whether driverID is the currently bound driver.
func (d *Delivery) IsAssignedTo(driverID kernel.UUID) bool {
	return d.driverID != nil && d.driverID.IsEqual(driverID)
}

// IsOverdue reports whether an in-transit-like delivery has passed its estimate.
func (d *Delivery) IsOverdue(now time.Time) bool {
	return d.status.InTransitLike() && d.estimatedCompletionAt.Before(now)
}

// Accept binds the driver and moves AwaitingAcceptance to Accepted.
//
// Parameters:
//   - driverID: the accepting driver (must be a valid UUID)
//
// Returns:
//   - nil on success
//   - an InvalidStateTransitionError when the delivery is not AwaitingAcceptance
//
// Accept only changes the aggregate. Callers persist it with a conditional
// write on the previous status so that one of several racing acceptances wins.
func (d *Delivery) Accept(driverID kernel.UUID) error {
	if err := driverID.Validate(); err != nil {
		return err
	}
	next, err := d.status.Accept()
	if err != nil {
		return err
	}
	d.status = next
	d.driverID = &driverID
	return nil
}

// DepartForPickup moves Accepted to EnRouteToPickup.
func (d *Delivery) DepartForPickup() error {
	return d.apply(d.status.DepartForPickup)
}

// ConfirmPickup moves EnRouteToPickup to PickedUp once the driver holds the goods.
func (d *Delivery) ConfirmPickup() error {
	return d.apply(d.status.ConfirmPickup)
}

// DepartForDropoff moves PickedUp to InTransit.
func (d *Delivery) DepartForDropoff() error {
	return d.apply(d.status.DepartForDropoff)
}

// ConfirmDelivery moves InTransit to Delivered and releases the driver binding,
// remembering the driver in DeliveredBy.
func (d *Delivery) ConfirmDelivery() error {
	next, err := d.status.ConfirmDelivery()
	if err != nil {
		return err
	}
	d.status = next
	d.deliveredBy = d.driverID
	d.driverID = nil
	return nil
}

// Cancel moves any status except Delivered to Cancelled and clears the driver.
//
// Parameters:
//   - reason: free text kept in CancelReason, trimmed
//
// Returns:
//   - nil on success, and for a delivery that is already Cancelled (the first
//     reason is kept)
//   - an InvalidStateTransitionError for a Delivered delivery
//
// Example:
//
//	driverID := d.DriverID() // read before cancelling, Cancel clears it
//	if err := d.Cancel("customer changed their mind"); err != nil {
//	    return err
//	}
func (d *Delivery) Cancel(reason string) error {
	if d.status == Cancelled {
		return nil
	}
	next, err := d.status.Cancel()
	if err != nil {
		return err
	}
	d.status = next
	d.driverID = nil
	d.cancelReason = strings.TrimSpace(reason)
	return nil
}

// ResetForReassignment clears the driver and returns to AwaitingAcceptance.
// Only AwaitingAcceptance, Accepted and EnRouteToPickup can be reset: once the
// goods are picked up the delivery stays with its driver.
func (d *Delivery) ResetForReassignment() error {
	next, err := d.status.Reset()
	if err != nil {
		return err
	}
	d.status = next
	d.driverID = nil
	return nil
}

// AdvanceTo applies forward transitions one at a time until target is reached.
// It fails with an InvalidStateTransitionError naming action when the delivery
// is not driver-bound or already at or past target.
func (d *Delivery) AdvanceTo(target Status, action Action) error {
	if !d.status.HasDriver() || (!target.HasDriver() && target != Delivered) || d.status >= target {
		return NewInvalidStateTransitionError(d.status, action)
	}

	for d.status != target {
		var err error
		if d.status == InTransit {
			err = d.ConfirmDelivery()
		} else {
			err = d.apply(d.status.next)
		}
		if err != nil {
			return NewInvalidStateTransitionError(d.status, action)
		}
	}
	return nil
}

// Clone returns an independent copy, used by stores that hand out aggregates.
func (d *Delivery) Clone() *Delivery {
	c := *d
	c.driverID = d.DriverID()
	c.deliveredBy = d.DeliveredBy()
	return &c
}

func (d *Delivery) apply(transition func() (Status, error)) error {
	next, err := transition()
	if err != nil {
		return err
	}
	d.status = next
	return nil
}

func (d *Delivery) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	d.id = id
	return nil
}

func (d *Delivery) setOrderID(orderID string) error {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return ErrOrderIDIsRequired
	}
	d.orderID = orderID
	return nil
}

func (d *Delivery) setAddresses(pickup, dropoff kernel.AddressLocation) error {
	if err := errors.Join(pickup.Validate(), dropoff.Validate()); err != nil {
		return err
	}
	d.pickup = pickup
	d.dropoff = dropoff
	return nil
}

func (d *Delivery) setFee(fee float64) error {
	if fee < 0 {
		return ErrFeeIsNegative
	}
	d.fee = fee
	return nil
}

func (d *Delivery) validateDriverBinding() error {
	hasDriver := d.driverID != nil
	if hasDriver != d.status.HasDriver() {
		return errs.NewValueIsInvalidErrorWithCause(
			"driverId",
			fmt.Errorf("status %s does not allow driver binding %t", d.status, hasDriver),
		)
	}
	if d.driverID != nil {
		return d.driverID.Validate()
	}
	return nil
}
