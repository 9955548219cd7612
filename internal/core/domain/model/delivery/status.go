package delivery

import (
	"errors"
	"fmt"

	"dispatch/internal/pkg/errs"
)

// Status is the lifecycle state of a delivery.
//
//	AwaitingAcceptance ─> Accepted ─> EnRouteToPickup ─> PickedUp ─> InTransit ─> Delivered
//	        │                 │              │               │            │
//	        └─────────────────┴──────────────┴───────────────┴────────────┴──> Cancelled
//
// Accepted and EnRouteToPickup can also fall back to AwaitingAcceptance on reassignment.
type Status int

const (
	// StatusUnknown catches uninitialized values.
	StatusUnknown Status = iota
	AwaitingAcceptance
	Accepted
	EnRouteToPickup
	PickedUp
	InTransit
	Delivered
	Cancelled
)

// Action names a requested transition in InvalidStateTransitionError.
type Action string

const (
	ActionAccept           Action = "accept"
	ActionDepartForPickup  Action = "depart for pickup"
	ActionConfirmPickup    Action = "confirm pickup"
	ActionDepartForDropoff Action = "depart for dropoff"
	ActionConfirmDelivery  Action = "confirm delivery"
	ActionCancel           Action = "cancel"
	ActionReassign         Action = "reassign"
	ActionStartPickup      Action = "start pickup"
	ActionComplete         Action = "complete delivery"
)

// ErrInvalidStateTransition matches every InvalidStateTransitionError.
var ErrInvalidStateTransition = errors.New("invalid state transition")

// InvalidStateTransitionError reports an action that the current status does not allow.
type InvalidStateTransitionError struct {
	Current Status
	Action  Action
}

// NewInvalidStateTransitionError records the status the action was attempted in.
func NewInvalidStateTransitionError(current Status, action Action) *InvalidStateTransitionError {
	return &InvalidStateTransitionError{Current: current, Action: action}
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s a delivery in status %s", ErrInvalidStateTransition, e.Action, e.Current)
}

func (e *InvalidStateTransitionError) Unwrap() error {
	return ErrInvalidStateTransition
}

func getStatusStrings() map[Status]string {
	return map[Status]string{
		StatusUnknown:      "Unknown",
		AwaitingAcceptance: "AwaitingAcceptance",
		Accepted:           "Accepted",
		EnRouteToPickup:    "EnRouteToPickup",
		PickedUp:           "PickedUp",
		InTransit:          "InTransit",
		Delivered:          "Delivered",
		Cancelled:          "Cancelled",
	}
}

func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "Unknown"
}

// Validate rejects StatusUnknown and values outside the defined range.
func (s Status) Validate() error {
	if s <= StatusUnknown || s > Cancelled {
		return errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%d is not a valid delivery status", s))
	}
	return nil
}

// ParseStatus maps the textual form back to the value.
func ParseStatus(str string) (Status, error) {
	for s, name := range getStatusStrings() {
		if s != StatusUnknown && name == str {
			return s, nil
		}
	}
	return StatusUnknown, errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%q is not a valid delivery status", str))
}

// HasDriver reports whether a delivery in this status must reference a driver.
func (s Status) HasDriver() bool {
	switch s {
	case Accepted, EnRouteToPickup, PickedUp, InTransit:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == Delivered || s == Cancelled
}

// InTransitLike reports whether the delivery is physically moving towards
// completion and can therefore be overdue.
func (s Status) InTransitLike() bool {
	return s == EnRouteToPickup || s == PickedUp || s == InTransit
}

// Accept returns Accepted for AwaitingAcceptance.
//
// Returns:
//   - Status: the next status
//   - error: an InvalidStateTransitionError naming ActionAccept from any other status
func (s Status) Accept() (Status, error) {
	return s.step(AwaitingAcceptance, Accepted, ActionAccept)
}

// DepartForPickup returns EnRouteToPickup for Accepted.
func (s Status) DepartForPickup() (Status, error) {
	return s.step(Accepted, EnRouteToPickup, ActionDepartForPickup)
}

// ConfirmPickup returns PickedUp for EnRouteToPickup.
func (s Status) ConfirmPickup() (Status, error) {
	return s.step(EnRouteToPickup, PickedUp, ActionConfirmPickup)
}

// DepartForDropoff returns InTransit for PickedUp.
func (s Status) DepartForDropoff() (Status, error) {
	return s.step(PickedUp, InTransit, ActionDepartForDropoff)
}

// ConfirmDelivery returns Delivered for InTransit.
func (s Status) ConfirmDelivery() (Status, error) {
	return s.step(InTransit, Delivered, ActionConfirmDelivery)
}

// Cancel is allowed from every status except Delivered. Cancelling a
// cancelled delivery is a no-op.
func (s Status) Cancel() (Status, error) {
	if s == Delivered || s.Validate() != nil {
		return StatusUnknown, NewInvalidStateTransitionError(s, ActionCancel)
	}
	return Cancelled, nil
}

// Reset returns a delivery to AwaitingAcceptance for reassignment. Only
// deliveries whose goods are not yet with a driver can be reset.
func (s Status) Reset() (Status, error) {
	switch s {
	case AwaitingAcceptance, Accepted, EnRouteToPickup:
		return AwaitingAcceptance, nil
	default:
		return StatusUnknown, NewInvalidStateTransitionError(s, ActionReassign)
	}
}

// next is the single forward step out of s, if any.
func (s Status) next() (Status, error) {
	switch s {
	case Accepted:
		return s.DepartForPickup()
	case EnRouteToPickup:
		return s.ConfirmPickup()
	case PickedUp:
		return s.DepartForDropoff()
	case InTransit:
		return s.ConfirmDelivery()
	default:
		return StatusUnknown, NewInvalidStateTransitionError(s, ActionDepartForPickup)
	}
}

func (s Status) step(from, to Status, action Action) (Status, error) {
	if s != from {
		return StatusUnknown, NewInvalidStateTransitionError(s, action)
	}
	return to, nil
}
