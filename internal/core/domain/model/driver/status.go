package driver

import (
	"fmt"

	"dispatch/internal/pkg/errs"
)

// Status is the administrative lifecycle of a driver, set by onboarding and
// back-office processes.
type Status int

const (
	// StatusUnknown catches uninitialized values.
	StatusUnknown Status = iota
	// Active drivers may go online and take deliveries.
	Active
	// Inactive drivers left the fleet, voluntarily or not.
	Inactive
	// Suspended drivers are blocked pending a back-office review.
	Suspended
)

func getStatusStrings() map[Status]string {
	return map[Status]string{
		StatusUnknown: "Unknown",
		Active:        "Active",
		Inactive:      "Inactive",
		Suspended:     "Suspended",
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
	if s == StatusUnknown || s > Suspended || s < StatusUnknown {
		return errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%d is not a valid driver status", s))
	}
	return nil
}

// Availability is the operational axis: whether the driver can take work right now.
// Available and OnDelivery are only meaningful while the driver is Active.
type Availability int

const (
	// AvailabilityUnknown catches uninitialized values.
	AvailabilityUnknown Availability = iota
	Available
	OnDelivery
	Unavailable
)

func getAvailabilityStrings() map[Availability]string {
	return map[Availability]string{
		AvailabilityUnknown: "Unknown",
		Available:           "Available",
		OnDelivery:          "OnDelivery",
		Unavailable:         "Unavailable",
	}
}

func (a Availability) String() string {
	if str, ok := getAvailabilityStrings()[a]; ok {
		return str
	}
	return "Unknown"
}

// Validate rejects AvailabilityUnknown and values outside the defined range.
func (a Availability) Validate() error {
	if a == AvailabilityUnknown || a > Unavailable || a < AvailabilityUnknown {
		return errs.NewValueIsInvalidErrorWithCause("availability", fmt.Errorf("%d is not a valid availability", a))
	}
	return nil
}

// ParseAvailability maps the textual form ("Available", "Unavailable", ...) back to the value.
func ParseAvailability(s string) (Availability, error) {
	for a, str := range getAvailabilityStrings() {
		if a != AvailabilityUnknown && str == s {
			return a, nil
		}
	}
	return AvailabilityUnknown, errs.NewValueIsInvalidErrorWithCause("availability", fmt.Errorf("%q is not a valid availability", s))
}

// validatePair enforces that Available and OnDelivery only occur while Active.
func validatePair(s Status, a Availability) error {
	if s != Active && (a == Available || a == OnDelivery) {
		return errs.NewValueIsInvalidErrorWithCause(
			"availability",
			fmt.Errorf("%s driver cannot be %s", s, a),
		)
	}
	return nil
}
