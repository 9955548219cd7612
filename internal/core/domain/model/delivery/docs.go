// Package delivery models the delivery aggregate and its lifecycle state machine.
//
// A delivery is created AwaitingAcceptance for one order, bound to a driver on
// Accept, and then moves forward one step at a time until Delivered. Cancel is
// possible from anywhere except Delivered. Every disallowed transition fails
// with an *InvalidStateTransitionError that names the current status and the
// attempted action; nothing is silently ignored.
package delivery
