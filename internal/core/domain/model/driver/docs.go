// Package driver models the delivery driver aggregate.
//
// A driver carries two orthogonal state axes:
//
//	Status:       Active | Inactive | Suspended      (administrative)
//	Availability: Available | OnDelivery | Unavailable (operational)
//
// Available and OnDelivery are only valid while Active. Dispatch moves a driver
// Available -> OnDelivery with ActivateForDelivery and back with
// ReleaseAfterDelivery, which also updates the completed/cancelled counters that
// feed the ranking.
package driver
