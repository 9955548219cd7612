package services

import (
	"cmp"
	"math"
	"slices"

	"dispatch/internal/core/domain/model/driver"
	"dispatch/internal/core/domain/model/kernel"
)

// UnlimitedRadius disables the proximity filter.
var UnlimitedRadius = math.Inf(1)

// DriverRanker orders candidate drivers for a delivery.
//
// Ranking keys, in order:
//  1. rating, descending
//  2. cancellation rate, ascending
//  3. completed deliveries, descending
//  4. driver id, ascending (only to make ties reproducible)
type DriverRanker struct{}

func NewDriverRanker() DriverRanker {
	return DriverRanker{}
}

// Rank returns the available drivers from candidates, best first. The input
// slice is not modified.
func (DriverRanker) Rank(candidates []*driver.Driver) []*driver.Driver {
	ranked := make([]*driver.Driver, 0, len(candidates))
	for _, d := range candidates {
		if d.Validate() == nil && d.IsAvailable() {
			ranked = append(ranked, d)
		}
	}

	slices.SortFunc(ranked, compareDrivers)
	return ranked
}

// Best returns the top ranked driver, or false when nobody qualifies.
func (r DriverRanker) Best(candidates []*driver.Driver) (*driver.Driver, bool) {
	ranked := r.Rank(candidates)
	if len(ranked) == 0 {
		return nil, false
	}
	return ranked[0], true
}

func compareDrivers(a, b *driver.Driver) int {
	sa, sb := a.Stats(), b.Stats()
	if c := cmp.Compare(sb.Rating, sa.Rating); c != 0 {
		return c
	}
	if c := cmp.Compare(sa.CancellationRate(), sb.CancellationRate()); c != 0 {
		return c
	}
	if c := cmp.Compare(sb.CompletedDeliveries, sa.CompletedDeliveries); c != 0 {
		return c
	}
	return cmp.Compare(a.ID().String(), b.ID().String())
}

// WithinRadius keeps the drivers whose distance to near is at most radiusKm.
// Drivers without a known location count as kernel.PlaceholderDistanceKm away.
// An infinite radius keeps everyone.
func WithinRadius(
	drivers []*driver.Driver,
	near kernel.AddressLocation,
	radiusKm float64,
	strategy kernel.DistanceStrategy,
) []*driver.Driver {
	if math.IsInf(radiusKm, 1) || math.IsNaN(radiusKm) {
		return drivers
	}

	out := make([]*driver.Driver, 0, len(drivers))
	for _, d := range drivers {
		distance := kernel.PlaceholderDistanceKm
		if loc, ok := d.Location(); ok {
			distance = loc.DistanceWith(near, strategy)
		}
		if distance <= radiusKm {
			out = append(out, d)
		}
	}
	return out
}
