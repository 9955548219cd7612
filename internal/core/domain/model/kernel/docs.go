// Package kernel holds the value objects shared by the dispatch aggregates:
// UUID identifiers, Coordinates, and the immutable AddressLocation with its
// pluggable DistanceStrategy.
//
// Distances follow a deliberately simple linear formula (coordinate deltas on a
// flat grid) with a fixed placeholder when coordinates are missing. Callers that
// need real routing plug in their own DistanceStrategy.
package kernel
