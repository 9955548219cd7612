// Package services holds the stateless domain services used by dispatch:
// DriverRanker orders candidate drivers, WithinRadius applies the proximity
// filter, and Estimator prices a trip and predicts its duration.
package services
