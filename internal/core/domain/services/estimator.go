package services

import (
	"errors"
	"math"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
)

// roundingTolerance absorbs float noise before rounding minutes up.
const roundingTolerance = 1e-9

// Pricing holds the tariff used by Estimator.
type Pricing struct {
	AvgSpeedKmh float64
	PrepMinutes float64
	BaseFee     float64
	PerKmRate   float64
}

func (p Pricing) Validate() error {
	var err error
	if p.AvgSpeedKmh <= 0 {
		err = errors.Join(err, errs.NewValueIsInvalidErrorWithCause("avgSpeedKmh", errors.New("must be positive")))
	}
	if p.PrepMinutes < 0 {
		err = errors.Join(err, errs.NewValueIsInvalidErrorWithCause("prepMinutes", errors.New("cannot be negative")))
	}
	if p.BaseFee < 0 {
		err = errors.Join(err, errs.NewValueIsInvalidErrorWithCause("baseFee", errors.New("cannot be negative")))
	}
	if p.PerKmRate < 0 {
		err = errors.Join(err, errs.NewValueIsInvalidErrorWithCause("perKmRate", errors.New("cannot be negative")))
	}
	return err
}

// Quote is the result of an estimate.
type Quote struct {
	DistanceKm float64
	ETAMinutes int
	Fee        float64
}

// Estimator prices a trip and predicts its duration.
type Estimator struct {
	pricing  Pricing
	strategy kernel.DistanceStrategy
}

// NewEstimator uses kernel.LinearDistance when strategy is nil.
func NewEstimator(pricing Pricing, strategy kernel.DistanceStrategy) (Estimator, error) {
	if err := pricing.Validate(); err != nil {
		return Estimator{}, err
	}
	if strategy == nil {
		strategy = kernel.LinearDistance{}
	}
	return Estimator{pricing: pricing, strategy: strategy}, nil
}

func (e Estimator) Strategy() kernel.DistanceStrategy {
	return e.strategy
}

// Estimate computes
//
//	eta = ceil(distance / avgSpeed * 60 + prepMinutes)
//	fee = round2(baseFee + distance * perKmRate)
func (e Estimator) Estimate(pickup, dropoff kernel.AddressLocation) Quote {
	return e.EstimateDistance(pickup.DistanceWith(dropoff, e.strategy))
}

func (e Estimator) EstimateDistance(distanceKm float64) Quote {
	minutes := distanceKm/e.pricing.AvgSpeedKmh*60 + e.pricing.PrepMinutes
	return Quote{
		DistanceKm: distanceKm,
		ETAMinutes: int(math.Ceil(minutes - roundingTolerance)),
		Fee:        math.Round((e.pricing.BaseFee+distanceKm*e.pricing.PerKmRate)*100) / 100,
	}
}
