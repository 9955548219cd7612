package dispatch

import (
	"context"
	"fmt"

	"dispatch/internal/core/domain/model/driver"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
)

// RateDriver folds a customer score in [0, 5] into the driver's average.
func (s *Service) RateDriver(ctx context.Context, driverID kernel.UUID, score float64) (*driver.Driver, error) {
	var rated *driver.Driver
	err := s.inTx(ctx, func(uow UoW) error {
		drv, err := uow.DriverRepository().Get(ctx, driverID)
		if err != nil {
			return err
		}
		if err = drv.AddRating(score); err != nil {
			return err
		}
		if err = uow.DriverRepository().Update(ctx, drv); err != nil {
			return err
		}
		rated = drv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rated, nil
}

// SetDriverAvailability lets a driver go online (Available) or offline
// (Unavailable). OnDelivery is only ever set by assignment.
func (s *Service) SetDriverAvailability(
	ctx context.Context,
	driverID kernel.UUID,
	availability driver.Availability,
) (*driver.Driver, error) {
	var updated *driver.Driver
	err := s.inTx(ctx, func(uow UoW) error {
		drv, err := uow.DriverRepository().Get(ctx, driverID)
		if err != nil {
			return err
		}

		before := drv.Availability()
		switch availability {
		case driver.Available:
			err = drv.GoOnline()
		case driver.Unavailable:
			err = drv.GoOffline()
		default:
			err = errs.NewValueIsInvalidErrorWithCause(
				"availability",
				fmt.Errorf("%s cannot be set directly", availability),
			)
		}
		if err != nil {
			return err
		}

		swapped, err := uow.DriverRepository().CompareAndSwap(ctx, drv, before)
		if err != nil {
			return err
		}
		if !swapped {
			return fmt.Errorf("%w: driver %s", ports.ErrConcurrentUpdate, drv.ID())
		}
		updated = drv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
