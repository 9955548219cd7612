package dispatch

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/driver"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
)

// maxAssignAttempts bounds how many drivers one AutoAssign call tries when
// concurrent assignments keep taking the chosen driver.
const maxAssignAttempts = 3

// FindBestDriver returns the best available driver for d, or nil when nobody
// is available. Drivers within the search radius of the pickup are preferred;
// when there are none, every available driver is considered.
func (s *Service) FindBestDriver(ctx context.Context, d *delivery.Delivery) (*driver.Driver, error) {
	return s.findBestDriver(ctx, s.uowFactory.Create().DriverRepository(), d.Pickup())
}

// findBestDriver skips the drivers listed in exclude.
func (s *Service) findBestDriver(
	ctx context.Context,
	drivers ports.DriverRepository,
	pickup kernel.AddressLocation,
	exclude ...kernel.UUID,
) (*driver.Driver, error) {
	for _, radius := range []float64{s.cfg.SearchRadiusKm, services.UnlimitedRadius} {
		candidates, err := drivers.FindAvailable(ctx, ports.AvailabilityQuery{Near: &pickup, RadiusKm: radius})
		if err != nil {
			return nil, err
		}
		candidates = without(candidates, exclude)
		if best, ok := s.ranker.Best(candidates); ok {
			return best, nil
		}
	}
	return nil, nil
}

// AutoAssign binds the best available driver to an AwaitingAcceptance delivery.
// It reports false without changing anything when the delivery is in any other
// status or when no driver is available. When a concurrent assignment takes
// the chosen driver first, the next best driver is tried.
func (s *Service) AutoAssign(ctx context.Context, deliveryID kernel.UUID) (bool, error) {
	a, err := s.autoAssign(ctx, deliveryID)
	if err != nil {
		return false, err
	}
	if a == nil {
		return false, nil
	}
	s.publish(ctx, a.events()...)
	return true, nil
}

// autoAssign moves on to the next best driver when a concurrent assignment
// takes the chosen one, at most maxAssignAttempts times.
func (s *Service) autoAssign(ctx context.Context, deliveryID kernel.UUID) (*assignment, error) {
	var lost []kernel.UUID
	for attempt := 1; attempt <= maxAssignAttempts; attempt++ {
		result, chosen, err := s.tryAutoAssign(ctx, deliveryID, lost)
		switch {
		case errors.Is(err, ports.ErrAlreadyAssigned):
			return nil, nil
		case errors.Is(err, driver.ErrDriverUnavailable) && chosen != nil:
			s.logger.Debug().
				Str("delivery_id", deliveryID.String()).
				Str("driver_id", chosen.String()).
				Int("attempt", attempt).
				Msg("driver taken by another assignment, trying the next one")
			lost = append(lost, *chosen)
			continue
		case err != nil:
			return nil, err
		}

		if result != nil {
			s.recorder.Assigned(ModeAuto)
		}
		return result, nil
	}

	s.recorder.NoDriverAvailable()
	return nil, nil
}

// tryAutoAssign runs one assignment attempt in its own unit of work and
// reports the driver it tried to bind.
func (s *Service) tryAutoAssign(
	ctx context.Context,
	deliveryID kernel.UUID,
	exclude []kernel.UUID,
) (*assignment, *kernel.UUID, error) {
	var (
		result *assignment
		chosen *kernel.UUID
	)
	err := s.inTx(ctx, func(uow UoW) error {
		d, err := uow.DeliveryRepository().Get(ctx, deliveryID)
		if err != nil {
			return err
		}
		if d.Status() != delivery.AwaitingAcceptance {
			return nil
		}

		best, err := s.findBestDriver(ctx, uow.DriverRepository(), d.Pickup(), exclude...)
		if err != nil {
			return err
		}
		if best == nil {
			s.recorder.NoDriverAvailable()
			return nil
		}

		id := best.ID()
		chosen = &id
		result, err = s.bind(ctx, uow, d, best)
		return err
	})
	if err != nil {
		return nil, chosen, err
	}
	return result, chosen, nil
}

// ManualAccept lets a driver claim a pending delivery. Exactly one of several
// concurrent claims succeeds; the others fail with ports.ErrAlreadyAssigned.
func (s *Service) ManualAccept(ctx context.Context, deliveryID, driverID kernel.UUID) error {
	var result *assignment
	err := s.inTx(ctx, func(uow UoW) error {
		d, err := uow.DeliveryRepository().Get(ctx, deliveryID)
		if err != nil {
			return err
		}
		drv, err := uow.DriverRepository().Get(ctx, driverID)
		if err != nil {
			return err
		}

		if !drv.IsAvailable() {
			return fmt.Errorf("%w: driver %s is %s/%s",
				driver.ErrDriverUnavailable, drv.ID(), drv.Status(), drv.Availability())
		}
		if d.Status() != delivery.AwaitingAcceptance {
			if d.Status().HasDriver() {
				return fmt.Errorf("%w: delivery %s", ports.ErrAlreadyAssigned, d.ID())
			}
			return delivery.NewInvalidStateTransitionError(d.Status(), delivery.ActionAccept)
		}

		result, err = s.bind(ctx, uow, d, drv)
		return err
	})
	if err != nil {
		return err
	}

	s.recorder.Assigned(ModeManual)
	s.publish(ctx, result.events()...)
	return nil
}

// Reassign takes a delivery away from its current driver, if any, and binds it
// to preferredDriverID or, when nil, to the best other available driver. It
// reports whether a new driver was bound; without one the delivery stays
// AwaitingAcceptance.
func (s *Service) Reassign(ctx context.Context, deliveryID kernel.UUID, preferredDriverID *kernel.UUID) (bool, error) {
	var (
		result   *assignment
		previous *kernel.UUID
	)
	err := s.inTx(ctx, func(uow UoW) error {
		deliveries := uow.DeliveryRepository()
		drivers := uow.DriverRepository()

		d, err := deliveries.Get(ctx, deliveryID)
		if err != nil {
			return err
		}
		before := d.Status()
		previous = d.DriverID()

		if err = d.ResetForReassignment(); err != nil {
			return err
		}
		if before != delivery.AwaitingAcceptance {
			if err = store(ctx, uow, d, before); err != nil {
				return err
			}
		}

		if previous != nil {
			prev, getErr := drivers.Get(ctx, *previous)
			if getErr != nil {
				return getErr
			}
			prev.Release()
			if err = storeDriver(ctx, uow, prev, driver.OnDelivery); err != nil {
				return err
			}
		}

		var next *driver.Driver
		if preferredDriverID != nil {
			if next, err = drivers.Get(ctx, *preferredDriverID); err != nil {
				return err
			}
		} else {
			var exclude []kernel.UUID
			if previous != nil {
				exclude = append(exclude, *previous)
			}
			if next, err = s.findBestDriver(ctx, drivers, d.Pickup(), exclude...); err != nil {
				return err
			}
			if next == nil {
				s.recorder.NoDriverAvailable()
				return nil
			}
		}

		result, err = s.bind(ctx, uow, d, next)
		return err
	})
	if err != nil {
		return false, err
	}

	if previous != nil && (result == nil || !result.driver.ID().IsEqual(*previous)) {
		s.publish(ctx, reassignedAway(deliveryID, *previous))
	}
	if result == nil {
		return false, nil
	}
	s.recorder.Assigned(ModeReassign)
	s.publish(ctx, result.events()...)
	return true, nil
}

// ProcessPendingAssignments retries AutoAssign for a batch of deliveries still
// awaiting a driver and returns how many were assigned. A failure on one
// delivery is logged and does not stop the batch.
func (s *Service) ProcessPendingAssignments(ctx context.Context) (int, error) {
	pending, err := s.uowFactory.Create().DeliveryRepository().
		FindByStatus(ctx, delivery.AwaitingAcceptance, s.cfg.PendingBatchSize)
	if err != nil {
		return 0, err
	}

	assigned := 0
	for _, d := range pending {
		if ctx.Err() != nil {
			return assigned, ctx.Err()
		}
		ok, assignErr := s.AutoAssign(ctx, d.ID())
		if assignErr != nil {
			s.logger.Warn().Err(assignErr).Str("delivery_id", d.ID().String()).Msg("pending assignment failed")
			continue
		}
		if ok {
			assigned++
		}
	}
	return assigned, nil
}

func without(drivers []*driver.Driver, exclude []kernel.UUID) []*driver.Driver {
	if len(exclude) == 0 {
		return drivers
	}
	out := drivers[:0:0]
	for _, d := range drivers {
		if !slices.ContainsFunc(exclude, d.ID().IsEqual) {
			out = append(out, d)
		}
	}
	return out
}
