package dispatch

import (
	"context"
	"fmt"

	"dispatch/internal/core/domain/events"
	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/driver"
	"dispatch/internal/core/domain/model/kernel"
)

// DepartForPickup records that the assigned driver is heading to the pickup.
func (s *Service) DepartForPickup(ctx context.Context, deliveryID, driverID kernel.UUID) error {
	return s.inTx(ctx, func(uow UoW) error {
		d, err := uow.DeliveryRepository().Get(ctx, deliveryID)
		if err != nil {
			return err
		}
		if err = checkDriver(d, driverID, delivery.ActionDepartForPickup); err != nil {
			return err
		}

		before := d.Status()
		if err = d.DepartForPickup(); err != nil {
			return err
		}
		return store(ctx, uow, d, before)
	})
}

// StartPickup confirms that the assigned driver collected the goods and is
// heading to the dropoff. Intermediate steps the driver skipped are applied in
// order.
func (s *Service) StartPickup(ctx context.Context, deliveryID, driverID kernel.UUID) error {
	return s.inTx(ctx, func(uow UoW) error {
		d, err := uow.DeliveryRepository().Get(ctx, deliveryID)
		if err != nil {
			return err
		}
		if err = checkDriver(d, driverID, delivery.ActionStartPickup); err != nil {
			return err
		}

		before := d.Status()
		if err = d.AdvanceTo(delivery.InTransit, delivery.ActionStartPickup); err != nil {
			return err
		}
		return store(ctx, uow, d, before)
	})
}

// CompleteDelivery marks the delivery Delivered and frees the driver,
// crediting a completed delivery.
func (s *Service) CompleteDelivery(ctx context.Context, deliveryID, driverID kernel.UUID) error {
	return s.inTx(ctx, func(uow UoW) error {
		d, err := uow.DeliveryRepository().Get(ctx, deliveryID)
		if err != nil {
			return err
		}
		if err = checkDriver(d, driverID, delivery.ActionComplete); err != nil {
			return err
		}
		drv, err := uow.DriverRepository().Get(ctx, driverID)
		if err != nil {
			return err
		}

		before := d.Status()
		if err = d.AdvanceTo(delivery.Delivered, delivery.ActionComplete); err != nil {
			return err
		}
		if err = store(ctx, uow, d, before); err != nil {
			return err
		}

		drv.ReleaseAfterDelivery(false)
		return storeDriver(ctx, uow, drv, driver.OnDelivery)
	})
}

// Cancel cancels a delivery that is not yet Delivered. A bound driver is made
// available again and charged a cancellation. Cancelling a cancelled delivery
// succeeds without side effects.
func (s *Service) Cancel(ctx context.Context, deliveryID kernel.UUID, reason string) error {
	var (
		cancelled *delivery.Delivery
		released  *kernel.UUID
	)
	err := s.inTx(ctx, func(uow UoW) error {
		d, err := uow.DeliveryRepository().Get(ctx, deliveryID)
		if err != nil {
			return err
		}
		before := d.Status()
		if before == delivery.Cancelled {
			return nil
		}

		released = d.DriverID()
		if err = d.Cancel(reason); err != nil {
			return err
		}
		if err = store(ctx, uow, d, before); err != nil {
			return err
		}
		cancelled = d

		if released == nil {
			return nil
		}
		drv, err := uow.DriverRepository().Get(ctx, *released)
		if err != nil {
			return err
		}
		drv.ReleaseAfterDelivery(true)
		return storeDriver(ctx, uow, drv, driver.OnDelivery)
	})
	if err != nil || cancelled == nil {
		return err
	}

	evts := []events.Event{events.DeliveryCancelled{
		DeliveryID: cancelled.ID().String(),
		OrderID:    cancelled.OrderID(),
		DriverID:   idString(released),
		Reason:     cancelled.CancelReason(),
	}}
	if released != nil {
		evts = append(evts, events.NotifyDriver{
			DriverID:   released.String(),
			DeliveryID: cancelled.ID().String(),
			Message:    fmt.Sprintf("Delivery %s was cancelled: %s", cancelled.ID(), cancelled.CancelReason()),
		})
	}
	s.publish(ctx, evts...)
	return nil
}
