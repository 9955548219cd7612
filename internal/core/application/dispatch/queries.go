package dispatch

import (
	"context"
	"time"

	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/services"
)

// Estimate quotes a trip between two addresses.
func (s *Service) Estimate(pickup, dropoff kernel.AddressLocation) services.Quote {
	return s.estimator.Estimate(pickup, dropoff)
}

func (s *Service) GetDelivery(ctx context.Context, id kernel.UUID) (*delivery.Delivery, error) {
	return s.uowFactory.Create().DeliveryRepository().Get(ctx, id)
}

// DeliveriesByStatus lists deliveries in status, oldest first. A limit of zero
// returns all of them.
func (s *Service) DeliveriesByStatus(ctx context.Context, status delivery.Status, limit int) ([]*delivery.Delivery, error) {
	if err := status.Validate(); err != nil {
		return nil, err
	}
	return s.uowFactory.Create().DeliveryRepository().FindByStatus(ctx, status, limit)
}

// OverdueDeliveries returns moving deliveries whose estimated completion time
// is before now.
func (s *Service) OverdueDeliveries(ctx context.Context, now time.Time) ([]*delivery.Delivery, error) {
	overdue, err := s.uowFactory.Create().DeliveryRepository().FindOverdue(ctx, now)
	if err != nil {
		return nil, err
	}
	s.recorder.Overdue(len(overdue))
	return overdue, nil
}
