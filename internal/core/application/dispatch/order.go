package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dispatch/internal/core/domain/events"
	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
)

// ErrInvalidOrder marks OrderConfirmed payloads that can never produce a
// delivery. Consumers acknowledge such messages instead of retrying them.
var ErrInvalidOrder = errors.New("invalid order confirmed event")

// OrderConfirmed is the inbound event announcing that an order is ready for dispatch.
type OrderConfirmed struct {
	OrderID         string      `json:"orderId"`
	CustomerID      string      `json:"customerId"`
	TotalValue      float64     `json:"totalValue"`
	DeliveryAddress Address     `json:"deliveryAddress"`
	PickupAddress   *Address    `json:"pickupAddress,omitempty"`
	Items           []OrderItem `json:"items"`
	Notes           string      `json:"notes,omitempty"`
}

type OrderItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// Address is the wire form of kernel.AddressLocation.
type Address struct {
	Street     string   `json:"street"`
	Number     string   `json:"number"`
	District   string   `json:"district"`
	City       string   `json:"city"`
	Region     string   `json:"region"`
	PostalCode string   `json:"postalCode"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
}

// ToLocation validates the address. Coordinates are used only when both
// latitude and longitude are present.
func (a Address) ToLocation() (kernel.AddressLocation, error) {
	parts := kernel.AddressParts{
		Street:     a.Street,
		Number:     a.Number,
		District:   a.District,
		City:       a.City,
		Region:     a.Region,
		PostalCode: a.PostalCode,
	}
	if a.Latitude != nil && a.Longitude != nil {
		c, err := kernel.NewCoordinates(*a.Latitude, *a.Longitude)
		if err != nil {
			return kernel.AddressLocation{}, err
		}
		parts.Coordinates = &c
	}
	return kernel.NewAddressLocation(parts)
}

// AddressFromLocation is the inverse of Address.ToLocation.
func AddressFromLocation(l kernel.AddressLocation) Address {
	a := Address{
		Street:     l.Street(),
		Number:     l.Number(),
		District:   l.District(),
		City:       l.City(),
		Region:     l.Region(),
		PostalCode: l.PostalCode(),
	}
	if c, ok := l.Coordinates(); ok {
		lat, lng := c.Lat(), c.Lng()
		a.Latitude, a.Longitude = &lat, &lng
	}
	return a
}

// HandleOrderConfirmed creates the delivery for a confirmed order. Invalid
// payloads are reported through DeliveryCreationFailed and swallowed; every
// other error is returned so the message can be redelivered.
func (s *Service) HandleOrderConfirmed(ctx context.Context, evt OrderConfirmed) error {
	_, err := s.CreateForOrder(ctx, evt)
	if errors.Is(err, ErrInvalidOrder) {
		s.logger.Warn().Err(err).Str("order_id", evt.OrderID).Msg("discarding invalid order")
		return nil
	}
	return err
}

// CreateForOrder creates an AwaitingAcceptance delivery for the order and tries
// to assign a driver right away. A second call for the same order returns the
// existing delivery and publishes nothing.
func (s *Service) CreateForOrder(ctx context.Context, evt OrderConfirmed) (*delivery.Delivery, error) {
	orderID := strings.TrimSpace(evt.OrderID)

	d, err := s.newDelivery(orderID, evt)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidOrder, err)
		s.publish(ctx, events.DeliveryCreationFailed{OrderID: orderID, Error: err.Error()})
		return nil, err
	}

	existing, created, err := s.addDelivery(ctx, d)
	if err != nil {
		s.publish(ctx, events.DeliveryCreationFailed{OrderID: orderID, Error: err.Error()})
		return nil, err
	}
	if !created {
		s.logger.Debug().Str("order_id", orderID).Msg("delivery for order already exists")
		return existing, nil
	}

	a, err := s.autoAssign(ctx, d.ID())
	if err != nil {
		s.logger.Warn().Err(err).Str("delivery_id", d.ID().String()).Msg("initial assignment failed, left pending")
	}

	result := d
	var driverID *string
	if a != nil {
		result = a.delivery
		driverID = idString(result.DriverID())
	}
	s.publish(ctx, events.DeliveryCreated{
		DeliveryID: result.ID().String(),
		OrderID:    result.OrderID(),
		DriverID:   driverID,
		Status:     result.Status().String(),
		ETAMinutes: int(result.EstimatedCompletionAt().Sub(result.CreatedAt()) / time.Minute),
		Fee:        result.Fee(),
	})
	s.publish(ctx, a.events()...)

	return result, nil
}

func (s *Service) newDelivery(orderID string, evt OrderConfirmed) (*delivery.Delivery, error) {
	if orderID == "" {
		return nil, errs.NewValueIsRequiredError("orderId")
	}

	dropoff, err := evt.DeliveryAddress.ToLocation()
	if err != nil {
		return nil, fmt.Errorf("delivery address: %w", err)
	}

	var pickup kernel.AddressLocation
	switch {
	case evt.PickupAddress != nil:
		if pickup, err = evt.PickupAddress.ToLocation(); err != nil {
			return nil, fmt.Errorf("pickup address: %w", err)
		}
	case s.cfg.DefaultPickup != nil:
		pickup = *s.cfg.DefaultPickup
	default:
		return nil, errs.NewValueIsRequiredError("pickupAddress")
	}

	quote := s.estimator.Estimate(pickup, dropoff)
	now := s.now().UTC()
	return delivery.NewDelivery(
		kernel.NewUUID(),
		orderID,
		pickup,
		dropoff,
		quote.Fee,
		now,
		now.Add(time.Duration(quote.ETAMinutes)*time.Minute),
		evt.Notes,
	)
}

// addDelivery stores d unless a delivery for the same order exists, in which
// case the existing one is returned with created=false.
func (s *Service) addDelivery(ctx context.Context, d *delivery.Delivery) (*delivery.Delivery, bool, error) {
	var existing *delivery.Delivery
	err := s.inTx(ctx, func(uow UoW) error {
		found, err := uow.DeliveryRepository().GetByOrderID(ctx, d.OrderID())
		switch {
		case err == nil:
			existing = found
			return nil
		case !errors.Is(err, ports.ErrDeliveryNotFound):
			return err
		}
		return uow.DeliveryRepository().Add(ctx, d)
	})
	if errors.Is(err, ports.ErrDuplicateOrder) {
		existing, err = s.uowFactory.Create().DeliveryRepository().GetByOrderID(ctx, d.OrderID())
	}
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	return d, true, nil
}
