package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dispatch/internal/core/domain/events"
	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/driver"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"

	"github.com/rs/zerolog"
)

const (
	DefaultSearchRadiusKm   = 10.0
	DefaultPendingBatchSize = 50
)

// ErrDriverMismatch is returned when a driver acts on a delivery bound to someone else.
var ErrDriverMismatch = errors.New("driver mismatch")

// Config tunes matching and order intake.
type Config struct {
	// SearchRadiusKm is the first matching radius before falling back to all drivers.
	SearchRadiusKm float64
	// DefaultPickup is used when an order does not name a pickup address.
	DefaultPickup *kernel.AddressLocation
	// PendingBatchSize bounds one ProcessPendingAssignments run.
	PendingBatchSize int
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service orchestrates matching and guarded state transitions. Every
// operation loads fresh state through a unit of work and writes it back in one
// transaction; events are published only after the commit.
type Service struct {
	uowFactory UoWFactory
	publisher  ports.EventPublisher
	estimator  services.Estimator
	ranker     services.DriverRanker
	cfg        Config
	recorder   Recorder
	logger     zerolog.Logger
	now        func() time.Time
}

func NewService(
	uowFactory UoWFactory,
	publisher ports.EventPublisher,
	estimator services.Estimator,
	cfg Config,
	opts ...Option,
) *Service {
	if cfg.SearchRadiusKm <= 0 {
		cfg.SearchRadiusKm = DefaultSearchRadiusKm
	}
	if cfg.PendingBatchSize <= 0 {
		cfg.PendingBatchSize = DefaultPendingBatchSize
	}

	s := &Service{
		uowFactory: uowFactory,
		publisher:  publisher,
		estimator:  estimator,
		ranker:     services.NewDriverRanker(),
		cfg:        cfg,
		recorder:   nopRecorder{},
		logger:     zerolog.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "dispatch_service").Logger()
	return s
}

// inTx runs fn inside a fresh unit of work and commits when it returns nil.
func (s *Service) inTx(ctx context.Context, fn func(uow UoW) error) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err := fn(uow); err != nil {
		return err
	}
	return uow.Commit(ctx)
}

// publish sends events in order. Failures are logged and never undo the
// committed transition.
// TODO: route lifecycle events through a transactional outbox so a publish
// failure after commit is retried instead of only logged.
func (s *Service) publish(ctx context.Context, evts ...events.Event) {
	for _, e := range evts {
		if err := s.publisher.Publish(ctx, e); err != nil {
			s.logger.Warn().Err(err).
				Str("event", e.Name()).
				Str("key", e.Key()).
				Msg("failed to publish event")
			if _, ok := e.(events.NotifyDriver); ok {
				s.recorder.NotificationFailed()
			}
		}
	}
}

// assignment is a committed driver binding whose events are still to be published.
type assignment struct {
	delivery *delivery.Delivery
	driver   *driver.Driver
}

func (a *assignment) events() []events.Event {
	if a == nil {
		return nil
	}
	id := a.delivery.ID().String()
	driverID := a.driver.ID().String()
	return []events.Event{
		events.DeliveryAccepted{DeliveryID: id, DriverID: driverID, OrderID: a.delivery.OrderID()},
		events.NotifyDriver{
			DriverID:   driverID,
			DeliveryID: id,
			Message: fmt.Sprintf("New delivery %s: pickup at %s, dropoff at %s",
				id, a.delivery.Pickup(), a.delivery.Dropoff()),
		},
	}
}

// bind accepts d for drv and persists both with compare-and-swap writes: the
// delivery only if it is still AwaitingAcceptance, the driver only if still
// Available.
func (s *Service) bind(ctx context.Context, uow UoW, d *delivery.Delivery, drv *driver.Driver) (*assignment, error) {
	if err := drv.ActivateForDelivery(); err != nil {
		return nil, err
	}
	if err := d.Accept(drv.ID()); err != nil {
		return nil, err
	}

	swapped, err := uow.DeliveryRepository().CompareAndSwap(ctx, d, delivery.AwaitingAcceptance)
	if err != nil {
		return nil, err
	}
	if !swapped {
		s.recorder.AcceptConflict()
		return nil, fmt.Errorf("%w: delivery %s", ports.ErrAlreadyAssigned, d.ID())
	}

	swapped, err = uow.DriverRepository().CompareAndSwap(ctx, drv, driver.Available)
	if err != nil {
		return nil, err
	}
	if !swapped {
		return nil, fmt.Errorf("%w: driver %s was taken by another delivery", driver.ErrDriverUnavailable, drv.ID())
	}

	return &assignment{delivery: d, driver: drv}, nil
}

// checkDriver verifies that d is bound to driverID before a driver-initiated
// transition.
func checkDriver(d *delivery.Delivery, driverID kernel.UUID, action delivery.Action) error {
	if !d.Status().HasDriver() {
		return delivery.NewInvalidStateTransitionError(d.Status(), action)
	}
	if !d.IsAssignedTo(driverID) {
		return fmt.Errorf("%w: delivery %s is not assigned to driver %s", ErrDriverMismatch, d.ID(), driverID)
	}
	return nil
}

func idString(id *kernel.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// store writes d on the condition that its stored status is still before.
func store(ctx context.Context, uow UoW, d *delivery.Delivery, before delivery.Status) error {
	swapped, err := uow.DeliveryRepository().CompareAndSwap(ctx, d, before)
	if err != nil {
		return err
	}
	if !swapped {
		return fmt.Errorf("%w: delivery %s", ports.ErrConcurrentUpdate, d.ID())
	}
	return nil
}

// storeDriver writes drv on the condition that its stored availability is
// still before.
func storeDriver(ctx context.Context, uow UoW, drv *driver.Driver, before driver.Availability) error {
	swapped, err := uow.DriverRepository().CompareAndSwap(ctx, drv, before)
	if err != nil {
		return err
	}
	if !swapped {
		return fmt.Errorf("%w: driver %s", ports.ErrConcurrentUpdate, drv.ID())
	}
	return nil
}

func reassignedAway(deliveryID, driverID kernel.UUID) events.NotifyDriver {
	return events.NotifyDriver{
		DriverID:   driverID.String(),
		DeliveryID: deliveryID.String(),
		Message:    fmt.Sprintf("Delivery %s was reassigned to another driver", deliveryID),
	}
}
