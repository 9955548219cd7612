package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/driver"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
)

type DeliveryRepository struct {
	store *Store
	tx    *UnitOfWork
}

func (r *DeliveryRepository) Add(ctx context.Context, d *delivery.Delivery) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.Validate(); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.byOrder[d.OrderID()]; ok {
		return ports.ErrDuplicateOrder
	}
	r.tx.record(r.store.putDelivery(d))
	return nil
}

func (r *DeliveryRepository) Update(ctx context.Context, d *delivery.Delivery) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.deliveries[d.ID().String()]; !ok {
		return errs.NewObjectNotFoundErrorWithCause("delivery", d.ID(), ports.ErrDeliveryNotFound)
	}
	r.tx.record(r.store.putDelivery(d))
	return nil
}

func (r *DeliveryRepository) CompareAndSwap(ctx context.Context, d *delivery.Delivery, expected delivery.Status) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.deliveries[d.ID().String()]
	if !ok {
		return false, errs.NewObjectNotFoundErrorWithCause("delivery", d.ID(), ports.ErrDeliveryNotFound)
	}
	if stored.Status() != expected {
		return false, nil
	}
	r.tx.record(r.store.putDelivery(d))
	return true, nil
}

func (r *DeliveryRepository) Get(ctx context.Context, id kernel.UUID) (*delivery.Delivery, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	d, ok := r.store.deliveries[id.String()]
	if !ok {
		return nil, errs.NewObjectNotFoundErrorWithCause("delivery", id, ports.ErrDeliveryNotFound)
	}
	return d.Clone(), nil
}

func (r *DeliveryRepository) GetByOrderID(ctx context.Context, orderID string) (*delivery.Delivery, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	key, ok := r.store.byOrder[orderID]
	if !ok {
		return nil, errs.NewObjectNotFoundErrorWithCause("orderId", orderID, ports.ErrDeliveryNotFound)
	}
	return r.store.deliveries[key].Clone(), nil
}

func (r *DeliveryRepository) FindByStatus(ctx context.Context, status delivery.Status, limit int) ([]*delivery.Delivery, error) {
	return r.find(ctx, limit, func(d *delivery.Delivery) bool {
		return d.Status() == status
	})
}

func (r *DeliveryRepository) FindOverdue(ctx context.Context, now time.Time) ([]*delivery.Delivery, error) {
	return r.find(ctx, 0, func(d *delivery.Delivery) bool {
		return d.IsOverdue(now)
	})
}

func (r *DeliveryRepository) find(ctx context.Context, limit int, match func(*delivery.Delivery) bool) ([]*delivery.Delivery, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.Lock()
	out := make([]*delivery.Delivery, 0)
	for _, d := range r.store.deliveries {
		if match(d) {
			out = append(out, d.Clone())
		}
	}
	r.store.mu.Unlock()

	slices.SortFunc(out, func(a, b *delivery.Delivery) int {
		if c := a.CreatedAt().Compare(b.CreatedAt()); c != 0 {
			return c
		}
		return cmp.Compare(a.ID().String(), b.ID().String())
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type DriverRepository struct {
	store *Store
	tx    *UnitOfWork
}

func (r *DriverRepository) Add(ctx context.Context, d *driver.Driver) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.Validate(); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.tx.record(r.store.putDriver(d))
	return nil
}

func (r *DriverRepository) Update(ctx context.Context, d *driver.Driver) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.drivers[d.ID().String()]; !ok {
		return errs.NewObjectNotFoundErrorWithCause("driver", d.ID(), ports.ErrDriverNotFound)
	}
	r.tx.record(r.store.putDriver(d))
	return nil
}

func (r *DriverRepository) CompareAndSwap(ctx context.Context, d *driver.Driver, expected driver.Availability) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.drivers[d.ID().String()]
	if !ok {
		return false, errs.NewObjectNotFoundErrorWithCause("driver", d.ID(), ports.ErrDriverNotFound)
	}
	if stored.Availability() != expected {
		return false, nil
	}
	r.tx.record(r.store.putDriver(d))
	return true, nil
}

func (r *DriverRepository) Get(ctx context.Context, id kernel.UUID) (*driver.Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	d, ok := r.store.drivers[id.String()]
	if !ok {
		return nil, errs.NewObjectNotFoundErrorWithCause("driver", id, ports.ErrDriverNotFound)
	}
	return d.Clone(), nil
}

func (r *DriverRepository) FindAvailable(ctx context.Context, q ports.AvailabilityQuery) ([]*driver.Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.Lock()
	available := make([]*driver.Driver, 0)
	for _, d := range r.store.drivers {
		if d.IsAvailable() {
			available = append(available, d.Clone())
		}
	}
	r.store.mu.Unlock()

	slices.SortFunc(available, func(a, b *driver.Driver) int {
		return cmp.Compare(a.ID().String(), b.ID().String())
	})
	if q.Near == nil {
		return available, nil
	}
	return services.WithinRadius(available, *q.Near, q.RadiusKm, r.store.strategy), nil
}
