// Package memory keeps deliveries and drivers in process memory. It backs the
// memory storage driver used in development and the service tests, and honors
// the same compare-and-swap contract as the postgres adapter.
package memory

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/driver"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
)

// ErrNoTransaction is returned by Commit and Rollback outside Begin.
var ErrNoTransaction = errors.New("no active transaction")

// Store is shared by every unit of work created from the same factory.
type Store struct {
	mu         sync.Mutex
	deliveries map[string]*delivery.Delivery
	byOrder    map[string]string
	drivers    map[string]*driver.Driver
	strategy   kernel.DistanceStrategy
}

// NewStore uses kernel.LinearDistance for radius queries when strategy is nil.
func NewStore(strategy kernel.DistanceStrategy) *Store {
	if strategy == nil {
		strategy = kernel.LinearDistance{}
	}
	return &Store{
		deliveries: make(map[string]*delivery.Delivery),
		byOrder:    make(map[string]string),
		drivers:    make(map[string]*driver.Driver),
		strategy:   strategy,
	}
}

// Drivers returns a snapshot of every driver, ordered by ID.
func (s *Store) Drivers() []*driver.Driver {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*driver.Driver, 0, len(s.drivers))
	for _, d := range s.drivers {
		out = append(out, d.Clone())
	}
	slices.SortFunc(out, func(a, b *driver.Driver) int {
		return cmp.Compare(a.ID().String(), b.ID().String())
	})
	return out
}

// putDelivery stores a copy of d and returns a function restoring the
// previous entry, unless someone else has overwritten it since.
func (s *Store) putDelivery(d *delivery.Delivery) func() {
	key := d.ID().String()
	prev := s.deliveries[key]
	written := d.Clone()
	s.deliveries[key] = written
	s.byOrder[d.OrderID()] = key

	return func() {
		if s.deliveries[key] != written {
			return
		}
		if prev == nil {
			delete(s.deliveries, key)
			delete(s.byOrder, d.OrderID())
			return
		}
		s.deliveries[key] = prev
	}
}

func (s *Store) putDriver(d *driver.Driver) func() {
	key := d.ID().String()
	prev := s.drivers[key]
	written := d.Clone()
	s.drivers[key] = written

	return func() {
		if s.drivers[key] != written {
			return
		}
		if prev == nil {
			delete(s.drivers, key)
			return
		}
		s.drivers[key] = prev
	}
}

// UnitOfWorkFactory hands out units of work over one Store.
type UnitOfWorkFactory struct {
	store *Store
}

func NewUnitOfWorkFactory(store *Store) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{store: store}
}

func (f *UnitOfWorkFactory) Create() ports.UnitOfWork {
	return &UnitOfWork{store: f.store}
}

// UnitOfWork applies writes to the store immediately and keeps an undo log so
// Rollback can revert them. Every single write is atomic; units of work are
// not isolated from each other beyond that.
type UnitOfWork struct {
	store  *Store
	mu     sync.Mutex
	active bool
	undo   []func()
}

func (u *UnitOfWork) Begin(_ context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.active {
		return nil
	}
	u.active = true
	u.undo = u.undo[:0]
	return nil
}

func (u *UnitOfWork) Commit(_ context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.active {
		return ErrNoTransaction
	}
	u.active = false
	u.undo = nil
	return nil
}

func (u *UnitOfWork) Rollback(_ context.Context) error {
	u.mu.Lock()
	if !u.active {
		u.mu.Unlock()
		return ErrNoTransaction
	}
	undo := u.undo
	u.active = false
	u.undo = nil
	u.mu.Unlock()

	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
	return nil
}

func (u *UnitOfWork) DeliveryRepository() ports.DeliveryRepository {
	return &DeliveryRepository{store: u.store, tx: u}
}

func (u *UnitOfWork) DriverRepository() ports.DriverRepository {
	return &DriverRepository{store: u.store, tx: u}
}

// record keeps undo for Rollback. Outside a transaction writes are final.
// Callers hold the store lock.
func (u *UnitOfWork) record(undo func()) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.active {
		u.undo = append(u.undo, undo)
	}
}
