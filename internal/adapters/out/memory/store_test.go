package memory_test

import (
	"testing"
	"time"

	"dispatch/internal/adapters/out/memory"
	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/driver"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func address(t *testing.T, street string, lat, lng float64) kernel.AddressLocation {
	t.Helper()
	c, err := kernel.NewCoordinates(lat, lng)
	require.NoError(t, err)
	a, err := kernel.NewAddressLocation(kernel.AddressParts{Street: street, City: "Springfield", Coordinates: &c})
	require.NoError(t, err)
	return a
}

func newDelivery(t *testing.T, orderID string, createdAt time.Time) *delivery.Delivery {
	t.Helper()
	d, err := delivery.NewDelivery(
		kernel.NewUUID(), orderID,
		address(t, "Pickup", 0, 0), address(t, "Dropoff", 0, 0.05),
		9.5, createdAt, createdAt.Add(30*time.Minute), "",
	)
	require.NoError(t, err)
	return d
}

func availableDriver(t *testing.T, name string, location kernel.AddressLocation) *driver.Driver {
	t.Helper()
	d, err := driver.NewDriver(kernel.NewUUID(), name, name+"@example.com", "bike")
	require.NoError(t, err)
	require.NoError(t, d.GoOnline())
	require.NoError(t, d.UpdateLocation(location))
	return d
}

func TestDeliveryRepository_AddAndGet(t *testing.T) {
	ctx := t.Context()
	uow := memory.NewUnitOfWorkFactory(memory.NewStore(nil)).Create()
	repo := uow.DeliveryRepository()

	d := newDelivery(t, "order-1", baseTime)
	require.NoError(t, repo.Add(ctx, d))

	got, err := repo.Get(ctx, d.ID())
	require.NoError(t, err)
	assert.True(t, got.IsEqual(d))
	assert.Equal(t, delivery.AwaitingAcceptance, got.Status())

	byOrder, err := repo.GetByOrderID(ctx, "order-1")
	require.NoError(t, err)
	assert.True(t, byOrder.IsEqual(d))

	assert.ErrorIs(t, repo.Add(ctx, newDelivery(t, "order-1", baseTime)), ports.ErrDuplicateOrder)
}

func TestDeliveryRepository_GetMissing(t *testing.T) {
	repo := memory.NewUnitOfWorkFactory(memory.NewStore(nil)).Create().DeliveryRepository()

	_, err := repo.Get(t.Context(), kernel.NewUUID())

	assert.ErrorIs(t, err, ports.ErrDeliveryNotFound)
	assert.ErrorIs(t, err, errs.ErrObjectNotFound)
}

func TestDeliveryRepository_ReturnsCopies(t *testing.T) {
	ctx := t.Context()
	repo := memory.NewUnitOfWorkFactory(memory.NewStore(nil)).Create().DeliveryRepository()
	d := newDelivery(t, "order-1", baseTime)
	require.NoError(t, repo.Add(ctx, d))

	loaded, err := repo.Get(ctx, d.ID())
	require.NoError(t, err)
	require.NoError(t, loaded.Accept(kernel.NewUUID()))

	stored, err := repo.Get(ctx, d.ID())
	require.NoError(t, err)
	assert.Equal(t, delivery.AwaitingAcceptance, stored.Status())
}

func TestDeliveryRepository_CompareAndSwap(t *testing.T) {
	ctx := t.Context()
	repo := memory.NewUnitOfWorkFactory(memory.NewStore(nil)).Create().DeliveryRepository()
	d := newDelivery(t, "order-1", baseTime)
	require.NoError(t, repo.Add(ctx, d))

	first, err := repo.Get(ctx, d.ID())
	require.NoError(t, err)
	second, err := repo.Get(ctx, d.ID())
	require.NoError(t, err)

	driverA, driverB := kernel.NewUUID(), kernel.NewUUID()
	require.NoError(t, first.Accept(driverA))
	require.NoError(t, second.Accept(driverB))

	ok, err := repo.CompareAndSwap(ctx, first, delivery.AwaitingAcceptance)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.CompareAndSwap(ctx, second, delivery.AwaitingAcceptance)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.Get(ctx, d.ID())
	require.NoError(t, err)
	assert.True(t, stored.IsAssignedTo(driverA))
}

func TestDeliveryRepository_FindByStatusOldestFirst(t *testing.T) {
	ctx := t.Context()
	repo := memory.NewUnitOfWorkFactory(memory.NewStore(nil)).Create().DeliveryRepository()

	newer := newDelivery(t, "order-2", baseTime.Add(time.Minute))
	older := newDelivery(t, "order-1", baseTime)
	accepted := newDelivery(t, "order-3", baseTime)
	require.NoError(t, accepted.Accept(kernel.NewUUID()))
	for _, d := range []*delivery.Delivery{newer, older, accepted} {
		require.NoError(t, repo.Add(ctx, d))
	}

	pending, err := repo.FindByStatus(ctx, delivery.AwaitingAcceptance, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "order-1", pending[0].OrderID())
	assert.Equal(t, "order-2", pending[1].OrderID())

	limited, err := repo.FindByStatus(ctx, delivery.AwaitingAcceptance, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "order-1", limited[0].OrderID())
}

func TestDeliveryRepository_FindOverdue(t *testing.T) {
	ctx := t.Context()
	repo := memory.NewUnitOfWorkFactory(memory.NewStore(nil)).Create().DeliveryRepository()

	moving := newDelivery(t, "order-1", baseTime)
	require.NoError(t, moving.Accept(kernel.NewUUID()))
	require.NoError(t, moving.DepartForPickup())
	waiting := newDelivery(t, "order-2", baseTime)
	require.NoError(t, repo.Add(ctx, moving))
	require.NoError(t, repo.Add(ctx, waiting))

	overdue, err := repo.FindOverdue(ctx, baseTime.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "order-1", overdue[0].OrderID())

	overdue, err = repo.FindOverdue(ctx, baseTime.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, overdue)
}

func TestUnitOfWork_RollbackRevertsWrites(t *testing.T) {
	ctx := t.Context()
	factory := memory.NewUnitOfWorkFactory(memory.NewStore(nil))

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	d := newDelivery(t, "order-1", baseTime)
	require.NoError(t, uow.DeliveryRepository().Add(ctx, d))
	drv := availableDriver(t, "Ann", address(t, "Base", 0, 0))
	require.NoError(t, uow.DriverRepository().Add(ctx, drv))
	require.NoError(t, uow.Rollback(ctx))

	reader := factory.Create()
	_, err := reader.DeliveryRepository().Get(ctx, d.ID())
	require.ErrorIs(t, err, ports.ErrDeliveryNotFound)
	_, err = reader.DeliveryRepository().GetByOrderID(ctx, "order-1")
	require.ErrorIs(t, err, ports.ErrDeliveryNotFound)
	_, err = reader.DriverRepository().Get(ctx, drv.ID())
	require.ErrorIs(t, err, ports.ErrDriverNotFound)
}

func TestUnitOfWork_CommitKeepsWrites(t *testing.T) {
	ctx := t.Context()
	factory := memory.NewUnitOfWorkFactory(memory.NewStore(nil))

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	d := newDelivery(t, "order-1", baseTime)
	require.NoError(t, uow.DeliveryRepository().Add(ctx, d))
	require.NoError(t, uow.Commit(ctx))

	assert.ErrorIs(t, uow.Rollback(ctx), memory.ErrNoTransaction)
	_, err := factory.Create().DeliveryRepository().Get(ctx, d.ID())
	assert.NoError(t, err)
}

func TestUnitOfWork_RollbackKeepsOtherWriters(t *testing.T) {
	ctx := t.Context()
	factory := memory.NewUnitOfWorkFactory(memory.NewStore(nil))
	d := newDelivery(t, "order-1", baseTime)
	require.NoError(t, factory.Create().DeliveryRepository().Add(ctx, d))

	first := factory.Create()
	require.NoError(t, first.Begin(ctx))
	loaded, err := first.DeliveryRepository().Get(ctx, d.ID())
	require.NoError(t, err)
	require.NoError(t, loaded.Cancel("first"))
	require.NoError(t, first.DeliveryRepository().Update(ctx, loaded))

	later, err := factory.Create().DeliveryRepository().Get(ctx, d.ID())
	require.NoError(t, err)
	require.NoError(t, later.Cancel("second"))
	require.NoError(t, factory.Create().DeliveryRepository().Update(ctx, later))

	require.NoError(t, first.Rollback(ctx))

	stored, err := factory.Create().DeliveryRepository().Get(ctx, d.ID())
	require.NoError(t, err)
	assert.Equal(t, "second", stored.CancelReason())
}

func TestDriverRepository_CompareAndSwap(t *testing.T) {
	ctx := t.Context()
	repo := memory.NewUnitOfWorkFactory(memory.NewStore(nil)).Create().DriverRepository()
	drv := availableDriver(t, "Ann", address(t, "Base", 0, 0))
	require.NoError(t, repo.Add(ctx, drv))

	first, err := repo.Get(ctx, drv.ID())
	require.NoError(t, err)
	second, err := repo.Get(ctx, drv.ID())
	require.NoError(t, err)
	require.NoError(t, first.ActivateForDelivery())
	require.NoError(t, second.ActivateForDelivery())

	ok, err := repo.CompareAndSwap(ctx, first, driver.Available)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.CompareAndSwap(ctx, second, driver.Available)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDriverRepository_FindAvailable(t *testing.T) {
	ctx := t.Context()
	repo := memory.NewUnitOfWorkFactory(memory.NewStore(nil)).Create().DriverRepository()

	near := availableDriver(t, "Near", address(t, "Base", 0, 0.01))
	far := availableDriver(t, "Far", address(t, "Base", 0, 1))
	offline, err := driver.NewDriver(kernel.NewUUID(), "Offline", "off@example.com", "car")
	require.NoError(t, err)
	for _, d := range []*driver.Driver{near, far, offline} {
		require.NoError(t, repo.Add(ctx, d))
	}
	pickup := address(t, "Pickup", 0, 0)

	all, err := repo.FindAvailable(ctx, ports.AvailabilityQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	nearby, err := repo.FindAvailable(ctx, ports.AvailabilityQuery{Near: &pickup, RadiusKm: 10})
	require.NoError(t, err)
	require.Len(t, nearby, 1)
	assert.Equal(t, "Near", nearby[0].Name())
}
