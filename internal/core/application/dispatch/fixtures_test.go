package dispatch_test

import (
	"context"
	"testing"
	"time"

	"dispatch/internal/adapters/out/memory"
	"dispatch/internal/core/application/dispatch"
	"dispatch/internal/core/domain/events"
	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/driver"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/services"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

var pricing = services.Pricing{AvgSpeedKmh: 30, PrepMinutes: 10, BaseFee: 2.00, PerKmRate: 1.50}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) Publish(ctx context.Context, event events.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// acceptAll makes the publisher succeed for every event.
func (m *MockPublisher) acceptAll() *MockPublisher {
	m.On("Publish", mock.Anything, mock.Anything).Return(nil)
	return m
}

// published lists the events passed to Publish, in call order.
func (m *MockPublisher) published() []events.Event {
	out := make([]events.Event, 0, len(m.Calls))
	for _, c := range m.Calls {
		if c.Method == "Publish" {
			out = append(out, c.Arguments.Get(1).(events.Event))
		}
	}
	return out
}

func (m *MockPublisher) names() []string {
	evts := m.published()
	out := make([]string, 0, len(evts))
	for _, e := range evts {
		out = append(out, e.Name())
	}
	return out
}

type MockRecorder struct{ mock.Mock }

func (m *MockRecorder) Assigned(mode dispatch.Mode) { m.Called(mode) }
func (m *MockRecorder) NoDriverAvailable() { m.Called() }
func (m *MockRecorder) AcceptConflict() { m.Called() }
func (m *MockRecorder) NotificationFailed() { m.Called() }
func (m *MockRecorder) Overdue(count int) { m.Called(count) }

type FuncUoWFactory func() dispatch.UoW

func (f FuncUoWFactory) Create() dispatch.UoW {
	return f()
}

func memoryFactory(store *memory.Store) dispatch.UoWFactory {
	f := memory.NewUnitOfWorkFactory(store)
	return FuncUoWFactory(func() dispatch.UoW {
		return f.Create()
	})
}

type fixture struct {
	t         *testing.T
	store     *memory.Store
	factory   dispatch.UoWFactory
	publisher *MockPublisher
	service   *dispatch.Service
}

func newFixture(t *testing.T, opts ...dispatch.Option) *fixture {
	t.Helper()
	return newFixtureWithPublisher(t, new(MockPublisher).acceptAll(), opts...)
}

func newFixtureWithPublisher(t *testing.T, publisher *MockPublisher, opts ...dispatch.Option) *fixture {
	t.Helper()

	estimator, err := services.NewEstimator(pricing, nil)
	require.NoError(t, err)

	store := memory.NewStore(nil)
	f := &fixture{
		t:         t,
		store:     store,
		factory:   memoryFactory(store),
		publisher: publisher,
	}
	defaultPickup := f.address("Warehouse", 0, 0)
	opts = append([]dispatch.Option{dispatch.WithClock(func() time.Time { return now })}, opts...)
	f.service = dispatch.NewService(f.factory, f.publisher, estimator, dispatch.Config{
		SearchRadiusKm: dispatch.DefaultSearchRadiusKm,
		DefaultPickup:  &defaultPickup,
	}, opts...)
	return f
}

func (f *fixture) address(street string, lat, lng float64) kernel.AddressLocation {
	f.t.Helper()
	c, err := kernel.NewCoordinates(lat, lng)
	require.NoError(f.t, err)
	a, err := kernel.NewAddressLocation(kernel.AddressParts{Street: street, City: "Springfield", Coordinates: &c})
	require.NoError(f.t, err)
	return a
}

// driver stores an Active driver at the given offset from the origin.
func (f *fixture) driver(name string, availability driver.Availability, stats driver.Stats, lng float64) *driver.Driver {
	f.t.Helper()
	loc := f.address("Base "+name, 0, lng)
	d, err := driver.RestoreDriver(kernel.NewUUID(), name, name+"@example.com", "bike",
		driver.Active, availability, stats, &loc)
	require.NoError(f.t, err)
	require.NoError(f.t, f.factory.Create().DriverRepository().Add(f.t.Context(), d))
	return d
}

func (f *fixture) availableDriver(name string, rating float64) *driver.Driver {
	return f.driver(name, driver.Available, driver.Stats{Rating: rating, RatingsCount: 10}, 0.01)
}

func (f *fixture) pendingDelivery(orderID string) *delivery.Delivery {
	f.t.Helper()
	d, err := delivery.NewDelivery(kernel.NewUUID(), orderID,
		f.address("Pickup", 0, 0), f.address("Dropoff", 0, 0.05),
		9.5, now, now.Add(30*time.Minute), "")
	require.NoError(f.t, err)
	require.NoError(f.t, f.factory.Create().DeliveryRepository().Add(f.t.Context(), d))
	return d
}

func (f *fixture) loadDelivery(id kernel.UUID) *delivery.Delivery {
	f.t.Helper()
	d, err := f.factory.Create().DeliveryRepository().Get(f.t.Context(), id)
	require.NoError(f.t, err)
	return d
}

func (f *fixture) loadDriver(id kernel.UUID) *driver.Driver {
	f.t.Helper()
	d, err := f.factory.Create().DriverRepository().Get(f.t.Context(), id)
	require.NoError(f.t, err)
	return d
}

func ptr[T any](v T) *T {
	return &v
}
