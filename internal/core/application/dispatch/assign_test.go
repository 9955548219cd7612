package dispatch_test

import (
	"sync"
	"testing"

	"dispatch/internal/core/application/dispatch"
	"dispatch/internal/core/domain/events"
	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/driver"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestService_FindBestDriver_PrefersHigherRating(t *testing.T) {
	f := newFixture(t)
	f.availableDriver("Bob", 4.5)
	best := f.availableDriver("Ann", 4.8)
	d := f.pendingDelivery("order-1")

	for range 3 {
		got, err := f.service.FindBestDriver(t.Context(), d)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.IsEqual(best))
	}
}

func TestService_FindBestDriver_TieBreakers(t *testing.T) {
	f := newFixture(t)
	f.driver("Flaky", driver.Available, driver.Stats{Rating: 4.8, RatingsCount: 5, CompletedDeliveries: 8, Cancellations: 2}, 0.01)
	f.driver("Rookie", driver.Available, driver.Stats{Rating: 4.8, RatingsCount: 5, CompletedDeliveries: 3}, 0.01)
	veteran := f.driver("Veteran", driver.Available, driver.Stats{Rating: 4.8, RatingsCount: 5, CompletedDeliveries: 30}, 0.01)
	d := f.pendingDelivery("order-1")

	got, err := f.service.FindBestDriver(t.Context(), d)

	require.NoError(t, err)
	assert.True(t, got.IsEqual(veteran))
}

func TestService_FindBestDriver_PrefersNearbyDrivers(t *testing.T) {
	f := newFixture(t)
	f.driver("Far", driver.Available, driver.Stats{Rating: 5, RatingsCount: 10}, 1)
	near := f.driver("Near", driver.Available, driver.Stats{Rating: 3, RatingsCount: 10}, 0.01)
	d := f.pendingDelivery("order-1")

	got, err := f.service.FindBestDriver(t.Context(), d)

	require.NoError(t, err)
	assert.True(t, got.IsEqual(near))
}

func TestService_FindBestDriver_FallsBackToAllDrivers(t *testing.T) {
	f := newFixture(t)
	far := f.driver("Far", driver.Available, driver.Stats{Rating: 4, RatingsCount: 10}, 1)
	d := f.pendingDelivery("order-1")

	got, err := f.service.FindBestDriver(t.Context(), d)

	require.NoError(t, err)
	assert.True(t, got.IsEqual(far))
}

func TestService_FindBestDriver_NoneAvailable(t *testing.T) {
	f := newFixture(t)
	f.driver("Busy", driver.OnDelivery, driver.Stats{}, 0.01)
	f.driver("Offline", driver.Unavailable, driver.Stats{}, 0.01)
	d := f.pendingDelivery("order-1")

	got, err := f.service.FindBestDriver(t.Context(), d)

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestService_AutoAssign_Success(t *testing.T) {
	recorder := new(MockRecorder)
	recorder.On("Assigned", dispatch.ModeAuto).Once()
	f := newFixture(t, dispatch.WithRecorder(recorder))
	drv := f.availableDriver("Ann", 4.8)
	d := f.pendingDelivery("order-1")

	ok, err := f.service.AutoAssign(t.Context(), d.ID())

	require.NoError(t, err)
	assert.True(t, ok)

	stored := f.loadDelivery(d.ID())
	assert.Equal(t, delivery.Accepted, stored.Status())
	assert.True(t, stored.IsAssignedTo(drv.ID()))
	assert.Equal(t, driver.OnDelivery, f.loadDriver(drv.ID()).Availability())

	assert.Equal(t, []string{events.NameDeliveryAccepted, events.NameNotifyDriver}, f.publisher.names())
	accepted := f.publisher.published()[0].(events.DeliveryAccepted)
	assert.Equal(t, events.DeliveryAccepted{
		DeliveryID: d.ID().String(),
		DriverID:   drv.ID().String(),
		OrderID:    "order-1",
	}, accepted)
	recorder.AssertExpectations(t)
}

func TestService_AutoAssign_AlreadyAcceptedIsNoop(t *testing.T) {
	f := newFixture(t)
	first := f.availableDriver("Ann", 4.8)
	f.availableDriver("Bob", 4.5)
	d := f.pendingDelivery("order-1")
	require.NoError(t, f.service.ManualAccept(t.Context(), d.ID(), first.ID()))
	f.publisher.Calls = nil

	ok, err := f.service.AutoAssign(t.Context(), d.ID())

	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, f.loadDelivery(d.ID()).IsAssignedTo(first.ID()))
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestService_AutoAssign_NoDriverAvailable(t *testing.T) {
	recorder := new(MockRecorder)
	recorder.On("NoDriverAvailable").Once()
	f := newFixture(t, dispatch.WithRecorder(recorder))
	d := f.pendingDelivery("order-1")

	ok, err := f.service.AutoAssign(t.Context(), d.ID())

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, delivery.AwaitingAcceptance, f.loadDelivery(d.ID()).Status())
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	recorder.AssertExpectations(t)
}

func TestService_AutoAssign_UnknownDelivery(t *testing.T) {
	f := newFixture(t)

	ok, err := f.service.AutoAssign(t.Context(), kernel.NewUUID())

	assert.False(t, ok)
	assert.ErrorIs(t, err, ports.ErrDeliveryNotFound)
}

func TestService_ManualAccept_Success(t *testing.T) {
	f := newFixture(t)
	drv := f.availableDriver("Ann", 3)
	d := f.pendingDelivery("order-1")

	err := f.service.ManualAccept(t.Context(), d.ID(), drv.ID())

	require.NoError(t, err)
	assert.True(t, f.loadDelivery(d.ID()).IsAssignedTo(drv.ID()))
	assert.Equal(t, driver.OnDelivery, f.loadDriver(drv.ID()).Availability())
	assert.Equal(t, []string{events.NameDeliveryAccepted, events.NameNotifyDriver}, f.publisher.names())
}

func TestService_ManualAccept_ConcurrentClaims(t *testing.T) {
	const claimants = 8

	f := newFixture(t)
	d := f.pendingDelivery("order-1")
	drivers := make([]*driver.Driver, claimants)
	for i := range drivers {
		drivers[i] = f.availableDriver("Driver", 4)
	}

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, claimants)
	)
	for i, drv := range drivers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs[i] = f.service.ManualAccept(t.Context(), d.ID(), drv.ID())
		}()
	}
	close(start)
	wg.Wait()

	winners := 0
	var winner *driver.Driver
	for i, err := range errs {
		if err == nil {
			winners++
			winner = drivers[i]
			continue
		}
		assert.ErrorIs(t, err, ports.ErrAlreadyAssigned)
	}
	require.Equal(t, 1, winners)

	stored := f.loadDelivery(d.ID())
	assert.True(t, stored.IsAssignedTo(winner.ID()))
	for _, drv := range drivers {
		want := driver.Available
		if drv.IsEqual(winner) {
			want = driver.OnDelivery
		}
		assert.Equal(t, want, f.loadDriver(drv.ID()).Availability())
	}
}

func TestService_ManualAccept_Failures(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(f *fixture) (deliveryID, driverID kernel.UUID)
		wantErr error
	}{
		{
			name: "driver offline",
			prepare: func(f *fixture) (kernel.UUID, kernel.UUID) {
				drv := f.driver("Offline", driver.Unavailable, driver.Stats{}, 0.01)
				return f.pendingDelivery("order-1").ID(), drv.ID()
			},
			wantErr: driver.ErrDriverUnavailable,
		},
		{
			name: "delivery already taken",
			prepare: func(f *fixture) (kernel.UUID, kernel.UUID) {
				first := f.availableDriver("Ann", 4)
				second := f.availableDriver("Bob", 4)
				d := f.pendingDelivery("order-1")
				require.NoError(f.t, f.service.ManualAccept(f.t.Context(), d.ID(), first.ID()))
				return d.ID(), second.ID()
			},
			wantErr: ports.ErrAlreadyAssigned,
		},
		{
			name: "delivery cancelled",
			prepare: func(f *fixture) (kernel.UUID, kernel.UUID) {
				drv := f.availableDriver("Ann", 4)
				d := f.pendingDelivery("order-1")
				require.NoError(f.t, f.service.Cancel(f.t.Context(), d.ID(), "customer request"))
				return d.ID(), drv.ID()
			},
			wantErr: delivery.ErrInvalidStateTransition,
		},
		{
			name: "unknown driver",
			prepare: func(f *fixture) (kernel.UUID, kernel.UUID) {
				return f.pendingDelivery("order-1").ID(), kernel.NewUUID()
			},
			wantErr: ports.ErrDriverNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			deliveryID, driverID := tt.prepare(f)

			err := f.service.ManualAccept(t.Context(), deliveryID, driverID)

			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_Reassign_ToBestOtherDriver(t *testing.T) {
	f := newFixture(t)
	first := f.availableDriver("Ann", 4.9)
	second := f.availableDriver("Bob", 4.0)
	d := f.pendingDelivery("order-1")
	require.NoError(t, f.service.ManualAccept(t.Context(), d.ID(), first.ID()))
	f.publisher.Calls = nil

	ok, err := f.service.Reassign(t.Context(), d.ID(), nil)

	require.NoError(t, err)
	assert.True(t, ok)
	stored := f.loadDelivery(d.ID())
	assert.Equal(t, delivery.Accepted, stored.Status())
	assert.True(t, stored.IsAssignedTo(second.ID()))

	previous := f.loadDriver(first.ID())
	assert.Equal(t, driver.Available, previous.Availability())
	assert.Equal(t, first.Stats(), previous.Stats())
	assert.Equal(t, driver.OnDelivery, f.loadDriver(second.ID()).Availability())

	assert.Equal(t, []string{
		events.NameNotifyDriver,
		events.NameDeliveryAccepted,
		events.NameNotifyDriver,
	}, f.publisher.names())
	assert.Equal(t, first.ID().String(), f.publisher.published()[0].Key())
}

func TestService_Reassign_ToPreferredDriver(t *testing.T) {
	f := newFixture(t)
	first := f.availableDriver("Ann", 4.9)
	f.availableDriver("Bob", 4.5)
	preferred := f.availableDriver("Cid", 3.0)
	d := f.pendingDelivery("order-1")
	require.NoError(t, f.service.ManualAccept(t.Context(), d.ID(), first.ID()))

	ok, err := f.service.Reassign(t.Context(), d.ID(), ptr(preferred.ID()))

	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, f.loadDelivery(d.ID()).IsAssignedTo(preferred.ID()))
}

func TestService_Reassign_NoOtherDriverLeavesPending(t *testing.T) {
	f := newFixture(t)
	only := f.availableDriver("Ann", 4.9)
	d := f.pendingDelivery("order-1")
	require.NoError(t, f.service.ManualAccept(t.Context(), d.ID(), only.ID()))

	ok, err := f.service.Reassign(t.Context(), d.ID(), nil)

	require.NoError(t, err)
	assert.False(t, ok)
	stored := f.loadDelivery(d.ID())
	assert.Equal(t, delivery.AwaitingAcceptance, stored.Status())
	assert.Nil(t, stored.DriverID())
	assert.Equal(t, driver.Available, f.loadDriver(only.ID()).Availability())
}

func TestService_Reassign_UnavailablePreferredDriverChangesNothing(t *testing.T) {
	f := newFixture(t)
	first := f.availableDriver("Ann", 4.9)
	offline := f.driver("Offline", driver.Unavailable, driver.Stats{}, 0.01)
	d := f.pendingDelivery("order-1")
	require.NoError(t, f.service.ManualAccept(t.Context(), d.ID(), first.ID()))

	_, err := f.service.Reassign(t.Context(), d.ID(), ptr(offline.ID()))

	require.ErrorIs(t, err, driver.ErrDriverUnavailable)
	assert.True(t, f.loadDelivery(d.ID()).IsAssignedTo(first.ID()))
	assert.Equal(t, driver.OnDelivery, f.loadDriver(first.ID()).Availability())
}

func TestService_Reassign_AfterPickupFails(t *testing.T) {
	f := newFixture(t)
	drv := f.availableDriver("Ann", 4.9)
	d := f.pendingDelivery("order-1")
	require.NoError(t, f.service.ManualAccept(t.Context(), d.ID(), drv.ID()))
	require.NoError(t, f.service.StartPickup(t.Context(), d.ID(), drv.ID()))

	_, err := f.service.Reassign(t.Context(), d.ID(), nil)

	require.ErrorIs(t, err, delivery.ErrInvalidStateTransition)
	assert.Equal(t, delivery.InTransit, f.loadDelivery(d.ID()).Status())
}

func TestService_ProcessPendingAssignments(t *testing.T) {
	f := newFixture(t)
	f.availableDriver("Ann", 4.9)
	f.availableDriver("Bob", 4.0)
	first := f.pendingDelivery("order-1")
	second := f.pendingDelivery("order-2")
	third := f.pendingDelivery("order-3")

	assigned, err := f.service.ProcessPendingAssignments(t.Context())

	require.NoError(t, err)
	assert.Equal(t, 2, assigned)

	statuses := []delivery.Status{
		f.loadDelivery(first.ID()).Status(),
		f.loadDelivery(second.ID()).Status(),
		f.loadDelivery(third.ID()).Status(),
	}
	assert.ElementsMatch(t, []delivery.Status{delivery.Accepted, delivery.Accepted, delivery.AwaitingAcceptance}, statuses)
}
