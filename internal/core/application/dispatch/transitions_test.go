package dispatch_test

import (
	"testing"

	"dispatch/internal/core/application/dispatch"
	"dispatch/internal/core/domain/events"
	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/driver"
	"dispatch/internal/core/domain/model/kernel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func assignedDelivery(f *fixture) (*delivery.Delivery, *driver.Driver) {
	f.t.Helper()
	drv := f.availableDriver("Ann", 4.5)
	d := f.pendingDelivery("order-1")
	require.NoError(f.t, f.service.ManualAccept(f.t.Context(), d.ID(), drv.ID()))
	f.publisher.Calls = nil
	return d, drv
}

func TestService_DepartForPickup(t *testing.T) {
	f := newFixture(t)
	d, drv := assignedDelivery(f)

	require.NoError(t, f.service.DepartForPickup(t.Context(), d.ID(), drv.ID()))
	assert.Equal(t, delivery.EnRouteToPickup, f.loadDelivery(d.ID()).Status())

	err := f.service.DepartForPickup(t.Context(), d.ID(), drv.ID())
	assert.ErrorIs(t, err, delivery.ErrInvalidStateTransition)
}

func TestService_StartPickup(t *testing.T) {
	for _, from := range []delivery.Status{delivery.Accepted, delivery.EnRouteToPickup, delivery.PickedUp} {
		t.Run(from.String(), func(t *testing.T) {
			f := newFixture(t)
			d, drv := assignedDelivery(f)
			stored := f.loadDelivery(d.ID())
			if from != delivery.Accepted {
				require.NoError(t, stored.AdvanceTo(from, delivery.ActionStartPickup))
				require.NoError(t, f.factory.Create().DeliveryRepository().Update(t.Context(), stored))
			}

			err := f.service.StartPickup(t.Context(), d.ID(), drv.ID())

			require.NoError(t, err)
			got := f.loadDelivery(d.ID())
			assert.Equal(t, delivery.InTransit, got.Status())
			assert.True(t, got.IsAssignedTo(drv.ID()))
		})
	}
}

func TestService_StartPickup_DriverMismatch(t *testing.T) {
	f := newFixture(t)
	d, _ := assignedDelivery(f)

	err := f.service.StartPickup(t.Context(), d.ID(), kernel.NewUUID())

	require.ErrorIs(t, err, dispatch.ErrDriverMismatch)
	assert.Equal(t, delivery.Accepted, f.loadDelivery(d.ID()).Status())
}

func TestService_StartPickup_WithoutDriver(t *testing.T) {
	f := newFixture(t)
	d := f.pendingDelivery("order-1")

	err := f.service.StartPickup(t.Context(), d.ID(), kernel.NewUUID())

	var transitionErr *delivery.InvalidStateTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, delivery.AwaitingAcceptance, transitionErr.Current)
	assert.Equal(t, delivery.ActionStartPickup, transitionErr.Action)
}

func TestService_CompleteDelivery(t *testing.T) {
	f := newFixture(t)
	d, drv := assignedDelivery(f)
	require.NoError(t, f.service.StartPickup(t.Context(), d.ID(), drv.ID()))

	err := f.service.CompleteDelivery(t.Context(), d.ID(), drv.ID())

	require.NoError(t, err)
	stored := f.loadDelivery(d.ID())
	assert.Equal(t, delivery.Delivered, stored.Status())
	assert.Nil(t, stored.DriverID())
	require.NotNil(t, stored.DeliveredBy())
	assert.True(t, stored.DeliveredBy().IsEqual(drv.ID()))

	released := f.loadDriver(drv.ID())
	assert.Equal(t, driver.Available, released.Availability())
	assert.Equal(t, 1, released.Stats().CompletedDeliveries)
	assert.Equal(t, 0, released.Stats().Cancellations)

	assert.ErrorIs(t, f.service.Cancel(t.Context(), d.ID(), "too late"), delivery.ErrInvalidStateTransition)
	assert.Equal(t, delivery.Delivered, f.loadDelivery(d.ID()).Status())
}

func TestService_CompleteDelivery_DriverMismatch(t *testing.T) {
	f := newFixture(t)
	d, drv := assignedDelivery(f)
	other := f.availableDriver("Bob", 4)

	err := f.service.CompleteDelivery(t.Context(), d.ID(), other.ID())

	require.ErrorIs(t, err, dispatch.ErrDriverMismatch)
	assert.Equal(t, driver.OnDelivery, f.loadDriver(drv.ID()).Availability())
	assert.Equal(t, 0, f.loadDriver(drv.ID()).Stats().CompletedDeliveries)
}

func TestService_Cancel_ReleasesAssignedDriver(t *testing.T) {
	for _, status := range []delivery.Status{delivery.Accepted, delivery.EnRouteToPickup, delivery.InTransit} {
		t.Run(status.String(), func(t *testing.T) {
			f := newFixture(t)
			d, drv := assignedDelivery(f)
			if status != delivery.Accepted {
				stored := f.loadDelivery(d.ID())
				require.NoError(t, stored.AdvanceTo(status, delivery.ActionStartPickup))
				require.NoError(t, f.factory.Create().DeliveryRepository().Update(t.Context(), stored))
			}

			err := f.service.Cancel(t.Context(), d.ID(), "customer request")

			require.NoError(t, err)
			stored := f.loadDelivery(d.ID())
			assert.Equal(t, delivery.Cancelled, stored.Status())
			assert.Nil(t, stored.DriverID())
			assert.Equal(t, "customer request", stored.CancelReason())

			released := f.loadDriver(drv.ID())
			assert.Equal(t, driver.Available, released.Availability())
			assert.Equal(t, 1, released.Stats().Cancellations)

			assert.Equal(t, []string{events.NameDeliveryCancelled, events.NameNotifyDriver}, f.publisher.names())
			cancelled := f.publisher.published()[0].(events.DeliveryCancelled)
			require.NotNil(t, cancelled.DriverID)
			assert.Equal(t, drv.ID().String(), *cancelled.DriverID)
			assert.Equal(t, "order-1", cancelled.OrderID)
		})
	}
}

func TestService_Cancel_PendingDelivery(t *testing.T) {
	f := newFixture(t)
	d := f.pendingDelivery("order-1")

	require.NoError(t, f.service.Cancel(t.Context(), d.ID(), "out of stock"))

	assert.Equal(t, []string{events.NameDeliveryCancelled}, f.publisher.names())
	assert.Nil(t, f.publisher.published()[0].(events.DeliveryCancelled).DriverID)
}

func TestService_Cancel_TwiceKeepsFirstReason(t *testing.T) {
	f := newFixture(t)
	d := f.pendingDelivery("order-1")
	require.NoError(t, f.service.Cancel(t.Context(), d.ID(), "first"))
	f.publisher.Calls = nil

	require.NoError(t, f.service.Cancel(t.Context(), d.ID(), "second"))

	assert.Equal(t, "first", f.loadDelivery(d.ID()).CancelReason())
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestService_NotificationFailureDoesNotUndoTransition(t *testing.T) {
	recorder := new(MockRecorder)
	recorder.On("Assigned", dispatch.ModeManual).Once()
	recorder.On("NotificationFailed").Once()
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, mock.AnythingOfType("events.DeliveryAccepted")).Return(nil).Once()
	publisher.On("Publish", mock.Anything, mock.AnythingOfType("events.NotifyDriver")).Return(assert.AnError).Once()
	f := newFixtureWithPublisher(t, publisher, dispatch.WithRecorder(recorder))
	drv := f.availableDriver("Ann", 4.5)
	d := f.pendingDelivery("order-1")

	err := f.service.ManualAccept(t.Context(), d.ID(), drv.ID())

	require.NoError(t, err)
	assert.True(t, f.loadDelivery(d.ID()).IsAssignedTo(drv.ID()))
	assert.Equal(t, driver.OnDelivery, f.loadDriver(drv.ID()).Availability())
	publisher.AssertExpectations(t)
	recorder.AssertExpectations(t)
}
