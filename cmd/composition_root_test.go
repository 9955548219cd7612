package cmd

import (
	"testing"

	"dispatch/internal/core/application/dispatch"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(t *testing.T) Config {
	t.Helper()
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	cfg.StorageDriver = StorageMemory
	cfg.EventsDriver = EventsLog
	return cfg
}

func TestCompositionRoot_Memory(t *testing.T) {
	app, err := NewCompositionRoot(memoryConfig(t), nil, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, app.Close()) })

	router, err := app.CreateRouter()
	require.NoError(t, err)
	assert.NotNil(t, router)

	consumer, err := app.CreateOrderConsumer()
	require.NoError(t, err)
	assert.Nil(t, consumer)

	assert.NotNil(t, app.CreateJobManager())

	d, err := app.DispatchService().CreateForOrder(t.Context(), dispatch.OrderConfirmed{
		OrderID:         "order-1",
		DeliveryAddress: dispatch.Address{Street: "Main St", City: "Springfield"},
		PickupAddress:   &dispatch.Address{Street: "Warehouse Rd", City: "Springfield"},
	})
	require.NoError(t, err)
	assert.Equal(t, "order-1", d.OrderID())

	families, err := app.Registry().Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "dispatch_no_driver_available_total")
}

func TestCompositionRoot_PostgresNeedsDB(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.StorageDriver = StoragePostgres

	_, err := NewCompositionRoot(cfg, nil, zerolog.Nop())

	require.Error(t, err)
}
