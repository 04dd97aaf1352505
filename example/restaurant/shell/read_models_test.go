package shell_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/decider-eventstore-go/example/restaurant/core"
	"github.com/AntonStoeckl/decider-eventstore-go/example/restaurant/shell"
)

func Test_ReadModels_CatchUp_ProjectsRestaurantsAndOrders(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenMemoryEventStore(t)
	bus := givenEventSourcedBus(t, store)
	givenRestaurantCreated(t, bus, "r-1")
	require.NoError(t, bus.Dispatch(ctx, core.PlaceRestaurantOrder{
		RestaurantID:      "r-1",
		RestaurantOrderID: "o-1",
		LineItems:         givenLineItems(),
	}))

	readModels, err := shell.NewReadModels(store, store)
	require.NoError(t, err)

	// act
	projected, err := readModels.CatchUp(ctx)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 2, projected)

	restaurant, err := readModels.Restaurant(ctx, "r-1")
	require.NoError(t, err)
	require.NotNil(t, restaurant)
	assert.Equal(t, "Da Mario", restaurant.Name)
	assert.Equal(t, core.MenuStatusActive, restaurant.Menu.Status)

	order, err := readModels.RestaurantOrder(ctx, "o-1")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, core.OrderStatusCreated, order.Status)
	assert.Equal(t, givenLineItems(), order.LineItems)
}

func Test_ReadModels_CatchUp_ContinuesAfterTheCheckpoint(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenMemoryEventStore(t)
	bus := givenEventSourcedBus(t, store)
	givenRestaurantCreated(t, bus, "r-1")
	require.NoError(t, bus.Dispatch(ctx, core.PlaceRestaurantOrder{
		RestaurantID:      "r-1",
		RestaurantOrderID: "o-1",
		LineItems:         givenLineItems(),
	}))

	readModels, err := shell.NewReadModels(store, store)
	require.NoError(t, err)
	_, err = readModels.CatchUp(ctx)
	require.NoError(t, err)

	// act
	projectedWithoutNewEvents, err := readModels.CatchUp(ctx)
	require.NoError(t, err)

	require.NoError(t, bus.Dispatch(ctx, core.MarkRestaurantOrderAsPrepared{RestaurantOrderID: "o-1"}))
	require.NoError(t, bus.Dispatch(ctx, core.PassivateRestaurantMenu{RestaurantID: "r-1", MenuID: "menu-1"}))
	projectedNewEvents, err := readModels.CatchUp(ctx)

	// assert
	require.NoError(t, err)
	assert.Zero(t, projectedWithoutNewEvents)
	assert.Equal(t, 2, projectedNewEvents)

	order, err := readModels.RestaurantOrder(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, core.OrderStatusPrepared, order.Status)

	restaurant, err := readModels.Restaurant(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, core.MenuStatusPassive, restaurant.Menu.Status)
}

func Test_ReadModels_CatchUp_SkipsRejections(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenMemoryEventStore(t)
	bus := givenEventSourcedBus(t, store)
	require.NoError(t, bus.Dispatch(ctx, core.ActivateRestaurantMenu{RestaurantID: "r-404", MenuID: "menu-1"}))

	readModels, err := shell.NewReadModels(store, store)
	require.NoError(t, err)

	// act
	projected, err := readModels.CatchUp(ctx)

	// assert
	require.NoError(t, err)
	assert.Zero(t, projected)

	restaurant, err := readModels.Restaurant(ctx, "r-404")
	require.NoError(t, err)
	assert.Nil(t, restaurant)
}

func Test_ReadModels_CatchUp_WithSQLite(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenSQLiteEventStore(t)

	repository, err := shell.NewEventRepository(store)
	require.NoError(t, err)

	bus, err := shell.NewEventSourcedCommandBus(repository)
	require.NoError(t, err)
	givenRestaurantCreated(t, bus, "r-1")
	require.NoError(t, bus.Dispatch(ctx, core.PlaceRestaurantOrder{
		RestaurantID:      "r-1",
		RestaurantOrderID: "o-1",
		LineItems:         givenLineItems(),
	}))

	readModels, err := shell.NewReadModels(store, store)
	require.NoError(t, err)

	// act
	projected, err := readModels.CatchUp(ctx)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 2, projected)

	order, err := readModels.RestaurantOrder(ctx, "o-1")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, core.RestaurantID("r-1"), order.RestaurantID)
}

func Test_NewReadModels_RejectsMissingStores(t *testing.T) {
	// arrange
	store := givenMemoryEventStore(t)

	// act
	_, eventStoreErr := shell.NewReadModels(nil, store)
	_, snapshotStoreErr := shell.NewReadModels(store, nil)

	// assert
	assert.ErrorIs(t, eventStoreErr, shell.ErrNilEventStore)
	assert.ErrorIs(t, snapshotStoreErr, shell.ErrNilSnapshotStore)
}
