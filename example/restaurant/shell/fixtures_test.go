package shell_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/decider-eventstore-go/eventstore/memoryengine"
	"github.com/AntonStoeckl/decider-eventstore-go/eventstore/sqliteengine"
	"github.com/AntonStoeckl/decider-eventstore-go/example/restaurant/core"
	"github.com/AntonStoeckl/decider-eventstore-go/example/restaurant/shell"
)

func givenMenu() core.Menu {
	return core.Menu{
		MenuID:  "menu-1",
		Cuisine: core.CuisineItalian,
		Items: []core.MenuItem{
			{ID: "item-1", MenuItemID: "margherita", Name: "Margherita", Price: 900},
			{ID: "item-2", MenuItemID: "tiramisu", Name: "Tiramisu", Price: 550},
		},
	}
}

func givenLineItems() []core.LineItem {
	return []core.LineItem{{ID: "li-1", Quantity: 2, MenuItemID: "item-1", Name: "Margherita"}}
}

func givenMemoryEventStore(t *testing.T) *memoryengine.EventStore {
	t.Helper()

	store, err := memoryengine.NewEventStore()
	require.NoError(t, err)

	return store
}

func givenSQLiteEventStore(t *testing.T) *sqliteengine.EventStore {
	t.Helper()

	store, err := sqliteengine.Open(filepath.Join(t.TempDir(), "restaurant.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func givenSQLStateStore(t *testing.T) *shell.SQLStateStore {
	t.Helper()

	eventStore := givenSQLiteEventStore(t)

	stateStore, err := shell.NewSQLStateStore(sqlx.NewDb(eventStore.DB(), "sqlite"))
	require.NoError(t, err)
	require.NoError(t, stateStore.CreateSchema(context.Background()))

	return stateStore
}

func givenEventSourcedBus(t *testing.T, store *memoryengine.EventStore) *shell.EventSourcedCommandBus {
	t.Helper()

	repository, err := shell.NewEventRepository(store)
	require.NoError(t, err)

	bus, err := shell.NewEventSourcedCommandBus(repository)
	require.NoError(t, err)

	return bus
}

func givenRestaurantCreated(t *testing.T, bus interface {
	Dispatch(ctx context.Context, command core.Command) error
}, id core.RestaurantID) {
	t.Helper()

	err := bus.Dispatch(context.Background(), core.CreateRestaurant{RestaurantID: id, Name: "Da Mario", Menu: givenMenu()})
	require.NoError(t, err)
}
