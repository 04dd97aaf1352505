package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/decider-eventstore-go/example/restaurant/core"
)

func Test_RestaurantSystemDecider_RoutesCommandsToTheirFamily(t *testing.T) {
	// arrange
	decider := core.RestaurantSystemDecider()
	history := []core.Event{givenRestaurantCreated("r-1")}

	// act
	restaurantEvents := decider.ComputeNewEvents(history, core.ActivateRestaurantMenu{RestaurantID: "r-1", MenuID: "menu-1"})
	orderEvents := decider.ComputeNewEvents(history, core.CreateRestaurantOrder{RestaurantOrderID: "o-1", RestaurantID: "r-1"})

	// assert
	assert.Equal(t, []core.Event{core.RestaurantMenuActivated{RestaurantID: "r-1", MenuID: "menu-1"}}, restaurantEvents)
	assert.Equal(t, []core.Event{core.RestaurantOrderCreated{RestaurantOrderID: "o-1", RestaurantID: "r-1"}}, orderEvents)
}

func Test_RestaurantSystemDecider_EvolvesBothHalves(t *testing.T) {
	// arrange
	decider := core.RestaurantSystemDecider()
	history := []core.Event{
		givenRestaurantCreated("r-1"),
		core.RestaurantOrderCreated{RestaurantOrderID: "o-1", RestaurantID: "r-1"},
	}

	// act
	state := decider.Fold(decider.InitialState, history)

	// assert
	require.NotNil(t, state.First)
	require.NotNil(t, state.Second)
	assert.Equal(t, core.RestaurantID("r-1"), state.First.ID)
	assert.Equal(t, core.RestaurantOrderID("o-1"), state.Second.ID)
}

func Test_RestaurantSystemDecider_ReplayIsDeterministic(t *testing.T) {
	// arrange
	decider := core.RestaurantSystemDecider()
	history := []core.Event{
		givenRestaurantCreated("r-1"),
		core.RestaurantMenuPassivated{RestaurantID: "r-1", MenuID: "menu-1"},
		core.RestaurantOrderRejectedByRestaurant{RestaurantID: "r-1", RestaurantOrderID: "o-1", Reason: core.ReasonNotOnTheMenu},
	}

	// act
	first := decider.Fold(decider.InitialState, history)
	second := decider.Fold(decider.InitialState, history)

	// assert
	assert.Equal(t, first, second)
	assert.Equal(t, core.MenuStatusPassive, first.First.Menu.Status)
}

func Test_RestaurantSystemSaga_TurnsPlacedOrderIntoCreateOrder(t *testing.T) {
	// arrange
	saga := core.RestaurantSystemSaga()
	placed := core.RestaurantOrderPlacedAtRestaurant{RestaurantID: "r-1", RestaurantOrderID: "o-1", LineItems: givenLineItems()}

	// act
	commands := saga.React(placed)

	// assert
	assert.Equal(t, []core.Command{core.CreateRestaurantOrder{
		RestaurantOrderID: "o-1",
		RestaurantID:      "r-1",
		LineItems:         givenLineItems(),
	}}, commands)
}

func Test_RestaurantSystemSaga_IgnoresOtherEvents(t *testing.T) {
	// arrange
	saga := core.RestaurantSystemSaga()

	// act
	fromRestaurant := saga.React(givenRestaurantCreated("r-1"))
	fromOrder := saga.React(core.RestaurantOrderPrepared{RestaurantOrderID: "o-1"})

	// assert
	assert.Empty(t, fromRestaurant)
	assert.Empty(t, fromOrder)
}
