package core_test

import (
	"github.com/AntonStoeckl/decider-eventstore-go/example/restaurant/core"
)

func givenMenu() core.Menu {
	return core.Menu{
		MenuID:  "menu-1",
		Cuisine: core.CuisineSerbian,
		Items: []core.MenuItem{
			{ID: "item-1", MenuItemID: "cevapi", Name: "Cevapi", Price: 1250},
			{ID: "item-2", MenuItemID: "sarma", Name: "Sarma", Price: 980},
		},
	}
}

func givenLineItems() []core.LineItem {
	return []core.LineItem{
		{ID: "li-1", Quantity: 2, MenuItemID: "item-1", Name: "Cevapi"},
		{ID: "li-2", Quantity: 1, MenuItemID: "item-2", Name: "Sarma"},
	}
}

func givenRestaurantCreated(restaurantID core.RestaurantID) core.RestaurantCreated {
	return core.RestaurantCreated{RestaurantID: restaurantID, Name: "Ambar", Menu: givenMenu()}
}
