package core

import "github.com/AntonStoeckl/decider-eventstore-go/domain"

// RestaurantOrderSaga creates the order once it was placed at the restaurant.
func RestaurantOrderSaga() domain.Saga[RestaurantEvent, RestaurantOrderCommand] {
	return domain.Saga[RestaurantEvent, RestaurantOrderCommand]{
		React: func(event RestaurantEvent) []RestaurantOrderCommand {
			placed, ok := event.(RestaurantOrderPlacedAtRestaurant)
			if !ok {
				return nil
			}

			return []RestaurantOrderCommand{CreateRestaurantOrder{
				RestaurantOrderID: placed.RestaurantOrderID,
				RestaurantID:      placed.RestaurantID,
				LineItems:         placed.LineItems,
			}}
		},
	}
}

// RestaurantSaga reacts to no order event yet. It exists so both families can be combined symmetrically.
func RestaurantSaga() domain.Saga[RestaurantOrderEvent, RestaurantCommand] {
	return domain.Saga[RestaurantOrderEvent, RestaurantCommand]{
		React: func(RestaurantOrderEvent) []RestaurantCommand {
			return nil
		},
	}
}
