package core

import (
	"slices"

	"github.com/AntonStoeckl/decider-eventstore-go/domain"
)

// RestaurantViewState is the read model of one restaurant.
type RestaurantViewState struct {
	ID   RestaurantID   `json:"id"`
	Name string         `json:"name"`
	Menu RestaurantMenu `json:"menu"`
}

// RestaurantOrderViewState is the read model of one order.
type RestaurantOrderViewState struct {
	ID           RestaurantOrderID `json:"id"`
	RestaurantID RestaurantID      `json:"restaurantId"`
	Status       OrderStatus       `json:"status"`
	LineItems    []LineItem        `json:"lineItems"`
}

// RestaurantView projects restaurant events. Error events leave the state unchanged.
func RestaurantView() domain.View[*RestaurantViewState, RestaurantEvent] {
	return domain.View[*RestaurantViewState, RestaurantEvent]{
		InitialState: nil,
		Evolve: func(state *RestaurantViewState, event RestaurantEvent) *RestaurantViewState {
			switch e := event.(type) {
			case RestaurantCreated:
				return &RestaurantViewState{
					ID:   e.RestaurantID,
					Name: e.Name,
					Menu: restaurantMenuFrom(e.Menu, MenuStatusActive),
				}

			case RestaurantMenuChanged:
				if state == nil {
					return state
				}

				next := *state
				next.Menu = restaurantMenuFrom(e.Menu, MenuStatusActive)

				return &next

			case RestaurantMenuActivated:
				return viewWithMenuStatus(state, MenuStatusActive)

			case RestaurantMenuPassivated:
				return viewWithMenuStatus(state, MenuStatusPassive)

			default:
				return state
			}
		},
	}
}

func viewWithMenuStatus(state *RestaurantViewState, status MenuStatus) *RestaurantViewState {
	if state == nil {
		return state
	}

	next := *state
	next.Menu.Status = status

	return &next
}

// RestaurantOrderView projects order events.
func RestaurantOrderView() domain.View[*RestaurantOrderViewState, RestaurantOrderEvent] {
	return domain.View[*RestaurantOrderViewState, RestaurantOrderEvent]{
		InitialState: nil,
		Evolve: func(state *RestaurantOrderViewState, event RestaurantOrderEvent) *RestaurantOrderViewState {
			switch e := event.(type) {
			case RestaurantOrderCreated:
				return &RestaurantOrderViewState{
					ID:           e.RestaurantOrderID,
					RestaurantID: e.RestaurantID,
					Status:       OrderStatusCreated,
					LineItems:    slices.Clone(e.LineItems),
				}

			case RestaurantOrderPrepared:
				if state == nil {
					return state
				}

				next := *state
				next.Status = OrderStatusPrepared

				return &next

			default:
				return state
			}
		},
	}
}
