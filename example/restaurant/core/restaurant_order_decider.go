package core

import (
	"slices"

	"github.com/AntonStoeckl/decider-eventstore-go/domain"
)

// RestaurantOrder is the state of the RestaurantOrder aggregate. A nil *RestaurantOrder means it does not exist.
type RestaurantOrder struct {
	ID           RestaurantOrderID
	RestaurantID RestaurantID
	Status       OrderStatus
	LineItems    []LineItem
}

// RestaurantOrderDecider decides RestaurantOrderCommands against the RestaurantOrder state.
// A prepared order is terminal.
func RestaurantOrderDecider(
	options ...RestaurantDeciderOption,
) domain.Decider[RestaurantOrderCommand, *RestaurantOrder, RestaurantOrderEvent] {

	s := newDeciderSettings(options)

	return domain.Decider[RestaurantOrderCommand, *RestaurantOrder, RestaurantOrderEvent]{
		InitialState: nil,
		Decide: func(command RestaurantOrderCommand, state *RestaurantOrder) []RestaurantOrderEvent {
			return decideRestaurantOrder(s, command, state)
		},
		Evolve: evolveRestaurantOrder,
		Terminal: func(state *RestaurantOrder) bool {
			return state != nil && state.Status == OrderStatusPrepared
		},
	}
}

func decideRestaurantOrder(s deciderSettings, command RestaurantOrderCommand, state *RestaurantOrder) []RestaurantOrderEvent {
	switch c := command.(type) {
	case CreateRestaurantOrder:
		if state == nil {
			return []RestaurantOrderEvent{RestaurantOrderCreated{
				RestaurantOrderID: c.RestaurantOrderID,
				LineItems:         c.LineItems,
				RestaurantID:      c.RestaurantID,
			}}
		}

		if s.duplicateCreate == IgnoreDuplicateCreate {
			return nil
		}

		return []RestaurantOrderEvent{RestaurantOrderNotCreated{
			RestaurantOrderID: c.RestaurantOrderID,
			LineItems:         c.LineItems,
			RestaurantID:      c.RestaurantID,
			Reason:            ReasonRestaurantOrderAlreadyExists,
		}}

	case MarkRestaurantOrderAsPrepared:
		if state != nil && state.Status == OrderStatusCreated {
			return []RestaurantOrderEvent{RestaurantOrderPrepared{RestaurantOrderID: c.RestaurantOrderID}}
		}

		return []RestaurantOrderEvent{RestaurantOrderNotPrepared{
			RestaurantOrderID: c.RestaurantOrderID,
			Reason:            ReasonRestaurantOrderNotPreparable,
		}}

	default:
		return nil
	}
}

func evolveRestaurantOrder(state *RestaurantOrder, event RestaurantOrderEvent) *RestaurantOrder {
	switch e := event.(type) {
	case RestaurantOrderCreated:
		return &RestaurantOrder{
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
}
