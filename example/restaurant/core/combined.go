package core

import "github.com/AntonStoeckl/decider-eventstore-go/domain"

// RestaurantSystemState is the state of the combined decider: the restaurant half and the order half.
type RestaurantSystemState = domain.Tuple2[*Restaurant, *RestaurantOrder]

// RestaurantSystemDecider combines both deciders into one over all commands and events of the example.
func RestaurantSystemDecider(options ...RestaurantDeciderOption) domain.Decider[Command, RestaurantSystemState, Event] {
	return domain.Combine[Command, Event](RestaurantDecider(options...), RestaurantOrderDecider(options...))
}

// RestaurantSystemSaga combines both sagas into one over all events and commands of the example.
func RestaurantSystemSaga() domain.Saga[Event, Command] {
	return domain.CombineSagas[Event, Command](RestaurantOrderSaga(), RestaurantSaga())
}
