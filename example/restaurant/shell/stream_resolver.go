package shell

import (
	"github.com/AntonStoeckl/decider-eventstore-go/application"
	"github.com/AntonStoeckl/decider-eventstore-go/example/restaurant/core"
)

const (
	restaurantStreamPrefix      = "restaurant-"
	restaurantOrderStreamPrefix = "restaurantOrder-"
)

// RestaurantStreamID is the stream of one restaurant.
func RestaurantStreamID(id core.RestaurantID) string {
	return restaurantStreamPrefix + string(id)
}

// RestaurantOrderStreamID is the stream of one order.
func RestaurantOrderStreamID(id core.RestaurantOrderID) string {
	return restaurantOrderStreamPrefix + string(id)
}

// StreamResolver maps every command and event to the stream of the aggregate it targets.
func StreamResolver() application.StreamResolverFuncs[core.Command, core.Event] {
	return application.StreamResolverFuncs[core.Command, core.Event]{
		ForCommand: streamIDsForCommand,
		ForEvent:   streamIDForEvent,
	}
}

func streamIDsForCommand(command core.Command) []string {
	switch c := command.(type) {
	case core.RestaurantCommand:
		return []string{RestaurantStreamID(c.TargetRestaurant())}

	case core.RestaurantOrderCommand:
		return []string{RestaurantOrderStreamID(c.TargetRestaurantOrder())}

	default:
		return nil
	}
}

func streamIDForEvent(event core.Event) string {
	switch e := event.(type) {
	case core.RestaurantEvent:
		return RestaurantStreamID(e.TargetRestaurant())

	case core.RestaurantOrderEvent:
		return RestaurantOrderStreamID(e.TargetRestaurantOrder())

	default:
		return ""
	}
}
