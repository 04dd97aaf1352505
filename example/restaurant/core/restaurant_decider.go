package core

import "github.com/AntonStoeckl/decider-eventstore-go/domain"

// Restaurant is the state of the Restaurant aggregate. A nil *Restaurant means it does not exist.
type Restaurant struct {
	ID     RestaurantID
	Name   string
	Menu   RestaurantMenu
	Status RestaurantStatus
}

// accepts reports whether an order can be placed: the menu is active and offers all line items.
func (r *Restaurant) accepts(command PlaceRestaurantOrder) bool {
	return r.Menu.Status == MenuStatusActive && r.Menu.Offers(command.LineItems)
}

// DuplicateCreatePolicy tells a decider what to do with a create command for an aggregate that exists.
type DuplicateCreatePolicy int

const (
	// RejectDuplicateCreate decides an explicit "already exists" error event.
	RejectDuplicateCreate DuplicateCreatePolicy = iota

	// IgnoreDuplicateCreate decides no events.
	IgnoreDuplicateCreate
)

// RestaurantDeciderOption configures the Restaurant and RestaurantOrder deciders.
type RestaurantDeciderOption func(*deciderSettings)

type deciderSettings struct {
	duplicateCreate DuplicateCreatePolicy
}

// WithDuplicateCreatePolicy sets the policy for repeated create commands. The default is RejectDuplicateCreate.
func WithDuplicateCreatePolicy(policy DuplicateCreatePolicy) RestaurantDeciderOption {
	return func(s *deciderSettings) {
		s.duplicateCreate = policy
	}
}

func newDeciderSettings(options []RestaurantDeciderOption) deciderSettings {
	s := deciderSettings{duplicateCreate: RejectDuplicateCreate}
	for _, option := range options {
		option(&s)
	}

	return s
}

// RestaurantDecider decides RestaurantCommands against the Restaurant state.
func RestaurantDecider(options ...RestaurantDeciderOption) domain.Decider[RestaurantCommand, *Restaurant, RestaurantEvent] {
	s := newDeciderSettings(options)

	return domain.Decider[RestaurantCommand, *Restaurant, RestaurantEvent]{
		InitialState: nil,
		Decide: func(command RestaurantCommand, state *Restaurant) []RestaurantEvent {
			return decideRestaurant(s, command, state)
		},
		Evolve: evolveRestaurant,
	}
}

func decideRestaurant(s deciderSettings, command RestaurantCommand, state *Restaurant) []RestaurantEvent {
	switch c := command.(type) {
	case CreateRestaurant:
		if state == nil {
			return []RestaurantEvent{RestaurantCreated{RestaurantID: c.RestaurantID, Name: c.Name, Menu: c.Menu}}
		}

		if s.duplicateCreate == IgnoreDuplicateCreate {
			return nil
		}

		return []RestaurantEvent{RestaurantNotCreated{
			RestaurantID: c.RestaurantID,
			Name:         c.Name,
			Menu:         c.Menu,
			Reason:       ReasonRestaurantAlreadyExists,
		}}

	case ChangeRestaurantMenu:
		if state == nil {
			return []RestaurantEvent{RestaurantMenuNotChanged{
				RestaurantID: c.RestaurantID,
				Menu:         c.Menu,
				Reason:       ReasonRestaurantDoesNotExist,
			}}
		}

		return []RestaurantEvent{RestaurantMenuChanged{RestaurantID: c.RestaurantID, Menu: c.Menu}}

	case ActivateRestaurantMenu:
		if state == nil {
			return []RestaurantEvent{RestaurantMenuNotActivated{
				RestaurantID: c.RestaurantID,
				MenuID:       c.MenuID,
				Reason:       ReasonRestaurantDoesNotExist,
			}}
		}

		return []RestaurantEvent{RestaurantMenuActivated{RestaurantID: c.RestaurantID, MenuID: c.MenuID}}

	case PassivateRestaurantMenu:
		if state == nil {
			return []RestaurantEvent{RestaurantMenuNotPassivated{
				RestaurantID: c.RestaurantID,
				MenuID:       c.MenuID,
				Reason:       ReasonRestaurantDoesNotExist,
			}}
		}

		return []RestaurantEvent{RestaurantMenuPassivated{RestaurantID: c.RestaurantID, MenuID: c.MenuID}}

	case PlaceRestaurantOrder:
		switch {
		case state == nil:
			return []RestaurantEvent{RestaurantOrderNotPlacedAtRestaurant{
				RestaurantID:      c.RestaurantID,
				LineItems:         c.LineItems,
				RestaurantOrderID: c.RestaurantOrderID,
				Reason:            ReasonRestaurantDoesNotExist,
			}}

		case !state.accepts(c):
			return []RestaurantEvent{RestaurantOrderRejectedByRestaurant{
				RestaurantID:      c.RestaurantID,
				RestaurantOrderID: c.RestaurantOrderID,
				Reason:            ReasonNotOnTheMenu,
			}}

		default:
			return []RestaurantEvent{RestaurantOrderPlacedAtRestaurant{
				RestaurantID:      c.RestaurantID,
				LineItems:         c.LineItems,
				RestaurantOrderID: c.RestaurantOrderID,
			}}
		}

	default:
		return nil
	}
}

func evolveRestaurant(state *Restaurant, event RestaurantEvent) *Restaurant {
	switch e := event.(type) {
	case RestaurantCreated:
		return &Restaurant{
			ID:     e.RestaurantID,
			Name:   e.Name,
			Menu:   restaurantMenuFrom(e.Menu, MenuStatusActive),
			Status: RestaurantStatusOpen,
		}

	case RestaurantMenuChanged:
		if state == nil {
			return state
		}

		next := *state
		next.Menu = restaurantMenuFrom(e.Menu, MenuStatusActive)

		return &next

	case RestaurantMenuActivated:
		return withMenuStatus(state, MenuStatusActive)

	case RestaurantMenuPassivated:
		return withMenuStatus(state, MenuStatusPassive)

	default:
		return state
	}
}

func withMenuStatus(state *Restaurant, status MenuStatus) *Restaurant {
	if state == nil {
		return state
	}

	next := *state
	next.Menu.Status = status

	return &next
}
