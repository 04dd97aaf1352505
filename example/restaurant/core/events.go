package core

// Event is any event of the example.
type Event interface {
	EventType() string

	// IsErrorEvent returns true if this event represents a business rejection.
	IsErrorEvent() bool
}

// RestaurantEvent is an event of the Restaurant family, appended to the restaurant's stream.
type RestaurantEvent interface {
	Event
	TargetRestaurant() RestaurantID
}

// RestaurantOrderEvent is an event of the RestaurantOrder family, appended to the order's stream.
type RestaurantOrderEvent interface {
	Event
	TargetRestaurantOrder() RestaurantOrderID
}

// ErrorEvent is a business rejection. It is persisted like any other event.
type ErrorEvent interface {
	Event
	RejectionReason() string
}

const (
	RestaurantCreatedEventType                    = "RestaurantCreated"
	RestaurantNotCreatedEventType                 = "RestaurantNotCreated"
	RestaurantMenuChangedEventType                = "RestaurantMenuChanged"
	RestaurantMenuNotChangedEventType             = "RestaurantMenuNotChanged"
	RestaurantMenuActivatedEventType              = "RestaurantMenuActivated"
	RestaurantMenuNotActivatedEventType           = "RestaurantMenuNotActivated"
	RestaurantMenuPassivatedEventType             = "RestaurantMenuPassivated"
	RestaurantMenuNotPassivatedEventType          = "RestaurantMenuNotPassivated"
	RestaurantOrderPlacedAtRestaurantEventType    = "RestaurantOrderPlacedAtRestaurant"
	RestaurantOrderNotPlacedAtRestaurantEventType = "RestaurantOrderNotPlacedAtRestaurant"
	RestaurantOrderRejectedByRestaurantEventType  = "RestaurantOrderRejectedByRestaurant"
	RestaurantOrderCreatedEventType               = "RestaurantOrderCreated"
	RestaurantOrderNotCreatedEventType            = "RestaurantOrderNotCreated"
	RestaurantOrderPreparedEventType              = "RestaurantOrderPrepared"
	RestaurantOrderNotPreparedEventType           = "RestaurantOrderNotPrepared"
	RestaurantOrderRejectedEventType              = "RestaurantOrderRejected"
)

const (
	ReasonRestaurantAlreadyExists      = "Restaurant already exists"
	ReasonRestaurantDoesNotExist       = "Restaurant does not exist"
	ReasonNotOnTheMenu                 = "Not on the menu"
	ReasonRestaurantOrderAlreadyExists = "Restaurant order already exists"
	ReasonRestaurantOrderNotPreparable = "Restaurant order does not exist / not in CREATED status"
)

// Restaurant events

type RestaurantCreated struct {
	RestaurantID RestaurantID `json:"restaurantId"`
	Name         string       `json:"name"`
	Menu         Menu         `json:"menu"`
}

func (e RestaurantCreated) EventType() string              { return RestaurantCreatedEventType }
func (e RestaurantCreated) IsErrorEvent() bool             { return false }
func (e RestaurantCreated) TargetRestaurant() RestaurantID { return e.RestaurantID }

type RestaurantNotCreated struct {
	RestaurantID RestaurantID `json:"restaurantId"`
	Name         string       `json:"name"`
	Menu         Menu         `json:"menu"`
	Reason       string       `json:"reason"`
}

func (e RestaurantNotCreated) EventType() string              { return RestaurantNotCreatedEventType }
func (e RestaurantNotCreated) IsErrorEvent() bool             { return true }
func (e RestaurantNotCreated) TargetRestaurant() RestaurantID { return e.RestaurantID }
func (e RestaurantNotCreated) RejectionReason() string        { return e.Reason }

type RestaurantMenuChanged struct {
	RestaurantID RestaurantID `json:"restaurantId"`
	Menu         Menu         `json:"menu"`
}

func (e RestaurantMenuChanged) EventType() string              { return RestaurantMenuChangedEventType }
func (e RestaurantMenuChanged) IsErrorEvent() bool             { return false }
func (e RestaurantMenuChanged) TargetRestaurant() RestaurantID { return e.RestaurantID }

type RestaurantMenuNotChanged struct {
	RestaurantID RestaurantID `json:"restaurantId"`
	Menu         Menu         `json:"menu"`
	Reason       string       `json:"reason"`
}

func (e RestaurantMenuNotChanged) EventType() string              { return RestaurantMenuNotChangedEventType }
func (e RestaurantMenuNotChanged) IsErrorEvent() bool             { return true }
func (e RestaurantMenuNotChanged) TargetRestaurant() RestaurantID { return e.RestaurantID }
func (e RestaurantMenuNotChanged) RejectionReason() string        { return e.Reason }

type RestaurantMenuActivated struct {
	RestaurantID RestaurantID `json:"restaurantId"`
	MenuID       MenuID       `json:"menuId"`
}

func (e RestaurantMenuActivated) EventType() string              { return RestaurantMenuActivatedEventType }
func (e RestaurantMenuActivated) IsErrorEvent() bool             { return false }
func (e RestaurantMenuActivated) TargetRestaurant() RestaurantID { return e.RestaurantID }

type RestaurantMenuNotActivated struct {
	RestaurantID RestaurantID `json:"restaurantId"`
	MenuID       MenuID       `json:"menuId"`
	Reason       string       `json:"reason"`
}

func (e RestaurantMenuNotActivated) EventType() string              { return RestaurantMenuNotActivatedEventType }
func (e RestaurantMenuNotActivated) IsErrorEvent() bool             { return true }
func (e RestaurantMenuNotActivated) TargetRestaurant() RestaurantID { return e.RestaurantID }
func (e RestaurantMenuNotActivated) RejectionReason() string        { return e.Reason }

type RestaurantMenuPassivated struct {
	RestaurantID RestaurantID `json:"restaurantId"`
	MenuID       MenuID       `json:"menuId"`
}

func (e RestaurantMenuPassivated) EventType() string              { return RestaurantMenuPassivatedEventType }
func (e RestaurantMenuPassivated) IsErrorEvent() bool             { return false }
func (e RestaurantMenuPassivated) TargetRestaurant() RestaurantID { return e.RestaurantID }

type RestaurantMenuNotPassivated struct {
	RestaurantID RestaurantID `json:"restaurantId"`
	MenuID       MenuID       `json:"menuId"`
	Reason       string       `json:"reason"`
}

func (e RestaurantMenuNotPassivated) EventType() string              { return RestaurantMenuNotPassivatedEventType }
func (e RestaurantMenuNotPassivated) IsErrorEvent() bool             { return true }
func (e RestaurantMenuNotPassivated) TargetRestaurant() RestaurantID { return e.RestaurantID }
func (e RestaurantMenuNotPassivated) RejectionReason() string        { return e.Reason }

type RestaurantOrderPlacedAtRestaurant struct {
	RestaurantID      RestaurantID      `json:"restaurantId"`
	LineItems         []LineItem        `json:"lineItems"`
	RestaurantOrderID RestaurantOrderID `json:"restaurantOrderId"`
}

func (e RestaurantOrderPlacedAtRestaurant) EventType() string {
	return RestaurantOrderPlacedAtRestaurantEventType
}
func (e RestaurantOrderPlacedAtRestaurant) IsErrorEvent() bool             { return false }
func (e RestaurantOrderPlacedAtRestaurant) TargetRestaurant() RestaurantID { return e.RestaurantID }

type RestaurantOrderNotPlacedAtRestaurant struct {
	RestaurantID      RestaurantID      `json:"restaurantId"`
	LineItems         []LineItem        `json:"lineItems"`
	RestaurantOrderID RestaurantOrderID `json:"restaurantOrderId"`
	Reason            string            `json:"reason"`
}

func (e RestaurantOrderNotPlacedAtRestaurant) EventType() string {
	return RestaurantOrderNotPlacedAtRestaurantEventType
}
func (e RestaurantOrderNotPlacedAtRestaurant) IsErrorEvent() bool             { return true }
func (e RestaurantOrderNotPlacedAtRestaurant) TargetRestaurant() RestaurantID { return e.RestaurantID }
func (e RestaurantOrderNotPlacedAtRestaurant) RejectionReason() string        { return e.Reason }

type RestaurantOrderRejectedByRestaurant struct {
	RestaurantID      RestaurantID      `json:"restaurantId"`
	RestaurantOrderID RestaurantOrderID `json:"restaurantOrderId"`
	Reason            string            `json:"reason"`
}

func (e RestaurantOrderRejectedByRestaurant) EventType() string {
	return RestaurantOrderRejectedByRestaurantEventType
}
func (e RestaurantOrderRejectedByRestaurant) IsErrorEvent() bool             { return true }
func (e RestaurantOrderRejectedByRestaurant) TargetRestaurant() RestaurantID { return e.RestaurantID }
func (e RestaurantOrderRejectedByRestaurant) RejectionReason() string        { return e.Reason }

// RestaurantOrder events

type RestaurantOrderCreated struct {
	RestaurantOrderID RestaurantOrderID `json:"restaurantOrderId"`
	LineItems         []LineItem        `json:"lineItems"`
	RestaurantID      RestaurantID      `json:"restaurantId"`
}

func (e RestaurantOrderCreated) EventType() string  { return RestaurantOrderCreatedEventType }
func (e RestaurantOrderCreated) IsErrorEvent() bool { return false }
func (e RestaurantOrderCreated) TargetRestaurantOrder() RestaurantOrderID {
	return e.RestaurantOrderID
}

type RestaurantOrderNotCreated struct {
	RestaurantOrderID RestaurantOrderID `json:"restaurantOrderId"`
	LineItems         []LineItem        `json:"lineItems"`
	RestaurantID      RestaurantID      `json:"restaurantId"`
	Reason            string            `json:"reason"`
}

func (e RestaurantOrderNotCreated) EventType() string  { return RestaurantOrderNotCreatedEventType }
func (e RestaurantOrderNotCreated) IsErrorEvent() bool { return true }
func (e RestaurantOrderNotCreated) TargetRestaurantOrder() RestaurantOrderID {
	return e.RestaurantOrderID
}
func (e RestaurantOrderNotCreated) RejectionReason() string { return e.Reason }

type RestaurantOrderPrepared struct {
	RestaurantOrderID RestaurantOrderID `json:"restaurantOrderId"`
}

func (e RestaurantOrderPrepared) EventType() string  { return RestaurantOrderPreparedEventType }
func (e RestaurantOrderPrepared) IsErrorEvent() bool { return false }
func (e RestaurantOrderPrepared) TargetRestaurantOrder() RestaurantOrderID {
	return e.RestaurantOrderID
}

type RestaurantOrderNotPrepared struct {
	RestaurantOrderID RestaurantOrderID `json:"restaurantOrderId"`
	Reason            string            `json:"reason"`
}

func (e RestaurantOrderNotPrepared) EventType() string  { return RestaurantOrderNotPreparedEventType }
func (e RestaurantOrderNotPrepared) IsErrorEvent() bool { return true }
func (e RestaurantOrderNotPrepared) TargetRestaurantOrder() RestaurantOrderID {
	return e.RestaurantOrderID
}
func (e RestaurantOrderNotPrepared) RejectionReason() string { return e.Reason }

type RestaurantOrderRejected struct {
	RestaurantOrderID RestaurantOrderID `json:"restaurantOrderId"`
	Reason            string            `json:"reason"`
}

func (e RestaurantOrderRejected) EventType() string  { return RestaurantOrderRejectedEventType }
func (e RestaurantOrderRejected) IsErrorEvent() bool { return true }
func (e RestaurantOrderRejected) TargetRestaurantOrder() RestaurantOrderID {
	return e.RestaurantOrderID
}
func (e RestaurantOrderRejected) RejectionReason() string { return e.Reason }
