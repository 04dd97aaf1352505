package core

// Command is any command of the example.
type Command interface {
	CommandType() string
}

// RestaurantCommand is a command decided by the RestaurantDecider.
type RestaurantCommand interface {
	Command
	TargetRestaurant() RestaurantID
}

// RestaurantOrderCommand is a command decided by the RestaurantOrderDecider.
type RestaurantOrderCommand interface {
	Command
	TargetRestaurantOrder() RestaurantOrderID
}

const (
	CreateRestaurantCommandType              = "CreateRestaurant"
	ChangeRestaurantMenuCommandType          = "ChangeRestaurantMenu"
	ActivateRestaurantMenuCommandType        = "ActivateRestaurantMenu"
	PassivateRestaurantMenuCommandType       = "PassivateRestaurantMenu"
	PlaceRestaurantOrderCommandType          = "PlaceRestaurantOrder"
	CreateRestaurantOrderCommandType         = "CreateRestaurantOrder"
	MarkRestaurantOrderAsPreparedCommandType = "MarkRestaurantOrderAsPrepared"
)

// CreateRestaurant opens a new restaurant with its first menu.
type CreateRestaurant struct {
	RestaurantID RestaurantID
	Name         string
	Menu         Menu
}

func (c CreateRestaurant) CommandType() string            { return CreateRestaurantCommandType }
func (c CreateRestaurant) TargetRestaurant() RestaurantID { return c.RestaurantID }

// ChangeRestaurantMenu replaces the menu of a restaurant.
type ChangeRestaurantMenu struct {
	RestaurantID RestaurantID
	Menu         Menu
}

func (c ChangeRestaurantMenu) CommandType() string            { return ChangeRestaurantMenuCommandType }
func (c ChangeRestaurantMenu) TargetRestaurant() RestaurantID { return c.RestaurantID }

// ActivateRestaurantMenu allows orders against the menu.
type ActivateRestaurantMenu struct {
	RestaurantID RestaurantID
	MenuID       MenuID
}

func (c ActivateRestaurantMenu) CommandType() string            { return ActivateRestaurantMenuCommandType }
func (c ActivateRestaurantMenu) TargetRestaurant() RestaurantID { return c.RestaurantID }

// PassivateRestaurantMenu stops orders against the menu.
type PassivateRestaurantMenu struct {
	RestaurantID RestaurantID
	MenuID       MenuID
}

func (c PassivateRestaurantMenu) CommandType() string            { return PassivateRestaurantMenuCommandType }
func (c PassivateRestaurantMenu) TargetRestaurant() RestaurantID { return c.RestaurantID }

// PlaceRestaurantOrder places an order at a restaurant. The restaurant decides, the order itself is
// created afterwards by RestaurantOrderSaga.
type PlaceRestaurantOrder struct {
	RestaurantID      RestaurantID
	RestaurantOrderID RestaurantOrderID
	LineItems         []LineItem
}

func (c PlaceRestaurantOrder) CommandType() string            { return PlaceRestaurantOrderCommandType }
func (c PlaceRestaurantOrder) TargetRestaurant() RestaurantID { return c.RestaurantID }

// CreateRestaurantOrder creates the order after it was placed at the restaurant.
type CreateRestaurantOrder struct {
	RestaurantOrderID RestaurantOrderID
	RestaurantID      RestaurantID
	LineItems         []LineItem
}

func (c CreateRestaurantOrder) CommandType() string { return CreateRestaurantOrderCommandType }
func (c CreateRestaurantOrder) TargetRestaurantOrder() RestaurantOrderID {
	return c.RestaurantOrderID
}

// MarkRestaurantOrderAsPrepared marks a created order as prepared.
type MarkRestaurantOrderAsPrepared struct {
	RestaurantOrderID RestaurantOrderID
}

func (c MarkRestaurantOrderAsPrepared) CommandType() string {
	return MarkRestaurantOrderAsPreparedCommandType
}
func (c MarkRestaurantOrderAsPrepared) TargetRestaurantOrder() RestaurantOrderID {
	return c.RestaurantOrderID
}
