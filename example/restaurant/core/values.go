package core

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// RestaurantID identifies a Restaurant.
type RestaurantID string

// RestaurantOrderID identifies a RestaurantOrder.
type RestaurantOrderID string

// MenuID identifies one version of a restaurant menu.
type MenuID string

// NewRestaurantID creates a random RestaurantID.
func NewRestaurantID() RestaurantID {
	return RestaurantID(uuid.NewString())
}

// NewRestaurantOrderID creates a random RestaurantOrderID.
func NewRestaurantOrderID() RestaurantOrderID {
	return RestaurantOrderID(uuid.NewString())
}

// NewMenuID creates a random MenuID.
func NewMenuID() MenuID {
	return MenuID(uuid.NewString())
}

// Money is an amount in the smallest currency unit, e.g. cents.
type Money int64

// Plus adds two amounts.
func (m Money) Plus(delta Money) Money {
	return m + delta
}

// Times multiplies the amount by a quantity.
func (m Money) Times(quantity int) Money {
	return m * Money(quantity)
}

func (m Money) String() string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}

	return fmt.Sprintf("%s%d.%02d", sign, m/100, m%100)
}

// Cuisine is the kind of food a menu offers.
type Cuisine string

const (
	CuisineSerbian Cuisine = "SERBIAN"
	CuisineItalian Cuisine = "ITALIAN"
	CuisineIndian  Cuisine = "INDIAN"
	CuisineTurkish Cuisine = "TURKISH"
	CuisineGeneral Cuisine = "GENERAL"
)

// MenuStatus tells whether orders can be placed against a menu.
type MenuStatus string

const (
	MenuStatusActive  MenuStatus = "ACTIVE"
	MenuStatusPassive MenuStatus = "PASSIVE"
)

// RestaurantStatus is the lifecycle status of a Restaurant.
type RestaurantStatus string

const (
	RestaurantStatusOpen     RestaurantStatus = "OPEN"
	RestaurantStatusClosed   RestaurantStatus = "CLOSED"
	RestaurantStatusShutdown RestaurantStatus = "SHUTDOWN"
)

// OrderStatus is the lifecycle status of a RestaurantOrder.
type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "CREATED"
	OrderStatusPrepared  OrderStatus = "PREPARED"
	OrderStatusRejected  OrderStatus = "REJECTED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// MenuItem is one dish on a menu. ID is what line items refer to.
type MenuItem struct {
	ID         string `json:"id"`
	MenuItemID string `json:"menuItemId"`
	Name       string `json:"name"`
	Price      Money  `json:"price"`
}

// Menu is the menu a restaurant publishes.
type Menu struct {
	MenuID  MenuID     `json:"menuId"`
	Items   []MenuItem `json:"menuItems"`
	Cuisine Cuisine    `json:"cuisine"`
}

// NewMenu builds a menu with a random MenuID. An empty cuisine defaults to CuisineGeneral.
func NewMenu(cuisine Cuisine, items ...MenuItem) Menu {
	if cuisine == "" {
		cuisine = CuisineGeneral
	}

	return Menu{MenuID: NewMenuID(), Items: items, Cuisine: cuisine}
}

// LineItem is one position of an order. MenuItemID refers to MenuItem.ID.
type LineItem struct {
	ID         string `json:"id"`
	Quantity   int    `json:"quantity"`
	MenuItemID string `json:"menuItemId"`
	Name       string `json:"name"`
}

// RestaurantMenu is the menu as part of the Restaurant state, with its status.
type RestaurantMenu struct {
	MenuID  MenuID     `json:"menuId"`
	Items   []MenuItem `json:"menuItems"`
	Cuisine Cuisine    `json:"cuisine"`
	Status  MenuStatus `json:"status"`
}

func restaurantMenuFrom(menu Menu, status MenuStatus) RestaurantMenu {
	return RestaurantMenu{
		MenuID:  menu.MenuID,
		Items:   slices.Clone(menu.Items),
		Cuisine: menu.Cuisine,
		Status:  status,
	}
}

// Offers reports whether every line item refers to an item on the menu.
func (m RestaurantMenu) Offers(lineItems []LineItem) bool {
	for _, lineItem := range lineItems {
		if !slices.ContainsFunc(m.Items, func(item MenuItem) bool { return item.ID == lineItem.MenuItemID }) {
			return false
		}
	}

	return true
}

// Total sums price times quantity over the line items, using the prices of the menu.
// Line items the menu does not offer count as zero.
func (m RestaurantMenu) Total(lineItems []LineItem) Money {
	var total Money

	for _, lineItem := range lineItems {
		idx := slices.IndexFunc(m.Items, func(item MenuItem) bool { return item.ID == lineItem.MenuItemID })
		if idx < 0 {
			continue
		}

		total = total.Plus(m.Items[idx].Price.Times(lineItem.Quantity))
	}

	return total
}
