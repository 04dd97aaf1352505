// Package core contains the pure domain of the example:
// Restaurants that publish a menu, and the orders placed at them.
//
// Two aggregate families live here, Restaurant and RestaurantOrder, each with its own Decider.
// Commands and events are closed families of structs behind marker interfaces, so the combined
// Decider can route them by type. Business rejections are events with a Reason, never errors.
//
// RestaurantOrderSaga connects the families: an order placed at a restaurant leads to the command
// that creates the RestaurantOrder.
//
// In Domain-Driven Design or Hexagonal Architecture terminology, this would be
// called the 'domain' layer.
package core
