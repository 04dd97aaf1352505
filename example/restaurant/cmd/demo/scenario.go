package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/AntonStoeckl/decider-eventstore-go/example/restaurant/core"
)

const ordersPerRestaurant = 3

var cuisines = []core.Cuisine{core.CuisineItalian, core.CuisineSerbian, core.CuisineIndian, core.CuisineTurkish}

// placedOrders collects the ids of all orders the scenario placed, keyed by the expected final status.
type placedOrders struct {
	mu       sync.Mutex
	expected map[core.RestaurantOrderID]core.OrderStatus
}

func (p *placedOrders) add(id core.RestaurantOrderID, status core.OrderStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.expected[id] = status
}

// runScenario opens the given number of restaurants concurrently. Each one takes a few orders, prepares
// the first, then passivates its menu and gets one more order, which is rejected.
func runScenario(ctx context.Context, a app, restaurants int, logger *slog.Logger) (map[core.RestaurantOrderID]core.OrderStatus, error) {
	orders := &placedOrders{expected: make(map[core.RestaurantOrderID]core.OrderStatus)}

	g, ctx := errgroup.WithContext(ctx)

	for i := range restaurants {
		g.Go(func() error {
			return runRestaurant(ctx, a, i, orders, logger)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return orders.expected, nil
}

func runRestaurant(ctx context.Context, a app, index int, orders *placedOrders, logger *slog.Logger) error {
	restaurantID := core.NewRestaurantID()
	menu := core.NewMenu(
		cuisines[index%len(cuisines)],
		core.MenuItem{ID: "item-1", MenuItemID: "house-special", Name: "House special", Price: 1450},
		core.MenuItem{ID: "item-2", MenuItemID: "dessert", Name: "Dessert", Price: 690},
	)

	err := a.dispatcher.Dispatch(ctx, core.CreateRestaurant{
		RestaurantID: restaurantID,
		Name:         fmt.Sprintf("Restaurant %d", index+1),
		Menu:         menu,
	})
	if err != nil {
		return fmt.Errorf("create restaurant %s: %w", restaurantID, err)
	}

	lineItems := []core.LineItem{
		{ID: "line-1", Quantity: 2, MenuItemID: "item-1", Name: "House special"},
		{ID: "line-2", Quantity: 1, MenuItemID: "item-2", Name: "Dessert"},
	}

	placed := make([]core.RestaurantOrderID, 0, ordersPerRestaurant)
	for range ordersPerRestaurant {
		orderID := core.NewRestaurantOrderID()

		err = a.dispatcher.Dispatch(ctx, core.PlaceRestaurantOrder{
			RestaurantID:      restaurantID,
			RestaurantOrderID: orderID,
			LineItems:         lineItems,
		})
		if err != nil {
			return fmt.Errorf("place order %s: %w", orderID, err)
		}

		placed = append(placed, orderID)
	}

	if err = a.dispatcher.Dispatch(ctx, core.MarkRestaurantOrderAsPrepared{RestaurantOrderID: placed[0]}); err != nil {
		return fmt.Errorf("prepare order %s: %w", placed[0], err)
	}

	for i, orderID := range placed {
		status := core.OrderStatusCreated
		if i == 0 {
			status = core.OrderStatusPrepared
		}

		orders.add(orderID, status)
	}

	err = a.dispatcher.Dispatch(ctx, core.PassivateRestaurantMenu{RestaurantID: restaurantID, MenuID: menu.MenuID})
	if err != nil {
		return fmt.Errorf("passivate menu of %s: %w", restaurantID, err)
	}

	rejectedID := core.NewRestaurantOrderID()

	err = a.dispatcher.Dispatch(ctx, core.PlaceRestaurantOrder{
		RestaurantID:      restaurantID,
		RestaurantOrderID: rejectedID,
		LineItems:         lineItems,
	})
	if err != nil {
		return fmt.Errorf("place order %s: %w", rejectedID, err)
	}

	orders.add(rejectedID, "")

	logger.Info("restaurant served",
		"restaurant_id", restaurantID,
		"cuisine", menu.Cuisine,
		"orders", len(placed),
		"revenue", core.RestaurantMenu{Items: menu.Items}.Total(lineItems).Times(len(placed)).String(),
	)

	return nil
}

// verify compares the stored order states with the expected ones. An empty expected status means the
// order must not exist.
func verify(ctx context.Context, a app, expected map[core.RestaurantOrderID]core.OrderStatus, logger *slog.Logger) error {
	mismatches := 0

	for orderID, want := range expected {
		got, found, err := a.orderStatus(ctx, orderID)
		if err != nil {
			return err
		}

		switch {
		case want == "" && found:
			mismatches++
			logger.Warn("rejected order exists", "order_id", orderID, "status", got)
		case want != "" && got != want:
			mismatches++
			logger.Warn("unexpected order status", "order_id", orderID, "expected", want, "actual", got)
		}
	}

	if mismatches > 0 {
		return fmt.Errorf("%d of %d orders are not in the expected state", mismatches, len(expected))
	}

	logger.Info("all orders verified", "orders", len(expected))

	return nil
}
