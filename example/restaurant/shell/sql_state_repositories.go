package shell

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
	"github.com/AntonStoeckl/decider-eventstore-go/example/restaurant/core"
)

type restaurantRow struct {
	ID         string `db:"id"`
	Name       string `db:"name"`
	Status     string `db:"status"`
	MenuID     string `db:"menu_id"`
	Cuisine    string `db:"cuisine"`
	MenuStatus string `db:"menu_status"`
	Version    int64  `db:"version"`
}

type menuItemRow struct {
	ID         string `db:"id"`
	MenuItemID string `db:"menu_item_id"`
	Name       string `db:"name"`
	Price      int64  `db:"price"`
}

type restaurantOrderRow struct {
	ID           string `db:"id"`
	RestaurantID string `db:"restaurant_id"`
	Status       string `db:"status"`
	Version      int64  `db:"version"`
}

type lineItemRow struct {
	ID         string `db:"id"`
	Quantity   int    `db:"quantity"`
	MenuItemID string `db:"menu_item_id"`
	Name       string `db:"name"`
}

// SQLRestaurantRepository stores restaurants as a header row plus one row per menu item.
type SQLRestaurantRepository struct {
	store *SQLStateStore
}

// NewSQLRestaurantRepository creates the repository on store.
func NewSQLRestaurantRepository(store *SQLStateStore) SQLRestaurantRepository {
	return SQLRestaurantRepository{store: store}
}

// FetchState loads the restaurant the command targets, or (nil, eventstore.NoStream) if there is none.
func (r SQLRestaurantRepository) FetchState(
	ctx context.Context,
	command core.RestaurantCommand,
) (*core.Restaurant, eventstore.SequenceNumber, error) {

	return r.Get(ctx, command.TargetRestaurant())
}

// Get loads a restaurant by id.
func (r SQLRestaurantRepository) Get(ctx context.Context, id core.RestaurantID) (*core.Restaurant, eventstore.SequenceNumber, error) {
	var restaurant *core.Restaurant
	version := eventstore.NoStream

	err := r.store.inTx(ctx, func(tx *sqlx.Tx) error {
		var header restaurantRow
		found, err := r.store.get(ctx, tx, &header, r.store.dialect.
			From(tableRestaurants).
			Select("id", "name", "status", "menu_id", "cuisine", "menu_status", "version").
			Where(goqu.C("id").Eq(string(id))))
		if err != nil || !found {
			return err
		}

		var items []menuItemRow
		err = r.store.selectAll(ctx, tx, &items, r.store.dialect.
			From(tableMenuItems).
			Select("id", "menu_item_id", "name", "price").
			Where(goqu.C("restaurant_id").Eq(string(id))).
			Order(goqu.C("item_index").Asc()))
		if err != nil {
			return err
		}

		restaurant = restaurantFromRows(header, items)
		version = header.Version

		return nil
	})
	if err != nil {
		return nil, eventstore.NoStream, err
	}

	return restaurant, version, nil
}

// Save writes the header and replaces the menu items in one transaction if version is still the stored one.
// An absent restaurant is not written.
func (r SQLRestaurantRepository) Save(
	ctx context.Context,
	command core.RestaurantCommand,
	state *core.Restaurant,
	version eventstore.SequenceNumber,
) (eventstore.SequenceNumber, error) {

	if state == nil {
		return version, nil
	}

	id := string(command.TargetRestaurant())

	err := r.store.inTx(ctx, func(tx *sqlx.Tx) error {
		header := goqu.Record{
			"name":        state.Name,
			"status":      string(state.Status),
			"menu_id":     string(state.Menu.MenuID),
			"cuisine":     string(state.Menu.Cuisine),
			"menu_status": string(state.Menu.Status),
		}

		if err := r.store.writeHeader(ctx, tx, tableRestaurants, id, header, version); err != nil {
			return err
		}

		rows := make([]any, 0, len(state.Menu.Items))
		for i, item := range state.Menu.Items {
			rows = append(rows, goqu.Record{
				"restaurant_id": id,
				"item_index":    i,
				"id":            item.ID,
				"menu_item_id":  item.MenuItemID,
				"name":          item.Name,
				"price":         int64(item.Price),
			})
		}

		return r.store.replaceItems(ctx, tx, tableMenuItems, "restaurant_id", id, rows)
	})
	if err != nil {
		return version, err
	}

	return version + 1, nil
}

func restaurantFromRows(header restaurantRow, items []menuItemRow) *core.Restaurant {
	menuItems := make([]core.MenuItem, 0, len(items))
	for _, item := range items {
		menuItems = append(menuItems, core.MenuItem{
			ID:         item.ID,
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Price:      core.Money(item.Price),
		})
	}

	return &core.Restaurant{
		ID:     core.RestaurantID(header.ID),
		Name:   header.Name,
		Status: core.RestaurantStatus(header.Status),
		Menu: core.RestaurantMenu{
			MenuID:  core.MenuID(header.MenuID),
			Items:   menuItems,
			Cuisine: core.Cuisine(header.Cuisine),
			Status:  core.MenuStatus(header.MenuStatus),
		},
	}
}

// SQLRestaurantOrderRepository stores orders as a header row plus one row per line item.
type SQLRestaurantOrderRepository struct {
	store *SQLStateStore
}

// NewSQLRestaurantOrderRepository creates the repository on store.
func NewSQLRestaurantOrderRepository(store *SQLStateStore) SQLRestaurantOrderRepository {
	return SQLRestaurantOrderRepository{store: store}
}

// FetchState loads the order the command targets, or (nil, eventstore.NoStream) if there is none.
func (r SQLRestaurantOrderRepository) FetchState(
	ctx context.Context,
	command core.RestaurantOrderCommand,
) (*core.RestaurantOrder, eventstore.SequenceNumber, error) {

	return r.Get(ctx, command.TargetRestaurantOrder())
}

// Get loads an order by id.
func (r SQLRestaurantOrderRepository) Get(
	ctx context.Context,
	id core.RestaurantOrderID,
) (*core.RestaurantOrder, eventstore.SequenceNumber, error) {

	var order *core.RestaurantOrder
	version := eventstore.NoStream

	err := r.store.inTx(ctx, func(tx *sqlx.Tx) error {
		var header restaurantOrderRow
		found, err := r.store.get(ctx, tx, &header, r.store.dialect.
			From(tableRestaurantOrders).
			Select("id", "restaurant_id", "status", "version").
			Where(goqu.C("id").Eq(string(id))))
		if err != nil || !found {
			return err
		}

		var items []lineItemRow
		err = r.store.selectAll(ctx, tx, &items, r.store.dialect.
			From(tableOrderLineItems).
			Select("id", "quantity", "menu_item_id", "name").
			Where(goqu.C("order_id").Eq(string(id))).
			Order(goqu.C("item_index").Asc()))
		if err != nil {
			return err
		}

		lineItems := make([]core.LineItem, 0, len(items))
		for _, item := range items {
			lineItems = append(lineItems, core.LineItem{
				ID:         item.ID,
				Quantity:   item.Quantity,
				MenuItemID: item.MenuItemID,
				Name:       item.Name,
			})
		}

		order = &core.RestaurantOrder{
			ID:           core.RestaurantOrderID(header.ID),
			RestaurantID: core.RestaurantID(header.RestaurantID),
			Status:       core.OrderStatus(header.Status),
			LineItems:    lineItems,
		}
		version = header.Version

		return nil
	})
	if err != nil {
		return nil, eventstore.NoStream, err
	}

	return order, version, nil
}

// Save writes the header and replaces the line items in one transaction if version is still the stored one.
// An absent order is not written.
func (r SQLRestaurantOrderRepository) Save(
	ctx context.Context,
	command core.RestaurantOrderCommand,
	state *core.RestaurantOrder,
	version eventstore.SequenceNumber,
) (eventstore.SequenceNumber, error) {

	if state == nil {
		return version, nil
	}

	id := string(command.TargetRestaurantOrder())

	err := r.store.inTx(ctx, func(tx *sqlx.Tx) error {
		header := goqu.Record{
			"restaurant_id": string(state.RestaurantID),
			"status":        string(state.Status),
		}

		if err := r.store.writeHeader(ctx, tx, tableRestaurantOrders, id, header, version); err != nil {
			return err
		}

		rows := make([]any, 0, len(state.LineItems))
		for i, item := range state.LineItems {
			rows = append(rows, goqu.Record{
				"order_id":     id,
				"item_index":   i,
				"id":           item.ID,
				"quantity":     item.Quantity,
				"menu_item_id": item.MenuItemID,
				"name":         item.Name,
			})
		}

		return r.store.replaceItems(ctx, tx, tableOrderLineItems, "order_id", id, rows)
	})
	if err != nil {
		return version, err
	}

	return version + 1, nil
}
