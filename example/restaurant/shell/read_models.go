package shell

import (
	"context"
	"errors"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/decider-eventstore-go/application"
	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
	"github.com/AntonStoeckl/decider-eventstore-go/example/restaurant/core"
)

const (
	checkpointProjectionType = "RestaurantProjectorCheckpoint"
	checkpointProjectionID   = "all"
)

// ReadModels are the materialized RestaurantView and RestaurantOrderView, kept up to date by a Projector.
type ReadModels struct {
	eventStore           eventstore.EventStore
	snapshots            eventstore.SnapshotStore
	restaurantRepository SnapshotViewRepository[core.RestaurantEvent, *core.RestaurantViewState]
	orderRepository      SnapshotViewRepository[core.RestaurantOrderEvent, *core.RestaurantOrderViewState]
	restaurants          *application.MaterializedView[*core.RestaurantViewState, core.RestaurantEvent]
	orders               *application.MaterializedView[*core.RestaurantOrderViewState, core.RestaurantOrderEvent]
	filter               eventstore.Filter
}

// NewReadModels creates the read models. Events are read from eventStore, states and the checkpoint
// are kept in snapshots.
func NewReadModels(
	eventStore eventstore.EventStore,
	snapshots eventstore.SnapshotStore,
	options ...application.Option,
) (*ReadModels, error) {

	if eventStore == nil {
		return nil, ErrNilEventStore
	}

	restaurantRepository, err := NewRestaurantViewRepository(snapshots)
	if err != nil {
		return nil, err
	}

	orderRepository, err := NewRestaurantOrderViewRepository(snapshots)
	if err != nil {
		return nil, err
	}

	restaurants, err := application.NewMaterializedView(core.RestaurantView(), restaurantRepository, options...)
	if err != nil {
		return nil, err
	}

	orders, err := application.NewMaterializedView(core.RestaurantOrderView(), orderRepository, options...)
	if err != nil {
		return nil, err
	}

	return &ReadModels{
		eventStore:           eventStore,
		snapshots:            snapshots,
		restaurantRepository: restaurantRepository,
		orderRepository:      orderRepository,
		restaurants:          restaurants,
		orders:               orders,
		filter: eventstore.BuildEventFilter().
			AnyEventTypeOf(
				core.RestaurantCreatedEventType,
				core.RestaurantMenuChangedEventType,
				core.RestaurantMenuActivatedEventType,
				core.RestaurantMenuPassivatedEventType,
				core.RestaurantOrderCreatedEventType,
				core.RestaurantOrderPreparedEventType,
			).
			Finalize(),
	}, nil
}

type checkpoint struct {
	Position eventstore.Position `json:"position"`
}

// CatchUp projects all matching events after the last checkpoint and moves the checkpoint forward.
// It returns the number of projected events. After a failure the checkpoint points at the last
// projected event, so the next CatchUp continues from there.
func (m *ReadModels) CatchUp(ctx context.Context) (int, error) {
	from, err := m.loadCheckpoint(ctx)
	if err != nil {
		return 0, err
	}

	storedEvents, err := m.eventStore.QueryAll(ctx, m.filter, from)
	if err != nil {
		return 0, err
	}

	projected := 0
	last := from

	for _, storedEvent := range storedEvents {
		if err = ctx.Err(); err != nil {
			break
		}

		if err = m.project(withPosition(ctx, storedEvent.Position), storedEvent); err != nil {
			break
		}

		last = storedEvent.Position
		projected++
	}

	if last != from {
		if saveErr := m.saveCheckpoint(context.WithoutCancel(ctx), last); saveErr != nil {
			return projected, errors.Join(err, saveErr)
		}
	}

	return projected, err
}

func (m *ReadModels) project(ctx context.Context, storedEvent eventstore.StoredEvent) error {
	event, err := DomainEventFrom(storedEvent.StorableEvent)
	if err != nil {
		return err
	}

	switch e := event.(type) {
	case core.RestaurantEvent:
		_, err = m.restaurants.Handle(ctx, e)
	case core.RestaurantOrderEvent:
		_, err = m.orders.Handle(ctx, e)
	}

	return err
}

func (m *ReadModels) loadCheckpoint(ctx context.Context) (eventstore.Position, error) {
	snapshot, err := m.snapshots.LoadSnapshot(ctx, checkpointProjectionType, checkpointProjectionID)
	if err != nil || snapshot == nil {
		return 0, err
	}

	return snapshot.Position, nil
}

func (m *ReadModels) saveCheckpoint(ctx context.Context, position eventstore.Position) error {
	data, err := jsoniter.ConfigFastest.Marshal(checkpoint{Position: position})
	if err != nil {
		return err
	}

	snapshot, err := eventstore.BuildSnapshot(checkpointProjectionType, checkpointProjectionID, position, data)
	if err != nil {
		return err
	}

	return m.snapshots.SaveSnapshot(ctx, snapshot)
}

// Restaurant returns the projected restaurant, or nil if there is none.
func (m *ReadModels) Restaurant(ctx context.Context, id core.RestaurantID) (*core.RestaurantViewState, error) {
	state, _, err := m.restaurantRepository.Load(ctx, string(id))
	return state, err
}

// RestaurantOrder returns the projected order, or nil if there is none.
func (m *ReadModels) RestaurantOrder(ctx context.Context, id core.RestaurantOrderID) (*core.RestaurantOrderViewState, error) {
	state, _, err := m.orderRepository.Load(ctx, string(id))
	return state, err
}
