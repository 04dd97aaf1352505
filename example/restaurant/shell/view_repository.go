package shell

import (
	"bytes"
	"context"
	"errors"

	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
	"github.com/AntonStoeckl/decider-eventstore-go/example/restaurant/core"
)

var (
	// ErrNilSnapshotStore is returned when a nil snapshot store is provided.
	ErrNilSnapshotStore = errors.New("snapshot store must not be nil")

	// ErrMappingViewStateFailed is returned when a view state cannot be serialized or deserialized.
	ErrMappingViewStateFailed = errors.New("mapping view state failed")
)

const (
	RestaurantViewProjectionType      = "RestaurantView"
	RestaurantOrderViewProjectionType = "RestaurantOrderView"
)

var jsonNull = []byte("null")

type positionKey struct{}

// withPosition marks the context with the store-wide position of the event being projected.
func withPosition(ctx context.Context, position eventstore.Position) context.Context {
	return context.WithValue(ctx, positionKey{}, position)
}

func positionFrom(ctx context.Context) eventstore.Position {
	position, _ := ctx.Value(positionKey{}).(eventstore.Position)
	return position
}

// SnapshotViewRepository keeps one read model state per projection id as a snapshot.
// The snapshot position is the position of the last event folded into it.
type SnapshotViewRepository[E, S any] struct {
	store          eventstore.SnapshotStore
	projectionType string
	key            func(event E) string
}

// NewSnapshotViewRepository creates the repository. key extracts the projection id from an event.
func NewSnapshotViewRepository[E, S any](
	store eventstore.SnapshotStore,
	projectionType string,
	key func(event E) string,
) (SnapshotViewRepository[E, S], error) {

	if store == nil {
		return SnapshotViewRepository[E, S]{}, ErrNilSnapshotStore
	}

	if projectionType == "" {
		return SnapshotViewRepository[E, S]{}, eventstore.ErrEmptyProjectionType
	}

	return SnapshotViewRepository[E, S]{store: store, projectionType: projectionType, key: key}, nil
}

// FetchState loads the state the event belongs to.
func (r SnapshotViewRepository[E, S]) FetchState(ctx context.Context, event E) (S, bool, error) {
	return r.Load(ctx, r.key(event))
}

// Load loads the state by projection id.
func (r SnapshotViewRepository[E, S]) Load(ctx context.Context, projectionID string) (S, bool, error) {
	var state S

	snapshot, err := r.store.LoadSnapshot(ctx, r.projectionType, projectionID)
	if err != nil {
		return state, false, err
	}

	if snapshot == nil {
		return state, false, nil
	}

	if err = jsonAPI.Unmarshal(snapshot.Data, &state); err != nil {
		return state, false, errors.Join(ErrMappingViewStateFailed, err)
	}

	return state, true, nil
}

// Save stores the state. An absent (null) state is not stored.
func (r SnapshotViewRepository[E, S]) Save(ctx context.Context, event E, state S) error {
	data, err := jsonAPI.Marshal(state)
	if err != nil {
		return errors.Join(ErrMappingViewStateFailed, err)
	}

	if bytes.Equal(data, jsonNull) {
		return nil
	}

	snapshot, err := eventstore.BuildSnapshot(r.projectionType, r.key(event), positionFrom(ctx), data)
	if err != nil {
		return err
	}

	return r.store.SaveSnapshot(ctx, snapshot)
}

// NewRestaurantViewRepository creates the repository of the RestaurantView.
func NewRestaurantViewRepository(
	store eventstore.SnapshotStore,
) (SnapshotViewRepository[core.RestaurantEvent, *core.RestaurantViewState], error) {

	return NewSnapshotViewRepository[core.RestaurantEvent, *core.RestaurantViewState](
		store,
		RestaurantViewProjectionType,
		func(event core.RestaurantEvent) string { return string(event.TargetRestaurant()) },
	)
}

// NewRestaurantOrderViewRepository creates the repository of the RestaurantOrderView.
func NewRestaurantOrderViewRepository(
	store eventstore.SnapshotStore,
) (SnapshotViewRepository[core.RestaurantOrderEvent, *core.RestaurantOrderViewState], error) {

	return NewSnapshotViewRepository[core.RestaurantOrderEvent, *core.RestaurantOrderViewState](
		store,
		RestaurantOrderViewProjectionType,
		func(event core.RestaurantOrderEvent) string { return string(event.TargetRestaurantOrder()) },
	)
}
