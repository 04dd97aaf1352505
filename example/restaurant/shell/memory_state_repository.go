package shell

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
	"github.com/AntonStoeckl/decider-eventstore-go/example/restaurant/core"
)

type versionedState[S any] struct {
	state   S
	version eventstore.SequenceNumber
}

// MemoryStateRepository keeps versioned states in process memory, keyed by the id a command targets.
type MemoryStateRepository[C, S any] struct {
	mu     sync.RWMutex
	key    func(command C) string
	states map[string]versionedState[S]
}

// NewMemoryStateRepository creates an empty repository. key extracts the aggregate id from a command.
func NewMemoryStateRepository[C, S any](key func(command C) string) *MemoryStateRepository[C, S] {
	return &MemoryStateRepository[C, S]{key: key, states: make(map[string]versionedState[S])}
}

// NewMemoryRestaurantRepository creates a MemoryStateRepository for restaurants.
func NewMemoryRestaurantRepository() *MemoryStateRepository[core.RestaurantCommand, *core.Restaurant] {
	return NewMemoryStateRepository[core.RestaurantCommand, *core.Restaurant](func(command core.RestaurantCommand) string {
		return string(command.TargetRestaurant())
	})
}

// NewMemoryRestaurantOrderRepository creates a MemoryStateRepository for orders.
func NewMemoryRestaurantOrderRepository() *MemoryStateRepository[core.RestaurantOrderCommand, *core.RestaurantOrder] {
	return NewMemoryStateRepository[core.RestaurantOrderCommand, *core.RestaurantOrder](func(command core.RestaurantOrderCommand) string {
		return string(command.TargetRestaurantOrder())
	})
}

// FetchState returns the state and its version, or eventstore.NoStream when there is none.
func (r *MemoryStateRepository[C, S]) FetchState(ctx context.Context, command C) (S, eventstore.SequenceNumber, error) {
	var zero S

	if err := ctx.Err(); err != nil {
		return zero, eventstore.NoStream, err
	}

	state, version, ok := r.Get(r.key(command))
	if !ok {
		return zero, eventstore.NoStream, nil
	}

	return state, version, nil
}

// Save stores the state if version is still the stored one and returns the next version.
func (r *MemoryStateRepository[C, S]) Save(
	ctx context.Context,
	command C,
	state S,
	version eventstore.SequenceNumber,
) (eventstore.SequenceNumber, error) {

	if err := ctx.Err(); err != nil {
		return version, err
	}

	key := r.key(command)

	r.mu.Lock()
	defer r.mu.Unlock()

	current := eventstore.NoStream
	if stored, ok := r.states[key]; ok {
		current = stored.version
	}

	if current != version {
		return version, eventstore.ErrConcurrencyConflict
	}

	r.states[key] = versionedState[S]{state: state, version: version + 1}

	return version + 1, nil
}

// Get returns the state stored for id.
func (r *MemoryStateRepository[C, S]) Get(id string) (S, eventstore.SequenceNumber, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.states[id]
	if !ok {
		return stored.state, eventstore.NoStream, false
	}

	return stored.state, stored.version, true
}
