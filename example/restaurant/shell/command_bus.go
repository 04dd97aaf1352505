package shell

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/AntonStoeckl/decider-eventstore-go/application"
	"github.com/AntonStoeckl/decider-eventstore-go/domain"
	"github.com/AntonStoeckl/decider-eventstore-go/example/restaurant/core"
)

// ErrUnknownCommand is returned for commands no aggregate of the example handles.
var ErrUnknownCommand = errors.New("unknown command")

// BusOption configures a command bus.
type BusOption func(*busSettings)

type busSettings struct {
	runtimeOptions []application.Option
	retryOptions   []RetryOption
}

// WithRuntimeOptions passes options (logger, metrics, tracing, saga depth) to every runtime the bus creates.
func WithRuntimeOptions(options ...application.Option) BusOption {
	return func(s *busSettings) {
		s.runtimeOptions = append(s.runtimeOptions, options...)
	}
}

// WithRetryOptions configures the conflict retry around every command.
func WithRetryOptions(options ...RetryOption) BusOption {
	return func(s *busSettings) {
		s.retryOptions = append(s.retryOptions, options...)
	}
}

func newBusSettings(options []BusOption) busSettings {
	s := busSettings{}
	for _, option := range options {
		option(&s)
	}

	return s
}

// ensureCorrelation starts a correlation unless the command was issued under one, e.g. by a saga.
func ensureCorrelation(ctx context.Context) context.Context {
	if _, ok := ctx.Value(correlationKey{}).(correlation); ok {
		return ctx
	}

	return NewCommandContext(ctx)
}

// EventSourcedCommandBus handles every command of the example with one event-sourced, orchestrating aggregate
// over the combined decider. Orders placed at a restaurant are created by the saga within the same Dispatch.
type EventSourcedCommandBus struct {
	aggregate    *application.EventSourcingAggregate[core.Command, core.RestaurantSystemState, core.Event]
	retryOptions []RetryOption
}

// NewEventSourcedCommandBus creates the bus over repository.
func NewEventSourcedCommandBus(
	repository application.EventRepository[core.Event],
	options ...BusOption,
) (*EventSourcedCommandBus, error) {

	s := newBusSettings(options)

	runtimeOptions := append([]application.Option{application.WithSaga(core.RestaurantSystemSaga())}, s.runtimeOptions...)

	aggregate, err := application.NewEventSourcingAggregate(
		core.RestaurantSystemDecider(),
		repository,
		StreamResolver(),
		runtimeOptions...,
	)
	if err != nil {
		return nil, err
	}

	return &EventSourcedCommandBus{aggregate: aggregate, retryOptions: s.retryOptions}, nil
}

// Dispatch handles the command, retrying on concurrency conflicts.
func (b *EventSourcedCommandBus) Dispatch(ctx context.Context, command core.Command) error {
	_, err := b.Handle(ctx, command)
	return err
}

// Handle is Dispatch that also returns the appended events.
func (b *EventSourcedCommandBus) Handle(ctx context.Context, command core.Command) (application.Result[core.Event], error) {
	ctx = ensureCorrelation(ctx)

	var result application.Result[core.Event]

	err := RetryWithExponentialBackoff(
		ctx,
		func(ctx context.Context) error {
			var err error
			result, err = b.aggregate.Handle(ctx, command)

			return err
		},
		b.retryOptions...,
	)

	return result, err
}

// StateStoredCommandBus routes commands to one state-stored aggregate per family.
// Saga reactions are dispatched back through the bus, so they run under their own retry and transaction.
type StateStoredCommandBus struct {
	restaurants  *application.StateStoredAggregate[core.RestaurantCommand, *core.Restaurant, core.RestaurantEvent]
	orders       *application.StateStoredAggregate[core.RestaurantOrderCommand, *core.RestaurantOrder, core.RestaurantOrderEvent]
	retryOptions []RetryOption
}

// NewStateStoredCommandBus creates the bus over the two state repositories.
func NewStateStoredCommandBus(
	restaurantRepository application.StateRepository[core.RestaurantCommand, *core.Restaurant],
	orderRepository application.StateRepository[core.RestaurantOrderCommand, *core.RestaurantOrder],
	options ...BusOption,
) (*StateStoredCommandBus, error) {

	s := newBusSettings(options)
	bus := &StateStoredCommandBus{retryOptions: s.retryOptions}
	publisher := application.NewLocalActionPublisher[core.Command](bus)

	restaurantSagaManager, err := application.NewSagaManager(
		domain.MapOnAction(core.RestaurantOrderSaga(), toCommand[core.RestaurantOrderCommand]),
		publisher,
		s.runtimeOptions...,
	)
	if err != nil {
		return nil, err
	}

	orderSagaManager, err := application.NewSagaManager(
		domain.MapOnAction(core.RestaurantSaga(), toCommand[core.RestaurantCommand]),
		publisher,
		s.runtimeOptions...,
	)
	if err != nil {
		return nil, err
	}

	bus.restaurants, err = application.NewStateStoredAggregate(
		core.RestaurantDecider(),
		restaurantRepository,
		slices.Concat(s.runtimeOptions, []application.Option{application.WithSagaManager(restaurantSagaManager)})...,
	)
	if err != nil {
		return nil, err
	}

	bus.orders, err = application.NewStateStoredAggregate(
		core.RestaurantOrderDecider(),
		orderRepository,
		slices.Concat(s.runtimeOptions, []application.Option{application.WithSagaManager(orderSagaManager)})...,
	)
	if err != nil {
		return nil, err
	}

	return bus, nil
}

func toCommand[C core.Command](command C) core.Command {
	return command
}

// Dispatch handles the command with the aggregate of its family. When the state was saved but a saga reaction
// failed, the returned error is the dispatch error.
func (b *StateStoredCommandBus) Dispatch(ctx context.Context, command core.Command) error {
	ctx = ensureCorrelation(ctx)

	switch c := command.(type) {
	case core.RestaurantCommand:
		return handleStateStored(ctx, b.restaurants, c, b.retryOptions)

	case core.RestaurantOrderCommand:
		return handleStateStored(ctx, b.orders, c, b.retryOptions)

	default:
		return fmt.Errorf("%w: %T", ErrUnknownCommand, command)
	}
}

func handleStateStored[C, S, E any](
	ctx context.Context,
	aggregate *application.StateStoredAggregate[C, S, E],
	command C,
	retryOptions []RetryOption,
) error {

	var result application.StateResult[S, E]

	err := RetryWithExponentialBackoff(
		ctx,
		func(ctx context.Context) error {
			var err error
			result, err = aggregate.Handle(ctx, command)

			return err
		},
		retryOptions...,
	)
	if err != nil {
		return err
	}

	return result.DispatchErr
}
