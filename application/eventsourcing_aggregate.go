package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AntonStoeckl/decider-eventstore-go/domain"
	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
	"github.com/AntonStoeckl/decider-eventstore-go/internal/observe"
)

const (
	metricAggregateDuration  = "aggregate_handle_duration_seconds"
	metricAggregateConflicts = "aggregate_concurrency_conflicts_total"
	metricEventsDecided      = "aggregate_events_decided_total"
	spanNameAggregateHandle  = "aggregate.handle"

	logMsgCommandHandled     = "command handled"
	logMsgCommandIdempotent  = "command decided no events"
	logMsgCommandFailed      = "command handling failed"
	logMsgSagaAbandoned      = "saga continuation abandoned after commit"
	logAttrCommandType       = "command_type"
	logAttrEventCount        = "event_count"
	logAttrStreamCount       = "stream_count"
	logAttrStep              = "step"
	operationEventSourcing   = "event_sourcing"
	operationStateStored     = "state_stored"
	operationMaterialization = "materialization"
)

// Result holds every event committed while handling one command, in commit order,
// including those of saga triggered commands.
type Result[E any] struct {
	Events []eventstore.VersionedEvent[E]
}

// DomainEvents strips the versioning information.
func (r Result[E]) DomainEvents() []E {
	return eventstore.Events(r.Events)
}

// EventSourcingAggregate handles commands by replaying the history of the streams they target.
type EventSourcingAggregate[C, S, E any] struct {
	decider      domain.Decider[C, S, E]
	repository   EventRepository[E]
	resolver     StreamResolver[C, E]
	saga         *domain.Saga[E, C]
	maxSagaDepth int
	observer     observe.Observer
}

// NewEventSourcingAggregate creates the runtime. Pass WithSaga to make it orchestrating.
func NewEventSourcingAggregate[C, S, E any](
	decider domain.Decider[C, S, E],
	repository EventRepository[E],
	resolver StreamResolver[C, E],
	options ...Option,
) (*EventSourcingAggregate[C, S, E], error) {

	if decider.Decide == nil || decider.Evolve == nil {
		return nil, ErrIncompleteDecider
	}

	if repository == nil {
		return nil, ErrNilRepository
	}

	if resolver == nil {
		return nil, ErrNilStreamResolver
	}

	s, err := newSettings(options)
	if err != nil {
		return nil, err
	}

	aggregate := &EventSourcingAggregate[C, S, E]{
		decider:      decider,
		repository:   repository,
		resolver:     resolver,
		maxSagaDepth: s.maxSagaDepth,
		observer:     s.observer,
	}

	if s.saga != nil {
		saga, ok := s.saga.(domain.Saga[E, C])
		if !ok {
			return nil, ErrSagaTypeMismatch
		}

		aggregate.saga = &saga
	}

	return aggregate, nil
}

// Handle fetches, replays, decides and appends. A command that decides no events appends nothing
// and returns an empty Result.
//
// Once an append was acknowledged its events are in the returned Result, even when a later step fails
// or the context is cancelled before saga triggered commands ran.
func (a *EventSourcingAggregate[C, S, E]) Handle(ctx context.Context, command C) (Result[E], error) {
	result := Result[E]{Events: make([]eventstore.VersionedEvent[E], 0)}
	err := a.handle(ctx, command, sagaDepth(ctx), &result)

	return result, err
}

func (a *EventSourcingAggregate[C, S, E]) handle(ctx context.Context, command C, depth int, result *Result[E]) error {
	start := time.Now()
	commandType := fmt.Sprintf("%T", command)

	ctx, span := a.observer.StartSpan(ctx, spanNameAggregateHandle, map[string]string{logAttrCommandType: commandType})

	committed, err := a.decideAndAppend(eventstore.WithStrongConsistency(ctx), command)
	result.Events = append(result.Events, committed...)
	duration := time.Since(start)

	if err != nil {
		a.fail(ctx, span, commandType, duration, err)
		return err
	}

	a.observer.LogOperation(ctx, logMsgCommandHandled, logAttrCommandType, commandType, logAttrEventCount, len(committed), logAttrDepth, depth)
	a.observer.RecordDuration(ctx, metricAggregateDuration, duration, operationEventSourcing, observe.StatusSuccess)
	span.FinishSuccess(duration, nil)

	if a.saga == nil {
		return nil
	}

	return a.react(ctx, committed, depth, result)
}

func (a *EventSourcingAggregate[C, S, E]) decideAndAppend(ctx context.Context, command C) ([]eventstore.VersionedEvent[E], error) {
	streamIDs := a.resolver.StreamIDsForCommand(command)
	if len(streamIDs) == 0 {
		return nil, newStepError(StepFetching, "", ErrNoStreamsResolved)
	}

	history := make([]E, 0)
	latest := make(map[string]eventstore.SequenceNumber, len(streamIDs))

	for _, streamID := range streamIDs {
		if _, seen := latest[streamID]; seen {
			continue
		}

		events, err := a.repository.FetchEvents(ctx, streamID)
		if err != nil {
			return nil, newStepError(StepFetching, streamID, err)
		}

		latest[streamID] = eventstore.NoStream
		if len(events) > 0 {
			latest[streamID] = events[len(events)-1].SequenceNumber
		}

		history = append(history, eventstore.Events(events)...)
	}

	newEvents := a.decider.ComputeNewEvents(history, command)
	if len(newEvents) == 0 {
		a.observer.LogOperation(ctx, logMsgCommandIdempotent, logAttrCommandType, fmt.Sprintf("%T", command))
		return nil, nil
	}

	a.observer.IncrementCounter(ctx, metricEventsDecided, map[string]string{logAttrCommandType: fmt.Sprintf("%T", command)})

	if err := ctx.Err(); err != nil {
		return nil, newStepError(StepAppending, "", err)
	}

	return a.appendGrouped(ctx, newEvents, latest)
}

// appendGrouped appends per target stream, in the order the streams first appear in events.
func (a *EventSourcingAggregate[C, S, E]) appendGrouped(
	ctx context.Context,
	events []E,
	latest map[string]eventstore.SequenceNumber,
) ([]eventstore.VersionedEvent[E], error) {

	order := make([]string, 0, 1)
	groups := make(map[string][]E)

	for _, event := range events {
		streamID := a.resolver.StreamIDForEvent(event)
		if _, exists := groups[streamID]; !exists {
			order = append(order, streamID)
		}

		groups[streamID] = append(groups[streamID], event)
	}

	committed := make([]eventstore.VersionedEvent[E], 0, len(events))

	for _, streamID := range order {
		expected, fetched := latest[streamID]
		if !fetched {
			var err error
			if expected, err = a.repository.LatestSequenceNumber(ctx, streamID); err != nil {
				return committed, a.appendFailed(streamID, committed, err)
			}
		}

		appended, err := a.repository.AppendEvents(ctx, streamID, expected, groups[streamID])
		if err != nil {
			return committed, a.appendFailed(streamID, committed, err)
		}

		committed = append(committed, appended...)
	}

	return committed, nil
}

func (a *EventSourcingAggregate[C, S, E]) appendFailed(streamID string, committed []eventstore.VersionedEvent[E], err error) error {
	if len(committed) == 0 {
		return newStepError(StepAppending, streamID, err)
	}

	return newStepError(StepAppending, streamID, &PartialAppendError[E]{
		Committed:      committed,
		FailedStreamID: streamID,
		Err:            err,
	})
}

// react hands each committed event to the saga and handles the resulting commands depth first.
func (a *EventSourcingAggregate[C, S, E]) react(
	ctx context.Context,
	committed []eventstore.VersionedEvent[E],
	depth int,
	result *Result[E],
) error {

	for _, event := range committed {
		commands := a.saga.React(event.Event)
		if len(commands) == 0 {
			continue
		}

		if depth+1 > a.maxSagaDepth {
			return newStepError(StepSaga, event.StreamID, fmt.Errorf("%w: %d hops", ErrSagaDepthExceeded, depth+1))
		}

		for _, command := range commands {
			if ctxErr := ctx.Err(); ctxErr != nil {
				a.observer.LogWarn(ctx, logMsgSagaAbandoned, ctxErr, logAttrCommandType, fmt.Sprintf("%T", command))
				return nil
			}

			if err := a.handle(withSagaDepth(ctx, depth+1), command, depth+1, result); err != nil {
				var stepErr *StepError
				if errors.As(err, &stepErr) && stepErr.Step == StepSaga {
					return err
				}

				return newStepError(StepSaga, event.StreamID, err)
			}
		}
	}

	return nil
}

func (a *EventSourcingAggregate[C, S, E]) fail(ctx context.Context, span *observe.Span, commandType string, duration time.Duration, err error) {
	step := string(StepDeciding)

	var stepErr *StepError
	if errors.As(err, &stepErr) {
		step = string(stepErr.Step)
	}

	if IsConcurrencyConflict(err) {
		a.observer.IncrementCounter(ctx, metricAggregateConflicts, map[string]string{logAttrCommandType: commandType})
	}

	a.observer.LogError(ctx, logMsgCommandFailed, err, logAttrCommandType, commandType, logAttrStep, step)
	a.observer.RecordDuration(ctx, metricAggregateDuration, duration, operationEventSourcing, observe.StatusError)
	span.FinishError(step, duration)
}
