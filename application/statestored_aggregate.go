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
	metricStateStoredDuration = "statestored_handle_duration_seconds"
	spanNameStateStoredHandle = "statestored.handle"
	logMsgStateSaved          = "state saved"
	logAttrVersion            = "version"
)

// sagaHandler is what a StateStoredAggregate needs from a SagaManager, whatever its action type.
type sagaHandler[E any] interface {
	handleEvent(ctx context.Context, event E) error
}

func (m *SagaManager[AR, A]) handleEvent(ctx context.Context, event AR) error {
	_, err := m.Handle(ctx, event)
	return err
}

// StateResult is the outcome of a StateStoredAggregate invocation.
// DispatchErr is set when the state was saved but handing the events to the SagaManager failed.
type StateResult[S, E any] struct {
	State       S
	Version     eventstore.SequenceNumber
	Events      []E
	DispatchErr error
}

// StateStoredAggregate handles commands against a stored state instead of an event history.
type StateStoredAggregate[C, S, E any] struct {
	decider     domain.Decider[C, S, E]
	repository  StateRepository[C, S]
	sagaManager sagaHandler[E]
	observer    observe.Observer
}

// NewStateStoredAggregate creates the runtime. Pass WithSagaManager to make it orchestrating.
func NewStateStoredAggregate[C, S, E any](
	decider domain.Decider[C, S, E],
	repository StateRepository[C, S],
	options ...Option,
) (*StateStoredAggregate[C, S, E], error) {

	if decider.Decide == nil || decider.Evolve == nil {
		return nil, ErrIncompleteDecider
	}

	if repository == nil {
		return nil, ErrNilRepository
	}

	s, err := newSettings(options)
	if err != nil {
		return nil, err
	}

	aggregate := &StateStoredAggregate[C, S, E]{
		decider:    decider,
		repository: repository,
		observer:   s.observer,
	}

	if s.sagaManager != nil {
		manager, ok := s.sagaManager.(sagaHandler[E])
		if !ok {
			return nil, ErrSagaTypeMismatch
		}

		aggregate.sagaManager = manager
	}

	return aggregate, nil
}

// Handle fetches the state, decides, evolves and saves. When the command decides no events nothing is saved
// and the fetched state is returned.
func (a *StateStoredAggregate[C, S, E]) Handle(ctx context.Context, command C) (StateResult[S, E], error) {
	start := time.Now()
	commandType := fmt.Sprintf("%T", command)

	ctx, span := a.observer.StartSpan(ctx, spanNameStateStoredHandle, map[string]string{logAttrCommandType: commandType})

	result, err := a.handle(eventstore.WithStrongConsistency(ctx), command)
	duration := time.Since(start)

	if err != nil {
		step := string(StepDeciding)

		var stepErr *StepError
		if errors.As(err, &stepErr) {
			step = string(stepErr.Step)
		}

		if IsConcurrencyConflict(err) {
			a.observer.IncrementCounter(ctx, metricAggregateConflicts, map[string]string{logAttrCommandType: commandType})
		}

		a.observer.LogError(ctx, logMsgCommandFailed, err, logAttrCommandType, commandType, logAttrStep, step)
		a.observer.RecordDuration(ctx, metricStateStoredDuration, duration, operationStateStored, observe.StatusError)
		span.FinishError(step, duration)

		return result, err
	}

	a.observer.RecordDuration(ctx, metricStateStoredDuration, duration, operationStateStored, observe.StatusSuccess)
	span.FinishSuccess(duration, nil)

	return result, nil
}

func (a *StateStoredAggregate[C, S, E]) handle(ctx context.Context, command C) (StateResult[S, E], error) {
	state, version, err := a.repository.FetchState(ctx, command)
	if err != nil {
		return StateResult[S, E]{}, newStepError(StepFetching, "", err)
	}

	if version == eventstore.NoStream {
		state = a.decider.InitialState
	}

	newState, events := a.decider.ComputeNewState(state, command)
	if len(events) == 0 {
		a.observer.LogOperation(ctx, logMsgCommandIdempotent, logAttrCommandType, fmt.Sprintf("%T", command))
		return StateResult[S, E]{State: state, Version: version, Events: events}, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return StateResult[S, E]{State: state, Version: version}, newStepError(StepSaving, "", ctxErr)
	}

	newVersion, err := a.repository.Save(ctx, command, newState, version)
	if err != nil {
		return StateResult[S, E]{State: state, Version: version}, newStepError(StepSaving, "", err)
	}

	a.observer.LogOperation(
		ctx,
		logMsgStateSaved,
		logAttrCommandType, fmt.Sprintf("%T", command),
		logAttrEventCount, len(events),
		logAttrVersion, newVersion,
	)

	result := StateResult[S, E]{State: newState, Version: newVersion, Events: events}

	if a.sagaManager == nil {
		return result, nil
	}

	errs := make([]error, 0)
	for _, event := range events {
		if ctxErr := ctx.Err(); ctxErr != nil {
			a.observer.LogWarn(ctx, logMsgSagaAbandoned, ctxErr, logAttrCommandType, fmt.Sprintf("%T", command))
			break
		}

		if dispatchErr := a.sagaManager.handleEvent(ctx, event); dispatchErr != nil {
			errs = append(errs, dispatchErr)
		}
	}

	if len(errs) > 0 {
		result.DispatchErr = newStepError(StepSaga, "", errors.Join(errs...))
	}

	return result, nil
}
