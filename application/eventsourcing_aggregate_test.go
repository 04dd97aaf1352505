package application_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/decider-eventstore-go/application"
	"github.com/AntonStoeckl/decider-eventstore-go/domain"
	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
	"github.com/AntonStoeckl/decider-eventstore-go/testutil/spies"
)

func Test_EventSourcingAggregate_Handle_AppendsToNewStream(t *testing.T) {
	// arrange
	repository := newEventRepositoryFake()
	aggregate := givenEventSourcingAggregate(t, repository)

	// act
	result, err := aggregate.Handle(context.Background(), register{id: "p1"})

	// assert
	require.NoError(t, err)
	require.Len(t, result.Events, 1)
	assert.Equal(t, registered{id: "p1"}, result.Events[0].Event)
	assert.Equal(t, "parcel-p1", result.Events[0].StreamID)
	assert.Equal(t, eventstore.SequenceNumber(0), result.Events[0].SequenceNumber)
	assert.Equal(t, []event{registered{id: "p1"}}, repository.events("parcel-p1"))
}

func Test_EventSourcingAggregate_Handle_DecidesOnReplayedHistory(t *testing.T) {
	// arrange
	repository := newEventRepositoryFake()
	repository.given("parcel-p1", registered{id: "p1"})
	aggregate := givenEventSourcingAggregate(t, repository)

	// act
	result, err := aggregate.Handle(context.Background(), register{id: "p1"})

	// assert
	require.NoError(t, err)
	assert.Equal(t, []event{registrationRejected{id: "p1"}}, result.DomainEvents())
	assert.Equal(t, eventstore.SequenceNumber(1), result.Events[0].SequenceNumber)
}

func Test_EventSourcingAggregate_Handle_AppendsNothingForZeroEvents(t *testing.T) {
	// arrange
	repository := newEventRepositoryFake()
	aggregate := givenEventSourcingAggregate(t, repository)

	// act
	result, err := aggregate.Handle(context.Background(), noop{id: "p1"})

	// assert
	require.NoError(t, err)
	assert.Empty(t, result.Events)
	assert.Zero(t, repository.appendedCalls)
}

func Test_EventSourcingAggregate_Handle_GroupsEventsPerTargetStream(t *testing.T) {
	// arrange
	repository := newEventRepositoryFake()
	repository.given("parcel-p1", registered{id: "p1"})
	repository.given("inbox-hq", notified{id: "p0", to: "hq"})
	aggregate := givenEventSourcingAggregate(t, repository)

	// act
	result, err := aggregate.Handle(context.Background(), ship{id: "p1", to: "hq"})

	// assert
	require.NoError(t, err)
	require.Len(t, result.Events, 2)
	assert.Equal(t, "parcel-p1", result.Events[0].StreamID)
	assert.Equal(t, eventstore.SequenceNumber(1), result.Events[0].SequenceNumber)
	assert.Equal(t, "inbox-hq", result.Events[1].StreamID)
	assert.Equal(t, eventstore.SequenceNumber(1), result.Events[1].SequenceNumber)
	assert.Equal(t, 2, repository.appendedCalls)
}

func Test_EventSourcingAggregate_Handle_FailsWithConflictWhenStreamMovedOn(t *testing.T) {
	// arrange
	repository := newEventRepositoryFake()
	repository.given("parcel-p1", registered{id: "p1"}, pinged{id: "p1"}, pinged{id: "p1", n: 1})
	repository.beforeAppend = func(streamID string) {
		repository.beforeAppend = nil
		repository.given(streamID, pinged{id: "p1", n: 2})
	}
	aggregate := givenEventSourcingAggregate(t, repository)

	// act
	_, err := aggregate.Handle(context.Background(), ping{id: "p1", n: 9})

	// assert
	assert.ErrorIs(t, err, eventstore.ErrConcurrencyConflict)
	assert.True(t, application.IsConcurrencyConflict(err))
	assert.NotErrorIs(t, err, application.ErrPartialAppend)

	var stepErr *application.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, application.StepAppending, stepErr.Step)
	assert.Equal(t, "parcel-p1", stepErr.StreamID)
	assert.Len(t, repository.events("parcel-p1"), 4)

	// a retry decides on fresh state
	result, retryErr := aggregate.Handle(context.Background(), ping{id: "p1", n: 9})
	require.NoError(t, retryErr)
	assert.Equal(t, eventstore.SequenceNumber(4), result.Events[0].SequenceNumber)
}

func Test_EventSourcingAggregate_Handle_ReportsPartialAppend(t *testing.T) {
	// arrange
	repository := newEventRepositoryFake()
	repository.given("parcel-p1", registered{id: "p1"})
	storageErr := errors.New("disk full")
	repository.appendErrs["inbox-hq"] = storageErr
	aggregate := givenEventSourcingAggregate(t, repository)

	// act
	result, err := aggregate.Handle(context.Background(), ship{id: "p1", to: "hq"})

	// assert
	assert.ErrorIs(t, err, application.ErrPartialAppend)
	assert.ErrorIs(t, err, storageErr)

	var partialErr *application.PartialAppendError[event]
	require.ErrorAs(t, err, &partialErr)
	assert.Equal(t, "inbox-hq", partialErr.FailedStreamID)
	require.Len(t, partialErr.Committed, 1)
	assert.Equal(t, shipped{id: "p1"}, partialErr.Committed[0].Event)
	assert.Equal(t, []event{shipped{id: "p1"}}, result.DomainEvents())
}

func Test_EventSourcingAggregate_Handle_FailsOnFetch(t *testing.T) {
	// arrange
	repository := newEventRepositoryFake()
	repository.fetchErr = errors.New("connection refused")
	aggregate := givenEventSourcingAggregate(t, repository)

	// act
	_, err := aggregate.Handle(context.Background(), register{id: "p1"})

	// assert
	var stepErr *application.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, application.StepFetching, stepErr.Step)
	assert.Equal(t, "parcel-p1", stepErr.StreamID)
	assert.Zero(t, repository.appendedCalls)
}

func Test_EventSourcingAggregate_Handle_FailsWithoutResolvedStreams(t *testing.T) {
	aggregate := givenEventSourcingAggregate(t, newEventRepositoryFake())

	_, err := aggregate.Handle(context.Background(), nil)

	assert.ErrorIs(t, err, application.ErrNoStreamsResolved)
}

func Test_EventSourcingAggregate_Handle_DoesNotAppendWhenCancelled(t *testing.T) {
	// arrange
	repository := newEventRepositoryFake()
	aggregate := givenEventSourcingAggregate(t, repository)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// act
	_, err := aggregate.Handle(ctx, register{id: "p1"})

	// assert
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, repository.appendedCalls)
}

func Test_EventSourcingAggregate_Orchestrating_HandlesSagaCommands(t *testing.T) {
	// arrange
	repository := newEventRepositoryFake()
	aggregate := givenEventSourcingAggregate(t, repository, application.WithSaga(parcelSaga()))

	// act
	result, err := aggregate.Handle(context.Background(), register{id: "p1"})

	// assert
	require.NoError(t, err)
	assert.Equal(t, []event{registered{id: "p1"}, shipped{id: "p1"}, notified{id: "p1", to: "hq"}}, result.DomainEvents())
	assert.Equal(t, []event{registered{id: "p1"}, shipped{id: "p1"}}, repository.events("parcel-p1"))
	assert.Equal(t, []event{notified{id: "p1", to: "hq"}}, repository.events("inbox-hq"))
}

func Test_EventSourcingAggregate_Orchestrating_StopsAtMaxSagaDepth(t *testing.T) {
	// arrange
	repository := newEventRepositoryFake()
	aggregate := givenEventSourcingAggregate(t, repository,
		application.WithSaga(parcelSaga()),
		application.WithMaxSagaDepth(3),
	)

	// act
	result, err := aggregate.Handle(context.Background(), ping{id: "p1"})

	// assert
	assert.ErrorIs(t, err, application.ErrSagaDepthExceeded)

	var stepErr *application.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, application.StepSaga, stepErr.Step)
	assert.Len(t, result.Events, 4)
	assert.Len(t, repository.events("parcel-p1"), 4)
}

func Test_EventSourcingAggregate_Orchestrating_KeepsCommittedEventsWhenCancelledAfterAppend(t *testing.T) {
	// arrange
	repository := newEventRepositoryFake()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	repository.beforeAppend = func(string) {
		repository.beforeAppend = nil
		defer cancel()
	}
	logSpy := spies.NewLogHandlerSpy(false)
	aggregate := givenEventSourcingAggregate(t, repository,
		application.WithSaga(parcelSaga()),
		application.WithLogger(logSpy.NewLogger()),
	)

	// act
	result, err := aggregate.Handle(ctx, register{id: "p1"})

	// assert
	require.NoError(t, err)
	assert.Equal(t, []event{registered{id: "p1"}}, result.DomainEvents())
	assert.Equal(t, []event{registered{id: "p1"}}, repository.events("parcel-p1"))
	assert.True(t, logSpy.HasLog(slog.LevelWarn, "saga continuation abandoned after commit"))
}

func Test_EventSourcingAggregate_Observability(t *testing.T) {
	// arrange
	logSpy := spies.NewLogHandlerSpy(false)
	metrics := spies.NewMetricsCollectorSpy()
	tracing := spies.NewTracingCollectorSpy()
	aggregate := givenEventSourcingAggregate(t, newEventRepositoryFake(),
		application.WithLogger(logSpy.NewLogger()),
		application.WithMetrics(metrics),
		application.WithTracing(tracing),
	)

	// act
	_, err := aggregate.Handle(context.Background(), register{id: "p1"})

	// assert
	require.NoError(t, err)
	assert.True(t, logSpy.HasLogWithAttr(slog.LevelInfo, "operation: command handled", "command_type"))
	assert.True(t, metrics.HasDuration("aggregate_handle_duration_seconds", "status", "success"))
	assert.Equal(t, 1, metrics.CounterCount("aggregate_events_decided_total"))

	span, found := tracing.FinishedSpan("aggregate.handle")
	require.True(t, found)
	assert.Equal(t, "success", span.Status)
	assert.Equal(t, "application_test.register", span.StartAttributes["command_type"])
}

func Test_EventSourcingAggregate_Observability_OnConflict(t *testing.T) {
	// arrange
	repository := newEventRepositoryFake()
	repository.beforeAppend = func(streamID string) {
		repository.beforeAppend = nil
		repository.given(streamID, registered{id: "p1"})
	}
	metrics := spies.NewMetricsCollectorSpy()
	aggregate := givenEventSourcingAggregate(t, repository, application.WithMetrics(metrics))

	// act
	_, err := aggregate.Handle(context.Background(), register{id: "p1"})

	// assert
	assert.ErrorIs(t, err, eventstore.ErrConcurrencyConflict)
	assert.Equal(t, 1, metrics.CounterCount("aggregate_concurrency_conflicts_total"))
	assert.True(t, metrics.HasDuration("aggregate_handle_duration_seconds", "status", "error"))
}

func Test_NewEventSourcingAggregate_Validates(t *testing.T) {
	repository := newEventRepositoryFake()

	_, err := application.NewEventSourcingAggregate[command, parcel, event](domain.Decider[command, parcel, event]{}, repository, parcelResolver())
	assert.ErrorIs(t, err, application.ErrIncompleteDecider)

	_, err = application.NewEventSourcingAggregate[command, parcel, event](parcelDecider(), nil, parcelResolver())
	assert.ErrorIs(t, err, application.ErrNilRepository)

	_, err = application.NewEventSourcingAggregate[command, parcel, event](parcelDecider(), repository, nil)
	assert.ErrorIs(t, err, application.ErrNilStreamResolver)

	_, err = application.NewEventSourcingAggregate[command, parcel, event](parcelDecider(), repository, parcelResolver(), application.WithMaxSagaDepth(0))
	assert.ErrorIs(t, err, application.ErrInvalidMaxSagaDepth)

	foreignSaga := domain.Saga[string, int]{React: func(string) []int { return nil }}
	_, err = application.NewEventSourcingAggregate[command, parcel, event](parcelDecider(), repository, parcelResolver(), application.WithSaga(foreignSaga))
	assert.ErrorIs(t, err, application.ErrSagaTypeMismatch)
}

func givenEventSourcingAggregate(
	t *testing.T,
	repository application.EventRepository[event],
	options ...application.Option,
) *application.EventSourcingAggregate[command, parcel, event] {

	t.Helper()

	aggregate, err := application.NewEventSourcingAggregate[command, parcel, event](parcelDecider(), repository, parcelResolver(), options...)
	require.NoError(t, err)

	return aggregate
}
