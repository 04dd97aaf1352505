package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/decider-eventstore-go/application"
	"github.com/AntonStoeckl/decider-eventstore-go/domain"
	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
	"github.com/AntonStoeckl/decider-eventstore-go/testutil/spies"
)

func Test_StateStoredAggregate_Handle_SavesNewState(t *testing.T) {
	// arrange
	repository := newStateRepositoryFake()
	aggregate := givenStateStoredAggregate(t, repository)

	// act
	result, err := aggregate.Handle(context.Background(), register{id: "p1"})

	// assert
	require.NoError(t, err)
	assert.Equal(t, parcel{registered: true}, result.State)
	assert.Equal(t, eventstore.SequenceNumber(0), result.Version)
	assert.Equal(t, []event{registered{id: "p1"}}, result.Events)
	assert.NoError(t, result.DispatchErr)
	assert.Equal(t, 1, repository.saves)
}

func Test_StateStoredAggregate_Handle_RejectsDuplicateWithEvent(t *testing.T) {
	// arrange
	repository := newStateRepositoryFake()
	aggregate := givenStateStoredAggregate(t, repository)
	_, err := aggregate.Handle(context.Background(), register{id: "p1"})
	require.NoError(t, err)

	// act
	result, err := aggregate.Handle(context.Background(), register{id: "p1"})

	// assert
	require.NoError(t, err)
	assert.Equal(t, []event{registrationRejected{id: "p1"}}, result.Events)
	assert.Equal(t, eventstore.SequenceNumber(1), result.Version)
}

func Test_StateStoredAggregate_Handle_SavesNothingForZeroEvents(t *testing.T) {
	// arrange
	repository := newStateRepositoryFake()
	aggregate := givenStateStoredAggregate(t, repository)

	// act
	result, err := aggregate.Handle(context.Background(), ship{id: "p1", to: "hq"})

	// assert
	require.NoError(t, err)
	assert.Empty(t, result.Events)
	assert.Equal(t, eventstore.NoStream, result.Version)
	assert.Zero(t, repository.saves)
}

func Test_StateStoredAggregate_Handle_FailsWithConflictOnStaleVersion(t *testing.T) {
	// arrange
	repository := newStateRepositoryFake()
	aggregate := givenStateStoredAggregate(t, repository)
	stale := &staleStateRepository{stateRepositoryFake: repository}
	staleAggregate := givenStateStoredAggregate(t, stale)
	_, err := aggregate.Handle(context.Background(), register{id: "p1"})
	require.NoError(t, err)

	// act
	_, err = staleAggregate.Handle(context.Background(), ping{id: "p1"})

	// assert
	assert.ErrorIs(t, err, eventstore.ErrConcurrencyConflict)

	var stepErr *application.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, application.StepSaving, stepErr.Step)
}

func Test_StateStoredAggregate_Handle_FailsOnFetch(t *testing.T) {
	aggregate := givenStateStoredAggregate(t, failingStateRepository{err: errors.New("connection refused")})

	_, err := aggregate.Handle(context.Background(), register{id: "p1"})

	var stepErr *application.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, application.StepFetching, stepErr.Step)
}

func Test_StateStoredAggregate_Orchestrating_ForwardsEventsToSagaManager(t *testing.T) {
	// arrange
	publisher := &publisherSpy{}
	manager := givenSagaManager(t, publisher)
	repository := newStateRepositoryFake()
	aggregate := givenStateStoredAggregate(t, repository, application.WithSagaManager(manager))

	// act
	result, err := aggregate.Handle(context.Background(), register{id: "p1"})

	// assert
	require.NoError(t, err)
	assert.NoError(t, result.DispatchErr)
	assert.Equal(t, []command{ship{id: "p1", to: "hq"}}, publisher.published)
}

func Test_StateStoredAggregate_Orchestrating_ReportsDispatchFailureAfterSave(t *testing.T) {
	// arrange
	publisher := &publisherSpy{failFor: map[string]error{"p1": errors.New("broker down")}}
	manager := givenSagaManager(t, publisher)
	repository := newStateRepositoryFake()
	aggregate := givenStateStoredAggregate(t, repository, application.WithSagaManager(manager))

	// act
	result, err := aggregate.Handle(context.Background(), register{id: "p1"})

	// assert
	require.NoError(t, err)
	assert.ErrorIs(t, result.DispatchErr, application.ErrSagaDispatchFailed)
	assert.Equal(t, eventstore.SequenceNumber(0), result.Version)
	assert.Equal(t, 1, repository.saves)
}

func Test_StateStoredAggregate_Observability(t *testing.T) {
	// arrange
	metrics := spies.NewMetricsCollectorSpy()
	tracing := spies.NewTracingCollectorSpy()
	aggregate := givenStateStoredAggregate(t, newStateRepositoryFake(),
		application.WithMetrics(metrics),
		application.WithTracing(tracing),
	)

	// act
	_, err := aggregate.Handle(context.Background(), register{id: "p1"})

	// assert
	require.NoError(t, err)
	assert.True(t, metrics.HasDuration("statestored_handle_duration_seconds", "status", "success"))
	_, found := tracing.FinishedSpan("statestored.handle")
	assert.True(t, found)
}

func Test_NewStateStoredAggregate_Validates(t *testing.T) {
	_, err := application.NewStateStoredAggregate[command, parcel, event](domain.Decider[command, parcel, event]{}, newStateRepositoryFake())
	assert.ErrorIs(t, err, application.ErrIncompleteDecider)

	_, err = application.NewStateStoredAggregate[command, parcel, event](parcelDecider(), nil)
	assert.ErrorIs(t, err, application.ErrNilRepository)

	foreign, err := application.NewSagaManager[string, int](
		domain.Saga[string, int]{React: func(string) []int { return nil }},
		application.ActionPublisherFunc[int](func(context.Context, int) error { return nil }),
	)
	require.NoError(t, err)
	_, err = application.NewStateStoredAggregate[command, parcel, event](parcelDecider(), newStateRepositoryFake(), application.WithSagaManager(foreign))
	assert.ErrorIs(t, err, application.ErrSagaTypeMismatch)
}

// staleStateRepository always reports the state as new.
type staleStateRepository struct {
	*stateRepositoryFake
}

func (r *staleStateRepository) FetchState(context.Context, command) (parcel, eventstore.SequenceNumber, error) {
	return parcel{}, eventstore.NoStream, nil
}

type failingStateRepository struct {
	err error
}

func (r failingStateRepository) FetchState(context.Context, command) (parcel, eventstore.SequenceNumber, error) {
	return parcel{}, eventstore.NoStream, r.err
}

func (r failingStateRepository) Save(context.Context, command, parcel, eventstore.SequenceNumber) (eventstore.SequenceNumber, error) {
	return eventstore.NoStream, r.err
}

func givenStateStoredAggregate(
	t *testing.T,
	repository application.StateRepository[command, parcel],
	options ...application.Option,
) *application.StateStoredAggregate[command, parcel, event] {

	t.Helper()

	aggregate, err := application.NewStateStoredAggregate[command, parcel, event](parcelDecider(), repository, options...)
	require.NoError(t, err)

	return aggregate
}
