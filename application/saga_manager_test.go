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
	"github.com/AntonStoeckl/decider-eventstore-go/testutil/spies"
)

func Test_SagaManager_Handle_PublishesInGenerationOrder(t *testing.T) {
	// arrange
	publisher := &publisherSpy{}
	manager := givenFanOutSagaManager(t, publisher)

	// act
	report, err := manager.Handle(context.Background(), registered{id: "p1"})

	// assert
	require.NoError(t, err)
	assert.Equal(t, []command{register{id: "a"}, register{id: "b"}, register{id: "c"}}, publisher.published)
	assert.Equal(t, publisher.published, report.Published)
	assert.Empty(t, report.Failures)
}

func Test_SagaManager_Handle_AttemptsEveryCommandAndCollectsFailures(t *testing.T) {
	// arrange
	brokerErr := errors.New("broker down")
	publisher := &publisherSpy{failFor: map[string]error{"b": brokerErr}}
	manager := givenFanOutSagaManager(t, publisher)

	// act
	report, err := manager.Handle(context.Background(), registered{id: "p1"})

	// assert
	assert.ErrorIs(t, err, application.ErrSagaDispatchFailed)
	assert.ErrorIs(t, err, brokerErr)
	assert.Equal(t, []command{register{id: "a"}, register{id: "c"}}, report.Published)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, register{id: "b"}, report.Failures[0].Action)
	assert.ErrorIs(t, report.Err(), brokerErr)
}

func Test_SagaManager_Handle_PublishesNothingForUnrelatedEvents(t *testing.T) {
	publisher := &publisherSpy{}
	manager := givenSagaManager(t, publisher)

	report, err := manager.Handle(context.Background(), shipped{id: "p1"})

	require.NoError(t, err)
	assert.Empty(t, report.Published)
	assert.Empty(t, publisher.published)
}

func Test_SagaManager_Handle_BoundsLoopsThroughTheDispatcher(t *testing.T) {
	// arrange
	var manager *application.SagaManager[event, command]
	publisher := &publisherSpy{}
	hops := 0
	publisher.onPublish = func(ctx context.Context, c command) error {
		hops++
		p := c.(ping)
		_, err := manager.Handle(ctx, pinged{id: p.id, n: p.n})
		return err
	}
	manager = givenSagaManager(t, publisher, application.WithMaxSagaDepth(4))

	// act
	_, err := manager.Handle(context.Background(), pinged{id: "p1"})

	// assert
	assert.ErrorIs(t, err, application.ErrSagaDepthExceeded)
	assert.Equal(t, 4, hops)
}

func Test_SagaManager_Observability(t *testing.T) {
	// arrange
	logSpy := spies.NewLogHandlerSpy(false)
	metrics := spies.NewMetricsCollectorSpy()
	publisher := &publisherSpy{failFor: map[string]error{"p1": errors.New("broker down")}}
	manager := givenSagaManager(t, publisher,
		application.WithContextualLogger(logSpy.NewLogger()),
		application.WithMetrics(metrics),
	)

	// act
	_, err := manager.Handle(context.Background(), registered{id: "p1"})

	// assert
	assert.Error(t, err)
	assert.True(t, logSpy.HasLogWithAttr(slog.LevelError, "saga action publish failed", "action_type"))
	assert.Equal(t, 1, metrics.CounterCount("saga_publish_failures_total"))
	assert.True(t, metrics.HasDuration("saga_handle_duration_seconds", "status", "error"))
}

func Test_LocalActionPublisher_DispatchesInProcess(t *testing.T) {
	dispatcher := &dispatcherSpy{}
	publisher := application.NewLocalActionPublisher[command](dispatcher)

	require.NoError(t, publisher.Publish(context.Background(), register{id: "p1"}))

	assert.Equal(t, []command{register{id: "p1"}}, dispatcher.dispatched)
}

func Test_NewSagaManager_Validates(t *testing.T) {
	_, err := application.NewSagaManager[event, command](domain.Saga[event, command]{}, &publisherSpy{})
	assert.ErrorIs(t, err, application.ErrIncompleteSaga)

	_, err = application.NewSagaManager[event, command](parcelSaga(), nil)
	assert.ErrorIs(t, err, application.ErrNilActionPublisher)
}

type dispatcherSpy struct {
	dispatched []command
}

func (d *dispatcherSpy) Dispatch(_ context.Context, c command) error {
	d.dispatched = append(d.dispatched, c)
	return nil
}

func givenSagaManager(
	t *testing.T,
	publisher application.ActionPublisher[command],
	options ...application.Option,
) *application.SagaManager[event, command] {

	t.Helper()

	manager, err := application.NewSagaManager[event, command](parcelSaga(), publisher, options...)
	require.NoError(t, err)

	return manager
}

func givenFanOutSagaManager(t *testing.T, publisher application.ActionPublisher[command]) *application.SagaManager[event, command] {
	t.Helper()

	fanOut := domain.Saga[event, command]{
		React: func(e event) []command {
			if _, ok := e.(registered); !ok {
				return nil
			}
			return []command{register{id: "a"}, register{id: "b"}, register{id: "c"}}
		},
	}

	manager, err := application.NewSagaManager[event, command](fanOut, publisher)
	require.NoError(t, err)

	return manager
}
