package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AntonStoeckl/decider-eventstore-go/domain"
	"github.com/AntonStoeckl/decider-eventstore-go/internal/observe"
)

const (
	metricSagaDuration      = "saga_handle_duration_seconds"
	metricSagaPublishFailed = "saga_publish_failures_total"
	metricSagaDepth         = "saga_dispatch_depth"
	spanNameSagaHandle      = "saga.handle"

	logMsgSagaHandled       = "saga handled"
	logMsgSagaPublishFailed = "saga action publish failed"
	logAttrActionResultType = "action_result_type"
	logAttrActionType       = "action_type"
	logAttrActionCount      = "action_count"
	logAttrFailureCount     = "failure_count"
	logAttrDepth            = "depth"
	operationSaga           = "saga"
)

// PublishFailure is an action that could not be published.
type PublishFailure[A any] struct {
	Action A
	Err    error
}

// PublishReport lists what a SagaManager published and what failed, in generation order.
type PublishReport[A any] struct {
	Published []A
	Failures  []PublishFailure[A]
}

// Err is nil when every action was published, otherwise ErrSagaDispatchFailed joined with each cause.
func (r PublishReport[A]) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}

	errs := make([]error, 0, len(r.Failures)+1)
	errs = append(errs, ErrSagaDispatchFailed)
	for _, failure := range r.Failures {
		errs = append(errs, failure.Err)
	}

	return errors.Join(errs...)
}

// SagaManager reacts to an action result and publishes the resulting actions one by one.
// A failed publish does not stop the remaining ones.
type SagaManager[AR, A any] struct {
	saga         domain.Saga[AR, A]
	publisher    ActionPublisher[A]
	maxSagaDepth int
	observer     observe.Observer
}

func NewSagaManager[AR, A any](
	saga domain.Saga[AR, A],
	publisher ActionPublisher[A],
	options ...Option,
) (*SagaManager[AR, A], error) {

	if saga.React == nil {
		return nil, ErrIncompleteSaga
	}

	if publisher == nil {
		return nil, ErrNilActionPublisher
	}

	s, err := newSettings(options)
	if err != nil {
		return nil, err
	}

	return &SagaManager[AR, A]{
		saga:         saga,
		publisher:    publisher,
		maxSagaDepth: s.maxSagaDepth,
		observer:     s.observer,
	}, nil
}

// Handle publishes every action the saga produces for actionResult. The context passed to the publisher
// carries the hop count, so commands that lead back here through a dispatcher are bounded by the
// max saga depth.
func (m *SagaManager[AR, A]) Handle(ctx context.Context, actionResult AR) (PublishReport[A], error) {
	start := time.Now()
	actionResultType := fmt.Sprintf("%T", actionResult)

	ctx, span := m.observer.StartSpan(ctx, spanNameSagaHandle, map[string]string{logAttrActionResultType: actionResultType})

	actions := m.saga.React(actionResult)
	report := PublishReport[A]{Published: make([]A, 0, len(actions))}

	if len(actions) == 0 {
		span.FinishSuccess(time.Since(start), nil)
		return report, nil
	}

	depth := sagaDepth(ctx) + 1
	if depth > m.maxSagaDepth {
		span.FinishError(operationSaga, time.Since(start))
		return report, newStepError(StepSaga, "", fmt.Errorf("%w: %d hops", ErrSagaDepthExceeded, depth))
	}

	publishCtx := withSagaDepth(ctx, depth)
	m.observer.RecordValue(ctx, metricSagaDepth, float64(depth), operationSaga, observe.StatusSuccess)

	for _, action := range actions {
		if err := m.publisher.Publish(publishCtx, action); err != nil {
			report.Failures = append(report.Failures, PublishFailure[A]{Action: action, Err: err})
			m.observer.LogError(ctx, logMsgSagaPublishFailed, err, logAttrActionType, fmt.Sprintf("%T", action))
			m.observer.IncrementCounter(ctx, metricSagaPublishFailed, map[string]string{logAttrActionType: fmt.Sprintf("%T", action)})

			continue
		}

		report.Published = append(report.Published, action)
	}

	duration := time.Since(start)
	m.observer.LogOperation(
		ctx,
		logMsgSagaHandled,
		logAttrActionResultType, actionResultType,
		logAttrActionCount, len(actions),
		logAttrFailureCount, len(report.Failures),
		logAttrDepth, depth,
	)

	if err := report.Err(); err != nil {
		m.observer.RecordDuration(ctx, metricSagaDuration, duration, operationSaga, observe.StatusError)
		span.FinishError(operationSaga, duration)

		return report, err
	}

	m.observer.RecordDuration(ctx, metricSagaDuration, duration, operationSaga, observe.StatusSuccess)
	span.FinishSuccess(duration, nil)

	return report, nil
}
