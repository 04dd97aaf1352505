package application

import (
	"github.com/AntonStoeckl/decider-eventstore-go/domain"
	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
	"github.com/AntonStoeckl/decider-eventstore-go/internal/observe"
)

const defaultMaxSagaDepth = 8

// Option configures any of the runtimes. Options that do not apply to a runtime are ignored by it.
type Option func(*settings) error

type settings struct {
	observer     observe.Observer
	maxSagaDepth int
	saga         any
	sagaManager  any
}

func newSettings(options []Option) (settings, error) {
	s := settings{maxSagaDepth: defaultMaxSagaDepth}

	for _, option := range options {
		if err := option(&s); err != nil {
			return settings{}, err
		}
	}

	return s, nil
}

// WithLogger sets the logger.
func WithLogger(logger eventstore.Logger) Option {
	return func(s *settings) error {
		s.observer.Logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger.
func WithContextualLogger(logger eventstore.ContextualLogger) Option {
	return func(s *settings) error {
		s.observer.ContextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(collector eventstore.MetricsCollector) Option {
	return func(s *settings) error {
		s.observer.Metrics = collector
		return nil
	}
}

// WithTracing sets the tracing collector.
func WithTracing(collector eventstore.TracingCollector) Option {
	return func(s *settings) error {
		s.observer.Tracing = collector
		return nil
	}
}

// WithMaxSagaDepth bounds how deep saga triggered commands may nest. The default is 8.
func WithMaxSagaDepth(depth int) Option {
	return func(s *settings) error {
		if depth < 1 {
			return ErrInvalidMaxSagaDepth
		}

		s.maxSagaDepth = depth

		return nil
	}
}

// WithSaga makes an EventSourcingAggregate orchestrating: every appended event is passed to the saga
// and the resulting commands are handled by the same aggregate before Handle returns.
func WithSaga[E, C any](saga domain.Saga[E, C]) Option {
	return func(s *settings) error {
		if saga.React == nil {
			return ErrIncompleteSaga
		}

		s.saga = saga

		return nil
	}
}

// WithSagaManager makes a StateStoredAggregate orchestrating: the produced events are handed to the manager
// after the state was saved.
func WithSagaManager[E, A any](manager *SagaManager[E, A]) Option {
	return func(s *settings) error {
		if manager == nil {
			return ErrNilActionPublisher
		}

		s.sagaManager = manager

		return nil
	}
}
