package application

import (
	"errors"
	"fmt"

	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
)

var (
	// ErrNilRepository is returned when a runtime is constructed without a repository.
	ErrNilRepository = errors.New("repository must not be nil")

	// ErrNilStreamResolver is returned when an EventSourcingAggregate is constructed without a stream resolver.
	ErrNilStreamResolver = errors.New("stream resolver must not be nil")

	// ErrNilActionPublisher is returned when a SagaManager is constructed without a publisher.
	ErrNilActionPublisher = errors.New("action publisher must not be nil")

	// ErrIncompleteDecider is returned when Decide or Evolve is missing.
	ErrIncompleteDecider = errors.New("decider needs decide and evolve")

	ErrIncompleteView = errors.New("view needs evolve")
	ErrIncompleteSaga = errors.New("saga needs react")

	// ErrInvalidMaxSagaDepth is returned when the saga hop limit is not positive.
	ErrInvalidMaxSagaDepth = errors.New("max saga depth must be positive")

	// ErrSagaTypeMismatch is returned when the saga given to WithSaga or WithSagaManager does not match
	// the event and command types of the aggregate.
	ErrSagaTypeMismatch = errors.New("saga does not match the aggregate's command and event types")

	// ErrNoStreamsResolved is returned when the stream resolver yields no stream for a command.
	ErrNoStreamsResolved = errors.New("no streams resolved for command")

	// ErrPartialAppend is matched by *PartialAppendError.
	ErrPartialAppend = errors.New("appended events of earlier streams before a later append failed")

	// ErrSagaDepthExceeded is returned when saga triggered commands nest deeper than the hop limit.
	ErrSagaDepthExceeded = errors.New("saga depth exceeded")

	// ErrSagaDispatchFailed is returned when at least one saga command could not be published.
	ErrSagaDispatchFailed = errors.New("saga dispatch failed")
)

// Step names the stage of a runtime invocation.
type Step string

const (
	StepFetching  Step = "fetching"
	StepDeciding  Step = "deciding"
	StepAppending Step = "appending"
	StepSaving    Step = "saving"
	StepSaga      Step = "saga"
)

// StepError is returned by the runtimes for every failure. It names the step and, where known, the stream.
type StepError struct {
	Step     Step
	StreamID string
	Err      error
}

func (e *StepError) Error() string {
	if e.StreamID == "" {
		return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
	}

	return fmt.Sprintf("%s failed for stream %s: %v", e.Step, e.StreamID, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// PartialAppendError means the events of earlier streams were committed and the append to FailedStreamID
// was not. Committed holds what is durable.
type PartialAppendError[E any] struct {
	Committed      []eventstore.VersionedEvent[E]
	FailedStreamID string
	Err            error
}

func (e *PartialAppendError[E]) Error() string {
	return fmt.Sprintf("%v: %d events committed, append to stream %s failed: %v",
		ErrPartialAppend, len(e.Committed), e.FailedStreamID, e.Err)
}

func (e *PartialAppendError[E]) Unwrap() error {
	return e.Err
}

func (e *PartialAppendError[E]) Is(target error) bool {
	return target == ErrPartialAppend
}

// IsConcurrencyConflict reports whether err, or anything it wraps, is a concurrency conflict.
// Those are the only failures worth retrying with fresh state.
func IsConcurrencyConflict(err error) bool {
	return errors.Is(err, eventstore.ErrConcurrencyConflict)
}

func newStepError(step Step, streamID string, err error) error {
	return &StepError{Step: step, StreamID: streamID, Err: err}
}
