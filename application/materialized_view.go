package application

import (
	"context"
	"fmt"
	"time"

	"github.com/AntonStoeckl/decider-eventstore-go/domain"
	"github.com/AntonStoeckl/decider-eventstore-go/internal/observe"
)

const (
	metricViewDuration = "view_handle_duration_seconds"
	logMsgViewFailed   = "view materialization failed"
	logAttrEventType   = "event_type"
)

// MaterializedView folds events into read-side state kept by a ViewStateRepository.
type MaterializedView[S, E any] struct {
	view       domain.View[S, E]
	repository ViewStateRepository[E, S]
	observer   observe.Observer
}

func NewMaterializedView[S, E any](
	view domain.View[S, E],
	repository ViewStateRepository[E, S],
	options ...Option,
) (*MaterializedView[S, E], error) {

	if view.Evolve == nil {
		return nil, ErrIncompleteView
	}

	if repository == nil {
		return nil, ErrNilRepository
	}

	s, err := newSettings(options)
	if err != nil {
		return nil, err
	}

	return &MaterializedView[S, E]{view: view, repository: repository, observer: s.observer}, nil
}

// Handle evolves the state the event belongs to and saves it.
func (v *MaterializedView[S, E]) Handle(ctx context.Context, event E) (S, error) {
	start := time.Now()

	state, found, err := v.repository.FetchState(ctx, event)
	if err != nil {
		return v.failed(ctx, event, start, newStepError(StepFetching, "", err))
	}

	if !found {
		state = v.view.InitialState
	}

	newState := v.view.Evolve(state, event)

	if err := v.repository.Save(ctx, event, newState); err != nil {
		return v.failed(ctx, event, start, newStepError(StepSaving, "", err))
	}

	v.observer.RecordDuration(ctx, metricViewDuration, time.Since(start), operationMaterialization, observe.StatusSuccess)

	return newState, nil
}

// CatchUp handles the events in order and stops at the first failure.
func (v *MaterializedView[S, E]) CatchUp(ctx context.Context, events []E) error {
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, err := v.Handle(ctx, event); err != nil {
			return err
		}
	}

	return nil
}

func (v *MaterializedView[S, E]) failed(ctx context.Context, event E, start time.Time, err error) (S, error) {
	var zero S

	v.observer.LogError(ctx, logMsgViewFailed, err, logAttrEventType, fmt.Sprintf("%T", event))
	v.observer.RecordDuration(ctx, metricViewDuration, time.Since(start), operationMaterialization, observe.StatusError)

	return zero, err
}
