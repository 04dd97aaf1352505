package application

import (
	"context"

	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
)

// EventRepository loads and appends the decoded events of one stream.
// AppendEvents must append nothing and fail with eventstore.ErrConcurrencyConflict
// when the latest sequence number of the stream is not expectedPrevious.
type EventRepository[E any] interface {
	FetchEvents(ctx context.Context, streamID string) ([]eventstore.VersionedEvent[E], error)
	LatestSequenceNumber(ctx context.Context, streamID string) (eventstore.SequenceNumber, error)
	AppendEvents(
		ctx context.Context,
		streamID string,
		expectedPrevious eventstore.SequenceNumber,
		events []E,
	) ([]eventstore.VersionedEvent[E], error)
}

// StreamResolver maps commands to the streams whose history they are decided on,
// and events to the stream they are appended to.
type StreamResolver[C, E any] interface {
	StreamIDsForCommand(command C) []string
	StreamIDForEvent(event E) string
}

// StreamResolverFuncs adapts two functions to a StreamResolver.
type StreamResolverFuncs[C, E any] struct {
	ForCommand func(command C) []string
	ForEvent   func(event E) string
}

func (f StreamResolverFuncs[C, E]) StreamIDsForCommand(command C) []string {
	return f.ForCommand(command)
}

func (f StreamResolverFuncs[C, E]) StreamIDForEvent(event E) string {
	return f.ForEvent(event)
}

// StateRepository loads and saves the state a command targets.
//
// FetchState returns eventstore.NoStream as version when there is no state yet.
// Save stores the state only if the stored version still equals version, otherwise it fails with
// eventstore.ErrConcurrencyConflict. It returns the new version. Implementations that write more than one
// row do so in one transaction.
type StateRepository[C, S any] interface {
	FetchState(ctx context.Context, command C) (S, eventstore.SequenceNumber, error)
	Save(ctx context.Context, command C, state S, version eventstore.SequenceNumber) (eventstore.SequenceNumber, error)
}

// ViewStateRepository loads and saves the read-side state an event belongs to.
// FetchState reports found=false when there is no state yet.
type ViewStateRepository[E, S any] interface {
	FetchState(ctx context.Context, event E) (state S, found bool, err error)
	Save(ctx context.Context, event E, state S) error
}
