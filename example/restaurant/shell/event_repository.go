package shell

import (
	"context"
	"errors"
	"time"

	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
	"github.com/AntonStoeckl/decider-eventstore-go/example/restaurant/core"
)

// ErrNilEventStore is returned when a nil event store is provided.
var ErrNilEventStore = errors.New("event store must not be nil")

// EventRepository adapts any eventstore.EventStore engine to the repository the EventSourcingAggregate needs.
// Events are stamped with the current time and with metadata derived from the context.
type EventRepository struct {
	store eventstore.EventStore
	now   func() time.Time
}

// NewEventRepository creates an EventRepository over store.
func NewEventRepository(store eventstore.EventStore) (EventRepository, error) {
	if store == nil {
		return EventRepository{}, ErrNilEventStore
	}

	return EventRepository{store: store, now: time.Now}, nil
}

// FetchEvents loads and decodes all events of the stream.
func (r EventRepository) FetchEvents(ctx context.Context, streamID string) ([]eventstore.VersionedEvent[core.Event], error) {
	storedEvents, _, err := r.store.Query(ctx, streamID)
	if err != nil {
		return nil, err
	}

	return DomainEventsFrom(storedEvents)
}

// LatestSequenceNumber returns the latest sequence number of the stream.
func (r EventRepository) LatestSequenceNumber(ctx context.Context, streamID string) (eventstore.SequenceNumber, error) {
	return r.store.LatestSequenceNumber(ctx, streamID)
}

// AppendEvents encodes the events and appends them to the stream in one atomic append.
func (r EventRepository) AppendEvents(
	ctx context.Context,
	streamID string,
	expectedPrevious eventstore.SequenceNumber,
	events []core.Event,
) ([]eventstore.VersionedEvent[core.Event], error) {

	if len(events) == 0 {
		return []eventstore.VersionedEvent[core.Event]{}, nil
	}

	occurredAt := r.now()

	storableEvents := make(eventstore.StorableEvents, 0, len(events))
	for _, event := range events {
		storableEvent, err := StorableEventFrom(event, occurredAt, EventMetadataFor(ctx))
		if err != nil {
			return nil, err
		}

		storableEvents = append(storableEvents, storableEvent)
	}

	storedEvents, err := r.store.Append(ctx, streamID, expectedPrevious, storableEvents[0], storableEvents[1:]...)
	if err != nil {
		return nil, err
	}

	versioned := make([]eventstore.VersionedEvent[core.Event], 0, len(storedEvents))
	for i, storedEvent := range storedEvents {
		versioned = append(versioned, eventstore.VersionedEvent[core.Event]{
			Event:          events[i],
			StreamID:       storedEvent.StreamID,
			SequenceNumber: storedEvent.SequenceNumber,
		})
	}

	return versioned, nil
}
