// Package memoryengine implements eventstore.EventStore and eventstore.SnapshotStore in process memory.
// It is goroutine-safe and meant for tests, demos and single-process tools.
package memoryengine

import (
	"context"
	"sync"
	"time"

	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
	"github.com/AntonStoeckl/decider-eventstore-go/internal/observe"
)

const (
	logActionQuery            = "query"
	logActionAppend           = "append"
	logMsgConcurrencyConflict = "concurrency conflict detected"
	logAttrStreamID           = "stream_id"
	logAttrEventCount         = "event_count"
	logAttrExpectedSequence   = "expected_sequence"
	logAttrActualSequence     = "actual_sequence"
)

type snapshotKey struct {
	projectionType string
	projectionID   string
}

// EventStore keeps all events in one ordered log plus a per-stream index into it.
type EventStore struct {
	mu        sync.RWMutex
	log       eventstore.StoredEvents
	streams   map[string][]int
	snapshots map[snapshotKey]eventstore.Snapshot
	observer  observe.Observer
}

// Option defines a functional option for configuring EventStore.
type Option func(*EventStore) error

// WithLogger sets the logger for the EventStore.
func WithLogger(logger eventstore.Logger) Option {
	return func(es *EventStore) error {
		es.observer.Logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the EventStore.
func WithContextualLogger(logger eventstore.ContextualLogger) Option {
	return func(es *EventStore) error {
		es.observer.ContextualLogger = logger
		return nil
	}
}

// NewEventStore creates an empty in-memory EventStore.
func NewEventStore(options ...Option) (*EventStore, error) {
	es := &EventStore{
		streams:   make(map[string][]int),
		snapshots: make(map[snapshotKey]eventstore.Snapshot),
	}

	for _, option := range options {
		if err := option(es); err != nil {
			return nil, err
		}
	}

	return es, nil
}

// Query returns the events of the stream in sequence order and the latest sequence number
// (eventstore.NoStream if the stream is empty).
func (es *EventStore) Query(ctx context.Context, streamID string) (eventstore.StoredEvents, eventstore.SequenceNumber, error) {
	if err := ctx.Err(); err != nil {
		return nil, eventstore.NoStream, err
	}

	if streamID == "" {
		return nil, eventstore.NoStream, eventstore.ErrEmptyStreamID
	}

	es.mu.RLock()
	defer es.mu.RUnlock()

	indexes := es.streams[streamID]
	events := make(eventstore.StoredEvents, 0, len(indexes))
	for _, i := range indexes {
		events = append(events, es.log[i])
	}

	es.observer.LogOperation(ctx, logActionQuery, logAttrStreamID, streamID, logAttrEventCount, len(events))

	return events, eventstore.LastSequenceNumber(events), nil
}

// LatestSequenceNumber returns the sequence number of the last event of the stream.
func (es *EventStore) LatestSequenceNumber(ctx context.Context, streamID string) (eventstore.SequenceNumber, error) {
	if err := ctx.Err(); err != nil {
		return eventstore.NoStream, err
	}

	if streamID == "" {
		return eventstore.NoStream, eventstore.ErrEmptyStreamID
	}

	es.mu.RLock()
	defer es.mu.RUnlock()

	return es.latest(streamID), nil
}

// Append appends the events to the stream if its latest sequence number still equals expected.
func (es *EventStore) Append(
	ctx context.Context,
	streamID string,
	expected eventstore.SequenceNumber,
	event eventstore.StorableEvent,
	additionalEvents ...eventstore.StorableEvent,
) (eventstore.StoredEvents, error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if streamID == "" {
		return nil, eventstore.ErrEmptyStreamID
	}

	if expected < eventstore.NoStream {
		return nil, eventstore.ErrInvalidExpectedSequenceNumber
	}

	es.mu.Lock()
	defer es.mu.Unlock()

	if actual := es.latest(streamID); actual != expected {
		es.observer.LogOperation(
			ctx,
			logMsgConcurrencyConflict,
			logAttrStreamID, streamID,
			logAttrExpectedSequence, expected,
			logAttrActualSequence, actual,
		)

		return nil, eventstore.ErrConcurrencyConflict
	}

	allEvents := append(eventstore.StorableEvents{event}, additionalEvents...)
	stored := make(eventstore.StoredEvents, 0, len(allEvents))

	for i, e := range allEvents {
		storedEvent := eventstore.StoredEvent{
			StorableEvent:  e,
			StreamID:       streamID,
			SequenceNumber: expected + 1 + eventstore.SequenceNumber(i),
			Position:       eventstore.Position(len(es.log) + 1),
		}

		es.streams[streamID] = append(es.streams[streamID], len(es.log))
		es.log = append(es.log, storedEvent)
		stored = append(stored, storedEvent)
	}

	es.observer.LogOperation(ctx, logActionAppend, logAttrStreamID, streamID, logAttrEventCount, len(stored))

	return stored, nil
}

// QueryAll returns the events matching the filter with a position greater than afterPosition,
// across all streams, in position order.
func (es *EventStore) QueryAll(
	ctx context.Context,
	filter eventstore.Filter,
	afterPosition eventstore.Position,
) (eventstore.StoredEvents, error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	es.mu.RLock()
	defer es.mu.RUnlock()

	events := make(eventstore.StoredEvents, 0)
	for _, e := range es.log {
		if e.Position > afterPosition && filter.Matches(e.StorableEvent) {
			events = append(events, e)
		}
	}

	return events, nil
}

// SaveSnapshot upserts the snapshot.
func (es *EventStore) SaveSnapshot(ctx context.Context, snapshot eventstore.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := snapshot.Validate(); err != nil {
		return err
	}

	es.mu.Lock()
	defer es.mu.Unlock()

	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now()
	}

	snapshot.Data = append([]byte(nil), snapshot.Data...)
	es.snapshots[snapshotKey{snapshot.ProjectionType, snapshot.ProjectionID}] = snapshot

	return nil
}

// LoadSnapshot returns (nil, nil) if there is no snapshot.
func (es *EventStore) LoadSnapshot(ctx context.Context, projectionType, projectionID string) (*eventstore.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	es.mu.RLock()
	defer es.mu.RUnlock()

	snapshot, ok := es.snapshots[snapshotKey{projectionType, projectionID}]
	if !ok {
		return nil, nil
	}

	snapshot.Data = append([]byte(nil), snapshot.Data...)

	return &snapshot, nil
}

func (es *EventStore) DeleteSnapshot(ctx context.Context, projectionType, projectionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	es.mu.Lock()
	defer es.mu.Unlock()

	delete(es.snapshots, snapshotKey{projectionType, projectionID})

	return nil
}

func (es *EventStore) latest(streamID string) eventstore.SequenceNumber {
	indexes := es.streams[streamID]
	if len(indexes) == 0 {
		return eventstore.NoStream
	}

	return es.log[indexes[len(indexes)-1]].SequenceNumber
}
