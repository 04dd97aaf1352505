// Package enginecontract holds the behavior every eventstore.EventStore engine must show.
// Engine test packages call Run with a factory that returns an empty store.
package enginecontract

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
)

// Factory returns an empty store for one test.
type Factory func(t *testing.T) eventstore.EventStore

// Run runs the contract against the engine.
func Run(t *testing.T, newStore Factory) {
	t.Run("query of unknown stream is empty", func(t *testing.T) {
		store := newStore(t)

		events, latest, err := store.Query(context.Background(), GivenStreamID())

		require.NoError(t, err)
		assert.Empty(t, events)
		assert.Equal(t, eventstore.NoStream, latest)
	})

	t.Run("append to new stream starts at sequence number 0", func(t *testing.T) {
		// arrange
		store := newStore(t)
		streamID := GivenStreamID()

		// act
		stored, err := store.Append(context.Background(), streamID, eventstore.NoStream,
			GivenStorableEvent(t, "Created"), GivenStorableEvent(t, "Renamed"))

		// assert
		require.NoError(t, err)
		require.Len(t, stored, 2)
		assert.Equal(t, eventstore.SequenceNumber(0), stored[0].SequenceNumber)
		assert.Equal(t, eventstore.SequenceNumber(1), stored[1].SequenceNumber)
		assert.Equal(t, streamID, stored[1].StreamID)
		assert.Less(t, stored[0].Position, stored[1].Position)

		events, latest, err := store.Query(context.Background(), streamID)
		require.NoError(t, err)
		assert.Equal(t, eventstore.SequenceNumber(1), latest)
		require.Len(t, events, 2)
		assert.Equal(t, "Created", events[0].EventType)
		assert.Equal(t, "Renamed", events[1].EventType)
		assert.JSONEq(t, string(stored[0].PayloadJSON), string(events[0].PayloadJSON))
	})

	t.Run("append with the latest sequence number continues the stream", func(t *testing.T) {
		// arrange
		store := newStore(t)
		streamID := GivenStreamID()
		GivenAppended(t, store, streamID, 3)

		// act
		stored, err := store.Append(context.Background(), streamID, 2, GivenStorableEvent(t, "Next"))

		// assert
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, eventstore.SequenceNumber(3), stored[0].SequenceNumber)
	})

	t.Run("append with a stale sequence number is a conflict and appends nothing", func(t *testing.T) {
		// arrange
		store := newStore(t)
		streamID := GivenStreamID()
		GivenAppended(t, store, streamID, 4) // latest is 3

		// act
		_, err := store.Append(context.Background(), streamID, 2,
			GivenStorableEvent(t, "Stale"), GivenStorableEvent(t, "Stale"))

		// assert
		assert.ErrorIs(t, err, eventstore.ErrConcurrencyConflict)

		latest, latestErr := store.LatestSequenceNumber(context.Background(), streamID)
		require.NoError(t, latestErr)
		assert.Equal(t, eventstore.SequenceNumber(3), latest)
	})

	t.Run("append expecting a new stream to an existing stream is a conflict", func(t *testing.T) {
		store := newStore(t)
		streamID := GivenStreamID()
		GivenAppended(t, store, streamID, 1)

		_, err := store.Append(context.Background(), streamID, eventstore.NoStream, GivenStorableEvent(t, "Created"))

		assert.ErrorIs(t, err, eventstore.ErrConcurrencyConflict)
	})

	t.Run("append expecting events on an empty stream is a conflict", func(t *testing.T) {
		store := newStore(t)

		_, err := store.Append(context.Background(), GivenStreamID(), 0, GivenStorableEvent(t, "Created"))

		assert.ErrorIs(t, err, eventstore.ErrConcurrencyConflict)
	})

	t.Run("streams are independent", func(t *testing.T) {
		// arrange
		store := newStore(t)
		first, second := GivenStreamID(), GivenStreamID()
		GivenAppended(t, store, first, 2)

		// act
		stored, err := store.Append(context.Background(), second, eventstore.NoStream, GivenStorableEvent(t, "Created"))

		// assert
		require.NoError(t, err)
		assert.Equal(t, eventstore.SequenceNumber(0), stored[0].SequenceNumber)

		events, _, err := store.Query(context.Background(), first)
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})

	t.Run("empty stream id is rejected", func(t *testing.T) {
		store := newStore(t)

		_, _, err := store.Query(context.Background(), "")
		assert.ErrorIs(t, err, eventstore.ErrEmptyStreamID)

		_, err = store.Append(context.Background(), "", eventstore.NoStream, GivenStorableEvent(t, "Created"))
		assert.ErrorIs(t, err, eventstore.ErrEmptyStreamID)
	})

	t.Run("concurrent appends with the same expectation let exactly one win", func(t *testing.T) {
		// arrange
		store := newStore(t)
		streamID := GivenStreamID()
		GivenAppended(t, store, streamID, 1)

		const attempts = 8
		var mu sync.Mutex
		conflicts := 0
		group, ctx := errgroup.WithContext(context.Background())

		// act
		for range attempts {
			group.Go(func() error {
				_, err := store.Append(ctx, streamID, 0, GivenStorableEvent(t, "Raced"))
				if err != nil {
					if !assert.ErrorIs(t, err, eventstore.ErrConcurrencyConflict) {
						return err
					}

					mu.Lock()
					conflicts++
					mu.Unlock()
				}

				return nil
			})
		}

		// assert
		require.NoError(t, group.Wait())
		assert.Equal(t, attempts-1, conflicts)

		latest, err := store.LatestSequenceNumber(context.Background(), streamID)
		require.NoError(t, err)
		assert.Equal(t, eventstore.SequenceNumber(1), latest)
	})

	t.Run("query all filters by event type and position", func(t *testing.T) {
		// arrange
		store := newStore(t)
		first, second := GivenStreamID(), GivenStreamID()
		a := GivenAppendedEvents(t, store, first, eventstore.NoStream, "Created", "Renamed")
		GivenAppendedEvents(t, store, second, eventstore.NoStream, "Created")

		// act
		all, err := store.QueryAll(context.Background(), eventstore.MatchingAnyEvent(), a[0].Position)
		require.NoError(t, err)
		created, err := store.QueryAll(context.Background(),
			eventstore.BuildEventFilter().AnyEventTypeOf("Created").Finalize(), 0)
		require.NoError(t, err)

		// assert
		assert.Len(t, ofStreams(all, first, second), 2)
		assert.Len(t, ofStreams(created, first, second), 2)
		for _, e := range created {
			assert.Equal(t, "Created", e.EventType)
		}
	})

	t.Run("cancelled context fails", func(t *testing.T) {
		store := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := store.Append(ctx, GivenStreamID(), eventstore.NoStream, GivenStorableEvent(t, "Created"))

		assert.Error(t, err)
	})
}

// RunSnapshots runs the snapshot part of the contract.
func RunSnapshots(t *testing.T, newStore func(t *testing.T) eventstore.SnapshotStore) {
	t.Run("load of unknown snapshot is nil", func(t *testing.T) {
		store := newStore(t)

		snapshot, err := store.LoadSnapshot(context.Background(), "RestaurantView", GivenStreamID())

		require.NoError(t, err)
		assert.Nil(t, snapshot)
	})

	t.Run("save upserts and load returns the latest", func(t *testing.T) {
		// arrange
		store := newStore(t)
		id := GivenStreamID()
		first, err := eventstore.BuildSnapshot("RestaurantView", id, 1, json.RawMessage(`{"name":"first"}`))
		require.NoError(t, err)
		second, err := eventstore.BuildSnapshot("RestaurantView", id, 2, json.RawMessage(`{"name":"second"}`))
		require.NoError(t, err)

		// act
		require.NoError(t, store.SaveSnapshot(context.Background(), first))
		require.NoError(t, store.SaveSnapshot(context.Background(), second))
		loaded, err := store.LoadSnapshot(context.Background(), "RestaurantView", id)

		// assert
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, eventstore.Position(2), loaded.Position)
		assert.JSONEq(t, `{"name":"second"}`, string(loaded.Data))
	})

	t.Run("delete removes the snapshot", func(t *testing.T) {
		store := newStore(t)
		id := GivenStreamID()
		snapshot, err := eventstore.BuildSnapshot("RestaurantView", id, 1, json.RawMessage(`{}`))
		require.NoError(t, err)
		require.NoError(t, store.SaveSnapshot(context.Background(), snapshot))

		require.NoError(t, store.DeleteSnapshot(context.Background(), "RestaurantView", id))

		loaded, err := store.LoadSnapshot(context.Background(), "RestaurantView", id)
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})
}

func GivenStreamID() string {
	return "stream-" + uuid.NewString()
}

func GivenStorableEvent(t *testing.T, eventType string) eventstore.StorableEvent {
	t.Helper()

	payload := fmt.Sprintf(`{"id":%q}`, uuid.NewString())
	metadata := fmt.Sprintf(`{"MessageID":%q}`, uuid.NewString())

	event, err := eventstore.BuildStorableEvent(eventType, time.Now().UTC().Truncate(time.Microsecond), []byte(payload), []byte(metadata))
	require.NoError(t, err)

	return event
}

// GivenAppended appends count events to a new stream.
func GivenAppended(t *testing.T, store eventstore.EventStore, streamID string, count int) {
	t.Helper()

	eventTypes := make([]string, 0, count)
	for i := range count {
		eventTypes = append(eventTypes, fmt.Sprintf("Event%d", i))
	}

	GivenAppendedEvents(t, store, streamID, eventstore.NoStream, eventTypes...)
}

func GivenAppendedEvents(
	t *testing.T,
	store eventstore.EventStore,
	streamID string,
	expected eventstore.SequenceNumber,
	eventTypes ...string,
) eventstore.StoredEvents {

	t.Helper()

	events := make(eventstore.StorableEvents, 0, len(eventTypes))
	for _, eventType := range eventTypes {
		events = append(events, GivenStorableEvent(t, eventType))
	}

	stored, err := store.Append(context.Background(), streamID, expected, events[0], events[1:]...)
	require.NoError(t, err)

	return stored
}

// ofStreams keeps the events of the streams, stores used by more than one test contain other events too.
func ofStreams(events eventstore.StoredEvents, streamIDs ...string) eventstore.StoredEvents {
	kept := make(eventstore.StoredEvents, 0)
	for _, e := range events {
		for _, id := range streamIDs {
			if e.StreamID == id {
				kept = append(kept, e)
			}
		}
	}

	return kept
}
