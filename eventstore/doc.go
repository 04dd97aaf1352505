// Package eventstore provides the storage abstractions shared by the engines:
// storable and stored events, per-stream sequence numbers, snapshots, filters,
// the dependency-free observability interfaces, and the common errors.
//
// Every event belongs to a stream (one aggregate instance). Sequence numbers are counted per stream,
// starting at 0. NoStream (-1) is the sequence number of a stream without events. Appends are guarded by
// the sequence number read before deciding:
//
//	events, latest, err := store.Query(ctx, streamID)
//	if err != nil {
//		// handle error
//	}
//
//	// decide on the events ...
//
//	newEvent, _ := eventstore.BuildStorableEvent(eventType, time.Now(), payload, metadata)
//	_, err = store.Append(ctx, streamID, latest, newEvent)
//	if errors.Is(err, eventstore.ErrConcurrencyConflict) {
//		// someone else appended to the stream in between, retry
//	}
//
// Engines: postgresengine (pgx, database/sql, sqlx), sqliteengine (modernc.org/sqlite), memoryengine.
package eventstore
