// Package sqliteengine implements eventstore.EventStore and eventstore.SnapshotStore on SQLite,
// using the pure Go driver modernc.org/sqlite.
//
// Each append runs in its own transaction: read the latest sequence number of the stream, compare it
// with the expected one, insert. The unique index on (stream_id, sequence_number) backs the check.
//
//	store, err := sqliteengine.Open("restaurant.db")
//	if err != nil {
//		// handle error
//	}
//	defer store.Close()
//
//	stored, err := store.Append(ctx, streamID, eventstore.NoStream, newEvent)
package sqliteengine
