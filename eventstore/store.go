package eventstore

import "context"

// EventStore is the contract every engine implements (postgresengine, sqliteengine, memoryengine).
//
// Append enforces per-stream optimistic concurrency: it succeeds only when the latest sequence number of the
// stream equals expected (NoStream for a new stream). Otherwise it fails with ErrConcurrencyConflict and
// appends nothing. The appended events get expected+1, expected+2, ... as sequence numbers.
type EventStore interface {
	Query(ctx context.Context, streamID string) (StoredEvents, SequenceNumber, error)
	LatestSequenceNumber(ctx context.Context, streamID string) (SequenceNumber, error)
	Append(
		ctx context.Context,
		streamID string,
		expected SequenceNumber,
		event StorableEvent,
		additionalEvents ...StorableEvent,
	) (StoredEvents, error)
	QueryAll(ctx context.Context, filter Filter, afterPosition Position) (StoredEvents, error)
}

// SnapshotStore persists projection states.
// LoadSnapshot returns (nil, nil) when there is no snapshot.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snapshot Snapshot) error
	LoadSnapshot(ctx context.Context, projectionType, projectionID string) (*Snapshot, error)
	DeleteSnapshot(ctx context.Context, projectionType, projectionID string) error
}
