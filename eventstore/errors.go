package eventstore

import (
	"errors"
)

var (
	ErrEmptyEventsTableName    = errors.New("events table name must not be empty")
	ErrEmptySnapshotsTableName = errors.New("snapshots table name must not be empty")
	ErrNilDatabaseConnection   = errors.New("database connection must not be nil")
	ErrEmptyStreamID           = errors.New("stream id must not be empty")

	// ErrInvalidExpectedSequenceNumber is returned when an append expects a sequence number below NoStream.
	ErrInvalidExpectedSequenceNumber = errors.New("expected sequence number must not be lower than -1")

	// ErrConcurrencyConflict is returned when the stream was changed after its sequence number was read.
	// It is retryable: fetch again, decide again, append again.
	ErrConcurrencyConflict = errors.New("concurrency conflict, the stream was changed concurrently")

	ErrBuildingQueryFailed         = errors.New("building the query failed")
	ErrQueryingEventsFailed        = errors.New("querying events failed")
	ErrScanningDBRowFailed         = errors.New("scanning db row failed")
	ErrBuildingStorableEventFailed = errors.New("building storable event from db row failed")
	ErrAppendingEventFailed        = errors.New("appending the event failed")
	ErrBeginningTransactionFailed  = errors.New("beginning the transaction failed")
	ErrCommittingTransactionFailed = errors.New("committing the transaction failed")
	ErrCreatingSchemaFailed        = errors.New("creating the schema failed")
)

// SequenceNumber is the per-stream position of an event. The first event of a stream has sequence number 0.
type SequenceNumber = int64

// NoStream is the sequence number of a stream that has no events yet.
const NoStream SequenceNumber = -1

// Position is the store-wide, monotonically increasing position of an event, used by projections.
type Position = int64
