package sqliteengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // dialect registration
	_ "modernc.org/sqlite"                             // database/sql driver "sqlite"

	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
	"github.com/AntonStoeckl/decider-eventstore-go/internal/observe"
)

const (
	defaultEventTableName    = "events"
	defaultSnapshotTableName = "snapshots"
	dialectSQLite            = "sqlite3"
	driverName               = "sqlite"
	dsnPragmas               = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate"

	logMsgDBQueryFailed       = "database query execution failed"
	logMsgDBAppendFailed      = "database execution failed during event append"
	logMsgRollbackFailed      = "failed to roll back transaction"
	logMsgConcurrencyConflict = "concurrency conflict detected"
	logMsgEventsAppended      = "events appended"
	logAttrStreamID           = "stream_id"
	logAttrEventCount         = "event_count"
	logAttrExpectedSequence   = "expected_sequence"
	logAttrActualSequence     = "actual_sequence"
	logActionQuery            = "query"
	logActionAppend           = "append"

	metricAppendDuration       = "eventstore_append_duration_seconds"
	metricConcurrencyConflicts = "eventstore_concurrency_conflicts_total"

	colPosition       = "position"
	colStreamID       = "stream_id"
	colSequenceNumber = "sequence_number"
	colEventType      = "event_type"
	colOccurredAt     = "occurred_at"
	colPayload        = "payload"
	colMetadata       = "metadata"
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// EventStore is the SQLite engine. It is safe for concurrent use.
type EventStore struct {
	db                *sql.DB
	ownsDB            bool
	eventTableName    string
	snapshotTableName string
	observer          observe.Observer
}

// Open opens (or creates) the database file at path, limits it to one connection so writers are
// serialized in-process, and creates the schema.
func Open(path string, options ...Option) (*EventStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	db, err := sql.Open(driverName, filepath.Clean(path)+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	db.SetMaxOpenConns(1)

	es, err := NewEventStoreFromSQLDB(db, options...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	es.ownsDB = true

	if err := es.CreateSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return es, nil
}

// NewEventStoreFromSQLDB creates an EventStore on an open sqlite *sql.DB. The schema is not created.
func NewEventStoreFromSQLDB(db *sql.DB, options ...Option) (*EventStore, error) {
	if db == nil {
		return nil, eventstore.ErrNilDatabaseConnection
	}

	es := &EventStore{
		db:                db,
		eventTableName:    defaultEventTableName,
		snapshotTableName: defaultSnapshotTableName,
	}

	for _, option := range options {
		if err := option(es); err != nil {
			return nil, err
		}
	}

	return es, nil
}

// DB exposes the handle, e.g. to share the file with a state repository.
func (es *EventStore) DB() *sql.DB {
	return es.db
}

// Close closes the handle if Open created it.
func (es *EventStore) Close() error {
	if es == nil || es.db == nil || !es.ownsDB {
		return nil
	}

	return es.db.Close()
}

// Query returns the events of the stream ordered by sequence number, and the latest sequence number.
func (es *EventStore) Query(ctx context.Context, streamID string) (eventstore.StoredEvents, eventstore.SequenceNumber, error) {
	if streamID == "" {
		return nil, eventstore.NoStream, eventstore.ErrEmptyStreamID
	}

	sqlQuery, args, toSQLErr := es.selectEvents().
		Where(goqu.Ex{colStreamID: streamID}).
		Order(goqu.I(colSequenceNumber).Asc()).
		ToSQL()
	if toSQLErr != nil {
		return nil, eventstore.NoStream, errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	events, err := es.queryEvents(ctx, sqlQuery, args)
	if err != nil {
		return nil, eventstore.NoStream, err
	}

	return events, eventstore.LastSequenceNumber(events), nil
}

func (es *EventStore) LatestSequenceNumber(ctx context.Context, streamID string) (eventstore.SequenceNumber, error) {
	if streamID == "" {
		return eventstore.NoStream, eventstore.ErrEmptyStreamID
	}

	return es.latestSequenceNumber(ctx, es.db, streamID)
}

// Append appends the events to the stream in one transaction if its latest sequence number equals expected.
func (es *EventStore) Append(
	ctx context.Context,
	streamID string,
	expected eventstore.SequenceNumber,
	event eventstore.StorableEvent,
	additionalEvents ...eventstore.StorableEvent,
) (eventstore.StoredEvents, error) {

	if streamID == "" {
		return nil, eventstore.ErrEmptyStreamID
	}

	if expected < eventstore.NoStream {
		return nil, eventstore.ErrInvalidExpectedSequenceNumber
	}

	start := time.Now()

	tx, beginErr := es.db.BeginTx(ctx, nil)
	if beginErr != nil {
		return nil, errors.Join(eventstore.ErrBeginningTransactionFailed, beginErr)
	}
	defer es.rollback(ctx, tx)

	actual, latestErr := es.latestSequenceNumber(ctx, tx, streamID)
	if latestErr != nil {
		return nil, latestErr
	}

	if actual != expected {
		return nil, es.conflict(ctx, streamID, expected, actual, time.Since(start))
	}

	allEvents := append(eventstore.StorableEvents{event}, additionalEvents...)
	stored := make(eventstore.StoredEvents, 0, len(allEvents))

	for i, e := range allEvents {
		sequenceNumber := expected + 1 + eventstore.SequenceNumber(i)

		sqlQuery, args, toSQLErr := goqu.Dialect(dialectSQLite).
			Insert(es.eventTableName).
			Rows(goqu.Record{
				colStreamID:       streamID,
				colSequenceNumber: sequenceNumber,
				colEventType:      e.EventType,
				colOccurredAt:     e.OccurredAt.UnixNano(),
				colPayload:        string(e.PayloadJSON),
				colMetadata:       string(e.MetadataJSON),
			}).
			Prepared(true).
			ToSQL()
		if toSQLErr != nil {
			return nil, errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
		}

		execStart := time.Now()
		result, execErr := tx.ExecContext(ctx, sqlQuery, args...)
		es.observer.LogSQL(ctx, logActionAppend, sqlQuery, time.Since(execStart))
		if execErr != nil {
			return nil, es.appendFailed(ctx, streamID, expected, actual, time.Since(start), execErr)
		}

		position, idErr := result.LastInsertId()
		if idErr != nil {
			return nil, errors.Join(eventstore.ErrAppendingEventFailed, idErr)
		}

		stored = append(stored, eventstore.StoredEvent{
			StorableEvent:  e,
			StreamID:       streamID,
			SequenceNumber: sequenceNumber,
			Position:       position,
		})
	}

	if commitErr := tx.Commit(); commitErr != nil {
		if isConflictError(commitErr) {
			return nil, es.conflict(ctx, streamID, expected, actual, time.Since(start))
		}

		return nil, errors.Join(eventstore.ErrCommittingTransactionFailed, commitErr)
	}

	duration := time.Since(start)
	es.observer.LogOperation(ctx, logMsgEventsAppended, logAttrStreamID, streamID, logAttrEventCount, len(stored))
	es.observer.RecordDuration(ctx, metricAppendDuration, duration, logActionAppend, observe.StatusSuccess)

	return stored, nil
}

// QueryAll returns the events matching the filter with a position greater than afterPosition, in position order.
func (es *EventStore) QueryAll(
	ctx context.Context,
	filter eventstore.Filter,
	afterPosition eventstore.Position,
) (eventstore.StoredEvents, error) {

	expressions := []goqu.Expression{goqu.C(colPosition).Gt(afterPosition)}

	if len(filter.EventTypes()) > 0 {
		expressions = append(expressions, goqu.C(colEventType).In(filter.EventTypes()))
	}

	if !filter.OccurredFrom().IsZero() {
		expressions = append(expressions, goqu.C(colOccurredAt).Gte(filter.OccurredFrom().UnixNano()))
	}

	if !filter.OccurredUntil().IsZero() {
		expressions = append(expressions, goqu.C(colOccurredAt).Lte(filter.OccurredUntil().UnixNano()))
	}

	sqlQuery, args, toSQLErr := es.selectEvents().
		Where(goqu.And(expressions...)).
		Order(goqu.I(colPosition).Asc()).
		ToSQL()
	if toSQLErr != nil {
		return nil, errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return es.queryEvents(ctx, sqlQuery, args)
}

func (es *EventStore) selectEvents() *goqu.SelectDataset {
	return goqu.Dialect(dialectSQLite).
		From(es.eventTableName).
		Select(colStreamID, colSequenceNumber, colPosition, colEventType, colOccurredAt, colPayload, colMetadata).
		Prepared(true)
}

func (es *EventStore) queryEvents(ctx context.Context, sqlQuery string, args []any) (eventstore.StoredEvents, error) {
	start := time.Now()
	rows, queryErr := es.db.QueryContext(ctx, sqlQuery, args...)
	es.observer.LogSQL(ctx, logActionQuery, sqlQuery, time.Since(start))
	if queryErr != nil {
		es.observer.LogError(ctx, logMsgDBQueryFailed, queryErr)
		return nil, errors.Join(eventstore.ErrQueryingEventsFailed, queryErr)
	}
	defer func() { _ = rows.Close() }()

	events := make(eventstore.StoredEvents, 0)

	for rows.Next() {
		var row eventstore.StoredEvent
		var occurredAt int64
		var payload, metadata []byte

		scanErr := rows.Scan(&row.StreamID, &row.SequenceNumber, &row.Position, &row.EventType, &occurredAt, &payload, &metadata)
		if scanErr != nil {
			return nil, errors.Join(eventstore.ErrScanningDBRowFailed, scanErr)
		}

		storable, buildErr := eventstore.BuildStorableEvent(row.EventType, time.Unix(0, occurredAt).UTC(), payload, metadata)
		if buildErr != nil {
			return nil, errors.Join(eventstore.ErrBuildingStorableEventFailed, buildErr)
		}

		row.StorableEvent = storable
		events = append(events, row)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, errors.Join(eventstore.ErrQueryingEventsFailed, rowsErr)
	}

	return events, nil
}

func (es *EventStore) latestSequenceNumber(ctx context.Context, q queryer, streamID string) (eventstore.SequenceNumber, error) {
	sqlQuery, args, toSQLErr := goqu.Dialect(dialectSQLite).
		From(es.eventTableName).
		Select(goqu.COALESCE(goqu.MAX(colSequenceNumber), eventstore.NoStream)).
		Where(goqu.Ex{colStreamID: streamID}).
		Prepared(true).
		ToSQL()
	if toSQLErr != nil {
		return eventstore.NoStream, errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := q.QueryContext(ctx, sqlQuery, args...)
	if queryErr != nil {
		return eventstore.NoStream, errors.Join(eventstore.ErrQueryingEventsFailed, queryErr)
	}
	defer func() { _ = rows.Close() }()

	latest := eventstore.NoStream
	if rows.Next() {
		if scanErr := rows.Scan(&latest); scanErr != nil {
			return eventstore.NoStream, errors.Join(eventstore.ErrScanningDBRowFailed, scanErr)
		}
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return eventstore.NoStream, errors.Join(eventstore.ErrQueryingEventsFailed, rowsErr)
	}

	return latest, nil
}

func (es *EventStore) appendFailed(
	ctx context.Context,
	streamID string,
	expected, actual eventstore.SequenceNumber,
	duration time.Duration,
	err error,
) error {

	if isConflictError(err) {
		return es.conflict(ctx, streamID, expected, actual, duration)
	}

	es.observer.LogError(ctx, logMsgDBAppendFailed, err, logAttrStreamID, streamID)
	es.observer.RecordDuration(ctx, metricAppendDuration, duration, logActionAppend, observe.StatusError)

	return errors.Join(eventstore.ErrAppendingEventFailed, err)
}

func (es *EventStore) conflict(
	ctx context.Context,
	streamID string,
	expected, actual eventstore.SequenceNumber,
	duration time.Duration,
) error {

	es.observer.LogOperation(
		ctx,
		logMsgConcurrencyConflict,
		logAttrStreamID, streamID,
		logAttrExpectedSequence, expected,
		logAttrActualSequence, actual,
	)
	es.observer.RecordDuration(ctx, metricAppendDuration, duration, logActionAppend, observe.StatusError)
	es.observer.IncrementCounter(ctx, metricConcurrencyConflicts, map[string]string{observe.AttrOperation: logActionAppend})

	return eventstore.ErrConcurrencyConflict
}

func (es *EventStore) rollback(ctx context.Context, tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		es.observer.LogWarn(ctx, logMsgRollbackFailed, err)
	}
}
