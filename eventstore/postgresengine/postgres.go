package postgresengine

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
	"github.com/AntonStoeckl/decider-eventstore-go/eventstore/postgresengine/internal/adapters"
	"github.com/AntonStoeckl/decider-eventstore-go/internal/observe"
)

const (
	defaultEventTableName    = "events"
	defaultSnapshotTableName = "snapshots"

	logMsgBuildQueryFailed         = "failed to build query"
	logMsgDBQueryFailed            = "database query execution failed"
	logMsgCloseRowsFailed          = "failed to close database rows"
	logMsgScanRowFailed            = "failed to scan database row"
	logMsgBuildStorableEventFailed = "failed to build storable event from database row"
	logMsgDBAppendFailed           = "database execution failed during event append"
	logMsgQueryCompleted           = "query completed"
	logMsgEventsAppended           = "events appended"
	logMsgConcurrencyConflict      = "concurrency conflict detected"
	logAttrStreamID                = "stream_id"
	logAttrEventType               = "event_type"
	logAttrEventCount              = "event_count"
	logAttrDurationMS              = "duration_ms"
	logAttrExpectedSequence        = "expected_sequence"
	logActionQuery                 = "query"
	logActionQueryAll              = "query_all"
	logActionLatest                = "latest_sequence_number"
	logActionAppend                = "append"

	metricQueryDuration        = "eventstore_query_duration_seconds"
	metricAppendDuration       = "eventstore_append_duration_seconds"
	metricEventsQueried        = "eventstore_events_queried_total"
	metricEventsAppended       = "eventstore_events_appended_total"
	metricConcurrencyConflicts = "eventstore_concurrency_conflicts_total"
	metricDatabaseErrors       = "eventstore_database_errors_total"

	spanNameQuery      = "eventstore.query"
	spanNameAppend     = "eventstore.append"
	spanAttrStreamID   = "stream_id"
	spanAttrEventCount = "event_count"
	spanAttrExpected   = "expected_sequence"

	errorTypeBuildQuery = "build_query"
	errorTypeDatabase   = "database"
	errorTypeScan       = "scan"
	errorTypeConflict   = "concurrency_conflict"

	colPosition       = "position"
	colStreamID       = "stream_id"
	colSequenceNumber = "sequence_number"
	colEventType      = "event_type"
	colOccurredAt     = "occurred_at"
	colPayload        = "payload"
	colMetadata       = "metadata"

	cteContext      = "context"
	cteVals         = "vals"
	dialectPostgres = "postgres"
	aliasMaxSeq     = "max_seq"
	castText        = "?::text"
	castBigint      = "?::bigint"
	castTimestamp   = "?::timestamp with time zone"
	castJsonb       = "?::jsonb"
)

type sqlQueryString = string

// EventStore is the PostgreSQL engine. It is a value type and safe for concurrent use.
type EventStore struct {
	db                adapters.DBAdapter
	eventTableName    string
	snapshotTableName string
	observer          observe.Observer
}

// NewEventStoreFromPGXPool creates a new EventStore using a pgx Pool with optional configuration.
func NewEventStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (EventStore, error) {
	if db == nil {
		return EventStore{}, eventstore.ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewPGXAdapter(db), options...)
}

// NewEventStoreFromPGXPoolAndReplica creates a new EventStore that reads from the replica
// when the context asks for eventual consistency.
func NewEventStoreFromPGXPoolAndReplica(db *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (EventStore, error) {
	if db == nil || replica == nil {
		return EventStore{}, eventstore.ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewPGXAdapterWithReplica(db, replica), options...)
}

// NewEventStoreFromSQLDB creates a new EventStore using a sql.DB with optional configuration.
func NewEventStoreFromSQLDB(db *sql.DB, options ...Option) (EventStore, error) {
	if db == nil {
		return EventStore{}, eventstore.ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewSQLAdapter(db), options...)
}

// NewEventStoreFromSQLX creates a new EventStore using a sqlx.DB with optional configuration.
func NewEventStoreFromSQLX(db *sqlx.DB, options ...Option) (EventStore, error) {
	if db == nil {
		return EventStore{}, eventstore.ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewSQLXAdapter(db), options...)
}

func newEventStore(db adapters.DBAdapter, options ...Option) (EventStore, error) {
	es := EventStore{
		db:                db,
		eventTableName:    defaultEventTableName,
		snapshotTableName: defaultSnapshotTableName,
	}

	for _, option := range options {
		if err := option(&es); err != nil {
			return EventStore{}, err
		}
	}

	return es, nil
}

// Query returns the events of the stream ordered by sequence number, and the latest sequence number
// (eventstore.NoStream if the stream has no events).
func (es EventStore) Query(ctx context.Context, streamID string) (
	eventstore.StoredEvents,
	eventstore.SequenceNumber,
	error,
) {

	if streamID == "" {
		return nil, eventstore.NoStream, eventstore.ErrEmptyStreamID
	}

	ctx, span := es.observer.StartSpan(ctx, spanNameQuery, map[string]string{spanAttrStreamID: streamID})
	start := time.Now()

	sqlQuery, buildErr := es.buildSelectStreamQuery(streamID)
	if buildErr != nil {
		es.failQuery(ctx, span, errorTypeBuildQuery, time.Since(start), logMsgBuildQueryFailed, buildErr)
		return nil, eventstore.NoStream, buildErr
	}

	events, queryErr := es.queryEvents(ctx, sqlQuery, logActionQuery)
	duration := time.Since(start)
	if queryErr != nil {
		es.failQuery(ctx, span, errorTypeDatabase, duration, logMsgDBQueryFailed, queryErr)
		return nil, eventstore.NoStream, queryErr
	}

	es.observer.LogOperation(
		ctx,
		logMsgQueryCompleted,
		logAttrStreamID, streamID,
		logAttrEventCount, len(events),
		logAttrDurationMS, observe.ToMilliseconds(duration),
	)
	es.observer.RecordDuration(ctx, metricQueryDuration, duration, logActionQuery, observe.StatusSuccess)
	es.observer.RecordValue(ctx, metricEventsQueried, float64(len(events)), logActionQuery, observe.StatusSuccess)
	span.FinishSuccess(duration, map[string]string{spanAttrEventCount: strconv.Itoa(len(events))})

	return events, eventstore.LastSequenceNumber(events), nil
}

// LatestSequenceNumber returns the latest sequence number of the stream without loading its events.
func (es EventStore) LatestSequenceNumber(ctx context.Context, streamID string) (eventstore.SequenceNumber, error) {
	if streamID == "" {
		return eventstore.NoStream, eventstore.ErrEmptyStreamID
	}

	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		From(es.eventTableName).
		Select(goqu.COALESCE(goqu.MAX(colSequenceNumber), eventstore.NoStream)).
		Where(goqu.Ex{colStreamID: streamID}).
		ToSQL()
	if toSQLErr != nil {
		return eventstore.NoStream, errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	start := time.Now()
	rows, queryErr := es.db.Query(ctx, sqlQuery)
	es.observer.LogSQL(ctx, logActionLatest, sqlQuery, time.Since(start))
	if queryErr != nil {
		es.observer.LogError(ctx, logMsgDBQueryFailed, queryErr, logAttrStreamID, streamID)
		return eventstore.NoStream, errors.Join(eventstore.ErrQueryingEventsFailed, queryErr)
	}
	defer es.closeRows(ctx, rows)

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

// Append appends one or multiple events to the stream, atomically, if the latest sequence number of the stream
// still equals expected. The returned events carry their sequence numbers and positions.
//
// Returns eventstore.ErrConcurrencyConflict if the stream was changed since expected was read.
func (es EventStore) Append(
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

	allEvents := append(eventstore.StorableEvents{event}, additionalEvents...)

	ctx, span := es.observer.StartSpan(ctx, spanNameAppend, map[string]string{
		spanAttrStreamID:   streamID,
		spanAttrEventCount: strconv.Itoa(len(allEvents)),
		spanAttrExpected:   strconv.FormatInt(expected, 10),
	})
	start := time.Now()

	sqlQuery, buildErr := es.buildAppendQuery(streamID, expected, allEvents)
	if buildErr != nil {
		es.failAppend(ctx, span, errorTypeBuildQuery, time.Since(start), logMsgBuildQueryFailed, buildErr)
		return nil, buildErr
	}

	// the append must see the primary
	appendCtx := eventstore.WithStrongConsistency(ctx)

	rows, queryErr := es.db.Query(appendCtx, sqlQuery)
	es.observer.LogSQL(ctx, logActionAppend, sqlQuery, time.Since(start))
	if queryErr != nil {
		return nil, es.appendFailed(ctx, span, streamID, expected, time.Since(start), queryErr)
	}
	defer es.closeRows(ctx, rows)

	stored := make(eventstore.StoredEvents, 0, len(allEvents))
	for i := 0; rows.Next(); i++ {
		var position eventstore.Position
		var sequenceNumber eventstore.SequenceNumber

		if scanErr := rows.Scan(&position, &sequenceNumber); scanErr != nil {
			es.failAppend(ctx, span, errorTypeScan, time.Since(start), logMsgScanRowFailed, scanErr)
			return nil, errors.Join(eventstore.ErrScanningDBRowFailed, scanErr)
		}

		stored = append(stored, eventstore.StoredEvent{
			StorableEvent:  allEvents[sequenceNumber-expected-1],
			StreamID:       streamID,
			SequenceNumber: sequenceNumber,
			Position:       position,
		})
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, es.appendFailed(ctx, span, streamID, expected, time.Since(start), rowsErr)
	}

	duration := time.Since(start)

	if len(stored) < len(allEvents) {
		return nil, es.conflict(ctx, span, streamID, expected, duration)
	}

	slices.SortFunc(stored, func(a, b eventstore.StoredEvent) int {
		return cmp.Compare(a.SequenceNumber, b.SequenceNumber)
	})

	es.observer.LogOperation(
		ctx,
		logMsgEventsAppended,
		logAttrStreamID, streamID,
		logAttrEventCount, len(stored),
		logAttrDurationMS, observe.ToMilliseconds(duration),
	)
	es.observer.RecordDuration(ctx, metricAppendDuration, duration, logActionAppend, observe.StatusSuccess)
	es.observer.RecordValue(ctx, metricEventsAppended, float64(len(stored)), logActionAppend, observe.StatusSuccess)
	span.FinishSuccess(duration, map[string]string{spanAttrEventCount: strconv.Itoa(len(stored))})

	return stored, nil
}

// QueryAll returns the events of all streams matching the filter with a position greater than afterPosition,
// ordered by position. Use eventstore.WithEventualConsistency to read from a replica.
func (es EventStore) QueryAll(
	ctx context.Context,
	filter eventstore.Filter,
	afterPosition eventstore.Position,
) (eventstore.StoredEvents, error) {

	sqlQuery, buildErr := es.buildSelectAllQuery(filter, afterPosition)
	if buildErr != nil {
		es.observer.LogError(ctx, logMsgBuildQueryFailed, buildErr)
		return nil, buildErr
	}

	events, queryErr := es.queryEvents(ctx, sqlQuery, logActionQueryAll)
	if queryErr != nil {
		es.observer.LogError(ctx, logMsgDBQueryFailed, queryErr)
		return nil, queryErr
	}

	return events, nil
}

func (es EventStore) queryEvents(ctx context.Context, sqlQuery sqlQueryString, action string) (eventstore.StoredEvents, error) {
	start := time.Now()
	rows, queryErr := es.db.Query(ctx, sqlQuery)
	es.observer.LogSQL(ctx, action, sqlQuery, time.Since(start))
	if queryErr != nil {
		return nil, errors.Join(eventstore.ErrQueryingEventsFailed, queryErr)
	}
	defer es.closeRows(ctx, rows)

	events := make(eventstore.StoredEvents, 0)

	for rows.Next() {
		var row eventstore.StoredEvent
		var payload, metadata []byte

		scanErr := rows.Scan(
			&row.StreamID,
			&row.SequenceNumber,
			&row.Position,
			&row.EventType,
			&row.OccurredAt,
			&payload,
			&metadata,
		)
		if scanErr != nil {
			es.observer.LogError(ctx, logMsgScanRowFailed, scanErr)
			return nil, errors.Join(eventstore.ErrScanningDBRowFailed, scanErr)
		}

		storable, buildErr := eventstore.BuildStorableEvent(row.EventType, row.OccurredAt, payload, metadata)
		if buildErr != nil {
			es.observer.LogError(ctx, logMsgBuildStorableEventFailed, buildErr, logAttrEventType, row.EventType)
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

func (es EventStore) buildSelectStreamQuery(streamID string) (sqlQueryString, error) {
	sqlQuery, _, toSQLErr := es.selectEvents().
		Where(goqu.Ex{colStreamID: streamID}).
		Order(goqu.I(colSequenceNumber).Asc()).
		ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (es EventStore) buildSelectAllQuery(filter eventstore.Filter, afterPosition eventstore.Position) (sqlQueryString, error) {
	expressions := []goqu.Expression{goqu.C(colPosition).Gt(afterPosition)}

	if len(filter.EventTypes()) > 0 {
		expressions = append(expressions, goqu.C(colEventType).In(filter.EventTypes()))
	}

	if !filter.OccurredFrom().IsZero() {
		expressions = append(expressions, goqu.C(colOccurredAt).Gte(filter.OccurredFrom()))
	}

	if !filter.OccurredUntil().IsZero() {
		expressions = append(expressions, goqu.C(colOccurredAt).Lte(filter.OccurredUntil()))
	}

	sqlQuery, _, toSQLErr := es.selectEvents().
		Where(goqu.And(expressions...)).
		Order(goqu.I(colPosition).Asc()).
		ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (es EventStore) selectEvents() *goqu.SelectDataset {
	return goqu.Dialect(dialectPostgres).
		From(es.eventTableName).
		Select(colStreamID, colSequenceNumber, colPosition, colEventType, colOccurredAt, colPayload, colMetadata)
}

// buildAppendQuery builds
//
//	WITH context AS (SELECT MAX(sequence_number) AS max_seq FROM events WHERE stream_id = ...),
//	     vals AS (SELECT ... UNION ALL SELECT ...)
//	INSERT INTO events (...) SELECT vals.* FROM context, vals WHERE COALESCE(max_seq, -1) = expected
//	RETURNING position, sequence_number
func (es EventStore) buildAppendQuery(
	streamID string,
	expected eventstore.SequenceNumber,
	events eventstore.StorableEvents,
) (sqlQueryString, error) {

	builder := goqu.Dialect(dialectPostgres)

	cteStmt := builder.
		From(es.eventTableName).
		Select(goqu.MAX(colSequenceNumber).As(aliasMaxSeq)).
		Where(goqu.Ex{colStreamID: streamID})

	var valuesStmt *goqu.SelectDataset
	for i, event := range events {
		row := builder.Select(
			goqu.L(castText, streamID).As(colStreamID),
			goqu.L(castBigint, expected+1+eventstore.SequenceNumber(i)).As(colSequenceNumber),
			goqu.L(castText, event.EventType).As(colEventType),
			goqu.L(castTimestamp, event.OccurredAt).As(colOccurredAt),
			goqu.L(castJsonb, string(event.PayloadJSON)).As(colPayload),
			goqu.L(castJsonb, string(event.MetadataJSON)).As(colMetadata),
		)

		if valuesStmt == nil {
			valuesStmt = row
			continue
		}

		valuesStmt = valuesStmt.UnionAll(row)
	}

	insertStmt := builder.
		Insert(es.eventTableName).
		Cols(colStreamID, colSequenceNumber, colEventType, colOccurredAt, colPayload, colMetadata).
		With(cteContext, cteStmt).
		With(cteVals, valuesStmt).
		FromQuery(
			builder.From(cteContext, cteVals).
				Select(
					valsColumn(colStreamID),
					valsColumn(colSequenceNumber),
					valsColumn(colEventType),
					valsColumn(colOccurredAt),
					valsColumn(colPayload),
					valsColumn(colMetadata),
				).
				Where(goqu.COALESCE(goqu.C(aliasMaxSeq), eventstore.NoStream).Eq(goqu.V(expected))),
		).
		Returning(colPosition, colSequenceNumber)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func valsColumn(col string) string {
	return fmt.Sprintf("%s.%s", cteVals, col)
}

// appendFailed maps a unique violation on (stream_id, sequence_number) to a concurrency conflict:
// a concurrent writer inserted the same sequence number between our guard and our insert.
func (es EventStore) appendFailed(
	ctx context.Context,
	span *observe.Span,
	streamID string,
	expected eventstore.SequenceNumber,
	duration time.Duration,
	err error,
) error {

	if adapters.IsUniqueViolation(err) {
		return es.conflict(ctx, span, streamID, expected, duration)
	}

	es.failAppend(ctx, span, errorTypeDatabase, duration, logMsgDBAppendFailed, err)

	return errors.Join(eventstore.ErrAppendingEventFailed, err)
}

func (es EventStore) conflict(
	ctx context.Context,
	span *observe.Span,
	streamID string,
	expected eventstore.SequenceNumber,
	duration time.Duration,
) error {

	es.observer.LogOperation(
		ctx,
		logMsgConcurrencyConflict,
		logAttrStreamID, streamID,
		logAttrExpectedSequence, expected,
	)
	es.observer.RecordDuration(ctx, metricAppendDuration, duration, logActionAppend, observe.StatusError)
	es.observer.IncrementCounter(ctx, metricConcurrencyConflicts, map[string]string{
		observe.AttrOperation: logActionAppend,
	})
	span.FinishError(errorTypeConflict, duration)

	return eventstore.ErrConcurrencyConflict
}

func (es EventStore) failQuery(
	ctx context.Context,
	span *observe.Span,
	errorType string,
	duration time.Duration,
	message string,
	err error,
) {

	es.observer.LogError(ctx, message, err)
	es.observer.RecordDuration(ctx, metricQueryDuration, duration, logActionQuery, observe.StatusError)
	es.observer.RecordError(ctx, metricDatabaseErrors, logActionQuery, errorType)
	span.FinishError(errorType, duration)
}

func (es EventStore) failAppend(
	ctx context.Context,
	span *observe.Span,
	errorType string,
	duration time.Duration,
	message string,
	err error,
) {

	es.observer.LogError(ctx, message, err)
	es.observer.RecordDuration(ctx, metricAppendDuration, duration, logActionAppend, observe.StatusError)
	es.observer.RecordError(ctx, metricDatabaseErrors, logActionAppend, errorType)
	span.FinishError(errorType, duration)
}

// closeRows closes database rows and logs any errors.
func (es EventStore) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		es.observer.LogWarn(ctx, logMsgCloseRowsFailed, closeErr)
	}
}
