package sqliteengine

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
)

const (
	colProjectionType = "projection_type"
	colProjectionID   = "projection_id"
	colData           = "data"
	colCreatedAt      = "created_at"

	logActionSaveSnapshot   = "save_snapshot"
	logActionLoadSnapshot   = "load_snapshot"
	logActionDeleteSnapshot = "delete_snapshot"
	logAttrProjectionType   = "projection_type"
	logAttrProjectionID     = "projection_id"
)

// SaveSnapshot replaces the snapshot of a projection.
func (es *EventStore) SaveSnapshot(ctx context.Context, snapshot eventstore.Snapshot) error {
	if err := snapshot.Validate(); err != nil {
		return err
	}

	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now()
	}

	deleteQuery, deleteArgs, toSQLErr := es.deleteSnapshot(snapshot.ProjectionType, snapshot.ProjectionID).ToSQL()
	if toSQLErr != nil {
		return errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	insertQuery, insertArgs, toSQLErr := goqu.Dialect(dialectSQLite).
		Insert(es.snapshotTableName).
		Rows(goqu.Record{
			colProjectionType: snapshot.ProjectionType,
			colProjectionID:   snapshot.ProjectionID,
			colPosition:       snapshot.Position,
			colData:           string(snapshot.Data),
			colCreatedAt:      snapshot.CreatedAt.UnixNano(),
		}).
		Prepared(true).
		ToSQL()
	if toSQLErr != nil {
		return errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	tx, beginErr := es.db.BeginTx(ctx, nil)
	if beginErr != nil {
		return errors.Join(eventstore.ErrSavingSnapshotFailed, eventstore.ErrBeginningTransactionFailed, beginErr)
	}
	defer es.rollback(ctx, tx)

	start := time.Now()
	if _, err := tx.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
		es.observer.LogError(ctx, logMsgDBQueryFailed, err, logAttrProjectionType, snapshot.ProjectionType)
		return errors.Join(eventstore.ErrSavingSnapshotFailed, err)
	}

	if _, err := tx.ExecContext(ctx, insertQuery, insertArgs...); err != nil {
		es.observer.LogError(ctx, logMsgDBQueryFailed, err, logAttrProjectionType, snapshot.ProjectionType)
		return errors.Join(eventstore.ErrSavingSnapshotFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return errors.Join(eventstore.ErrSavingSnapshotFailed, eventstore.ErrCommittingTransactionFailed, err)
	}
	es.observer.LogSQL(ctx, logActionSaveSnapshot, insertQuery, time.Since(start))

	es.observer.LogOperation(
		ctx,
		logActionSaveSnapshot,
		logAttrProjectionType, snapshot.ProjectionType,
		logAttrProjectionID, snapshot.ProjectionID,
	)

	return nil
}

// LoadSnapshot returns (nil, nil) if there is no snapshot.
func (es *EventStore) LoadSnapshot(ctx context.Context, projectionType, projectionID string) (*eventstore.Snapshot, error) {
	sqlQuery, args, toSQLErr := goqu.Dialect(dialectSQLite).
		From(es.snapshotTableName).
		Select(colProjectionType, colProjectionID, colPosition, colData, colCreatedAt).
		Where(goqu.Ex{colProjectionType: projectionType, colProjectionID: projectionID}).
		Prepared(true).
		ToSQL()
	if toSQLErr != nil {
		return nil, errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	start := time.Now()
	rows, queryErr := es.db.QueryContext(ctx, sqlQuery, args...)
	es.observer.LogSQL(ctx, logActionLoadSnapshot, sqlQuery, time.Since(start))
	if queryErr != nil {
		es.observer.LogError(ctx, logMsgDBQueryFailed, queryErr, logAttrProjectionType, projectionType)
		return nil, errors.Join(eventstore.ErrLoadingSnapshotFailed, queryErr)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			return nil, errors.Join(eventstore.ErrLoadingSnapshotFailed, rowsErr)
		}

		return nil, nil
	}

	var snapshot eventstore.Snapshot
	var data []byte
	var createdAt int64

	scanErr := rows.Scan(&snapshot.ProjectionType, &snapshot.ProjectionID, &snapshot.Position, &data, &createdAt)
	if scanErr != nil {
		return nil, errors.Join(eventstore.ErrLoadingSnapshotFailed, eventstore.ErrScanningDBRowFailed, scanErr)
	}

	snapshot.Data = json.RawMessage(data)
	snapshot.CreatedAt = time.Unix(0, createdAt).UTC()

	return &snapshot, nil
}

func (es *EventStore) DeleteSnapshot(ctx context.Context, projectionType, projectionID string) error {
	sqlQuery, args, toSQLErr := es.deleteSnapshot(projectionType, projectionID).ToSQL()
	if toSQLErr != nil {
		return errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	start := time.Now()
	_, execErr := es.db.ExecContext(ctx, sqlQuery, args...)
	es.observer.LogSQL(ctx, logActionDeleteSnapshot, sqlQuery, time.Since(start))
	if execErr != nil {
		return errors.Join(eventstore.ErrDeletingSnapshotFailed, execErr)
	}

	return nil
}

func (es *EventStore) deleteSnapshot(projectionType, projectionID string) *goqu.DeleteDataset {
	return goqu.Dialect(dialectSQLite).
		Delete(es.snapshotTableName).
		Where(goqu.Ex{colProjectionType: projectionType, colProjectionID: projectionID}).
		Prepared(true)
}
