package postgresengine

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

// SaveSnapshot upserts the snapshot of a projection.
func (es EventStore) SaveSnapshot(ctx context.Context, snapshot eventstore.Snapshot) error {
	if err := snapshot.Validate(); err != nil {
		return err
	}

	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now()
	}

	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		Insert(es.snapshotTableName).
		Rows(goqu.Record{
			colProjectionType: snapshot.ProjectionType,
			colProjectionID:   snapshot.ProjectionID,
			colPosition:       snapshot.Position,
			colData:           goqu.L(castJsonb, string(snapshot.Data)),
			colCreatedAt:      goqu.L(castTimestamp, snapshot.CreatedAt),
		}).
		OnConflict(goqu.DoUpdate(colProjectionType+", "+colProjectionID, goqu.Record{
			colPosition:  goqu.L("EXCLUDED." + colPosition),
			colData:      goqu.L("EXCLUDED." + colData),
			colCreatedAt: goqu.L("EXCLUDED." + colCreatedAt),
		})).
		ToSQL()
	if toSQLErr != nil {
		return errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	start := time.Now()
	_, execErr := es.db.Exec(ctx, sqlQuery)
	es.observer.LogSQL(ctx, logActionSaveSnapshot, sqlQuery, time.Since(start))
	if execErr != nil {
		es.observer.LogError(ctx, logMsgDBQueryFailed, execErr, logAttrProjectionType, snapshot.ProjectionType)
		return errors.Join(eventstore.ErrSavingSnapshotFailed, execErr)
	}

	es.observer.LogOperation(
		ctx,
		logActionSaveSnapshot,
		logAttrProjectionType, snapshot.ProjectionType,
		logAttrProjectionID, snapshot.ProjectionID,
	)

	return nil
}

// LoadSnapshot returns (nil, nil) if there is no snapshot.
func (es EventStore) LoadSnapshot(ctx context.Context, projectionType, projectionID string) (*eventstore.Snapshot, error) {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		From(es.snapshotTableName).
		Select(colProjectionType, colProjectionID, colPosition, colData, colCreatedAt).
		Where(goqu.Ex{colProjectionType: projectionType, colProjectionID: projectionID}).
		ToSQL()
	if toSQLErr != nil {
		return nil, errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	start := time.Now()
	rows, queryErr := es.db.Query(ctx, sqlQuery)
	es.observer.LogSQL(ctx, logActionLoadSnapshot, sqlQuery, time.Since(start))
	if queryErr != nil {
		es.observer.LogError(ctx, logMsgDBQueryFailed, queryErr, logAttrProjectionType, projectionType)
		return nil, errors.Join(eventstore.ErrLoadingSnapshotFailed, queryErr)
	}
	defer es.closeRows(ctx, rows)

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			return nil, errors.Join(eventstore.ErrLoadingSnapshotFailed, rowsErr)
		}

		return nil, nil
	}

	var snapshot eventstore.Snapshot
	var data []byte

	scanErr := rows.Scan(&snapshot.ProjectionType, &snapshot.ProjectionID, &snapshot.Position, &data, &snapshot.CreatedAt)
	if scanErr != nil {
		return nil, errors.Join(eventstore.ErrLoadingSnapshotFailed, eventstore.ErrScanningDBRowFailed, scanErr)
	}

	snapshot.Data = json.RawMessage(data)

	return &snapshot, nil
}

func (es EventStore) DeleteSnapshot(ctx context.Context, projectionType, projectionID string) error {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		Delete(es.snapshotTableName).
		Where(goqu.Ex{colProjectionType: projectionType, colProjectionID: projectionID}).
		ToSQL()
	if toSQLErr != nil {
		return errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	start := time.Now()
	_, execErr := es.db.Exec(ctx, sqlQuery)
	es.observer.LogSQL(ctx, logActionDeleteSnapshot, sqlQuery, time.Since(start))
	if execErr != nil {
		return errors.Join(eventstore.ErrDeletingSnapshotFailed, execErr)
	}

	return nil
}
