package sqliteengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
)

const logActionCreateSchema = "create_schema"

// SchemaStatements returns the DDL for the events and snapshots tables.
// occurred_at and created_at are stored as unix nanoseconds.
func (es *EventStore) SchemaStatements() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
	position INTEGER PRIMARY KEY AUTOINCREMENT,
	stream_id TEXT NOT NULL,
	sequence_number INTEGER NOT NULL,
	event_type TEXT NOT NULL,
	occurred_at INTEGER NOT NULL,
	payload TEXT NOT NULL,
	metadata TEXT NOT NULL,
	UNIQUE (stream_id, sequence_number)
)`, es.eventTableName),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %q ON %q (event_type)`, es.eventTableName+"_event_type_idx", es.eventTableName),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
	projection_type TEXT NOT NULL,
	projection_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	data TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (projection_type, projection_id)
)`, es.snapshotTableName),
	}
}

// CreateSchema creates the tables if they do not exist.
func (es *EventStore) CreateSchema(ctx context.Context) error {
	for _, statement := range es.SchemaStatements() {
		if _, err := es.db.ExecContext(ctx, statement); err != nil {
			es.observer.LogError(ctx, logActionCreateSchema, err)
			return errors.Join(eventstore.ErrCreatingSchemaFailed, err)
		}
	}

	return nil
}
