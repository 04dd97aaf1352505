package postgresengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
)

const logActionCreateSchema = "create_schema"

// SchemaStatements returns the DDL for the events and snapshots tables.
func (es EventStore) SchemaStatements() []string {
	events := pq.QuoteIdentifier(es.eventTableName)
	snapshots := pq.QuoteIdentifier(es.snapshotTableName)

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	position BIGSERIAL PRIMARY KEY,
	stream_id TEXT NOT NULL,
	sequence_number BIGINT NOT NULL,
	event_type TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	payload JSONB NOT NULL,
	metadata JSONB NOT NULL,
	UNIQUE (stream_id, sequence_number)
)`, events),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (event_type)`,
			pq.QuoteIdentifier(es.eventTableName+"_event_type_idx"), events),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	projection_type TEXT NOT NULL,
	projection_id TEXT NOT NULL,
	position BIGINT NOT NULL,
	data JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (projection_type, projection_id)
)`, snapshots),
	}
}

// CreateSchema creates the tables if they do not exist.
func (es EventStore) CreateSchema(ctx context.Context) error {
	for _, statement := range es.SchemaStatements() {
		if _, err := es.db.Exec(ctx, statement); err != nil {
			es.observer.LogError(ctx, logActionCreateSchema, err)
			return errors.Join(eventstore.ErrCreatingSchemaFailed, err)
		}
	}

	es.observer.LogOperation(ctx, logActionCreateSchema)

	return nil
}
