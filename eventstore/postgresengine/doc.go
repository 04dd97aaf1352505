// Package postgresengine implements eventstore.EventStore and eventstore.SnapshotStore on PostgreSQL.
//
// It runs on pgxpool.Pool, sql.DB (lib/pq), or sqlx.DB. Events live in one table with a per-stream
// sequence number and a unique index on (stream_id, sequence_number). An append is a single
// INSERT ... SELECT guarded by the expected sequence number of the stream:
// if another writer appended in between, the guard selects no rows (or the unique index fires)
// and Append returns eventstore.ErrConcurrencyConflict.
//
// Usage:
//
//	pool, _ := pgxpool.New(ctx, dsn)
//	store, _ := postgresengine.NewEventStoreFromPGXPool(
//		pool,
//		postgresengine.WithTableName("restaurant_events"),
//		postgresengine.WithLogger(slog.Default()),
//	)
//	_ = store.CreateSchema(ctx)
//
//	events, latest, _ := store.Query(ctx, streamID)
//	stored, err := store.Append(ctx, streamID, latest, newEvent)
package postgresengine
