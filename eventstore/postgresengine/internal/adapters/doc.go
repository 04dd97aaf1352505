// Package adapters lets the Postgres event store run on pgxpool.Pool, sql.DB, or sqlx.DB.
//
// Reads honor the consistency level in the context (see eventstore.WithEventualConsistency):
// adapters with a replica read from it only when eventual consistency was requested.
package adapters
