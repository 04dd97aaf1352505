package postgresengine

import (
	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
)

// Option defines a functional option for configuring EventStore.
type Option func(*EventStore) error

// WithTableName sets the events table name.
func WithTableName(tableName string) Option {
	return func(es *EventStore) error {
		if tableName == "" {
			return eventstore.ErrEmptyEventsTableName
		}

		es.eventTableName = tableName

		return nil
	}
}

// WithSnapshotTableName sets the snapshots table name.
func WithSnapshotTableName(tableName string) Option {
	return func(es *EventStore) error {
		if tableName == "" {
			return eventstore.ErrEmptySnapshotsTableName
		}

		es.snapshotTableName = tableName

		return nil
	}
}

// WithLogger sets the logger for the EventStore.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL queries with execution timing (development use)
// Info level: Event counts, durations, concurrency conflicts (production-safe)
// Warn level: Non-critical issues like cleanup failures
// Error level: Critical failures that cause operation failures.
func WithLogger(logger eventstore.Logger) Option {
	return func(es *EventStore) error {
		es.observer.Logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger, e.g. oteladapters.SlogBridgeLogger,
// so log records carry the trace and span of the operation.
func WithContextualLogger(logger eventstore.ContextualLogger) Option {
	return func(es *EventStore) error {
		es.observer.ContextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector: query/append durations, event counts,
// concurrency conflicts, and database errors.
func WithMetrics(collector eventstore.MetricsCollector) Option {
	return func(es *EventStore) error {
		es.observer.Metrics = collector
		return nil
	}
}

// WithTracing sets the tracing collector, one span per query and append.
func WithTracing(collector eventstore.TracingCollector) Option {
	return func(es *EventStore) error {
		es.observer.Tracing = collector
		return nil
	}
}
