// Package application drives commands and events through the domain algebra against persistence.
//
// EventSourcingAggregate loads the history of the streams a command targets, folds it, decides and appends
// the new events under per-stream optimistic concurrency. StateStoredAggregate loads a state row instead
// and saves the evolved state. SagaManager turns events into follow-up commands and publishes them.
// MaterializedView folds events into read-side state.
//
// Nothing here retries a concurrency conflict. Callers decide whether to retry.
package application
