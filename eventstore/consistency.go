package eventstore

import "context"

// ConsistencyLevel defines the consistency requirements for EventStore operations.
type ConsistencyLevel int

const (
	// StrongConsistency reads from the primary database. It is the default, aggregates must see
	// their own writes before deciding.
	StrongConsistency ConsistencyLevel = iota

	// EventualConsistency allows reads from a replica, e.g. for projections catching up.
	EventualConsistency
)

// contextKey is a private type to prevent context key collisions.
type contextKey string

// ConsistencyLevelKey is the context key used to store consistency level preferences.
const ConsistencyLevelKey contextKey = "eventstore.consistency_level"

// WithStrongConsistency marks reads in ctx to go to the primary database.
//
//	ctx = eventstore.WithStrongConsistency(ctx)
//	events, latest, err := store.Query(ctx, streamID)
func WithStrongConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, StrongConsistency)
}

// WithEventualConsistency marks reads in ctx as allowed to go to a replica.
//
//	ctx = eventstore.WithEventualConsistency(ctx)
//	events, err := store.QueryAll(ctx, eventstore.MatchingAnyEvent(), lastPosition)
func WithEventualConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, EventualConsistency)
}

// GetConsistencyLevel extracts the consistency level from the context, StrongConsistency when unset.
func GetConsistencyLevel(ctx context.Context) ConsistencyLevel {
	if level, ok := ctx.Value(ConsistencyLevelKey).(ConsistencyLevel); ok {
		return level
	}
	return StrongConsistency
}

func (c ConsistencyLevel) String() string {
	switch c {
	case StrongConsistency:
		return "strong"
	case EventualConsistency:
		return "eventual"
	default:
		return "unknown"
	}
}
