package shell

import (
	"context"
	"errors"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
)

// ErrMappingToEventMetadataFailed is returned when metadata conversion fails.
var ErrMappingToEventMetadataFailed = errors.New("mapping to event metadata failed")

// MessageID represents a unique message identifier.
type MessageID = string

// CausationID represents the ID of the message that caused this event.
type CausationID = string

// CorrelationID represents the ID correlating related events.
type CorrelationID = string

// EventMetadata contains event tracking information.
type EventMetadata struct {
	MessageID     MessageID
	CausationID   CausationID
	CorrelationID CorrelationID
}

type correlationKey struct{}

type correlation struct {
	correlationID CorrelationID
	causationID   CausationID
}

// WithCorrelation marks the context so that events appended under it share correlationID
// and name causationID as their cause.
func WithCorrelation(ctx context.Context, correlationID CorrelationID, causationID CausationID) context.Context {
	return context.WithValue(ctx, correlationKey{}, correlation{correlationID: correlationID, causationID: causationID})
}

// NewCommandContext starts a new correlation for a command entering the system.
func NewCommandContext(ctx context.Context) context.Context {
	id := uuid.NewString()
	return WithCorrelation(ctx, id, id)
}

// EventMetadataFor builds the metadata of one event appended under ctx. Without a correlation in ctx,
// the event starts its own.
func EventMetadataFor(ctx context.Context) EventMetadata {
	messageID := uuid.NewString()

	c, ok := ctx.Value(correlationKey{}).(correlation)
	if !ok {
		return EventMetadata{MessageID: messageID, CausationID: messageID, CorrelationID: messageID}
	}

	return EventMetadata{MessageID: messageID, CausationID: c.causationID, CorrelationID: c.correlationID}
}

// EventMetadataFrom extracts EventMetadata from a StorableEvent.
func EventMetadataFrom(storableEvent eventstore.StorableEvent) (EventMetadata, error) {
	metadata := new(EventMetadata)
	err := jsoniter.ConfigFastest.Unmarshal(storableEvent.MetadataJSON, metadata)
	if err != nil {
		return EventMetadata{}, errors.Join(ErrMappingToEventMetadataFailed, err)
	}

	return *metadata, nil
}
