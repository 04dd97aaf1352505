package shell

import (
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
	"github.com/AntonStoeckl/decider-eventstore-go/example/restaurant/core"
)

var (
	// ErrMappingToStorableEventFailedForDomainEvent is returned when domain event serialization fails.
	ErrMappingToStorableEventFailedForDomainEvent = errors.New("mapping to storable event failed for domain event")

	// ErrMappingToStorableEventFailedForMetadata is returned when metadata serialization fails.
	ErrMappingToStorableEventFailedForMetadata = errors.New("mapping to storable event failed for metadata")

	// ErrMappingToDomainEventFailed is returned when domain event conversion fails.
	ErrMappingToDomainEventFailed = errors.New("mapping to domain event failed")

	// ErrMappingToDomainEventUnknownEventType is returned for unrecognized event types.
	ErrMappingToDomainEventUnknownEventType = errors.New("unknown event type")
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

type decodeFunc func(payloadJSON []byte) (core.Event, error)

var decoders = map[string]decodeFunc{
	core.RestaurantCreatedEventType:                    decodeAs[core.RestaurantCreated],
	core.RestaurantNotCreatedEventType:                 decodeAs[core.RestaurantNotCreated],
	core.RestaurantMenuChangedEventType:                decodeAs[core.RestaurantMenuChanged],
	core.RestaurantMenuNotChangedEventType:             decodeAs[core.RestaurantMenuNotChanged],
	core.RestaurantMenuActivatedEventType:              decodeAs[core.RestaurantMenuActivated],
	core.RestaurantMenuNotActivatedEventType:           decodeAs[core.RestaurantMenuNotActivated],
	core.RestaurantMenuPassivatedEventType:             decodeAs[core.RestaurantMenuPassivated],
	core.RestaurantMenuNotPassivatedEventType:          decodeAs[core.RestaurantMenuNotPassivated],
	core.RestaurantOrderPlacedAtRestaurantEventType:    decodeAs[core.RestaurantOrderPlacedAtRestaurant],
	core.RestaurantOrderNotPlacedAtRestaurantEventType: decodeAs[core.RestaurantOrderNotPlacedAtRestaurant],
	core.RestaurantOrderRejectedByRestaurantEventType:  decodeAs[core.RestaurantOrderRejectedByRestaurant],
	core.RestaurantOrderCreatedEventType:               decodeAs[core.RestaurantOrderCreated],
	core.RestaurantOrderNotCreatedEventType:            decodeAs[core.RestaurantOrderNotCreated],
	core.RestaurantOrderPreparedEventType:              decodeAs[core.RestaurantOrderPrepared],
	core.RestaurantOrderNotPreparedEventType:           decodeAs[core.RestaurantOrderNotPrepared],
	core.RestaurantOrderRejectedEventType:              decodeAs[core.RestaurantOrderRejected],
}

func decodeAs[T core.Event](payloadJSON []byte) (core.Event, error) {
	var event T
	if err := jsonAPI.Unmarshal(payloadJSON, &event); err != nil {
		return nil, err
	}

	return event, nil
}

// KnownEventTypes lists every event type DomainEventFrom can decode.
func KnownEventTypes() []string {
	eventTypes := make([]string, 0, len(decoders))
	for eventType := range decoders {
		eventTypes = append(eventTypes, eventType)
	}

	return eventTypes
}

// StorableEventFrom converts a domain event and its metadata to a StorableEvent.
func StorableEventFrom(event core.Event, occurredAt time.Time, metadata EventMetadata) (eventstore.StorableEvent, error) {
	payloadJSON, err := jsonAPI.Marshal(event)
	if err != nil {
		return eventstore.StorableEvent{}, errors.Join(ErrMappingToStorableEventFailedForDomainEvent, err)
	}

	metadataJSON, err := jsonAPI.Marshal(metadata)
	if err != nil {
		return eventstore.StorableEvent{}, errors.Join(ErrMappingToStorableEventFailedForMetadata, err)
	}

	storableEvent, err := eventstore.BuildStorableEvent(event.EventType(), occurredAt, payloadJSON, metadataJSON)
	if err != nil {
		return eventstore.StorableEvent{}, errors.Join(ErrMappingToStorableEventFailedForDomainEvent, err)
	}

	return storableEvent, nil
}

// DomainEventFrom converts a StorableEvent to its corresponding domain event.
func DomainEventFrom(storableEvent eventstore.StorableEvent) (core.Event, error) {
	decode, ok := decoders[storableEvent.EventType]
	if !ok {
		return nil, errors.Join(ErrMappingToDomainEventFailed, ErrMappingToDomainEventUnknownEventType)
	}

	event, err := decode(storableEvent.PayloadJSON)
	if err != nil {
		return nil, errors.Join(ErrMappingToDomainEventFailed, err)
	}

	return event, nil
}

// DomainEventsFrom converts multiple StoredEvents to domain events with their stream and sequence number.
func DomainEventsFrom(storedEvents eventstore.StoredEvents) ([]eventstore.VersionedEvent[core.Event], error) {
	domainEvents := make([]eventstore.VersionedEvent[core.Event], 0, len(storedEvents))

	for _, storedEvent := range storedEvents {
		domainEvent, err := DomainEventFrom(storedEvent.StorableEvent)
		if err != nil {
			return nil, err
		}

		domainEvents = append(domainEvents, eventstore.VersionedEvent[core.Event]{
			Event:          domainEvent,
			StreamID:       storedEvent.StreamID,
			SequenceNumber: storedEvent.SequenceNumber,
		})
	}

	return domainEvents, nil
}
