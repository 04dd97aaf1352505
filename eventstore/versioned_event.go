package eventstore

// VersionedEvent is a decoded domain event together with the stream it belongs to
// and its sequence number within that stream.
type VersionedEvent[E any] struct {
	Event          E
	StreamID       string
	SequenceNumber SequenceNumber
}

// Events strips the versioning information.
func Events[E any](versioned []VersionedEvent[E]) []E {
	events := make([]E, 0, len(versioned))
	for _, v := range versioned {
		events = append(events, v.Event)
	}

	return events
}
