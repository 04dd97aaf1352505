package application_test

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/decider-eventstore-go/application"
	"github.com/AntonStoeckl/decider-eventstore-go/domain"
	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
)

// parcel family: a parcel is registered once, then shipped, which also notifies an inbox stream.

type command interface{ isCommand() }

type event interface{ isEvent() }

type register struct{ id string }
type ship struct{ id, to string }
type ping struct {
	id string
	n  int
}
type noop struct{ id string }

type registered struct{ id string }
type registrationRejected struct{ id string }
type shipped struct{ id string }
type notified struct{ id, to string }
type pinged struct {
	id string
	n  int
}

func (register) isCommand()           {}
func (ship) isCommand()               {}
func (ping) isCommand()               {}
func (noop) isCommand()               {}
func (registered) isEvent()           {}
func (registrationRejected) isEvent() {}
func (shipped) isEvent()              {}
func (notified) isEvent()             {}
func (pinged) isEvent()               {}

type parcel struct {
	registered bool
	shipped    bool
	pings      int
}

func parcelDecider() domain.Decider[command, parcel, event] {
	return domain.Decider[command, parcel, event]{
		InitialState: parcel{},
		Decide: func(c command, s parcel) []event {
			switch c := c.(type) {
			case register:
				if s.registered {
					return []event{registrationRejected{id: c.id}}
				}
				return []event{registered{id: c.id}}
			case ship:
				if !s.registered || s.shipped {
					return nil
				}
				return []event{shipped{id: c.id}, notified{id: c.id, to: c.to}}
			case ping:
				return []event{pinged{id: c.id, n: c.n}}
			default:
				return nil
			}
		},
		Evolve: func(s parcel, e event) parcel {
			switch e.(type) {
			case registered:
				s.registered = true
			case shipped:
				s.shipped = true
			case pinged:
				s.pings++
			}
			return s
		},
	}
}

func parcelSaga() domain.Saga[event, command] {
	return domain.Saga[event, command]{
		React: func(e event) []command {
			switch e := e.(type) {
			case registered:
				return []command{ship{id: e.id, to: "hq"}}
			case pinged:
				return []command{ping{id: e.id, n: e.n + 1}}
			default:
				return nil
			}
		},
	}
}

func parcelResolver() application.StreamResolverFuncs[command, event] {
	return application.StreamResolverFuncs[command, event]{
		ForCommand: func(c command) []string {
			switch c := c.(type) {
			case register:
				return []string{"parcel-" + c.id}
			case ship:
				return []string{"parcel-" + c.id}
			case ping:
				return []string{"parcel-" + c.id}
			case noop:
				return []string{"parcel-" + c.id}
			default:
				return nil
			}
		},
		ForEvent: func(e event) string {
			switch e := e.(type) {
			case registered:
				return "parcel-" + e.id
			case registrationRejected:
				return "parcel-" + e.id
			case shipped:
				return "parcel-" + e.id
			case notified:
				return "inbox-" + e.to
			case pinged:
				return "parcel-" + e.id
			default:
				return ""
			}
		},
	}
}

// eventRepositoryFake is an in-memory EventRepository with hooks to inject failures.
type eventRepositoryFake struct {
	mu            sync.Mutex
	streams       map[string][]eventstore.VersionedEvent[event]
	fetchErr      error
	appendErrs    map[string]error
	beforeAppend  func(streamID string)
	appendedCalls int
}

func newEventRepositoryFake() *eventRepositoryFake {
	return &eventRepositoryFake{
		streams:    make(map[string][]eventstore.VersionedEvent[event]),
		appendErrs: make(map[string]error),
	}
}

func (r *eventRepositoryFake) FetchEvents(_ context.Context, streamID string) ([]eventstore.VersionedEvent[event], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fetchErr != nil {
		return nil, r.fetchErr
	}

	return append([]eventstore.VersionedEvent[event]{}, r.streams[streamID]...), nil
}

func (r *eventRepositoryFake) LatestSequenceNumber(_ context.Context, streamID string) (eventstore.SequenceNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.latest(streamID), nil
}

func (r *eventRepositoryFake) AppendEvents(
	_ context.Context,
	streamID string,
	expectedPrevious eventstore.SequenceNumber,
	events []event,
) ([]eventstore.VersionedEvent[event], error) {

	if r.beforeAppend != nil {
		r.beforeAppend(streamID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.appendedCalls++

	if err := r.appendErrs[streamID]; err != nil {
		return nil, err
	}

	if r.latest(streamID) != expectedPrevious {
		return nil, eventstore.ErrConcurrencyConflict
	}

	appended := make([]eventstore.VersionedEvent[event], 0, len(events))
	for i, e := range events {
		appended = append(appended, eventstore.VersionedEvent[event]{
			Event:          e,
			StreamID:       streamID,
			SequenceNumber: expectedPrevious + 1 + eventstore.SequenceNumber(i),
		})
	}

	r.streams[streamID] = append(r.streams[streamID], appended...)

	return appended, nil
}

func (r *eventRepositoryFake) given(streamID string, events ...event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range events {
		r.streams[streamID] = append(r.streams[streamID], eventstore.VersionedEvent[event]{
			Event:          e,
			StreamID:       streamID,
			SequenceNumber: r.latest(streamID) + 1,
		})
	}
}

func (r *eventRepositoryFake) events(streamID string) []event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return eventstore.Events(r.streams[streamID])
}

func (r *eventRepositoryFake) latest(streamID string) eventstore.SequenceNumber {
	stream := r.streams[streamID]
	if len(stream) == 0 {
		return eventstore.NoStream
	}

	return stream[len(stream)-1].SequenceNumber
}

// stateRepositoryFake keeps one versioned parcel per id.
type stateRepositoryFake struct {
	mu       sync.Mutex
	states   map[string]parcel
	versions map[string]eventstore.SequenceNumber
	saves    int
}

func newStateRepositoryFake() *stateRepositoryFake {
	return &stateRepositoryFake{
		states:   make(map[string]parcel),
		versions: make(map[string]eventstore.SequenceNumber),
	}
}

func (r *stateRepositoryFake) FetchState(_ context.Context, c command) (parcel, eventstore.SequenceNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := commandID(c)
	version, ok := r.versions[id]
	if !ok {
		return parcel{}, eventstore.NoStream, nil
	}

	return r.states[id], version, nil
}

func (r *stateRepositoryFake) Save(_ context.Context, c command, s parcel, version eventstore.SequenceNumber) (eventstore.SequenceNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := commandID(c)
	current, ok := r.versions[id]
	if !ok {
		current = eventstore.NoStream
	}

	if current != version {
		return current, eventstore.ErrConcurrencyConflict
	}

	r.saves++
	r.states[id] = s
	r.versions[id] = version + 1

	return version + 1, nil
}

func commandID(c command) string {
	switch c := c.(type) {
	case register:
		return c.id
	case ship:
		return c.id
	case ping:
		return c.id
	case noop:
		return c.id
	default:
		return ""
	}
}

// publisherSpy records published commands and fails for the ids in failFor.
type publisherSpy struct {
	mu        sync.Mutex
	published []command
	failFor   map[string]error
	onPublish func(ctx context.Context, c command) error
}

func (p *publisherSpy) Publish(ctx context.Context, c command) error {
	if p.onPublish != nil {
		if err := p.onPublish(ctx, c); err != nil {
			return err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.failFor[commandID(c)]; err != nil {
		return err
	}

	p.published = append(p.published, c)

	return nil
}
