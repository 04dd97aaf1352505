package domain

import (
	"fmt"
	"reflect"
)

// Decider is the pure decision procedure of an aggregate.
//
// Decide must return business rejections as events and never panic for them. Zero events is a legal
// (idempotent) outcome. Evolve must be total: events it does not know leave the state unchanged.
// Terminal is optional, nil means the state is never terminal.
type Decider[C, S, E any] struct {
	InitialState S
	Decide       func(command C, state S) []E
	Evolve       func(state S, event E) S
	Terminal     func(state S) bool
}

// IsTerminal reports whether the state accepts no further commands.
func (d Decider[C, S, E]) IsTerminal(state S) bool {
	if d.Terminal == nil {
		return false
	}

	return d.Terminal(state)
}

// Fold evolves the state through the events in order.
func (d Decider[C, S, E]) Fold(state S, events []E) S {
	for _, event := range events {
		state = d.Evolve(state, event)
	}

	return state
}

// ComputeNewEvents replays the history from the initial state and decides on the command.
// This is the core of the event-sourced flow.
func (d Decider[C, S, E]) ComputeNewEvents(history []E, command C) []E {
	return d.Decide(command, d.Fold(d.InitialState, history))
}

// ComputeNewState decides on the command and folds the resulting events into the state.
// This is the core of the state-stored flow. The events are returned alongside the new state.
func (d Decider[C, S, E]) ComputeNewState(state S, command C) (S, []E) {
	events := d.Decide(command, state)

	return d.Fold(state, events), events
}

// Combine joins two deciders over disjoint command and event sub-families into one decider
// over the wider families C and E, with the joined state Tuple2[S1, S2].
//
// Commands are routed to every side whose command type they implement. Events are routed into the
// state half of the side whose event type they implement. The combined state is terminal only when
// both halves are.
//
// Every event produced by either side must implement E. A violation is a wiring error and panics.
func Combine[C, E any, C1, S1, E1, C2, S2, E2 any](
	x Decider[C1, S1, E1],
	y Decider[C2, S2, E2],
) Decider[C, Tuple2[S1, S2], E] {

	return Decider[C, Tuple2[S1, S2], E]{
		InitialState: NewTuple2(x.InitialState, y.InitialState),

		Decide: func(command C, state Tuple2[S1, S2]) []E {
			var events []E

			if c, ok := any(command).(C1); ok {
				events = appendWidened[E](events, x.Decide(c, state.First))
			}

			if c, ok := any(command).(C2); ok {
				events = appendWidened[E](events, y.Decide(c, state.Second))
			}

			return events
		},

		Evolve: func(state Tuple2[S1, S2], event E) Tuple2[S1, S2] {
			if e, ok := any(event).(E1); ok {
				state.First = x.Evolve(state.First, e)
			}

			if e, ok := any(event).(E2); ok {
				state.Second = y.Evolve(state.Second, e)
			}

			return state
		},

		Terminal: func(state Tuple2[S1, S2]) bool {
			return x.IsTerminal(state.First) && y.IsTerminal(state.Second)
		},
	}
}

// DimapOnState adapts the state of a decider: fl reads the new state shape into the old one,
// fr writes the old shape back.
func DimapOnState[S2, C, S, E any](d Decider[C, S, E], fl func(S2) S, fr func(S) S2) Decider[C, S2, E] {
	return Decider[C, S2, E]{
		InitialState: fr(d.InitialState),

		Decide: func(command C, state S2) []E {
			return d.Decide(command, fl(state))
		},

		Evolve: func(state S2, event E) S2 {
			return fr(d.Evolve(fl(state), event))
		},

		Terminal: func(state S2) bool {
			return d.IsTerminal(fl(state))
		},
	}
}

// MapLeftOnCommand adapts the command type of a decider.
func MapLeftOnCommand[Cn, C, S, E any](d Decider[C, S, E], f func(Cn) C) Decider[Cn, S, E] {
	return Decider[Cn, S, E]{
		InitialState: d.InitialState,

		Decide: func(command Cn, state S) []E {
			return d.Decide(f(command), state)
		},

		Evolve:   d.Evolve,
		Terminal: d.Terminal,
	}
}

// DimapOnEvent adapts the event type of a decider: fl maps incoming events for Evolve,
// fr maps the events Decide produces.
func DimapOnEvent[En, C, S, E any](d Decider[C, S, E], fl func(En) E, fr func(E) En) Decider[C, S, En] {
	return Decider[C, S, En]{
		InitialState: d.InitialState,

		Decide: func(command C, state S) []En {
			events := d.Decide(command, state)
			mapped := make([]En, 0, len(events))
			for _, event := range events {
				mapped = append(mapped, fr(event))
			}

			return mapped
		},

		Evolve: func(state S, event En) S {
			return d.Evolve(state, fl(event))
		},

		Terminal: d.Terminal,
	}
}

func appendWidened[W, N any](widened []W, narrow []N) []W {
	for _, item := range narrow {
		w, ok := any(item).(W)
		if !ok {
			panic(fmt.Sprintf("domain: %T does not implement %v", item, reflect.TypeFor[W]()))
		}

		widened = append(widened, w)
	}

	return widened
}
