package domain

// View is the pure projection of events into a read model.
// Evolve must be total: events it does not know leave the state unchanged.
type View[S, E any] struct {
	InitialState S
	Evolve       func(state S, event E) S
}

// Fold evolves the state through the events in order.
func (v View[S, E]) Fold(state S, events []E) S {
	for _, event := range events {
		state = v.Evolve(state, event)
	}

	return state
}

// CombineViews joins two views over disjoint event sub-families into one view over E
// with the joined state Tuple2[S1, S2].
func CombineViews[E any, S1, E1, S2, E2 any](x View[S1, E1], y View[S2, E2]) View[Tuple2[S1, S2], E] {
	return View[Tuple2[S1, S2], E]{
		InitialState: NewTuple2(x.InitialState, y.InitialState),

		Evolve: func(state Tuple2[S1, S2], event E) Tuple2[S1, S2] {
			if e, ok := any(event).(E1); ok {
				state.First = x.Evolve(state.First, e)
			}

			if e, ok := any(event).(E2); ok {
				state.Second = y.Evolve(state.Second, e)
			}

			return state
		},
	}
}

// DimapOnViewState adapts the state of a view.
func DimapOnViewState[S2, S, E any](v View[S, E], fl func(S2) S, fr func(S) S2) View[S2, E] {
	return View[S2, E]{
		InitialState: fr(v.InitialState),

		Evolve: func(state S2, event E) S2 {
			return fr(v.Evolve(fl(state), event))
		},
	}
}

// MapLeftOnViewEvent adapts the event type of a view.
func MapLeftOnViewEvent[En, S, E any](v View[S, E], f func(En) E) View[S, En] {
	return View[S, En]{
		InitialState: v.InitialState,

		Evolve: func(state S, event En) S {
			return v.Evolve(state, f(event))
		},
	}
}
