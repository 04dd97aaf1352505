package domain

// Saga reacts to an action result (usually an event) with zero or more actions (usually commands).
// React is pure. Action results the saga does not declare produce no actions.
type Saga[AR, A any] struct {
	React func(actionResult AR) []A
}

// CombineSagas joins two sagas into one over the wider types AR and A.
// Each side reacts independently to the action results it declares, the actions are concatenated
// in side order.
//
// Every action produced by either side must implement A. A violation is a wiring error and panics.
func CombineSagas[AR, A any, AR1, A1, AR2, A2 any](x Saga[AR1, A1], y Saga[AR2, A2]) Saga[AR, A] {
	return Saga[AR, A]{
		React: func(actionResult AR) []A {
			var actions []A

			if ar, ok := any(actionResult).(AR1); ok {
				actions = appendWidened[A](actions, x.React(ar))
			}

			if ar, ok := any(actionResult).(AR2); ok {
				actions = appendWidened[A](actions, y.React(ar))
			}

			return actions
		},
	}
}

// MapLeftOnActionResult adapts the action result type of a saga.
func MapLeftOnActionResult[ARn, AR, A any](s Saga[AR, A], f func(ARn) AR) Saga[ARn, A] {
	return Saga[ARn, A]{
		React: func(actionResult ARn) []A {
			return s.React(f(actionResult))
		},
	}
}

// MapOnAction adapts the action type of a saga.
func MapOnAction[An, AR, A any](s Saga[AR, A], f func(A) An) Saga[AR, An] {
	return Saga[AR, An]{
		React: func(actionResult AR) []An {
			actions := s.React(actionResult)
			mapped := make([]An, 0, len(actions))
			for _, action := range actions {
				mapped = append(mapped, f(action))
			}

			return mapped
		},
	}
}
